package services

import (
	"strings"

	perrors "github.com/jmgilman/go/errors"
)

// Generic codes re-exported so handlers need a single import for Fail.
const (
	CodeNotFound     = perrors.CodeNotFound
	CodeInvalidInput = perrors.CodeInvalidInput
	CodeInternal     = perrors.CodeInternal
)

// Extraction failure codes.
const (
	CodeUnsupportedFormat      perrors.ErrorCode = "UNSUPPORTED_FORMAT"
	CodeAssetDirectoryNotFound perrors.ErrorCode = "ASSET_DIRECTORY_NOT_FOUND"
	CodeCorruptContainer       perrors.ErrorCode = "CORRUPT_CONTAINER"
	CodeToolNotFound           perrors.ErrorCode = "TOOL_NOT_FOUND"
	CodeConversionFailed       perrors.ErrorCode = "CONVERSION_FAILED"
	CodePathTraversalRejected  perrors.ErrorCode = "PATH_TRAVERSAL_REJECTED"
	CodeDestinationNotEmpty    perrors.ErrorCode = "DESTINATION_NOT_EMPTY"
	CodeNoDataTrack            perrors.ErrorCode = "NO_DATA_TRACK"
	CodeCanceled               perrors.ErrorCode = "CANCELED"
)

// Fail builds a coded error whose message names the source file and the
// attempted operation. Both are also attached as error context so JSON
// renderers can surface them without parsing the message.
func Fail(code perrors.ErrorCode, source, operation, message string, err error) perrors.PlatformError {
	detail := buildDetail(source, operation, message)
	var out perrors.PlatformError
	if err != nil {
		out = perrors.Wrap(err, code, detail)
	} else {
		out = perrors.New(code, detail)
	}
	fields := make(map[string]interface{}, 2)
	if source = strings.TrimSpace(source); source != "" {
		fields["source"] = source
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		fields["operation"] = operation
	}
	if len(fields) == 0 {
		return out
	}
	return perrors.WithContextMap(out, fields)
}

// Code reports the outermost failure code carried by err. A nil error
// yields an empty code rather than UNKNOWN.
func Code(err error) perrors.ErrorCode {
	if err == nil {
		return ""
	}
	return perrors.GetCode(err)
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code perrors.ErrorCode) bool {
	return err != nil && perrors.GetCode(err) == code
}

// ErrorMessage returns the human-readable message of err without the code
// prefix. Non-coded errors fall back to err.Error().
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe perrors.PlatformError
	if perrors.As(err, &pe) {
		return pe.Message()
	}
	return err.Error()
}

func buildDetail(source, operation, message string) string {
	parts := make([]string, 0, 3)
	if source = strings.TrimSpace(source); source != "" {
		parts = append(parts, source)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "extraction failure"
	}
	return strings.Join(parts, ": ")
}
