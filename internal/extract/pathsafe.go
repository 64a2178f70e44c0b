package extract

import (
	"fmt"
	"path"
	"strings"

	"roller/internal/services"
)

// cleanMemberPath normalizes a container member name to a relative
// slash-separated path. Names with a ".." segment, an absolute root, a drive
// letter, or a NUL byte are rejected with PATH_TRAVERSAL_REJECTED.
func cleanMemberPath(source, name string) (string, error) {
	normalized := strings.ReplaceAll(name, "\\", "/")
	reason := ""
	switch {
	case strings.ContainsRune(normalized, 0):
		reason = "contains a NUL byte"
	case strings.HasPrefix(normalized, "/"):
		reason = "is absolute"
	case hasDriveLetter(normalized):
		reason = "names a drive"
	default:
		for _, segment := range strings.Split(normalized, "/") {
			if segment == ".." {
				reason = "escapes its parent directory"
				break
			}
		}
	}
	if reason != "" {
		return "", services.Fail(services.CodePathTraversalRejected, source, "check member path", fmt.Sprintf("entry %q %s", name, reason), nil)
	}
	cleaned := path.Clean(normalized)
	if cleaned == "." {
		return "", nil
	}
	return cleaned, nil
}

func hasDriveLetter(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// relativeTo returns member relative to prefix when member lies at or below
// prefix, comparing segments case-insensitively.
func relativeTo(prefix, member string) (string, bool) {
	if prefix == "" {
		return member, true
	}
	if len(member) < len(prefix) || !strings.EqualFold(member[:len(prefix)], prefix) {
		return "", false
	}
	rest := member[len(prefix):]
	if rest == "" {
		return "", true
	}
	if rest[0] != '/' {
		return "", false
	}
	return rest[1:], true
}
