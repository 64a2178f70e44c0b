package iso9660

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	flagDirectory   = 0x02
	flagMultiExtent = 0x80
	minRecordLen    = 34
)

var errShortRecord = errors.New("directory record truncated")

// record is one directory record as stored on disc.
type record struct {
	extent    uint32
	size      uint32
	flags     byte
	ident     []byte
	systemUse []byte
	joliet    bool
}

func (r record) isDir() bool { return r.flags&flagDirectory != 0 }

// isSelfOrParent reports the "." and ".." entries, stored as the single
// bytes 0x00 and 0x01.
func (r record) isSelfOrParent() bool {
	return len(r.ident) == 1 && (r.ident[0] == 0x00 || r.ident[0] == 0x01)
}

// parseRecord decodes the record at the start of b and returns it along
// with its on-disc length.
func parseRecord(b []byte) (record, int, error) {
	if len(b) == 0 {
		return record{}, 0, errShortRecord
	}
	length := int(b[0])
	if length < minRecordLen || length > len(b) {
		return record{}, 0, fmt.Errorf("%w: length %d with %d bytes available", errShortRecord, length, len(b))
	}
	nameLen := int(b[32])
	nameEnd := 33 + nameLen
	if nameEnd > length {
		return record{}, 0, fmt.Errorf("%w: identifier overruns record", errShortRecord)
	}
	suStart := nameEnd
	if nameLen%2 == 0 {
		suStart++
	}
	if suStart > length {
		suStart = length
	}
	rec := record{
		extent:    binary.LittleEndian.Uint32(b[2:6]),
		size:      binary.LittleEndian.Uint32(b[10:14]),
		flags:     b[25],
		ident:     b[33:nameEnd],
		systemUse: b[suStart:length],
	}
	return rec, length, nil
}

// parseDirectory splits the raw bytes of a directory extent into records.
// Records never straddle a logical block; a zero length byte pads to the
// next block.
func parseDirectory(data []byte) ([]record, error) {
	var out []record
	pos := 0
	for pos < len(data) {
		if data[pos] == 0 {
			pos = (pos/LogicalBlockSize + 1) * LogicalBlockSize
			continue
		}
		blockEnd := min((pos/LogicalBlockSize+1)*LogicalBlockSize, len(data))
		rec, n, err := parseRecord(data[pos:blockEnd])
		if err != nil {
			return nil, fmt.Errorf("%w: offset %d: %v", ErrCorrupt, pos, err)
		}
		out = append(out, rec)
		pos += n
	}
	return out, nil
}

var ucs2 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

func decodeJoliet(ident []byte) (string, error) {
	if len(ident)%2 != 0 {
		ident = ident[:len(ident)-1]
	}
	out, err := ucs2.NewDecoder().Bytes(ident)
	if err != nil {
		return "", err
	}
	return stripVersion(string(out)), nil
}

// cleanPlain strips the ";N" version suffix and the trailing "." ISO 9660
// appends to extensionless file names.
func cleanPlain(ident []byte, lower bool) string {
	name := stripVersion(string(ident))
	name = strings.TrimSuffix(name, ".")
	if lower {
		name = strings.ToLower(name)
	}
	return name
}

func stripVersion(name string) string {
	if i := strings.LastIndexByte(name, ';'); i >= 0 {
		return name[:i]
	}
	return name
}
