package cuesheet

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Sentinel errors reported by the parser and resolver.
var (
	ErrMalformed   = errors.New("malformed cue sheet")
	ErrMissingFile = errors.New("referenced image file not found")
	ErrUnsafePath  = errors.New("referenced image path escapes the sheet directory")
)

// FramesPerSecond is the CD-DA frame rate used by INDEX timestamps.
const FramesPerSecond = 75

// maxSheetSize bounds how much of a .cue file is read. Real sheets are a few
// kilobytes at most.
const maxSheetSize = 1 << 20

// Index is one INDEX entry, positioned in frames from the start of its file.
type Index struct {
	Number int
	Frames int
}

// Timestamp formats the position as mm:ss:ff.
func (i Index) Timestamp() string {
	minutes := i.Frames / (60 * FramesPerSecond)
	seconds := (i.Frames / FramesPerSecond) % 60
	frames := i.Frames % FramesPerSecond
	return fmt.Sprintf("%02d:%02d:%02d", minutes, seconds, frames)
}

// Track is a TRACK entry.
type Track struct {
	Number  int
	Mode    string
	Indexes []Index
	// Extra holds track-level commands other than INDEX, verbatim.
	Extra []string
}

// IsData reports whether the track carries a data mode (MODE1/..., MODE2/...).
func (t Track) IsData() bool {
	return strings.HasPrefix(strings.ToUpper(t.Mode), "MODE")
}

// IsAudio reports whether the track is an AUDIO track.
func (t Track) IsAudio() bool {
	return strings.EqualFold(t.Mode, "AUDIO")
}

// File is a FILE entry and the tracks stored in it.
type File struct {
	Name   string
	Type   string
	Tracks []Track
}

// Sheet is a parsed CUE sheet.
type Sheet struct {
	// Header holds disc-level commands preceding the first FILE, verbatim.
	Header []string
	Files  []File
}

// Tracks returns every track across all files in sheet order.
func (s *Sheet) Tracks() []Track {
	var out []Track
	for _, f := range s.Files {
		out = append(out, f.Tracks...)
	}
	return out
}

// DataTracks returns the tracks whose mode is a data mode.
func (s *Sheet) DataTracks() []Track {
	var out []Track
	for _, t := range s.Tracks() {
		if t.IsData() {
			out = append(out, t)
		}
	}
	return out
}

// AudioTracks returns the AUDIO tracks.
func (s *Sheet) AudioTracks() []Track {
	var out []Track
	for _, t := range s.Tracks() {
		if t.IsAudio() {
			out = append(out, t)
		}
	}
	return out
}

// HasDataTrack reports whether any track carries a data mode.
func (s *Sheet) HasDataTrack() bool {
	return len(s.DataTracks()) > 0
}

// Subset returns a sheet holding only the i-th FILE and the disc header.
func (s *Sheet) Subset(i int) (*Sheet, error) {
	if i < 0 || i >= len(s.Files) {
		return nil, fmt.Errorf("file index %d out of range (%d files)", i, len(s.Files))
	}
	return &Sheet{Header: s.Header, Files: []File{s.Files[i]}}, nil
}

// Write emits the sheet in canonical CUE syntax.
func (s *Sheet) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, line := range s.Header {
		fmt.Fprintln(bw, line)
	}
	for _, f := range s.Files {
		fmt.Fprintf(bw, "FILE %s %s\n", quote(f.Name), f.Type)
		for _, t := range f.Tracks {
			fmt.Fprintf(bw, "  TRACK %02d %s\n", t.Number, t.Mode)
			for _, line := range t.Extra {
				fmt.Fprintf(bw, "    %s\n", line)
			}
			for _, idx := range t.Indexes {
				fmt.Fprintf(bw, "    INDEX %02d %s\n", idx.Number, idx.Timestamp())
			}
		}
	}
	return bw.Flush()
}

// WriteFile writes the sheet to path.
func (s *Sheet) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `'`) + `"`
}

// ParseFile reads and parses the sheet at path.
func ParseFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(io.LimitReader(f, maxSheetSize))
}

// Parse reads a CUE sheet.
func Parse(r io.Reader) (*Sheet, error) {
	sheet := &Sheet{}
	var (
		file  *File
		track *Track
	)

	finishTrack := func(line int) error {
		if track == nil {
			return nil
		}
		if !hasIndexOne(track.Indexes) {
			return fmt.Errorf("%w: line %d: track %02d has no INDEX 01", ErrMalformed, line, track.Number)
		}
		file.Tracks = append(file.Tracks, *track)
		track = nil
		return nil
	}
	finishFile := func(line int) error {
		if err := finishTrack(line); err != nil {
			return err
		}
		if file == nil {
			return nil
		}
		if len(file.Tracks) == 0 {
			return fmt.Errorf("%w: line %d: FILE %q has no tracks", ErrMalformed, line, file.Name)
		}
		sheet.Files = append(sheet.Files, *file)
		file = nil
		return nil
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	lastTrack := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if first, _, _ := strings.Cut(line, " "); strings.EqualFold(first, "REM") {
			switch {
			case track != nil:
				track.Extra = append(track.Extra, line)
			case file == nil:
				sheet.Header = append(sheet.Header, line)
			}
			continue
		}
		fields, err := tokenize(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
		}
		switch strings.ToUpper(fields[0]) {
		case "FILE":
			if err := finishFile(lineNo); err != nil {
				return nil, err
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: FILE needs a name and a type", ErrMalformed, lineNo)
			}
			file = &File{Name: fields[1], Type: strings.ToUpper(fields[2])}
		case "TRACK":
			if file == nil {
				return nil, fmt.Errorf("%w: line %d: TRACK before FILE", ErrMalformed, lineNo)
			}
			if err := finishTrack(lineNo); err != nil {
				return nil, err
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: TRACK needs a number and a mode", ErrMalformed, lineNo)
			}
			number, err := strconv.Atoi(fields[1])
			if err != nil || number < 1 || number > 99 {
				return nil, fmt.Errorf("%w: line %d: invalid track number %q", ErrMalformed, lineNo, fields[1])
			}
			if number <= lastTrack {
				return nil, fmt.Errorf("%w: line %d: track %02d out of order", ErrMalformed, lineNo, number)
			}
			lastTrack = number
			track = &Track{Number: number, Mode: strings.ToUpper(fields[2])}
		case "INDEX":
			if track == nil {
				return nil, fmt.Errorf("%w: line %d: INDEX outside a TRACK", ErrMalformed, lineNo)
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: line %d: INDEX needs a number and a time", ErrMalformed, lineNo)
			}
			number, err := strconv.Atoi(fields[1])
			if err != nil || number < 0 || number > 99 {
				return nil, fmt.Errorf("%w: line %d: invalid index number %q", ErrMalformed, lineNo, fields[1])
			}
			frames, err := parseTimestamp(fields[2])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			track.Indexes = append(track.Indexes, Index{Number: number, Frames: frames})
		default:
			switch {
			case track != nil:
				track.Extra = append(track.Extra, line)
			case file == nil:
				sheet.Header = append(sheet.Header, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := finishFile(lineNo); err != nil {
		return nil, err
	}
	if len(sheet.Files) == 0 {
		return nil, fmt.Errorf("%w: no FILE directive", ErrMalformed)
	}
	return sheet, nil
}

// HasFileDirective reports whether head (the first bytes of a candidate
// sheet) contains a FILE command.
func HasFileDirective(head []byte) bool {
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	for _, line := range bytes.Split(head, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) < 5 {
			continue
		}
		if bytes.EqualFold(line[:4], []byte("FILE")) && (line[4] == ' ' || line[4] == '\t') {
			return true
		}
	}
	return false
}

func hasIndexOne(indexes []Index) bool {
	for _, idx := range indexes {
		if idx.Number == 1 {
			return true
		}
	}
	return false
}

func parseTimestamp(value string) (int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		nums[i] = n
	}
	if nums[1] >= 60 || nums[2] >= FramesPerSecond {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return (nums[0]*60+nums[1])*FramesPerSecond + nums[2], nil
}

// tokenize splits a line on whitespace, honouring double quotes.
func tokenize(line string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case !quoted && (r == ' ' || r == '\t'):
			if started {
				fields = append(fields, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if started {
		fields = append(fields, current.String())
	}
	if len(fields) == 0 {
		return nil, errors.New("empty command")
	}
	return fields, nil
}
