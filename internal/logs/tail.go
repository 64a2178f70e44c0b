package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultPoll is how often Follow checks for new lines.
const DefaultPoll = 250 * time.Millisecond

type TailOptions struct {
	// Limit is the number of trailing lines to return.
	Limit int
	// Match, when set, keeps only lines containing it.
	Match string
}

type TailResult struct {
	Lines []string
	// Offset is the end of the file at read time; pass it to Follow.
	Offset int64
}

// Last returns the final opts.Limit matching lines of path. A missing file
// yields an empty result.
func Last(path string, opts TailOptions) (TailResult, error) {
	var result TailResult

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return result, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}
	if opts.Limit <= 0 {
		result.Offset = info.Size()
		return result, nil
	}

	ring := make([]string, opts.Limit)
	count, idx := 0, 0
	offset, err := scan(file, func(line string) {
		if !matches(line, opts.Match) {
			return
		}
		ring[idx] = line
		idx = (idx + 1) % opts.Limit
		if count < opts.Limit {
			count++
		}
	})
	if err != nil {
		return result, err
	}

	result.Offset = offset
	result.Lines = make([]string, count)
	if count == opts.Limit {
		for i := 0; i < count; i++ {
			result.Lines[i] = ring[(idx+i)%opts.Limit]
		}
	} else {
		copy(result.Lines, ring[:count])
	}
	return result, nil
}

// Follow emits lines appended to path after offset until ctx is done. A
// file that shrinks (rotated or truncated) is read again from the start.
// Cancellation is the normal way to stop and returns nil.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, match string, emit func(string)) error {
	if poll <= 0 {
		poll = DefaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		next, err := readFrom(path, offset, match, emit)
		if err != nil {
			return err
		}
		offset = next

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func readFrom(path string, offset int64, match string, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		offset = 0
	}
	if info.Size() == offset {
		return offset, nil
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	return scan(file, func(line string) {
		if matches(line, match) {
			emit(line)
		}
	})
}

// scan feeds each line of file from its current position to fn and returns
// the resulting offset.
func scan(file *os.File, fn func(string)) (int64, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	return offset, nil
}

func matches(line, match string) bool {
	return match == "" || strings.Contains(line, match)
}
