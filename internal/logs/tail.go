package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const pollInterval = 250 * time.Millisecond

// TailOptions selects what Tail reads. A negative Offset reads the last
// Limit lines of the file; otherwise every line after Offset is returned.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	// Wait bounds how long a follow read polls for new lines.
	Wait time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path. A missing file yields no lines at offset 0.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		if opts.Limit <= 0 {
			result.Offset = info.Size()
		} else {
			result, err = scanFrom(path, 0, opts.Limit)
		}
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			offset = info.Size()
		}
		result, err = scanFrom(path, offset, 0)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait)
	}
	return result, nil
}

// scanFrom reads lines after offset. keep > 0 retains only the last keep
// lines in a ring buffer.
func scanFrom(path string, offset int64, keep int) (TailResult, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		lines []string
		next  int
	)
	for scanner.Scan() {
		if keep <= 0 || len(lines) < keep {
			lines = append(lines, scanner.Text())
			continue
		}
		lines[next] = scanner.Text()
		next = (next + 1) % keep
	}
	if err := scanner.Err(); err != nil {
		return TailResult{}, fmt.Errorf("read log file: %w", err)
	}
	if next > 0 {
		lines = append(lines[next:], lines[:next]...)
	}

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return TailResult{}, fmt.Errorf("determine log offset: %w", err)
	}
	return TailResult{Lines: lines, Offset: end}, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
		result, err := scanFrom(path, offset, 0)
		if err != nil {
			return TailResult{Offset: offset}, err
		}
		if len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, nil
		}
		offset = result.Offset
	}
}
