// Package logtail reads the end of the bgremover log file.
package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Filter reports whether a line should be kept.
type Filter func(line string) bool

// Read returns at most maxLines matching lines from the end of the file at
// path. A missing file yields no lines. A nil filter keeps everything.
func Read(path string, maxLines int, keep Filter) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count, idx := 0, 0
	for scanner.Scan() {
		line := scanner.Text()
		if keep != nil && !keep(line) {
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// MinLevel keeps zap console lines at or above level. Lines without a
// recognizable level field, such as wrapped stack output, are kept.
func MinLevel(level string) (Filter, error) {
	var floor zapcore.Level
	if err := floor.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	return func(line string) bool {
		lvl, ok := lineLevel(line)
		return !ok || lvl >= floor
	}, nil
}

// lineLevel extracts the level from "<time>\t<LEVEL>\t<message>...".
func lineLevel(line string) (zapcore.Level, bool) {
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) < 3 {
		return 0, false
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(fields[1]))); err != nil {
		return 0, false
	}
	return lvl, true
}
