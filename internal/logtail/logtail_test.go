package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeLog(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bgremover.log")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRead(t *testing.T) {
	var all []string
	for i := 1; i <= 10; i++ {
		all = append(all, fmt.Sprintf("Line %d", i))
	}
	path := writeLog(t, all)

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"zero", 0, nil},
		{"last three", 3, []string{"Line 8", "Line 9", "Line 10"}},
		{"exactly all", 10, all},
		{"more than file", 50, all},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(path, tt.maxLines, nil)
			if err != nil {
				t.Fatalf("Read returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("Read = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 5, nil)
	if err != nil || got != nil {
		t.Fatalf("Read = %v, %v; want nil, nil", got, err)
	}
}

func TestRead_MinLevel(t *testing.T) {
	path := writeLog(t, []string{
		"2026-10-14T10:00:00.000Z\tDEBUG\tsession transition\t{\"to\": \"loading\"}",
		"2026-10-14T10:00:01.000Z\tINFO\tbackground removed",
		"2026-10-14T10:00:02.000Z\tWARN\tbackground removal failed\t{\"error\": \"x\"}",
		"2026-10-14T10:00:03.000Z\tERROR\tsave failed",
		"plain continuation line",
	})

	keep, err := MinLevel("warn")
	if err != nil {
		t.Fatalf("MinLevel returned error: %v", err)
	}
	got, err := Read(path, 10, keep)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Read kept %d lines, want 3: %v", len(got), got)
	}
	if !strings.Contains(got[0], "WARN") || !strings.Contains(got[1], "ERROR") || got[2] != "plain continuation line" {
		t.Fatalf("Read = %v", got)
	}
}

func TestMinLevel_RejectsUnknown(t *testing.T) {
	if _, err := MinLevel("loud"); err == nil {
		t.Fatalf("MinLevel accepted an unknown level")
	}
}
