package ui

import (
	"fmt"
	"net/url"
	"strings"
)

// truncateMiddle shortens a string by removing characters from the middle.
// File extensions survive when the value looks like a path.
func truncateMiddle(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 || value == "" {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}

	ellipsis := []rune("…")
	lastDot := strings.LastIndex(value, ".")
	lastSlash := strings.LastIndexAny(value, `/\`)
	if lastDot > lastSlash && lastDot > 0 {
		ext := []rune(value[lastDot:])
		if len(ext) < 10 && len(ext) < limit/2 {
			base := []rune(value[:lastDot])
			baseLimit := limit - len(ext) - len(ellipsis)
			if baseLimit > 0 && len(base) > baseLimit {
				prefix := baseLimit / 2
				suffix := baseLimit - prefix
				return string(base[:prefix]) + string(ellipsis) + string(base[len(base)-suffix:]) + string(ext)
			}
		}
	}

	keep := limit - len(ellipsis)
	prefix := keep / 2
	suffix := keep - prefix
	return string(runes[:prefix]) + string(ellipsis) + string(runes[len(runes)-suffix:])
}

// formatBytes renders a byte count for humans.
func formatBytes(n int) string {
	const (
		kib = 1024
		mib = 1024 * 1024
	)
	switch {
	case n >= mib:
		return fmt.Sprintf("%.2f MiB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1f KiB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// normalizeDroppedPath cleans up what terminals paste when a file is dragged
// onto them: surrounding quotes, file:// URLs and backslash-escaped spaces.
func normalizeDroppedPath(raw string) string {
	p := strings.TrimSpace(raw)
	if len(p) >= 2 {
		if (p[0] == '\'' && p[len(p)-1] == '\'') || (p[0] == '"' && p[len(p)-1] == '"') {
			p = p[1 : len(p)-1]
		}
	}
	if strings.HasPrefix(p, "file://") {
		if u, err := url.Parse(p); err == nil {
			p = u.Path
		}
	}
	if strings.Contains(p, `\ `) || strings.Contains(p, `\(`) || strings.Contains(p, `\)`) {
		r := strings.NewReplacer(`\ `, " ", `\(`, "(", `\)`, ")")
		p = r.Replace(p)
	}
	return strings.TrimSpace(p)
}
