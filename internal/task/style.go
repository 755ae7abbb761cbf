package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StylePrompt joins the active tags with ", " and appends custom text as
// "tags — custom".
func StylePrompt(tags []string, custom string) string {
	clean := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			clean = append(clean, t)
		}
	}
	joined := strings.Join(clean, ", ")
	custom = strings.TrimSpace(custom)
	switch {
	case joined != "" && custom != "":
		return joined + " — " + custom
	case joined != "":
		return joined
	default:
		return custom
	}
}

// Key formats a key from its root and mode, "" without a root.
func Key(root, mode string) string {
	if root == "" {
		return ""
	}
	if mode == "" {
		mode = "major"
	}
	return root + " " + mode
}

// SongParams summarizes key, tempo and meter, e.g. "C major, 120 BPM, 4/4 time".
// The time signature only appears next to a key or tempo.
func SongParams(key string, bpm *int, timeSig string) string {
	var parts []string
	if key != "" {
		parts = append(parts, key)
	}
	if bpm != nil && *bpm > 0 {
		parts = append(parts, strconv.Itoa(*bpm)+" BPM")
	}
	if len(parts) > 0 {
		parts = append(parts, timeSig+" time")
	}
	return strings.Join(parts, ", ")
}

// SampleQuery is the prompt the backend's LM writes lyrics from.
func SampleQuery(style, params string) string {
	var parts []string
	for _, p := range []string{style, params} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FormatElapsed renders a running timer as "42s" or "1m 05s".
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	m, s := secs/60, secs%60
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
