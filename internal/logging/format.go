package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ShortIDLength is the job id prefix printed on console lines.
const ShortIDLength = 8

const consoleTimeLayout = "2006-01-02 15:04:05.000"

// ShortJobID trims a job id to the prefix console lines carry, so it can be
// used to grep the log file.
func ShortJobID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > ShortIDLength {
		return id[:ShortIDLength]
	}
	return id
}

// fieldText renders one console field value. Job ids are shortened, workspace
// paths under $HOME are written with "~", and durations are rounded to the
// millisecond.
func fieldText(key string, v slog.Value) string {
	v = v.Resolve()
	switch key {
	case FieldJobID:
		return ShortJobID(plainText(v))
	case FieldWorkspace:
		return quoteIfNeeded(homeRelative(plainText(v)))
	}
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', 6, 64)
	default:
		return quoteIfNeeded(plainText(v))
	}
}

// plainText renders v unquoted; header fields use it.
func plainText(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return consoleTime(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// quoteIfNeeded quotes empty values and values that would break the
// one-field-per-line layout.
func quoteIfNeeded(s string) string {
	if s == "" || strings.TrimSpace(s) != s || strings.ContainsAny(s, "\"\n\r\t") {
		return strconv.Quote(s)
	}
	return s
}

func homeRelative(path string) string {
	if path == "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" || home == string(filepath.Separator) {
		return path
	}
	if path == home {
		return "~"
	}
	if rel, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~/" + filepath.ToSlash(rel)
	}
	return path
}

func consoleTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(consoleTimeLayout)
}
