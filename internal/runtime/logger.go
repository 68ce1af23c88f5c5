package runtime

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// DefaultLogger writes info-level text logs to stderr.
func DefaultLogger() *slog.Logger {
	return NewLogger("info", os.Stderr)
}

// NewLogger builds a text logger at the named level. Unknown levels fall back
// to info. Addresses inside string attributes are masked.
func NewLogger(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: redactAttr,
	}))
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	var s string
	switch a.Value.Kind() {
	case slog.KindString:
		s = a.Value.String()
	case slog.KindAny:
		err, ok := a.Value.Any().(error)
		if !ok || err == nil {
			return a
		}
		s = err.Error()
	default:
		return a
	}
	if !strings.Contains(s, "@") {
		return a
	}
	return slog.String(a.Key, emailPattern.ReplaceAllStringFunc(s, RedactEmail))
}

// RedactEmail keeps the first two characters of the local part and the domain.
func RedactEmail(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return addr
	}
	local := addr[:at]
	keep := 2
	if len(local) < keep {
		keep = len(local)
	}
	return local[:keep] + "***" + addr[at:]
}
