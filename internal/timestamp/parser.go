package timestamp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result holds the outcome of scanning a log line for a leading timestamp.
// Remaining is the text after the timestamp, or the original text when no
// timestamp was found.
type Result struct {
	Found     bool
	Timestamp time.Time
	Remaining string
}

// Parser extracts timestamps from raw log text and from JSON field values.
type Parser struct{}

// NewParser creates a timestamp parser.
func NewParser() *Parser { return &Parser{} }

var (
	isoPattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d{1,9})?(?:Z|[+-]\d{2}:?\d{2})?`)
	syslogPattern   = regexp.MustCompile(`^[A-Z][a-z]{2} {1,2}\d{1,2} \d{2}:\d{2}:\d{2}`)
	timeOnlyPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(?:[.,]\d{1,9})?`)

	severityPrefix = regexp.MustCompile(`^\[?(?:TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL|CRITICAL)\]?[:\- ]+`)
)

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseFromText scans the start of a log line for a timestamp in a known
// format (ISO 8601, syslog, bare time of day) and returns it together with
// the rest of the line.
func (p *Parser) ParseFromText(text string) Result {
	if m := isoPattern.FindString(text); m != "" {
		if ts, ok := parseISO(m); ok {
			return found(ts, text, len(m))
		}
	}
	if m := syslogPattern.FindString(text); m != "" {
		if ts, ok := parseSyslog(m); ok {
			return found(ts, text, len(m))
		}
	}
	if m := timeOnlyPattern.FindString(text); m != "" {
		if ts, ok := parseTimeOnly(m); ok {
			return found(ts, text, len(m))
		}
	}
	return Result{Remaining: text}
}

func found(ts time.Time, text string, matched int) Result {
	return Result{
		Found:     true,
		Timestamp: ts,
		Remaining: strings.TrimLeft(text[matched:], " \t"),
	}
}

func parseISO(s string) (time.Time, bool) {
	// International formats use a comma before fractional seconds.
	s = strings.Replace(s, ",", ".", 1)
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func parseSyslog(s string) (time.Time, bool) {
	ts, err := time.Parse("Jan _2 15:04:05", s)
	if err != nil {
		return time.Time{}, false
	}
	// Syslog timestamps carry no year; assume the current one.
	now := time.Now()
	return time.Date(now.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), 0, time.Local), true
}

func parseTimeOnly(s string) (time.Time, bool) {
	s = strings.Replace(s, ",", ".", 1)
	ts, err := time.Parse("15:04:05.999999999", s)
	if err != nil {
		return time.Time{}, false
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), time.Local), true
}

// ParseTimestamp converts a JSON field value to a time.Time. Strings are
// tried against the known text layouts; numbers are interpreted as unix
// epochs with the unit inferred from magnitude.
func (p *Parser) ParseTimestamp(value any) (time.Time, bool) {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if ts, ok := parseISO(s); ok {
			return ts, true
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return parseUnixTimestamp(n)
		}
		return time.Time{}, false
	case float64:
		return parseUnixTimestamp(int64(v))
	case int:
		return parseUnixTimestamp(int64(v))
	case int64:
		return parseUnixTimestamp(v)
	case uint64:
		return parseUnixTimestamp(int64(v))
	default:
		return time.Time{}, false
	}
}

// parseUnixTimestamp infers the epoch unit from the magnitude of n.
// Each unit covers epochs through the year 5138 before the next unit
// takes over, so any plausible modern timestamp lands in the right era.
func parseUnixTimestamp(n int64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	switch {
	case n < 100_000_000_000:
		return time.Unix(n, 0), true
	case n < 100_000_000_000_000:
		return time.UnixMilli(n), true
	case n < 100_000_000_000_000_000:
		return time.UnixMicro(n), true
	default:
		return time.Unix(0, n), true
	}
}

// ExtractLogMessage strips a leading timestamp and severity token from a
// log line, leaving the human message. Falls back to the original line when
// stripping would leave nothing.
func (p *Parser) ExtractLogMessage(line string) string {
	text := line
	if res := p.ParseFromText(text); res.Found {
		text = res.Remaining
	}
	text = strings.TrimSpace(text)
	if m := severityPrefix.FindString(text); m != "" {
		text = strings.TrimSpace(text[len(m):])
	}
	if text == "" {
		return strings.TrimSpace(line)
	}
	return text
}
