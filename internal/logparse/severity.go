// Package logparse normalizes the many spellings of log severity into
// six canonical levels and maps numeric level schemes onto them.
package logparse

import (
	"regexp"
	"strings"
)

// severityPattern matches common severity tokens in log text.
var severityPattern = regexp.MustCompile(`(?i)\b(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL|CRITICAL)\b`)

// KnownLevels lists the canonical levels from least to most severe.
// Charts stack and legends render in this order.
var KnownLevels = []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// severityAliases covers the exact spellings seen across loggers,
// including the truncated forms some formatters emit.
var severityAliases = map[string]string{
	"TRACE": "TRACE", "TRAC": "TRACE", "TRC": "TRACE",
	"DEBUG": "DEBUG", "DEBU": "DEBUG", "DBG": "DEBUG", "DEB": "DEBUG",
	"INFO": "INFO", "INFORMATION": "INFO", "INF": "INFO",
	"WARN": "WARN", "WARNING": "WARN", "WRNG": "WARN", "WRN": "WARN",
	"ERROR": "ERROR", "ERRO": "ERROR", "ERR": "ERROR",
	"FATAL": "FATAL", "FATL": "FATAL", "FTL": "FATAL",
	"CRITICAL": "FATAL", "CRIT": "FATAL", "CRT": "FATAL",
	"PANIC": "FATAL", "PNC": "FATAL",
}

// severityByPrefix catches decorated variants like "ERROR:" or
// "WARNING(3)" that the alias table misses.
var severityByPrefix = map[string]string{
	"TRAC": "TRACE",
	"DEBU": "DEBUG",
	"INFO": "INFO",
	"WARN": "WARN",
	"ERRO": "ERROR",
	"FATA": "FATAL",
	"CRIT": "FATAL",
}

// NormalizeSeverity maps any spelling onto a canonical level. Anything
// unrecognized is INFO.
func NormalizeSeverity(severity string) string {
	s := strings.ToUpper(strings.TrimSpace(severity))
	if canon, ok := severityAliases[s]; ok {
		return canon
	}
	if len(s) >= 4 {
		if canon, ok := severityByPrefix[s[:4]]; ok {
			return canon
		}
	}
	return "INFO"
}

// LevelRank returns the position of a level in KnownLevels after
// normalization. Unknown levels rank as INFO.
func LevelRank(level string) int {
	canon := NormalizeSeverity(level)
	for i, l := range KnownLevels {
		if l == canon {
			return i
		}
	}
	return 2
}

// SeverityFromText finds a severity token anywhere in a message.
// Messages without one default to INFO.
func SeverityFromText(message string) string {
	if m := severityPattern.FindStringSubmatch(message); len(m) > 1 {
		return NormalizeSeverity(m[1])
	}
	return "INFO"
}

// SeverityFromPinoLevel maps pino/bunyan numeric levels onto names. Each
// named level owns the band up to the next one, so 35 is still INFO.
func SeverityFromPinoLevel(level int) string {
	switch {
	case level < 20:
		return "TRACE"
	case level < 30:
		return "DEBUG"
	case level < 40:
		return "INFO"
	case level < 50:
		return "WARN"
	case level < 60:
		return "ERROR"
	default:
		return "FATAL"
	}
}
