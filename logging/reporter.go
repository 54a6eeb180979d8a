package logging

import (
	"fmt"
	"log"

	"houses_scraper/models"
)

// LogFunc receives progress and diagnostics from the scraping components.
type LogFunc func(level models.LogLevel, source, message string)

// NoOp discards everything.
var NoOp LogFunc = func(level models.LogLevel, source, message string) {}

// ToLogger formats entries onto l as "[level] source: message".
func ToLogger(l *log.Logger) LogFunc {
	return func(level models.LogLevel, source, message string) {
		l.Output(2, fmt.Sprintf("[%s] %s: %s", level, source, message))
	}
}

// Tee fans one entry out to every non-nil LogFunc.
func Tee(fns ...LogFunc) LogFunc {
	return func(level models.LogLevel, source, message string) {
		for _, fn := range fns {
			if fn != nil {
				fn(level, source, message)
			}
		}
	}
}

// MinLevel drops entries below min.
func MinLevel(min models.LogLevel, fn LogFunc) LogFunc {
	threshold := levelRank[min]
	return func(level models.LogLevel, source, message string) {
		if levelRank[level] >= threshold {
			fn(level, source, message)
		}
	}
}

var levelRank = map[models.LogLevel]int{
	models.LogLevelDebug: 0,
	models.LogLevelInfo:  1,
	models.LogLevelWarn:  2,
	models.LogLevelError: 3,
}

// Logf is a printf-style convenience over a LogFunc.
func (fn LogFunc) Logf(level models.LogLevel, source, format string, args ...any) {
	if fn == nil {
		return
	}
	fn(level, source, fmt.Sprintf(format, args...))
}
