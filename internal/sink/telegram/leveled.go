package telegram

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"
)

var tokenPattern = regexp.MustCompile(`/bot[^/]+/`)

// leveledLogger routes retryablehttp's request logging into zap. Request
// URLs embed the bot token, so string values are scrubbed first.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...any) {
	l.s.Errorw(msg, scrub(keysAndValues)...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...any) {
	l.s.Infow(msg, scrub(keysAndValues)...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, scrub(keysAndValues)...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...any) {
	l.s.Warnw(msg, scrub(keysAndValues)...)
}

func scrub(keysAndValues []any) []any {
	out := make([]any, len(keysAndValues))
	for i, v := range keysAndValues {
		if i%2 == 0 {
			out[i] = v
			continue
		}

		switch v.(type) {
		case string, fmt.Stringer, error:
			out[i] = tokenPattern.ReplaceAllString(fmt.Sprint(v), "/bot<token>/")
		default:
			out[i] = v
		}
	}

	return out
}
