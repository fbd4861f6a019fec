package audit

import (
	"strings"

	"github.com/rs/zerolog"
)

// Logger writes structured audit lines for account events. It plugs into
// auth.Service through Record.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record logs one audit event. Failed events are logged at warn level.
func (l *Logger) Record(action string, fields map[string]string) {
	ev := l.log.Info()
	if fields["result"] == "error" {
		ev = l.log.Warn()
	}

	ev = ev.Str("action", action)
	for k, v := range fields {
		if k == "email" {
			v = MaskEmail(v)
		}
		ev = ev.Str(k, v)
	}
	ev.Msg("audit")
}

// MaskEmail partially masks email for privacy in logs
func MaskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	switch {
	case at < 0:
		return "***"
	case at < 2:
		return email[:1] + "***" + email[at:]
	default:
		return email[:2] + "***" + email[at:]
	}
}
