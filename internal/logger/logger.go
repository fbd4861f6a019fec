package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	appCtx "github.com/baechuer/tokenauth/internal/pkg/context"
)

const serviceName = "tokenauth"

// Logger is the process-wide logger. It discards everything until Init runs,
// which keeps package tests quiet.
var Logger = zerolog.Nop()

type Options struct {
	Level  zerolog.Level
	Format string // "json" or "console"
}

// OptionsFromEnv reads LOG_LEVEL and LOG_FORMAT. Unknown levels fall back to
// info, unknown formats to console.
func OptionsFromEnv() Options {
	opts := Options{Level: zerolog.InfoLevel, Format: "console"}

	if lvl, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && lvl != zerolog.NoLevel {
		opts.Level = lvl
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		opts.Format = "json"
	}
	return opts
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) zerolog.Logger {
	if opts.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(opts.Level).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter replaces both Logger and zerolog's global logger.
func InitWithWriter(w io.Writer) {
	Logger = New(w, OptionsFromEnv())
	zlog.Logger = Logger
}

// WithCtx returns Logger annotated with the request id carried by ctx.
func WithCtx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if rid, ok := appCtx.RequestIDFrom(ctx); ok {
		l = l.With().Str("request_id", rid).Logger()
	}
	return &l
}
