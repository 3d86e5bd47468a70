package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps that filters
// messages below level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// timer logs completion of an operation with its elapsed duration.
// It is not safe for concurrent use.
type timer struct {
	logger *log.Logger
	start  time.Time
}

func newTimer(l *log.Logger) *timer {
	return &timer{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time rounded to the millisecond,
// e.g. "Wrote board.nc (12ms)".
func (t *timer) done(msg string) {
	t.logger.Infof("%s (%s)", msg, time.Since(t.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context carrying l.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
