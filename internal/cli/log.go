package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger builds the CLI logger: level-filtered, writing to w with
// sub-second timestamps so the per-stage lines of a long analysis run
// can be read as a timeline.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times a single pipeline stage from construction to done.
// One stage, one goroutine; it is not shared across workers.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress starts timing a stage. Create it immediately before the
// stage begins so the elapsed figure covers only that stage.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done reports the stage as finished with its wall time as a structured
// field, e.g. `Built street network elapsed=1.234s`.
func (p *progress) done(msg string) {
	p.logger.Info(msg, "elapsed", time.Since(p.start).Round(time.Millisecond))
}

// ctxKey keeps this package's context keys from colliding with other
// packages' values.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger attaches l to the context so pipeline callbacks deep in a
// run can report per-origin progress without plumbing a logger argument.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, falling back to
// log.Default() so a command never runs without one.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
