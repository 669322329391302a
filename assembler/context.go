package assembler

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/strogmv/assembler/assembler/diag"
	"github.com/strogmv/assembler/assembler/info"
)

// AssemblyContext carries the state of one assembly operation through the
// call graph. It is created per CreateApplication or DestroyApplication call
// and never shared between operations.
type AssemblyContext struct {
	RunID   string
	AppID   string
	Options *info.Options
	Logger  *slog.Logger
	Started time.Time

	warnings diag.Collector
	sink     diag.Sink
}

func newAssemblyContext(appID string, opts *info.Options, logger *slog.Logger, upstream diag.Sink) *AssemblyContext {
	ac := &AssemblyContext{
		RunID:   uuid.NewString(),
		AppID:   appID,
		Options: opts,
		Started: time.Now(),
	}
	ac.Logger = logger.With(slog.String("run_id", ac.RunID), slog.String("app", appID))
	collect := ac.warnings.Sink()
	ac.sink = func(w diag.Warning) {
		if w.App == "" {
			w.App = appID
		}
		collect(w)
		upstream.Emit(w)
	}
	return ac
}

// Warn is the sink engine builders report soft failures to.
func (ac *AssemblyContext) Warn() diag.Sink { return ac.sink }

// Warnings returns everything reported during the operation.
func (ac *AssemblyContext) Warnings() []diag.Warning { return ac.warnings.Warnings() }

// Elapsed is the time since the operation started.
func (ac *AssemblyContext) Elapsed() time.Duration { return time.Since(ac.Started) }
