// Package diag carries soft assembly diagnostics: declarations that are
// valid but did not apply to anything.
package diag

import (
	"context"
	"log/slog"
	"sync"
)

// Warning codes.
const (
	CodeUnmatchedMethodRule     = "UNMATCHED_METHOD_RULE"
	CodeInterceptorMethodAbsent = "INTERCEPTOR_METHOD_NOT_FOUND"
	CodeUndeclaredInterceptor   = "UNDECLARED_INTERCEPTOR"
	CodeJndiNameCollision       = "JNDI_NAME_COLLISION"
	CodeJndiFormatColon         = "JNDI_FORMAT_COLON"
	CodeUnknownInterface        = "UNKNOWN_INTERFACE"
	CodeUnresolvedReference     = "UNRESOLVED_REFERENCE"
)

// Warning is one soft diagnostic.
type Warning struct {
	Kind     string `json:"kind"`
	Code     string `json:"code,omitempty"`
	Severity string `json:"severity,omitempty"` // error, warn, info
	Message  string `json:"message"`
	Op       string `json:"op,omitempty"`
	App      string `json:"app,omitempty"`
	Bean     string `json:"bean,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// Sink receives warnings.
type Sink func(Warning)

// Emit calls s if it is set.
func (s Sink) Emit(w Warning) {
	if s != nil {
		s(w)
	}
}

// Logging returns a sink that writes warnings to logger.
func Logging(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w Warning) {
		level := slog.LevelWarn
		switch w.Severity {
		case "error":
			level = slog.LevelError
		case "info":
			level = slog.LevelInfo
		}
		attrs := []any{slog.String("kind", w.Kind), slog.String("code", w.Code)}
		if w.App != "" {
			attrs = append(attrs, slog.String("app", w.App))
		}
		if w.Bean != "" {
			attrs = append(attrs, slog.String("bean", w.Bean))
		}
		if w.Op != "" {
			attrs = append(attrs, slog.String("op", w.Op))
		}
		logger.Log(context.Background(), level, w.Message, attrs...)
	}
}

// Tee fans a warning out to several sinks.
func Tee(sinks ...Sink) Sink {
	return func(w Warning) {
		for _, s := range sinks {
			s.Emit(w)
		}
	}
}

// Collector accumulates warnings. It is safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	warnings []Warning
}

// Sink returns a sink appending to c.
func (c *Collector) Sink() Sink {
	return func(w Warning) {
		c.mu.Lock()
		c.warnings = append(c.warnings, w)
		c.mu.Unlock()
	}
}

// Warnings returns a copy of everything collected so far.
func (c *Collector) Warnings() []Warning {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Warning(nil), c.warnings...)
}

// Codes returns the codes of everything collected so far.
func (c *Collector) Codes() []string {
	ws := c.Warnings()
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}
