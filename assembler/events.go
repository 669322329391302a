package assembler

import (
	"context"
	"time"
)

// EventType names a deployment lifecycle transition.
type EventType string

const (
	EventContainerSystemCreated EventType = "container_system.created"
	EventAppCreated             EventType = "application.created"
	EventAppFailed              EventType = "application.failed"
	EventAppDestroyed           EventType = "application.destroyed"
)

// Event is published to listeners after a lifecycle transition.
type Event struct {
	Type        EventType     `json:"type"`
	AppID       string        `json:"appId,omitempty"`
	RunID       string        `json:"runId,omitempty"`
	Deployments []string      `json:"deployments,omitempty"`
	Warnings    int           `json:"warnings,omitempty"`
	Code        string        `json:"code,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	At          time.Time     `json:"at"`
}

// Listener observes deployment lifecycle events. Listeners run
// synchronously on the assembling goroutine after the assembler lock is
// released, so they may query the Assembler.
type Listener interface {
	DeploymentEvent(ctx context.Context, e Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, e Event)

func (f ListenerFunc) DeploymentEvent(ctx context.Context, e Event) { f(ctx, e) }

// NameLedger records which deployment owns an external name across every
// node sharing it. Claim returns the owner after the call: deploymentID
// when the claim succeeded, the previous owner otherwise.
type NameLedger interface {
	Claim(ctx context.Context, name, deploymentID string) (owner string, err error)
	Release(ctx context.Context, name, deploymentID string) error
}
