package assembler

import (
	"context"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultExceptionBufferSize is how many failed deployments are remembered.
const DefaultExceptionBufferSize = 10

// DeploymentFailure is one remembered deployment failure.
type DeploymentFailure struct {
	AppID string    `json:"appId"`
	Path  string    `json:"path,omitempty"`
	RunID string    `json:"runId,omitempty"`
	Code  string    `json:"code"`
	Err   error     `json:"-"`
	At    time.Time `json:"at"`
}

// Message is the error text of the failure.
func (f DeploymentFailure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// ExceptionStore persists deployment failures outside the process.
type ExceptionStore interface {
	SaveDeploymentFailure(ctx context.Context, f DeploymentFailure) error
}

// DeploymentExceptionManager remembers the most recent deployment failures,
// keyed by application. It holds at most max entries; the oldest is evicted
// first. Every access is synchronized.
type DeploymentExceptionManager struct {
	mu       sync.Mutex
	max      int
	failures *orderedmap.OrderedMap[string, DeploymentFailure]
	last     *DeploymentFailure
}

func NewDeploymentExceptionManager(max int) *DeploymentExceptionManager {
	if max <= 0 {
		max = DefaultExceptionBufferSize
	}
	return &DeploymentExceptionManager{max: max, failures: orderedmap.New[string, DeploymentFailure]()}
}

// Save records a failure. A new failure of an application replaces its
// previous one and becomes the newest entry.
func (m *DeploymentExceptionManager) Save(f DeploymentFailure) {
	if f.At.IsZero() {
		f.At = time.Now().UTC()
	}
	if f.Code == "" {
		f.Code = Code(f.Err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures.Delete(f.AppID)
	m.failures.Set(f.AppID, f)
	for m.failures.Len() > m.max {
		m.failures.Delete(m.failures.Oldest().Key)
	}
	m.last = &f
}

// HasFailed reports whether any failure is remembered.
func (m *DeploymentExceptionManager) HasFailed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures.Len() > 0
}

// Last returns the most recent failure.
func (m *DeploymentExceptionManager) Last() (DeploymentFailure, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return DeploymentFailure{}, false
	}
	return *m.last, true
}

// Get returns the failure remembered for an application.
func (m *DeploymentExceptionManager) Get(appID string) (DeploymentFailure, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures.Get(appID)
}

// Clear forgets the failure of an application, typically after it was
// deployed successfully.
func (m *DeploymentExceptionManager) Clear(appID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures.Delete(appID)
	if m.last != nil && m.last.AppID == appID {
		m.last = nil
	}
}

// All lists remembered failures, oldest first.
func (m *DeploymentExceptionManager) All() []DeploymentFailure {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DeploymentFailure, 0, m.failures.Len())
	for pair := m.failures.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (m *DeploymentExceptionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures.Len()
}
