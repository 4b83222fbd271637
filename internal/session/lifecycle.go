package session

import "github.com/stemsi/exstem-taker/internal/model"

// LifecycleMonitor turns the host's foreground/background stream into
// "left the app" edges. Only active → background counts; everything else,
// including inactive → background, is just recorded.
type LifecycleMonitor struct {
	last model.HostState
}

// NewLifecycleMonitor creates a monitor assuming the host is in the foreground,
// which is where the exam view is entered from.
func NewLifecycleMonitor() *LifecycleMonitor {
	return &LifecycleMonitor{last: model.HostActive}
}

// Observe records state and reports whether it completes an active → background edge.
func (m *LifecycleMonitor) Observe(state model.HostState) bool {
	left := m.last == model.HostActive && state == model.HostBackground
	m.last = state
	return left
}

// Current returns the last observed host state.
func (m *LifecycleMonitor) Current() model.HostState {
	return m.last
}

// Reset forgets history and assumes the foreground again.
func (m *LifecycleMonitor) Reset() {
	m.last = model.HostActive
}
