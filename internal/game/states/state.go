// Package states drives the hunt: one active State, swapped by a Manager
// between frames.
package states

import "go.uber.org/zap"

// State is one phase of the game (hunting, full).
type State interface {
	Enter() error
	Exit() error
	// Update runs once per frame with the frame time in seconds.
	Update(dt float64) error
	Name() string
}

// Manager owns the active state. Changes requested during a frame take
// effect at the start of the next Update.
type Manager struct {
	current State
	next    State
	log     *zap.Logger
}

// NewManager creates a manager with no active state. A nil log is replaced
// by a no-op logger.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{log: log}
}

// Current returns the active state, or nil before the first Update.
func (m *Manager) Current() State {
	return m.current
}

// Change requests a switch to next.
func (m *Manager) Change(next State) {
	m.next = next
}

// Update applies pending changes, then updates the active state.
func (m *Manager) Update(dt float64) error {
	if err := m.transition(); err != nil {
		return err
	}
	if m.current == nil {
		return nil
	}
	return m.current.Update(dt)
}

func (m *Manager) transition() error {
	for m.next != nil {
		from := "none"
		if m.current != nil {
			from = m.current.Name()
			if err := m.current.Exit(); err != nil {
				return err
			}
		}
		m.current, m.next = m.next, nil
		m.log.Debug("state changed", zap.String("from", from), zap.String("to", m.current.Name()))
		// Enter may request another change.
		if err := m.current.Enter(); err != nil {
			return err
		}
	}
	return nil
}
