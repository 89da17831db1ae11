// File: onoff/manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package onoff

import (
	"errors"
	"sync"
)

var (
	// ErrNotActive is returned by Release when the service is not on.
	ErrNotActive = errors.New("onoff: service not active")
	// ErrNilTransitions is returned by Init when no transitions are given.
	ErrNilTransitions = errors.New("onoff: nil transitions")
)

// State of a Manager.
type State int

const (
	Off State = iota
	ToOn
	On
	ToOff
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case ToOn:
		return "to-on"
	case On:
		return "on"
	case ToOff:
		return "to-off"
	default:
		return "unknown"
	}
}

// NotifyFunc reports completion of a transition back to the manager.
// A nil error means the transition succeeded.
type NotifyFunc func(mgr *Manager, err error)

// ClientFunc is invoked once a client's request has been satisfied or has failed.
type ClientFunc func(mgr *Manager, err error)

// Transitions performs the service-specific start and stop work.
type Transitions interface {
	Start(mgr *Manager, notify NotifyFunc)
	Stop(mgr *Manager, notify NotifyFunc)
}

// Manager tracks clients of a single service.
type Manager struct {
	mu      sync.Mutex
	tr      Transitions
	state   State
	refs    int
	waiters []ClientFunc
}

// Init binds the manager to its transitions. It must be called before use.
func (m *Manager) Init(tr Transitions) error {
	if tr == nil {
		return ErrNilTransitions
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tr = tr
	m.state = Off
	m.refs = 0
	m.waiters = nil
	return nil
}

// State returns the current state and number of satisfied clients.
func (m *Manager) State() (State, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.refs
}

// Request asks for the service to be on. cb runs once it is, or once starting failed.
// cb may run before Request returns.
func (m *Manager) Request(cb ClientFunc) error {
	if cb == nil {
		cb = func(*Manager, error) {}
	}
	m.mu.Lock()
	switch m.state {
	case On:
		m.refs++
		m.mu.Unlock()
		cb(m, nil)
		return nil
	case ToOn, ToOff:
		m.waiters = append(m.waiters, cb)
		m.mu.Unlock()
		return nil
	default:
		m.waiters = append(m.waiters, cb)
		m.state = ToOn
		tr := m.tr
		m.mu.Unlock()
		tr.Start(m, m.startDone)
		return nil
	}
}

// Release drops one client reference; the last one turns the service off.
func (m *Manager) Release() error {
	m.mu.Lock()
	if m.state != On {
		m.mu.Unlock()
		return ErrNotActive
	}
	m.refs--
	if m.refs > 0 {
		m.mu.Unlock()
		return nil
	}
	m.state = ToOff
	tr := m.tr
	m.mu.Unlock()
	tr.Stop(m, m.stopDone)
	return nil
}

func (m *Manager) startDone(_ *Manager, err error) {
	m.mu.Lock()
	if m.state != ToOn {
		m.mu.Unlock()
		return
	}
	waiters := m.waiters
	m.waiters = nil
	if err != nil {
		// not sticky: the next request starts again
		m.state = Off
	} else {
		m.state = On
		m.refs += len(waiters)
	}
	m.mu.Unlock()

	for _, cb := range waiters {
		cb(m, err)
	}
}

func (m *Manager) stopDone(_ *Manager, err error) {
	m.mu.Lock()
	if m.state != ToOff {
		m.mu.Unlock()
		return
	}
	if err != nil {
		waiters := m.waiters
		m.waiters = nil
		m.state = Off
		m.mu.Unlock()
		for _, cb := range waiters {
			cb(m, err)
		}
		return
	}
	if len(m.waiters) == 0 {
		m.state = Off
		m.mu.Unlock()
		return
	}
	m.state = ToOn
	tr := m.tr
	m.mu.Unlock()
	tr.Start(m, m.startDone)
}
