package pluginapi

import (
	"sync"
	"time"
)

// State is the lifecycle state of one plugin instance.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateRunning       State = "running"
	StateStopped       State = "stopped"
	StateFailed        State = "failed"
)

// StateMachine guards and records lifecycle transitions for one plugin
// instance. Every instance owns its machine, so any number of plugins can
// coexist in one process. All methods are safe for concurrent use and
// transitions are serialized under one mutex.
type StateMachine struct {
	mu        sync.Mutex
	state     State
	enteredAt time.Time
	cause     error
	recovery  bool
	now       func() time.Time
}

// NewStateMachine returns a machine in the Uninitialized state.
func NewStateMachine() *StateMachine {
	m := &StateMachine{state: StateUninitialized, now: time.Now}
	m.enteredAt = m.now()
	return m
}

// AllowRecovery permits initialize to leave the Failed state.
func (m *StateMachine) AllowRecovery() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovery = true
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the fault that moved the machine to Failed, or nil.
func (m *StateMachine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cause
}

// Since returns when the current state was entered.
func (m *StateMachine) Since() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enteredAt
}

// Guard reports whether action may run in the current state. Read-only
// actions are valid in every state, including Failed. Rejections carry the
// InvalidState kind and never change the state.
func (m *StateMachine) Guard(action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch action {
	case ActionGetInfo, ActionGetHealth, ActionGetStatus,
		ActionGetTriggerConfig, ActionGetActionConfig:
		return nil
	case ActionInitialize:
		if m.state == StateUninitialized || m.state == StateStopped {
			return nil
		}
		if m.state == StateFailed && m.recovery {
			return nil
		}
	case ActionStart:
		if m.state == StateInitialized {
			return nil
		}
	case ActionStop:
		// stop is idempotent: re-stopping a stopped plugin is a no-op success.
		if m.state == StateRunning || m.state == StateInitialized || m.state == StateStopped {
			return nil
		}
	case ActionDetectTriggers, ActionExecuteAction:
		if m.state == StateRunning {
			return nil
		}
	default:
		return Errorf(UnsupportedAction, "unsupported action %q", action)
	}
	return Errorf(InvalidState, "cannot %s while %s", action, m.state)
}

// Advance commits the post-state of a successfully handled action. Calls
// must follow a passing Guard for the same action.
func (m *StateMachine) Advance(action string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch action {
	case ActionInitialize:
		m.set(StateInitialized)
	case ActionStart:
		m.set(StateRunning)
	case ActionStop:
		if m.state != StateStopped {
			m.set(StateStopped)
		}
	}
}

// Fail moves the machine to Failed from any state and records the cause.
// Failed absorbs everything except initialize with recovery enabled.
func (m *StateMachine) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateFailed
	m.enteredAt = m.now()
	m.cause = err
}

func (m *StateMachine) set(s State) {
	m.state = s
	m.enteredAt = m.now()
	m.cause = nil
}
