package pluginapi

import (
	"errors"
	"testing"
)

// machineIn walks a fresh machine into the requested state.
func machineIn(t *testing.T, state State) *StateMachine {
	t.Helper()
	m := NewStateMachine()
	switch state {
	case StateUninitialized:
	case StateInitialized:
		m.Advance(ActionInitialize)
	case StateRunning:
		m.Advance(ActionInitialize)
		m.Advance(ActionStart)
	case StateStopped:
		m.Advance(ActionInitialize)
		m.Advance(ActionStart)
		m.Advance(ActionStop)
	case StateFailed:
		m.Fail(errors.New("induced fault"))
	}
	if got := m.Current(); got != state {
		t.Fatalf("setup: expected state %s, got %s", state, got)
	}
	return m
}

func TestStateMachineStartsUninitialized(t *testing.T) {
	m := NewStateMachine()
	if got := m.Current(); got != StateUninitialized {
		t.Errorf("expected uninitialized, got %s", got)
	}
}

func TestStateMachineGuard(t *testing.T) {
	tests := []struct {
		state  State
		action string
		ok     bool
	}{
		{StateUninitialized, ActionInitialize, true},
		{StateUninitialized, ActionStart, false},
		{StateUninitialized, ActionStop, false},
		{StateUninitialized, ActionDetectTriggers, false},
		{StateUninitialized, ActionExecuteAction, false},

		{StateInitialized, ActionStart, true},
		{StateInitialized, ActionStop, true},
		{StateInitialized, ActionInitialize, false},
		{StateInitialized, ActionDetectTriggers, false},

		{StateRunning, ActionStop, true},
		{StateRunning, ActionDetectTriggers, true},
		{StateRunning, ActionExecuteAction, true},
		{StateRunning, ActionInitialize, false},
		{StateRunning, ActionStart, false},

		{StateStopped, ActionInitialize, true},
		{StateStopped, ActionStop, true},
		{StateStopped, ActionStart, false},
		{StateStopped, ActionExecuteAction, false},

		{StateFailed, ActionInitialize, false},
		{StateFailed, ActionStart, false},
		{StateFailed, ActionStop, false},
		{StateFailed, ActionDetectTriggers, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state)+" "+tt.action, func(t *testing.T) {
			m := machineIn(t, tt.state)
			err := m.Guard(tt.action)
			if tt.ok && err != nil {
				t.Errorf("expected %s to be allowed, got %v", tt.action, err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatalf("expected %s to be rejected", tt.action)
				}
				if !IsKind(err, InvalidState) {
					t.Errorf("expected invalid_state, got %v", err)
				}
				if got := m.Current(); got != tt.state {
					t.Errorf("rejection changed state to %s", got)
				}
			}
		})
	}
}

func TestStateMachineReadOnlyAlwaysAllowed(t *testing.T) {
	readOnly := []string{
		ActionGetInfo, ActionGetHealth, ActionGetStatus,
		ActionGetTriggerConfig, ActionGetActionConfig,
	}
	states := []State{StateUninitialized, StateInitialized, StateRunning, StateStopped, StateFailed}

	for _, state := range states {
		for _, action := range readOnly {
			m := machineIn(t, state)
			if err := m.Guard(action); err != nil {
				t.Errorf("%s in %s: expected allowed, got %v", action, state, err)
			}
		}
	}
}

func TestStateMachineRestartCycle(t *testing.T) {
	m := NewStateMachine()
	steps := []struct {
		action string
		want   State
	}{
		{ActionInitialize, StateInitialized},
		{ActionStart, StateRunning},
		{ActionStop, StateStopped},
		{ActionInitialize, StateInitialized},
		{ActionStart, StateRunning},
	}

	for _, step := range steps {
		if err := m.Guard(step.action); err != nil {
			t.Fatalf("%s rejected: %v", step.action, err)
		}
		m.Advance(step.action)
		if got := m.Current(); got != step.want {
			t.Fatalf("after %s: expected %s, got %s", step.action, step.want, got)
		}
	}
}

func TestStateMachineStopIdempotent(t *testing.T) {
	m := machineIn(t, StateStopped)

	for i := 0; i < 2; i++ {
		if err := m.Guard(ActionStop); err != nil {
			t.Fatalf("stop #%d rejected: %v", i+1, err)
		}
		m.Advance(ActionStop)
		if got := m.Current(); got != StateStopped {
			t.Fatalf("stop #%d: expected stopped, got %s", i+1, got)
		}
	}
}

func TestStateMachineFailedAbsorbs(t *testing.T) {
	cause := errors.New("worker crashed")
	m := machineIn(t, StateRunning)
	m.Fail(cause)

	if got := m.Current(); got != StateFailed {
		t.Fatalf("expected failed, got %s", got)
	}
	if !errors.Is(m.Err(), cause) {
		t.Errorf("expected cause %v, got %v", cause, m.Err())
	}
	if err := m.Guard(ActionInitialize); !IsKind(err, InvalidState) {
		t.Errorf("expected initialize rejected without recovery, got %v", err)
	}
}

func TestStateMachineRecovery(t *testing.T) {
	m := machineIn(t, StateFailed)
	m.AllowRecovery()

	if err := m.Guard(ActionInitialize); err != nil {
		t.Fatalf("expected initialize allowed with recovery, got %v", err)
	}
	m.Advance(ActionInitialize)
	if got := m.Current(); got != StateInitialized {
		t.Errorf("expected initialized, got %s", got)
	}
	if m.Err() != nil {
		t.Errorf("expected cause cleared, got %v", m.Err())
	}
}

func TestStateMachineUnknownAction(t *testing.T) {
	m := NewStateMachine()
	if err := m.Guard("frobnicate"); !IsKind(err, UnsupportedAction) {
		t.Errorf("expected unsupported_action, got %v", err)
	}
}
