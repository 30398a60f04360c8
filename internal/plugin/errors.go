package plugin

import (
	"errors"
	"fmt"
	"time"

	"github.com/Stavily/06-Plugins/pluginapi"
)

// TimeoutError reports a call that exceeded its deadline. The subprocess
// was terminated to get back to a known state; the next call respawns it.
type TimeoutError struct {
	Action string
	After  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("plugin call %s timed out after %s", e.Action, e.After.Round(time.Millisecond))
}

func (e *TimeoutError) Kind() pluginapi.ErrorKind {
	return pluginapi.TimeoutError
}

// ProcessExitedError reports a subprocess that exited before answering an
// in-flight request.
type ProcessExitedError struct {
	Action   string
	ExitCode int
}

func (e *ProcessExitedError) Error() string {
	return fmt.Sprintf("plugin process exited with code %d before answering %s", e.ExitCode, e.Action)
}

func (e *ProcessExitedError) Kind() pluginapi.ErrorKind {
	return pluginapi.ProcessExitedError
}

type kinder interface {
	Kind() pluginapi.ErrorKind
}

// ErrorInfoFor renders any call failure as a wire error payload, keeping
// the error kind when one is carried.
func ErrorInfoFor(err error) *pluginapi.ErrorInfo {
	var pe *pluginapi.Error
	if errors.As(err, &pe) {
		return pe.Info()
	}
	var k kinder
	if errors.As(err, &k) {
		return &pluginapi.ErrorInfo{Kind: k.Kind(), Message: err.Error()}
	}
	return &pluginapi.ErrorInfo{Kind: pluginapi.InternalError, Message: err.Error()}
}
