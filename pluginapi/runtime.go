package pluginapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DemoModeEnv is the environment flag that switches plugins into demo mode.
const DemoModeEnv = "STAVILY_DEMO_MODE"

// DefaultFreshness is how long a healthy sub-check stays fresh before the
// health reporter degrades it.
const DefaultFreshness = 60 * time.Second

// Plugin is the base contract every plugin implements.
type Plugin interface {
	Info() PluginInfo
	Initialize(ctx context.Context, config Config) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TriggerPlugin detects conditions and emits trigger events.
type TriggerPlugin interface {
	Plugin
	DetectTriggers(ctx context.Context) ([]TriggerEvent, error)
	TriggerConfig() ConfigSchema
}

// ActionPlugin executes requested actions and reports results.
type ActionPlugin interface {
	Plugin
	ExecuteAction(ctx context.Context, req *ActionRequest) (*ActionResult, error)
	ActionConfig() ConfigSchema
}

// Runtime serves the host protocol for one plugin instance. It owns the
// instance's state machine and dispatches requests by capability and
// state. Dispatch is not reentrant; the host issues at most one request
// at a time per plugin and transports preserve that.
type Runtime struct {
	impl       Plugin
	trigger    TriggerPlugin
	action     ActionPlugin
	caps       map[Capability]bool
	machine    *StateMachine
	logger     zerolog.Logger
	freshness  time.Duration
	now        func() time.Time
	created    time.Time
	errorCount int
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithLogger routes runtime diagnostics to logger. Plugin handlers can
// recover it with zerolog.Ctx.
func WithLogger(logger *zerolog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = *logger
	}
}

// WithRecovery permits initialize to leave the Failed state.
func WithRecovery() RuntimeOption {
	return func(r *Runtime) {
		r.machine.AllowRecovery()
	}
}

// WithFreshness overrides the sub-check freshness threshold.
func WithFreshness(d time.Duration) RuntimeOption {
	return func(r *Runtime) {
		r.freshness = d
	}
}

// WithClock overrides the runtime's time source.
func WithClock(now func() time.Time) RuntimeOption {
	return func(r *Runtime) {
		r.now = now
	}
}

// NewRuntime builds a runtime for impl. The capability declared by
// Info().Type must be backed by the matching interface; a mismatch is a
// construction error, not a runtime surprise.
func NewRuntime(impl Plugin, opts ...RuntimeOption) (*Runtime, error) {
	if impl == nil {
		return nil, errors.New("plugin implementation is required")
	}

	r := &Runtime{
		impl:      impl,
		caps:      make(map[Capability]bool),
		machine:   NewStateMachine(),
		logger:    zerolog.Nop(),
		freshness: DefaultFreshness,
		now:       time.Now,
	}

	info := impl.Info()
	if info.ID == "" {
		return nil, errors.New("plugin info must carry an id")
	}

	switch Capability(info.Type) {
	case CapabilityTrigger:
		t, ok := impl.(TriggerPlugin)
		if !ok {
			return nil, fmt.Errorf("plugin %s declares type trigger but does not implement TriggerPlugin", info.ID)
		}
		r.trigger = t
		r.caps[CapabilityTrigger] = true
	case CapabilityAction:
		a, ok := impl.(ActionPlugin)
		if !ok {
			return nil, fmt.Errorf("plugin %s declares type action but does not implement ActionPlugin", info.ID)
		}
		r.action = a
		r.caps[CapabilityAction] = true
	default:
		return nil, fmt.Errorf("plugin %s: type must be %q or %q, got %q", info.ID, CapabilityTrigger, CapabilityAction, info.Type)
	}

	for _, opt := range opts {
		opt(r)
	}
	r.created = r.now()
	return r, nil
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	return r.machine.Current()
}

// Dispatch resolves one request. Resolution order is fixed: unknown action,
// then missing capability, then invalid state, then the handler. A rejected
// request never changes state.
func (r *Runtime) Dispatch(ctx context.Context, req *RequestEnvelope) *ResponseEnvelope {
	need, known := RequiredCapability(req.Action)
	if !known {
		return ErrorResponse(Errorf(UnsupportedAction, "unsupported action %q", req.Action))
	}
	if need != "" && !r.caps[need] {
		return ErrorResponse(Errorf(CapabilityMissing, "action %q requires the %s capability", req.Action, need))
	}
	if err := r.machine.Guard(req.Action); err != nil {
		return ErrorResponse(err)
	}

	resp, err := r.invoke(ctx, req)
	if err != nil {
		r.errorCount++
		// an unexpected fault inside a handler is unrecoverable for this
		// instance; taxonomy errors are recovered locally
		if KindOf(err) == InternalError && r.machine.Current() != StateFailed {
			r.machine.Fail(err)
		}
		r.logger.Debug().Str("action", req.Action).Err(err).Msg("request failed")
		return ErrorResponse(err)
	}
	return resp
}

func (r *Runtime) invoke(ctx context.Context, req *RequestEnvelope) (resp *ResponseEnvelope, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			perr := Errorf(InternalError, "plugin panic: %v", rec)
			r.machine.Fail(perr)
			r.logger.Error().Str("action", req.Action).Interface("panic", rec).Msg("plugin handler panicked")
			resp, err = nil, perr
		}
	}()

	// in-process plugins keep the caller's context logger
	if r.logger.GetLevel() != zerolog.Disabled {
		ctx = r.logger.WithContext(ctx)
	}

	switch req.Action {
	case ActionGetInfo:
		return SuccessResponse(r.impl.Info())
	case ActionGetStatus:
		return SuccessResponse(r.status())
	case ActionGetHealth:
		return SuccessResponse(r.health(ctx))
	case ActionInitialize:
		if err := r.impl.Initialize(ctx, req.Config); err != nil {
			return nil, err
		}
		r.machine.Advance(ActionInitialize)
		return SuccessResponse(r.status())
	case ActionStart:
		if err := r.impl.Start(ctx); err != nil {
			return nil, err
		}
		r.machine.Advance(ActionStart)
		return SuccessResponse(r.status())
	case ActionStop:
		if r.machine.Current() == StateStopped {
			return SuccessResponse(r.status())
		}
		if err := r.impl.Stop(ctx); err != nil {
			return nil, err
		}
		r.machine.Advance(ActionStop)
		return SuccessResponse(r.status())
	case ActionDetectTriggers:
		events, err := r.trigger.DetectTriggers(ctx)
		if err != nil {
			return nil, err
		}
		if events == nil {
			events = []TriggerEvent{}
		}
		return SuccessResponse(events)
	case ActionGetTriggerConfig:
		return SuccessResponse(r.trigger.TriggerConfig())
	case ActionExecuteAction:
		if req.Request == nil {
			return nil, NewError(ProtocolError, "execute_action requires a request payload")
		}
		started := r.now()
		result, err := r.action.ExecuteAction(ctx, req.Request)
		if err != nil {
			return nil, err
		}
		if result == nil {
			return nil, NewError(InternalError, "plugin returned no action result")
		}
		result.ID = req.Request.ID
		if result.StartedAt.IsZero() {
			result.StartedAt = started
		}
		if result.CompletedAt.IsZero() {
			result.CompletedAt = r.now()
		}
		if result.Duration == 0 {
			result.Duration = result.CompletedAt.Sub(result.StartedAt).Seconds()
		}
		return SuccessResponse(result)
	case ActionGetActionConfig:
		return SuccessResponse(r.action.ActionConfig())
	}
	return nil, Errorf(UnsupportedAction, "unsupported action %q", req.Action)
}

func (r *Runtime) status() StatusReport {
	return StatusReport{
		State:  r.machine.Current(),
		Uptime: r.now().Sub(r.created).Seconds(),
	}
}

// health assembles the report get_health returns. It must succeed in every
// state, so a misbehaving health checker is folded into the report instead
// of propagated.
func (r *Runtime) health(ctx context.Context) HealthReport {
	now := r.now()
	report := HealthReport{
		Checks:     r.collectChecks(ctx, now),
		LastCheck:  now,
		Uptime:     now.Sub(r.created).Seconds(),
		ErrorCount: r.errorCount,
	}
	report.Status = AggregateHealth(report.Checks, now, r.freshness)

	switch state := r.machine.Current(); state {
	case StateFailed:
		report.Status = HealthUnhealthy
		if err := r.machine.Err(); err != nil {
			report.Message = err.Error()
		}
	case StateUninitialized, StateStopped:
		if report.Status == HealthHealthy {
			report.Status = HealthDegraded
		}
		report.Message = "plugin is " + string(state)
	}
	if report.Message == "" {
		report.Message = "plugin is " + string(report.Status)
	}
	return report
}

func (r *Runtime) collectChecks(ctx context.Context, now time.Time) (checks map[string]CheckResult) {
	hc, ok := r.impl.(HealthChecker)
	if !ok {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			checks = map[string]CheckResult{
				"health_checker": {Status: HealthUnhealthy, Message: fmt.Sprint(rec), ObservedAt: now},
			}
		}
	}()
	return hc.HealthChecks(ctx)
}

// Serve runs the protocol loop: one request line in, one response line out,
// until the stream ends, a blank line arrives, or ctx is done. Malformed
// lines produce a ProtocolError response and the loop continues.
func (r *Runtime) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	dec := NewStreamDecoder(in)
	w := bufio.NewWriter(out)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}

		var resp *ResponseEnvelope
		req, derr := DecodeRequest(line)
		if derr != nil {
			resp = ErrorResponse(derr)
		} else {
			resp = r.Dispatch(ctx, req)
		}

		encoded, eerr := EncodeResponse(resp)
		if eerr != nil {
			encoded, _ = EncodeResponse(ErrorResponse(eerr))
		}
		if _, err := w.Write(encoded); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush response: %w", err)
		}
	}
}

// DemoMode reports whether the demo mode environment flag is on. It
// defaults to on, so reference plugins simulate side effects unless
// explicitly told otherwise.
func DemoMode() bool {
	v, ok := os.LookupEnv(DemoModeEnv)
	if !ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
