package plugin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

// termGrace is how long a subprocess gets to exit after SIGTERM (or a
// stdin close) before it is killed.
const termGrace = 3 * time.Second

type ExecConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
	Env     []string `mapstructure:"env"`
	Dir     string   `mapstructure:"dir"`
}

type exitStatus struct {
	code int
	err  error
}

// Process talks to a plugin subprocess over line-delimited JSON on
// stdin/stdout. The subprocess is spawned lazily on the first call and
// kept alive between calls so the plugin retains its lifecycle state.
// Calls are serialized; the protocol allows one request in flight.
type Process struct {
	id     string
	config ExecConfig
	logger zerolog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	stderr *os.File

	// lines carries decoded response lines, readerClosed reports that
	// stdout hit EOF, done aborts a reader blocked on delivery. exited
	// is buffered so the wait goroutine never blocks.
	lines        chan []byte
	readerClosed chan struct{}
	done         chan struct{}
	exited       chan exitStatus
}

var _ Transport = &Process{}

func NewProcess(id string, config pluginapi.Config, logger zerolog.Logger) (*Process, error) {
	var cfg ExecConfig
	if err := mapstructure.Decode(config, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode exec config: %w", err)
	}

	if cfg.Command == "" {
		return nil, fmt.Errorf("command is required for exec plugin")
	}

	return &Process{
		id:     id,
		config: cfg,
		logger: logger.With().Str("plugin", id).Logger(),
	}, nil
}

func (p *Process) Call(ctx context.Context, req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureStartedLocked(); err != nil {
		return nil, err
	}

	payload, err := pluginapi.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	payload = append(payload, '\n')

	start := time.Now()
	if _, err := p.stdin.Write(payload); err != nil {
		status := p.reapLocked()
		p.resetLocked()
		return nil, &ProcessExitedError{Action: req.Action, ExitCode: status.code}
	}

	select {
	case line := <-p.lines:
		return pluginapi.DecodeResponse(line)
	case <-p.readerClosed:
		status := p.reapLocked()
		p.resetLocked()
		return nil, &ProcessExitedError{Action: req.Action, ExitCode: status.code}
	case <-ctx.Done():
		p.reapLocked()
		p.resetLocked()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Action: req.Action, After: time.Since(start).Round(time.Millisecond)}
		}
		return nil, ctx.Err()
	}
}

// Close asks the subprocess to exit by closing its stdin, which the
// protocol defines as the shutdown signal, and escalates to
// termination if it does not comply within the grace period.
func (p *Process) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		return nil
	}

	if err := p.stdin.Close(); err != nil {
		p.reapLocked()
		p.resetLocked()
		return nil
	}

	select {
	case <-p.exited:
	case <-time.After(termGrace):
		p.reapLocked()
	case <-ctx.Done():
		p.reapLocked()
	}
	p.resetLocked()
	return nil
}

func (p *Process) ensureStartedLocked() error {
	if p.cmd != nil {
		select {
		case status := <-p.exited:
			p.logger.Warn().Int("code", status.code).Msg("plugin process exited between calls")
			p.resetLocked()
		case <-p.readerClosed:
			p.logger.Warn().Msg("plugin closed its protocol stream")
			p.reapLocked()
			p.resetLocked()
		default:
			return nil
		}
	}
	return p.startLocked()
}

func (p *Process) startLocked() error {
	cmd := exec.Command(p.config.Command, p.config.Args...)
	if len(p.config.Env) > 0 {
		cmd.Env = append(os.Environ(), p.config.Env...)
	}
	cmd.Dir = p.config.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	// Plain pipes instead of StdoutPipe: Wait must not close the read
	// side while the reader is still draining a response.
	outR, outW, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		return fmt.Errorf("failed to start command: %w", err)
	}
	outW.Close()
	errW.Close()

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = outR
	p.stderr = errR
	p.lines = make(chan []byte)
	p.readerClosed = make(chan struct{})
	p.done = make(chan struct{})
	p.exited = make(chan exitStatus, 1)

	go p.readLines(outR, p.lines, p.readerClosed, p.done)
	go p.drainStderr(errR)
	go func(exited chan<- exitStatus) {
		err := cmd.Wait()
		exited <- exitStatus{code: exitCode(err), err: err}
	}(p.exited)

	p.logger.Debug().Int("pid", cmd.Process.Pid).Msg("plugin process started")
	return nil
}

func (p *Process) readLines(r io.Reader, lines chan<- []byte, closed chan<- struct{}, done <-chan struct{}) {
	defer close(closed)
	dec := pluginapi.NewStreamDecoder(r)
	for {
		line, err := dec.Next()
		if err != nil {
			return
		}
		buf := make([]byte, len(line))
		copy(buf, line)
		select {
		case lines <- buf:
		case <-done:
			return
		}
	}
}

func (p *Process) drainStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), pluginapi.MaxLineBytes)
	for scanner.Scan() {
		p.logger.Debug().Str("stream", "stderr").Msg(scanner.Text())
	}
}

// reapLocked returns the exit status, terminating the subprocess first
// if it is still running. The reader is released before reaping.
func (p *Process) reapLocked() exitStatus {
	p.stopReaderLocked()
	select {
	case status := <-p.exited:
		return status
	default:
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err == nil {
		select {
		case status := <-p.exited:
			return status
		case <-time.After(termGrace):
		}
	}
	_ = p.cmd.Process.Kill()
	return <-p.exited
}

func (p *Process) stopReaderLocked() {
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
}

// resetLocked closes every pipe end the host still holds so the reader
// and stderr goroutines unwind, then forgets the process. The next
// call spawns a fresh one.
func (p *Process) resetLocked() {
	p.stopReaderLocked()
	if p.stdin != nil {
		_ = p.stdin.Close()
	}
	if p.stdout != nil {
		_ = p.stdout.Close()
	}
	if p.stderr != nil {
		_ = p.stderr.Close()
	}
	p.cmd = nil
	p.stdin = nil
	p.stdout = nil
	p.stderr = nil
	p.lines = nil
	p.readerClosed = nil
	p.exited = nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
