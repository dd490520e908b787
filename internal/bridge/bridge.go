// Package bridge supervises the trading agent worker process and
// multiplexes JSON-RPC 2.0 traffic over its stdio. One worker runs at a
// time: requests go down stdin as single lines, responses and
// notifications come back up stdout, and a watchdog restarts the worker
// with bounded backoff when it crashes.
package bridge

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultRequestTimeout = 31 * time.Second
	defaultSweepInterval  = 5 * time.Second
	defaultPollInterval   = 10 * time.Second
	defaultProbeInterval  = 30 * time.Second
	defaultSilenceWindow  = 90 * time.Second
	defaultMaxRestarts    = 3

	// maxLineSize bounds a single stdout line. Backtest summaries can
	// run large.
	maxLineSize = 4 * 1024 * 1024
)

// Option configures a Bridge.
type Option func(*Bridge)

// WithRequestTimeout sets the default per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.requestTimeout = d }
}

// WithSweepInterval sets how often expired requests are failed.
func WithSweepInterval(d time.Duration) Option {
	return func(b *Bridge) { b.sweepInterval = d }
}

// WithPollInterval sets how often the watchdog checks for worker exit.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) { b.pollInterval = d }
}

// WithProbeInterval sets how often the health prober pings the worker.
func WithProbeInterval(d time.Duration) Option {
	return func(b *Bridge) { b.probeInterval = d }
}

// WithSilenceWindow sets how long the worker may go without answering a
// probe before IsHealthy reports false.
func WithSilenceWindow(d time.Duration) Option {
	return func(b *Bridge) { b.silenceWindow = d }
}

// WithMaxRestarts sets the consecutive crash budget.
func WithMaxRestarts(n int) Option {
	return func(b *Bridge) { b.maxRestarts = n }
}

// Status is a point-in-time view of the bridge for callers that report
// worker state.
type Status struct {
	State   State
	Crashes int
	Healthy bool
	PID     int
	Uptime  time.Duration
	Pending int
}

// Bridge owns the worker process and all supervision loops. All
// methods are safe for concurrent use.
type Bridge struct {
	logger *log.Logger
	router *Router

	requestTimeout time.Duration
	sweepInterval  time.Duration
	pollInterval   time.Duration
	probeInterval  time.Duration
	silenceWindow  time.Duration
	maxRestarts    int

	sup     *Supervisor
	tracker *PendingTracker
	health  *healthRecord
	nextID  atomic.Uint64

	// backoffFn exists so tests can shrink restart delays.
	backoffFn func(n int) time.Duration

	procMu    sync.Mutex
	proc      *process
	spec      LaunchSpec
	startedAt time.Time

	stdinMu sync.Mutex
	stdin   io.WriteCloser

	lifeMu  sync.Mutex
	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

// New builds a bridge that dispatches worker notifications through
// router.
func New(router *Router, logger *log.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		logger:         logger,
		router:         router,
		requestTimeout: defaultRequestTimeout,
		sweepInterval:  defaultSweepInterval,
		pollInterval:   defaultPollInterval,
		probeInterval:  defaultProbeInterval,
		silenceWindow:  defaultSilenceWindow,
		maxRestarts:    defaultMaxRestarts,
		tracker:        NewPendingTracker(),
		health:         &healthRecord{},
		backoffFn:      Backoff,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.sup = NewSupervisor(b.maxRestarts)
	return b
}

// Spawn launches the worker described by spec and starts the
// supervision loops. It fails with ErrAlreadyRunning when a worker is
// already up. A crashed bridge whose restart budget is spent may be
// spawned again; that begins a fresh cycle.
func (b *Bridge) Spawn(spec LaunchSpec) error {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	switch b.sup.State() {
	case StateRunning, StateStarting:
		return ErrAlreadyRunning
	}

	// A crashed cycle leaves its sweeper and prober parked on the old
	// stop channel. Wind them down before starting fresh.
	if b.stopCh != nil && !b.stopped {
		close(b.stopCh)
		b.stopped = true
		b.wg.Wait()
	}

	b.sup.RecordStarting()
	proc, err := launch(spec)
	if err != nil {
		b.sup.RecordStopped()
		return err
	}

	b.installProcess(proc, spec)
	b.sup.RecordStarted()
	b.logger.Printf("agent process started (pid %d)", proc.pid())

	b.stopCh = make(chan struct{})
	b.stopped = false
	b.wg.Add(3)
	go b.runWatchdog(b.stopCh)
	go b.runSweeper(b.stopCh)
	go b.runProber(b.stopCh)
	return nil
}

// Kill stops the worker and all loops, failing every outstanding
// request. It is idempotent and returns nil when nothing is running.
func (b *Bridge) Kill() error {
	b.lifeMu.Lock()
	if !b.stopped && b.stopCh != nil {
		close(b.stopCh)
		b.stopped = true
	}
	b.lifeMu.Unlock()

	b.tracker.FailAll(ErrKilled)
	b.clearStdin()

	if proc := b.takeProcess(); proc != nil {
		proc.kill()
		b.logger.Printf("agent process killed (pid %d)", proc.pid())
	}
	b.wg.Wait()

	// A relaunch that raced the stop signal may have installed a fresh
	// process; reap it too.
	if proc := b.takeProcess(); proc != nil {
		proc.kill()
	}

	b.sup.RecordStopped()
	b.health.reset()
	return nil
}

func (b *Bridge) takeProcess() *process {
	b.procMu.Lock()
	defer b.procMu.Unlock()
	proc := b.proc
	b.proc = nil
	return proc
}

// SendRequest writes a request to the worker and blocks until its
// response arrives, the timeout passes, or ctx is cancelled. A zero
// timeout uses the bridge default. A response carrying a JSON-RPC error
// is returned as-is with a nil error; transport failures return a nil
// response.
func (b *Bridge) SendRequest(ctx context.Context, method string, params any, timeout time.Duration) (*Response, error) {
	if b.sup.State() != StateRunning {
		return nil, ErrNotRunning
	}
	if timeout <= 0 {
		timeout = b.requestTimeout
	}

	id := b.nextID.Add(1)
	line, err := encodeLine(newRequest(id, method, params))
	if err != nil {
		return nil, err
	}

	// Register before writing so a fast worker cannot answer an id the
	// tracker does not know yet.
	ch := b.tracker.Register(id, timeout)
	if err := b.writeLine(line); err != nil {
		b.tracker.Cancel(id)
		return nil, fmt.Errorf("write request %d: %w", id, err)
	}

	// The sweeper normally delivers timeouts. The backstop covers a
	// shutdown racing the state check above: the entry can be
	// registered just after the bulk fail, with no sweeper left to
	// expire it.
	backstop := time.NewTimer(timeout + time.Second)
	defer backstop.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.resp, nil
	case <-ctx.Done():
		b.tracker.Cancel(id)
		return nil, ctx.Err()
	case <-backstop.C:
		b.tracker.Cancel(id)
		return nil, &TimeoutError{ID: id}
	}
}

// SendNotification writes a fire-and-forget notification to the worker.
func (b *Bridge) SendNotification(method string, params any) error {
	if b.sup.State() != StateRunning {
		return ErrNotRunning
	}
	line, err := encodeLine(newNotification(method, params))
	if err != nil {
		return err
	}
	if err := b.writeLine(line); err != nil {
		return fmt.Errorf("write notification %q: %w", method, err)
	}
	return nil
}

// IsRunning reports whether a worker is currently up.
func (b *Bridge) IsRunning() bool {
	return b.sup.State() == StateRunning
}

// IsHealthy reports whether the worker is up and answered a probe
// within the silence window. A worker that has not been probed yet is
// healthy. Health never triggers a restart; only process exit does.
func (b *Bridge) IsHealthy() bool {
	if b.sup.State() != StateRunning {
		return false
	}
	return b.health.withinWindow(b.silenceWindow)
}

// Status returns a snapshot for status reporting.
func (b *Bridge) Status() Status {
	snap := b.sup.Snapshot()
	st := Status{
		State:   snap.State,
		Crashes: snap.Crashes,
		Healthy: b.IsHealthy(),
		Pending: b.tracker.Len(),
	}
	b.procMu.Lock()
	if b.proc != nil {
		st.PID = b.proc.pid()
		st.Uptime = time.Since(b.startedAt)
	}
	b.procMu.Unlock()
	return st
}

func (b *Bridge) installProcess(proc *process, spec LaunchSpec) {
	b.procMu.Lock()
	b.proc = proc
	b.spec = spec
	b.startedAt = time.Now()
	b.procMu.Unlock()

	b.stdinMu.Lock()
	b.stdin = proc.stdin
	b.stdinMu.Unlock()

	go b.readStdout(proc)
	go b.readStderr(proc)
}

func (b *Bridge) currentProcess() *process {
	b.procMu.Lock()
	defer b.procMu.Unlock()
	return b.proc
}

func (b *Bridge) clearStdin() {
	b.stdinMu.Lock()
	b.stdin = nil
	b.stdinMu.Unlock()
}

// writeLine writes one framed message under the stdin lock. Nothing
// else is done while holding it; callers wait on channels, never here.
func (b *Bridge) writeLine(line []byte) error {
	b.stdinMu.Lock()
	defer b.stdinMu.Unlock()
	if b.stdin == nil {
		return ErrNotRunning
	}
	_, err := b.stdin.Write(line)
	return err
}

// readStdout drains the worker's stdout, resolving responses and
// routing notifications. Oversized lines are dropped without taking
// the reader down. It exits when the pipe closes.
func (b *Bridge) readStdout(proc *process) {
	reader := bufio.NewReaderSize(proc.stdout, 64*1024)
	for {
		line, err := b.nextLine(reader)
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			b.dispatchLine(trimmed)
		}
		if err != nil {
			if err != io.EOF {
				b.logger.Printf("agent stdout closed: %v", err)
			}
			return
		}
	}
}

func (b *Bridge) dispatchLine(line []byte) {
	resp, notif, err := classify(line)
	if err != nil {
		b.logger.Printf("discarding malformed agent output: %v", err)
		return
	}
	if resp != nil {
		if !b.tracker.Resolve(resp.ID, resp) {
			b.logger.Printf("response for unknown request id %d", resp.ID)
		}
		return
	}
	b.router.Route(notif.Method, notif.Params)
}

// nextLine reads one newline-terminated line. A line over maxLineSize
// is consumed and discarded so one huge payload cannot wedge the
// reader while the worker stays alive; the stream continues at the
// next line.
func (b *Bridge) nextLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		frag, err := r.ReadSlice('\n')
		line = append(line, frag...)
		if err == bufio.ErrBufferFull {
			if len(line) > maxLineSize {
				b.logger.Printf("discarding oversized agent output (over %d bytes)", maxLineSize)
				if err := skipLine(r); err != nil {
					return nil, err
				}
				line = line[:0]
			}
			continue
		}
		return line, err
	}
}

// skipLine consumes the remainder of the current line.
func skipLine(r *bufio.Reader) error {
	for {
		if _, err := r.ReadSlice('\n'); err != bufio.ErrBufferFull {
			return err
		}
	}
}

// readStderr relays worker diagnostics to the supervisor log.
func (b *Bridge) readStderr(proc *process) {
	scanner := bufio.NewScanner(proc.stderr)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		b.logger.Printf("[agent-stderr] %s", scanner.Text())
	}
}

// runWatchdog polls for worker exit and drives restarts with bounded
// backoff. It exits when the bridge stops or the restart budget is
// spent.
func (b *Bridge) runWatchdog(stopCh chan struct{}) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			proc := b.currentProcess()
			switch {
			case proc != nil && proc.exited():
				if !b.handleCrash(proc, stopCh) {
					return
				}
			case proc == nil && b.sup.State() == StateCrashed:
				// An earlier relaunch attempt failed. The backoff for
				// this crash was already served, so retry immediately.
				b.tryRelaunch(stopCh)
			}
		}
	}
}

// handleCrash records the crash, fails in-flight requests, and attempts
// a relaunch after backoff. It returns false when the watchdog should
// stop, either because the bridge was killed or the budget is spent.
func (b *Bridge) handleCrash(proc *process, stopCh chan struct{}) bool {
	n := b.sup.RecordCrash()
	b.logger.Printf("agent process exited unexpectedly (pid %d, crash %d): %v", proc.pid(), n, proc.waitErr)

	b.tracker.FailAll(ErrProcessCrashed)
	b.clearStdin()
	b.procMu.Lock()
	if b.proc == proc {
		b.proc = nil
	}
	b.procMu.Unlock()
	b.health.reset()

	if !b.sup.ShouldRestart() {
		b.logger.Printf("restart budget exhausted after %d crashes, giving up", n)
		return false
	}

	delay := b.backoffFn(n)
	b.logger.Printf("restarting agent in %s (attempt %d)", delay, n)
	select {
	case <-stopCh:
		return false
	case <-time.After(delay):
	}
	select {
	case <-stopCh:
		return false
	default:
	}

	b.tryRelaunch(stopCh)
	return true
}

// tryRelaunch starts a fresh worker for the current spec. On failure
// the state stays crashed and the next poll tick retries.
func (b *Bridge) tryRelaunch(stopCh chan struct{}) {
	b.sup.RecordRestarting()
	b.procMu.Lock()
	spec := b.spec
	b.procMu.Unlock()

	next, err := launch(spec)
	if err != nil {
		b.sup.RecordRelaunchFailed()
		b.logger.Printf("agent relaunch failed: %v", err)
		return
	}

	// The bridge may have been killed while launch was in flight.
	select {
	case <-stopCh:
		next.kill()
		return
	default:
	}

	b.installProcess(next, spec)
	b.sup.RecordStarted()
	b.logger.Printf("agent process restarted (pid %d)", next.pid())
}

// runSweeper periodically fails requests whose deadline has passed.
func (b *Bridge) runSweeper(stopCh chan struct{}) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			b.tracker.CheckTimeouts()
		}
	}
}

// runProber pings the worker and records successful contact for the
// health check.
func (b *Bridge) runProber(stopCh chan struct{}) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if b.sup.State() != StateRunning {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), b.probeInterval)
			resp, err := b.SendRequest(ctx, "ping", nil, b.probeInterval)
			cancel()
			if err != nil {
				b.logger.Printf("health probe failed: %v", err)
				continue
			}
			if resp.IsSuccess() {
				b.health.recordContact(time.Now())
			}
		}
	}
}
