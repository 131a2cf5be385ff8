package repl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"

	"repldoc/internal/example"
	"repldoc/internal/logger"
)

// Options configure how sessions are started.
type Options struct {
	// Interpreter is the executable to run, e.g. "nix".
	Interpreter string
	// Args follow the interpreter, e.g. ["repl", "--quiet"].
	Args []string
	// Env is appended to the current process environment.
	Env []string
	// Rows and Cols size the pseudo-terminal; zero means 24x80.
	Rows uint16
	Cols uint16
}

// DefaultArgs start the Nix REPL without its banner.
var DefaultArgs = []string{"repl", "--quiet"}

// Driver owns every live session. Commands are handled one at a time by
// Run; each session has its own reader goroutine feeding the event channel.
type Driver struct {
	opts Options
	log  *log.Logger

	mu       sync.Mutex
	sessions map[example.ID]*session
	readers  sync.WaitGroup
}

type session struct {
	id   example.ID
	cmd  *exec.Cmd
	ptmx *os.File
	// done is closed when the session is being torn down; exited is closed
	// by the reader goroutine when it returns.
	done   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// NewDriver creates a driver with no sessions.
func NewDriver(opts Options) *Driver {
	if opts.Rows == 0 {
		opts.Rows = 24
	}
	if opts.Cols == 0 {
		opts.Cols = 80
	}
	return &Driver{
		opts:     opts,
		log:      logger.NewStyledLogger("repl"),
		sessions: make(map[example.ID]*session),
	}
}

// Run handles commands until the channel is closed or ctx is done. Every
// command produces exactly one acknowledgement event. Sessions still alive
// when Run returns are killed.
func (d *Driver) Run(ctx context.Context, commands <-chan Command, events chan<- Event) error {
	defer d.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			if err := d.execute(ctx, cmd, events); err != nil {
				return err
			}
		}
	}
}

func (d *Driver) execute(ctx context.Context, cmd Command, events chan<- Event) error {
	d.log.Debug("command", "command", fmt.Sprintf("%T", cmd), "example", cmd.CommandID())

	switch c := cmd.(type) {
	case Spawn:
		s, err := d.spawn(c.ID)
		if err := emit(ctx, events, Spawned{ID: c.ID, Err: err}); err != nil {
			if s != nil {
				close(s.exited)
			}
			return err
		}
		// Spawned is delivered before the first Read of the session.
		if s != nil {
			d.readers.Add(1)
			go d.read(ctx, s, events)
		}
		return nil
	case Query:
		return emit(ctx, events, QueryWritten{ID: c.ID, Query: c.Line, Err: d.query(c.ID, c.Line)})
	case Kill:
		return emit(ctx, events, Killed{ID: c.ID, Err: d.kill(c.ID)})
	default:
		return fmt.Errorf("unknown repl command %T", cmd)
	}
}

func (d *Driver) spawn(id example.ID) (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.sessions[id]; exists {
		return nil, fmt.Errorf("session %s already exists", id)
	}

	cmd := exec.Command(d.opts.Interpreter, d.opts.Args...)
	cmd.Env = append(os.Environ(), d.opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: d.opts.Rows, Cols: d.opts.Cols})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY for %s: %w", d.opts.Interpreter, err)
	}

	s := &session{id: id, cmd: cmd, ptmx: ptmx, done: make(chan struct{}), exited: make(chan struct{})}
	d.sessions[id] = s
	d.log.Info("session started", "example", id, "pid", cmd.Process.Pid)
	return s, nil
}

func (d *Driver) query(id example.ID, q example.Query) error {
	d.mu.Lock()
	s, ok := d.sessions[id]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("no session %s to query", id)
	}

	if _, err := s.ptmx.Write(q.Bytes()); err != nil {
		return fmt.Errorf("failed to write query to %s: %w", id, err)
	}
	return nil
}

func (d *Driver) kill(id example.ID) error {
	d.mu.Lock()
	s, ok := d.sessions[id]
	delete(d.sessions, id)
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("no session %s to kill", id)
	}

	err := s.close()
	// Every Read of the session is on the event channel before Killed.
	<-s.exited
	d.log.Info("session killed", "example", id)
	return err
}

// read forwards session output until the stream fails or the session is
// closed. A failure on a closed session is expected and not reported.
func (d *Driver) read(ctx context.Context, s *session, events chan<- Event) {
	defer d.readers.Done()
	defer close(s.exited)

	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		for _, b := range buf[:n] {
			if s.closed() {
				return
			}
			select {
			case events <- Read{ID: s.id, Byte: b}:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
		if err == nil {
			continue
		}

		if s.closed() {
			return
		}
		d.log.Debug("session stream ended", "example", s.id, "error", err)
		select {
		case events <- StreamFailed{ID: s.id, Err: fmt.Errorf("reading output of %s: %w", s.id, err)}:
		case <-s.done:
		case <-ctx.Done():
		}
		return
	}
}

// Live returns the number of sessions that have not been killed.
func (d *Driver) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

// Close kills every remaining session and waits for the reader goroutines.
// It is safe to call more than once.
func (d *Driver) Close() {
	d.mu.Lock()
	remaining := make([]*session, 0, len(d.sessions))
	for id, s := range d.sessions {
		remaining = append(remaining, s)
		delete(d.sessions, id)
	}
	d.mu.Unlock()

	for _, s := range remaining {
		if err := s.close(); err != nil {
			d.log.Warn("failed to kill session", "example", s.id, "error", err)
		}
	}
	d.readers.Wait()
}

func (s *session) close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if kerr := s.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = fmt.Errorf("failed to kill %s: %w", s.id, kerr)
		}
		_ = s.ptmx.Close()
		_ = s.cmd.Wait()
	})
	return err
}

func (s *session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func emit(ctx context.Context, events chan<- Event, ev Event) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
