// Package repl runs interactive interpreter sessions, one pseudo-terminal and
// subprocess per live example, and reports their output byte by byte.
package repl

import "repldoc/internal/example"

// Command is an instruction to the Driver.
type Command interface {
	CommandID() example.ID
}

// Spawn starts a session for an example.
type Spawn struct {
	ID example.ID
}

// Query writes one query line to a session.
type Query struct {
	ID   example.ID
	Line example.Query
}

// Kill terminates a session and releases its terminal.
type Kill struct {
	ID example.ID
}

func (c Spawn) CommandID() example.ID { return c.ID }
func (c Query) CommandID() example.ID { return c.ID }
func (c Kill) CommandID() example.ID  { return c.ID }

// Event is something the Driver observed. Events carrying a non-nil Err
// report a failed command or stream.
type Event interface {
	EventID() example.ID
}

// Spawned acknowledges a Spawn.
type Spawned struct {
	ID  example.ID
	Err error
}

// QueryWritten acknowledges a Query once every byte has been written.
type QueryWritten struct {
	ID    example.ID
	Query example.Query
	Err   error
}

// Killed acknowledges a Kill.
type Killed struct {
	ID  example.ID
	Err error
}

// Read carries one byte of session output. Bytes of one session arrive in
// stream order.
type Read struct {
	ID   example.ID
	Byte byte
}

// StreamFailed reports that reading a live session's output failed, usually
// because the interpreter exited.
type StreamFailed struct {
	ID  example.ID
	Err error
}

func (e Spawned) EventID() example.ID      { return e.ID }
func (e QueryWritten) EventID() example.ID { return e.ID }
func (e Killed) EventID() example.ID       { return e.ID }
func (e Read) EventID() example.ID         { return e.ID }
func (e StreamFailed) EventID() example.ID { return e.ID }
