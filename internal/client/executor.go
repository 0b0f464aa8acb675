// Package client turns "send one command, get one typed result" into an
// atomic operation over a session and classifies protocol failures.
package client

import (
	"fmt"

	"github.com/avoronkov/vcadmin/internal/wire"
)

// Transport is the slice of the session the executor needs. The
// concrete implementation is *session.Session; tests substitute
// scripted fakes.
type Transport interface {
	Send(cmd wire.Command) (uint64, error)
	AwaitReply(id uint64) (string, error)
}

// Mode selects what Execute returns and whether it classifies failure.
type Mode int

const (
	// ModeText returns the raw reply block and never raises
	// *CommandError. For diagnostics and logging call sites.
	ModeText Mode = iota
	// ModeCommands decodes the block and fails when the server's last
	// word is an error command.
	ModeCommands
)

// CommandError is the server explicitly refusing a command. Code and
// Message come verbatim from the error reply and are meant to be shown
// to an operator as-is.
type CommandError struct {
	Command string
	Code    int64
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("client: command %q failed: server error %d: %s", e.Command, e.Code, e.Message)
}

// Reply is the result of one executed command. Commands is nil in
// ModeText.
type Reply struct {
	Raw      string
	Commands []wire.Command
}

// Execute sends the command, blocks for its correlated reply, and
// decodes it according to mode. Send and await are paired back to back
// so the transport's single-waiter constraint holds.
func Execute(tr Transport, cmd wire.Command, mode Mode) (Reply, error) {
	id, err := tr.Send(cmd)
	if err != nil {
		return Reply{}, err
	}
	raw, err := tr.AwaitReply(id)
	if err != nil {
		return Reply{}, err
	}
	if mode == ModeText {
		return Reply{Raw: raw}, nil
	}

	cmds, err := wire.DecodeReply(raw)
	if err != nil {
		return Reply{}, err
	}
	if len(cmds) > 0 {
		if last := cmds[len(cmds)-1]; last.Name == "error" {
			code, _ := last.GetInt("number")
			msg, _ := last.GetString("message")
			return Reply{}, &CommandError{Command: cmd.Name, Code: code, Message: msg}
		}
	}
	return Reply{Raw: raw, Commands: cmds}, nil
}
