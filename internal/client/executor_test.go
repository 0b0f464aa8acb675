package client

import (
	"errors"
	"testing"

	"github.com/avoronkov/vcadmin/internal/wire"
)

// fakeTransport replays a canned reply body for every request.
type fakeTransport struct {
	reply  string
	sent   []wire.Command
	nextID uint64
}

func (f *fakeTransport) Send(cmd wire.Command) (uint64, error) {
	f.sent = append(f.sent, cmd)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeTransport) AwaitReply(uint64) (string, error) {
	return f.reply, nil
}

func TestExecute_CommandsModeClassifiesErrorReply(t *testing.T) {
	tr := &fakeTransport{reply: "error number=5 message=\"bad\"\r\n"}

	_, err := Execute(tr, wire.NewCommand("newaccount"), ModeCommands)
	var ce *CommandError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CommandError, got %v", err)
	}
	if ce.Code != 5 || ce.Message != "bad" || ce.Command != "newaccount" {
		t.Fatalf("unexpected classification: %+v", ce)
	}
}

func TestExecute_TextModeNeverClassifies(t *testing.T) {
	raw := "error number=5 message=\"bad\"\r\n"
	tr := &fakeTransport{reply: raw}

	reply, err := Execute(tr, wire.NewCommand("newaccount"), ModeText)
	if err != nil {
		t.Fatalf("text mode should not fail: %v", err)
	}
	if reply.Raw != raw {
		t.Fatalf("raw = %q, want %q", reply.Raw, raw)
	}
	if reply.Commands != nil {
		t.Fatalf("text mode must not decode, got %v", reply.Commands)
	}
}

func TestExecute_OnlyLastCommandDecidesFailure(t *testing.T) {
	tr := &fakeTransport{reply: "error number=1 message=\"stale\"\r\nok\r\n"}

	reply, err := Execute(tr, wire.NewCommand("listaccounts"), ModeCommands)
	if err != nil {
		t.Fatalf("a non-error final command must succeed: %v", err)
	}
	if len(reply.Commands) != 2 {
		t.Fatalf("expected 2 decoded commands, got %d", len(reply.Commands))
	}
}

func TestExecute_MalformedReplyFailsDecode(t *testing.T) {
	tr := &fakeTransport{reply: "ok v=???\r\n"}

	_, err := Execute(tr, wire.NewCommand("listaccounts"), ModeCommands)
	var de *wire.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *wire.DecodeError, got %v", err)
	}
}
