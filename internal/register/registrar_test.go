package register

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/avoronkov/vcadmin/internal/account"
	"github.com/avoronkov/vcadmin/internal/audit"
	"github.com/avoronkov/vcadmin/internal/config"
	"github.com/avoronkov/vcadmin/internal/events"
	"github.com/avoronkov/vcadmin/internal/premod"
	"github.com/avoronkov/vcadmin/internal/wire"
)

// scriptedTransport replies per command name and records what was sent.
type scriptedTransport struct {
	replies map[string]string
	sent    []wire.Command
	nextID  uint64
}

func (s *scriptedTransport) Send(cmd wire.Command) (uint64, error) {
	s.sent = append(s.sent, cmd)
	s.nextID++
	return s.nextID, nil
}

func (s *scriptedTransport) AwaitReply(uint64) (string, error) {
	last := s.sent[len(s.sent)-1]
	reply, ok := s.replies[last.Name]
	if !ok {
		return "error number=0 message=\"unscripted command\"\r\n", nil
	}
	return reply, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func testConfig(premoderated bool) config.Config {
	cfg := config.Default()
	cfg.Servers = map[string]config.ServerConfig{
		"main": {
			Host:         "voice.example.net",
			Port:         8767,
			Username:     "sysop",
			Password:     "hunter22",
			Nickname:     "Registrar",
			Premoderated: premoderated,
		},
	}
	return cfg
}

// newTestRegistrar wires a registrar whose connector hands out account
// services over the scripted transport instead of dialing TCP.
func newTestRegistrar(t *testing.T, premoderated bool, tr *scriptedTransport) (*Registrar, *premod.Queue, *audit.Store) {
	t.Helper()

	queue := premod.NewQueue(filepath.Join(t.TempDir(), "premod.json"))
	store, err := audit.New(":memory:")
	if err != nil {
		t.Fatalf("audit store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	r := New(testConfig(premoderated), queue, store, events.NewBus(), nil)
	r.connect = func(name string, sc config.ServerConfig) (*account.Service, io.Closer, error) {
		return account.NewService(tr, name, queue), nopCloser{}, nil
	}
	return r, queue, store
}

var validReq = Request{Server: "main", Username: "carol", Password: "secret1", Nickname: "Carol C"}

func TestRegister_InvalidInput(t *testing.T) {
	r, _, _ := newTestRegistrar(t, false, &scriptedTransport{})

	bad := validReq
	bad.Username = "x"
	if _, err := r.Register(context.Background(), bad); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegister_UnknownServer(t *testing.T) {
	r, _, _ := newTestRegistrar(t, false, &scriptedTransport{})

	bad := validReq
	bad.Server = "nope"
	if _, err := r.Register(context.Background(), bad); !errors.Is(err, ErrUnknownServer) {
		t.Fatalf("expected ErrUnknownServer, got %v", err)
	}
}

func TestRegister_DirectCreatesAccount(t *testing.T) {
	tr := &scriptedTransport{replies: map[string]string{
		"listaccounts": "ok\r\n",
		"newaccount":   "ok\r\n",
	}}
	r, _, store := newTestRegistrar(t, false, tr)

	res, err := r.Register(context.Background(), validReq)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Status != StatusCreated || res.Username != "carol" {
		t.Fatalf("unexpected result: %+v", res)
	}

	eventsSeen, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(eventsSeen) != 2 || eventsSeen[0].Action != audit.ActionCreated {
		t.Fatalf("unexpected audit trail: %+v", eventsSeen)
	}
}

func TestRegister_PremoderatedQueuesWithoutNewaccount(t *testing.T) {
	tr := &scriptedTransport{replies: map[string]string{
		"listaccounts": "ok\r\n",
	}}
	r, queue, _ := newTestRegistrar(t, true, tr)

	res, err := r.Register(context.Background(), validReq)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Status != StatusPending || len(res.Key) != 32 {
		t.Fatalf("unexpected result: %+v", res)
	}

	delayed, err := queue.IsDelayed("main", "carol")
	if err != nil {
		t.Fatalf("isDelayed: %v", err)
	}
	if !delayed {
		t.Fatal("entry should be queued")
	}
	for _, cmd := range tr.sent {
		if cmd.Name == "newaccount" {
			t.Fatal("premoderated registration must not create the account")
		}
	}
}

func TestRegister_DirectOverridesPremoderation(t *testing.T) {
	tr := &scriptedTransport{replies: map[string]string{
		"listaccounts": "ok\r\n",
		"newaccount":   "ok\r\n",
	}}
	r, queue, _ := newTestRegistrar(t, true, tr)

	req := validReq
	req.Direct = true
	res, err := r.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Status != StatusCreated || res.Key != "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	delayed, err := queue.IsDelayed("main", "carol")
	if err != nil {
		t.Fatalf("isDelayed: %v", err)
	}
	if delayed {
		t.Fatal("direct registration must not queue the account")
	}
}

func TestRequest_DirectNotBindableFromJSON(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"server":"main","direct":true,"Direct":true}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Direct {
		t.Fatal("direct must stay an operator-side switch, not a request body field")
	}
}

func TestRegister_PremoderatedConflictWithLiveAccount(t *testing.T) {
	tr := &scriptedTransport{replies: map[string]string{
		"listaccounts": "useraccount username=\"carol\"\r\nok\r\n",
	}}
	r, _, _ := newTestRegistrar(t, true, tr)

	if _, err := r.Register(context.Background(), validReq); !errors.Is(err, account.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestAcceptLifecycle(t *testing.T) {
	tr := &scriptedTransport{replies: map[string]string{
		"listaccounts": "ok\r\n",
		"newaccount":   "ok\r\n",
	}}
	r, queue, store := newTestRegistrar(t, true, tr)
	ctx := context.Background()

	res, err := r.Register(ctx, validReq)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	username, err := r.Accept(ctx, res.Key)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if username != "carol" {
		t.Fatalf("username = %q", username)
	}

	delayed, err := queue.IsDelayed("main", "carol")
	if err != nil {
		t.Fatalf("isDelayed: %v", err)
	}
	if delayed {
		t.Fatal("accepted entry should be gone")
	}

	eventsSeen, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if eventsSeen[0].Action != audit.ActionAccepted {
		t.Fatalf("expected accepted event, got %q", eventsSeen[0].Action)
	}
}

func TestAccept_UnknownKey(t *testing.T) {
	r, _, _ := newTestRegistrar(t, true, &scriptedTransport{})

	if _, err := r.Accept(context.Background(), "nosuchkey"); !errors.Is(err, premod.ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func TestReject_RemovesEntry(t *testing.T) {
	tr := &scriptedTransport{replies: map[string]string{"listaccounts": "ok\r\n"}}
	r, queue, _ := newTestRegistrar(t, true, tr)
	ctx := context.Background()

	res, err := r.Register(ctx, validReq)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Reject(ctx, res.Key); err != nil {
		t.Fatalf("reject: %v", err)
	}

	delayed, err := queue.IsDelayed("main", "carol")
	if err != nil {
		t.Fatalf("isDelayed: %v", err)
	}
	if delayed {
		t.Fatal("rejected entry should be gone")
	}
}
