// Package register orchestrates one account registration end to end:
// validate the input, dial and log into the target server, then either
// create the account directly or park it in the premoderation queue.
package register

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/avoronkov/vcadmin/internal/account"
	"github.com/avoronkov/vcadmin/internal/audit"
	"github.com/avoronkov/vcadmin/internal/config"
	"github.com/avoronkov/vcadmin/internal/events"
	"github.com/avoronkov/vcadmin/internal/premod"
	"github.com/avoronkov/vcadmin/internal/session"
	"github.com/avoronkov/vcadmin/internal/validate"
)

var (
	// ErrInvalidInput marks a request that failed field validation.
	ErrInvalidInput = errors.New("register: invalid input")
	// ErrUnknownServer marks a request naming a server the config does
	// not carry.
	ErrUnknownServer = errors.New("register: unknown server")
)

// Status is the outcome of a registration request.
type Status string

const (
	// StatusCreated means the account is live on the server.
	StatusCreated Status = "created"
	// StatusPending means the request is queued for moderator approval.
	StatusPending Status = "pending"
)

// Request is one registration submission. Direct bypasses the server's
// premoderation setting; it is an operator-side switch and excluded
// from JSON binding so HTTP clients cannot set it.
type Request struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Direct   bool   `json:"-"`
}

// Result reports what happened. Key is the approval capability token,
// set only for pending results; it is for the moderator channel, never
// for the requester.
type Result struct {
	Status   Status
	Username string
	Key      string
}

// connectFunc opens an authenticated account service against one
// server. Swapped out in tests.
type connectFunc func(name string, sc config.ServerConfig) (*account.Service, io.Closer, error)

// Registrar coordinates the account service, the premoderation queue,
// and the audit trail.
type Registrar struct {
	cfg     config.Config
	queue   *premod.Queue
	store   *audit.Store
	bus     *events.Bus
	log     *zerolog.Logger
	connect connectFunc
}

// New builds a registrar. store and bus may be nil when auditing is not
// wanted (one-shot CLI invocations).
func New(cfg config.Config, queue *premod.Queue, store *audit.Store, bus *events.Bus, logger *zerolog.Logger) *Registrar {
	r := &Registrar{cfg: cfg, queue: queue, store: store, bus: bus, log: logger}
	r.connect = r.dialAndLogin
	return r
}

// dialAndLogin opens the TCP session and performs the login handshake
// with the configured system account. A session without a successful
// login is unusable, so failure closes it immediately.
func (r *Registrar) dialAndLogin(name string, sc config.ServerConfig) (*account.Service, io.Closer, error) {
	sess, err := session.Dial(
		session.Endpoint{Host: sc.Host, Port: sc.Port},
		session.Options{DialTimeout: sc.DialTimeout, ReadTimeout: sc.ReadTimeout},
	)
	if err != nil {
		return nil, nil, err
	}

	svc := account.NewService(sess, name, r.queue)
	if err := svc.Login(account.Account{Username: sc.Username, Password: sc.Password, Nickname: sc.Nickname}); err != nil {
		_ = sess.Close()
		return nil, nil, err
	}
	return svc, sess, nil
}

// Register handles one submission.
func (r *Registrar) Register(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}
	sc, err := r.cfg.Server(req.Server)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownServer, req.Server)
	}

	r.record(ctx, req.Server, req.Username, audit.ActionRequested, "")

	svc, closer, err := r.connect(req.Server, sc)
	if err != nil {
		return Result{}, err
	}
	defer closer.Close()

	acc := account.Account{
		Username: req.Username,
		Password: req.Password,
		Nickname: req.Nickname,
		Type:     account.TypeDefault,
		Rights:   account.DefaultRights,
	}

	if sc.Premoderated && !req.Direct {
		return r.delay(ctx, svc, req.Server, acc)
	}

	if _, err := svc.CreateAccount(acc, true); err != nil {
		if errors.Is(err, account.ErrAccountExists) {
			r.record(ctx, req.Server, req.Username, audit.ActionConflict, err.Error())
		}
		return Result{}, err
	}

	r.record(ctx, req.Server, req.Username, audit.ActionCreated, "")
	return Result{Status: StatusCreated, Username: acc.Username}, nil
}

// delay queues the account after the same conflict checks direct
// creation would run: the local queue first (cheap), then the live list.
func (r *Registrar) delay(ctx context.Context, svc *account.Service, serverName string, acc account.Account) (Result, error) {
	delayed, err := r.queue.IsDelayed(serverName, acc.Username)
	if err != nil {
		return Result{}, err
	}
	if delayed {
		err := fmt.Errorf("%w: %q is pending approval", account.ErrAccountExists, acc.Username)
		r.record(ctx, serverName, acc.Username, audit.ActionConflict, err.Error())
		return Result{}, err
	}

	exists, err := svc.AccountExists(acc.Username)
	if err != nil {
		return Result{}, err
	}
	if exists {
		err := fmt.Errorf("%w: %q", account.ErrAccountExists, acc.Username)
		r.record(ctx, serverName, acc.Username, audit.ActionConflict, err.Error())
		return Result{}, err
	}

	key, err := r.queue.Delay(serverName, acc)
	if err != nil {
		return Result{}, err
	}

	r.record(ctx, serverName, acc.Username, audit.ActionQueued, "approval key "+key)
	return Result{Status: StatusPending, Username: acc.Username, Key: key}, nil
}

// Accept approves the pending entry with the given key.
func (r *Registrar) Accept(ctx context.Context, key string) (string, error) {
	entry, err := r.findEntry(key)
	if err != nil {
		return "", err
	}
	sc, err := r.cfg.Server(entry.ServerName)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownServer, entry.ServerName)
	}

	svc, closer, err := r.connect(entry.ServerName, sc)
	if err != nil {
		return "", err
	}
	defer closer.Close()

	username, err := r.queue.Accept(svc, key)
	if err != nil {
		r.record(ctx, entry.ServerName, entry.Account.Username, audit.ActionAcceptFailed, err.Error())
		return "", err
	}

	r.record(ctx, entry.ServerName, username, audit.ActionAccepted, "")
	return username, nil
}

// Reject drops a pending entry without creating the account.
func (r *Registrar) Reject(ctx context.Context, key string) error {
	entry, err := r.findEntry(key)
	if err != nil {
		return err
	}
	if err := r.queue.Remove(key); err != nil {
		return err
	}
	r.record(ctx, entry.ServerName, entry.Account.Username, audit.ActionRemoved, "")
	return nil
}

// Pending lists queued entries; empty serverName means all servers.
func (r *Registrar) Pending(serverName string) ([]premod.Entry, error) {
	return r.queue.Entries(serverName)
}

// Accounts lists the live accounts on one server.
func (r *Registrar) Accounts(serverName string) ([]account.Account, error) {
	sc, err := r.cfg.Server(serverName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownServer, serverName)
	}
	svc, closer, err := r.connect(serverName, sc)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return svc.ListAccounts()
}

func (r *Registrar) findEntry(key string) (premod.Entry, error) {
	entries, err := r.queue.Entries("")
	if err != nil {
		return premod.Entry{}, err
	}
	for _, entry := range entries {
		if entry.Key == key {
			return entry, nil
		}
	}
	return premod.Entry{}, fmt.Errorf("%w: %q", premod.ErrUnknownKey, key)
}

func (r *Registrar) record(ctx context.Context, serverName, username string, action audit.Action, detail string) {
	if r.store == nil {
		return
	}
	evt, err := r.store.Record(ctx, serverName, username, action, detail)
	if err != nil {
		if r.log != nil {
			r.log.Warn().Err(err).Str("server", serverName).Str("username", username).Msg("audit record failed")
		}
		return
	}
	if r.bus != nil {
		r.bus.Publish(evt)
	}
}

func validateRequest(req Request) error {
	switch {
	case !validate.Username(req.Username):
		return fmt.Errorf("%w: username", ErrInvalidInput)
	case !validate.Password(req.Password):
		return fmt.Errorf("%w: password", ErrInvalidInput)
	case !validate.Nickname(req.Nickname):
		return fmt.Errorf("%w: nickname", ErrInvalidInput)
	}
	return nil
}
