package account

import (
	"errors"
	"fmt"

	"github.com/avoronkov/vcadmin/internal/client"
	"github.com/avoronkov/vcadmin/internal/wire"
)

// protocolVersion is sent with every login handshake.
const protocolVersion = 2

// ErrAccountExists is returned when a username is already live on the
// server or already held by a pending premoderation entry. Always
// recoverable by picking another name.
var ErrAccountExists = errors.New("account: username already taken")

// PendingChecker answers whether a username is held by a queued
// premoderation entry. Implemented by the premod queue; nil disables
// the check.
type PendingChecker interface {
	IsDelayed(serverName, username string) (bool, error)
}

// Service layers account operations over the command executor. It owns
// no state beyond the transport it wraps.
type Service struct {
	tr         client.Transport
	serverName string
	pending    PendingChecker
}

// NewService builds a service for one server. serverName keys the
// premoderation queue; pending may be nil when no queue is in play.
func NewService(tr client.Transport, serverName string, pending PendingChecker) *Service {
	return &Service{tr: tr, serverName: serverName, pending: pending}
}

// ServerName returns the configured name of the managed server.
func (s *Service) ServerName() string { return s.serverName }

// Login performs the protocol handshake. A session that has not logged
// in successfully is unusable for any other operation.
func (s *Service) Login(acc Account) error {
	cmd := wire.NewCommand("login",
		wire.P("username", wire.String(acc.Username)),
		wire.P("password", wire.String(acc.Password)),
		wire.P("nickname", wire.String(acc.Nickname)),
		wire.P("protocol", wire.Int(protocolVersion)),
	)
	if _, err := client.Execute(s.tr, cmd, client.ModeCommands); err != nil {
		return fmt.Errorf("login %q: %w", acc.Username, err)
	}
	return nil
}

// ListAccounts enumerates the server's accounts. The reply is a leading
// run of useraccount commands; the grammar terminates the list
// implicitly with the first differently named command.
func (s *Service) ListAccounts() ([]Account, error) {
	reply, err := client.Execute(s.tr, wire.NewCommand("listaccounts"), client.ModeCommands)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var accounts []Account
	for _, cmd := range reply.Commands {
		if cmd.Name != "useraccount" {
			break
		}
		accounts = append(accounts, projectAccount(cmd))
	}
	return accounts, nil
}

// AccountExists reports whether the username is live on the server.
// Linear over the account list; the protocol has no indexed lookup and
// lists stay small in this domain.
func (s *Service) AccountExists(username string) (bool, error) {
	accounts, err := s.ListAccounts()
	if err != nil {
		return false, err
	}
	for _, acc := range accounts {
		if acc.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// CreateAccount allocates the account on the server. The pending-queue
// check runs before the live-list round trip: rejecting against the
// local queue is cheaper, and it keeps a name spoken for by a pending
// request from being silently re-allocated. checkPremod is false only
// when the caller is the approval path accepting that very entry.
func (s *Service) CreateAccount(acc Account, checkPremod bool) (string, error) {
	if checkPremod && s.pending != nil {
		delayed, err := s.pending.IsDelayed(s.serverName, acc.Username)
		if err != nil {
			return "", fmt.Errorf("check pending queue: %w", err)
		}
		if delayed {
			return "", fmt.Errorf("%w: %q is pending approval", ErrAccountExists, acc.Username)
		}
	}

	exists, err := s.AccountExists(acc.Username)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: %q", ErrAccountExists, acc.Username)
	}

	cmd := wire.NewCommand("newaccount",
		wire.P("username", wire.String(acc.Username)),
		wire.P("password", wire.String(acc.Password)),
		wire.P("usertype", wire.Int(int64(acc.Type))),
		wire.P("userrights", wire.Int(int64(acc.Rights))),
	)
	if _, err := client.Execute(s.tr, cmd, client.ModeCommands); err != nil {
		return "", fmt.Errorf("create account %q: %w", acc.Username, err)
	}
	return acc.Username, nil
}

// projectAccount maps one useraccount reply command onto an Account.
// The server never echoes passwords back.
func projectAccount(cmd wire.Command) Account {
	acc := Account{}
	if v, ok := cmd.GetString("username"); ok {
		acc.Username = v
	}
	if v, ok := cmd.GetString("nickname"); ok {
		acc.Nickname = v
	}
	if v, ok := cmd.GetInt("usertype"); ok {
		acc.Type = UserType(v)
	}
	if v, ok := cmd.GetInt("userrights"); ok {
		acc.Rights = Rights(v)
	}
	return acc
}
