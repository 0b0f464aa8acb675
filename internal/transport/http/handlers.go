package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avoronkov/vcadmin/internal/account"
	"github.com/avoronkov/vcadmin/internal/audit"
	"github.com/avoronkov/vcadmin/internal/auth"
	"github.com/avoronkov/vcadmin/internal/client"
	"github.com/avoronkov/vcadmin/internal/events"
	"github.com/avoronkov/vcadmin/internal/premod"
	"github.com/avoronkov/vcadmin/internal/register"
	"github.com/avoronkov/vcadmin/internal/session"
)

// Registrar is the slice of the registration layer the handlers use.
// The concrete implementation is *register.Registrar.
type Registrar interface {
	Register(ctx context.Context, req register.Request) (register.Result, error)
	Accept(ctx context.Context, key string) (string, error)
	Reject(ctx context.Context, key string) error
	Pending(serverName string) ([]premod.Entry, error)
	Accounts(serverName string) ([]account.Account, error)
}

// Handlers provides the REST handlers.
type Handlers struct {
	reg         Registrar
	authService *auth.Service
	store       *audit.Store
	bus         *events.Bus
	log         *zerolog.Logger
}

// NewHandlers creates a handler set.
func NewHandlers(reg Registrar, authService *auth.Service, store *audit.Store, bus *events.Bus, logger *zerolog.Logger) *Handlers {
	return &Handlers{reg: reg, authService: authService, store: store, bus: bus, log: logger}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
	// Code carries the voice server's numeric error for command
	// failures, zero otherwise.
	Code int64 `json:"code,omitempty"`
}

// RegisterResponse is the outcome of a registration request.
type RegisterResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
}

// Register handles self-service registration.
// POST /api/register
func (h *Handlers) Register(c *gin.Context) {
	var req register.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}

	res, err := h.reg.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	// The approval key never reaches the requester; it travels via the
	// moderator channel only.
	c.JSON(http.StatusOK, RegisterResponse{Status: string(res.Status), Username: res.Username})
}

// AdminLoginRequest is the moderator login body.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued session token.
type AuthResponse struct {
	Token string `json:"token"`
}

// AdminLogin authenticates a moderator.
// POST /api/admin/login
func (h *Handlers) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}

	token, err := h.authService.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "admin access not configured"})
			return
		}
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// PendingEntry is one queued registration as shown to moderators.
type PendingEntry struct {
	Key      string `json:"key"`
	Server   string `json:"server"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	QueuedAt string `json:"queued_at"`
}

// Pending lists queued registrations.
// GET /api/admin/pending?server=
func (h *Handlers) Pending(c *gin.Context) {
	entries, err := h.reg.Pending(c.Query("server"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]PendingEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, PendingEntry{
			Key:      e.Key,
			Server:   e.ServerName,
			Username: e.Account.Username,
			Nickname: e.Account.Nickname,
			QueuedAt: e.QueuedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

// Accept approves one pending registration.
// POST /api/admin/pending/:key/accept
func (h *Handlers) Accept(c *gin.Context) {
	username, err := h.reg.Accept(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RegisterResponse{Status: string(register.StatusCreated), Username: username})
}

// Reject drops one pending registration.
// DELETE /api/admin/pending/:key
func (h *Handlers) Reject(c *gin.Context) {
	if err := h.reg.Reject(c.Request.Context(), c.Param("key")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AccountView is one live account as shown to moderators.
type AccountView struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Type     string `json:"type"`
	Rights   uint32 `json:"rights"`
}

// Accounts lists live accounts on one server.
// GET /api/admin/accounts?server=
func (h *Handlers) Accounts(c *gin.Context) {
	serverName := c.Query("server")
	if serverName == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "server query parameter is required"})
		return
	}
	accounts, err := h.reg.Accounts(serverName)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]AccountView, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, AccountView{
			Username: acc.Username,
			Nickname: acc.Nickname,
			Type:     acc.Type.String(),
			Rights:   uint32(acc.Rights),
		})
	}
	c.JSON(http.StatusOK, out)
}

// Audit returns recent audit events, newest first.
// GET /api/admin/audit?limit=
func (h *Handlers) Audit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	eventsSeen, err := h.store.Recent(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if eventsSeen == nil {
		eventsSeen = []audit.Event{}
	}
	c.JSON(http.StatusOK, eventsSeen)
}

// fail maps domain errors onto HTTP statuses. Command failures carry
// the server's code and message verbatim for the operator; domain
// conflicts get the friendly wording instead of the raw protocol error.
func (h *Handlers) fail(c *gin.Context, err error) {
	var ce *client.CommandError
	switch {
	case errors.Is(err, register.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, register.ErrUnknownServer):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, account.ErrAccountExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "username already taken"})
	case errors.Is(err, premod.ErrUnknownKey):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no pending entry with that key"})
	case errors.Is(err, session.ErrServerUnavailable), errors.Is(err, session.ErrTimeout):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "voice server unavailable"})
	case errors.As(err, &ce):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: ce.Message, Code: ce.Code})
	default:
		h.log.Error().Err(err).Msg("unclassified handler error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
