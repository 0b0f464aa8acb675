package http

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avoronkov/vcadmin/internal/account"
	"github.com/avoronkov/vcadmin/internal/audit"
	"github.com/avoronkov/vcadmin/internal/auth"
	"github.com/avoronkov/vcadmin/internal/client"
	"github.com/avoronkov/vcadmin/internal/config"
	"github.com/avoronkov/vcadmin/internal/events"
	"github.com/avoronkov/vcadmin/internal/log"
	"github.com/avoronkov/vcadmin/internal/premod"
	"github.com/avoronkov/vcadmin/internal/register"
)

// fakeRegistrar scripts the registration layer.
type fakeRegistrar struct {
	registerRes register.Result
	registerErr error
	acceptErr   error
	pending     []premod.Entry
	accounts    []account.Account
}

func (f *fakeRegistrar) Register(context.Context, register.Request) (register.Result, error) {
	return f.registerRes, f.registerErr
}

func (f *fakeRegistrar) Accept(_ context.Context, key string) (string, error) {
	if f.acceptErr != nil {
		return "", f.acceptErr
	}
	return "carol", nil
}

func (f *fakeRegistrar) Reject(context.Context, string) error { return f.acceptErr }

func (f *fakeRegistrar) Pending(string) ([]premod.Entry, error) { return f.pending, nil }

func (f *fakeRegistrar) Accounts(string) ([]account.Account, error) { return f.accounts, nil }

func newTestServer(t *testing.T, reg Registrar, rateLimit int) (*httptest.Server, *auth.Service, *events.Bus) {
	t.Helper()

	hash, err := auth.HashPassword("mod-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	authService := auth.NewService(hash, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test-mods",
		TTL:      time.Hour,
	})

	store, err := audit.New(":memory:")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	cfg.HTTP.RegisterRateLimit = rateLimit

	logger := log.New("error", "json")
	bus := events.NewBus()
	srv := NewServer(reg, authService, store, bus, cfg, logger)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, authService, bus
}

func postJSON(t *testing.T, url, body, token string) *stdhttp.Response {
	t.Helper()
	req, err := stdhttp.NewRequest(stdhttp.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	return resp
}

const registerBody = `{"server":"main","username":"carol","password":"secret1","nickname":"Carol C"}`

func TestRegister_Created(t *testing.T) {
	reg := &fakeRegistrar{registerRes: register.Result{Status: register.StatusCreated, Username: "carol", Key: "should-not-leak"}}
	ts, _, _ := newTestServer(t, reg, 0)

	resp := postJSON(t, ts.URL+"/api/register", registerBody, "")
	defer resp.Body.Close()

	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["status"] != "created" || out["username"] != "carol" {
		t.Fatalf("unexpected body: %v", out)
	}
	if _, leaked := out["key"]; leaked {
		t.Fatal("approval key must never reach the requester")
	}
}

func TestRegister_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: username", register.ErrInvalidInput), stdhttp.StatusBadRequest},
		{fmt.Errorf("%w: %q", account.ErrAccountExists, "carol"), stdhttp.StatusConflict},
		{&client.CommandError{Command: "newaccount", Code: 512, Message: "account limit reached"}, stdhttp.StatusBadGateway},
	}
	for _, tc := range cases {
		ts, _, _ := newTestServer(t, &fakeRegistrar{registerErr: tc.err}, 0)
		resp := postJSON(t, ts.URL+"/api/register", registerBody, "")
		if resp.StatusCode != tc.want {
			t.Errorf("err %v: status = %d, want %d", tc.err, resp.StatusCode, tc.want)
		}
		resp.Body.Close()
	}
}

func TestRegister_RateLimited(t *testing.T) {
	reg := &fakeRegistrar{registerRes: register.Result{Status: register.StatusCreated, Username: "carol"}}
	ts, _, _ := newTestServer(t, reg, 1)

	first := postJSON(t, ts.URL+"/api/register", registerBody, "")
	first.Body.Close()
	if first.StatusCode != stdhttp.StatusOK {
		t.Fatalf("first status = %d", first.StatusCode)
	}

	second := postJSON(t, ts.URL+"/api/register", registerBody, "")
	second.Body.Close()
	if second.StatusCode != stdhttp.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.StatusCode)
	}
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	ts, _, _ := newTestServer(t, &fakeRegistrar{}, 0)

	resp, err := stdhttp.Get(ts.URL + "/api/admin/pending")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAdminLoginAndPending(t *testing.T) {
	reg := &fakeRegistrar{pending: []premod.Entry{{
		Key:        "abc",
		ServerName: "main",
		Account:    account.Account{Username: "carol", Nickname: "Carol C"},
		QueuedAt:   time.Now(),
	}}}
	ts, _, _ := newTestServer(t, reg, 0)

	bad := postJSON(t, ts.URL+"/api/admin/login", `{"password":"wrong"}`, "")
	bad.Body.Close()
	if bad.StatusCode != stdhttp.StatusUnauthorized {
		t.Fatalf("bad login status = %d", bad.StatusCode)
	}

	good := postJSON(t, ts.URL+"/api/admin/login", `{"password":"mod-password"}`, "")
	defer good.Body.Close()
	if good.StatusCode != stdhttp.StatusOK {
		t.Fatalf("login status = %d", good.StatusCode)
	}
	var authOut AuthResponse
	if err := json.NewDecoder(good.Body).Decode(&authOut); err != nil {
		t.Fatalf("decode token: %v", err)
	}

	req, _ := stdhttp.NewRequest(stdhttp.MethodGet, ts.URL+"/api/admin/pending", nil)
	req.Header.Set("Authorization", "Bearer "+authOut.Token)
	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("pending status = %d", resp.StatusCode)
	}
	var entries []PendingEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Username != "carol" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestAccept_UnknownKeyIs404(t *testing.T) {
	reg := &fakeRegistrar{acceptErr: fmt.Errorf("%w: %q", premod.ErrUnknownKey, "nope")}
	ts, authService, _ := newTestServer(t, reg, 0)

	token, err := authService.Login("mod-password")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	resp := postJSON(t, ts.URL+"/api/admin/pending/nope/accept", `{}`, token)
	resp.Body.Close()
	if resp.StatusCode != stdhttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
