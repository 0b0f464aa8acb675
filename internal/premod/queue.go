// Package premod holds account requests awaiting manual approval in a
// durable JSON document. Entry keys double as capability tokens: whoever
// holds a key may approve that one entry.
package premod

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/avoronkov/vcadmin/internal/account"
	"github.com/avoronkov/vcadmin/internal/validate"
)

var (
	// ErrUnknownKey is returned when no entry carries the given key.
	ErrUnknownKey = errors.New("premod: unknown key")
	// ErrCorruptEntry is returned when a stored entry cannot be
	// reconstructed into a valid account. Queue corruption, not user error.
	ErrCorruptEntry = errors.New("premod: corrupt queue entry")
)

// keyBytes yields 32 URL-safe base64 characters without padding. The
// 2^192 key space makes collisions a non-concern; no existence check
// is performed on generation.
const keyBytes = 24

// Entry is one queued account request.
type Entry struct {
	Key        string
	ServerName string
	Account    account.Account
	QueuedAt   time.Time
}

// storedEntry is the on-disk JSON shape, keyed by the entry's token.
type storedEntry struct {
	ServerName string    `json:"server"`
	Username   string    `json:"username"`
	Password   string    `json:"password"`
	Nickname   string    `json:"nickname"`
	UserType   int       `json:"usertype"`
	UserRights uint32    `json:"userrights"`
	QueuedAt   time.Time `json:"queued_at"`
}

// AccountCreator is the slice of the account service the approval path
// needs. checkPremod is forced false there: the entry being accepted is
// exactly what the check would trip over.
type AccountCreator interface {
	CreateAccount(acc account.Account, checkPremod bool) (string, error)
}

// Queue is the durable holding area. Every operation spans its whole
// load-check-mutate-persist sequence under two locks: a process-level
// mutex serializing goroutines (flock is per-file, not per-goroutine,
// and re-entering it from the same process succeeds immediately) and
// an exclusive file lock fencing off other processes.
type Queue struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewQueue builds a queue over the JSON document at path. The document
// is created lazily on first insert; the lock file lives alongside it.
func NewQueue(path string) *Queue {
	return &Queue{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// acquire takes both locks; release with q.release.
func (q *Queue) acquire() error {
	q.mu.Lock()
	if err := q.lock.Lock(); err != nil {
		q.mu.Unlock()
		return fmt.Errorf("premod: lock queue: %w", err)
	}
	return nil
}

func (q *Queue) release() {
	_ = q.lock.Unlock()
	q.mu.Unlock()
}

// IsDelayed reports whether a pending entry holds the username on the
// given server.
func (q *Queue) IsDelayed(serverName, username string) (bool, error) {
	if err := q.acquire(); err != nil {
		return false, err
	}
	defer q.release()

	doc, err := q.load()
	if err != nil {
		return false, err
	}
	return holdsUsername(doc, serverName, username), nil
}

// Delay inserts the account into the queue and returns its capability
// key. The duplicate check against the queue itself runs under the same
// lock as the insert; the live-server check is the caller's business
// (see account.Service.CreateAccount ordering).
func (q *Queue) Delay(serverName string, acc account.Account) (string, error) {
	if err := q.acquire(); err != nil {
		return "", err
	}
	defer q.release()

	doc, err := q.load()
	if err != nil {
		return "", err
	}
	if holdsUsername(doc, serverName, acc.Username) {
		return "", fmt.Errorf("%w: %q is already pending", account.ErrAccountExists, acc.Username)
	}

	key, err := newKey()
	if err != nil {
		return "", err
	}
	doc[key] = storedEntry{
		ServerName: serverName,
		Username:   acc.Username,
		Password:   acc.Password,
		Nickname:   acc.Nickname,
		UserType:   int(acc.Type),
		UserRights: uint32(acc.Rights),
		QueuedAt:   time.Now().UTC(),
	}
	if err := q.persist(doc); err != nil {
		return "", err
	}
	return key, nil
}

// Accept approves the entry with the given key: reconstructs the
// account, creates it on the server, and removes the entry. When
// creation fails the entry stays put, so the operator sees the failure
// and the request is not silently lost.
func (q *Queue) Accept(creator AccountCreator, key string) (string, error) {
	if err := q.acquire(); err != nil {
		return "", err
	}
	defer q.release()

	doc, err := q.load()
	if err != nil {
		return "", err
	}
	stored, ok := doc[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	acc, err := reconstruct(stored)
	if err != nil {
		return "", err
	}

	username, err := creator.CreateAccount(acc, false)
	if err != nil {
		return "", err
	}

	delete(doc, key)
	if err := q.persist(doc); err != nil {
		return "", err
	}
	return username, nil
}

// Remove drops an entry without creating the account. This is the
// out-of-band rejection path; the queue models no rejected state.
func (q *Queue) Remove(key string) error {
	if err := q.acquire(); err != nil {
		return err
	}
	defer q.release()

	doc, err := q.load()
	if err != nil {
		return err
	}
	if _, ok := doc[key]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	delete(doc, key)
	return q.persist(doc)
}

// Entries lists pending entries, oldest first. An empty serverName
// matches every server.
func (q *Queue) Entries(serverName string) ([]Entry, error) {
	if err := q.acquire(); err != nil {
		return nil, err
	}
	defer q.release()

	doc, err := q.load()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(doc))
	for key, stored := range doc {
		if serverName != "" && stored.ServerName != serverName {
			continue
		}
		entries = append(entries, Entry{
			Key:        key,
			ServerName: stored.ServerName,
			Account: account.Account{
				Username: stored.Username,
				Password: stored.Password,
				Nickname: stored.Nickname,
				Type:     account.UserType(stored.UserType),
				Rights:   account.Rights(stored.UserRights),
			},
			QueuedAt: stored.QueuedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].QueuedAt.Before(entries[j].QueuedAt) })
	return entries, nil
}

func (q *Queue) load() (map[string]storedEntry, error) {
	data, err := os.ReadFile(q.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]storedEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("premod: read queue: %w", err)
	}
	doc := map[string]storedEntry{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
		}
	}
	return doc, nil
}

func (q *Queue) persist(doc map[string]storedEntry) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("premod: marshal queue: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(q.path), 0o755); err != nil {
		return fmt.Errorf("premod: queue dir: %w", err)
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("premod: write queue: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("premod: replace queue: %w", err)
	}
	return nil
}

// reconstruct turns a stored entry back into an account, treating any
// field that no longer validates as corruption.
func reconstruct(stored storedEntry) (account.Account, error) {
	if !validate.Username(stored.Username) {
		return account.Account{}, fmt.Errorf("%w: bad username %q", ErrCorruptEntry, stored.Username)
	}
	if !validate.Password(stored.Password) {
		return account.Account{}, fmt.Errorf("%w: bad password for %q", ErrCorruptEntry, stored.Username)
	}
	if !validate.Nickname(stored.Nickname) {
		return account.Account{}, fmt.Errorf("%w: bad nickname for %q", ErrCorruptEntry, stored.Username)
	}
	return account.Account{
		Username: stored.Username,
		Password: stored.Password,
		Nickname: stored.Nickname,
		Type:     account.UserType(stored.UserType),
		Rights:   account.Rights(stored.UserRights),
	}, nil
}

func holdsUsername(doc map[string]storedEntry, serverName, username string) bool {
	for _, stored := range doc {
		if stored.ServerName == serverName && stored.Username == username {
			return true
		}
	}
	return false
}

func newKey() (string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("premod: generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
