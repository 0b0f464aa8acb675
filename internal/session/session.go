// Package session owns one TCP connection to a voice server's admin
// port: request id allocation, command writes, and extraction of the
// sentinel-framed reply block belonging to a given request id.
package session

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/avoronkov/vcadmin/internal/wire"
)

var (
	// ErrServerUnavailable wraps a failed TCP connect.
	ErrServerUnavailable = errors.New("session: server unavailable")
	// ErrTimeout is returned when the reply sentinel never arrives
	// within the configured read timeout.
	ErrTimeout = errors.New("session: timed out waiting for reply")
	// ErrAwaitInProgress is returned when a second AwaitReply overlaps
	// a pending one. The transport reads the socket linearly and cannot
	// serve two waiters; callers must pair every Send with an immediate
	// AwaitReply.
	ErrAwaitInProgress = errors.New("session: another AwaitReply is in progress")
	// ErrClosed is returned for operations on a closed session.
	ErrClosed = errors.New("session: closed")
)

// Endpoint identifies the remote admin port.
type Endpoint struct {
	Host string
	Port uint16
}

// Addr renders the endpoint as host:port.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

// Options tunes connection behavior. Zero values disable the
// corresponding timeout.
type Options struct {
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// Session is one logical connection. The id counter only ever grows
// for the session's lifetime, so ids are unique within it and the
// sentinel scan can correlate replies unambiguously.
type Session struct {
	endpoint Endpoint
	conn     net.Conn
	reader   *lineReader
	opts     Options

	nextID   uint64
	awaiting atomic.Bool
	closed   atomic.Bool
}

// Dial opens a TCP connection. No protocol handshake happens here;
// login is the account service's job.
func Dial(endpoint Endpoint, opts Options) (*Session, error) {
	conn, err := net.DialTimeout("tcp", endpoint.Addr(), opts.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrServerUnavailable, endpoint.Addr(), err)
	}
	return Wrap(conn, endpoint, opts), nil
}

// Wrap builds a session over an existing connection. Used by Dial and
// by tests that drive the transport over an in-memory pipe.
func Wrap(conn net.Conn, endpoint Endpoint, opts Options) *Session {
	return &Session{
		endpoint: endpoint,
		conn:     conn,
		reader:   newLineReader(conn),
		opts:     opts,
		nextID:   1,
	}
}

// Endpoint returns the endpoint this session was dialed against.
func (s *Session) Endpoint() Endpoint { return s.endpoint }

// allocateID returns the next request id. Never reused, never reset.
func (s *Session) allocateID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

// Send encodes the command with a fresh id and writes it out. It does
// not wait for the reply; correlation happens in AwaitReply.
func (s *Session) Send(cmd wire.Command) (uint64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	id := s.allocateID()
	line, err := wire.Encode(cmd, id)
	if err != nil {
		return 0, err
	}
	if _, err := s.conn.Write([]byte(line)); err != nil {
		return 0, fmt.Errorf("session: write %q: %w", cmd.Name, err)
	}
	return id, nil
}

// AwaitReply blocks until the reply block for the given id has been
// read, returning the body between the begin/end sentinels with the
// sentinels excluded. The scan starts at the current read cursor and
// discards any lines for other ids it passes over, so at most one
// AwaitReply may be outstanding per session.
func (s *Session) AwaitReply(id uint64) (string, error) {
	if s.closed.Load() {
		return "", ErrClosed
	}
	if !s.awaiting.CompareAndSwap(false, true) {
		return "", ErrAwaitInProgress
	}
	defer s.awaiting.Store(false)

	if s.opts.ReadTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
			return "", fmt.Errorf("session: set read deadline: %w", err)
		}
	}

	begin := "begin id=" + strconv.FormatUint(id, 10)
	end := "end id=" + strconv.FormatUint(id, 10)

	// Discard until the begin sentinel.
	for {
		line, err := s.reader.next()
		if err != nil {
			return "", s.readErr(err)
		}
		if strings.TrimRight(line, "\r\n") == begin {
			break
		}
	}

	// Accumulate verbatim until the end sentinel.
	var body strings.Builder
	for {
		line, err := s.reader.next()
		if err != nil {
			return "", s.readErr(err)
		}
		if strings.TrimRight(line, "\r\n") == end {
			return body.String(), nil
		}
		body.WriteString(line)
	}
}

func (s *Session) readErr(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("session: read: %w", err)
}

// Close shuts the connection down. Safe to call twice.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.conn.Close()
}
