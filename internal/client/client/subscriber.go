package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/common"
	"github.com/sheharfix/civicsync/internal/logging"
)

// IssuesStreamPath is the websocket route streaming issue updates.
const IssuesStreamPath = "/ws/issues"

// Default reconnect backoff bounds.
const (
	DefaultBackoffBase = 500 * time.Millisecond
	DefaultBackoffCap  = 30 * time.Second
)

// Subscriber opens issue update streams. Each subscription runs one
// goroutine that reconnects with capped exponential backoff until
// unsubscribed.
type Subscriber struct {
	url         string
	dialer      *websocket.Dialer
	tokens      TokenSource
	log         logging.Logger
	backoffBase time.Duration
	backoffCap  time.Duration
}

type SubscriberOption func(*Subscriber)

func WithBackoff(base, max time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		if base > 0 {
			s.backoffBase = base
		}
		if max > 0 {
			s.backoffCap = max
		}
	}
}

func WithSubscriberTokens(ts TokenSource) SubscriberOption {
	return func(s *Subscriber) { s.tokens = ts }
}

func WithSubscriberLogger(l logging.Logger) SubscriberOption {
	return func(s *Subscriber) { s.log = l }
}

// NewSubscriber derives the stream URL from the API base URL: http becomes
// ws and https becomes wss.
func NewSubscriber(baseURL string, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		url:         StreamURL(baseURL),
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:         logging.Nop(),
		backoffBase: DefaultBackoffBase,
		backoffCap:  DefaultBackoffCap,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// StreamURL maps an http(s) API base URL to the ws(s) stream URL.
func StreamURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + IssuesStreamPath
}

// Subscribe connects and calls fn for every issue received. The first dial
// error is returned; later disconnects are retried in the background.
//
// The returned function stops the subscription. It is idempotent, waits
// for the reader goroutine to exit, and fn is never called after it
// returns. It must not be called from inside fn.
func (s *Subscriber) Subscribe(ctx context.Context, fn func(models.Issue)) (func(), error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{conn: conn, done: make(chan struct{})}

	go s.run(ctx, sub, fn)

	// Closing the connection unblocks ReadMessage.
	go func() {
		<-ctx.Done()
		sub.close()
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-sub.done
		})
	}, nil
}

type subscription struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
}

func (s *subscription) set(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = conn.Close()
		return false
	}
	s.conn = conn
	return true
}

func (s *subscription) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// run reads until the connection drops, then redials. One backoff spans the
// subscription and every redial waits for its next interval. The backoff
// restarts only after a connection delivered a frame or stayed up for at
// least the base interval.
func (s *Subscriber) run(ctx context.Context, sub *subscription, fn func(models.Issue)) {
	defer close(sub.done)

	b := s.newBackoff()
	for {
		started := time.Now()
		delivered := s.read(ctx, sub.current(), fn)
		if ctx.Err() != nil {
			return
		}
		if delivered || time.Since(started) >= s.backoffBase {
			b = s.newBackoff()
		}

		s.log.Warn(ctx, "issue stream dropped, reconnecting")
		conn, err := s.reconnect(ctx, b)
		if err != nil {
			return
		}
		if !sub.set(conn) {
			return
		}
	}
}

func (s *Subscriber) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(s.backoffCap, retry.NewExponential(s.backoffBase))
}

// read delivers frames from conn until it fails and reports whether any
// issue reached fn.
func (s *Subscriber) read(ctx context.Context, conn *websocket.Conn, fn func(models.Issue)) bool {
	delivered := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return delivered
		}

		var is models.Issue
		if err := json.Unmarshal(data, &is); err != nil {
			s.log.Warn(ctx, "skipping malformed issue frame", "error", err)
			continue
		}
		if ctx.Err() != nil {
			return delivered
		}
		fn(is)
		delivered = true
	}
}

// reconnect waits b's next interval before each dial until one succeeds or
// ctx ends.
func (s *Subscriber) reconnect(ctx context.Context, b retry.Backoff) (*websocket.Conn, error) {
	for {
		wait, stop := b.Next()
		if stop {
			return nil, fmt.Errorf("%w: reconnect attempts exhausted", common.ErrUnavailable)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}

		conn, err := s.dial(ctx)
		if err == nil {
			return conn, nil
		}
		s.log.Debug(ctx, "reconnect attempt failed", "error", err, "waited", wait)
	}
}

func (s *Subscriber) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if s.tokens != nil {
		if tok := s.tokens.Token(ctx); tok != "" {
			header.Set(common.AuthorizationHeaderName, common.BearerPrefix+tok)
		}
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, &common.StatusError{Kind: common.ErrNetwork, StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("%w (%w): dial %s: %w", common.ErrNetwork, common.ErrUnavailable, s.url, err)
	}
	return conn, nil
}
