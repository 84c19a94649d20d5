package events

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sharecycle-console/internal/common/logger"
	"github.com/sharecycle-console/internal/observability"
)

// KnownEventTypes are the named domain events the platform emits over
// the stream. Unnamed messages are consumed as well.
var KnownEventTypes = []string{
	"ReservationCreated",
	"ReservationExpired",
	"TripStarted",
	"TripEnded",
	"TripBilled",
	"BikeStatusChanged",
	"StationStatusChanged",
	"BillIssued",
	"PaymentSettled",
	"TierChanged",
}

// TokenSource supplies the session token the stream is keyed to. The
// token travels as a query parameter because EventSource-style clients
// cannot set headers; this client mirrors the server contract.
type TokenSource interface {
	Token() string
}

// Stream maintains the SSE subscription, reconnecting with capped
// exponential backoff and resetting the delay after a healthy
// connection.
type Stream struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     logger.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu        sync.Mutex
	running   bool
	connected bool
	cancel    context.CancelFunc
	onEvent   func(string)
	onState   func(connected bool)
}

type StreamConfig struct {
	BaseURL        string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func NewStream(cfg StreamConfig, tokens TokenSource, log logger.Logger) *Stream {
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = time.Minute
	}
	return &Stream{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			// No overall timeout: the stream is long-lived. Dial and
			// header exchange are still bounded.
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		logger:         log,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}
}

// Subscribe starts the stream and returns a cancel function. onEvent
// receives each event's data line; onState reports connection changes.
// A second Subscribe while running is an error.
func (s *Stream) Subscribe(ctx context.Context, onEvent func(string), onState func(connected bool)) (func(), error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("stream already subscribed")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.onEvent = onEvent
	s.onState = onState
	s.mu.Unlock()

	go s.run(ctx)

	return func() {
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.running = false
		s.mu.Unlock()
	}, nil
}

func (s *Stream) run(ctx context.Context) {
	backoff := s.initialBackoff
	for {
		if ctx.Err() != nil {
			s.setConnected(false)
			return
		}

		token := s.tokens.Token()
		if token == "" {
			// No session; poll cheaply for one instead of hammering the
			// server with unauthenticated connects.
			s.setConnected(false)
			if !sleep(ctx, s.initialBackoff) {
				return
			}
			continue
		}

		healthy, err := s.consume(ctx, token)
		if ctx.Err() != nil {
			s.setConnected(false)
			return
		}
		if err != nil {
			s.logger.Warn("Event stream disconnected", "error", err)
		}
		s.setConnected(false)
		observability.StreamReconnects.Inc()

		if healthy {
			backoff = s.initialBackoff
		} else {
			backoff *= 2
			if backoff > s.maxBackoff {
				backoff = s.maxBackoff
			}
		}
		if !sleep(ctx, backoff) {
			return
		}
	}
}

// consume holds one SSE connection open and dispatches its events. It
// reports whether the connection was healthy long enough to reset the
// reconnect backoff.
func (s *Stream) consume(ctx context.Context, token string) (healthy bool, err error) {
	streamURL := s.baseURL + "/events/stream?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return false, fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("connecting stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	s.setConnected(true)
	s.logger.Info("Event stream connected")
	connectedAt := time.Now()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data []string
	eventName := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// blank line terminates one event
			if len(data) > 0 && isKnownEvent(eventName) {
				s.dispatch(strings.Join(data, "\n"))
			}
			data = data[:0]
			eventName = ""
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "id:"), strings.HasPrefix(line, "retry:"), strings.HasPrefix(line, ":"):
			// ignored
		}
	}

	healthy = time.Since(connectedAt) > s.initialBackoff
	if scanErr := scanner.Err(); scanErr != nil {
		return healthy, fmt.Errorf("reading stream: %w", scanErr)
	}
	return healthy, nil
}

// isKnownEvent accepts default (unnamed) messages and the named domain
// event types; other named events are dropped.
func isKnownEvent(name string) bool {
	if name == "" {
		return true
	}
	for _, known := range KnownEventTypes {
		if name == known {
			return true
		}
	}
	return false
}

func (s *Stream) dispatch(payload string) {
	observability.EventsReceivedTotal.Inc()
	s.mu.Lock()
	onEvent := s.onEvent
	s.mu.Unlock()
	if onEvent != nil {
		onEvent(payload)
	}
}

// setConnected notifies only on actual transitions, so the idle
// no-token loop and repeated failed connects do not re-report an
// already-disconnected stream.
func (s *Stream) setConnected(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	onState := s.onState
	s.mu.Unlock()
	if !changed {
		return
	}
	if connected {
		observability.StreamConnected.Set(1)
	} else {
		observability.StreamConnected.Set(0)
	}
	if onState != nil {
		onState(connected)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
