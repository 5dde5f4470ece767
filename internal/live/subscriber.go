// Package live keeps the process-wide push channel open and fans queue
// record updates out to every open view.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"queuebot/internal/config"
	"queuebot/internal/metrics"
	"queuebot/internal/model"
)

// Status is the informational state of the push channel.
type Status string

// Connection states.
const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// ErrReconnectExhausted is returned by Run once the attempt cap is reached.
var ErrReconnectExhausted = errors.New("push channel reconnect attempts exhausted")

// Sink receives queue records pushed by the backend.
type Sink interface {
	UpdateQueue(rec model.TransactionQueue) bool
}

// Subscriber reads queue updates from the backend push channel.
// Client code never writes to the socket.
type Subscriber struct {
	url      string
	token    string
	interval time.Duration
	attempts int
	dialer   *websocket.Dialer

	mu        sync.RWMutex
	status    Status
	lastErr   error
	sinks     map[Sink]struct{}
	statusFns []func(Status)
}

// NewSubscriber creates a Subscriber for cfg, authenticating with token.
func NewSubscriber(cfg *config.WebSocketConfig, token string) *Subscriber {
	interval := cfg.ReconnectInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Subscriber{
		url:      cfg.URL,
		token:    token,
		interval: interval,
		attempts: cfg.ReconnectAttempts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		status: StatusDisconnected,
		sinks:  make(map[Sink]struct{}),
	}
}

// AddSink registers sink to receive pushed records.
func (s *Subscriber) AddSink(sink Sink) {
	s.mu.Lock()
	s.sinks[sink] = struct{}{}
	s.mu.Unlock()
}

// RemoveSink stops delivering records to sink.
func (s *Subscriber) RemoveSink(sink Sink) {
	s.mu.Lock()
	delete(s.sinks, sink)
	s.mu.Unlock()
}

// OnStatus registers fn to be called on every status change.
func (s *Subscriber) OnStatus(fn func(Status)) {
	s.mu.Lock()
	s.statusFns = append(s.statusFns, fn)
	s.mu.Unlock()
}

// Status returns the current connection state.
func (s *Subscriber) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// LastError returns the most recent connection error, if any.
func (s *Subscriber) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Run connects and reads until ctx is cancelled, reconnecting at a fixed
// interval. With a non-zero attempt cap it gives up after that many
// consecutive failed connections.
func (s *Subscriber) Run(ctx context.Context) error {
	failures := 0
	for {
		connected, err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			s.setStatus(StatusDisconnected, nil)
			return nil
		}

		if connected {
			failures = 0
		}
		if err != nil {
			s.setStatus(StatusError, err)
			log.Warn().Err(err).Str("url", s.url).Msg("Push channel error")
		} else {
			s.setStatus(StatusDisconnected, nil)
		}

		if !connected {
			failures++
			if s.attempts > 0 && failures >= s.attempts {
				log.Error().Int("attempts", failures).Msg("Giving up on push channel")
				return ErrReconnectExhausted
			}
		}

		select {
		case <-ctx.Done():
			s.setStatus(StatusDisconnected, nil)
			return nil
		case <-time.After(s.interval):
		}
	}
}

func (s *Subscriber) connectAndRead(ctx context.Context) (bool, error) {
	s.setStatus(StatusConnecting, nil)

	header := http.Header{}
	if s.token != "" {
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("failed to dial push channel: %w (status %d)", err, resp.StatusCode)
		}
		return false, fmt.Errorf("failed to dial push channel: %w", err)
	}
	defer conn.Close()

	metrics.LiveConnects.Inc()
	s.setStatus(StatusConnected, nil)
	log.Info().Str("url", s.url).Msg("Push channel connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, nil
			}
			return true, fmt.Errorf("push channel read failed: %w", err)
		}
		s.handleFrame(frame)
	}
}

func (s *Subscriber) handleFrame(frame []byte) {
	env, err := DecodeEnvelope(frame)
	if err != nil {
		metrics.LiveDecodeErrors.Inc()
		log.Warn().Err(err).Int("bytes", len(frame)).Msg("Skipping malformed push frame")
		return
	}

	if env.Type != MessageTypeQueueUpdate {
		metrics.LiveMessagesTotal.WithLabelValues("other").Inc()
		log.Debug().Str("type", env.Type).Msg("Ignoring push message")
		return
	}
	metrics.LiveMessagesTotal.WithLabelValues(MessageTypeQueueUpdate).Inc()

	rec, err := env.QueueRecord()
	if err != nil {
		metrics.LiveDecodeErrors.Inc()
		log.Warn().Err(err).Msg("Skipping malformed queue update")
		return
	}

	s.mu.RLock()
	sinks := make([]Sink, 0, len(s.sinks))
	for sink := range s.sinks {
		sinks = append(sinks, sink)
	}
	s.mu.RUnlock()

	applied := 0
	for _, sink := range sinks {
		if sink.UpdateQueue(rec) {
			applied++
		}
	}
	log.Debug().
		Int64("queue_id", rec.ID).
		Str("status", string(rec.Status)).
		Int("views", applied).
		Msg("Queue update pushed")
}

func (s *Subscriber) setStatus(st Status, err error) {
	s.mu.Lock()
	changed := s.status != st
	s.status = st
	if err != nil || st == StatusConnected {
		s.lastErr = err
	}
	fns := make([]func(Status), len(s.statusFns))
	copy(fns, s.statusFns)
	s.mu.Unlock()

	if st == StatusConnected {
		metrics.LiveConnected.Set(1)
	} else {
		metrics.LiveConnected.Set(0)
	}

	if !changed {
		return
	}
	for _, fn := range fns {
		fn(st)
	}
}
