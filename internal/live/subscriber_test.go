package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queuebot/internal/config"
	"queuebot/internal/model"
	"queuebot/internal/queue"
)

type countingLister struct {
	calls atomic.Int32
	page  *model.QueuePage
}

func (l *countingLister) ListQueues(ctx context.Context, params model.ListParams) (*model.QueuePage, error) {
	l.calls.Add(1)
	return l.page, nil
}

type recordingSink struct {
	mu   sync.Mutex
	recs []model.TransactionQueue
}

func (s *recordingSink) UpdateQueue(rec model.TransactionQueue) bool {
	s.mu.Lock()
	s.recs = append(s.recs, rec)
	s.mu.Unlock()
	return true
}

// pushServer upgrades one connection, records its auth header, writes frames
// and then waits for the client to go away.
func pushServer(t *testing.T, frames []string, authHeader *atomic.Value) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authHeader != nil {
			authHeader.Store(r.Header.Get("Authorization"))
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscriber_PushUpdatesStoreWithoutRefetch(t *testing.T) {
	lister := &countingLister{page: &model.QueuePage{
		Count: 1,
		Results: []model.TransactionQueue{
			{ID: 7, Type: model.QueueTypeRecharge, Status: model.StatusPending},
		},
	}}
	store := queue.NewStore(lister, queue.DefaultStoreConfig())
	require.NoError(t, store.FetchQueues(context.Background()))

	pushed := make(chan queue.Change, 1)
	store.OnChange(func(c queue.Change) {
		if c.Source == queue.SourcePush {
			pushed <- c
		}
	})

	var auth atomic.Value
	srv := pushServer(t, []string{
		`not json`,
		`{"type":"heartbeat","data":{}}`,
		`{"type":"queue_update","data":{"id":99,"status":"completed"}}`,
		`{"type":"queue_update","data":{"id":7,"type":"recharge_game","status":"completed","data":{"new_credits_balance":"50"}}}`,
	}, &auth)

	sub := NewSubscriber(&config.WebSocketConfig{URL: wsURL(srv), ReconnectInterval: 50 * time.Millisecond}, "secret")
	sub.AddSink(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	select {
	case c := <-pushed:
		require.NotNil(t, c.Record)
		assert.Equal(t, int64(7), c.Record.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("push update not applied")
	}

	rec, ok := store.Get(7)
	require.True(t, ok)
	assert.Equal(t, "Completed", rec.Status.Label())
	require.NotNil(t, rec.Data.NewCreditsBalance)
	assert.Equal(t, "50", rec.Data.NewCreditsBalance.String())
	assert.Equal(t, int32(1), lister.calls.Load())
	assert.Equal(t, StatusConnected, sub.Status())
	assert.Equal(t, "Bearer secret", auth.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StatusDisconnected, sub.Status())
}

func TestSubscriber_FansOutToAllSinks(t *testing.T) {
	srv := pushServer(t, []string{`{"type":"queue_update","data":{"id":3,"status":"failed"}}`}, nil)

	a, b, removed := &recordingSink{}, &recordingSink{}, &recordingSink{}
	sub := NewSubscriber(&config.WebSocketConfig{URL: wsURL(srv)}, "")
	sub.AddSink(a)
	sub.AddSink(b)
	sub.AddSink(removed)
	sub.RemoveSink(removed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.recs) == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.recs) == 1
	}, 5*time.Second, 10*time.Millisecond)

	removed.mu.Lock()
	assert.Empty(t, removed.recs)
	removed.mu.Unlock()
}

func TestSubscriber_GivesUpAfterAttemptCap(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	var mu sync.Mutex
	var seen []Status
	sub := NewSubscriber(&config.WebSocketConfig{
		URL:               url,
		ReconnectInterval: 10 * time.Millisecond,
		ReconnectAttempts: 3,
	}, "")
	sub.OnStatus(func(s Status) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	err := sub.Run(context.Background())
	assert.ErrorIs(t, err, ErrReconnectExhausted)
	assert.Equal(t, StatusError, sub.Status())
	assert.Error(t, sub.LastError())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{
		StatusConnecting, StatusError,
		StatusConnecting, StatusError,
		StatusConnecting, StatusError,
	}, seen)
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"queue_update","data":{"id":1,"status":"pending"}}`))
	require.NoError(t, err)
	assert.Equal(t, MessageTypeQueueUpdate, env.Type)

	rec, err := env.QueueRecord()
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, rec.Status)

	env, err = DecodeEnvelope([]byte(`{"type":"queue_update","data":null}`))
	require.NoError(t, err)
	_, err = env.QueueRecord()
	assert.ErrorIs(t, err, ErrEmptyRecord)

	_, err = DecodeEnvelope([]byte(`{`))
	assert.Error(t, err)
}
