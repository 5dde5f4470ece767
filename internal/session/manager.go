// Package session keeps one queue view per operator chat.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"queuebot/internal/live"
	"queuebot/internal/metrics"
	"queuebot/internal/model"
	"queuebot/internal/pkg/lock"
	"queuebot/internal/queue"
	"queuebot/internal/repository"
)

// Hub distributes pushed records to registered views.
type Hub interface {
	AddSink(sink live.Sink)
	RemoveSink(sink live.Sink)
}

// Session is the queue view of one chat.
type Session struct {
	ChatID     int64
	Store      *queue.Store
	Dispatcher *queue.Dispatcher

	mu          sync.Mutex
	listMessage string
}

// SetListMessage remembers the message that shows the rendered page.
func (s *Session) SetListMessage(id string) {
	s.mu.Lock()
	s.listMessage = id
	s.mu.Unlock()
}

// ListMessage returns the id of the message showing the rendered page.
func (s *Session) ListMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listMessage
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Lister   queue.Lister
	Actioner queue.Actioner
	Audit    queue.AuditRecorder
	Hub      Hub
	Views    repository.ViewStateStore
	PageSize int
}

// Manager creates sessions on first use and tears them down on Close.
type Manager struct {
	deps Deps
	rows *lock.KeyLock

	mu       sync.Mutex
	sessions map[int64]*Session
	unsub    map[int64]func()

	onPush atomic.Pointer[func(*Session, queue.Change)]
}

// NewManager creates a Manager.
func NewManager(deps Deps) *Manager {
	if deps.Views == nil {
		deps.Views = repository.NewMemoryViewStateStore()
	}
	return &Manager{
		deps:     deps,
		rows:     lock.NewKeyLock(),
		sessions: make(map[int64]*Session),
		unsub:    make(map[int64]func()),
	}
}

// OnPush sets the callback run when a pushed record replaces a row in any session.
func (m *Manager) OnPush(fn func(*Session, queue.Change)) {
	m.onPush.Store(&fn)
}

// Get returns the session for chatID, creating it from the saved view
// state if needed. The second result reports whether it was created.
func (m *Manager) Get(ctx context.Context, chatID int64) (*Session, bool) {
	if s, ok := m.lookup(chatID); ok {
		return s, false
	}

	// The view state is loaded without m.mu so a slow store never blocks
	// other chats or push delivery.
	cfg, restored := m.loadConfig(ctx, chatID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[chatID]; ok {
		return s, false
	}

	store := queue.NewStore(m.deps.Lister, cfg)

	s := &Session{
		ChatID:     chatID,
		Store:      store,
		Dispatcher: queue.NewDispatcher(m.deps.Actioner, store, m.rows, m.deps.Audit),
	}

	unsubscribe := store.OnChange(func(c queue.Change) { m.handleChange(s, c) })
	if m.deps.Hub != nil {
		m.deps.Hub.AddSink(store)
	}

	m.sessions[chatID] = s
	m.unsub[chatID] = unsubscribe
	metrics.SessionsActive.Set(float64(len(m.sessions)))

	log.Info().
		Int64("chat_id", chatID).
		Str("filter", string(cfg.Filter)).
		Int("page", cfg.Page).
		Bool("restored", restored).
		Msg("Queue session opened")

	return s, true
}

func (m *Manager) lookup(chatID int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

func (m *Manager) loadConfig(ctx context.Context, chatID int64) (queue.StoreConfig, bool) {
	cfg := queue.DefaultStoreConfig()
	if m.deps.PageSize > 0 {
		cfg.PageSize = m.deps.PageSize
	}

	state, err := m.deps.Views.Load(ctx, chatID)
	if err != nil {
		if !errors.Is(err, repository.ErrViewStateNotFound) {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to restore view state")
		}
		return cfg, false
	}

	cfg.Filter = state.Filter
	cfg.Page = state.Page
	cfg.Query = queue.Query{
		Search:   state.Search,
		Status:   state.Status,
		DateFrom: state.DateFrom,
		DateTo:   state.DateTo,
	}
	return cfg, true
}

// Close removes the session for chatID.
func (m *Manager) Close(chatID int64) {
	m.mu.Lock()
	s, ok := m.sessions[chatID]
	if ok {
		delete(m.sessions, chatID)
		m.unsub[chatID]()
		delete(m.unsub, chatID)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return
	}
	if m.deps.Hub != nil {
		m.deps.Hub.RemoveSink(s.Store)
	}
	metrics.SessionsActive.Set(float64(count))
	log.Info().Int64("chat_id", chatID).Msg("Queue session closed")
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// InFlight returns the queue ids with an action currently being sent.
func (m *Manager) InFlight() []int64 {
	return m.rows.Held()
}

func (m *Manager) handleChange(s *Session, c queue.Change) {
	switch c.Source {
	case queue.SourceFetch:
		m.saveView(s)
	case queue.SourcePush:
		if fn := m.onPush.Load(); fn != nil {
			(*fn)(s, c)
		}
	}
}

func (m *Manager) saveView(s *Session) {
	v := s.Store.Snapshot()
	state := model.ViewState{
		Filter:   v.Filter,
		Page:     v.Pagination.Page,
		Search:   v.Query.Search,
		Status:   v.Query.Status,
		DateFrom: v.Query.DateFrom,
		DateTo:   v.Query.DateTo,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.deps.Views.Save(ctx, s.ChatID, state); err != nil {
		log.Warn().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to save view state")
	}
}
