// Package handler provides the Telegram command and callback handlers of the
// queue console.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"queuebot/internal/live"
	"queuebot/internal/model"
	"queuebot/internal/queue"
	"queuebot/internal/session"
)

// Messenger sends and edits chat messages outside a handler context.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// StatusSource reports the push channel state.
type StatusSource interface {
	Status() live.Status
	LastError() error
}

// QueueHandler handles queue console commands and buttons.
type QueueHandler struct {
	sessions  *session.Manager
	live      StatusSource
	messenger Messenger
	timeout   time.Duration
}

// NewQueueHandler creates a new QueueHandler.
func NewQueueHandler(sessions *session.Manager, liveStatus StatusSource, messenger Messenger, timeout time.Duration) *QueueHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	h := &QueueHandler{
		sessions:  sessions,
		live:      liveStatus,
		messenger: messenger,
		timeout:   timeout,
	}
	sessions.OnPush(h.handlePush)
	return h
}

func (h *QueueHandler) newContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.timeout)
}

func (h *QueueHandler) session(c tele.Context) (*session.Session, bool) {
	chat := c.Chat()
	if chat == nil {
		return nil, false
	}
	ctx, cancel := h.newContext()
	defer cancel()
	s, _ := h.sessions.Get(ctx, chat.ID)
	return s, true
}

// HandleQueues handles the /queues command.
// Format: /queues [filter]
func (h *QueueHandler) HandleQueues(c tele.Context) error {
	s, ok := h.session(c)
	if !ok {
		return nil
	}

	ctx, cancel := h.newContext()
	defer cancel()

	if args := c.Args(); len(args) > 0 {
		kind, err := ParseFilter(args[0])
		if err != nil {
			return c.Reply(err.Error())
		}
		_ = s.Store.SetFilter(ctx, kind)
	} else {
		_ = s.Store.FetchQueues(ctx)
	}

	return h.sendList(c, s)
}

// HandleFilter handles the /filter command.
// Format: /filter <processing|history|recharge|redeem|add_user>
func (h *QueueHandler) HandleFilter(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		_, err := ParseFilter("")
		return c.Reply(err.Error())
	}
	kind, err := ParseFilter(args[0])
	if err != nil {
		return c.Reply(err.Error())
	}

	s, ok := h.session(c)
	if !ok {
		return nil
	}
	ctx, cancel := h.newContext()
	defer cancel()

	_ = s.Store.SetFilter(ctx, kind)
	return h.sendList(c, s)
}

// HandlePage handles the /page command.
// Format: /page <n>
func (h *QueueHandler) HandlePage(c tele.Context) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply(errUsagePage.Error())
	}
	n, err := ParsePage(args[0])
	if err != nil {
		return c.Reply(err.Error())
	}

	s, ok := h.session(c)
	if !ok {
		return nil
	}
	ctx, cancel := h.newContext()
	defer cancel()

	_ = s.Store.SetPage(ctx, n)
	return h.sendList(c, s)
}

// HandleSearch handles the /search command.
// Format: /search [text] [status=..] [from=YYYY-MM-DD] [to=YYYY-MM-DD]
func (h *QueueHandler) HandleSearch(c tele.Context) error {
	q, err := ParseSearch(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	s, ok := h.session(c)
	if !ok {
		return nil
	}
	ctx, cancel := h.newContext()
	defer cancel()

	_ = s.Store.SetQuery(ctx, q)
	return h.sendList(c, s)
}

// HandleRefresh handles the /refresh command.
func (h *QueueHandler) HandleRefresh(c tele.Context) error {
	s, ok := h.session(c)
	if !ok {
		return nil
	}
	ctx, cancel := h.newContext()
	defer cancel()

	_ = s.Store.FetchQueues(ctx)
	return h.sendList(c, s)
}

// HandleRetry handles the /retry command.
// Format: /retry <id>
func (h *QueueHandler) HandleRetry(c tele.Context) error {
	return h.promptConfirm(c, model.ActionRetry)
}

// HandleCancel handles the /cancel command.
// Format: /cancel <id>
func (h *QueueHandler) HandleCancel(c tele.Context) error {
	return h.promptConfirm(c, model.ActionCancel)
}

func (h *QueueHandler) promptConfirm(c tele.Context, kind model.ActionKind) error {
	args := c.Args()
	if len(args) < 1 {
		return c.Reply(strings.Replace(errUsageID.Error(), "<command>", string(kind), 1))
	}
	id, err := ParseQueueID(args[0])
	if err != nil {
		return c.Reply(strings.Replace(err.Error(), "<command>", string(kind), 1))
	}

	s, ok := h.session(c)
	if !ok {
		return nil
	}

	var rec *model.TransactionQueue
	if r, found := s.Store.Get(id); found {
		rec = &r
	}
	return c.Reply(RenderConfirm(kind, rec, id), BuildConfirmKeyboard(kind, id))
}

// HandleComplete handles the /complete command.
// Format: /complete <id> [balance=..] [username=..] [password=..]
func (h *QueueHandler) HandleComplete(c tele.Context) error {
	id, overrides, err := ParseCompleteArgs(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}

	s, ok := h.session(c)
	if !ok {
		return nil
	}

	return h.perform(c, s, queue.ActionCommand{
		QueueID:   id,
		Kind:      model.ActionComplete,
		Overrides: overrides,
	}, false)
}

// HandleStatus handles the /status command.
func (h *QueueHandler) HandleStatus(c tele.Context) error {
	s, ok := h.session(c)
	if !ok {
		return nil
	}
	v := s.Store.Snapshot()

	msg := "📡 Console status\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("Live: %s\n", liveLabel(h.live.Status()))
	if err := h.live.LastError(); err != nil && h.live.Status() != live.StatusConnected {
		msg += fmt.Sprintf("Live error: %s\n", err)
	}
	msg += fmt.Sprintf("View: %s, page %d\n", v.Filter.Label(), v.Pagination.Page)
	if !v.FetchedAt.IsZero() {
		msg += fmt.Sprintf("Last loaded: %s\n", v.FetchedAt.Format("15:04:05"))
	}
	if v.Err != "" {
		msg += fmt.Sprintf("Last error: %s\n", v.Err)
	}
	msg += fmt.Sprintf("Open sessions: %d", h.sessions.Count())

	return c.Reply(msg)
}

// HandleCallback handles queue console inline buttons.
func (h *QueueHandler) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}

	action, param := DecodeCallback(strings.TrimPrefix(cb.Data, "\f"))

	s, ok := h.session(c)
	if !ok {
		return c.Respond()
	}

	ctx, cancel := h.newContext()
	defer cancel()

	switch action {
	case cbRefresh:
		_ = s.Store.FetchQueues(ctx)
		_ = c.Respond()
		return h.editList(c, s)

	case cbPage:
		n, err := ParsePage(param)
		if err != nil {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid page"})
		}
		_ = s.Store.SetPage(ctx, n)
		_ = c.Respond()
		return h.editList(c, s)

	case cbFilter:
		if err := s.Store.SetFilter(ctx, model.FilterKind(param)); errors.Is(err, queue.ErrInvalidFilter) {
			return c.Respond(&tele.CallbackResponse{Text: "Unknown filter"})
		}
		_ = c.Respond()
		return h.editList(c, s)

	case cbAct:
		kind, id, ok := decodeRowAction(param)
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid action"})
		}
		_ = c.Respond()
		rec, found := s.Store.Get(id)
		if kind == model.ActionComplete {
			if !found {
				return c.Send(RenderActionError(queue.ErrQueueNotVisible))
			}
			if len(queue.RequiredFields(rec.Type)) == 0 {
				return h.perform(c, s, queue.ActionCommand{QueueID: id, Kind: kind}, false)
			}
			return c.Send(RenderCompleteUsage(rec))
		}
		var recPtr *model.TransactionQueue
		if found {
			recPtr = &rec
		}
		return c.Send(RenderConfirm(kind, recPtr, id), BuildConfirmKeyboard(kind, id))

	case cbConfirm:
		kind, id, ok := decodeRowAction(param)
		if !ok {
			return c.Respond(&tele.CallbackResponse{Text: "Invalid action"})
		}
		_ = c.Respond()
		return h.perform(c, s, queue.ActionCommand{QueueID: id, Kind: kind, Confirmed: true}, true)

	case cbAbort:
		_ = c.Respond(&tele.CallbackResponse{Text: "Cancelled"})
		return c.Delete()
	}

	return c.Respond()
}

// perform sends an action and reports the outcome. When edit is set the
// reply replaces the message the button was on.
func (h *QueueHandler) perform(c tele.Context, s *session.Session, cmd queue.ActionCommand, edit bool) error {
	if sender := c.Sender(); sender != nil {
		cmd.OperatorID = sender.ID
	}

	ctx, cancel := h.newContext()
	defer cancel()

	rec, err := s.Dispatcher.PerformAction(ctx, cmd)

	var reply string
	if err != nil {
		reply = RenderActionError(err)
	} else {
		reply = RenderActionResult(cmd.Kind, rec)
	}
	h.rerender(s)

	if edit {
		return c.Edit(reply)
	}
	return c.Reply(reply)
}

func (h *QueueHandler) sendList(c tele.Context, s *session.Session) error {
	v := s.Store.Snapshot()
	text := RenderList(v, h.live.Status())
	markup := BuildListKeyboard(v, s.Dispatcher.InFlight)

	msg, err := h.messenger.Send(c.Chat(), text, markup)
	if err != nil {
		return fmt.Errorf("failed to send queue list: %w", err)
	}
	s.SetListMessage(strconv.Itoa(msg.ID))
	return nil
}

func (h *QueueHandler) editList(c tele.Context, s *session.Session) error {
	v := s.Store.Snapshot()
	err := c.Edit(RenderList(v, h.live.Status()), BuildListKeyboard(v, s.Dispatcher.InFlight))
	if err != nil && !isNotModified(err) {
		return err
	}
	if msg := c.Message(); msg != nil {
		s.SetListMessage(strconv.Itoa(msg.ID))
	}
	return nil
}

// rerender edits the chat's list message in place to match the store.
func (h *QueueHandler) rerender(s *session.Session) {
	id := s.ListMessage()
	if id == "" {
		return
	}

	v := s.Store.Snapshot()
	msg := tele.StoredMessage{MessageID: id, ChatID: s.ChatID}
	_, err := h.messenger.Edit(msg, RenderList(v, h.live.Status()), BuildListKeyboard(v, s.Dispatcher.InFlight))
	if err != nil && !isNotModified(err) {
		log.Debug().Err(err).Int64("chat_id", s.ChatID).Msg("Failed to re-render queue list")
	}
}

func (h *QueueHandler) handlePush(s *session.Session, _ queue.Change) {
	go h.rerender(s)
}

// isNotModified reports whether Telegram rejected an edit that changed nothing.
func isNotModified(err error) bool {
	if errors.Is(err, tele.ErrSameMessageContent) {
		return true
	}
	// Telegram varies the description suffix, which defeats the exact match.
	return strings.Contains(err.Error(), "message is not modified")
}
