// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"queuebot/internal/config"
	"queuebot/internal/handler"
	"queuebot/internal/session"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	queueHandler *handler.QueueHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config   *config.Config
	Sessions *session.Manager
	Live     handler.StatusSource
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Handler error")
		},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot: teleBot,
		cfg: deps.Config,
	}

	b.queueHandler = handler.NewQueueHandler(deps.Sessions, deps.Live, teleBot, deps.Config.API.Timeout*2)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.handleStart)

	ops := b.bot.Group()
	ops.Use(AdminMiddleware(b.cfg))

	ops.Handle("/queues", b.queueHandler.HandleQueues)
	ops.Handle("/filter", b.queueHandler.HandleFilter)
	ops.Handle("/page", b.queueHandler.HandlePage)
	ops.Handle("/search", b.queueHandler.HandleSearch)
	ops.Handle("/refresh", b.queueHandler.HandleRefresh)
	ops.Handle("/status", b.queueHandler.HandleStatus)

	ops.Handle("/retry", b.queueHandler.HandleRetry)
	ops.Handle("/cancel", b.queueHandler.HandleCancel)
	ops.Handle("/complete", b.queueHandler.HandleComplete)

	ops.Handle(tele.OnCallback, b.handleCallback)
}

func (b *Bot) handleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil || !b.cfg.IsAdmin(sender.ID) {
		return c.Reply("👋 This bot is for queue operators only.")
	}
	return c.Reply(helpText)
}

const helpText = "🎛 Transaction queue console\n\n" +
	"/queues [filter] - show the queue\n" +
	"/filter <processing|history|recharge|redeem|add_user>\n" +
	"/page <n> - go to page\n" +
	"/search [text] [status=..] [from=YYYY-MM-DD] [to=YYYY-MM-DD]\n" +
	"/refresh - reload the page\n" +
	"/retry <id> - retry a record\n" +
	"/cancel <id> - cancel a record\n" +
	"/complete <id> [balance=..] [username=..] [password=..]\n" +
	"/status - connection status"

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	if strings.HasPrefix(data, handler.CallbackPrefix) {
		return b.queueHandler.HandleCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unknown callback")
	return c.Respond()
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
