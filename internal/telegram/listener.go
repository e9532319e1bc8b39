package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Handler receives one inbound message.
type Handler func(msg *tgbotapi.Message)

// Listener fans inbound messages out to subscribed handlers. Each handler
// sees each message at most once; order across handlers, and relative to
// any running pipeline, is unspecified.
type Listener struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextID   uint64

	logger *zap.SugaredLogger
}

func NewListener(logger *zap.SugaredLogger) *Listener {
	return &Listener{
		handlers: make(map[uint64]Handler),
		logger:   logger,
	}
}

// OnMessage registers h. The returned func removes it and is safe to call twice.
func (l *Listener) OnMessage(h Handler) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.handlers[id] = h
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.handlers, id)
			l.mu.Unlock()
		})
	}
}

// Run delivers updates until ctx is done or updates is closed.
func (l *Listener) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			l.deliver(update.Message)
		}
	}
}

// Poll long-polls the Bot API and runs the listener on the result.
// Call it at most once per BotAPI.
func (l *Listener) Poll(ctx context.Context, api BotAPI) error {
	//polling fails while a webhook is registered
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	l.logger.Info("👂 Listening for inbound messages (long polling)")
	return l.Run(ctx, updates)
}

// RegisterWebhook points Telegram at url for webhook delivery.
func RegisterWebhook(api BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	return nil
}

func (l *Listener) deliver(msg *tgbotapi.Message) {
	l.mu.RLock()
	snapshot := make([]Handler, 0, len(l.handlers))
	for _, h := range l.handlers {
		snapshot = append(snapshot, h)
	}
	l.mu.RUnlock()

	for _, h := range snapshot {
		l.safeCall(h, msg)
	}
}

func (l *Listener) safeCall(h Handler, msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Errorf("❌ Inbound handler panicked on message %d: %v", msg.MessageID, r)
		}
	}()
	h(msg)
}

// LogMessages logs every inbound message and otherwise ignores it.
func LogMessages(logger *zap.SugaredLogger) Handler {
	return func(msg *tgbotapi.Message) {
		var chatID int64
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		from := ""
		if msg.From != nil {
			from = msg.From.UserName
		}
		logger.Infow("📩 Inbound message",
			"message_id", msg.MessageID,
			"chat_id", chatID,
			"from", from,
			"text", msg.Text,
		)
	}
}
