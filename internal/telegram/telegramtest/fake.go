// Package telegramtest provides an in-memory Bot API for tests.
package telegramtest

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// FakeBot records what would have been sent to Telegram.
type FakeBot struct {
	mu sync.Mutex

	SendErr    error
	RequestErr error

	Sent     []tgbotapi.MessageConfig
	Requests []tgbotapi.Chattable

	// Updates feeds GetUpdatesChan. Created on first use when nil.
	Updates chan tgbotapi.Update
	Stopped bool
}

func (b *FakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SendErr != nil {
		return tgbotapi.Message{}, b.SendErr
	}
	msg, _ := c.(tgbotapi.MessageConfig)
	b.Sent = append(b.Sent, msg)
	return tgbotapi.Message{MessageID: len(b.Sent), Chat: &tgbotapi.Chat{ID: msg.ChatID}, Text: msg.Text}, nil
}

func (b *FakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Requests = append(b.Requests, c)
	if b.RequestErr != nil {
		return nil, b.RequestErr
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *FakeBot) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Updates == nil {
		b.Updates = make(chan tgbotapi.Update, 16)
	}
	return b.Updates
}

func (b *FakeBot) StopReceivingUpdates() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Stopped = true
}

// SentCount is safe to call while the bot is in use.
func (b *FakeBot) SentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Sent)
}

func (b *FakeBot) IsStopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Stopped
}

// Message builds an inbound text update.
func Message(id int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			Chat:      &tgbotapi.Chat{ID: chatID},
			From:      &tgbotapi.User{ID: chatID, UserName: "someone"},
			Text:      text,
		},
	}
}
