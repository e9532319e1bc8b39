package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// BotAPI is the part of *tgbotapi.BotAPI the dispatcher and listener use.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

func NewBotAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	//turn this on in case of debug
	//api.Debug = true
	return api, nil
}

// Target is the single recipient of every digest.
type Target struct {
	ChatID int64
}

type DeliveryAck struct {
	ChatID    int64
	MessageID int
	SentAt    time.Time
}

type Kind string

const (
	KindTransport Kind = "transport"
	KindFormat    Kind = "format"
	KindRejected  Kind = "rejected"
)

// DeliveryError is returned when the message was not accepted.
type DeliveryError struct {
	Kind Kind
	Code int
	Err  error
}

func (e *DeliveryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("telegram delivery failed (%s, %d): %v", e.Kind, e.Code, e.Err)
	}
	return fmt.Sprintf("telegram delivery failed (%s): %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

type Dispatcher struct {
	api    BotAPI
	target Target
	logger *zap.SugaredLogger
}

func NewDispatcher(api BotAPI, target Target, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{api: api, target: target, logger: logger}
}

// Dispatch sends text as one Markdown message. It never retries.
func (d *Dispatcher) Dispatch(ctx context.Context, text string) (*DeliveryAck, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DeliveryError{Kind: KindTransport, Err: err}
	}

	msg := tgbotapi.NewMessage(d.target.ChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	sent, err := d.api.Send(msg)
	if err != nil {
		return nil, classify(err)
	}

	d.logger.Debugf("📨 Delivered message %d to chat %d", sent.MessageID, d.target.ChatID)
	return &DeliveryAck{
		ChatID:    d.target.ChatID,
		MessageID: sent.MessageID,
		SentAt:    time.Now(),
	}, nil
}

// classify splits API rejections (the Bot API answered ok=false) from
// transport failures. Bad Markdown is reported as KindFormat.
func classify(err error) *DeliveryError {
	var code int
	var message string

	var apiErr *tgbotapi.Error
	var apiVal tgbotapi.Error
	switch {
	case errors.As(err, &apiErr):
		code, message = apiErr.Code, apiErr.Message
	case errors.As(err, &apiVal):
		code, message = apiVal.Code, apiVal.Message
	default:
		return &DeliveryError{Kind: KindTransport, Err: err}
	}

	kind := KindRejected
	if code == 400 && strings.Contains(message, "can't parse entities") {
		kind = KindFormat
	}
	return &DeliveryError{Kind: kind, Code: code, Err: err}
}
