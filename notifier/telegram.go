// Package notifier delivers the rendered report to Telegram over the
// Bot API. Messages above Telegram's limits are chunked; the chart is
// sent as a photo with the leading part of the report as its caption.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"cryptopulse/config"
	"cryptopulse/logger"
)

const (
	maxMessageLen = 4000
	maxCaptionLen = 1024
)

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Telegram sends report text and chart images to a single chat.
type Telegram struct {
	cfg    config.TelegramConfig
	client *resty.Client
	log    *logger.Log
}

func NewTelegram(cfg config.TelegramConfig) *Telegram {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	client := resty.New().
		SetBaseURL(fmt.Sprintf("%s/bot%s", strings.TrimRight(baseURL, "/"), cfg.BotToken)).
		SetTimeout(cfg.Timeout())

	return &Telegram{
		cfg:    cfg,
		client: client,
		log:    logger.GetLogger(),
	}
}

// SendReport delivers the chart with the report text. The first caption
// sized piece of the text rides on the photo; the remainder follows as
// ordinary messages. Without chart bytes the whole text is sent as
// messages.
func (t *Telegram) SendReport(ctx context.Context, text string, chart []byte) error {
	if !t.cfg.Enabled {
		return nil
	}

	if len(chart) > 0 {
		caption, rest := splitAt(text, maxCaptionLen)
		if err := t.sendPhoto(ctx, chart, caption); err != nil {
			return err
		}
		text = rest
	}
	return t.SendMessage(ctx, text)
}

// SendMessage sends text to the configured chat, chunked to Telegram's
// message limit on line boundaries where possible.
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	if !t.cfg.Enabled || text == "" {
		return nil
	}

	for _, chunk := range chunkMessage(text, maxMessageLen) {
		var result telegramResponse
		resp, err := t.client.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"chat_id":    t.cfg.ChatID,
				"text":       chunk,
				"parse_mode": "Markdown",
			}).
			SetResult(&result).
			SetError(&result).
			Post("/sendMessage")
		if err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
		if resp.IsError() || !result.OK {
			return fmt.Errorf("telegram sendMessage rejected: %d %s", result.ErrorCode, result.Description)
		}
	}

	t.log.WithComponent("notifier").WithFields(logger.Fields{
		"chat_id": t.cfg.ChatID,
		"length":  len(text),
	}).Info("report text delivered")
	return nil
}

func (t *Telegram) sendPhoto(ctx context.Context, chart []byte, caption string) error {
	var result telegramResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetFileReader("photo", "report.png", bytes.NewReader(chart)).
		SetFormData(map[string]string{
			"chat_id":    t.cfg.ChatID,
			"caption":    caption,
			"parse_mode": "Markdown",
		}).
		SetResult(&result).
		SetError(&result).
		Post("/sendPhoto")
	if err != nil {
		return fmt.Errorf("failed to send telegram photo: %w", err)
	}
	if resp.IsError() || !result.OK {
		return fmt.Errorf("telegram sendPhoto rejected: %d %s", result.ErrorCode, result.Description)
	}

	t.log.WithComponent("notifier").WithFields(logger.Fields{
		"chat_id":    t.cfg.ChatID,
		"photo_size": len(chart),
	}).Info("report chart delivered")
	return nil
}

// splitAt cuts text at the last newline before limit, falling back to a
// hard cut when no newline fits. A hard cut never lands inside a
// multi-byte rune; Telegram rejects invalid UTF-8.
func splitAt(text string, limit int) (head, tail string) {
	if len(text) <= limit {
		return text, ""
	}
	cut := strings.LastIndex(text[:limit], "\n")
	if cut <= 0 {
		cut = limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
	}
	return strings.TrimRight(text[:cut], "\n"), strings.TrimLeft(text[cut:], "\n")
}

func chunkMessage(text string, limit int) []string {
	var chunks []string
	for text != "" {
		head, tail := splitAt(text, limit)
		if head != "" {
			chunks = append(chunks, head)
		}
		text = tail
	}
	return chunks
}
