package publisher

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/logger"
)

// Telegram publishes media to a Telegram channel through the Bot API.
type Telegram struct {
	cfg *config.TelegramConfig
	bot *tgbotapi.BotAPI
	log logger.Interface
}

// NewTelegram authenticates against the Bot API and returns a Telegram
// publisher.
func NewTelegram(cfg *config.TelegramConfig, log logger.Interface) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate telegram bot: %w", err)
	}

	return &Telegram{
		cfg: cfg,
		bot: bot,
		log: log.WithComponent("publisher"),
	}, nil
}

// Publish sends the media file to the configured channel as a photo or a
// video. The Bot API client has no context support, so cancellation is
// checked before sending.
func (t *Telegram) Publish(ctx context.Context, localPath, caption string, isVideo bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file := tgbotapi.FilePath(localPath)

	var msg tgbotapi.Chattable
	if isVideo {
		video := tgbotapi.NewVideo(0, file)
		video.ChannelUsername = t.cfg.Channel
		video.Caption = caption
		msg = video
	} else {
		photo := tgbotapi.NewPhotoToChannel(t.cfg.Channel, file)
		photo.Caption = caption
		msg = photo
	}

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send media to %s: %w", t.cfg.Channel, err)
	}

	t.log.Info("media published",
		"channel", t.cfg.Channel,
		"path", localPath,
		"is_video", isVideo,
	)
	return nil
}

// Notify sends text to every configured admin chat. Delivery failures to
// individual admins are logged, not returned, as long as at least one
// admin receives the message.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(t.cfg.Admins) == 0 {
		return nil
	}

	delivered := 0
	for _, chatID := range t.cfg.Admins {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			t.log.Warn("failed to notify admin", "chat_id", chatID, "error", err)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		return fmt.Errorf("failed to notify any of %d admins", len(t.cfg.Admins))
	}
	return nil
}
