package integration

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// updateTimeout is the long-polling timeout, in seconds.
const updateTimeout = 60

// telegramAPI is the subset of *tgbotapi.BotAPI the gateway uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramGateway implements core.Gateway over the Telegram Bot API using
// long polling.
type TelegramGateway struct {
	api telegramAPI
}

var _ core.Gateway = (*TelegramGateway)(nil)

// NewTelegramGateway connects to the Bot API with token.
func NewTelegramGateway(token string) (*TelegramGateway, error) {
	if token == "" {
		return nil, fmt.Errorf("creating telegram gateway: bot token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating telegram gateway: %w", err)
	}
	return &TelegramGateway{api: bot}, nil
}

func (g *TelegramGateway) Name() string {
	return string(models.GatewayTelegram)
}

func (g *TelegramGateway) SendText(ctx context.Context, chatID int64, text string, opts core.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = string(opts.ParseMode)
	msg.DisableWebPagePreview = opts.DisablePreview
	if kb := inlineKeyboard(opts.Buttons); kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("sending text to %d: %w", chatID, err)
	}
	return nil
}

func (g *TelegramGateway) SendPhoto(ctx context.Context, chatID int64, photo models.Media, caption string, opts core.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := requestFile(photo)
	if err != nil {
		return fmt.Errorf("sending photo to %d: %w", chatID, err)
	}
	msg := tgbotapi.NewPhoto(chatID, file)
	msg.Caption = caption
	msg.ParseMode = string(opts.ParseMode)
	if kb := inlineKeyboard(opts.Buttons); kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("sending photo to %d: %w", chatID, err)
	}
	return nil
}

func (g *TelegramGateway) SendVideo(ctx context.Context, chatID int64, video models.Media, caption string, opts core.SendOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := requestFile(video)
	if err != nil {
		return fmt.Errorf("sending video to %d: %w", chatID, err)
	}
	msg := tgbotapi.NewVideo(chatID, file)
	msg.Caption = caption
	msg.ParseMode = string(opts.ParseMode)
	if kb := inlineKeyboard(opts.Buttons); kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := g.api.Send(msg); err != nil {
		return fmt.Errorf("sending video to %d: %w", chatID, err)
	}
	return nil
}

func (g *TelegramGateway) AnswerInteraction(ctx context.Context, interactionID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := g.api.Request(tgbotapi.NewCallback(interactionID, text)); err != nil {
		return fmt.Errorf("answering callback %s: %w", interactionID, err)
	}
	return nil
}

func (g *TelegramGateway) RegisterCommands(ctx context.Context, commands []models.BotCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmds := make([]tgbotapi.BotCommand, len(commands))
	for i, c := range commands {
		cmds[i] = tgbotapi.BotCommand{Command: c.Command, Description: c.Description}
	}
	if _, err := g.api.Request(tgbotapi.NewSetMyCommands(cmds...)); err != nil {
		return fmt.Errorf("registering bot commands: %w", err)
	}
	return nil
}

// Listen long-polls for updates and hands each supported one to handler,
// one at a time, until ctx is cancelled.
func (g *TelegramGateway) Listen(ctx context.Context, handler core.Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = updateTimeout
	updates := g.api.GetUpdatesChan(u)
	defer g.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if in, ok := inboundFromUpdate(upd); ok {
				handler(ctx, in)
			}
		}
	}
}

// inboundFromUpdate converts a Bot API update. Updates the bot does not
// react to, such as edits or stickers, are reported as unsupported.
func inboundFromUpdate(upd tgbotapi.Update) (models.Inbound, bool) {
	if cq := upd.CallbackQuery; cq != nil {
		if cq.Message == nil || cq.Message.Chat == nil {
			return models.Inbound{}, false
		}
		return models.Inbound{
			ID:            fmt.Sprint(upd.UpdateID),
			Kind:          models.InboundCallback,
			ChatID:        cq.Message.Chat.ID,
			Username:      userName(cq.From),
			Payload:       cq.Data,
			InteractionID: cq.ID,
		}, true
	}

	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return models.Inbound{}, false
	}
	in := models.Inbound{
		ID:       fmt.Sprint(upd.UpdateID),
		ChatID:   msg.Chat.ID,
		Username: userName(msg.From),
	}
	switch {
	case msg.IsCommand():
		in.Kind = models.InboundCommand
		in.Command = msg.Command()
	case msg.Video != nil:
		in.Kind = models.InboundVideo
		in.FileID = msg.Video.FileID
	case msg.Text != "":
		in.Kind = models.InboundText
		in.Text = msg.Text
	default:
		return models.Inbound{}, false
	}
	return in, true
}

func userName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}

// requestFile picks the upload form of m: an existing file id, a URL or a
// local path, in that order.
func requestFile(m models.Media) (tgbotapi.RequestFileData, error) {
	switch {
	case m.FileID != "":
		return tgbotapi.FileID(m.FileID), nil
	case m.URL != "":
		return tgbotapi.FileURL(m.URL), nil
	case m.Path != "":
		return tgbotapi.FilePath(m.Path), nil
	}
	return nil, fmt.Errorf("no media reference")
}

func inlineKeyboard(rows [][]models.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]tgbotapi.InlineKeyboardButton, len(row))
		for i, b := range row {
			r[i] = tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Payload)
		}
		kb = append(kb, r)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(kb...)
	return &markup
}
