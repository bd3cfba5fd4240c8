package integration

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

type fakeTelegramAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func (f *fakeTelegramAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegramAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegramAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeTelegramAPI) StopReceivingUpdates() { f.stopped = true }

func TestNewTelegramGateway_RequiresToken(t *testing.T) {
	if _, err := NewTelegramGateway(""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestTelegramGateway_SendText(t *testing.T) {
	api := &fakeTelegramAPI{}
	gw := &TelegramGateway{api: api}

	err := gw.SendText(context.Background(), 5, "*Рука*", core.SendOptions{
		ParseMode:      models.ParseMarkdown,
		Buttons:        [][]models.Button{{{Text: "Кисть", Payload: "arms_hand"}}, {{Text: "Назад", Payload: "back"}}},
		DisablePreview: true,
	})
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("got %d sends, want 1", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", api.sent[0])
	}
	if msg.ChatID != 5 || msg.Text != "*Рука*" || msg.ParseMode != "Markdown" || !msg.DisableWebPagePreview {
		t.Errorf("message = %+v", msg)
	}
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("reply markup %T, want InlineKeyboardMarkup", msg.ReplyMarkup)
	}
	if len(kb.InlineKeyboard) != 2 || *kb.InlineKeyboard[0][0].CallbackData != "arms_hand" {
		t.Errorf("keyboard = %+v", kb.InlineKeyboard)
	}
}

func TestTelegramGateway_PlainTextHasNoKeyboard(t *testing.T) {
	api := &fakeTelegramAPI{}
	gw := &TelegramGateway{api: api}

	if err := gw.SendText(context.Background(), 5, "hi", core.SendOptions{}); err != nil {
		t.Fatal(err)
	}
	msg := api.sent[0].(tgbotapi.MessageConfig)
	if msg.ReplyMarkup != nil {
		t.Errorf("reply markup = %+v, want nil", msg.ReplyMarkup)
	}
	if msg.ParseMode != "" {
		t.Errorf("parse mode = %q, want empty", msg.ParseMode)
	}
}

func TestTelegramGateway_SendVideo(t *testing.T) {
	api := &fakeTelegramAPI{}
	gw := &TelegramGateway{api: api}

	if err := gw.SendVideo(context.Background(), 9, models.Media{FileID: "FILE-1", URL: "http://x"}, "cap", core.SendOptions{}); err != nil {
		t.Fatalf("SendVideo: %v", err)
	}
	v, ok := api.sent[0].(tgbotapi.VideoConfig)
	if !ok {
		t.Fatalf("sent %T, want VideoConfig", api.sent[0])
	}
	if v.File != tgbotapi.FileID("FILE-1") || v.Caption != "cap" {
		t.Errorf("video = %+v", v)
	}

	if err := gw.SendVideo(context.Background(), 9, models.Media{}, "", core.SendOptions{}); err == nil {
		t.Error("expected error for empty media")
	}
}

func TestTelegramGateway_SendPhotoFromPath(t *testing.T) {
	api := &fakeTelegramAPI{}
	gw := &TelegramGateway{api: api}

	if err := gw.SendPhoto(context.Background(), 9, models.Media{Path: "images/welcome.png"}, "", core.SendOptions{}); err != nil {
		t.Fatalf("SendPhoto: %v", err)
	}
	p, ok := api.sent[0].(tgbotapi.PhotoConfig)
	if !ok {
		t.Fatalf("sent %T, want PhotoConfig", api.sent[0])
	}
	if p.File != tgbotapi.FilePath("images/welcome.png") {
		t.Errorf("photo file = %+v", p.File)
	}
}

func TestTelegramGateway_SendError(t *testing.T) {
	api := &fakeTelegramAPI{sendErr: errors.New("Bad Request: can't parse entities")}
	gw := &TelegramGateway{api: api}

	err := gw.SendText(context.Background(), 1, "*broken", core.SendOptions{ParseMode: models.ParseMarkdown})
	if !errors.Is(err, api.sendErr) {
		t.Errorf("error = %v, want wrapped send error", err)
	}
}

func TestTelegramGateway_Requests(t *testing.T) {
	api := &fakeTelegramAPI{}
	gw := &TelegramGateway{api: api}
	ctx := context.Background()

	if err := gw.AnswerInteraction(ctx, "cb-1", "notice"); err != nil {
		t.Fatal(err)
	}
	if err := gw.RegisterCommands(ctx, core.BotCommands); err != nil {
		t.Fatal(err)
	}
	if len(api.requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(api.requests))
	}
	cb, ok := api.requests[0].(tgbotapi.CallbackConfig)
	if !ok || cb.CallbackQueryID != "cb-1" || cb.Text != "notice" {
		t.Errorf("callback = %+v", api.requests[0])
	}
	cmds, ok := api.requests[1].(tgbotapi.SetMyCommandsConfig)
	if !ok || len(cmds.Commands) != len(core.BotCommands) {
		t.Errorf("commands = %+v", api.requests[1])
	}
}

func commandMessage(text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: 11},
		From:     &tgbotapi.User{UserName: "patient"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func TestInboundFromUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update tgbotapi.Update
		want   models.Inbound
		ok     bool
	}{
		{
			name:   "command",
			update: tgbotapi.Update{UpdateID: 1, Message: commandMessage("/start")},
			want:   models.Inbound{ID: "1", Kind: models.InboundCommand, ChatID: 11, Username: "patient", Command: "start"},
			ok:     true,
		},
		{
			name:   "command addressed to the bot",
			update: tgbotapi.Update{UpdateID: 2, Message: commandMessage("/leg@limbguide_bot")},
			want:   models.Inbound{ID: "2", Kind: models.InboundCommand, ChatID: 11, Username: "patient", Command: "leg"},
			ok:     true,
		},
		{
			name: "text",
			update: tgbotapi.Update{UpdateID: 3, Message: &tgbotapi.Message{
				Text: "https://example.com/v.mp4", Chat: &tgbotapi.Chat{ID: 11},
			}},
			want: models.Inbound{ID: "3", Kind: models.InboundText, ChatID: 11, Text: "https://example.com/v.mp4"},
			ok:   true,
		},
		{
			name: "video",
			update: tgbotapi.Update{UpdateID: 4, Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 11}, Video: &tgbotapi.Video{FileID: "VID"},
			}},
			want: models.Inbound{ID: "4", Kind: models.InboundVideo, ChatID: 11, FileID: "VID"},
			ok:   true,
		},
		{
			name: "callback",
			update: tgbotapi.Update{UpdateID: 5, CallbackQuery: &tgbotapi.CallbackQuery{
				ID: "cq", Data: "legs", From: &tgbotapi.User{UserName: "WebDwarf"},
				Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 12}},
			}},
			want: models.Inbound{ID: "5", Kind: models.InboundCallback, ChatID: 12, Username: "WebDwarf", Payload: "legs", InteractionID: "cq"},
			ok:   true,
		},
		{
			name:   "sticker only",
			update: tgbotapi.Update{UpdateID: 6, Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 11}}},
		},
		{
			name:   "edited message",
			update: tgbotapi.Update{UpdateID: 7, EditedMessage: &tgbotapi.Message{Text: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := inboundFromUpdate(tt.update)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTelegramGateway_Listen(t *testing.T) {
	api := &fakeTelegramAPI{updates: make(chan tgbotapi.Update, 3)}
	gw := &TelegramGateway{api: api}

	api.updates <- tgbotapi.Update{UpdateID: 1, Message: commandMessage("/start")}
	api.updates <- tgbotapi.Update{UpdateID: 2, EditedMessage: &tgbotapi.Message{Text: "x"}}
	api.updates <- tgbotapi.Update{UpdateID: 3, Message: commandMessage("/hand")}
	close(api.updates)

	var got []string
	err := gw.Listen(context.Background(), func(_ context.Context, in models.Inbound) {
		got = append(got, in.Command)
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if len(got) != 2 || got[0] != "start" || got[1] != "hand" {
		t.Errorf("handled %v, want [start hand]", got)
	}
	if !api.stopped {
		t.Error("updates were not stopped")
	}
}
