package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// BotCommands are advertised to the chat client at startup.
var BotCommands = []models.BotCommand{
	{Command: "start", Description: "Главное меню"},
	{Command: "hand", Description: "Руки"},
	{Command: "leg", Description: "Ноги"},
	{Command: "admin", Description: "Панель администратора"},
}

// Dispatcher routes inbound events to the navigator or the admin wizard and
// delivers the replies. Each event is handled in isolation: errors and
// panics end that event only.
type Dispatcher struct {
	gw     Gateway
	nav    *Navigator
	admin  *AdminWizard
	logger EventLogger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(gw Gateway, nav *Navigator, admin *AdminWizard, logger EventLogger) *Dispatcher {
	return &Dispatcher{gw: gw, nav: nav, admin: admin, logger: orNop(logger)}
}

// Run registers the bot commands and serves events until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.gw.RegisterCommands(ctx, BotCommands); err != nil {
		_ = d.logger.LogError("delivery.failed", err, map[string]any{"kind": "commands", "gateway": d.gw.Name()})
	}
	if err := d.gw.Listen(ctx, d.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("listening on %s: %w", d.gw.Name(), err)
	}
	return nil
}

type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Handle processes one inbound event to completion.
func (d *Dispatcher) Handle(ctx context.Context, in models.Inbound) {
	resp, adminRoute, err := d.route(in)
	if err != nil {
		resp = d.fail(in, adminRoute, err)
	}
	d.deliver(ctx, in, resp)
}

func (d *Dispatcher) route(in models.Inbound) (resp Response, adminRoute bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: string(debug.Stack())}
		}
	}()

	switch in.Kind {
	case models.InboundCommand:
		switch strings.ToLower(strings.TrimPrefix(in.Command, "/")) {
		case "start":
			resp, err = d.nav.Start(in.ChatID)
		case "hand":
			resp, err = d.nav.LimbShortcut(in.ChatID, models.LimbArms)
		case "leg":
			resp, err = d.nav.LimbShortcut(in.ChatID, models.LimbLegs)
		case "admin":
			adminRoute = true
			resp, err = d.admin.HandleCommand(in.ChatID, in.Username)
		}
	case models.InboundCallback:
		switch {
		case IsAdminPayload(in.Payload):
			adminRoute = true
			resp, err = d.admin.HandleCallback(in.ChatID, in.Username, in.Payload)
		case in.Payload == PayloadBack:
			resp, err = d.nav.Back(in.ChatID)
		default:
			resp, err = d.nav.Select(in.ChatID, in.Payload)
		}
	case models.InboundText:
		adminRoute = true
		resp, err = d.admin.HandleText(in.ChatID, in.Username, in.Text)
	case models.InboundVideo:
		adminRoute = true
		resp, err = d.admin.HandleVideo(in.ChatID, in.Username, in.FileID)
	}
	return resp, adminRoute, err
}

// fail logs err, resets the wizard where one may be active and returns the
// message shown to the user.
func (d *Dispatcher) fail(in models.Inbound, adminRoute bool, err error) Response {
	fe := AsFlowError(err)
	data := map[string]any{
		"chat_id": in.ChatID,
		"event":   string(in.Kind),
		"kind":    string(fe.Kind),
	}

	var pe *panicError
	panicked := errors.As(err, &pe)
	if panicked {
		data["stack"] = pe.stack
		_ = d.logger.LogError("dispatch.panic", err, data)
	} else {
		_ = d.logger.LogError("flow.error", err, data)
	}

	if (adminRoute || panicked) && d.admin.IsAdmin(in.Username) {
		if rerr := d.admin.Reset(in.ChatID); rerr != nil {
			_ = d.logger.LogError("flow.error", rerr, map[string]any{"chat_id": in.ChatID, "kind": "reset"})
		}
	}
	return reply(textReply(fe.Message, nil))
}

func (d *Dispatcher) deliver(ctx context.Context, in models.Inbound, resp Response) {
	if in.Kind == models.InboundCallback {
		if err := d.gw.AnswerInteraction(ctx, in.InteractionID, resp.Answer); err != nil {
			_ = d.logger.LogError("delivery.failed", err, map[string]any{"chat_id": in.ChatID, "kind": "answer"})
		}
	}
	for _, r := range resp.Replies {
		d.send(ctx, in.ChatID, r)
	}
}

// send delivers r, falling back to r.Fallback when the gateway rejects it.
func (d *Dispatcher) send(ctx context.Context, chatID int64, r models.Reply) {
	err := d.sendOne(ctx, chatID, r)
	if err == nil {
		return
	}
	_ = d.logger.LogError("delivery.failed", err, map[string]any{
		"chat_id":  chatID,
		"kind":     string(r.Kind),
		"fallback": r.Fallback != nil,
	})
	if r.Fallback != nil {
		d.send(ctx, chatID, *r.Fallback)
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, chatID int64, r models.Reply) error {
	opts := SendOptions{ParseMode: r.ParseMode, Buttons: r.Buttons, DisablePreview: r.DisablePreview}
	switch r.Kind {
	case models.ReplyPhoto:
		return d.gw.SendPhoto(ctx, chatID, r.Media, r.Text, opts)
	case models.ReplyVideo:
		return d.gw.SendVideo(ctx, chatID, r.Media, r.Text, opts)
	default:
		return d.gw.SendText(ctx, chatID, r.Text, opts)
	}
}
