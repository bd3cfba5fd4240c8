package cli

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/internal/storage"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// scriptGateway delivers a fixed list of inbound events, then returns.
type scriptGateway struct {
	name   string
	script []models.Inbound

	mu       sync.Mutex
	texts    []string
	commands []models.BotCommand
}

func (g *scriptGateway) Name() string { return g.name }

func (g *scriptGateway) SendText(_ context.Context, _ int64, text string, _ core.SendOptions) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.texts = append(g.texts, text)
	return nil
}

func (g *scriptGateway) SendPhoto(_ context.Context, _ int64, _ models.Media, caption string, _ core.SendOptions) error {
	return g.SendText(context.Background(), 0, caption, core.SendOptions{})
}

func (g *scriptGateway) SendVideo(_ context.Context, _ int64, _ models.Media, caption string, _ core.SendOptions) error {
	return g.SendText(context.Background(), 0, caption, core.SendOptions{})
}

func (g *scriptGateway) AnswerInteraction(context.Context, string, string) error { return nil }

func (g *scriptGateway) RegisterCommands(_ context.Context, commands []models.BotCommand) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commands = commands
	return nil
}

func (g *scriptGateway) Listen(ctx context.Context, handler core.Handler) error {
	for _, in := range g.script {
		handler(ctx, in)
	}
	return nil
}

func withBotServices(t *testing.T) {
	t.Helper()
	origNav, origAdmin, origReg, origConfig := Navigator, Admin, GatewayReg, Config
	origConsole := OpenConsole
	t.Cleanup(func() {
		Navigator, Admin, GatewayReg, Config = origNav, origAdmin, origReg, origConfig
		OpenConsole = origConsole
	})

	tree := &fakeTreeStore{tree: sampleTree()}
	Navigator = core.NewNavigator(tree, storage.NewMemoryStateStore[core.NavState](), nil, models.Media{})
	Admin = core.NewAdminWizard(tree, storage.NewMemoryStateStore[core.AdminSession](),
		core.NewAccessList([]string{"WebDwarf"}), nil, core.DefaultOutlineDepth, core.DefaultChunkSize)
	Config = &models.GlobalConfig{Bot: models.BotConfig{Gateway: models.GatewayFile}}
}

func startScript() []models.Inbound {
	return []models.Inbound{{ID: "1", Kind: models.InboundCommand, ChatID: 7, Username: "patient", Command: "start"}}
}

func TestServeCmd_UsesConfiguredGateway(t *testing.T) {
	withBotServices(t)
	origGateway := serveGateway
	defer func() { serveGateway = origGateway }()
	serveGateway = ""

	gw := &scriptGateway{name: "file", script: startScript()}
	reg := core.NewGatewayRegistry()
	if err := reg.Register(models.GatewayFile, func(*models.GlobalConfig) (core.Gateway, error) { return gw, nil }); err != nil {
		t.Fatal(err)
	}
	GatewayReg = reg

	if err := serveCmd.RunE(serveCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.commands) != len(core.BotCommands) {
		t.Errorf("registered %d commands, want %d", len(gw.commands), len(core.BotCommands))
	}
	if len(gw.texts) == 0 {
		t.Error("/start produced no reply")
	}
}

func TestServeCmd_GatewayFlag(t *testing.T) {
	withBotServices(t)
	origGateway := serveGateway
	defer func() { serveGateway = origGateway }()
	serveGateway = "console"

	var opened models.GatewayKind
	reg := core.NewGatewayRegistry()
	for _, kind := range []models.GatewayKind{models.GatewayFile, models.GatewayConsole} {
		kind := kind
		_ = reg.Register(kind, func(*models.GlobalConfig) (core.Gateway, error) {
			opened = kind
			return &scriptGateway{name: string(kind)}, nil
		})
	}
	GatewayReg = reg

	if err := serveCmd.RunE(serveCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opened != models.GatewayConsole {
		t.Errorf("opened %q, want console", opened)
	}
}

func TestServeCmd_OpenError(t *testing.T) {
	withBotServices(t)
	GatewayReg = core.NewGatewayRegistry()

	err := serveCmd.RunE(serveCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("err = %v, want not registered", err)
	}
}

func TestServeCmd_NotInitialized(t *testing.T) {
	withBotServices(t)
	GatewayReg = nil

	if err := serveCmd.RunE(serveCmd, nil); err == nil {
		t.Fatal("expected error when registry is nil")
	}
}

func TestConsoleCmd(t *testing.T) {
	withBotServices(t)
	origAs := consoleAs
	defer func() { consoleAs = origAs }()
	consoleAs = "WebDwarf"

	var gotUser string
	gw := &scriptGateway{name: "console", script: []models.Inbound{
		{ID: "1", Kind: models.InboundCommand, ChatID: 1, Username: "WebDwarf", Command: "admin"},
	}}
	OpenConsole = func(username string) (core.Gateway, error) {
		gotUser = username
		return gw, nil
	}

	if err := consoleCmd.RunE(consoleCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "WebDwarf" {
		t.Errorf("console opened as %q", gotUser)
	}
	if len(gw.texts) == 0 {
		t.Error("/admin produced no reply")
	}
}

func TestConsoleCmd_OpenError(t *testing.T) {
	withBotServices(t)
	OpenConsole = func(string) (core.Gateway, error) { return nil, errors.New("no tty") }

	if err := consoleCmd.RunE(consoleCmd, nil); err == nil || err.Error() != "no tty" {
		t.Errorf("err = %v", err)
	}
}

func TestRunBot_NotInitialized(t *testing.T) {
	withBotServices(t)
	Navigator = nil

	if err := runBot(context.Background(), &scriptGateway{name: "x"}); err == nil {
		t.Fatal("expected error when navigator is nil")
	}
}
