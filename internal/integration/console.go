package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// ConsoleChatID is the chat id of the single local console conversation.
const ConsoleChatID int64 = 1

// lineReader is the subset of *readline.Instance the console uses.
type lineReader interface {
	Readline() (string, error)
	Close() error
}

// ConsoleConfig configures the interactive console gateway.
type ConsoleConfig struct {
	Username    string
	HistoryFile string
}

// ConsoleGateway implements core.Gateway on the terminal. Lines starting
// with "/" are commands, "#N" presses the N-th button of the last keyboard,
// "#payload" sends a raw button payload, "!video <file_id>" simulates an
// upload and anything else is plain text.
type ConsoleGateway struct {
	in       lineReader
	out      io.Writer
	username string

	mu      sync.Mutex
	buttons []models.Button
	seq     int
}

var _ core.Gateway = (*ConsoleGateway)(nil)

// NewConsoleGateway opens a readline prompt on the terminal.
func NewConsoleGateway(cfg ConsoleConfig) (*ConsoleGateway, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     cfg.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("creating console gateway: %w", err)
	}
	return newConsoleGateway(rl, rl.Stdout(), cfg.Username), nil
}

func newConsoleGateway(in lineReader, out io.Writer, username string) *ConsoleGateway {
	return &ConsoleGateway{in: in, out: out, username: username}
}

func (c *ConsoleGateway) Name() string {
	return string(models.GatewayConsole)
}

func (c *ConsoleGateway) SendText(_ context.Context, _ int64, text string, opts core.SendOptions) error {
	c.print("", text, opts.Buttons)
	return nil
}

func (c *ConsoleGateway) SendPhoto(_ context.Context, _ int64, photo models.Media, caption string, opts core.SendOptions) error {
	c.print("[photo "+mediaRef(photo)+"]", caption, opts.Buttons)
	return nil
}

func (c *ConsoleGateway) SendVideo(_ context.Context, _ int64, video models.Media, caption string, opts core.SendOptions) error {
	c.print("[video "+mediaRef(video)+"]", caption, opts.Buttons)
	return nil
}

func (c *ConsoleGateway) AnswerInteraction(_ context.Context, _ string, text string) error {
	if text != "" {
		c.print("", "("+text+")", nil)
	}
	return nil
}

func (c *ConsoleGateway) RegisterCommands(_ context.Context, commands []models.BotCommand) error {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "\n  /%s  %s", cmd.Command, cmd.Description)
	}
	c.print("", b.String(), nil)
	return nil
}

// Listen reads lines until EOF, an interrupt or ctx cancellation.
func (c *ConsoleGateway) Listen(ctx context.Context, handler core.Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = c.in.Close() })
	defer stop()

	for {
		line, err := c.in.Readline()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading console input: %w", err)
		}

		in, ok, perr := c.parseLine(line)
		if perr != nil {
			c.print("", perr.Error(), nil)
			continue
		}
		if ok {
			handler(ctx, in)
		}
	}
}

// parseLine converts one console line into an inbound event.
func (c *ConsoleGateway) parseLine(line string) (models.Inbound, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return models.Inbound{}, false, nil
	}

	c.mu.Lock()
	c.seq++
	in := models.Inbound{
		ID:       "console-" + strconv.Itoa(c.seq),
		ChatID:   ConsoleChatID,
		Username: c.username,
	}
	buttons := c.buttons
	c.mu.Unlock()

	switch {
	case strings.HasPrefix(line, "/"):
		name, _, _ := strings.Cut(line[1:], " ")
		if name == "" {
			return models.Inbound{}, false, fmt.Errorf("empty command")
		}
		in.Kind = models.InboundCommand
		in.Command = name
	case strings.HasPrefix(line, "#"):
		ref := strings.TrimSpace(line[1:])
		payload := ref
		if n, err := strconv.Atoi(ref); err == nil {
			if n < 1 || n > len(buttons) {
				return models.Inbound{}, false, fmt.Errorf("no button #%d", n)
			}
			payload = buttons[n-1].Payload
		}
		if payload == "" {
			return models.Inbound{}, false, fmt.Errorf("empty button reference")
		}
		in.Kind = models.InboundCallback
		in.Payload = payload
		in.InteractionID = in.ID
	case strings.HasPrefix(line, "!video"):
		fileID := strings.TrimSpace(strings.TrimPrefix(line, "!video"))
		if fileID == "" {
			return models.Inbound{}, false, fmt.Errorf("usage: !video <file_id>")
		}
		in.Kind = models.InboundVideo
		in.FileID = fileID
	default:
		in.Kind = models.InboundText
		in.Text = line
	}
	return in, true, nil
}

// print writes one message and numbers its buttons. A message with buttons
// replaces the keyboard that "#N" refers to.
func (c *ConsoleGateway) print(prefix, text string, rows [][]models.Button) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.WriteByte('\n')
	if prefix != "" {
		b.WriteString(prefix)
		if text != "" {
			b.WriteByte(' ')
		}
	}
	b.WriteString(text)
	b.WriteByte('\n')

	if len(rows) > 0 {
		c.buttons = c.buttons[:0:0]
		for _, row := range rows {
			cells := make([]string, len(row))
			for i, btn := range row {
				c.buttons = append(c.buttons, btn)
				cells[i] = fmt.Sprintf("[%d] %s", len(c.buttons), btn.Text)
			}
			b.WriteString("  " + strings.Join(cells, "   ") + "\n")
		}
	}
	_, _ = io.WriteString(c.out, b.String())
}

func mediaRef(m models.Media) string {
	switch {
	case m.FileID != "":
		return m.FileID
	case m.URL != "":
		return m.URL
	}
	return m.Path
}
