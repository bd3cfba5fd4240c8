package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// timeNow is the clock used for outbox names and dates. Tests replace it.
var timeNow = time.Now

// Inbox item statuses.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusSent      = "sent"
)

// DefaultPollInterval is how often the inbox is scanned when none is configured.
const DefaultPollInterval = 2 * time.Second

// FileGatewayConfig holds the paths for the file-based gateway.
type FileGatewayConfig struct {
	Name         string
	BaseDir      string // Parent directory; inbox/ and outbox/ are created beneath it.
	PollInterval time.Duration
}

// FileGateway implements core.Gateway using markdown files with YAML
// frontmatter. Inbound events are read from an inbox directory and replies
// are written to an outbox directory, which makes the bot scriptable
// without a chat service.
type FileGateway struct {
	name      string
	baseDir   string
	inboxDir  string
	outboxDir string
	poll      time.Duration

	mu  sync.Mutex
	seq int
}

var _ core.Gateway = (*FileGateway)(nil)

// NewFileGateway creates a file gateway that reads from baseDir/inbox/ and
// writes to baseDir/outbox/.
func NewFileGateway(cfg FileGatewayConfig) (*FileGateway, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("creating file gateway: name is empty")
	}
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("creating file gateway: base dir is empty")
	}

	inboxDir := filepath.Join(cfg.BaseDir, "inbox")
	outboxDir := filepath.Join(cfg.BaseDir, "outbox")

	for _, dir := range []string{inboxDir, outboxDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating file gateway directory %s: %w", dir, err)
		}
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	return &FileGateway{
		name:      cfg.Name,
		baseDir:   cfg.BaseDir,
		inboxDir:  inboxDir,
		outboxDir: outboxDir,
		poll:      poll,
	}, nil
}

func (g *FileGateway) Name() string {
	return g.name
}

// inboxFrontmatter describes one inbound event. The markdown body is the
// message text.
type inboxFrontmatter struct {
	ID            string             `yaml:"id"`
	Kind          models.InboundKind `yaml:"kind"`
	ChatID        int64              `yaml:"chat_id"`
	From          string             `yaml:"from,omitempty"`
	Command       string             `yaml:"command,omitempty"`
	Payload       string             `yaml:"payload,omitempty"`
	InteractionID string             `yaml:"interaction_id,omitempty"`
	FileID        string             `yaml:"file_id,omitempty"`
	Date          string             `yaml:"date,omitempty"`
	Status        string             `yaml:"status"`
}

// outboxFrontmatter describes one delivered reply or button acknowledgement.
type outboxFrontmatter struct {
	ID             string            `yaml:"id"`
	ChatID         int64             `yaml:"chat_id"`
	Kind           string            `yaml:"kind"`
	Date           string            `yaml:"date"`
	Status         string            `yaml:"status"`
	ParseMode      models.ParseMode  `yaml:"parse_mode,omitempty"`
	Media          *models.Media     `yaml:"media,omitempty"`
	Buttons        [][]models.Button `yaml:"buttons,omitempty"`
	DisablePreview bool              `yaml:"disable_preview,omitempty"`
	InteractionID  string            `yaml:"interaction_id,omitempty"`
}

// pendingItem is an inbox file waiting to be handled.
type pendingItem struct {
	path string
	in   models.Inbound
}

// Fetch reads all pending markdown files from the inbox directory in file
// name order. Malformed files are skipped.
func (g *FileGateway) Fetch() ([]models.Inbound, error) {
	items, err := g.pending()
	if err != nil {
		return nil, err
	}
	out := make([]models.Inbound, len(items))
	for i, it := range items {
		out[i] = it.in
	}
	return out, nil
}

func (g *FileGateway) pending() ([]pendingItem, error) {
	entries, err := os.ReadDir(g.inboxDir)
	if err != nil {
		return nil, fmt.Errorf("reading inbox directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var items []pendingItem
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		filePath := filepath.Join(g.inboxDir, entry.Name())
		fm, in, err := parseInboxFile(filePath)
		if err != nil {
			continue
		}
		if strings.EqualFold(fm.Status, StatusPending) || fm.Status == "" {
			items = append(items, pendingItem{path: filePath, in: in})
		}
	}
	return items, nil
}

// Listen hands every pending inbox item to handler, marks it processed and
// polls for more until ctx is cancelled.
func (g *FileGateway) Listen(ctx context.Context, handler core.Handler) error {
	ticker := time.NewTicker(g.poll)
	defer ticker.Stop()

	for {
		if err := g.Drain(ctx, handler); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain handles the currently pending inbox items once.
func (g *FileGateway) Drain(ctx context.Context, handler core.Handler) error {
	items, err := g.pending()
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		handler(ctx, it.in)
		if err := markProcessed(it.path); err != nil {
			return err
		}
	}
	return nil
}

func (g *FileGateway) SendText(ctx context.Context, chatID int64, text string, opts core.SendOptions) error {
	return g.send(ctx, outboxFrontmatter{
		ChatID:         chatID,
		Kind:           string(models.ReplyText),
		ParseMode:      opts.ParseMode,
		Buttons:        opts.Buttons,
		DisablePreview: opts.DisablePreview,
	}, text)
}

func (g *FileGateway) SendPhoto(ctx context.Context, chatID int64, photo models.Media, caption string, opts core.SendOptions) error {
	return g.sendMedia(ctx, chatID, models.ReplyPhoto, photo, caption, opts)
}

func (g *FileGateway) SendVideo(ctx context.Context, chatID int64, video models.Media, caption string, opts core.SendOptions) error {
	return g.sendMedia(ctx, chatID, models.ReplyVideo, video, caption, opts)
}

func (g *FileGateway) sendMedia(ctx context.Context, chatID int64, kind models.ReplyKind, media models.Media, caption string, opts core.SendOptions) error {
	if media.IsZero() {
		return fmt.Errorf("sending %s: no media reference", kind)
	}
	if media.Path != "" {
		if _, err := os.Stat(media.Path); err != nil {
			return fmt.Errorf("sending %s: %w", kind, err)
		}
	}
	return g.send(ctx, outboxFrontmatter{
		ChatID:    chatID,
		Kind:      string(kind),
		ParseMode: opts.ParseMode,
		Media:     &media,
		Buttons:   opts.Buttons,
	}, caption)
}

// AnswerInteraction records button acknowledgements that carry a notice.
func (g *FileGateway) AnswerInteraction(ctx context.Context, interactionID, text string) error {
	if text == "" {
		return ctx.Err()
	}
	return g.send(ctx, outboxFrontmatter{Kind: "answer", InteractionID: interactionID}, text)
}

// RegisterCommands writes the advertised commands to commands.yaml.
func (g *FileGateway) RegisterCommands(ctx context.Context, commands []models.BotCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := yaml.Marshal(commands)
	if err != nil {
		return fmt.Errorf("marshaling commands: %w", err)
	}
	if err := os.WriteFile(filepath.Join(g.baseDir, "commands.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("writing commands file: %w", err)
	}
	return nil
}

// send writes fm and body as a markdown file in the outbox directory.
func (g *FileGateway) send(ctx context.Context, fm outboxFrontmatter, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := timeNow().UTC()
	g.mu.Lock()
	g.seq++
	fm.ID = fmt.Sprintf("out-%d-%04d", now.UnixNano(), g.seq)
	g.mu.Unlock()
	fm.Date = now.Format(time.RFC3339)
	fm.Status = StatusSent

	content, err := renderFile(fm, body)
	if err != nil {
		return fmt.Errorf("rendering outbox file: %w", err)
	}

	filePath := filepath.Join(g.outboxDir, fm.ID+".md")
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing outbox file: %w", err)
	}
	return nil
}

// parseInboxFile reads a markdown file with YAML frontmatter and converts it
// to an inbound event.
func parseInboxFile(filePath string) (inboxFrontmatter, models.Inbound, error) {
	var fm inboxFrontmatter
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fm, models.Inbound{}, fmt.Errorf("reading file %s: %w", filePath, err)
	}

	body, err := parseFrontmatter(string(data), &fm)
	if err != nil {
		return fm, models.Inbound{}, fmt.Errorf("parsing frontmatter in %s: %w", filePath, err)
	}

	switch fm.Kind {
	case models.InboundCommand, models.InboundText, models.InboundCallback, models.InboundVideo:
	default:
		return fm, models.Inbound{}, fmt.Errorf("inbox file %s: unknown kind %q", filePath, fm.Kind)
	}

	in := models.Inbound{
		ID:            fm.ID,
		Kind:          fm.Kind,
		ChatID:        fm.ChatID,
		Username:      fm.From,
		Command:       strings.TrimPrefix(fm.Command, "/"),
		Text:          strings.TrimRight(body, "\n"),
		Payload:       fm.Payload,
		InteractionID: fm.InteractionID,
		FileID:        fm.FileID,
	}

	// Use filename as ID if frontmatter ID is empty.
	if in.ID == "" {
		in.ID = strings.TrimSuffix(filepath.Base(filePath), ".md")
	}
	if in.Kind == models.InboundCallback && in.InteractionID == "" {
		in.InteractionID = in.ID
	}
	return fm, in, nil
}

// markProcessed updates the status in the frontmatter of an inbox file.
func markProcessed(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading inbox file: %w", err)
	}

	var fm inboxFrontmatter
	body, err := parseFrontmatter(string(data), &fm)
	if err != nil {
		return fmt.Errorf("parsing frontmatter: %w", err)
	}

	fm.Status = StatusProcessed

	content, err := renderFile(fm, body)
	if err != nil {
		return fmt.Errorf("rendering updated file: %w", err)
	}

	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing updated inbox file: %w", err)
	}
	return nil
}

// renderFile produces a markdown string with YAML frontmatter.
func renderFile(fm any, body string) (string, error) {
	fmBytes, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshaling frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(fmBytes)
	sb.WriteString("---\n\n")
	sb.WriteString(body)

	return sb.String(), nil
}

// parseFrontmatter splits a markdown file into its YAML frontmatter, decoded
// into fm, and its body. The frontmatter is delimited by "---" lines.
func parseFrontmatter(content string, fm any) (string, error) {
	if !strings.HasPrefix(content, "---\n") {
		return content, fmt.Errorf("no frontmatter delimiter found")
	}

	rest := content[4:] // Skip opening "---\n"
	idx := strings.Index(rest, "\n---\n")
	if idx < 0 {
		if strings.HasSuffix(rest, "\n---") {
			idx = len(rest) - 4
		} else {
			return content, fmt.Errorf("no closing frontmatter delimiter found")
		}
	}

	fmStr := rest[:idx]
	body := ""
	if idx+5 <= len(rest) {
		body = strings.TrimLeft(rest[idx+5:], "\n")
	}

	if err := yaml.Unmarshal([]byte(fmStr), fm); err != nil {
		return body, fmt.Errorf("unmarshaling frontmatter: %w", err)
	}
	return body, nil
}
