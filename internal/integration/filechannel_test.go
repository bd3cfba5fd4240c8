package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

func TestNewFileGateway(t *testing.T) {
	t.Run("creates inbox and outbox directories", func(t *testing.T) {
		dir := t.TempDir()
		gw, err := NewFileGateway(FileGatewayConfig{Name: "test", BaseDir: dir})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gw.Name() != "test" {
			t.Errorf("got name %q, want %q", gw.Name(), "test")
		}
		if gw.poll != DefaultPollInterval {
			t.Errorf("got poll interval %v, want %v", gw.poll, DefaultPollInterval)
		}

		for _, sub := range []string{"inbox", "outbox"} {
			info, err := os.Stat(filepath.Join(dir, sub))
			if err != nil {
				t.Errorf("expected %s directory to exist: %v", sub, err)
			} else if !info.IsDir() {
				t.Errorf("expected %s to be a directory", sub)
			}
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		if _, err := NewFileGateway(FileGatewayConfig{BaseDir: t.TempDir()}); err == nil {
			t.Fatal("expected error for empty name")
		}
	})

	t.Run("rejects empty base dir", func(t *testing.T) {
		if _, err := NewFileGateway(FileGatewayConfig{Name: "test"}); err == nil {
			t.Fatal("expected error for empty base dir")
		}
	})
}

func newFileGateway(t *testing.T) (*FileGateway, string) {
	t.Helper()
	dir := t.TempDir()
	gw, err := NewFileGateway(FileGatewayConfig{Name: "test", BaseDir: dir, PollInterval: time.Millisecond})
	if err != nil {
		t.Fatalf("NewFileGateway: %v", err)
	}
	return gw, dir
}

func writeInbox(t *testing.T, dir, name, frontmatter, body string) {
	t.Helper()
	content := "---\n" + frontmatter + "\n---\n\n" + body
	if err := os.WriteFile(filepath.Join(dir, "inbox", name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func outboxFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, "outbox"))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, filepath.Join(dir, "outbox", e.Name()))
	}
	return names
}

func readOutbox(t *testing.T, path string) (outboxFrontmatter, string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var fm outboxFrontmatter
	body, err := parseFrontmatter(string(data), &fm)
	if err != nil {
		t.Fatalf("parsing outbox file: %v", err)
	}
	return fm, body
}

func TestFileGateway_Fetch(t *testing.T) {
	t.Run("returns pending items in file name order", func(t *testing.T) {
		gw, dir := newFileGateway(t)
		writeInbox(t, dir, "002.md", "id: b\nkind: text\nchat_id: 7\nfrom: alice\nstatus: pending", "hello")
		writeInbox(t, dir, "001.md", "id: a\nkind: command\nchat_id: 7\ncommand: /start\nstatus: pending", "")
		writeInbox(t, dir, "003.md", "id: c\nkind: text\nchat_id: 7\nstatus: processed", "old")

		items, err := gw.Fetch()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("got %d items, want 2", len(items))
		}
		if items[0].ID != "a" || items[0].Command != "start" {
			t.Errorf("first item = %+v, want command start", items[0])
		}
		if items[1].Text != "hello" || items[1].Username != "alice" || items[1].ChatID != 7 {
			t.Errorf("second item = %+v", items[1])
		}
	})

	t.Run("skips malformed files and unknown kinds", func(t *testing.T) {
		gw, dir := newFileGateway(t)
		if err := os.WriteFile(filepath.Join(dir, "inbox", "bad.md"), []byte("no frontmatter"), 0o644); err != nil {
			t.Fatal(err)
		}
		writeInbox(t, dir, "odd.md", "id: x\nkind: sticker\nchat_id: 1\nstatus: pending", "")
		if err := os.WriteFile(filepath.Join(dir, "inbox", "notes.txt"), []byte("ignored"), 0o644); err != nil {
			t.Fatal(err)
		}

		items, err := gw.Fetch()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("got %d items, want 0", len(items))
		}
	})

	t.Run("falls back to the file name for ids", func(t *testing.T) {
		gw, dir := newFileGateway(t)
		writeInbox(t, dir, "press-1.md", "kind: callback\nchat_id: 3\npayload: legs", "")

		items, err := gw.Fetch()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 1 {
			t.Fatalf("got %d items, want 1", len(items))
		}
		if items[0].ID != "press-1" || items[0].InteractionID != "press-1" {
			t.Errorf("got id %q interaction %q, want press-1", items[0].ID, items[0].InteractionID)
		}
	})
}

func TestFileGateway_Drain(t *testing.T) {
	gw, dir := newFileGateway(t)
	writeInbox(t, dir, "001.md", "id: a\nkind: command\nchat_id: 7\ncommand: start\nstatus: pending", "")
	writeInbox(t, dir, "002.md", "id: b\nkind: video\nchat_id: 7\nfile_id: VID\nstatus: pending", "")

	var got []models.Inbound
	err := gw.Drain(context.Background(), func(_ context.Context, in models.Inbound) {
		got = append(got, in)
	})
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(got) != 2 || got[1].FileID != "VID" {
		t.Fatalf("handled %+v", got)
	}

	items, err := gw.Fetch()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Errorf("got %d pending items after drain, want 0", len(items))
	}

	data, err := os.ReadFile(filepath.Join(dir, "inbox", "001.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "status: processed") {
		t.Errorf("inbox file not marked processed:\n%s", data)
	}
}

func TestFileGateway_ListenStopsOnCancel(t *testing.T) {
	gw, dir := newFileGateway(t)
	writeInbox(t, dir, "001.md", "id: a\nkind: text\nchat_id: 1\nstatus: pending", "hi")

	ctx, cancel := context.WithCancel(context.Background())
	handled := 0
	err := gw.Listen(ctx, func(context.Context, models.Inbound) {
		handled++
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Listen error = %v, want context.Canceled", err)
	}
	if handled != 1 {
		t.Errorf("handled %d events, want 1", handled)
	}
}

func TestFileGateway_SendText(t *testing.T) {
	gw, dir := newFileGateway(t)
	buttons := [][]models.Button{{{Text: "Назад", Payload: "back"}}}

	err := gw.SendText(context.Background(), 42, "*Выберите тему:*", core.SendOptions{
		ParseMode:      models.ParseMarkdown,
		Buttons:        buttons,
		DisablePreview: true,
	})
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}

	files := outboxFiles(t, dir)
	if len(files) != 1 {
		t.Fatalf("got %d outbox files, want 1", len(files))
	}
	fm, body := readOutbox(t, files[0])
	if fm.ChatID != 42 || fm.Kind != "text" || fm.Status != StatusSent {
		t.Errorf("frontmatter = %+v", fm)
	}
	if fm.ParseMode != models.ParseMarkdown || !fm.DisablePreview {
		t.Errorf("formatting lost: %+v", fm)
	}
	if len(fm.Buttons) != 1 || fm.Buttons[0][0].Payload != "back" {
		t.Errorf("buttons = %+v", fm.Buttons)
	}
	if body != "*Выберите тему:*" {
		t.Errorf("body = %q", body)
	}
}

func TestFileGateway_SendMedia(t *testing.T) {
	t.Run("missing local file fails", func(t *testing.T) {
		gw, dir := newFileGateway(t)
		err := gw.SendPhoto(context.Background(), 1, models.Media{Path: filepath.Join(dir, "nope.png")}, "", core.SendOptions{})
		if err == nil {
			t.Fatal("expected error for missing photo")
		}
		if n := len(outboxFiles(t, dir)); n != 0 {
			t.Errorf("got %d outbox files, want 0", n)
		}
	})

	t.Run("empty reference fails", func(t *testing.T) {
		gw, _ := newFileGateway(t)
		if err := gw.SendVideo(context.Background(), 1, models.Media{}, "", core.SendOptions{}); err == nil {
			t.Fatal("expected error for empty media")
		}
	})

	t.Run("uploaded video is recorded", func(t *testing.T) {
		gw, dir := newFileGateway(t)
		if err := gw.SendVideo(context.Background(), 1, models.Media{FileID: "FILE-1"}, "caption", core.SendOptions{}); err != nil {
			t.Fatalf("SendVideo: %v", err)
		}
		fm, body := readOutbox(t, outboxFiles(t, dir)[0])
		if fm.Kind != "video" || fm.Media == nil || fm.Media.FileID != "FILE-1" || body != "caption" {
			t.Errorf("got %+v body %q", fm, body)
		}
	})
}

func TestFileGateway_AnswerInteraction(t *testing.T) {
	gw, dir := newFileGateway(t)
	ctx := context.Background()

	if err := gw.AnswerInteraction(ctx, "cb-1", ""); err != nil {
		t.Fatal(err)
	}
	if n := len(outboxFiles(t, dir)); n != 0 {
		t.Fatalf("silent acknowledgement wrote %d files", n)
	}

	if err := gw.AnswerInteraction(ctx, "cb-2", "Устарело"); err != nil {
		t.Fatal(err)
	}
	fm, body := readOutbox(t, outboxFiles(t, dir)[0])
	if fm.Kind != "answer" || fm.InteractionID != "cb-2" || body != "Устарело" {
		t.Errorf("got %+v body %q", fm, body)
	}
}

func TestFileGateway_RegisterCommands(t *testing.T) {
	gw, dir := newFileGateway(t)
	if err := gw.RegisterCommands(context.Background(), core.BotCommands); err != nil {
		t.Fatalf("RegisterCommands: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "commands.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range core.BotCommands {
		if !strings.Contains(string(data), "command: "+c.Command) {
			t.Errorf("commands.yaml missing %q:\n%s", c.Command, data)
		}
	}
}

func TestFileGateway_CancelledContext(t *testing.T) {
	gw, dir := newFileGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gw.SendText(ctx, 1, "x", core.SendOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("SendText error = %v, want context.Canceled", err)
	}
	if n := len(outboxFiles(t, dir)); n != 0 {
		t.Errorf("got %d outbox files, want 0", n)
	}
}

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantBody string
		wantID   string
		wantErr  bool
	}{
		{
			name:     "body after delimiter",
			content:  "---\nid: a\nkind: text\n---\n\nhello\nworld",
			wantBody: "hello\nworld",
			wantID:   "a",
		},
		{
			name:    "closing delimiter at end of file",
			content: "---\nid: b\n---",
			wantID:  "b",
		},
		{
			name:    "missing opening delimiter",
			content: "id: c\n---\n",
			wantErr: true,
		},
		{
			name:    "missing closing delimiter",
			content: "---\nid: d\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			content: "---\nid: [unclosed\n---\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fm inboxFrontmatter
			body, err := parseFrontmatter(tt.content, &fm)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if fm.ID != tt.wantID {
				t.Errorf("id = %q, want %q", fm.ID, tt.wantID)
			}
		})
	}
}
