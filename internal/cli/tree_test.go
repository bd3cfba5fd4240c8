package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// runWithOutput runs cmd's RunE against the sample tree and returns stdout.
func runWithOutput(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	origTree := TreeStore
	origConfig := Config
	t.Cleanup(func() {
		TreeStore = origTree
		Config = origConfig
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})
	TreeStore = &fakeTreeStore{tree: sampleTree()}
	Config = nil

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func TestOutlineCmd_DefaultDepth(t *testing.T) {
	origDepth := outlineDepth
	defer func() { outlineDepth = origDepth }()
	outlineDepth = -1

	out, err := runWithOutput(t, outlineCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Главное меню") || !strings.Contains(out, "Вопросы") {
		t.Errorf("outline missing topics:\n%s", out)
	}
	// Depth 3 reaches the questions section's children.
	if !strings.Contains(out, "Уход за гильзой") {
		t.Errorf("default depth too shallow:\n%s", out)
	}
}

func TestOutlineCmd_Depth(t *testing.T) {
	origDepth := outlineDepth
	defer func() { outlineDepth = origDepth }()
	outlineDepth = 1

	out, err := runWithOutput(t, outlineCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Ноги") || strings.Contains(out, "Вопросы") {
		t.Errorf("depth 1 outline:\n%s", out)
	}
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Errorf("got %d lines, want 3:\n%s", lines, out)
	}
}

func TestOutlineCmd_ConfiguredDepth(t *testing.T) {
	origDepth := outlineDepth
	defer func() { outlineDepth = origDepth }()
	outlineDepth = -1

	origTree := TreeStore
	origConfig := Config
	defer func() {
		TreeStore = origTree
		Config = origConfig
		outlineCmd.SetOut(nil)
	}()
	TreeStore = &fakeTreeStore{tree: sampleTree()}
	Config = &models.GlobalConfig{Tree: models.TreeConfig{OutlineDepth: 0}}

	var out bytes.Buffer
	outlineCmd.SetOut(&out)
	if err := outlineCmd.RunE(outlineCmd, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Count(out.String(), "\n") != 1 {
		t.Errorf("configured depth 0 should print the root only:\n%s", out.String())
	}
}

func TestFindCmd(t *testing.T) {
	out, err := runWithOutput(t, findCmd, "q_socket")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"Уход за гильзой (q_socket)",
		"Главное меню > Ноги > Вопросы > Уход за гильзой",
		"legs_foot",
		"link http://x/socket.mp4",
		`"Мойте ежедневно"`,
		"legs_shin",
		"file FILE-7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "structural") {
		t.Errorf("q_socket shown as structural:\n%s", out)
	}
}

func TestFindCmd_Branch(t *testing.T) {
	out, err := runWithOutput(t, findCmd, "legs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"structural", "Subtopics (2, 6 below)", "legs_questions"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFindCmd_NotFound(t *testing.T) {
	_, err := runWithOutput(t, findCmd, "nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestQueryCmd_Lines(t *testing.T) {
	origJSON := queryJSON
	defer func() { queryJSON = origJSON }()
	queryJSON = false

	out, err := runWithOutput(t, queryCmd, "$.themes[0].subthemes[*].title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "\"Ноги\"\n\"Руки\"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestQueryCmd_JSON(t *testing.T) {
	origJSON := queryJSON
	defer func() { queryJSON = origJSON }()
	queryJSON = true

	out, err := runWithOutput(t, queryCmd, "$..[?(@.level == 5)].id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ids []string
	if err := json.Unmarshal([]byte(out), &ids); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, out)
	}
	if strings.Join(ids, ",") != "q_socket,q_walk" {
		t.Errorf("ids = %v", ids)
	}

	out, err = runWithOutput(t, queryCmd, "$.nothing")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("empty result = %q, want []", out)
	}
}

func TestQueryCmd_InvalidPath(t *testing.T) {
	if _, err := runWithOutput(t, queryCmd, "$.themes["); err == nil {
		t.Fatal("expected error for invalid jsonpath")
	}
}

func TestTreeCmds_NilStore(t *testing.T) {
	orig := TreeStore
	defer func() { TreeStore = orig }()
	TreeStore = nil

	for _, cmd := range []*cobra.Command{outlineCmd, findCmd, queryCmd} {
		err := cmd.RunE(cmd, []string{"x"})
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Errorf("%s: err = %v", cmd.Name(), err)
		}
	}
}
