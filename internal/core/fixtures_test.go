package core

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/valter-silva-au/limbguide/internal/storage"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// --- Event logger ---

type loggedEvent struct {
	Type string
	Data map[string]any
	Err  error
}

type recordingLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (r *recordingLogger) LogEvent(eventType string, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, loggedEvent{Type: eventType, Data: data})
	return nil
}

func (r *recordingLogger) LogError(eventType string, err error, data map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, loggedEvent{Type: eventType, Data: data, Err: err})
	return nil
}

func (r *recordingLogger) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// --- Gateway ---

type sentMessage struct {
	ChatID  int64
	Kind    models.ReplyKind
	Text    string
	Media   models.Media
	Options SendOptions
}

type recordingGateway struct {
	mu       sync.Mutex
	sent     []sentMessage
	answers  []string
	commands []models.BotCommand
	inbox    []models.Inbound
	// failures makes sends of the given kind and parse mode fail.
	failures map[models.ReplyKind]models.ParseMode
}

func (g *recordingGateway) Name() string { return "recording" }

func (g *recordingGateway) record(chatID int64, kind models.ReplyKind, text string, media models.Media, opts SendOptions) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if mode, ok := g.failures[kind]; ok && mode == opts.ParseMode {
		return errors.New("rejected by gateway")
	}
	g.sent = append(g.sent, sentMessage{ChatID: chatID, Kind: kind, Text: text, Media: media, Options: opts})
	return nil
}

func (g *recordingGateway) SendText(_ context.Context, chatID int64, text string, opts SendOptions) error {
	return g.record(chatID, models.ReplyText, text, models.Media{}, opts)
}

func (g *recordingGateway) SendPhoto(_ context.Context, chatID int64, photo models.Media, caption string, opts SendOptions) error {
	return g.record(chatID, models.ReplyPhoto, caption, photo, opts)
}

func (g *recordingGateway) SendVideo(_ context.Context, chatID int64, video models.Media, caption string, opts SendOptions) error {
	return g.record(chatID, models.ReplyVideo, caption, video, opts)
}

func (g *recordingGateway) AnswerInteraction(_ context.Context, _ string, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.answers = append(g.answers, text)
	return nil
}

func (g *recordingGateway) RegisterCommands(_ context.Context, commands []models.BotCommand) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commands = append(g.commands, commands...)
	return nil
}

func (g *recordingGateway) Listen(ctx context.Context, handler Handler) error {
	for _, in := range g.inbox {
		handler(ctx, in)
	}
	return nil
}

func (g *recordingGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

func (g *recordingGateway) last() sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sent) == 0 {
		return sentMessage{}
	}
	return g.sent[len(g.sent)-1]
}

func (g *recordingGateway) clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = nil
	g.answers = nil
}

func payloads(buttons [][]models.Button) []string {
	var out []string
	for _, r := range buttons {
		for _, b := range r {
			out = append(out, b.Payload)
		}
	}
	return out
}

// --- Trees ---

func topic(id, title string, children ...*models.Topic) *models.Topic {
	return &models.Topic{ID: id, Title: title, Subthemes: children}
}

func levelLeaves(limb models.Limb) []*models.Topic {
	var out []*models.Topic
	for _, lvl := range models.LevelsForLimb(limb) {
		out = append(out, topic(lvl.ID, lvl.Title))
	}
	return out
}

// sampleTree builds the fixed skeleton plus a few question topics.
func sampleTree() *models.TopicTree {
	socket := topic("q_socket", "Уход за гильзой")
	socket.VideosByLevel = map[string]string{"legs_foot": "http://x/video.mp4"}
	socket.DescriptionByLevel = map[string]string{"legs_foot": "Мойте ежедневно"}

	fitting := topic("q_fitting", "Первая примерка")
	fitting.FilesByLevel = map[string]string{"legs_foot": "FILE-1"}
	fitting.VideosByLevel = map[string]string{"legs_foot": "http://ignored"}

	walking := topic("q_walk", "Ходьба")
	walking.Description = "Начинайте с коротких прогулок."

	shinOnly := topic("q_shin_only", "Только для голени")
	shinOnly.VideosByLevel = map[string]string{"legs_shin": "http://shin"}

	care := topic("a_care", "Уход за культей")
	care.Description = "Общие рекомендации."

	legs := topic("legs", "Ноги",
		topic(models.AmputationSelectorID(models.LimbLegs), "Уровень ампутации", levelLeaves(models.LimbLegs)...),
		topic(models.QuestionsID(models.LimbLegs), "Вопросы",
			socket,
			topic("q_prosthesis", "Протезирование", fitting, walking),
			shinOnly,
		),
	)
	arms := topic("arms", "Руки",
		topic(models.AmputationSelectorID(models.LimbArms), "Уровень ампутации", levelLeaves(models.LimbArms)...),
		topic(models.QuestionsID(models.LimbArms), "Вопросы",
			care,
			topic("a_prosthesis", "Протезы рук", topic("a_grip", "Хват")),
		),
	)
	root := topic(models.RootTopicID, "Главное меню", legs, arms)
	root.Level = 1
	return &models.TopicTree{Themes: []*models.Topic{root}}
}

func writeTree(t testing.TB, path string, tree *models.TopicTree) {
	t.Helper()
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		t.Fatalf("marshal tree: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write tree: %v", err)
	}
}

func readTree(t testing.TB, path string) *models.TopicTree {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read tree: %v", err)
	}
	var tree models.TopicTree
	if err := json.Unmarshal(data, &tree); err != nil {
		t.Fatalf("parse tree: %v", err)
	}
	return &tree
}

func newTreeStore(t *testing.T, tree *models.TopicTree) *storage.TopicTreeStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logic.json")
	writeTree(t, path, tree)
	return storage.NewTopicTreeStore(path, nil)
}

// memTree is a TreeStore without a backing file.
type memTree struct {
	mu       sync.Mutex
	tree     *models.TopicTree
	writeErr error
}

func (m *memTree) View(fn func(tree *models.TopicTree) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tree == nil {
		return storage.ErrTreeUnavailable
	}
	return fn(m.tree)
}

func (m *memTree) Mutate(fn func(tree *models.TopicTree) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tree == nil {
		return storage.ErrTreeUnavailable
	}
	if err := fn(m.tree); err != nil {
		return err
	}
	if m.writeErr != nil {
		return errors.Join(storage.ErrWriteFailed, m.writeErr)
	}
	return nil
}

// --- Dispatcher harness ---

const (
	adminName = "WebDwarf"
	userName  = "patient"
)

type harness struct {
	store       TreeStore
	gw          *recordingGateway
	log         *recordingLogger
	navStates   *storage.MemoryStateStore[NavState]
	adminStates *storage.MemoryStateStore[AdminSession]
	nav         *Navigator
	admin       *AdminWizard
	d           *Dispatcher
}

func newHarness(store TreeStore) *harness {
	h := &harness{
		store:       store,
		gw:          &recordingGateway{},
		log:         &recordingLogger{},
		navStates:   storage.NewMemoryStateStore[NavState](),
		adminStates: storage.NewMemoryStateStore[AdminSession](),
	}
	h.nav = NewNavigator(store, h.navStates, h.log, models.Media{})
	h.admin = NewAdminWizard(store, h.adminStates, NewAccessList([]string{adminName}), h.log, 0, 0)
	h.d = NewDispatcher(h.gw, h.nav, h.admin, h.log)
	return h
}

func (h *harness) command(chatID int64, user, cmd string) {
	h.d.Handle(context.Background(), models.Inbound{Kind: models.InboundCommand, ChatID: chatID, Username: user, Command: cmd})
}

func (h *harness) press(chatID int64, user, payload string) {
	h.d.Handle(context.Background(), models.Inbound{Kind: models.InboundCallback, ChatID: chatID, Username: user, Payload: payload, InteractionID: "cb"})
}

func (h *harness) text(chatID int64, user, text string) {
	h.d.Handle(context.Background(), models.Inbound{Kind: models.InboundText, ChatID: chatID, Username: user, Text: text})
}

func (h *harness) video(chatID int64, user, fileID string) {
	h.d.Handle(context.Background(), models.Inbound{Kind: models.InboundVideo, ChatID: chatID, Username: user, FileID: fileID})
}
