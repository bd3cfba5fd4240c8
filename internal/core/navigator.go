package core

import (
	"fmt"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// NavPhase is the derived position of a chat in the navigation flow.
type NavPhase string

const (
	PhaseRoot          NavPhase = "root"
	PhaseLimbSelected  NavPhase = "limb-selected"
	PhaseLevelSelected NavPhase = "amputation-level-selected"
	PhaseQuestions     NavPhase = "questions-browsing"
	PhaseContent       NavPhase = "leaf-content-shown"
)

// NavState is one chat's position in the topic tree. History is a stack of
// topic ids that never empties once initialized.
type NavState struct {
	History []string    `json:"history"`
	Limb    models.Limb `json:"limb,omitempty"`
	Level   string      `json:"level,omitempty"`
}

func newNavState() NavState {
	return NavState{History: []string{models.RootTopicID}}
}

// Current returns the id on top of the history stack.
func (s NavState) Current() string {
	if len(s.History) == 0 {
		return ""
	}
	return s.History[len(s.History)-1]
}

// Push records a forward move to id.
func (s *NavState) Push(id string) {
	s.History = append(s.History, id)
}

// Back pops the history and returns the new top. Level ids are popped
// through, since they have nothing to show by themselves. Landing on a limb
// clears the level; landing on a level selector clears the level; landing on
// the last entry clears both. At a single entry Back reports false and
// changes nothing.
func (s *NavState) Back() (string, bool) {
	if len(s.History) <= 1 {
		return "", false
	}
	s.History = s.History[:len(s.History)-1]
	if models.IsLevelID(s.Current()) && len(s.History) > 1 {
		s.History = s.History[:len(s.History)-1]
	}

	top := s.Current()
	if len(s.History) == 1 {
		s.Limb, s.Level = "", ""
	} else if limb, ok := models.ParseLimb(top); ok {
		s.Limb, s.Level = limb, ""
	} else if models.IsAmputationSelectorID(top) {
		s.Level = ""
	}
	return top, true
}

// JumpToQuestions truncates the history after the last level of limb it
// contains and pushes the limb's questions section, restoring that level.
// Without such a level the questions id is pushed as is.
func (s *NavState) JumpToQuestions(limb models.Limb) {
	qid := models.QuestionsID(limb)
	s.Limb = limb
	for i := len(s.History) - 1; i >= 0; i-- {
		if lvl, ok := models.LevelByID(s.History[i]); ok && lvl.Limb == limb {
			s.Level = lvl.ID
			s.History = append(s.History[:i+1:i+1], qid)
			return
		}
	}
	if lvl, ok := models.LevelByID(s.Level); ok && lvl.Limb != limb {
		s.Level = ""
	}
	if s.Current() != qid {
		s.Push(qid)
	}
}

// Phase derives the flow position from the state.
func (s NavState) Phase() NavPhase {
	switch {
	case len(s.History) <= 1 || s.Limb == "":
		return PhaseRoot
	case s.Level == "":
		return PhaseLimbSelected
	case models.IsLevelID(s.Current()):
		return PhaseLevelSelected
	case s.Current() == models.QuestionsID(s.Limb):
		return PhaseQuestions
	default:
		return PhaseContent
	}
}

// Navigator drives end-user browsing of the topic tree.
type Navigator struct {
	tree    TreeStore
	states  NavStateStore
	logger  EventLogger
	welcome models.Media
}

// NewNavigator creates a Navigator. welcome is the photo sent on /start and
// may be zero.
func NewNavigator(tree TreeStore, states NavStateStore, logger EventLogger, welcome models.Media) *Navigator {
	return &Navigator{tree: tree, states: states, logger: orNop(logger), welcome: welcome}
}

// State returns the chat's navigation state, if any.
func (n *Navigator) State(chatID int64) (NavState, bool, error) {
	return n.states.Get(chatID)
}

func (n *Navigator) load(chatID int64) (NavState, error) {
	st, ok, err := n.states.Get(chatID)
	if err != nil {
		return NavState{}, fmt.Errorf("loading navigation state: %w", err)
	}
	if !ok || len(st.History) == 0 {
		st = newNavState()
	}
	return st, nil
}

func (n *Navigator) save(chatID int64, st NavState) error {
	if err := n.states.Set(chatID, st); err != nil {
		return fmt.Errorf("saving navigation state: %w", err)
	}
	return nil
}

// Start resets the chat to the root topic and lists the limbs.
func (n *Navigator) Start(chatID int64) (Response, error) {
	var resp Response
	err := n.tree.View(func(tree *models.TopicTree) error {
		root := topLevel(tree.Themes, models.RootTopicID)
		if root == nil {
			return notFound(MsgRootNotFound, fmt.Errorf("root topic %s: %w", models.RootTopicID, ErrNotFound))
		}
		resp = reply(markdownReply(topicHeader(root)+PromptChooseLimb, listing(root.Subthemes, false)))
		return nil
	})
	if err != nil {
		return Response{}, err
	}

	if err := n.save(chatID, newNavState()); err != nil {
		return Response{}, err
	}
	_ = n.logger.LogEvent("session.started", map[string]any{"chat_id": chatID})

	if !n.welcome.IsZero() {
		photo := models.Reply{
			Kind:      models.ReplyPhoto,
			Media:     n.welcome,
			Text:      MsgWelcomeCaption,
			ParseMode: models.ParseMarkdown,
		}
		resp.Replies = append([]models.Reply{photo}, resp.Replies...)
	}
	return resp, nil
}

// LimbShortcut jumps straight to the level selector of limb.
func (n *Navigator) LimbShortcut(chatID int64, limb models.Limb) (Response, error) {
	return n.update(chatID, func(tree *models.TopicTree, st *NavState) (Response, error) {
		return n.selectLimb(tree.Themes, st, chatID, limb)
	})
}

// Select handles a press on a topic button.
func (n *Navigator) Select(chatID int64, id string) (Response, error) {
	return n.update(chatID, func(tree *models.TopicTree, st *NavState) (Response, error) {
		if limb, ok := models.LimbForQuestionsID(id); ok {
			return n.jumpToQuestions(tree.Themes, st, chatID, limb)
		}
		topic := FindByID(tree.Themes, id)
		if topic == nil {
			return answerOnly(MsgUnknownTopic), nil
		}
		if limb, ok := models.ParseLimb(id); ok {
			return n.selectLimb(tree.Themes, st, chatID, limb)
		}
		if lvl, ok := models.LevelByID(id); ok {
			return n.selectLevel(tree.Themes, st, chatID, lvl)
		}

		st.Push(topic.ID)
		_ = n.logger.LogEvent("navigation.topic_viewed", map[string]any{
			"chat_id": chatID,
			"topic":   topic.ID,
			"limb":    string(st.Limb),
			"level":   st.Level,
		})
		return n.show(topic, st, chatID, PromptChooseSubcategory), nil
	})
}

// Back returns to the previous topic. At the top it only answers the
// interaction with MsgAlreadyAtTop.
func (n *Navigator) Back(chatID int64) (Response, error) {
	st, ok, err := n.states.Get(chatID)
	if err != nil {
		return Response{}, fmt.Errorf("loading navigation state: %w", err)
	}
	if !ok {
		return answerOnly(MsgAlreadyAtTop), nil
	}
	prev, moved := st.Back()
	if !moved {
		return answerOnly(MsgAlreadyAtTop), nil
	}

	var resp Response
	err = n.tree.View(func(tree *models.TopicTree) error {
		topic := FindByID(tree.Themes, prev)
		if topic == nil {
			resp = answerOnly(MsgNavigationError)
			return nil
		}
		if topic.ID == models.RootTopicID {
			resp = reply(markdownReply(topicHeader(topic)+PromptChooseLimb, listing(topic.Subthemes, false)))
			return nil
		}
		resp = n.show(topic, &st, chatID, PromptChooseTopic)
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	if err := n.save(chatID, st); err != nil {
		return Response{}, err
	}
	_ = n.logger.LogEvent("navigation.back", map[string]any{"chat_id": chatID, "topic": prev})
	return resp, nil
}

// update runs fn against the tree with the chat's state and saves the state
// when fn succeeds.
func (n *Navigator) update(chatID int64, fn func(tree *models.TopicTree, st *NavState) (Response, error)) (Response, error) {
	st, err := n.load(chatID)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	err = n.tree.View(func(tree *models.TopicTree) error {
		var ferr error
		resp, ferr = fn(tree, &st)
		return ferr
	})
	if err != nil {
		return Response{}, err
	}
	if err := n.save(chatID, st); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (n *Navigator) selectLimb(themes []*models.Topic, st *NavState, chatID int64, limb models.Limb) (Response, error) {
	if FindByID(themes, string(limb)) == nil {
		return Response{}, notFound(MsgNavigationError, fmt.Errorf("limb %s: %w", limb, ErrNotFound))
	}
	sel := FindByID(themes, models.AmputationSelectorID(limb))
	if sel == nil {
		return Response{}, notFound(MsgSelectorNotFound, fmt.Errorf("level selector of %s: %w", limb, ErrNotFound))
	}

	st.Limb, st.Level = limb, ""
	st.Push(string(limb))
	st.Push(sel.ID)
	_ = n.logger.LogEvent("navigation.limb_selected", map[string]any{"chat_id": chatID, "limb": string(limb)})

	return reply(markdownReply(topicHeader(sel)+PromptChooseLevel, listing(sel.Subthemes, true))), nil
}

func (n *Navigator) selectLevel(themes []*models.Topic, st *NavState, chatID int64, lvl models.AmputationLevel) (Response, error) {
	q := FindByID(themes, models.QuestionsID(lvl.Limb))
	if q == nil {
		return Response{}, notFound(MsgQuestionsNotFound, fmt.Errorf("questions of %s: %w", lvl.Limb, ErrNotFound))
	}

	st.Limb, st.Level = lvl.Limb, lvl.ID
	st.Push(lvl.ID)
	st.Push(q.ID)
	_ = n.logger.LogEvent("navigation.level_selected", map[string]any{
		"chat_id": chatID,
		"limb":    string(lvl.Limb),
		"level":   lvl.ID,
	})

	return reply(markdownReply(topicHeader(q)+PromptChooseQuestion, listing(q.Subthemes, true))), nil
}

func (n *Navigator) jumpToQuestions(themes []*models.Topic, st *NavState, chatID int64, limb models.Limb) (Response, error) {
	q := FindByID(themes, models.QuestionsID(limb))
	if q == nil {
		return Response{}, notFound(MsgQuestionsNotFound, fmt.Errorf("questions of %s: %w", limb, ErrNotFound))
	}

	st.JumpToQuestions(limb)
	_ = n.logger.LogEvent("navigation.topic_viewed", map[string]any{
		"chat_id":  chatID,
		"topic":    q.ID,
		"limb":     string(limb),
		"level":    st.Level,
		"shortcut": true,
	})

	return reply(markdownReply(topicHeader(q)+PromptChooseQuestion, listing(q.Subthemes, true))), nil
}

// show renders what a topic displays for the current state.
func (n *Navigator) show(topic *models.Topic, st *NavState, chatID int64, listPrompt string) Response {
	switch c := ResolveContent(topic, st.Limb, st.Level).(type) {
	case PerLevel:
		return n.deliver(topic, st, chatID, c)
	case Branch:
		return reply(markdownReply(topicHeader(topic)+listPrompt, listing(c.Children, topic.ID != models.RootTopicID)))
	case Plain:
		text := topicHeader(topic)
		if c.Description != "" {
			text += c.Description
		} else {
			text += fmt.Sprintf(MsgNoInfoFormat, EscapeMarkdown(topic.Title))
		}
		buttons := [][]models.Button{row(btn(BtnBack, PayloadBack))}
		if st.Limb != "" && st.Level != "" {
			buttons = backToQuestions(st.Limb)
		}
		return reply(withPlainFallback(markdownReply(text, buttons)))
	}
	return Response{}
}

func (n *Navigator) deliver(topic *models.Topic, st *NavState, chatID int64, c PerLevel) Response {
	caption := "*" + EscapeMarkdown(topic.Title) + "*"
	if c.Description != "" {
		caption += "\n\n" + c.Description
	}
	buttons := backToQuestions(st.Limb)
	data := map[string]any{
		"chat_id": chatID,
		"topic":   topic.ID,
		"limb":    string(st.Limb),
		"level":   st.Level,
	}

	switch c.Media.Kind {
	case MediaFile:
		data["kind"] = "file"
		_ = n.logger.LogEvent("content.delivered", data)
		fallback := withPlainFallback(markdownReply(caption, buttons))
		return reply(models.Reply{
			Kind:      models.ReplyVideo,
			Media:     models.Media{FileID: c.Media.Ref},
			Text:      caption,
			ParseMode: models.ParseMarkdown,
			Buttons:   buttons,
			Fallback:  &fallback,
		})
	case MediaURL:
		data["kind"] = "url"
		_ = n.logger.LogEvent("content.delivered", data)
		r := markdownReply(caption+"\n\n"+fmt.Sprintf(MsgWatchVideoFormat, c.Media.Ref), buttons)
		r.DisablePreview = false
		return reply(withPlainFallback(r))
	default:
		_ = n.logger.LogEvent("content.missing", data)
		return reply(textReply(MsgNoVideo, buttons))
	}
}

// PayloadBack is the button payload for one step back.
const PayloadBack = "back"

// listing turns children into one button per row, plus a back row.
func listing(children []*models.Topic, withBack bool) [][]models.Button {
	rows := topicButtons(children, plainTitle, func(id string) string { return id })
	if withBack {
		rows = append(rows, row(btn(BtnBack, PayloadBack)))
	}
	return rows
}

func backToQuestions(limb models.Limb) [][]models.Button {
	return [][]models.Button{row(btn(BtnBackToQuestions, models.QuestionsID(limb)))}
}

// withPlainFallback attaches an unformatted copy of r to be sent if the
// formatted text is rejected.
func withPlainFallback(r models.Reply) models.Reply {
	plain := r
	plain.ParseMode = models.ParsePlain
	plain.Fallback = nil
	r.Fallback = &plain
	return r
}

func topLevel(themes []*models.Topic, id string) *models.Topic {
	for _, t := range themes {
		if t != nil && t.ID == id {
			return t
		}
	}
	return nil
}
