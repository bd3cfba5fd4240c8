package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// timeNow is replaced in tests to get predictable topic ids.
var timeNow = time.Now

// skipInput is the text an admin sends to leave a value unchanged or empty.
const skipInput = "-"

// AdminWizard runs the admin panel flows: view structure, edit level
// content, create a subtopic and delete a subtopic.
type AdminWizard struct {
	tree         TreeStore
	states       AdminStateStore
	access       *AccessList
	logger       EventLogger
	outlineDepth int
	chunkSize    int
}

// NewAdminWizard creates an AdminWizard. Non-positive outlineDepth and
// chunkSize select the defaults.
func NewAdminWizard(tree TreeStore, states AdminStateStore, access *AccessList, logger EventLogger, outlineDepth, chunkSize int) *AdminWizard {
	if outlineDepth <= 0 {
		outlineDepth = DefaultOutlineDepth
	}
	if chunkSize <= 3 {
		chunkSize = DefaultChunkSize
	}
	return &AdminWizard{
		tree:         tree,
		states:       states,
		access:       access,
		logger:       orNop(logger),
		outlineDepth: outlineDepth,
		chunkSize:    chunkSize,
	}
}

// IsAdmin reports whether username may use the admin panel.
func (w *AdminWizard) IsAdmin(username string) bool {
	return w.access != nil && w.access.Allows(username)
}

// Session returns the chat's wizard session, if any.
func (w *AdminWizard) Session(chatID int64) (AdminSession, bool, error) {
	return w.states.Get(chatID)
}

// Reset puts the chat back on the main menu.
func (w *AdminWizard) Reset(chatID int64) error {
	return w.setStep(chatID, MainMenu{})
}

func (w *AdminWizard) setStep(chatID int64, step WizardStep) error {
	if err := w.states.Set(chatID, AdminSession{Step: step}); err != nil {
		return fmt.Errorf("saving admin session: %w", err)
	}
	return nil
}

func (w *AdminWizard) session(chatID int64) (AdminSession, error) {
	sess, _, err := w.states.Get(chatID)
	if err != nil {
		return AdminSession{}, fmt.Errorf("loading admin session: %w", err)
	}
	return sess, nil
}

// HandleCommand handles /admin. It is the only admin entry that answers
// non-admins, with an explicit denial.
func (w *AdminWizard) HandleCommand(chatID int64, username string) (Response, error) {
	if !w.IsAdmin(username) {
		_ = w.logger.LogEvent("admin.denied", map[string]any{"chat_id": chatID, "username": username, "entry": "command"})
		return reply(textReply(MsgNotAdmin, nil)), nil
	}
	return w.mainMenu(chatID, "")
}

// HandleCallback handles an admin button press. Presses from non-admins are
// dropped without a reply.
func (w *AdminWizard) HandleCallback(chatID int64, username, data string) (Response, error) {
	if !w.IsAdmin(username) {
		_ = w.logger.LogEvent("admin.denied", map[string]any{"chat_id": chatID, "username": username, "entry": "callback"})
		return Response{}, nil
	}
	p, ok := ParseAdminPayload(data)
	if !ok {
		return answerOnly(MsgStaleAction), nil
	}
	sess, err := w.session(chatID)
	if err != nil {
		return Response{}, err
	}

	switch p.Action {
	case ActMainMenu:
		return w.mainMenu(chatID, "")
	case ActCancel:
		return w.mainMenu(chatID, MsgCancelled)
	case ActViewStructure:
		return w.viewStructure(chatID)

	case ActEditVideo:
		return w.chooseLimb(chatID, EditChooseLimb{}, PromptEditLimb, ActEditLimb)
	case ActEditLimb:
		return w.editNavigate(chatID, models.QuestionsID(models.Limb(p.Arg)))
	case ActEditNav:
		return w.editNavigate(chatID, p.Arg)
	case ActEditLevel:
		step, ok := sess.Step.(EditChooseLevel)
		if !ok {
			return answerOnly(MsgStaleAction), nil
		}
		return w.editChooseAction(chatID, step, p.Arg)
	case ActEditAction:
		step, ok := sess.Step.(EditChooseAction)
		if !ok {
			return answerOnly(MsgStaleAction), nil
		}
		return w.editAction(chatID, step.EditTarget, p.Arg)

	case ActNewSubtheme:
		return w.chooseLimb(chatID, CreateChooseLimb{}, PromptCreateLimb, ActAddLimb)
	case ActAddLimb:
		return w.createNavigate(chatID, models.QuestionsID(models.Limb(p.Arg)))
	case ActAddNav:
		return w.createNavigate(chatID, p.Arg)
	case ActAddHere:
		return w.createEnterTitle(chatID, p.Arg)
	case ActAddMethodFile, ActAddMethodURL, ActSkipVideo:
		step, ok := sess.Step.(CreateChooseMethod)
		if !ok || step.Index != p.Index {
			return answerOnly(MsgStaleAction), nil
		}
		switch p.Action {
		case ActAddMethodFile:
			return w.prompt(chatID, CreateAwaitFile(step), PromptUploadFile)
		case ActAddMethodURL:
			return w.prompt(chatID, CreateAwaitURL(step), PromptEnterURL)
		}
		return w.advance(chatID, step.Draft, step.Index+1)
	case ActSkipDescription:
		step, ok := sess.Step.(CreateAwaitDescription)
		if !ok || step.Index != p.Index {
			return answerOnly(MsgStaleAction), nil
		}
		return w.advance(chatID, step.Draft, step.Index+1)

	case ActDeleteSubtheme:
		return w.chooseLimb(chatID, DeleteChooseLimb{}, PromptDeleteLimb, ActDeleteLimb)
	case ActDeleteLimb:
		return w.deleteNavigate(chatID, models.QuestionsID(models.Limb(p.Arg)))
	case ActDeleteNav:
		return w.deleteNavigate(chatID, p.Arg)
	case ActDeletePick:
		return w.deleteConfirm(chatID, p.Arg)
	case ActDeleteConfirm:
		step, ok := sess.Step.(DeleteConfirm)
		if !ok || step.TopicID != p.Arg {
			return answerOnly(MsgStaleAction), nil
		}
		return w.deleteTopic(chatID, step)
	}
	return answerOnly(MsgStaleAction), nil
}

// HandleText handles free text from an admin. Outside of steps that expect
// text it replies with a hint and leaves the state unchanged.
func (w *AdminWizard) HandleText(chatID int64, username, text string) (Response, error) {
	if !w.IsAdmin(username) {
		return Response{}, nil
	}
	sess, err := w.session(chatID)
	if err != nil {
		return Response{}, err
	}
	text = strings.TrimSpace(text)

	switch step := sess.Step.(type) {
	case nil, MainMenu:
		return Response{}, nil
	case EditAwaitURL:
		return w.editURL(chatID, step.EditTarget, text)
	case EditAwaitDescription:
		return w.editDescription(chatID, step.EditTarget, text)
	case CreateEnterTitle:
		return w.createTitle(chatID, step, text)
	case CreateAwaitURL:
		return w.createURL(chatID, step.DraftCursor, text)
	case CreateAwaitDescription:
		return w.createDescription(chatID, step.DraftCursor, text)
	case EditAwaitFile, CreateAwaitFile:
		return reply(textReply(MsgSendVideoFile, nil)), nil
	default:
		return reply(textReply(MsgUseButtons, nil)), nil
	}
}

// HandleVideo handles an uploaded video from an admin.
func (w *AdminWizard) HandleVideo(chatID int64, username, fileID string) (Response, error) {
	if !w.IsAdmin(username) {
		return Response{}, nil
	}
	sess, err := w.session(chatID)
	if err != nil {
		return Response{}, err
	}

	switch step := sess.Step.(type) {
	case nil, MainMenu:
		return Response{}, nil
	case EditAwaitFile:
		return w.editFile(chatID, step.EditTarget, fileID)
	case CreateAwaitFile:
		return w.createFile(chatID, step.DraftCursor, fileID)
	case EditAwaitURL, EditAwaitDescription, CreateEnterTitle, CreateAwaitURL, CreateAwaitDescription:
		return reply(textReply(MsgSendText, nil)), nil
	default:
		return reply(textReply(MsgUseButtons, nil)), nil
	}
}

func (w *AdminWizard) mainMenu(chatID int64, notice string) (Response, error) {
	if err := w.setStep(chatID, MainMenu{}); err != nil {
		return Response{}, err
	}
	var resp Response
	if notice != "" {
		resp.Replies = append(resp.Replies, textReply(notice, nil))
	}
	resp.Replies = append(resp.Replies, textReply(AdminMenuPrompt, [][]models.Button{
		row(btn(BtnViewStructure, adminPayload(ActViewStructure, ""))),
		row(btn(BtnEditVideo, adminPayload(ActEditVideo, ""))),
		row(btn(BtnNewSubtopic, adminPayload(ActNewSubtheme, ""))),
		row(btn(BtnDeleteSubtopic, adminPayload(ActDeleteSubtheme, ""))),
	}))
	return resp, nil
}

func menuRow() []models.Button {
	return row(btn(BtnMainMenu, adminPayload(ActMainMenu, "")))
}

func cancelRow() []models.Button {
	return row(btn(BtnCancel, adminPayload(ActCancel, "")))
}

func (w *AdminWizard) prompt(chatID int64, step WizardStep, text string) (Response, error) {
	if err := w.setStep(chatID, step); err != nil {
		return Response{}, err
	}
	return reply(textReply(text, [][]models.Button{cancelRow()})), nil
}

func (w *AdminWizard) viewStructure(chatID int64) (Response, error) {
	var outline string
	err := w.tree.View(func(tree *models.TopicTree) error {
		outline = RenderOutline(tree.Themes, w.outlineDepth)
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	if err := w.setStep(chatID, MainMenu{}); err != nil {
		return Response{}, err
	}

	chunks := SplitMessage(MsgStructureHeader+"\n\n"+outline, w.chunkSize)
	var resp Response
	for i, chunk := range chunks {
		var buttons [][]models.Button
		if i == len(chunks)-1 {
			buttons = [][]models.Button{menuRow()}
		}
		resp.Replies = append(resp.Replies, withPlainFallback(markdownReply(chunk, buttons)))
	}
	return resp, nil
}

func (w *AdminWizard) chooseLimb(chatID int64, step WizardStep, prompt string, next AdminAction) (Response, error) {
	if err := w.setStep(chatID, step); err != nil {
		return Response{}, err
	}
	var buttons [][]models.Button
	for _, limb := range models.Limbs() {
		buttons = append(buttons, row(btn(limb.Name(), adminPayload(next, string(limb)))))
	}
	buttons = append(buttons, cancelRow())
	return reply(textReply(prompt, buttons)), nil
}

// located is a topic found inside one limb's questions section.
type located struct {
	topic *models.Topic
	limb  models.Limb
	path  []string
}

// locate finds id inside a questions section. The questions section itself
// counts as inside.
func locate(themes []*models.Topic, id string) (located, bool) {
	path := FindPath(themes, id)
	if path == nil {
		return located{}, false
	}
	for _, seg := range path {
		if limb, ok := models.LimbForQuestionsID(seg); ok {
			topic := FindByPath(themes, path)
			if topic == nil {
				return located{}, false
			}
			return located{topic: topic, limb: limb, path: path}, true
		}
	}
	return located{}, false
}

// viewLocated runs fn on id located inside a questions section, turning a
// miss into a not-found flow error.
func (w *AdminWizard) viewLocated(id, missing string, fn func(themes []*models.Topic, loc located) error) error {
	return w.tree.View(func(tree *models.TopicTree) error {
		loc, ok := locate(tree.Themes, id)
		if !ok {
			return notFound(missing, fmt.Errorf("topic %s: %w", id, ErrNotFound))
		}
		return fn(tree.Themes, loc)
	})
}

// requireSubtopics rejects a structural topic with nothing below it. An
// emptied questions section is not itself editable or deletable content.
func requireSubtopics(loc located) error {
	if models.IsStructuralID(loc.topic.ID) && !loc.topic.HasChildren() {
		return notFound(MsgTopicListAbsent, fmt.Errorf("topic %s has no subtopics: %w", loc.topic.ID, ErrNotFound))
	}
	return nil
}

func missingFor(id string) string {
	if _, ok := models.LimbForQuestionsID(id); ok {
		return MsgTopicListAbsent
	}
	return MsgTopicNotFound
}

// Edit flow.

func (w *AdminWizard) editNavigate(chatID int64, id string) (Response, error) {
	var (
		step WizardStep
		resp Response
	)
	err := w.viewLocated(id, missingFor(id), func(_ []*models.Topic, loc located) error {
		if err := requireSubtopics(loc); err != nil {
			return err
		}
		if loc.topic.HasChildren() {
			prompt := PromptMoreSpecific
			if _, ok := models.LimbForQuestionsID(loc.topic.ID); ok {
				prompt = PromptChooseSubtopic
			}
			step = EditNavigate{Limb: loc.limb, Path: loc.path}
			buttons := topicButtons(loc.topic.Subthemes, plainTitle, func(id string) string {
				return adminPayload(ActEditNav, id)
			})
			buttons = append(buttons, cancelRow())
			resp = reply(withPlainFallback(markdownReply(topicHeader(loc.topic)+prompt, buttons)))
			return nil
		}

		step = EditChooseLevel{Limb: loc.limb, TopicID: loc.topic.ID}
		var buttons [][]models.Button
		for _, lvl := range models.LevelsForLimb(loc.limb) {
			label := lvl.Title
			if loc.topic.FilesByLevel[lvl.ID] != "" || loc.topic.VideosByLevel[lvl.ID] != "" {
				label += " ✅"
			}
			buttons = append(buttons, row(btn(label, adminPayload(ActEditLevel, lvl.ID))))
		}
		buttons = append(buttons, cancelRow())
		resp = reply(withPlainFallback(markdownReply(topicHeader(loc.topic)+PromptChooseLevel, buttons)))
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	if err := w.setStep(chatID, step); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (w *AdminWizard) editChooseAction(chatID int64, step EditChooseLevel, level string) (Response, error) {
	lvl, ok := models.LevelByID(level)
	if !ok || lvl.Limb != step.Limb {
		return answerOnly(MsgStaleAction), nil
	}
	var text string
	err := w.tree.View(func(tree *models.TopicTree) error {
		topic := FindByID(tree.Themes, step.TopicID)
		if topic == nil {
			return notFound(MsgTopicNotFound, fmt.Errorf("topic %s: %w", step.TopicID, ErrNotFound))
		}
		text = levelSummary(topic, lvl)
		return nil
	})
	if err != nil {
		return Response{}, err
	}

	target := EditTarget{Limb: step.Limb, TopicID: step.TopicID, Level: lvl.ID}
	if err := w.setStep(chatID, EditChooseAction{target}); err != nil {
		return Response{}, err
	}
	buttons := [][]models.Button{
		row(btn(BtnUploadFile, adminPayload(ActEditAction, EditFile))),
		row(btn(BtnEnterURL, adminPayload(ActEditAction, EditURL))),
		row(btn(BtnEditDescription, adminPayload(ActEditAction, EditDescription))),
		row(btn(BtnDeleteContent, adminPayload(ActEditAction, EditDelete))),
		cancelRow(),
	}
	return reply(withPlainFallback(markdownReply(text, buttons))), nil
}

func levelSummary(topic *models.Topic, lvl models.AmputationLevel) string {
	var b strings.Builder
	b.WriteString(topicHeader(topic))
	fmt.Fprintf(&b, "Уровень: *%s*\n", EscapeMarkdown(lvl.Title))
	switch c := levelMedia(topic, lvl.ID); c.Kind {
	case MediaFile:
		b.WriteString("Видео: загруженный файл\n")
	case MediaURL:
		fmt.Fprintf(&b, "Видео: %s\n", EscapeMarkdown(c.Ref))
	default:
		b.WriteString("Видео: нет\n")
	}
	if desc := topic.DescriptionByLevel[lvl.ID]; desc != "" {
		fmt.Fprintf(&b, "Описание: %s\n", EscapeMarkdown(desc))
	}
	return b.String()
}

func (w *AdminWizard) editAction(chatID int64, target EditTarget, action string) (Response, error) {
	switch action {
	case EditFile:
		return w.prompt(chatID, EditAwaitFile{target}, PromptUploadFile)
	case EditURL:
		return w.prompt(chatID, EditAwaitURL{target}, PromptEnterURL)
	case EditDescription:
		return w.prompt(chatID, EditAwaitDescription{target}, PromptDescription)
	}

	err := w.mutateTopic(target.TopicID, func(topic *models.Topic) {
		delete(topic.FilesByLevel, target.Level)
		delete(topic.VideosByLevel, target.Level)
		delete(topic.DescriptionByLevel, target.Level)
		pruneEmptyMaps(topic)
	})
	if err != nil {
		return Response{}, mutationError(err, MsgSaveFailed)
	}
	_ = w.logger.LogEvent("admin.content_deleted", map[string]any{
		"chat_id": chatID,
		"topic":   target.TopicID,
		"level":   target.Level,
	})
	return w.mainMenu(chatID, MsgContentDeleted)
}

func (w *AdminWizard) editFile(chatID int64, target EditTarget, fileID string) (Response, error) {
	err := w.mutateTopic(target.TopicID, func(topic *models.Topic) {
		if topic.FilesByLevel == nil {
			topic.FilesByLevel = map[string]string{}
		}
		topic.FilesByLevel[target.Level] = fileID
		delete(topic.VideosByLevel, target.Level)
		pruneEmptyMaps(topic)
	})
	if err != nil {
		return Response{}, mutationError(err, MsgSaveFailed)
	}
	w.logContentUpdate(chatID, target, "file")
	return w.afterMedia(chatID, target)
}

func (w *AdminWizard) editURL(chatID int64, target EditTarget, text string) (Response, error) {
	if text == skipInput {
		return w.mainMenu(chatID, MsgURLUnchanged)
	}
	if !validURL(text) {
		return reply(textReply(MsgInvalidURL, [][]models.Button{cancelRow()})), nil
	}
	err := w.mutateTopic(target.TopicID, func(topic *models.Topic) {
		if topic.VideosByLevel == nil {
			topic.VideosByLevel = map[string]string{}
		}
		topic.VideosByLevel[target.Level] = text
		delete(topic.FilesByLevel, target.Level)
		pruneEmptyMaps(topic)
	})
	if err != nil {
		return Response{}, mutationError(err, MsgSaveFailed)
	}
	w.logContentUpdate(chatID, target, "url")
	return w.afterMedia(chatID, target)
}

func (w *AdminWizard) afterMedia(chatID int64, target EditTarget) (Response, error) {
	if err := w.setStep(chatID, EditAwaitDescription{target}); err != nil {
		return Response{}, err
	}
	return reply(
		textReply(MsgVideoUpdated, nil),
		textReply(PromptDescription, [][]models.Button{cancelRow()}),
	), nil
}

func (w *AdminWizard) editDescription(chatID int64, target EditTarget, text string) (Response, error) {
	err := w.mutateTopic(target.TopicID, func(topic *models.Topic) {
		if text == skipInput || text == "" {
			delete(topic.DescriptionByLevel, target.Level)
		} else {
			if topic.DescriptionByLevel == nil {
				topic.DescriptionByLevel = map[string]string{}
			}
			topic.DescriptionByLevel[target.Level] = text
		}
		pruneEmptyMaps(topic)
	})
	if err != nil {
		return Response{}, mutationError(err, MsgSaveFailed)
	}
	w.logContentUpdate(chatID, target, "description")
	if text == skipInput || text == "" {
		return w.mainMenu(chatID, MsgDescriptionRemoved)
	}
	return w.mainMenu(chatID, MsgDescriptionUpdated)
}

func (w *AdminWizard) logContentUpdate(chatID int64, target EditTarget, field string) {
	_ = w.logger.LogEvent("admin.content_updated", map[string]any{
		"chat_id": chatID,
		"topic":   target.TopicID,
		"level":   target.Level,
		"field":   field,
	})
}

// mutateTopic applies fn to the topic with id and persists the tree.
func (w *AdminWizard) mutateTopic(id string, fn func(topic *models.Topic)) error {
	return w.tree.Mutate(func(tree *models.TopicTree) error {
		topic := FindByID(tree.Themes, id)
		if topic == nil {
			return fmt.Errorf("topic %s: %w", id, ErrNotFound)
		}
		fn(topic)
		return nil
	})
}

// pruneEmptyMaps drops per-level maps left without entries.
func pruneEmptyMaps(topic *models.Topic) {
	if len(topic.VideosByLevel) == 0 {
		topic.VideosByLevel = nil
	}
	if len(topic.FilesByLevel) == 0 {
		topic.FilesByLevel = nil
	}
	if len(topic.DescriptionByLevel) == 0 {
		topic.DescriptionByLevel = nil
	}
}

func validURL(s string) bool {
	return (strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")) && !strings.ContainsAny(s, " \t\n")
}

// Create flow.

func (w *AdminWizard) createNavigate(chatID int64, id string) (Response, error) {
	var (
		step WizardStep
		resp Response
	)
	err := w.viewLocated(id, missingFor(id), func(_ []*models.Topic, loc located) error {
		step = CreateChooseParent{Limb: loc.limb, Path: loc.path}
		buttons := topicButtons(loc.topic.Subthemes, plainTitle, func(id string) string {
			return adminPayload(ActAddNav, id)
		})
		buttons = append(buttons,
			row(btn(BtnAddHere, adminPayload(ActAddHere, loc.topic.ID))),
			cancelRow(),
		)
		resp = reply(withPlainFallback(markdownReply(topicHeader(loc.topic)+PromptChooseParent, buttons)))
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	if err := w.setStep(chatID, step); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (w *AdminWizard) createEnterTitle(chatID int64, parentID string) (Response, error) {
	var step CreateEnterTitle
	err := w.viewLocated(parentID, MsgTopicNotFound, func(_ []*models.Topic, loc located) error {
		step = CreateEnterTitle{Limb: loc.limb, ParentID: loc.topic.ID}
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	return w.prompt(chatID, step, PromptEnterTitle)
}

func (w *AdminWizard) createTitle(chatID int64, step CreateEnterTitle, title string) (Response, error) {
	if title == "" {
		return reply(textReply(MsgEmptyTitle, [][]models.Button{cancelRow()})), nil
	}
	draft := NewTopicDraft{Limb: step.Limb, ParentID: step.ParentID, Title: title}
	return w.advance(chatID, draft, 0)
}

// advance moves the create loop to level idx, finishing the topic after
// the last level.
func (w *AdminWizard) advance(chatID int64, draft NewTopicDraft, idx int) (Response, error) {
	cur := DraftCursor{Draft: draft, Index: idx}
	lvl, ok := cur.Level()
	if !ok {
		return w.finishTopic(chatID, draft)
	}
	if err := w.setStep(chatID, CreateChooseMethod{cur}); err != nil {
		return Response{}, err
	}
	text := fmt.Sprintf("🎬 *Добавление видео %d/%d*\n\nУровень: *%s*",
		idx+1, models.LevelCount(), EscapeMarkdown(lvl.Title))
	buttons := [][]models.Button{
		row(btn(BtnUploadFile, adminIndexPayload(ActAddMethodFile, idx))),
		row(btn(BtnEnterURL, adminIndexPayload(ActAddMethodURL, idx))),
		row(btn(BtnSkip, adminIndexPayload(ActSkipVideo, idx))),
		cancelRow(),
	}
	return reply(markdownReply(text, buttons)), nil
}

func (w *AdminWizard) createFile(chatID int64, cur DraftCursor, fileID string) (Response, error) {
	lvl, ok := cur.Level()
	if !ok {
		return w.finishTopic(chatID, cur.Draft)
	}
	cur.Draft.Files = withEntry(cur.Draft.Files, lvl.ID, fileID)
	return w.askDescription(chatID, cur)
}

func (w *AdminWizard) createURL(chatID int64, cur DraftCursor, text string) (Response, error) {
	if text == skipInput {
		return w.advance(chatID, cur.Draft, cur.Index+1)
	}
	if !validURL(text) {
		return reply(textReply(MsgInvalidURL, [][]models.Button{cancelRow()})), nil
	}
	lvl, ok := cur.Level()
	if !ok {
		return w.finishTopic(chatID, cur.Draft)
	}
	cur.Draft.Videos = withEntry(cur.Draft.Videos, lvl.ID, text)
	return w.askDescription(chatID, cur)
}

func (w *AdminWizard) askDescription(chatID int64, cur DraftCursor) (Response, error) {
	if err := w.setStep(chatID, CreateAwaitDescription{cur}); err != nil {
		return Response{}, err
	}
	return reply(textReply(PromptNewDescription, [][]models.Button{
		row(btn(BtnSkipDescription, adminIndexPayload(ActSkipDescription, cur.Index))),
		cancelRow(),
	})), nil
}

func (w *AdminWizard) createDescription(chatID int64, cur DraftCursor, text string) (Response, error) {
	if lvl, ok := cur.Level(); ok && text != skipInput && text != "" {
		cur.Draft.Descriptions = withEntry(cur.Draft.Descriptions, lvl.ID, text)
	}
	return w.advance(chatID, cur.Draft, cur.Index+1)
}

// withEntry returns a copy of m with k set to v, so drafts held by a state
// store are never changed in place.
func withEntry(m map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for mk, mv := range m {
		out[mk] = mv
	}
	out[k] = v
	return out
}

func (w *AdminWizard) finishTopic(chatID int64, draft NewTopicDraft) (Response, error) {
	var created *models.Topic
	err := w.tree.Mutate(func(tree *models.TopicTree) error {
		parent := FindByID(tree.Themes, draft.ParentID)
		if parent == nil {
			return fmt.Errorf("parent %s: %w", draft.ParentID, ErrNotFound)
		}
		created = newTopic(tree.Themes, parent, draft)
		parent.Subthemes = append(parent.Subthemes, created)
		return nil
	})
	if err != nil {
		return Response{}, mutationError(err, MsgCreateFailed)
	}
	_ = w.logger.LogEvent("admin.topic_created", map[string]any{
		"chat_id": chatID,
		"topic":   created.ID,
		"parent":  draft.ParentID,
		"title":   created.Title,
	})
	return w.mainMenu(chatID, fmt.Sprintf(MsgTopicCreated, draft.Title))
}

// newTopic builds the topic for draft. Its id is custom_<unix-ms>, bumped
// until unique in the tree.
func newTopic(themes []*models.Topic, parent *models.Topic, draft NewTopicDraft) *models.Topic {
	ms := timeNow().UnixMilli()
	id := "custom_" + strconv.FormatInt(ms, 10)
	for FindByID(themes, id) != nil {
		ms++
		id = "custom_" + strconv.FormatInt(ms, 10)
	}

	level := parent.Level
	if level == 0 {
		level = 4
	}
	topic := &models.Topic{ID: id, Title: draft.Title, Level: level + 1}
	if len(draft.Videos) > 0 {
		topic.VideosByLevel = withoutBlank(draft.Videos)
	}
	if len(draft.Files) > 0 {
		topic.FilesByLevel = withoutBlank(draft.Files)
	}
	if len(draft.Descriptions) > 0 {
		topic.DescriptionByLevel = withoutBlank(draft.Descriptions)
	}
	pruneEmptyMaps(topic)
	return topic
}

func withoutBlank(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// Delete flow.

func (w *AdminWizard) deleteNavigate(chatID int64, id string) (Response, error) {
	var (
		leaf bool
		step WizardStep
		resp Response
	)
	err := w.viewLocated(id, missingFor(id), func(_ []*models.Topic, loc located) error {
		if err := requireSubtopics(loc); err != nil {
			return err
		}
		if !loc.topic.HasChildren() {
			leaf = true
			return nil
		}
		step = DeleteNavigate{Limb: loc.limb, Path: loc.path}
		buttons := topicButtons(loc.topic.Subthemes, plainTitle, func(id string) string {
			return adminPayload(ActDeleteNav, id)
		})
		if !models.IsStructuralID(loc.topic.ID) {
			buttons = append(buttons, row(btn(fmt.Sprintf(BtnDeleteWhole, loc.topic.Title), adminPayload(ActDeletePick, loc.topic.ID))))
		}
		buttons = append(buttons, cancelRow())
		resp = reply(withPlainFallback(markdownReply(topicHeader(loc.topic)+PromptDeletePick, buttons)))
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	if leaf {
		return w.deleteConfirm(chatID, id)
	}
	if err := w.setStep(chatID, step); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (w *AdminWizard) deleteConfirm(chatID int64, id string) (Response, error) {
	if models.IsStructuralID(id) {
		return reply(textReply(MsgNotDeletable, nil)), nil
	}
	var (
		step DeleteConfirm
		text string
	)
	err := w.viewLocated(id, MsgTopicNotFound, func(_ []*models.Topic, loc located) error {
		step = DeleteConfirm{Limb: loc.limb, TopicID: loc.topic.ID}
		text = fmt.Sprintf("%sID: %s\nВидео: %d\nПодтем: %d\n\n%s",
			topicHeader(loc.topic), codeSpan(loc.topic.ID),
			ContentCount(loc.topic), CountDescendants(loc.topic), PromptConfirmDelete)
		return nil
	})
	if err != nil {
		return Response{}, err
	}
	if err := w.setStep(chatID, step); err != nil {
		return Response{}, err
	}
	buttons := [][]models.Button{
		row(btn(BtnConfirmDelete, adminPayload(ActDeleteConfirm, id))),
		cancelRow(),
	}
	return reply(withPlainFallback(markdownReply(text, buttons))), nil
}

func (w *AdminWizard) deleteTopic(chatID int64, step DeleteConfirm) (Response, error) {
	if models.IsStructuralID(step.TopicID) {
		return w.mainMenu(chatID, MsgNotDeletable)
	}
	var (
		title       string
		parentID    string
		descendants int
	)
	err := w.tree.Mutate(func(tree *models.TopicTree) error {
		parent := FindParent(tree.Themes, step.TopicID)
		if parent == nil {
			return fmt.Errorf("parent of %s: %w", step.TopicID, ErrNotFound)
		}
		for i, child := range parent.Subthemes {
			if child != nil && child.ID == step.TopicID {
				title, parentID, descendants = child.Title, parent.ID, CountDescendants(child)
				parent.Subthemes = append(parent.Subthemes[:i:i], parent.Subthemes[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("topic %s under %s: %w", step.TopicID, parent.ID, ErrNotFound)
	})
	if err != nil {
		return Response{}, mutationError(err, MsgSaveFailed)
	}
	_ = w.logger.LogEvent("admin.topic_deleted", map[string]any{
		"chat_id":     chatID,
		"topic":       step.TopicID,
		"parent":      parentID,
		"descendants": descendants,
	})
	return w.mainMenu(chatID, fmt.Sprintf(MsgTopicDeleted, title))
}
