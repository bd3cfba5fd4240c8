package core

import "github.com/valter-silva-au/limbguide/pkg/models"

// Response is the outcome of handling one inbound event: replies to send in
// order and, for button presses, a short acknowledgement notice.
type Response struct {
	Replies []models.Reply
	Answer  string
}

func textReply(text string, buttons [][]models.Button) models.Reply {
	return models.Reply{Kind: models.ReplyText, Text: text, Buttons: buttons}
}

func markdownReply(text string, buttons [][]models.Button) models.Reply {
	return models.Reply{
		Kind:           models.ReplyText,
		Text:           text,
		ParseMode:      models.ParseMarkdown,
		Buttons:        buttons,
		DisablePreview: true,
	}
}

func reply(replies ...models.Reply) Response {
	return Response{Replies: replies}
}

func answerOnly(text string) Response {
	return Response{Answer: text}
}

func row(buttons ...models.Button) []models.Button {
	return buttons
}

func btn(text, payload string) models.Button {
	return models.Button{Text: text, Payload: payload}
}

// topicButtons lists topics one per row, each button carrying the payload
// produced by payloadFor.
func topicButtons(topics []*models.Topic, label func(*models.Topic) string, payloadFor func(id string) string) [][]models.Button {
	rows := make([][]models.Button, 0, len(topics))
	for _, t := range topics {
		if t == nil {
			continue
		}
		rows = append(rows, row(btn(label(t), payloadFor(t.ID))))
	}
	return rows
}

func plainTitle(t *models.Topic) string { return t.Title }

func topicHeader(t *models.Topic) string {
	return "*" + EscapeMarkdown(t.Title) + "*\n\n"
}
