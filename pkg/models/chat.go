package models

// InboundKind classifies an event arriving from the messaging gateway.
type InboundKind string

const (
	InboundCommand  InboundKind = "command"
	InboundText     InboundKind = "text"
	InboundCallback InboundKind = "callback"
	InboundVideo    InboundKind = "video"
)

// Inbound is one event delivered by a gateway. Only the fields relevant to
// Kind are populated.
type Inbound struct {
	ID            string      `yaml:"id"`
	Kind          InboundKind `yaml:"kind"`
	ChatID        int64       `yaml:"chat_id"`
	Username      string      `yaml:"username,omitempty"`
	Command       string      `yaml:"command,omitempty"` // without the leading slash
	Text          string      `yaml:"text,omitempty"`
	Payload       string      `yaml:"payload,omitempty"`        // button callback data
	InteractionID string      `yaml:"interaction_id,omitempty"` // callback query id to acknowledge
	FileID        string      `yaml:"file_id,omitempty"`        // uploaded video reference
}

// ReplyKind selects the gateway method used to deliver a Reply.
type ReplyKind string

const (
	ReplyText  ReplyKind = "text"
	ReplyPhoto ReplyKind = "photo"
	ReplyVideo ReplyKind = "video"
)

// ParseMode names the markup dialect of a text or caption.
type ParseMode string

const (
	ParsePlain    ParseMode = ""
	ParseMarkdown ParseMode = "Markdown"
)

// Button is an inline keyboard button carrying an opaque payload.
type Button struct {
	Text    string `yaml:"text"`
	Payload string `yaml:"payload"`
}

// Media references a photo or video either by an uploaded file reference,
// an external URL or a local file path.
type Media struct {
	FileID string `yaml:"file_id,omitempty"`
	URL    string `yaml:"url,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// IsZero reports whether the media points nowhere.
func (m Media) IsZero() bool {
	return m.FileID == "" && m.URL == "" && m.Path == ""
}

// Reply is one outbound message. Text doubles as the caption of photos and
// videos. Fallback, when set, is delivered instead if this reply fails.
type Reply struct {
	Kind           ReplyKind  `yaml:"kind"`
	Text           string     `yaml:"text,omitempty"`
	Media          Media      `yaml:"media,omitempty"`
	ParseMode      ParseMode  `yaml:"parse_mode,omitempty"`
	Buttons        [][]Button `yaml:"buttons,omitempty"`
	DisablePreview bool       `yaml:"disable_preview,omitempty"`
	Fallback       *Reply     `yaml:"fallback,omitempty"`
}

// BotCommand is a command advertised to the chat client.
type BotCommand struct {
	Command     string `yaml:"command"`
	Description string `yaml:"description"`
}
