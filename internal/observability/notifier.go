package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"
)

// Notifier sends alert notifications to external channels.
type Notifier interface {
	Notify(alerts []Alert) error
}

// slackNotifier sends alert notifications to a Slack webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that sends alerts to the given Slack webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// nopNotifier is used when no webhook is configured.
type nopNotifier struct{}

func (nopNotifier) Notify([]Alert) error { return nil }

// NewNotifier returns a Slack notifier, or a no-op notifier when webhookURL is empty.
func NewNotifier(webhookURL string) Notifier {
	if webhookURL == "" {
		return nopNotifier{}
	}
	return NewSlackNotifier(webhookURL)
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify sends the given alerts to the configured Slack webhook.
// It returns nil without making a request if the alerts slice is empty.
func (s *slackNotifier) Notify(alerts []Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	msg := s.buildMessage(alerts)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *slackNotifier) buildMessage(alerts []Alert) slackMessage {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "limbguide Alert Summary"},
		},
	}

	for i, alert := range alerts {
		if i > 0 {
			blocks = append(blocks, slackBlock{Type: "divider"})
		}
		emoji := severityEmoji(alert.Severity)
		text := fmt.Sprintf("%s *[%s]* `%s` %s\n_%s_",
			emoji,
			strings.ToUpper(string(alert.Severity)),
			alert.Condition,
			alert.Message,
			alert.TriggeredAt.Format("2006-01-02 15:04 UTC"),
		)
		for _, k := range slices.Sorted(maps.Keys(alert.Details)) {
			text += fmt.Sprintf("\n• %s: `%s`", k, alert.Details[k])
		}
		if hint := conditionHints[alert.Condition]; hint != "" {
			text += "\n" + hint
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}

	return slackMessage{Blocks: blocks}
}

// conditionHints tell the operator what to look at for each alert condition.
var conditionHints = map[string]string{
	"storage_diverged":       "Admin edits made since the failure exist only in memory and are lost on restart. Restore write access to the document, then repeat one edit to save the tree.",
	"tree_load_failed":       "The topic document is unreadable or not valid JSON. The bot keeps serving the last tree it loaded, if any.",
	"delivery_failures_high": "Check the bot token and the gateway. A video that fails to send is replaced by its caption text.",
}

func severityEmoji(severity AlertSeverity) string {
	switch severity {
	case SeverityHigh:
		return "\U0001f534"
	case SeverityMedium:
		return "\U0001f7e1"
	case SeverityLow:
		return "\U0001f535"
	default:
		return "\u2753"
	}
}
