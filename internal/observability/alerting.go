package observability

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`

	// Details points at the cause, such as the topic document path or the
	// chats affected.
	Details map[string]string `json:"details,omitempty"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	DeliveryFailures int `yaml:"delivery_failures" json:"delivery_failures"`
	WindowHours      int `yaml:"window_hours" json:"window_hours"`
}

// DefaultAlertThresholds returns the default thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		DeliveryFailures: 5,
		WindowHours:      24,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine with the given EventLog and thresholds.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks all alert conditions and returns the triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now()
	var alerts []Alert

	diverged, err := ae.checkStorageDiverged(now)
	if err != nil {
		return nil, fmt.Errorf("checking tree writes: %w", err)
	}
	alerts = append(alerts, diverged...)

	loadFailures, err := ae.checkLoadFailures(now)
	if err != nil {
		return nil, fmt.Errorf("checking tree loads: %w", err)
	}
	alerts = append(alerts, loadFailures...)

	deliveries, err := ae.checkDeliveryFailures(now)
	if err != nil {
		return nil, fmt.Errorf("checking deliveries: %w", err)
	}
	alerts = append(alerts, deliveries...)

	return alerts, nil
}

// checkStorageDiverged fires when the most recent tree write failed, meaning
// the in-memory tree holds changes the document on disk does not.
func (ae *alertEngine) checkStorageDiverged(now time.Time) ([]Alert, error) {
	events, err := ae.eventLog.Read(EventFilter{TypePrefix: "tree.write"})
	if err != nil {
		return nil, err
	}

	var (
		lastOK, lastFailed time.Time
		failed             Event
	)
	for _, event := range events {
		switch event.Type {
		case "tree.written":
			lastOK = event.Time
		case "tree.write_failed":
			lastFailed = event.Time
			failed = event
		}
	}
	if lastFailed.IsZero() || !lastFailed.After(lastOK) {
		return nil, nil
	}

	return []Alert{{
		ID:          "storage-diverged",
		Condition:   "storage_diverged",
		Severity:    SeverityHigh,
		Message:     fmt.Sprintf("topic tree write failed at %s; in-memory changes are not persisted", lastFailed.Format(time.RFC3339)),
		TriggeredAt: now,
		Details:     dataDetails(failed, "path", "document", "error", "error"),
	}}, nil
}

func (ae *alertEngine) checkLoadFailures(now time.Time) ([]Alert, error) {
	since := now.Add(-ae.window())
	events, err := ae.eventLog.Read(EventFilter{Type: "tree.load_failed", Since: &since})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	return []Alert{{
		ID:          "tree-load-failed",
		Condition:   "tree_load_failed",
		Severity:    SeverityMedium,
		Message:     fmt.Sprintf("topic tree failed to load %d time(s) in the last %d hours", len(events), ae.thresholds.WindowHours),
		TriggeredAt: now,
		Details:     dataDetails(events[len(events)-1], "path", "document", "error", "error", "have_stale", "serving_stale_tree"),
	}}, nil
}

func (ae *alertEngine) checkDeliveryFailures(now time.Time) ([]Alert, error) {
	since := now.Add(-ae.window())
	events, err := ae.eventLog.Read(EventFilter{Type: "delivery.failed", Since: &since})
	if err != nil {
		return nil, err
	}
	if len(events) <= ae.thresholds.DeliveryFailures {
		return nil, nil
	}

	return []Alert{{
		ID:          "delivery-failures",
		Condition:   "delivery_failures_high",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("%d message deliveries failed in the last %d hours, exceeding the maximum of %d", len(events), ae.thresholds.WindowHours, ae.thresholds.DeliveryFailures),
		TriggeredAt: now,
		Details:     deliveryDetails(events),
	}}, nil
}

// dataDetails copies event data fields into alert details. pairs alternates
// a data key and the detail name it is reported under.
func dataDetails(event Event, pairs ...string) map[string]string {
	details := make(map[string]string)
	for i := 0; i+1 < len(pairs); i += 2 {
		if v, ok := event.Data[pairs[i]]; ok && v != nil {
			details[pairs[i+1]] = fmt.Sprint(v)
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// deliveryDetails summarizes failed deliveries by chat and reply kind.
func deliveryDetails(events []Event) map[string]string {
	chats := make(map[int64]bool)
	kinds := make(map[string]int)
	for _, event := range events {
		if id := eventChatID(event); id != 0 {
			chats[id] = true
		}
		kind, _ := event.Data["kind"].(string)
		if kind == "" {
			kind = "unknown"
		}
		kinds[kind]++
	}

	parts := make([]string, 0, len(kinds))
	for _, k := range slices.Sorted(maps.Keys(kinds)) {
		parts = append(parts, fmt.Sprintf("%s %d", k, kinds[k]))
	}
	return map[string]string{
		"chats_affected": fmt.Sprint(len(chats)),
		"reply_kinds":    strings.Join(parts, ", "),
	}
}

func (ae *alertEngine) window() time.Duration {
	hours := ae.thresholds.WindowHours
	if hours <= 0 {
		hours = DefaultAlertThresholds().WindowHours
	}
	return time.Duration(hours) * time.Hour
}
