package observability

import (
	"fmt"
	"time"
)

// Metrics holds usage figures derived from the event log.
type Metrics struct {
	SessionsStarted   int            `json:"sessions_started"`
	TopicViews        int            `json:"topic_views"`
	ContentDelivered  int            `json:"content_delivered"`
	ContentMissing    int            `json:"content_missing"`
	AdminMutations    map[string]int `json:"admin_mutations"`
	DeliveriesByLevel map[string]int `json:"deliveries_by_level"`
	ErrorsByType      map[string]int `json:"errors_by_type"`
	TreeReloads       int            `json:"tree_reloads"`
	EventCount        int            `json:"event_count"`
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates all events since the given time.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		AdminMutations:    make(map[string]int),
		DeliveriesByLevel: make(map[string]int),
		ErrorsByType:      make(map[string]int),
		EventCount:        len(events),
	}

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case "session.started":
			m.SessionsStarted++
		case "navigation.topic_viewed":
			m.TopicViews++
		case "content.delivered":
			m.ContentDelivered++
			if level, ok := event.Data["level"].(string); ok && level != "" {
				m.DeliveriesByLevel[level]++
			}
		case "content.missing":
			m.ContentMissing++
		case "tree.reloaded":
			m.TreeReloads++
		case "admin.content_updated", "admin.content_deleted", "admin.topic_created", "admin.topic_deleted":
			m.AdminMutations[event.Type[len("admin."):]]++
		}

		if event.Level == LevelError {
			m.ErrorsByType[event.Type]++
		}
	}

	return m, nil
}
