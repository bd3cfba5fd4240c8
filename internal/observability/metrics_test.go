package observability

import (
	"testing"
	"time"
)

func TestMetrics_Calculate(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC()
	writeAll(t, log, []Event{
		{Time: now.Add(-5 * time.Minute), Type: "session.started"},
		{Time: now.Add(-4 * time.Minute), Type: "navigation.topic_viewed"},
		{Time: now.Add(-4 * time.Minute), Type: "navigation.topic_viewed"},
		{Time: now.Add(-3 * time.Minute), Type: "content.delivered", Data: map[string]any{"level": "legs_shin"}},
		{Time: now.Add(-3 * time.Minute), Type: "content.delivered", Data: map[string]any{"level": "legs_shin"}},
		{Time: now.Add(-3 * time.Minute), Type: "content.missing", Level: LevelWarn},
		{Time: now.Add(-2 * time.Minute), Type: "admin.topic_created"},
		{Time: now.Add(-2 * time.Minute), Type: "admin.content_updated"},
		{Time: now.Add(-time.Minute), Type: "tree.write_failed", Level: LevelError},
		{Time: now, Type: "tree.reloaded"},
	})

	m, err := NewMetricsCalculator(log).Calculate(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}

	if m.SessionsStarted != 1 {
		t.Errorf("SessionsStarted = %d, want 1", m.SessionsStarted)
	}
	if m.TopicViews != 2 {
		t.Errorf("TopicViews = %d, want 2", m.TopicViews)
	}
	if m.ContentDelivered != 2 || m.DeliveriesByLevel["legs_shin"] != 2 {
		t.Errorf("unexpected deliveries: %d %v", m.ContentDelivered, m.DeliveriesByLevel)
	}
	if m.ContentMissing != 1 {
		t.Errorf("ContentMissing = %d, want 1", m.ContentMissing)
	}
	if m.AdminMutations["topic_created"] != 1 || m.AdminMutations["content_updated"] != 1 {
		t.Errorf("unexpected admin mutations: %v", m.AdminMutations)
	}
	if m.ErrorsByType["tree.write_failed"] != 1 {
		t.Errorf("unexpected errors: %v", m.ErrorsByType)
	}
	if m.TreeReloads != 1 {
		t.Errorf("TreeReloads = %d, want 1", m.TreeReloads)
	}
	if m.EventCount != 10 {
		t.Errorf("EventCount = %d, want 10", m.EventCount)
	}
	if m.OldestEvent == nil || m.NewestEvent == nil || m.OldestEvent.After(*m.NewestEvent) {
		t.Errorf("unexpected event bounds: %v %v", m.OldestEvent, m.NewestEvent)
	}
}

func TestMetrics_EmptyLog(t *testing.T) {
	m, err := NewMetricsCalculator(newTestLog(t)).Calculate(time.Time{})
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	if m.EventCount != 0 || m.OldestEvent != nil {
		t.Errorf("expected empty metrics, got %+v", m)
	}
	if m.AdminMutations == nil || m.ErrorsByType == nil || m.DeliveriesByLevel == nil {
		t.Error("expected initialized maps")
	}
}

func TestMetrics_RespectsSince(t *testing.T) {
	log := newTestLog(t)
	now := time.Now().UTC()
	writeAll(t, log, []Event{
		{Time: now.Add(-48 * time.Hour), Type: "session.started"},
		{Time: now, Type: "session.started"},
	})

	m, err := NewMetricsCalculator(log).Calculate(now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("calculating metrics: %v", err)
	}
	if m.SessionsStarted != 1 {
		t.Errorf("SessionsStarted = %d, want 1", m.SessionsStarted)
	}
}
