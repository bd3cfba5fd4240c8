// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the limbguide topic tree and usage metrics as MCP tools, so content
// editors can inspect the tree from an AI assistant.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/internal/observability"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// Server wraps limbguide services and exposes them as MCP tools.
type Server struct {
	server       *gomcp.Server
	tree         core.TreeStore
	metricsCalc  observability.MetricsCalculator
	outlineDepth int
}

// NewServer creates a new MCP server over the topic tree. metricsCalc may be
// nil if observability is disabled.
func NewServer(tree core.TreeStore, metricsCalc observability.MetricsCalculator, outlineDepth int, version string) *Server {
	if version == "" {
		version = "dev"
	}
	if outlineDepth < 0 {
		outlineDepth = core.DefaultOutlineDepth
	}

	s := &Server{
		tree:         tree,
		metricsCalc:  metricsCalc,
		outlineDepth: outlineDepth,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "limbguide", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type findTopicInput struct {
	ID string `json:"id" jsonschema:"the topic identifier, e.g. legs_questions or custom_1700000000000"`
}

type topicRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type topicOutput struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Level         int        `json:"level"`
	Path          []string   `json:"path"`
	Children      []topicRef `json:"children"`
	Structural    bool       `json:"structural"`
	ContentLevels []string   `json:"content_levels"`
	Description   string     `json:"description,omitempty"`
}

type getOutlineInput struct {
	MaxDepth *int `json:"max_depth,omitempty" jsonschema:"deepest level to render, counted from the root. Defaults to the configured outline depth."`
}

type outlineOutput struct {
	Outline string `json:"outline"`
	Lines   int    `json:"lines"`
}

type getTopicContentInput struct {
	ID    string `json:"id" jsonschema:"the topic identifier"`
	Level string `json:"level,omitempty" jsonschema:"amputation level id such as legs_foot. Without it only branch or plain content is resolved."`
}

type contentOutput struct {
	Kind        string     `json:"kind"` // per_level, branch or plain
	MediaKind   string     `json:"media_kind,omitempty"`
	MediaRef    string     `json:"media_ref,omitempty"`
	Description string     `json:"description,omitempty"`
	Children    []topicRef `json:"children"`
}

type queryTopicsInput struct {
	Path string `json:"path" jsonschema:"JSONPath expression evaluated against the stored document, e.g. $..[?(@.level > 4)].title"`
}

type queryTopicsOutput struct {
	Results []any `json:"results"`
	Count   int   `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	SessionsStarted   int            `json:"sessions_started"`
	TopicViews        int            `json:"topic_views"`
	ContentDelivered  int            `json:"content_delivered"`
	ContentMissing    int            `json:"content_missing"`
	AdminMutations    map[string]int `json:"admin_mutations"`
	DeliveriesByLevel map[string]int `json:"deliveries_by_level"`
	ErrorsByType      map[string]int `json:"errors_by_type"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "find_topic",
		Description: "Find a topic by id. Returns its title, level, path from the root, children and the amputation levels that carry content.",
	}, s.handleFindTopic)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_outline",
		Description: "Render the topic tree as an indented outline with content counts.",
	}, s.handleGetOutline)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_topic_content",
		Description: "Resolve what a patient sees when selecting a topic, optionally for one amputation level.",
	}, s.handleGetTopicContent)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "query_topics",
		Description: "Run a JSONPath query against the topic document.",
	}, s.handleQueryTopics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get usage metrics from the event log: sessions, topic views, deliveries per level, admin edits and errors.",
	}, s.handleGetMetrics)
}

// --- Tool handlers ---

func (s *Server) handleFindTopic(_ context.Context, _ *gomcp.CallToolRequest, input findTopicInput) (*gomcp.CallToolResult, topicOutput, error) {
	if input.ID == "" {
		return errorResult("id is required"), topicOutput{}, nil
	}

	var out topicOutput
	err := s.tree.View(func(tree *models.TopicTree) error {
		topic := core.FindByID(tree.Themes, input.ID)
		if topic == nil {
			return core.ErrNotFound
		}
		out = topicToOutput(topic, core.FindPath(tree.Themes, input.ID))
		return nil
	})
	if err != nil {
		return errorResult(lookupMessage(input.ID, err)), topicOutput{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleGetOutline(_ context.Context, _ *gomcp.CallToolRequest, input getOutlineInput) (*gomcp.CallToolResult, outlineOutput, error) {
	depth := s.outlineDepth
	if input.MaxDepth != nil {
		depth = *input.MaxDepth
	}
	if depth < 0 {
		return errorResult("max_depth must be non-negative"), outlineOutput{}, nil
	}

	var out outlineOutput
	err := s.tree.View(func(tree *models.TopicTree) error {
		for line := range core.OutlineLines(tree.Themes, depth) {
			out.Outline += line + "\n"
			out.Lines++
		}
		return nil
	})
	if err != nil {
		return errorResult(fmt.Sprintf("reading topic tree: %s", err)), outlineOutput{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleGetTopicContent(_ context.Context, _ *gomcp.CallToolRequest, input getTopicContentInput) (*gomcp.CallToolResult, contentOutput, error) {
	if input.ID == "" {
		return errorResult("id is required"), contentOutput{}, nil
	}

	var limb models.Limb
	if input.Level != "" {
		lvl, ok := models.LevelByID(input.Level)
		if !ok {
			return errorResult(fmt.Sprintf("unknown amputation level %q", input.Level)), contentOutput{}, nil
		}
		limb = lvl.Limb
	}

	var out contentOutput
	err := s.tree.View(func(tree *models.TopicTree) error {
		topic := core.FindByID(tree.Themes, input.ID)
		if topic == nil {
			return core.ErrNotFound
		}
		out = contentToOutput(core.ResolveContent(topic, limb, input.Level))
		return nil
	})
	if err != nil {
		return errorResult(lookupMessage(input.ID, err)), contentOutput{}, nil
	}
	return nil, out, nil
}

func (s *Server) handleQueryTopics(_ context.Context, _ *gomcp.CallToolRequest, input queryTopicsInput) (*gomcp.CallToolResult, queryTopicsOutput, error) {
	if input.Path == "" {
		return errorResult("path is required"), queryTopicsOutput{}, nil
	}

	results, err := core.QueryStore(s.tree, input.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("querying topics: %s", err)), queryTopicsOutput{}, nil
	}
	return nil, queryTopicsOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := emptyMetricsOutput()
	out.SessionsStarted = metrics.SessionsStarted
	out.TopicViews = metrics.TopicViews
	out.ContentDelivered = metrics.ContentDelivered
	out.ContentMissing = metrics.ContentMissing
	out.EventCount = metrics.EventCount
	copyCounts(out.AdminMutations, metrics.AdminMutations)
	copyCounts(out.DeliveriesByLevel, metrics.DeliveriesByLevel)
	copyCounts(out.ErrorsByType, metrics.ErrorsByType)
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}

	return nil, out, nil
}

// --- Helpers ---

func topicToOutput(t *models.Topic, path []string) topicOutput {
	out := topicOutput{
		ID:          t.ID,
		Title:       t.Title,
		Level:       t.Level,
		Path:        path,
		Children:    refs(t.Subthemes),
		Structural:  models.IsStructuralID(t.ID),
		Description: t.Description,
	}
	for _, lvl := range models.AllAmputationLevels() {
		if t.FilesByLevel[lvl.ID] != "" || t.VideosByLevel[lvl.ID] != "" || t.DescriptionByLevel[lvl.ID] != "" {
			out.ContentLevels = append(out.ContentLevels, lvl.ID)
		}
	}
	return out
}

func contentToOutput(c core.Content) contentOutput {
	switch c := c.(type) {
	case core.PerLevel:
		out := contentOutput{Kind: "per_level", Description: c.Description, MediaRef: c.Media.Ref}
		switch c.Media.Kind {
		case core.MediaFile:
			out.MediaKind = "file"
		case core.MediaURL:
			out.MediaKind = "url"
		default:
			out.MediaKind = "none"
		}
		return out
	case core.Branch:
		return contentOutput{Kind: "branch", Children: refs(c.Children)}
	case core.Plain:
		return contentOutput{Kind: "plain", Description: c.Description}
	}
	return contentOutput{}
}

func refs(topics []*models.Topic) []topicRef {
	var out []topicRef
	for _, t := range topics {
		if t != nil {
			out = append(out, topicRef{ID: t.ID, Title: t.Title})
		}
	}
	return out
}

func lookupMessage(id string, err error) string {
	if errors.Is(err, core.ErrNotFound) {
		return fmt.Sprintf("topic %q not found", id)
	}
	return fmt.Sprintf("reading topic tree: %s", err)
}

func copyCounts(dst, src map[string]int) {
	for k, v := range src {
		dst[k] = v
	}
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		AdminMutations:    make(map[string]int),
		DeliveriesByLevel: make(map[string]int),
		ErrorsByType:      make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
