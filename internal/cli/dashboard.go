package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

// Dashboard panel indices.
const (
	panelTree = iota
	panelMetrics
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	tree        *models.TopicTree
	metricsData *metricsSnapshot
	alerts      []alertSnapshot

	// Tree browser: the opened topics from the root down, and the
	// highlighted row among the children of the last one.
	trail  []*models.Topic
	cursor int

	// State.
	loading bool
	err     error
}

type metricsSnapshot struct {
	sessionsStarted  int
	topicViews       int
	contentDelivered int
	contentMissing   int
	adminMutations   int
	eventCount       int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	tree    *models.TopicTree
	metrics *metricsSnapshot
	alerts  []alertSnapshot
	err     error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	trailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	branchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	contentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	emptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	missingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	deliveryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelTree,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadData
		}
		if m.activePanel == panelTree {
			return m.updateTree(msg.String()), nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tree = msg.tree
		m.metricsData = msg.metrics
		m.alerts = msg.alerts
		m.err = nil
		m.retrace()
		return m, nil
	}

	return m, nil
}

// updateTree moves through the topic tree.
func (m dashboardModel) updateTree(key string) dashboardModel {
	rows := m.rows()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "enter", "right", "l":
		if m.cursor < len(rows) && rows[m.cursor].HasChildren() {
			m.trail = append(m.trail[:len(m.trail):len(m.trail)], rows[m.cursor])
			m.cursor = 0
		}
	case "backspace", "left", "h":
		if len(m.trail) > 0 {
			last := m.trail[len(m.trail)-1]
			m.trail = m.trail[:len(m.trail)-1]
			m.cursor = 0
			for i, t := range m.rows() {
				if t == last {
					m.cursor = i
				}
			}
		}
	}
	return m
}

// rows returns the topics listed at the current position of the browser.
func (m dashboardModel) rows() []*models.Topic {
	if len(m.trail) > 0 {
		return m.trail[len(m.trail)-1].Subthemes
	}
	if m.tree == nil {
		return nil
	}
	return m.tree.Themes
}

// retrace re-resolves the browser trail against a freshly loaded tree,
// stopping at the first topic that no longer exists.
func (m *dashboardModel) retrace() {
	if m.tree == nil {
		m.trail, m.cursor = nil, 0
		return
	}
	var trail []*models.Topic
	nodes := m.tree.Themes
	for _, old := range m.trail {
		var next *models.Topic
		for _, n := range nodes {
			if n != nil && n.ID == old.ID {
				next = n
				break
			}
		}
		if next == nil || !next.HasChildren() {
			break
		}
		trail = append(trail, next)
		nodes = next.Subthemes
	}
	m.trail = trail
	if n := len(m.rows()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" limbguide dashboard ")
	help := helpStyle.Render("tab: switch panel | ↑/↓ enter ←: browse topics | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	treePanel := m.renderTreePanel()
	metricsPanel := m.renderMetricsPanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: the tree browser gets half, metrics and alerts a quarter each.
		treeWidth := availableWidth / 2
		sideWidth := (availableWidth - treeWidth) / 2
		treePanel = m.applyPanelStyle(panelTree, treePanel, treeWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, sideWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, sideWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, treePanel, metricsPanel, alertsPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		treePanel = m.applyPanelStyle(panelTree, treePanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, treePanel, metricsPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTreePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Topics"))
	b.WriteString("\n")

	if m.tree == nil {
		b.WriteString("  Topic tree not loaded.")
		return b.String()
	}

	crumbs := []string{"/"}
	for _, t := range m.trail {
		crumbs = append(crumbs, t.Title)
	}
	b.WriteString(trailStyle.Render("  " + strings.Join(crumbs, " › ")))
	b.WriteString("\n\n")

	rows := m.rows()
	if len(rows) == 0 {
		b.WriteString("  No subtopics.")
		return b.String()
	}

	for i, t := range rows {
		if t == nil {
			continue
		}
		marker := "  "
		if i == m.cursor && m.activePanel == panelTree {
			marker = cursorStyle.Render("> ")
		}
		b.WriteString(marker)
		b.WriteString(styleForTopic(t).Render(topicLabel(t)))
		b.WriteString("\n")
	}

	if m.cursor < len(rows) && rows[m.cursor] != nil {
		sel := rows[m.cursor]
		b.WriteString(trailStyle.Render(fmt.Sprintf("\n  %s · level %d · %d below", sel.ID, sel.Level, core.CountDescendants(sel))))
	}

	return b.String()
}

func topicLabel(t *models.Topic) string {
	switch {
	case t.HasChildren():
		return fmt.Sprintf("📁 %s (%d)", t.Title, len(t.Subthemes))
	case t.HasPerLevelContent():
		return fmt.Sprintf("🎬 %s [%d]", t.Title, core.ContentCount(t))
	default:
		return "📄 " + t.Title
	}
}

func styleForTopic(t *models.Topic) lipgloss.Style {
	switch {
	case t.HasChildren():
		return branchStyle
	case core.ContentCount(t) > 0 || strings.TrimSpace(t.Description) != "":
		return contentStyle
	default:
		return emptyStyle
	}
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Metrics (7d)"))
	b.WriteString("\n")

	if m.metricsData == nil {
		b.WriteString("  No metrics available.")
		return b.String()
	}

	md := m.metricsData
	lines := []struct {
		label string
		value int
		style lipgloss.Style
	}{
		{"Events", md.eventCount, lipgloss.NewStyle()},
		{"Sessions", md.sessionsStarted, lipgloss.NewStyle()},
		{"Views", md.topicViews, lipgloss.NewStyle()},
		{"Delivered", md.contentDelivered, deliveryStyle},
		{"Missing", md.contentMissing, missingStyle},
		{"Admin edits", md.adminMutations, lipgloss.NewStyle()},
	}

	for _, l := range lines {
		b.WriteString(l.style.Render(fmt.Sprintf("  %-14s %d", l.label, l.value)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadData() tea.Msg {
	var result dataLoadedMsg

	// Snapshot the topic tree.
	if TreeStore != nil {
		err := TreeStore.View(func(tree *models.TopicTree) error {
			result.tree = tree.Clone()
			return nil
		})
		if err != nil {
			result.err = fmt.Errorf("loading topic tree: %w", err)
			return result
		}
	}

	// Load metrics from MetricsCalc.
	if MetricsCalc != nil {
		since := time.Now().UTC().AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		snap := &metricsSnapshot{
			sessionsStarted:  metrics.SessionsStarted,
			topicViews:       metrics.TopicViews,
			contentDelivered: metrics.ContentDelivered,
			contentMissing:   metrics.ContentMissing,
			eventCount:       metrics.EventCount,
		}
		for _, n := range metrics.AdminMutations {
			snap.adminMutations += n
		}
		result.metrics = snap
	}

	// Load alerts from AlertEngine.
	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// Sort alerts by severity: high first, then medium, then low.
		sort.Slice(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI for browsing topics, metrics and alerts",
	Long: `Launch an interactive terminal dashboard with a topic tree browser next
to the last week's usage metrics and the active alerts.

Navigate between panels with Tab. In the topic panel use the arrow keys (or
j/k) to move, Enter to open a topic and Backspace to go up. Refresh with r,
quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TreeStore == nil {
			return fmt.Errorf("topic tree store not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
