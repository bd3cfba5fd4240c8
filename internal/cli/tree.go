package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

var (
	outlineDepth int
	queryJSON    bool
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Print the topic tree as an indented outline",
	Long: `Print the topic tree as an indented outline, two spaces per level, with
the number of videos attached to each topic. This is the same outline the
admin panel shows in chat.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if TreeStore == nil {
			return fmt.Errorf("topic tree store not initialized")
		}
		depth := outlineDepth
		if depth < 0 {
			depth = core.DefaultOutlineDepth
			if Config != nil {
				depth = Config.Tree.OutlineDepth
			}
		}

		out := cmd.OutOrStdout()
		return TreeStore.View(func(tree *models.TopicTree) error {
			_, err := fmt.Fprint(out, core.RenderOutline(tree.Themes, depth))
			return err
		})
	},
}

var findCmd = &cobra.Command{
	Use:   "find <topic-id>",
	Short: "Show one topic, its path and its content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TreeStore == nil {
			return fmt.Errorf("topic tree store not initialized")
		}
		id := args[0]
		out := cmd.OutOrStdout()

		return TreeStore.View(func(tree *models.TopicTree) error {
			topic := core.FindByID(tree.Themes, id)
			if topic == nil {
				return fmt.Errorf("topic %s: %w", id, core.ErrNotFound)
			}
			printTopic(out, tree, topic)
			return nil
		})
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <jsonpath>",
	Short: "Run a JSONPath query against the topic tree",
	Long: `Run a JSONPath query against the topic document and print each match on
its own line as JSON.

Examples:
  limbguide query '$.themes[0].subthemes[*].title'
  limbguide query '$..[?(@.level > 4)].id'
  limbguide query '$..videos_by_level.legs_foot'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if TreeStore == nil {
			return fmt.Errorf("topic tree store not initialized")
		}
		results, err := core.QueryStore(TreeStore, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if queryJSON {
			if results == nil {
				results = []any{}
			}
			data, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting results as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		for _, r := range results {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("formatting result: %w", err)
			}
			fmt.Fprintln(out, string(data))
		}
		if len(results) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No matches.")
		}
		return nil
	},
}

func printTopic(out io.Writer, tree *models.TopicTree, topic *models.Topic) {
	var titles []string
	for _, id := range core.FindPath(tree.Themes, topic.ID) {
		if t := core.FindByID(tree.Themes, id); t != nil {
			titles = append(titles, t.Title)
		}
	}

	fmt.Fprintf(out, "%s (%s)\n", topic.Title, topic.ID)
	fmt.Fprintf(out, "  %-12s %s\n", "Path:", strings.Join(titles, " > "))
	fmt.Fprintf(out, "  %-12s %d\n", "Level:", topic.Level)
	if models.IsStructuralID(topic.ID) {
		fmt.Fprintf(out, "  %-12s %s\n", "Kind:", "structural")
	}
	if topic.Description != "" {
		fmt.Fprintf(out, "  %-12s %s\n", "Description:", topic.Description)
	}

	if len(topic.Subthemes) > 0 {
		fmt.Fprintf(out, "\n  Subtopics (%d, %d below):\n", len(topic.Subthemes), core.CountDescendants(topic))
		for _, c := range topic.Subthemes {
			fmt.Fprintf(out, "    %-28s %s\n", c.ID, c.Title)
		}
	}

	if topic.HasPerLevelContent() {
		fmt.Fprintln(out, "\n  Content by level:")
		for _, lvl := range models.AllAmputationLevels() {
			var parts []string
			if ref := topic.FilesByLevel[lvl.ID]; ref != "" {
				parts = append(parts, "file "+ref)
			}
			if url := topic.VideosByLevel[lvl.ID]; url != "" {
				parts = append(parts, "link "+url)
			}
			if desc := topic.DescriptionByLevel[lvl.ID]; desc != "" {
				parts = append(parts, fmt.Sprintf("%q", desc))
			}
			if len(parts) > 0 {
				fmt.Fprintf(out, "    %-28s %s\n", lvl.ID, strings.Join(parts, "; "))
			}
		}
	}
}

func init() {
	outlineCmd.Flags().IntVar(&outlineDepth, "depth", -1, "Deepest level to print, counted from the root (default: tree.outline_depth)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print all matches as one JSON array")
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(queryCmd)
}
