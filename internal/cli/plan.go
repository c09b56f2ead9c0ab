package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklink/pkg/layout"
)

// planCommand creates the plan command, a dry run of install.
func (c *CLI) planCommand() *cobra.Command {
	var (
		flags  layoutFlags
		asJSON bool
		browse bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show where every package would be linked, without linking",
		Example: `  stacklink plan
  stacklink plan --json > layout.json
  stacklink plan --tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts, err := flags.options(cmd, cfg, c.Logger)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, cfg)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()

			result, err := runner.Plan(ctx, opts)
			if err != nil {
				return err
			}

			switch {
			case asJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result.Layout)
			case browse:
				_, err := tea.NewProgram(newLayoutModel(result.Layout, opts.ProjectDir), tea.WithContext(ctx)).Run()
				return err
			}

			fmt.Println(StyleTitle.Render("Layout of " + result.Layout.Root))
			fmt.Println(planTable(result.Layout, opts.ProjectDir))
			printStats(result)
			printSkipped(result)
			printNextStep("Apply it", appName+" install")
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the layout as JSON")
	cmd.Flags().BoolVar(&browse, "tui", false, "browse the layout interactively")
	cmd.MarkFlagsMutuallyExclusive("json", "tui")
	return cmd
}

// planTable renders the entries with destinations relative to projectDir.
func planTable(l *layout.Layout, projectDir string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := make([][]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		rows = append(rows, []string{relPath(projectDir, e.Dest), e.Name, e.Version, strconv.Itoa(e.Refs), marker(e)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Destination", "Package", "Version", "Refs", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row >= 0 && row < len(l.Entries) && l.Entries[row].Hoisted {
				return StyleHoisted
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

func marker(e layout.Entry) string {
	switch {
	case e.Degraded:
		return "unparsed id"
	case e.Hoisted:
		return "hoisted"
	}
	return ""
}

func relPath(base, p string) string {
	if rel, err := filepath.Rel(base, p); err == nil {
		return rel
	}
	return p
}
