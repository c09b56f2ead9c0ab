package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklink/pkg/render"
	"github.com/matzehuels/stacklink/pkg/render/nodelink"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		flags    layoutFlags
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the planned module tree as a Graphviz diagram",
		Example: `  stacklink graph > layout.dot
  stacklink graph --format svg -o layout.svg --detailed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !render.ValidFormats[format] {
				return fmt.Errorf("invalid format: %q (must be one of: dot, svg)", format)
			}
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

			prog := newProgress(c.Logger)
			data := []byte(nodelink.ToDOT(result.Layout, nodelink.Options{Detailed: detailed}))
			if format == render.FormatSVG {
				if data, err = nodelink.RenderSVG(ctx, string(data)); err != nil {
					return err
				}
			}
			prog.done(fmt.Sprintf("Rendered %d packages", len(result.Layout.Entries)))

			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Wrote %s graph", format)
			printFile(output)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", render.FormatDOT, "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include version and reference count in labels")
	return cmd
}
