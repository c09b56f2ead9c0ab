package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklink/pkg/observability"
)

// installCommand creates the install command.
func (c *CLI) installCommand() *cobra.Command {
	var flags layoutFlags

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Link installed packages into the module directory",
		Long: `Install computes the hoisted layout of the lockfile and links every
package into the module directory. Links already in place are kept, so
running install again is safe.`,
		Example: `  stacklink install
  stacklink install -C ./app --dev=root
  stacklink install --no-cache --jobs 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInstall(cmd, &flags)
		},
	}

	flags.register(cmd)
	return cmd
}

func (c *CLI) runInstall(cmd *cobra.Command, flags *layoutFlags) error {
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

	spinner := newSpinnerWithContext(ctx, "Linking packages...")
	hooks := &linkProgress{spinner: spinner}
	observability.SetInstallHooks(hooks)
	defer observability.Reset()

	spinner.Start()
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Install failed")
		return err
	}

	rel, relErr := filepath.Rel(opts.ProjectDir, result.Layout.ModulesDir)
	if relErr != nil {
		rel = result.Layout.ModulesDir
	}
	spinner.StopWithSuccess(fmt.Sprintf("Linked %d packages into %s", result.Report.Linked, rel))
	printStats(result)
	printSkipped(result)
	return nil
}

// linkProgress reports link events on the install spinner.
type linkProgress struct {
	observability.NoopInstallHooks
	spinner *Spinner
	linked  atomic.Int64
	failed  atomic.Int64
}

func (p *linkProgress) OnLink(_ context.Context, _ string, _ time.Duration, err error) {
	if err != nil {
		p.failed.Add(1)
		return
	}
	n := p.linked.Add(1)
	p.spinner.SetMessage(fmt.Sprintf("Linking packages... %d", n))
}
