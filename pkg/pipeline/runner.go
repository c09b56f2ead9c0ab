package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stacklink/pkg/cache"
	"github.com/matzehuels/stacklink/pkg/hoist"
	"github.com/matzehuels/stacklink/pkg/layout"
	"github.com/matzehuels/stacklink/pkg/lockfile"
	"github.com/matzehuels/stacklink/pkg/observability"
	"github.com/matzehuels/stacklink/pkg/pkgid"
)

// Runner executes runs against a plan cache.
//
// The Runner keeps no per-run state, so one Runner can serve several runs
// with different options.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// Execute loads the inputs, plans the layout and links it.
//
// A cached plan is applied directly. Otherwise the walk and the links run in
// one pass, and the resulting layout is cached once every link succeeded.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	result, in, logger, err := r.begin(ctx, &opts)
	if err != nil {
		return result, err
	}

	linkStart := time.Now()
	if result.Layout != nil {
		logger.Info("applying cached layout", "entries", len(result.Layout.Entries))
		result.Report, err = layout.Apply(ctx, result.Layout, opts.Linker, opts.LayoutOptions(logger))
	} else {
		result.Report, err = r.materialize(ctx, in, &opts, result, logger)
	}
	result.Stats.LinkTime = time.Since(linkStart)
	if err != nil {
		return result, fmt.Errorf("link: %w", err)
	}

	logger.Info("linked packages",
		"linked", result.Report.Linked,
		"skipped", len(result.Report.Skipped),
		"duration", result.Stats.LinkTime)
	return result, nil
}

// Plan loads the inputs and computes the layout without linking anything.
func (r *Runner) Plan(ctx context.Context, opts Options) (*Result, error) {
	result, in, logger, err := r.begin(ctx, &opts)
	if err != nil || result.Layout != nil {
		return result, err
	}

	walker, hoisted := r.prepare(ctx, in, &opts, result, logger)
	planStart := time.Now()
	l, err := walker.Plan(hoisted)
	result.Stats.PlanTime += time.Since(planStart)
	observability.Install().OnPlanComplete(ctx, entryCount(l), len(hoisted), result.Stats.PlanTime, err)
	if err != nil {
		return result, fmt.Errorf("plan: %w", err)
	}
	annotate(l.Entries, result.Counts)
	r.finishPlan(ctx, &opts, result, l, logger)
	return result, nil
}

// begin validates options, loads the inputs and consults the plan cache.
// On a hit, result.Layout is set and the returned Input is nil.
func (r *Runner) begin(ctx context.Context, opts *Options) (*Result, *Input, *log.Logger, error) {
	result := &Result{RunID: uuid.NewString()}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return result, nil, nil, fmt.Errorf("invalid options: %w", err)
	}
	logger := opts.Logger.With("run", result.RunID[:8])

	loadStart := time.Now()
	in, err := Load(*opts)
	if err != nil {
		return result, nil, logger, fmt.Errorf("load: %w", err)
	}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = in.Graph.NodeCount()
	result.Stats.EdgeCount = in.Graph.EdgeCount()
	result.CacheInfo.Key = cache.LayoutKey(in.LockHash, in.InstallHash, opts.LayoutKeyOpts())

	logger.Info("loaded lockfile",
		"root", in.Graph.Root(),
		"nodes", result.Stats.NodeCount,
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.LoadTime)

	if !opts.Refresh {
		var cached layout.Layout
		hit, err := cache.GetJSON(ctx, r.Cache, result.CacheInfo.Key, &cached)
		if err != nil {
			logger.Warn("layout cache unavailable", "err", err)
		}
		if hit && cached.ModulesDir == opts.LayoutOptions(nil).WithDefaults().ModulesDir() {
			result.Layout = &cached
			result.CacheInfo.LayoutHit = true
			result.Stats.Entries = len(cached.Entries)
			result.Stats.Hoisted = cached.HoistedCount()
			result.Stats.Degraded = countDegraded(cached.Entries)
			// the resolver is skipped on a hit, so repeat its warnings here
			for _, e := range cached.Entries {
				if e.Degraded {
					logger.Warn("malformed package identifier, using raw id as name", "id", e.ID)
				}
			}
			logger.Debug("layout cache hit", "key", result.CacheInfo.Key)
			return result, nil, logger, nil
		}
	}
	return result, in, logger, nil
}

// prepare runs the reference counter and the hoist planner.
func (r *Runner) prepare(ctx context.Context, in *Input, opts *Options, result *Result, logger *log.Logger) (*layout.Walker, hoist.Set) {
	resolver := pkgid.NewResolver(logger)
	acc := lockfile.NewAccessor(in.Graph, resolver, opts.Dev)

	countStart := time.Now()
	result.Counts = hoist.Count(acc, acc.Root())
	countTime := time.Since(countStart)
	result.Stats.Reachable = len(result.Counts)
	observability.Install().OnCountComplete(ctx, len(result.Counts), countTime)

	hoisted := hoist.Plan(result.Counts, acc.Root())
	result.Stats.Hoisted = len(hoisted)
	result.Stats.PlanTime = countTime

	logger.Info("counted references",
		"reachable", result.Stats.Reachable,
		"hoisted", len(hoisted),
		"duration", countTime)

	return layout.NewWalker(acc, in.Installations, opts.LayoutOptions(logger)), hoisted
}

// materialize walks and links in one pass, then caches the placed layout.
func (r *Runner) materialize(ctx context.Context, in *Input, opts *Options, result *Result, logger *log.Logger) (*layout.Report, error) {
	walker, hoisted := r.prepare(ctx, in, opts, result, logger)

	report, err := walker.Materialize(ctx, hoisted, opts.Linker)
	l := &layout.Layout{
		Root:       in.Graph.Root(),
		ModulesDir: opts.LayoutOptions(logger).WithDefaults().ModulesDir(),
		Entries:    report.Placed,
		Skipped:    report.Skipped,
	}
	if l.Entries == nil {
		l.Entries = []layout.Entry{}
	}
	annotate(l.Entries, result.Counts)
	result.Layout = l
	observability.Install().OnPlanComplete(ctx, len(l.Entries), len(hoisted), result.Stats.PlanTime, err)
	if err != nil {
		result.Stats.Entries = len(l.Entries)
		return report, err
	}

	r.finishPlan(ctx, opts, result, l, logger)
	return report, nil
}

// finishPlan records plan statistics and stores the layout in the cache.
func (r *Runner) finishPlan(ctx context.Context, opts *Options, result *Result, l *layout.Layout, logger *log.Logger) {
	result.Layout = l
	result.Stats.Entries = len(l.Entries)
	result.Stats.Degraded = countDegraded(l.Entries)

	if err := cache.SetJSON(ctx, r.Cache, result.CacheInfo.Key, l, opts.CacheTTL); err != nil {
		logger.Warn("failed to cache layout", "err", err)
	}
	logger.Info("planned layout",
		"entries", result.Stats.Entries,
		"hoisted", result.Stats.Hoisted,
		"degraded", result.Stats.Degraded,
		"skipped", len(l.Skipped))
}

// annotate copies reference counts onto entries.
func annotate(entries []layout.Entry, counts hoist.RefCounts) {
	for i := range entries {
		entries[i].Refs = counts[entries[i].ID]
	}
}

func countDegraded(entries []layout.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Degraded {
			n++
		}
	}
	return n
}

func entryCount(l *layout.Layout) int {
	if l == nil {
		return 0
	}
	return len(l.Entries)
}
