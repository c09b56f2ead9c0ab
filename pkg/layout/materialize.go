package layout

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stacklink/pkg/fsops"
	"github.com/matzehuels/stacklink/pkg/hoist"
	"github.com/matzehuels/stacklink/pkg/observability"
)

// Materialize walks the graph and links every placed package.
//
// Placement decisions are made by the calling goroutine; links run
// concurrently, limited by Options.Jobs. An entry nested in another entry's
// private module directory is linked only after that entry's link succeeded.
// The first failure stops further scheduling, and Materialize waits for all
// links already started before returning. Links already created are kept.
func (w *Walker) Materialize(ctx context.Context, hoisted hoist.Set, linker fsops.Linker) (*Report, error) {
	start := time.Now()
	d := newDispatcher(ctx, linker, w.opts)

	skipped, walkErr := w.Walk(hoisted, d.dispatch)
	report, err := d.wait(walkErr)
	report.Skipped = skipped
	report.Duration = time.Since(start)

	observability.Install().OnMaterializeComplete(ctx, report.Linked, report.Duration, err)
	return report, err
}

// Apply links the entries of a precomputed layout, in order.
func Apply(ctx context.Context, l *Layout, linker fsops.Linker, opts Options) (*Report, error) {
	start := time.Now()
	d := newDispatcher(ctx, linker, opts.WithDefaults())

	var walkErr error
	for _, e := range l.Entries {
		if walkErr = d.dispatch(e); walkErr != nil {
			break
		}
	}
	report, err := d.wait(walkErr)
	report.Skipped = l.Skipped
	report.Duration = time.Since(start)

	observability.Install().OnMaterializeComplete(ctx, report.Linked, report.Duration, err)
	return report, err
}

// task tracks one dispatched link. err is written before done is closed.
type task struct {
	done chan struct{}
	err  error
}

// dispatcher runs link operations on an errgroup, ordering nested entries
// after the entry that contains them.
type dispatcher struct {
	group  *errgroup.Group
	ctx    context.Context
	linker fsops.Linker
	opts   Options
	tasks  []*task
	placed []Entry
}

func newDispatcher(ctx context.Context, linker fsops.Linker, opts Options) *dispatcher {
	g, gctx := errgroup.WithContext(ctx)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}
	return &dispatcher{
		group:  g,
		ctx:    gctx,
		linker: linker,
		opts:   opts,
	}
}

// dispatch schedules e. It must be called from a single goroutine, with
// entries in placement order so that e.Parent is already scheduled.
func (d *dispatcher) dispatch(e Entry) error {
	if err := d.ctx.Err(); err != nil {
		return err
	}

	t := &task{done: make(chan struct{})}
	var parent *task
	if e.Parent >= 0 && e.Parent < len(d.tasks) {
		parent = d.tasks[e.Parent]
	}
	d.tasks = append(d.tasks, t)
	d.placed = append(d.placed, e)

	d.group.Go(func() error {
		defer close(t.done)
		if parent != nil {
			select {
			case <-parent.done:
			case <-d.ctx.Done():
				t.err = d.ctx.Err()
				return nil
			}
			if parent.err != nil {
				t.err = parent.err
				return nil
			}
		}
		if err := d.ctx.Err(); err != nil {
			t.err = err
			return nil
		}

		start := time.Now()
		t.err = d.linker.Link(e.Source, e.Dest)
		observability.Install().OnLink(d.ctx, e.Dest, time.Since(start), t.err)
		if t.err != nil {
			return t.err
		}
		d.opts.Logger.Debug("linked", "dest", e.Dest, "source", e.Source)
		return nil
	})
	return nil
}

// wait blocks until every dispatched link finished. A link failure takes
// precedence over walkErr, except when walkErr is the cancellation it caused.
func (d *dispatcher) wait(walkErr error) (*Report, error) {
	linkErr := d.group.Wait()

	report := &Report{Entries: len(d.tasks), Placed: d.placed}
	for _, t := range d.tasks {
		if t.err == nil {
			report.Linked++
		}
	}

	switch {
	case linkErr != nil:
		return report, linkErr
	default:
		return report, walkErr
	}
}
