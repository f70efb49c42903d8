package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tweag/nixtract/eval"
	"github.com/tweag/nixtract/metrics"
	"github.com/tweag/nixtract/types"
)

// pollInterval is the drive loop's bounded poll on queue reads:
// deliberate polling, not a correctness device, so that termination
// conditions are re-checked even when no new work arrives.
const pollInterval = 1 * time.Second

// Config configures one Coordinator run.
type Config struct {
	// NWorkers is the describer worker pool size (n_workers >= 1).
	NWorkers int
}

// Result is the outcome of one extraction run, reported at Verify time.
type Result struct {
	// QueueResidue is true if the queue was non-empty at drain time,
	// meaning the run stopped before exhausting reachable derivations.
	QueueResidue bool
	// FatalErr is set when a SpawnError or SinkWriteError aborted the
	// run early, distinct from a residue stop.
	FatalErr error
}

// Coordinator drives one extraction run: it owns the
// queue, the two output-path sets, the sink and its write lock, starts
// the finder and its reader, feeds the describer worker pool, defines
// termination, and joins every task. Its drive loop is a fan-out of
// derivation descriptions across a bounded worker pool, draining until
// every producer and consumer has quiesced.
type Coordinator struct {
	driver      eval.Driver
	sink        Sink
	config      Config
	logger      *zap.SugaredLogger
	mc          *metrics.Collector
	passthrough io.Writer

	queue          *workQueue
	queuedPaths    *outputPathSet
	visitedPaths   *outputPathSet
	attemptedPaths *outputPathSet // dedups describer attempts for absent-output-path derivations

	inFlight atomic.Int64

	abortOnce sync.Once
	abortErr  error
	cancel    context.CancelFunc
}

// NewCoordinator builds a Coordinator for one extraction run. passthrough
// receives finder stderr lines that are not structured "trace:" events;
// pass os.Stderr in production.
func NewCoordinator(driver eval.Driver, sink Sink, config Config, logger *zap.SugaredLogger, mc *metrics.Collector, passthrough io.Writer) *Coordinator {
	if config.NWorkers < 1 {
		config.NWorkers = 1
	}
	return &Coordinator{
		driver:         driver,
		sink:           sink,
		config:         config,
		logger:         logger,
		mc:             mc,
		passthrough:    passthrough,
		queue:          newWorkQueue(),
		queuedPaths:    newOutputPathSet(),
		visitedPaths:   newOutputPathSet(),
		attemptedPaths: newOutputPathSet(),
	}
}

// Run spawns the finder, drives the describer workers until
// quiescence, drains outstanding work, and returns the run's result.
// The queue is guaranteed empty at return
// unless Result.QueueResidue is true. The evaluator config (flake ref,
// system, expression paths) is bound into driver at construction time
// (see eval.NewRealDriver), so Run itself only needs the pool size.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	defer cancel()

	finder, err := c.driver.StartFinder(runCtx)
	if err != nil {
		return nil, fmt.Errorf("spawn finder: %w", err)
	}

	reader := NewFinderReader(finder.Stderr(), c.queue, c.queuedPaths, c.passthrough, c.logger, c.mc)

	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		reader.Run()
	}()

	c.drive(runCtx, finder)

	// Drain: wait for the finder to exit, join the reader, join workers.
	if _, err := finder.Wait(); err != nil {
		if c.logger != nil {
			c.logger.Warnw("finder wait returned error", "error", err)
		}
	}
	readerWG.Wait()

	result := &Result{
		QueueResidue: c.queue.Len() > 0,
		FatalErr:     c.abortErr,
	}
	return result, nil
}

// drive runs the four-condition termination loop: continue while the
// last dequeue attempt got an item, or the queue is non-empty, or the
// finder has not exited, or at least one worker is in flight.
func (c *Coordinator) drive(ctx context.Context, finder eval.FinderHandle) {
	sem := make(chan struct{}, c.config.NWorkers)
	var wg sync.WaitGroup

	lastGotItem := false
	for {
		item, ok := c.queue.PopWait(pollInterval)
		lastGotItem = ok
		if ok {
			select {
			case sem <- struct{}{}:
				c.dispatchWorker(ctx, item, sem, &wg)
			case <-ctx.Done():
				wg.Wait()
				return
			}
		}

		queueNonEmpty := c.queue.Len() > 0
		finderAlive := !finder.Exited()
		workersInFlight := c.inFlight.Load() > 0

		if ctx.Err() != nil {
			wg.Wait()
			return
		}

		if !(lastGotItem || queueNonEmpty || finderAlive || workersInFlight) {
			wg.Wait()
			return
		}
	}
}

func (c *Coordinator) dispatchWorker(ctx context.Context, ap types.AttributePath, sem chan struct{}, wg *sync.WaitGroup) {
	c.inFlight.Add(1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			c.inFlight.Add(-1)
			<-sem
		}()
		c.describe(ctx, ap)
	}()
}

// describe runs one describer worker iteration for a single attribute
// path popped from the queue.
func (c *Coordinator) describe(ctx context.Context, ap types.AttributePath) {
	if !c.attemptedPaths.TryAdd(types.OutputPath(ap.String())) {
		return
	}

	result, err := c.driver.Describe(ctx, ap.String())
	c.mc.IncDerivationsDescribed()
	if err != nil {
		var spawnErr *eval.SpawnError
		if errors.As(err, &spawnErr) {
			c.abort(fmt.Errorf("describer spawn failed for %q: %w", ap.String(), err))
			return
		}
		if c.logger != nil {
			c.logger.Warnw("describer call failed", "attributePath", ap.String(), "error", err)
		}
		return
	}

	if len(result.Stdout) == 0 {
		c.mc.IncDerivationsSkipped()
		if c.logger != nil {
			c.logger.Debugw("describer returned empty stdout, skipping", "attributePath", ap.String())
		}
		return
	}

	record, err := types.ParseRecord(result.Stdout)
	if err != nil {
		c.mc.IncDescriberFailures()
		if c.logger != nil {
			c.logger.Errorw("failed to parse describer output", "attributePath", ap.String(), "error", err, "raw", string(result.Stdout))
		}
		return
	}

	if record.OutputPath == "" {
		// An absent output_path marks an unbuildable derivation: this
		// describer's own record emits nothing and the worker returns.
		return
	}

	if err := c.sink.WriteRecord(record); err != nil {
		c.mc.IncSinkWriteFailures()
		c.abort(fmt.Errorf("write record for %q: %w", ap.String(), err))
		return
	}
	c.mc.IncDerivationsEmitted()
	c.visitedPaths.TryAdd(record.OutputPath)

	for _, edge := range record.BuildInputs {
		if edge.OutputPath == "" {
			continue
		}
		if c.queuedPaths.TryAdd(edge.OutputPath) {
			c.queue.Push(edge.AttributePath)
		} else {
			c.mc.IncOutputPathsDeduped()
		}
	}
}

// abort records the first fatal error (SpawnError or SinkWriteError) and
// cancels the run context.
func (c *Coordinator) abort(err error) {
	c.abortOnce.Do(func() {
		c.abortErr = err
		if c.logger != nil {
			c.logger.Errorw("aborting extraction run", "error", err)
		}
		if c.cancel != nil {
			c.cancel()
		}
	})
}
