package daemon

import (
	"context"
	"dropwatch/internal/dispatcher"
	"dropwatch/internal/logger"
	"dropwatch/internal/model"
	"dropwatch/internal/monitor"
	"dropwatch/internal/pipeline"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoPaths = errors.New("no watch paths configured")

// EventSource produces filesystem events for the registered roots. Events is
// closed when no more events are possible.
type EventSource interface {
	Watch(dir string) error
	Events() <-chan model.WatchEvent
	Stop()
}

type Deliverer interface {
	Deliver(ctx context.Context, task model.UploadTask) (model.Category, error)
}

type StopReason string

const (
	StopStreamEnded   StopReason = "stream_ended"
	StopCompanionGone StopReason = "companion_gone"
	StopRequested     StopReason = "requested"
	StopCanceled      StopReason = "canceled"
)

type Options struct {
	Paths       []string
	Destination model.Destination
	IgnoreList  []string
	// Workers bounds concurrent uploads. Zero or less means no bound.
	Workers int
}

// Orchestrator feeds creation events from an EventSource into upload tasks.
// Every path gets its own task, so a slow or failing upload never holds up
// the ones after it.
type Orchestrator struct {
	opts      Options
	source    EventSource
	deliverer Deliverer
	monitor   *monitor.Monitor
	log       *zap.Logger
	state     *RunState
	pool      *errgroup.Group

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewOrchestrator wires the components together. mon may be nil when there
// is no companion process.
func NewOrchestrator(opts Options, source EventSource, d Deliverer, mon *monitor.Monitor, log *zap.Logger) *Orchestrator {
	paths := make([]string, 0, len(opts.Paths))
	for _, p := range opts.Paths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	opts.Paths = paths

	pool := new(errgroup.Group)
	if opts.Workers > 0 {
		pool.SetLimit(opts.Workers)
	}

	return &Orchestrator{
		opts:      opts,
		source:    source,
		deliverer: d,
		monitor:   mon,
		log:       logger.OrNop(log),
		state:     NewRunState(paths),
		pool:      pool,
		stopCh:    make(chan struct{}),
	}
}

// Run registers every root with the source and processes events until the
// stream ends, the companion process goes away, a stop is requested or ctx
// is done. Uploads already started are allowed to finish before Run
// returns.
func (o *Orchestrator) Run(ctx context.Context) (StopReason, error) {
	if len(o.opts.Paths) == 0 {
		return "", ErrNoPaths
	}

	monCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()

	var shutdownCh <-chan struct{}
	if o.monitor != nil {
		shutdownCh = o.monitor.Shutdown()
		go func() {
			outcome := o.monitor.Run(monCtx)
			o.log.Debug("monitor finished",
				zap.String("outcome", string(outcome)))
		}()
	}

	for _, p := range o.opts.Paths {
		if err := o.source.Watch(p); err != nil {
			o.source.Stop()
			return "", fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	o.log.Info("dropwatch started",
		zap.Strings("paths", o.opts.Paths),
		zap.Int("workers", o.opts.Workers))

	reason := o.loop(ctx, shutdownCh)

	o.source.Stop()
	_ = o.pool.Wait()

	o.log.Info("dropwatch stopped",
		zap.String("reason", string(reason)))

	return reason, nil
}

func (o *Orchestrator) loop(ctx context.Context, shutdownCh <-chan struct{}) StopReason {
	// Uploads run to completion even after ctx is canceled.
	uploadCtx := context.WithoutCancel(ctx)
	events := o.source.Events()

	for {
		select {
		case <-ctx.Done():
			return StopCanceled

		case <-shutdownCh:
			return StopCompanionGone

		case <-o.stopCh:
			return StopRequested

		case ev, ok := <-events:
			if !ok {
				return StopStreamEnded
			}
			o.handle(uploadCtx, ev)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev model.WatchEvent) {
	if ev.Err != nil {
		o.log.Error("watch error",
			zap.Error(ev.Err))
		return
	}

	if !ev.Event.IsCreate() {
		return
	}

	paths := pipeline.FilterPaths(ev.Event.Paths, o.opts.IgnoreList)
	if skipped := len(ev.Event.Paths) - len(paths); skipped > 0 {
		o.log.Debug("ignored",
			zap.Strings("paths", ev.Event.Paths),
			zap.Int("count", skipped))
	}

	for _, path := range paths {
		o.spawn(ctx, model.NewUploadTask(path, o.opts.Destination))
	}
}

// spawn blocks while the worker pool is full.
func (o *Orchestrator) spawn(ctx context.Context, task model.UploadTask) {
	o.state.Begin()
	o.pool.Go(func() error {
		o.upload(ctx, task)
		return nil
	})
}

func (o *Orchestrator) upload(ctx context.Context, task model.UploadTask) {
	result := resultFailed
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("upload panicked",
				zap.String("task", task.ID),
				zap.String("path", task.Path),
				zap.Any("panic", r))
		}
		o.state.Finish(result)
	}()

	o.log.Info("new file",
		zap.String("task", task.ID),
		zap.String("path", task.Path))

	category, err := o.deliverer.Deliver(ctx, task)
	switch {
	case errors.Is(err, dispatcher.ErrSkipped):
		result = resultSkipped
		o.log.Debug("skipped",
			zap.String("task", task.ID),
			zap.String("path", task.Path))

	case err != nil:
		o.log.Error("upload failed",
			zap.String("task", task.ID),
			zap.String("path", task.Path),
			zap.Error(err))

	default:
		result = resultDelivered
		o.log.Info("uploaded",
			zap.String("task", task.ID),
			zap.String("path", task.Path),
			zap.String("category", string(category)))
	}
}

// RequestStop makes Run return with StopRequested.
func (o *Orchestrator) RequestStop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
	})
}

func (o *Orchestrator) Snapshot() model.Snapshot {
	return o.state.Snapshot()
}
