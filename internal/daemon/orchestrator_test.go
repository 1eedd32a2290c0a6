package daemon

import (
	"context"
	"dropwatch/internal/dispatcher"
	"dropwatch/internal/model"
	"dropwatch/internal/monitor"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu       sync.Mutex
	watched  []string
	failOn   string
	stopped  bool
	eventsCh chan model.WatchEvent
}

func newFakeSource() *fakeSource {
	return &fakeSource{eventsCh: make(chan model.WatchEvent, 1)}
}

func (s *fakeSource) Watch(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir == s.failOn {
		return errors.New("no such directory")
	}
	s.watched = append(s.watched, dir)
	return nil
}

func (s *fakeSource) Events() <-chan model.WatchEvent {
	return s.eventsCh
}

func (s *fakeSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func created(paths ...string) model.WatchEvent {
	return model.WatchEvent{Event: model.FileEvent{Kind: model.EventCreate, Paths: paths}}
}

type fakeDeliverer struct {
	mu    sync.Mutex
	tasks []model.UploadTask
	block map[string]chan struct{}
	fail  map[string]error
	panic map[string]bool
}

func (d *fakeDeliverer) Deliver(_ context.Context, task model.UploadTask) (model.Category, error) {
	d.mu.Lock()
	gate := d.block[task.Path]
	err := d.fail[task.Path]
	boom := d.panic[task.Path]
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if boom {
		panic("deliverer exploded")
	}

	d.mu.Lock()
	d.tasks = append(d.tasks, task)
	d.mu.Unlock()

	return model.CategoryDocument, err
}

func (d *fakeDeliverer) paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, t.Path)
	}
	return out
}

type runResult struct {
	reason StopReason
	err    error
}

func start(t *testing.T, o *Orchestrator, ctx context.Context) <-chan runResult {
	t.Helper()

	done := make(chan runResult, 1)
	go func() {
		reason, err := o.Run(ctx)
		done <- runResult{reason, err}
	}()
	return done
}

func wait(t *testing.T, done <-chan runResult) runResult {
	t.Helper()

	select {
	case res := <-done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop")
		return runResult{}
	}
}

var dst = model.Destination{ChatID: "-1001", Token: "123:abc"}

func TestOrchestrator_RegistersPaths(t *testing.T) {
	src := newFakeSource()
	o := NewOrchestrator(Options{Paths: []string{"/a", " ", "/b"}, Destination: dst}, src, &fakeDeliverer{}, nil, nil)

	done := start(t, o, context.Background())
	close(src.eventsCh)

	res := wait(t, done)
	require.NoError(t, res.err)
	assert.Equal(t, StopStreamEnded, res.reason)
	assert.Equal(t, []string{"/a", "/b"}, src.watched)
	assert.True(t, src.stopped)
}

func TestOrchestrator_NoPaths(t *testing.T) {
	o := NewOrchestrator(Options{Paths: []string{""}}, newFakeSource(), &fakeDeliverer{}, nil, nil)

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoPaths)
}

func TestOrchestrator_WatchFailure(t *testing.T) {
	src := newFakeSource()
	src.failOn = "/b"
	o := NewOrchestrator(Options{Paths: []string{"/a", "/b"}}, src, &fakeDeliverer{}, nil, nil)

	_, err := o.Run(context.Background())
	assert.ErrorContains(t, err, "/b")
	assert.True(t, src.stopped)
}

func TestOrchestrator_OneTaskPerPath(t *testing.T) {
	src := newFakeSource()
	d := &fakeDeliverer{}
	o := NewOrchestrator(Options{Paths: []string{"/a"}, Destination: dst}, src, d, nil, nil)

	done := start(t, o, context.Background())
	src.eventsCh <- created("/a/1.png", "/a/2.png", "/a/3.png")
	close(src.eventsCh)

	res := wait(t, done)
	assert.Equal(t, StopStreamEnded, res.reason)
	assert.ElementsMatch(t, []string{"/a/1.png", "/a/2.png", "/a/3.png"}, d.paths())

	for _, task := range d.tasks {
		assert.Equal(t, dst, task.Destination)
		assert.NotEmpty(t, task.ID)
	}
	assert.Equal(t, 3, o.Snapshot().Delivered)
}

func TestOrchestrator_TasksAreIsolated(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	d := &fakeDeliverer{
		block: map[string]chan struct{}{"/a/slow.mkv": gate},
		fail:  map[string]error{"/a/bad.png": errors.New("unauthorized")},
		panic: map[string]bool{"/a/boom.png": true},
	}
	o := NewOrchestrator(Options{Paths: []string{"/a"}, Destination: dst, Workers: 8}, src, d, nil, nil)

	done := start(t, o, context.Background())
	src.eventsCh <- created("/a/slow.mkv", "/a/bad.png", "/a/boom.png", "/a/ok.png")
	src.eventsCh <- created("/a/next.jpg")

	require.Eventually(t, func() bool {
		return len(d.paths()) == 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"/a/bad.png", "/a/ok.png", "/a/next.jpg"}, d.paths())
	require.Eventually(t, func() bool {
		return o.Snapshot().InFlight == 1
	}, 2*time.Second, 5*time.Millisecond)

	close(gate)
	close(src.eventsCh)
	wait(t, done)

	snap := o.Snapshot()
	assert.Equal(t, 3, snap.Delivered)
	assert.Equal(t, 2, snap.Failed)
	assert.Equal(t, 0, snap.InFlight)
	assert.NotNil(t, snap.LastDelivery)
}

func TestOrchestrator_IgnoresNonCreate(t *testing.T) {
	src := newFakeSource()
	d := &fakeDeliverer{}
	o := NewOrchestrator(Options{Paths: []string{"/a"}}, src, d, nil, nil)

	done := start(t, o, context.Background())
	src.eventsCh <- model.WatchEvent{Event: model.FileEvent{Kind: model.EventOther, Paths: []string{"/a/1.png"}}}
	src.eventsCh <- model.WatchEvent{Event: model.FileEvent{Kind: model.EventOther, Paths: []string{"/a/2.png"}}}
	close(src.eventsCh)

	wait(t, done)
	assert.Empty(t, d.paths())
	assert.Equal(t, 0, o.Snapshot().Delivered)
}

func TestOrchestrator_ContinuesAfterWatchError(t *testing.T) {
	src := newFakeSource()
	d := &fakeDeliverer{}
	o := NewOrchestrator(Options{Paths: []string{"/a"}}, src, d, nil, nil)

	done := start(t, o, context.Background())
	src.eventsCh <- model.WatchEvent{Err: errors.New("inotify queue overflow")}
	src.eventsCh <- model.WatchEvent{Err: errors.New("again")}
	src.eventsCh <- created("/a/after.png")
	close(src.eventsCh)

	res := wait(t, done)
	assert.Equal(t, StopStreamEnded, res.reason)
	assert.Equal(t, []string{"/a/after.png"}, d.paths())
}

func TestOrchestrator_IgnoreList(t *testing.T) {
	src := newFakeSource()
	d := &fakeDeliverer{}
	o := NewOrchestrator(Options{Paths: []string{"/a"}, IgnoreList: []string{"*.tmp"}}, src, d, nil, nil)

	done := start(t, o, context.Background())
	src.eventsCh <- created("/a/x.tmp", "/a/x.png")
	close(src.eventsCh)

	wait(t, done)
	assert.Equal(t, []string{"/a/x.png"}, d.paths())
}

func TestOrchestrator_SkippedIsCounted(t *testing.T) {
	src := newFakeSource()
	d := &fakeDeliverer{fail: map[string]error{"/a/dir": fmt.Errorf("/a/dir: %w", dispatcher.ErrSkipped)}}
	o := NewOrchestrator(Options{Paths: []string{"/a"}}, src, d, nil, nil)

	done := start(t, o, context.Background())
	src.eventsCh <- created("/a/dir")
	close(src.eventsCh)

	wait(t, done)
	assert.Equal(t, 1, o.Snapshot().Skipped)
	assert.Equal(t, 0, o.Snapshot().Failed)
}

func TestOrchestrator_RequestStop(t *testing.T) {
	src := newFakeSource()
	o := NewOrchestrator(Options{Paths: []string{"/a"}}, src, &fakeDeliverer{}, nil, nil)

	done := start(t, o, context.Background())
	o.RequestStop()
	o.RequestStop()

	assert.Equal(t, StopRequested, wait(t, done).reason)
	assert.True(t, src.stopped)
}

func TestOrchestrator_ContextCanceledWaitsForUploads(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	d := &fakeDeliverer{block: map[string]chan struct{}{"/a/slow.png": gate}}
	o := NewOrchestrator(Options{Paths: []string{"/a"}}, src, d, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := start(t, o, ctx)
	src.eventsCh <- created("/a/slow.png")

	require.Eventually(t, func() bool {
		return o.Snapshot().InFlight == 1
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned before the in-flight upload finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	assert.Equal(t, StopCanceled, wait(t, done).reason)
	assert.Equal(t, []string{"/a/slow.png"}, d.paths())
}

type scriptedTable struct {
	mu    sync.Mutex
	scans [][]int32
	calls int
}

func (s *scriptedTable) FindByName(context.Context, string) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := min(s.calls, len(s.scans)-1)
	s.calls++
	return s.scans[i], nil
}

func TestOrchestrator_CompanionGone(t *testing.T) {
	src := newFakeSource()
	table := &scriptedTable{scans: [][]int32{{99}, {99}, nil}}
	mon := monitor.New("snipper", time.Millisecond, table, nil)
	o := NewOrchestrator(Options{Paths: []string{"/a"}}, src, &fakeDeliverer{}, mon, nil)

	done := start(t, o, context.Background())
	assert.Equal(t, StopCompanionGone, wait(t, done).reason)
}

func TestOrchestrator_CompanionNeverRunning(t *testing.T) {
	src := newFakeSource()
	table := &scriptedTable{scans: [][]int32{nil, {99}, nil}}
	mon := monitor.New("snipper", time.Millisecond, table, nil)
	d := &fakeDeliverer{}
	o := NewOrchestrator(Options{Paths: []string{"/a"}}, src, d, mon, nil)

	done := start(t, o, context.Background())

	// Give the monitor time to take the passive branch, then keep working.
	time.Sleep(20 * time.Millisecond)
	src.eventsCh <- created("/a/still-running.png")
	close(src.eventsCh)

	assert.Equal(t, StopStreamEnded, wait(t, done).reason)
	assert.Equal(t, []string{"/a/still-running.png"}, d.paths())

	table.mu.Lock()
	defer table.mu.Unlock()
	assert.Equal(t, 1, table.calls)
}
