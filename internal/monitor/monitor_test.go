package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scan struct {
	pids []int32
	err  error
}

// scriptedTable returns the scripted scans in order and repeats the last one.
type scriptedTable struct {
	mu    sync.Mutex
	scans []scan
	calls int
}

func (s *scriptedTable) FindByName(_ context.Context, name string) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := min(s.calls, len(s.scans)-1)
	s.calls++
	return s.scans[i].pids, s.scans[i].err
}

func runMonitor(t *testing.T, m *Monitor) Outcome {
	t.Helper()

	done := make(chan Outcome, 1)
	go func() { done <- m.Run(context.Background()) }()

	select {
	case out := <-done:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not finish")
		return ""
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestMonitor_PresentThenAbsent(t *testing.T) {
	table := &scriptedTable{scans: []scan{
		{pids: []int32{10}},
		{pids: []int32{10, 11}},
		{pids: nil},
	}}
	m := New("snipper", time.Millisecond, table, nil)

	assert.Equal(t, OutcomeDisappeared, runMonitor(t, m))
	assert.True(t, isClosed(m.Shutdown()))
	assert.Equal(t, 3, table.calls)
}

func TestMonitor_NeverPresent(t *testing.T) {
	table := &scriptedTable{scans: []scan{{pids: nil}, {pids: []int32{1}}}}
	m := New("snipper", time.Millisecond, table, nil)

	assert.Equal(t, OutcomePassive, runMonitor(t, m))
	assert.False(t, isClosed(m.Shutdown()))
	assert.Equal(t, 1, table.calls)
}

func TestMonitor_ScanErrorKeepsState(t *testing.T) {
	table := &scriptedTable{scans: []scan{
		{err: errors.New("proc unavailable")},
		{pids: []int32{10}},
		{err: errors.New("proc unavailable")},
		{pids: nil},
	}}
	m := New("snipper", time.Millisecond, table, nil)

	assert.Equal(t, OutcomeDisappeared, runMonitor(t, m))
	assert.Equal(t, 4, table.calls)
}

func TestMonitor_Canceled(t *testing.T) {
	table := &scriptedTable{scans: []scan{{pids: []int32{10}}}}
	m := New("snipper", time.Hour, table, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	select {
	case out := <-done:
		assert.Equal(t, OutcomeCanceled, out)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor ignored cancellation")
	}
	assert.False(t, isClosed(m.Shutdown()))
}

func TestMatchesName(t *testing.T) {
	assert.True(t, matchesName("Snipaste", "Snipaste"))
	assert.True(t, matchesName("Snipaste.exe", "snipaste"))
	assert.False(t, matchesName("Snipaste2", "Snipaste"))
}

func TestSystemTable_FindsNothingForUnknownName(t *testing.T) {
	pids, err := NewProcessTable().FindByName(context.Background(), "dropwatch-no-such-process-9f3a")
	require.NoError(t, err)
	assert.Empty(t, pids)
}
