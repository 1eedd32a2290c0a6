// Package monitor ties the lifetime of dropwatch to a companion process.
//
// Once the companion has been seen running, its disappearance closes the
// shutdown channel. If it is not running at the first scan, the monitor
// stops quietly and never signals.
package monitor

import (
	"context"
	"dropwatch/internal/logger"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Outcome string

const (
	// OutcomePassive means the companion was not running at the first scan.
	OutcomePassive Outcome = "passive"
	// OutcomeDisappeared means the companion was seen and then went away.
	OutcomeDisappeared Outcome = "disappeared"
	OutcomeCanceled    Outcome = "canceled"
)

type state int

const (
	unobserved state = iota
	present
	absent
)

type Monitor struct {
	name     string
	interval time.Duration
	table    ProcessTable
	log      *zap.Logger

	shutdownCh chan struct{}
	once       sync.Once
}

func New(name string, interval time.Duration, table ProcessTable, log *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}

	return &Monitor{
		name:       name,
		interval:   interval,
		table:      table,
		log:        logger.OrNop(log),
		shutdownCh: make(chan struct{}),
	}
}

// Shutdown is closed when the companion process disappears.
func (m *Monitor) Shutdown() <-chan struct{} {
	return m.shutdownCh
}

func (m *Monitor) Run(ctx context.Context) Outcome {
	st := unobserved

	t := time.NewTicker(m.interval)
	defer t.Stop()

	for {
		pids, err := m.table.FindByName(ctx, m.name)
		switch {
		case ctx.Err() != nil:
			return OutcomeCanceled

		case err != nil:
			m.log.Warn("process scan failed",
				zap.String("process", m.name),
				zap.Error(err))

		case st == unobserved && len(pids) == 0:
			m.log.Info("companion process not running, monitor stopped",
				zap.String("process", m.name))
			return OutcomePassive

		case st == unobserved:
			st = present
			m.log.Info("companion process found",
				zap.String("process", m.name),
				zap.Int32s("pids", pids))

		case st == present && len(pids) == 0:
			st = absent
			m.log.Info("companion process exited, shutting down",
				zap.String("process", m.name))
			m.once.Do(func() { close(m.shutdownCh) })
			return OutcomeDisappeared
		}

		select {
		case <-ctx.Done():
			return OutcomeCanceled
		case <-t.C:
		}
	}
}

// matchesName compares process names, ignoring a trailing .exe so the same
// config works on Windows.
func matchesName(procName, want string) bool {
	if procName == want {
		return true
	}

	return strings.TrimSuffix(strings.ToLower(procName), ".exe") == strings.TrimSuffix(strings.ToLower(want), ".exe")
}
