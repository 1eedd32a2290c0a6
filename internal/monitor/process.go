package monitor

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessTable looks up running processes by executable name.
type ProcessTable interface {
	FindByName(ctx context.Context, name string) ([]int32, error)
}

type systemTable struct{}

func NewProcessTable() ProcessTable {
	return systemTable{}
}

func (systemTable) FindByName(ctx context.Context, name string) ([]int32, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	var pids []int32
	for _, p := range procs {
		// Processes can exit between listing and inspection.
		n, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if matchesName(n, name) {
			pids = append(pids, p.Pid)
		}
	}

	return pids, nil
}
