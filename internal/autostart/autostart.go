// Package autostart registers `dropwatch watch` to start at login.
package autostart

import (
	"os/exec"
	"runtime"
)

type AutoStarter interface {
	Install(execPath, configPath string) error
	Uninstall() error
	IsInstalled() (bool, error)
}

// runFunc runs an external command and returns its combined output.
type runFunc func(name string, args ...string) ([]byte, error)

func execRun(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

func New() AutoStarter {
	switch runtime.GOOS {
	case "windows":
		return &WindowsAutoStarter{run: execRun}
	case "linux":
		return &LinuxAutoStarter{run: execRun}
	default:
		return &UnsupportedAutoStarter{}
	}
}

// watchArgs is the command line the login hook runs.
func watchArgs(configPath string) []string {
	args := []string{"watch"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}

	return args
}

type UnsupportedAutoStarter struct{}

func (u *UnsupportedAutoStarter) Install(_, _ string) error {
	return nil
}

func (u *UnsupportedAutoStarter) Uninstall() error {
	return nil
}

func (u *UnsupportedAutoStarter) IsInstalled() (bool, error) {
	return false, nil
}
