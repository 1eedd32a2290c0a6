package autostart

import (
	"fmt"
	"strings"
)

const taskName = "Dropwatch"

type WindowsAutoStarter struct {
	run runFunc
}

func taskCommand(execPath, configPath string) string {
	parts := []string{fmt.Sprintf(`"%s"`, execPath)}
	for _, a := range watchArgs(configPath) {
		if strings.ContainsAny(a, " \t") {
			a = fmt.Sprintf(`"%s"`, a)
		}
		parts = append(parts, a)
	}

	return strings.Join(parts, " ")
}

func (w *WindowsAutoStarter) Install(execPath, configPath string) error {
	out, err := w.run("schtasks", "/Create",
		"/TN", taskName,
		"/TR", taskCommand(execPath, configPath),
		"/SC", "ONLOGON",
		"/F")
	if err != nil {
		return fmt.Errorf("failed to register task: %w\n%s", err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) Uninstall() error {
	out, err := w.run("schtasks", "/Delete", "/TN", taskName, "/F")
	if err != nil {
		return fmt.Errorf("failed to remove task: %w\n%s", err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) IsInstalled() (bool, error) {
	if _, err := w.run("schtasks", "/Query", "/TN", taskName); err != nil {
		return false, nil
	}

	return true, nil
}
