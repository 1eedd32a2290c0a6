package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

const unitName = "dropwatch.service"

// The daemon exits 0 when its companion process goes away, so only
// failures trigger a restart.
const unitTemplate = `[Unit]
Description=dropwatch folder uploader
After=network-online.target

[Service]
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

type LinuxAutoStarter struct {
	// unitDir overrides ~/.config/systemd/user.
	unitDir string
	run     runFunc
}

func (l *LinuxAutoStarter) unitPath() (string, error) {
	dir := l.unitDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config", "systemd", "user")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, unitName), nil
}

func renderUnit(execPath, configPath string) (string, error) {
	parts := []string{strconv.Quote(execPath)}
	for _, a := range watchArgs(configPath) {
		parts = append(parts, strconv.Quote(a))
	}

	var b strings.Builder
	tmpl := template.Must(template.New("unit").Parse(unitTemplate))
	if err := tmpl.Execute(&b, map[string]string{"ExecStart": strings.Join(parts, " ")}); err != nil {
		return "", err
	}

	return b.String(), nil
}

func (l *LinuxAutoStarter) Install(execPath, configPath string) error {
	path, err := l.unitPath()
	if err != nil {
		return err
	}

	unit, err := renderUnit(execPath, configPath)
	if err != nil {
		return fmt.Errorf("failed to render unit file: %w", err)
	}

	if err := os.WriteFile(path, []byte(unit), 0644); err != nil {
		return fmt.Errorf("failed to write unit file: %w", err)
	}

	cmds := [][]string{
		{"systemctl", "--user", "daemon-reload"},
		{"systemctl", "--user", "enable", "--now", unitName},
	}

	for _, args := range cmds {
		if out, err := l.run(args[0], args[1:]...); err != nil {
			return fmt.Errorf("failed to run %v: %w\n%s", args, err, out)
		}
	}

	return nil
}

func (l *LinuxAutoStarter) Uninstall() error {
	_, _ = l.run("systemctl", "--user", "disable", "--now", unitName)

	path, err := l.unitPath()
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file: %w", err)
	}

	_, _ = l.run("systemctl", "--user", "daemon-reload")
	return nil
}

func (l *LinuxAutoStarter) IsInstalled() (bool, error) {
	path, err := l.unitPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}
