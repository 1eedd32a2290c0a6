package cmd

import (
	"dropwatch/internal/autostart"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Start watching automatically at login",
	RunE: func(cmd *cobra.Command, args []string) error {
		execPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		configPath := cfgFile
		if configPath != "" {
			if configPath, err = filepath.Abs(configPath); err != nil {
				return fmt.Errorf("invalid config path: %w", err)
			}
		}

		if err := autostart.New().Install(execPath, configPath); err != nil {
			return err
		}

		fmt.Println("dropwatch registered for autostart")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
