package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running daemon to stop watching",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Post(daemonURL("/stop"), "application/json", nil)
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("stop request rejected: %s", resp.Status)
		}

		var result map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&result)

		fmt.Println(result["status"])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
