package cmd

import (
	"dropwatch/internal/model"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := http.Get(daemonURL("/status"))
		if err != nil {
			return fmt.Errorf("daemon not running: %w", err)
		}

		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)

		var snap model.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("failed to decode status response: %w", err)
		}

		lastDelivery := "-"
		if snap.LastDelivery != nil {
			lastDelivery = snap.LastDelivery.Format("2006-01-02 15:04:05")
		}

		fmt.Printf("watching:   %s\n", strings.Join(snap.Paths, ", "))
		fmt.Printf("uptime:     %s\n", time.Since(snap.StartedAt).Round(time.Second))
		fmt.Printf("%-10s %-8s %-8s %-9s %s\n", "DELIVERED", "FAILED", "SKIPPED", "IN FLIGHT", "LAST DELIVERY")
		fmt.Printf("%-10d %-8d %-8d %-9d %s\n", snap.Delivered, snap.Failed, snap.Skipped, snap.InFlight, lastDelivery)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
