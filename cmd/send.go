package cmd

import (
	"context"
	"dropwatch/internal/logger"
	"dropwatch/internal/model"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sendCmd = &cobra.Command{
	Use:   "send <file>...",
	Short: "Upload files once, the same way watch would",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		d := newDispatcher()
		failed := 0
		for _, arg := range args {
			path, err := filepath.Abs(arg)
			if err != nil {
				return fmt.Errorf("invalid path %s: %w", arg, err)
			}

			category, err := d.Deliver(ctx, model.NewUploadTask(path, destination()))
			if err != nil {
				failed++
				logger.Log.Error("upload failed",
					zap.String("path", path),
					zap.Error(err))
				continue
			}

			fmt.Printf("%-8s %s\n", category, path)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d uploads failed", failed, len(args))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
}
