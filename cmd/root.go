package cmd

import (
	"dropwatch/internal/config"
	"dropwatch/internal/dispatcher"
	"dropwatch/internal/logger"
	"dropwatch/internal/model"
	"dropwatch/internal/reader"
	"dropwatch/internal/sink/telegram"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	cfgFile    string
	debug      bool
	daemonPort int
)

var rootCmd = &cobra.Command{
	Use:   "dropwatch",
	Short: "Send new files from watched folders to a Telegram chat",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("port") {
			cfg.DaemonPort = daemonPort
		}

		return logger.Init(logger.Options{
			Debug:    debug || cfg.Log.Debug,
			Encoding: cfg.Log.Encoding,
		})
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func daemonURL(path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", cfg.DaemonPort, path)
}

func destination() model.Destination {
	return model.Destination{
		ChatID: cfg.ChatID,
		Token:  cfg.Token,
	}
}

func newDispatcher() *dispatcher.Dispatcher {
	r := reader.New(afero.NewOsFs(), reader.Options{
		Attempts:    cfg.Reader.Attempts,
		RetryDelay:  cfg.Reader.RetryDelay,
		SettleDelay: cfg.Reader.SettleDelay,
		Stage:       cfg.Reader.Stage,
		StageDir:    cfg.Reader.StageDir,
	}, logger.Log)

	s := telegram.New(telegram.Options{
		APIURL:    cfg.Sink.APIURL,
		Timeout:   cfg.Sink.Timeout,
		RetryMax:  cfg.Sink.RetryMax,
		RateLimit: cfg.Sink.RateLimit,
		Burst:     cfg.Sink.Burst,
	}, logger.Log)

	return dispatcher.New(r, s, logger.Log)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./config.yaml or ~/.dropwatch/config.yaml)")
	rootCmd.PersistentFlags().IntVar(&daemonPort, "port", config.Default.DaemonPort, "Control server port, 0 to disable")
}
