package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"textCaptchaAuth/internal/config"
	"textCaptchaAuth/internal/logging"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Text CAPTCHA engine exposed as MCP tools and a web page",
	Long: `captcha issues noisy text CAPTCHA images, verifies answers exactly once,
and can try to break its own challenges with a vision model and OCR.

Run "captcha mcp" to serve the tools to an MCP client, or "captcha web"
for the browser front end.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "captcha.yml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.AddCommand(mcpCmd, webCmd)
}
