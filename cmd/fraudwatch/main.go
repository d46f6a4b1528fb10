package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/fraudwatch/internal/cli"
	"github.com/Veraticus/fraudwatch/internal/common"
	"github.com/Veraticus/fraudwatch/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

// operations names each command's work in the interrupt message.
var operations = map[string]string{
	"predict":  "Prediction",
	"approve":  "Approval",
	"batch":    "Batch scoring",
	"status":   "Status check",
	"info":     "Model info request",
	"features": "Feature importance request",
	"health":   "Health check",
}

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr)
	err := app.rootCmd().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError(err))
		os.Exit(1)
	}
}

// rootCmd builds the command tree around a.
func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fraudwatch",
		Short: "🛡️  Terminal client for the fraud scoring service",
		Long: `fraudwatch talks to a remotely hosted fraud scoring service. It scores
transactions, approves them, reports on the deployed model, and keeps track of
whether the service is awake or still starting up.`,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/fraudwatch/config.yaml)")
	flags.String("api-url", "", "scoring service root URL (default: $FRAUD_API_URL or http://localhost:8000)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	_ = a.v.BindPFlag(config.KeyAPIURL, flags.Lookup("api-url"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(a.statusCmd())
	root.AddCommand(a.predictCmd())
	root.AddCommand(a.approveCmd())
	root.AddCommand(a.batchCmd())
	root.AddCommand(a.modelCmd())
	root.AddCommand(a.watchCmd())
	root.AddCommand(versionCmd(a.out))
	return root
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(config.ExpandPath(a.cfgFile))
	} else {
		a.v.AddConfigPath(config.DefaultConfigDir())
		a.v.AddConfigPath(".")
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("FRAUDWATCH")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return common.NewUserError("Could not read the config file", err)
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return common.NewUserError("Invalid configuration", err)
	}
	a.cfg = cfg

	level, err := common.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if err := common.SetupLogger(level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	a.connect()

	if op, ok := operations[cmd.Name()]; ok {
		handler := cli.NewInterruptHandler(a.errOut)
		cmd.SetContext(handler.HandleInterrupts(cmd.Context(), op))
	}
	return nil
}

func versionCmd(out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(out, "fraudwatch version %s\n", version)
		},
	}
}
