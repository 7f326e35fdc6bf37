package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mahdiidarabi/blind-rsa/internal/config"
	"github.com/mahdiidarabi/blind-rsa/internal/logging"
	"github.com/mahdiidarabi/blind-rsa/internal/metrics"
	"github.com/mahdiidarabi/blind-rsa/internal/store"
	"github.com/mahdiidarabi/blind-rsa/pkg/blindrsa"
)

// Default hand-off file names, relative to the data directory.
const (
	privateKeyFile = "signer_private_key.json"
	publicKeyFile  = "signer_public_key.json"
	requestFile    = "blind_request.json"
	responseFile   = "blind_response.json"
	signatureFile  = "signature.json"
)

// app holds state shared by all subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string

	cfg      *config.Config
	logger   logging.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// RootCmd builds the blindsig command tree.
func RootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "blindsig",
		Short: "RSA blind signatures between a message owner and a signer",
		Long: `blindsig runs the two-party RSA blind signature protocol over JSON files.

The signer generates a key pair (keygen) and publishes the public key file. The message
owner blinds a message (blind) and hands the request to the signer, who signs it without
learning the message (sign). The owner then unblinds and verifies the result (unblind).`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		KeygenCmd(a),
		BlindCmd(a),
		SignCmd(a),
		UnblindCmd(a),
		VerifyCmd(a),
		PendingCmd(a),
		DemoCmd(a),
		ConfigCmd(a),
	)
	for _, sub := range cmd.Commands() {
		sub.RunE = a.flushAfter(sub.RunE)
	}

	return cmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	logging.Setup(a.logLevel)
	a.logger = logging.NewLogger("blindsig")

	cfg, err := config.Load(a.configPath, a.logger)
	if err != nil {
		return err
	}
	if a.logLevel == "" {
		logging.Setup(cfg.LogLevel)
	}
	a.cfg = cfg

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.NewMetricsWithRegistry(a.registry)
	return nil
}

// flushAfter wraps run so the metrics file is written whether or not run fails.
func (a *app) flushAfter(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if ferr := a.flush(); ferr != nil {
				if err == nil {
					err = ferr
					return
				}
				a.logger.Warn("failed to write metrics file", "error", ferr)
			}
		}()
		return run(cmd, args)
	}
}

func (a *app) flush() error {
	if a.cfg == nil || a.cfg.MetricsFile == "" {
		return nil
	}
	return metrics.WriteTextfile(a.cfg.ResolvePath(a.cfg.MetricsFile), a.registry)
}

func (a *app) keyGenConfig(bits int) blindrsa.KeyGenConfig {
	cfg := blindrsa.DefaultKeyGenConfig()
	cfg.Bits = bits
	cfg.MaxAttempts = a.cfg.KeyGenAttempts
	return cfg
}

func (a *app) blindingConfig() blindrsa.BlindingConfig {
	cfg := blindrsa.DefaultBlindingConfig()
	cfg.MaxAttempts = a.cfg.BlindingAttempts
	return cfg
}

// path resolves a flag value against the data directory, falling back to def.
func (a *app) path(value, def string) string {
	if value == "" {
		value = def
	}
	return a.cfg.ResolvePath(value)
}

func (a *app) openVault() (*store.Store, error) {
	return store.Open(a.cfg.ResolvePath(a.cfg.DatabasePath), a.logger)
}

func (a *app) openJournal() (*store.Store, error) {
	return store.Open(a.cfg.ResolvePath(a.cfg.JournalPath), a.logger)
}

// commandContext returns the command's context, or Background when run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// ConfigCmd prints the effective configuration.
func ConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Dump(cmd.OutOrStdout())
		},
	}
}
