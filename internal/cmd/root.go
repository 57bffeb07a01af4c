package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
	"github.com/aptoseidon/aptoseidon/internal/appid"
	"github.com/aptoseidon/aptoseidon/internal/config"
	errwrap "github.com/aptoseidon/aptoseidon/internal/errors"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	appIdentity *appidentity.Identity
	closeTrace  func()

	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo records the ldflags build metadata for the CLI.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the identity loaded by initConfig, or nil before it runs.
func GetAppIdentity() *appidentity.Identity {
	return appIdentity
}

var rootCmd = &cobra.Command{
	Use:   filepath.Base(os.Args[0]),
	Short: "Evidence-driven trust assessment for crypto projects",
	Long: `Aptoseidon scores crypto projects from market, chain, web and social
evidence, with an optional paid full report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	defer stopTracing()
	return rootCmd.Execute()
}

func init() {
	// Config loading must not emit telemetry to stdout; serve installs the
	// real system later.
	if sys, err := telemetry.NewSystem(&telemetry.Config{Enabled: false}); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// Help output is rendered before OnInitialize hooks run.
	if identity, err := appid.Get(context.Background()); err == nil {
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (defaults to the app identity config path)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	flags.StringVar(&traceFile, "trace", "", "append agent and synthesizer calls to an NDJSON trace file")
}

// applyIdentity copies the binary name and description onto the help surfaces.
func applyIdentity(identity *appidentity.Identity) {
	if identity == nil {
		return
	}
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

func initConfig() {
	identity, err := appid.Get(context.Background())
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity from .fulmen/app.yaml", err)
	}
	appIdentity = identity
	applyIdentity(identity)

	observability.InitCLILogger(identity.BinaryName, verbose)

	if traceFile == "" {
		return
	}
	stop, err := driver.EnableTracing(traceFile)
	if err != nil {
		observability.CLILogger.Warn("Tracing disabled", zap.String("file", traceFile), zap.Error(err))
		return
	}
	closeTrace = stop
	observability.CLILogger.Debug("Tracing agent calls", zap.String("file", traceFile))
}

func stopTracing() {
	if closeTrace != nil {
		closeTrace()
		closeTrace = nil
	}
}

// loadConfig resolves the configuration for a command. Values set on the
// command line win over the file and the environment.
func loadConfig(ctx context.Context, overrides ...map[string]any) (*config.Config, error) {
	cfg, err := config.Load(ctx, cfgFile, overrides...)
	if err != nil {
		return nil, errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "failed to load configuration")
	}
	if verbose && observability.CLILogger != nil {
		observability.CLILogger.Debug("Configuration loaded",
			zap.String("store_driver", cfg.Store.Driver),
			zap.String("payment_node", cfg.Payment.NodeURL),
		)
	}
	return cfg, nil
}
