package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
	errwrap "github.com/aptoseidon/aptoseidon/internal/errors"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify version info, configuration, agent prompts and the report store.",
	Run: func(cmd *cobra.Command, args []string) {
		if observability.CLILogger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized", errwrap.NewConfigInvalidError("Logger not initialized"))
			return
		}
		logger := observability.CLILogger
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			logger.Error("❌ FAIL: Version information missing")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing", errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			logger.Error("❌ FAIL: Configuration invalid")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid", err)
			return
		}
		logger.Info("✅ Configuration loaded")

		registry, err := prompt.DefaultRegistry(cfg.AILink.PromptsDir)
		if err == nil {
			err = prompt.Require(registry, prompt.AgentSlugs()...)
		}
		if err != nil {
			logger.Error("❌ FAIL: Agent prompts unavailable")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Agent prompts unavailable", err)
			return
		}
		logger.Info("✅ Agent prompts available")

		db, err := openConfiguredStore(ctx, cfg.Store)
		if err == nil {
			err = db.CheckHealth(ctx)
			_ = db.Close()
		}
		if err != nil {
			logger.Error("❌ FAIL: Store unavailable")
			ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Store unavailable", err)
			return
		}
		logger.Info("✅ Store reachable", zap.String("driver", cfg.Store.Driver))

		if !isAIBackendConfigured(cfg.AILink) {
			logger.Warn("⚠️  No AI backend configured; agents will be skipped")
		}

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
