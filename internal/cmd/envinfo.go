package cmd

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"

	"github.com/aptoseidon/aptoseidon/internal/config"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

type envSection struct {
	title string
	lines [][2]string
	warn  []string
}

func (s *envSection) add(label string, value any) {
	s.lines = append(s.lines, [2]string{label, fmt.Sprint(value)})
}

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display build, runtime, source, payment and agent configuration. Secrets are reported as set or unset.",
	Run: func(cmd *cobra.Command, args []string) {
		sections := runtimeSections()
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			observability.CLILogger.Warn("Config load failed; showing build and runtime only")
			observability.CLILogger.Warn(err.Error())
		} else {
			sections = append(sections, configSections(cfg, cfgFile)...)
		}

		observability.CLILogger.Info("=== Aptoseidon Environment Information ===")
		for _, s := range sections {
			observability.CLILogger.Info("")
			observability.CLILogger.Info(s.title + ":")
			for _, l := range s.lines {
				observability.CLILogger.Info(fmt.Sprintf("  %-18s %s", l[0]+":", l[1]))
			}
			for _, w := range s.warn {
				observability.CLILogger.Warn("  " + w)
			}
		}
		observability.CLILogger.Info("")
		observability.CLILogger.Info("=== End Environment Information ===")
	},
}

func runtimeSections() []envSection {
	identity := GetAppIdentity()
	name := "aptoseidon"
	if identity != nil && identity.BinaryName != "" {
		name = identity.BinaryName
	}
	deps := crucible.GetVersion()

	app := envSection{title: "Application"}
	app.add("Name", name)
	app.add("Version", versionInfo.Version)
	app.add("Commit", versionInfo.Commit)
	app.add("Built", versionInfo.BuildDate)
	app.add("Gofulmen", deps.Gofulmen)
	app.add("Crucible", deps.Crucible)

	rt := envSection{title: "Runtime"}
	rt.add("Go Version", runtime.Version())
	rt.add("Platform", runtime.GOOS+"/"+runtime.GOARCH)
	rt.add("NumCPU", runtime.NumCPU())
	return []envSection{app, rt}
}

func configSections(cfg *config.Config, configFile string) []envSection {
	if configFile == "" {
		configFile = config.DefaultConfigPath()
	}

	server := envSection{title: "Configuration"}
	server.add("Config File", configFile)
	server.add("Listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	server.add("Log Level", cfg.Logging.Level)
	server.add("Metrics", fmt.Sprintf("%t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
	server.add("Admin Endpoint", setOrUnset(cfg.Server.AdminToken))
	server.add("Store Driver", cfg.Store.Driver)
	if strings.TrimSpace(cfg.Store.URL) != "" {
		server.add("Store URL", redactURL(cfg.Store.URL))
	} else {
		server.add("Store Path", cfg.Store.Path)
	}

	src := cfg.Sources
	sources := envSection{title: "Sources"}
	sources.add("CoinGecko", src.CoinGecko.BaseURL)
	sources.add("CoinGecko Key", setOrUnset(src.CoinGecko.APIKey))
	sources.add("Aptos Node", src.Aptos.NodeURL)
	sources.add("Search", src.Search.Provider)
	sources.add("Domain Age", src.RDAP.Enabled)
	sources.add("Rules", strings.Join(cfg.Pipeline.Rules, ", "))

	payment := envSection{title: "Payment"}
	payment.add("Node", cfg.Payment.NodeURL)
	payment.add("Recipient", cfg.Payment.Recipient)
	payment.add("Minimum", fmt.Sprintf("%d octas (%g APT)", cfg.Payment.MinimumOctas, cfg.Payment.MinimumAPT()))
	if cfg.Payment.DevBypassEnabled {
		payment.warn = append(payment.warn, "Dev bypass is ENABLED")
	}

	agents := envSection{title: "Agents"}
	agents.add("Enabled", isAIBackendConfigured(cfg.AILink))
	agents.add("Default Provider", valueOr(cfg.AILink.DefaultProvider, "(unset)"))
	agents.add("Timeout", cfg.AILink.DefaultTimeout)
	agents.add("Prompts Dir", valueOr(cfg.AILink.PromptsDir, "(built-in)"))
	for id, p := range cfg.AILink.Providers {
		keys := 0
		for _, c := range p.Credentials {
			if strings.TrimSpace(c.APIKey) != "" {
				keys++
			}
		}
		agents.add("Provider "+id, fmt.Sprintf("%s enabled=%t model=%s keys=%d", p.AIProvider, p.Enabled, valueOr(p.Models["default"], "-"), keys))
	}

	return []envSection{server, sources, payment, agents}
}

func setOrUnset(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return "(not set)"
	}
	return "(set)"
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

// redactURL drops credentials and query parameters, which may carry tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	if u.User != nil {
		u.User = url.User("redacted")
	}
	u.RawQuery = ""
	return u.String()
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
