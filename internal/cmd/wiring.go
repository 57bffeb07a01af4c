package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/ailink"
	"github.com/aptoseidon/aptoseidon/internal/ailink/prompt"
	"github.com/aptoseidon/aptoseidon/internal/config"
	"github.com/aptoseidon/aptoseidon/internal/core/agents"
	"github.com/aptoseidon/aptoseidon/internal/core/engine"
	"github.com/aptoseidon/aptoseidon/internal/core/payment"
	"github.com/aptoseidon/aptoseidon/internal/core/rules"
	"github.com/aptoseidon/aptoseidon/internal/core/source"
	"github.com/aptoseidon/aptoseidon/internal/core/store"
	"github.com/aptoseidon/aptoseidon/internal/core/synth"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

// newRateLimiter builds the persisted source limiter. Without a store every
// call is allowed.
func newRateLimiter(cfg *config.Config, db *store.Store) *engine.RateLimiter {
	limiter := &engine.RateLimiter{}
	if db != nil {
		limiter.Store = db
	}
	limiter.ApplyOverrides(cfg.RateLimits)
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)
	return limiter
}

// newPaymentGate builds the gate against the payment node.
func newPaymentGate(cfg *config.Config, limiter *engine.RateLimiter, logger observability.Logger) *payment.Gate {
	transport := source.NewHTTP(cfg.Sources.HTTPTimeout, cfg.Sources.UserAgent, limiter)
	chain := &source.Aptos{HTTP: transport, NodeURL: cfg.Payment.NodeURL}
	return payment.NewGate(chain, payment.Config{
		Recipient:         cfg.Payment.Recipient,
		MinimumOctas:      cfg.Payment.MinimumOctas,
		TransferFunctions: cfg.Payment.TransferFunctions,
		BypassToken:       cfg.Payment.BypassToken,
		BypassEnabled:     cfg.Payment.DevBypassEnabled,
	}, logger)
}

// newCollector wires the evidence sources. API clients share the limited
// transport; project pages use an unlimited one.
func newCollector(cfg *config.Config, limiter *engine.RateLimiter, logger observability.Logger) (*engine.Collector, error) {
	src := cfg.Sources
	transport := source.NewHTTP(src.HTTPTimeout, src.UserAgent, limiter)

	c := &engine.Collector{
		Pages:  &source.PageFetcher{HTTP: source.NewHTTP(src.HTTPTimeout, src.UserAgent, nil)},
		Market: &source.CoinGecko{HTTP: transport, BaseURL: src.CoinGecko.BaseURL, APIKey: src.CoinGecko.APIKey},
		Chain:  &source.Aptos{HTTP: transport, NodeURL: src.Aptos.NodeURL, ReservedPrefixes: src.Aptos.ReservedPrefixes},
		Options: engine.CollectorOptions{
			NameLimit:      cfg.Pipeline.NameLimit,
			TextLimit:      cfg.Pipeline.TextLimit,
			DocMarkers:     cfg.Pipeline.DocMarkers,
			TokenTypes:     cfg.Pipeline.TokenTypes,
			SearchLimit:    src.Search.Limit,
			SearchKeywords: src.Search.Keywords,
		},
		Logger: logger,
	}

	searcher, err := source.NewSearcher(source.SearcherConfig{
		Provider: src.Search.Provider,
		BaseURL:  src.Search.BaseURL,
		APIKey:   src.Search.APIKey,
	}, transport)
	if err != nil {
		return nil, fmt.Errorf("search provider: %w", err)
	}
	c.Search = searcher

	if src.RDAP.Enabled {
		age, err := source.NewDomainAgeLookup(src.RDAP.Server, src.RDAP.Timeout, limiter)
		if err != nil {
			return nil, err
		}
		c.Age = age
	}
	return c, nil
}

// newPipeline wires the agents and synthesizer. Without a configured
// completion backend the agents are skipped and the summary falls back.
func newPipeline(cfg *config.Config, logger observability.Logger) (*engine.Pipeline, error) {
	p := &engine.Pipeline{Logger: logger}
	if !isAIBackendConfigured(cfg.AILink) {
		logger.Debug("No AI backend configured; agents disabled")
		p.Synth = synth.New(nil, logger)
		return p, nil
	}

	prompts, err := prompt.DefaultRegistry(cfg.AILink.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	if err := prompt.Require(prompts, prompt.AgentSlugs()...); err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}

	llm := ailink.NewService(cfg.AILink, prompts)
	p.Judge = agents.New(llm, logger, agents.Options{
		ContextLimit:   cfg.Pipeline.AgentContextLimit,
		BaseLayerTypes: cfg.Pipeline.BaseLayerTypes,
	})
	p.Synth = synth.New(llm, logger)
	return p, nil
}

// buildService assembles the analysis service from cfg. db may be nil, in
// which case nothing is cached or persisted and votes are unavailable.
func buildService(cfg *config.Config, db *store.Store, logger observability.Logger) (*engine.Service, error) {
	if logger == nil {
		logger = observability.Nop()
	}

	ruleEngine, err := rules.New(cfg.Pipeline.Rules)
	if err != nil {
		return nil, err
	}

	limiter := newRateLimiter(cfg, db)
	collector, err := newCollector(cfg, limiter, logger)
	if err != nil {
		return nil, err
	}
	pipeline, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}

	svc := &engine.Service{
		Collector: collector,
		Rules:     ruleEngine,
		Pipeline:  pipeline,
		Gate:      newPaymentGate(cfg, limiter, logger),
		Logger:    logger,
	}
	if db != nil {
		svc.Store = db
	}

	logger.Debug("Analysis service ready",
		zap.Strings("rules", ruleEngine.Names()),
		zap.Bool("agents", pipeline.Judge != nil),
		zap.Bool("store", db != nil),
		zap.String("search_provider", cfg.Sources.Search.Provider),
		zap.Bool("rdap", cfg.Sources.RDAP.Enabled),
	)
	return svc, nil
}
