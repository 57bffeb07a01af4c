// Package rules holds the deterministic checks run over an evidence bundle
// and the budget policy that decides whether agents run.
package rules

import (
	"fmt"
	"strings"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/source"
)

// Rule is a pure check over an evidence bundle. Rules must not depend on
// each other or on evaluation order.
type Rule interface {
	Name() string
	Evaluate(b *core.EvidenceBundle) core.RuleResult
}

// Rule names accepted by New.
const (
	NameDocs      = "docs"
	NameLiquidity = "liquidity"
	NameContract  = "contract"
)

// DefaultRuleNames is the rule set run when none is configured.
var DefaultRuleNames = []string{NameDocs, NameLiquidity}

// GhostLiquidityRatio is the volume/market-cap ratio below which liquidity
// is considered fake. The comparison is strict.
const GhostLiquidityRatio = 0.01

// Liquidity flags tokens whose trading volume is implausibly low for their
// market cap.
type Liquidity struct{}

func (Liquidity) Name() string { return NameLiquidity }

func (Liquidity) Evaluate(b *core.EvidenceBundle) core.RuleResult {
	md := b.MarketData
	if md == nil {
		return core.RuleResult{RuleID: "LIQ_UNKNOWN", Status: core.StatusWarn, Reason: "No market data available", Source: source.CoinGeckoName}
	}
	if md.MarketCap > 0 && md.Volume24h/md.MarketCap < GhostLiquidityRatio {
		return core.RuleResult{RuleID: "LIQ_GHOST", Status: core.StatusFail, Reason: "Volume/Mcap ratio < 1% (Ghost Chain)", Source: source.CoinGeckoName}
	}
	return core.RuleResult{RuleID: "LIQ_OK", Status: core.StatusPass, Reason: "Liquidity sufficient", Source: source.CoinGeckoName}
}

// Docs requires documentation or whitepaper markers on the project page.
type Docs struct{}

func (Docs) Name() string { return NameDocs }

func (Docs) Evaluate(b *core.EvidenceBundle) core.RuleResult {
	if !b.DocsPresent {
		return core.RuleResult{RuleID: "DOCS_MISSING", Status: core.StatusFail, Reason: "No documentation or whitepaper detected", Source: source.WebScraperName}
	}
	return core.RuleResult{RuleID: "DOCS_OK", Status: core.StatusPass, Reason: "Documentation found", Source: source.WebScraperName}
}

// Contract checks for deployed modules at the input address.
type Contract struct{}

func (Contract) Name() string { return NameContract }

func (Contract) Evaluate(b *core.EvidenceBundle) core.RuleResult {
	if b.ContractsFound {
		return core.RuleResult{RuleID: "CONTRACT_FOUND", Status: core.StatusPass, Reason: "Smart Contract detected", Source: source.AptosName}
	}
	return core.RuleResult{RuleID: "CONTRACT_MISSING", Status: core.StatusWarn, Reason: "No modules found at address", Source: source.AptosName}
}

var registry = map[string]Rule{
	NameDocs:      Docs{},
	NameLiquidity: Liquidity{},
	NameContract:  Contract{},
}

// Engine runs a fixed, ordered rule set.
type Engine struct {
	rules []Rule
}

// New builds an engine from rule names, in order. An empty list selects
// DefaultRuleNames.
func New(names []string) (*Engine, error) {
	if len(names) == 0 {
		names = DefaultRuleNames
	}
	e := &Engine{}
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		rule, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", raw)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		e.rules = append(e.rules, rule)
	}
	return e, nil
}

// NewWithRules builds an engine from explicit rule values.
func NewWithRules(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Names lists the configured rules in evaluation order.
func (e *Engine) Names() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Name()
	}
	return out
}

// RunAll evaluates every rule against b. The output order matches the
// configured rule order and is identical for identical bundles.
func (e *Engine) RunAll(b *core.EvidenceBundle) []core.RuleResult {
	results := make([]core.RuleResult, 0, len(e.rules))
	for _, r := range e.rules {
		results = append(results, r.Evaluate(b))
	}
	return results
}
