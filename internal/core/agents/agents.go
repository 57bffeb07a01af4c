// Package agents turns an evidence bundle into model-derived judgments.
//
// Every agent makes at most one completion call and never returns an error:
// missing input, failed calls and unusable responses all produce a neutral
// default tagged core.OutcomeDegraded.
package agents

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/metrics"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

// Agent names used in logs, metrics and the report's degraded list.
const (
	NameRisk          = "risk"
	NameCredibility   = "credibility"
	NameNarrative     = "narrative"
	NameContradiction = "contradiction"
)

const neutralScore = 0.5

// Completer is the language-model completion service.
type Completer interface {
	CompleteJSON(ctx context.Context, slug, userContent string) (string, error)
	CompleteText(ctx context.Context, slug, userContent string) (string, error)
}

// Options bounds agent prompts.
type Options struct {
	// ContextLimit caps the page text quoted in a prompt, in characters.
	ContextLimit int
	// BaseLayerTypes are project types for which missing contracts are not a risk.
	BaseLayerTypes []string
}

// Agents runs the four judgment agents against one completion service.
type Agents struct {
	llm    Completer
	logger observability.Logger
	opts   Options
}

// New builds the agent set. A nil logger discards output.
func New(llm Completer, logger observability.Logger, opts Options) *Agents {
	if logger == nil {
		logger = observability.Nop()
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = 2000
	}
	return &Agents{llm: llm, logger: logger, opts: opts}
}

func (a *Agents) degrade(agent, reason string, err error) core.Outcome {
	fields := []zap.Field{zap.String("agent", agent), zap.String("reason", reason)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	a.logger.Warn("agent degraded to default", fields...)
	metrics.RecordAgentRun(agent, string(core.OutcomeDegraded))
	return core.Degraded(reason)
}

func (a *Agents) computed(agent string) core.Outcome {
	metrics.RecordAgentRun(agent, string(core.OutcomeComputed))
	return core.Computed()
}

func (a *Agents) isBaseLayer(projectType string) bool {
	pt := strings.ToLower(strings.TrimSpace(projectType))
	if pt == "" {
		return false
	}
	for _, t := range a.opts.BaseLayerTypes {
		if strings.ToLower(strings.TrimSpace(t)) == pt {
			return true
		}
	}
	return false
}

func renderJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func formatRules(results []core.RuleResult, sep string, wrap bool) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		if wrap {
			lines = append(lines, "- "+r.RuleID+": "+string(r.Status)+" ("+r.Reason+")")
		} else {
			lines = append(lines, "- "+r.RuleID+": "+string(r.Status)+sep+r.Reason)
		}
	}
	return strings.Join(lines, "\n")
}
