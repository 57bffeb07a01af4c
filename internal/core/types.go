package core

import "time"

// InputKind is the classification of a raw analysis input.
type InputKind string

const (
	InputKindURL     InputKind = "url"
	InputKindAddress InputKind = "address"
	InputKindName    InputKind = "name"
)

// Input is a classified analysis subject. Kind is fixed at construction.
type Input struct {
	Raw         string    `json:"raw"`
	ProjectType string    `json:"project_type"`
	Kind        InputKind `json:"kind"`
}

// NewInput trims raw and classifies it.
func NewInput(raw, projectType string) Input {
	return Input{Raw: trimInput(raw), ProjectType: projectType, Kind: Classify(raw)}
}

// MarketData is the subset of a market-data record the pipeline uses.
type MarketData struct {
	CoinGeckoID string  `json:"coingecko_id"`
	Symbol      string  `json:"symbol"`
	PriceUSD    float64 `json:"price_usd"`
	MarketCap   float64 `json:"market_cap"`
	Volume24h   float64 `json:"vol_24h"`
	Change24h   float64 `json:"change_24h"`
	ATH         float64 `json:"ath"`
	ATL         float64 `json:"atl"`
	FDV         float64 `json:"fdv"`
	TotalSupply float64 `json:"total_supply"`
	CircSupply  float64 `json:"circ_supply"`
}

// OnChainData summarizes an account's deployed modules.
type OnChainData struct {
	IsContract   bool `json:"is_contract"`
	ModulesCount int  `json:"modules_count"`
}

// EvidenceBundle is everything collected for one input. Optional records
// are nil when the source was skipped or unavailable.
type EvidenceBundle struct {
	Input          Input        `json:"input"`
	ProjectName    string       `json:"project_name"`
	DomainAge      string       `json:"domain_age"`
	DocsPresent    bool         `json:"docs_present"`
	ContractsFound bool         `json:"contracts_found"`
	RawText        string       `json:"raw_text"`
	MarketData     *MarketData  `json:"market_data,omitempty"`
	OnChainData    *OnChainData `json:"on_chain_data,omitempty"`
	SocialSignals  []string     `json:"social_signals"`

	// Unavailable names the sources that failed or were throttled.
	Unavailable []string `json:"unavailable,omitempty"`
}

// HasAnyEvidence reports whether anything beyond the name was collected.
func (b *EvidenceBundle) HasAnyEvidence() bool {
	return b.RawText != "" || b.MarketData != nil || b.OnChainData != nil || len(b.SocialSignals) > 0
}

// RuleStatus is a rule verdict.
type RuleStatus string

const (
	StatusPass RuleStatus = "PASS"
	StatusWarn RuleStatus = "WARN"
	StatusFail RuleStatus = "FAIL"
)

// RuleResult is one explainable rule verdict.
type RuleResult struct {
	RuleID string     `json:"rule_id"`
	Status RuleStatus `json:"status"`
	Reason string     `json:"reason"`
	Source string     `json:"source"`
}

// CountStatus returns how many results carry status.
func CountStatus(results []RuleResult, status RuleStatus) int {
	n := 0
	for _, r := range results {
		if r.Status == status {
			n++
		}
	}
	return n
}

// OutcomeKind says how a judgment was produced.
type OutcomeKind string

const (
	// OutcomeComputed judgments came from a completion.
	OutcomeComputed OutcomeKind = "computed"
	// OutcomeSkipped judgments are the budget controller's deterministic fallbacks.
	OutcomeSkipped OutcomeKind = "skipped"
	// OutcomeDegraded judgments are neutral defaults substituted after missing
	// input, a failed call or an unusable response.
	OutcomeDegraded OutcomeKind = "degraded"
)

// Outcome tags a judgment so a computed 0.5 can be told apart from a
// defaulted 0.5.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

// Computed is the outcome of a judgment produced by a completion.
func Computed() Outcome { return Outcome{Kind: OutcomeComputed} }

// Skipped tags a budget-controller fallback.
func Skipped(reason string) Outcome { return Outcome{Kind: OutcomeSkipped, Reason: reason} }

// Degraded tags a neutral default with why it was used.
func Degraded(reason string) Outcome { return Outcome{Kind: OutcomeDegraded, Reason: reason} }

// IsDegraded reports whether the judgment is a neutral default.
func (o Outcome) IsDegraded() bool { return o.Kind == OutcomeDegraded }

// RiskAnalysis scores danger; 1.0 is maximal.
type RiskAnalysis struct {
	Score   float64  `json:"risk_score"`
	Flags   []string `json:"risk_flags"`
	Outcome Outcome  `json:"-"`
}

// CredibilityAnalysis scores credibility; 1.0 is maximal.
type CredibilityAnalysis struct {
	Score   float64  `json:"credibility_score"`
	Signals []string `json:"positive_signals"`
	Outcome Outcome  `json:"-"`
}

// ConflictFinding describes disagreement between rules and agent output.
type ConflictFinding struct {
	HasConflict bool    `json:"has_conflict"`
	Reason      string  `json:"reason"`
	Outcome     Outcome `json:"-"`
}

// Narrative is the neutral structural summary of a project.
type Narrative struct {
	Text    string
	Outcome Outcome
}

// ConfidenceDetails decomposes report confidence by evidence family.
type ConfidenceDetails struct {
	OnChain     float64 `json:"on_chain"`
	Social      float64 `json:"social"`
	Consistency float64 `json:"consistency"`
}

// FinalReport is the synthesized verdict for one run.
type FinalReport struct {
	FinalScore        float64             `json:"final_score"`
	Verdict           string              `json:"verdict"`
	Confidence        float64             `json:"confidence"`
	ConfidenceDetails ConfidenceDetails   `json:"confidence_details"`
	Summary           string              `json:"summary"`
	Risk              RiskAnalysis        `json:"risk"`
	Credibility       CredibilityAnalysis `json:"credibility"`
	MarketData        *MarketData         `json:"market_data,omitempty"`
	FinancialAnalysis map[string]any      `json:"financial_analysis"`
	RuleResults       []RuleResult        `json:"rule_results"`
	AgentConflict     ConflictFinding     `json:"agent_conflict"`
	Narrative         string              `json:"narrative"`

	// Degraded lists "<agent>: <reason>" for every defaulted judgment.
	Degraded []string `json:"degraded"`
}

// PreCheck is the free preliminary view of a project.
type PreCheck struct {
	Age              string `json:"age"`
	Liquidity        string `json:"liquidity"`
	SocialMentions   string `json:"socialMentions"`
	ContractVerified bool   `json:"contractVerified"`
}

// Report is the external representation of a FinalReport.
type Report struct {
	RiskScore         int               `json:"riskScore"`
	RiskLevel         string            `json:"riskLevel"`
	Score             int               `json:"score"`
	Summary           string            `json:"summary"`
	InvestmentAdvice  string            `json:"investmentAdvice"`
	AuditDetails      []string          `json:"auditDetails"`
	RiskFlags         []string          `json:"riskFlags"`
	PositiveSignals   []string          `json:"positiveSignals"`
	MarketData        *MarketData       `json:"marketData"`
	FinancialAnalysis map[string]any    `json:"financialAnalysis"`
	RuleResults       []RuleResult      `json:"ruleResults"`
	AgentConflict     ConflictFinding   `json:"agentConflict"`
	Narrative         string            `json:"narrative"`
	Confidence        float64           `json:"confidence"`
	ConfidenceDetails ConfidenceDetails `json:"confidenceDetails"`
	Degraded          []string          `json:"degraded"`
}

// Analysis request modes.
const (
	ModeFull     = "full"
	ModePreCheck = "pre_check"
)

// Response statuses.
const (
	StatusOK         = "ok"
	StatusPreCheckOK = "pre_check_ok"
)

// AnalyzeRequest is the single analysis entry point's input.
type AnalyzeRequest struct {
	Input         string `json:"input"`
	ProjectType   string `json:"project_type"`
	WalletAddress string `json:"wallet_address"`
	PaymentTxRef  string `json:"payment_tx_ref,omitempty"`
	Mode          string `json:"mode"`
	EvidenceOnly  bool   `json:"evidence_only"`
}

// AnalyzeResponse is returned for both pre-check and full runs. Report and
// JobID are empty on pre-check responses.
type AnalyzeResponse struct {
	Status   string   `json:"status"`
	PreCheck PreCheck `json:"preCheck"`
	Report   *Report  `json:"report,omitempty"`
	JobID    string   `json:"jobId,omitempty"`

	// Cached is set when the response was served from the report store.
	Cached bool `json:"-"`
}

// Vote ratings.
const (
	RatingUp   = "up"
	RatingDown = "down"
)

// VoteTally is the community rating of one job.
type VoteTally struct {
	JobID string `json:"job_id"`
	Up    int    `json:"up"`
	Down  int    `json:"down"`
}

// StoredAnalysis is a persisted paid response.
type StoredAnalysis struct {
	JobID         string
	InputKey      string
	ProjectInput  string
	ProjectType   string
	WalletAddress string
	Response      AnalyzeResponse
	CreatedAt     time.Time
}
