package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/payment"
	"github.com/aptoseidon/aptoseidon/internal/core/rules"
	"github.com/aptoseidon/aptoseidon/internal/core/synth"
	"github.com/aptoseidon/aptoseidon/internal/metrics"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

// Pre-check placeholders.
const (
	LiquidityPlaceholder = "Unknown (Agent Stub)"
	MentionsHigh         = "High"
	MentionsLow          = "Low"
)

// ErrInvalidRequest marks caller mistakes such as an empty input or an
// unknown mode.
var ErrInvalidRequest = errors.New("invalid request")

// ErrStoreUnavailable is returned by vote operations without a store.
var ErrStoreUnavailable = errors.New("report store not configured")

// PaymentRequiredError is returned when a full analysis is requested without
// an authorized payment.
type PaymentRequiredError struct {
	Recipient   string
	AmountAPT   float64
	AmountOctas uint64
	// Reason is the gate's rejection reason, empty when no reference was given.
	Reason string
}

func (e *PaymentRequiredError) Error() string {
	msg := fmt.Sprintf("payment required: send %g APT (%d octas) to %s", e.AmountAPT, e.AmountOctas, e.Recipient)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Store is the persistence the service needs.
type Store interface {
	Save(ctx context.Context, a core.StoredAnalysis) error
	LoadLatestByInputKey(ctx context.Context, inputKey string) (*core.StoredAnalysis, error)
	RecordVote(ctx context.Context, jobID, rating string) error
	GetVotes(ctx context.Context, jobID string) (core.VoteTally, error)
}

// PaymentLedger binds a verified transaction to the input it paid for.
// ClaimPayment records the first claim and reports whether txHash belongs to
// inputKey. Stores that implement it stop one payment unlocking many projects.
type PaymentLedger interface {
	ClaimPayment(ctx context.Context, txHash, inputKey, wallet string) (bool, error)
}

// PaymentGate authorizes paid runs.
type PaymentGate interface {
	Verify(ctx context.Context, txRef string) payment.Verdict
	Config() payment.Config
}

var _ PaymentGate = (*payment.Gate)(nil)

// Service is the analysis entry point shared by the HTTP server and the CLI.
type Service struct {
	Collector *Collector
	Rules     *rules.Engine
	Pipeline  *Pipeline
	Gate      PaymentGate
	Store     Store
	Logger    observability.Logger

	// NewJobID overrides job id generation in tests.
	NewJobID func() string
	Clock    func() time.Time
}

// NewJobID returns "agent-" plus the first 8 hex characters of a random UUID.
func NewJobID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "agent-" + id[:8]
}

// Analyze runs one analysis request: payment check, cache lookup, evidence
// collection, rules, then either the free pre-check or the full report.
func (s *Service) Analyze(ctx context.Context, req core.AnalyzeRequest) (resp *core.AnalyzeResponse, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = core.ModeFull
	}
	defer func() {
		metrics.RecordAnalysis(mode, analysisOutcome(resp, err), time.Since(start))
	}()

	if mode != core.ModeFull && mode != core.ModePreCheck {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
	raw := strings.TrimSpace(req.Input)
	if raw == "" {
		return nil, fmt.Errorf("%w: input is required", ErrInvalidRequest)
	}

	logger := s.logger()
	key := core.Fingerprint(raw, "")

	var verdict payment.Verdict
	paid := false
	if ref := strings.TrimSpace(req.PaymentTxRef); ref != "" && s.Gate != nil {
		verdict = s.Gate.Verify(ctx, ref)
		if verdict.Authorized() {
			verdict = s.bindPayment(ctx, verdict, req.WalletAddress, key)
		}
		paid = verdict.Authorized()
	}

	if paid && s.Store != nil {
		cached, err := s.Store.LoadLatestByInputKey(ctx, key)
		if err != nil {
			logger.Warn("report cache lookup failed", zap.String("fingerprint", key), zap.Error(err))
		}
		metrics.RecordCacheLookup(cached != nil)
		if cached != nil {
			logger.Info("returning cached report", zap.String("fingerprint", key), zap.String("job_id", cached.JobID))
			out := cached.Response
			out.Status = core.StatusOK
			out.JobID = cached.JobID
			out.Cached = true
			return &out, nil
		}
	}

	if mode == core.ModeFull && !paid {
		return nil, s.paymentRequired(verdict)
	}

	input := core.NewInput(raw, req.ProjectType)
	bundle := s.collector().Collect(ctx, input)
	results := s.rules().RunAll(bundle)
	pre := BuildPreCheck(bundle)

	if mode == core.ModePreCheck || !paid {
		return &core.AnalyzeResponse{Status: core.StatusPreCheckOK, PreCheck: pre}, nil
	}

	final := s.pipeline().Evaluate(ctx, bundle, results, req.EvidenceOnly)
	resp = &core.AnalyzeResponse{
		Status:   core.StatusOK,
		PreCheck: pre,
		Report:   synth.ToReport(final),
		JobID:    s.jobID(),
	}

	if s.Store != nil {
		err := s.Store.Save(ctx, core.StoredAnalysis{
			JobID:         resp.JobID,
			InputKey:      key,
			ProjectInput:  raw,
			ProjectType:   req.ProjectType,
			WalletAddress: req.WalletAddress,
			Response:      *resp,
			CreatedAt:     s.now(),
		})
		if err != nil {
			logger.Error("failed to persist analysis", zap.String("job_id", resp.JobID), zap.String("fingerprint", key), zap.Error(err))
		}
	}
	return resp, nil
}

// BuildPreCheck derives the free preliminary view from the evidence.
func BuildPreCheck(b *core.EvidenceBundle) core.PreCheck {
	mentions := MentionsLow
	if b.DocsPresent {
		mentions = MentionsHigh
	}
	age := b.DomainAge
	if age == "" {
		age = "Auto-Detected"
	}
	return core.PreCheck{
		Age:              age,
		Liquidity:        LiquidityPlaceholder,
		SocialMentions:   mentions,
		ContractVerified: b.ContractsFound,
	}
}

// RecordVote adds an up or down vote to a job's tally.
func (s *Service) RecordVote(ctx context.Context, jobID, rating string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return fmt.Errorf("%w: job_id is required", ErrInvalidRequest)
	}
	if rating != core.RatingUp && rating != core.RatingDown {
		return fmt.Errorf("%w: rating must be %q or %q", ErrInvalidRequest, core.RatingUp, core.RatingDown)
	}
	if s.Store == nil {
		return ErrStoreUnavailable
	}
	if err := s.Store.RecordVote(ctx, jobID, rating); err != nil {
		return err
	}
	metrics.RecordVote(rating)
	return nil
}

// Votes returns a job's tally; unknown jobs have zero votes.
func (s *Service) Votes(ctx context.Context, jobID string) (core.VoteTally, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return core.VoteTally{}, fmt.Errorf("%w: job_id is required", ErrInvalidRequest)
	}
	if s.Store == nil {
		return core.VoteTally{JobID: jobID}, ErrStoreUnavailable
	}
	return s.Store.GetVotes(ctx, jobID)
}

// bindPayment rejects a verified payment sent by another wallet, or one
// already claimed for a different input. Ledger failures are logged and the
// payment stands.
func (s *Service) bindPayment(ctx context.Context, v payment.Verdict, wallet, key string) payment.Verdict {
	logger := s.logger()
	reject := func(reason string) payment.Verdict {
		logger.Warn("payment not accepted for request",
			zap.String("tx_hash", v.TxHash), zap.String("wallet", wallet), zap.String("reason", reason))
		v.State = payment.StateRejected
		v.Reason = reason
		return v
	}

	if !v.PaidBy(wallet) {
		return reject("payment was not sent by the requesting wallet")
	}
	ledger, ok := s.Store.(PaymentLedger)
	if !ok || v.Bypass {
		return v
	}
	owned, err := ledger.ClaimPayment(ctx, v.TxHash, key, wallet)
	if err != nil {
		logger.Warn("payment ledger unavailable", zap.String("tx_hash", v.TxHash), zap.Error(err))
		return v
	}
	if !owned {
		return reject("transaction already paid for another project")
	}
	return v
}

func (s *Service) paymentRequired(v payment.Verdict) *PaymentRequiredError {
	var cfg payment.Config
	if s.Gate != nil {
		cfg = s.Gate.Config()
	}
	return &PaymentRequiredError{
		Recipient:   cfg.Recipient,
		AmountAPT:   cfg.AmountAPT(),
		AmountOctas: cfg.MinimumOctas,
		Reason:      v.Reason,
	}
}

func analysisOutcome(resp *core.AnalyzeResponse, err error) string {
	var payErr *PaymentRequiredError
	switch {
	case errors.As(err, &payErr):
		return "payment_required"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case err != nil:
		return "error"
	case resp.Cached:
		return "cached"
	case resp.Status == core.StatusPreCheckOK:
		return "pre_check"
	default:
		return "full"
	}
}

func (s *Service) collector() *Collector {
	if s.Collector != nil {
		return s.Collector
	}
	return &Collector{Logger: s.Logger}
}

func (s *Service) rules() *rules.Engine {
	if s.Rules != nil {
		return s.Rules
	}
	engine, _ := rules.New(rules.DefaultRuleNames)
	return engine
}

func (s *Service) pipeline() *Pipeline {
	if s.Pipeline != nil {
		return s.Pipeline
	}
	return &Pipeline{Logger: s.Logger}
}

func (s *Service) jobID() string {
	if s.NewJobID != nil {
		return s.NewJobID()
	}
	return NewJobID()
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *Service) logger() observability.Logger {
	if s.Logger == nil {
		return observability.Nop()
	}
	return s.Logger
}
