package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/engine"
	apperrors "github.com/aptoseidon/aptoseidon/internal/errors"
)

// respondWithError writes err as the standard error envelope.
var respondWithError = apperrors.RespondWithError

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 64 << 10

// AnalysisService is the part of engine.Service the HTTP API needs.
type AnalysisService interface {
	Analyze(ctx context.Context, req core.AnalyzeRequest) (*core.AnalyzeResponse, error)
	RecordVote(ctx context.Context, jobID, rating string) error
	Votes(ctx context.Context, jobID string) (core.VoteTally, error)
}

var _ AnalysisService = (*engine.Service)(nil)

// AnalyzeBody is the POST /analyze payload.
type AnalyzeBody struct {
	ProjectURL    string `json:"project_url"`
	ProjectType   string `json:"project_type"`
	WalletAddress string `json:"wallet_address"`
	PaymentTxHash string `json:"payment_tx_hash"`
	RequestMode   string `json:"request_mode"`
	EvidenceOnly  bool   `json:"evidence_only"`
}

// RateBody is the POST /reputation/rate payload.
type RateBody struct {
	JobID  string `json:"job_id"`
	Rating string `json:"rating"`
}

// RateResponse acknowledges a recorded vote.
type RateResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
	Rating string `json:"rating"`
}

// AnalysisHandlers serves the analysis and reputation endpoints.
type AnalysisHandlers struct {
	Service      AnalysisService
	MaxBodyBytes int64
}

// NewAnalysisHandlers binds svc; maxBody <= 0 selects DefaultMaxBodyBytes.
func NewAnalysisHandlers(svc AnalysisService, maxBody int64) *AnalysisHandlers {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &AnalysisHandlers{Service: svc, MaxBodyBytes: maxBody}
}

// Analyze handles POST /analyze.
func (h *AnalysisHandlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeBody
	if err := h.decode(w, r, &body); err != nil {
		respondWithError(w, r, err)
		return
	}

	mode := strings.TrimSpace(body.RequestMode)
	if mode == "" {
		mode = core.ModeFull
	}
	if mode != core.ModeFull && mode != core.ModePreCheck {
		respondWithError(w, r, apperrors.NewInvalidInputError(
			fmt.Sprintf("request_mode must be %q or %q", core.ModeFull, core.ModePreCheck)))
		return
	}

	resp, err := h.Service.Analyze(r.Context(), core.AnalyzeRequest{
		Input:         body.ProjectURL,
		ProjectType:   body.ProjectType,
		WalletAddress: body.WalletAddress,
		PaymentTxRef:  body.PaymentTxHash,
		Mode:          mode,
		EvidenceOnly:  body.EvidenceOnly,
	})
	if err != nil {
		respondWithError(w, r, serviceError(r.Context(), err))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Rate handles POST /reputation/rate.
func (h *AnalysisHandlers) Rate(w http.ResponseWriter, r *http.Request) {
	var body RateBody
	if err := h.decode(w, r, &body); err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.Service.RecordVote(r.Context(), body.JobID, body.Rating); err != nil {
		respondWithError(w, r, serviceError(r.Context(), err))
		return
	}

	writeJSON(w, http.StatusOK, RateResponse{
		Status: core.StatusOK,
		JobID:  strings.TrimSpace(body.JobID),
		Rating: body.Rating,
	})
}

// Votes handles GET /reputation/rate/{jobId}.
func (h *AnalysisHandlers) Votes(w http.ResponseWriter, r *http.Request) {
	tally, err := h.Service.Votes(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		respondWithError(w, r, serviceError(r.Context(), err))
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (h *AnalysisHandlers) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperrors.NewInvalidInputError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return apperrors.NewInvalidInputError("request body is empty")
		default:
			return apperrors.WrapInvalidInput(r.Context(), err, "request body is not valid JSON")
		}
	}
	return nil
}

// serviceError maps engine errors onto API envelopes.
func serviceError(ctx context.Context, err error) error {
	var payErr *engine.PaymentRequiredError
	switch {
	case errors.As(err, &payErr):
		return apperrors.NewPaymentRequiredError(payErr.Recipient, payErr.AmountAPT, payErr.AmountOctas)
	case errors.Is(err, engine.ErrInvalidRequest):
		return apperrors.WrapInvalidInput(ctx, err, err.Error())
	case errors.Is(err, engine.ErrStoreUnavailable):
		return apperrors.Wrap(ctx, apperrors.CodeUnavailable, err, "report store is not configured")
	default:
		return apperrors.WrapInternal(ctx, err, "analysis failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
