package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/core"
	"github.com/aptoseidon/aptoseidon/internal/core/engine"
	apperrors "github.com/aptoseidon/aptoseidon/internal/errors"
)

type stubAnalysis struct {
	lastReq  core.AnalyzeRequest
	resp     *core.AnalyzeResponse
	err      error
	voteErr  error
	votes    map[string]core.VoteTally
	lastVote [2]string
}

func (s *stubAnalysis) Analyze(_ context.Context, req core.AnalyzeRequest) (*core.AnalyzeResponse, error) {
	s.lastReq = req
	return s.resp, s.err
}

func (s *stubAnalysis) RecordVote(_ context.Context, jobID, rating string) error {
	s.lastVote = [2]string{jobID, rating}
	return s.voteErr
}

func (s *stubAnalysis) Votes(_ context.Context, jobID string) (core.VoteTally, error) {
	if t, ok := s.votes[jobID]; ok {
		return t, nil
	}
	return core.VoteTally{JobID: jobID}, nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestAnalyzeMapsBodyToRequest(t *testing.T) {
	svc := &stubAnalysis{resp: &core.AnalyzeResponse{
		Status:   core.StatusPreCheckOK,
		PreCheck: core.PreCheck{Age: "Auto-Detected", Liquidity: "Unknown (Agent Stub)", SocialMentions: "Low"},
	}}
	h := NewAnalysisHandlers(svc, 0)

	body := `{"project_url":"https://example.xyz","project_type":"Token","wallet_address":"0xabc","payment_tx_hash":"0xfeed","request_mode":"pre_check","evidence_only":true}`
	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.AnalyzeRequest{
		Input:         "https://example.xyz",
		ProjectType:   "Token",
		WalletAddress: "0xabc",
		PaymentTxRef:  "0xfeed",
		Mode:          core.ModePreCheck,
		EvidenceOnly:  true,
	}, svc.lastReq)

	var resp core.AnalyzeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, core.StatusPreCheckOK, resp.Status)
	assert.Equal(t, "Low", resp.PreCheck.SocialMentions)
	assert.Nil(t, resp.Report)
}

func TestAnalyzeDefaultsToFullMode(t *testing.T) {
	svc := &stubAnalysis{resp: &core.AnalyzeResponse{Status: core.StatusOK}}
	h := NewAnalysisHandlers(svc, 0)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"project_url":"aptos"}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.ModeFull, svc.lastReq.Mode)
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		max  int64
	}{
		{name: "unknown mode", body: `{"project_url":"x","request_mode":"deep"}`},
		{name: "invalid json", body: `{"project_url":`},
		{name: "empty body", body: ``},
		{name: "too large", body: `{"project_url":"` + strings.Repeat("a", 256) + `"}`, max: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubAnalysis{}
			h := NewAnalysisHandlers(svc, tt.max)

			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Analyze(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, apperrors.CodeInvalidInput, decodeError(t, rec).Error.Code)
			assert.Empty(t, svc.lastReq.Input)
		})
	}
}

func TestAnalyzePaymentRequired(t *testing.T) {
	svc := &stubAnalysis{err: &engine.PaymentRequiredError{
		Recipient:   "0x701b",
		AmountAPT:   0.01,
		AmountOctas: 1_000_000,
	}}
	h := NewAnalysisHandlers(svc, 0)

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"project_url":"aptos","request_mode":"full"}`))
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, apperrors.CodePaymentRequired, body.Error.Code)
	assert.Equal(t, "0x701b", body.Error.Details["recipient"])
	assert.InDelta(t, 0.01, body.Error.Details["amount"], 1e-9)
	assert.InDelta(t, 1_000_000, body.Error.Details["amount_octas"], 1e-9)
}

func TestAnalyzeServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "invalid", err: fmt.Errorf("%w: input is required", engine.ErrInvalidRequest), status: http.StatusBadRequest, code: apperrors.CodeInvalidInput},
		{name: "internal", err: errors.New("boom"), status: http.StatusInternalServerError, code: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAnalysisHandlers(&stubAnalysis{err: tt.err}, 0)
			req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(`{"project_url":"x"}`))
			rec := httptest.NewRecorder()
			h.Analyze(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error.Code)
		})
	}
}

func TestRateRecordsVote(t *testing.T) {
	svc := &stubAnalysis{}
	h := NewAnalysisHandlers(svc, 0)

	req := httptest.NewRequest(http.MethodPost, "/reputation/rate", strings.NewReader(`{"job_id":"agent-1a2b3c4d","rating":"up"}`))
	rec := httptest.NewRecorder()
	h.Rate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [2]string{"agent-1a2b3c4d", "up"}, svc.lastVote)

	var resp RateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, RateResponse{Status: "ok", JobID: "agent-1a2b3c4d", Rating: "up"}, resp)
}

func TestRateRejectsUnknownRating(t *testing.T) {
	svc := &stubAnalysis{voteErr: fmt.Errorf("%w: rating must be up or down", engine.ErrInvalidRequest)}
	h := NewAnalysisHandlers(svc, 0)

	req := httptest.NewRequest(http.MethodPost, "/reputation/rate", strings.NewReader(`{"job_id":"agent-1","rating":"meh"}`))
	rec := httptest.NewRecorder()
	h.Rate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, decodeError(t, rec).Error.Code)
}

func TestVotesReadsJobIDFromPath(t *testing.T) {
	svc := &stubAnalysis{votes: map[string]core.VoteTally{
		"agent-1": {JobID: "agent-1", Up: 3, Down: 1},
	}}
	h := NewAnalysisHandlers(svc, 0)
	r := chi.NewRouter()
	r.Get("/reputation/rate/{jobId}", h.Votes)

	for jobID, want := range map[string]core.VoteTally{
		"agent-1": {JobID: "agent-1", Up: 3, Down: 1},
		"agent-2": {JobID: "agent-2"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/reputation/rate/"+jobID, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got core.VoteTally
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, want, got)
	}
}

func TestVotesWithoutStoreIsUnavailable(t *testing.T) {
	h := NewAnalysisHandlers(&engine.Service{}, 0)
	r := chi.NewRouter()
	r.Get("/reputation/rate/{jobId}", h.Votes)

	req := httptest.NewRequest(http.MethodGet, "/reputation/rate/agent-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperrors.CodeUnavailable, decodeError(t, rec).Error.Code)
}
