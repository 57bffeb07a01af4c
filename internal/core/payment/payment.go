// Package payment verifies that an on-chain transfer authorizes a paid analysis.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/aptoseidon/aptoseidon/internal/core/source"
	"github.com/aptoseidon/aptoseidon/internal/metrics"
	"github.com/aptoseidon/aptoseidon/internal/observability"
)

// OctasPerAPT is the number of octas in one APT.
const OctasPerAPT = 100_000_000

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// IsTxHash reports whether ref is a full transaction hash: 0x and 64 hex digits.
func IsTxHash(ref string) bool {
	return txHashPattern.MatchString(ref)
}

// State is a verification state.
type State string

const (
	StateUnpaid     State = "UNPAID"
	StateVerifying  State = "VERIFYING"
	StateAuthorized State = "AUTHORIZED"
	StateRejected   State = "REJECTED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateAuthorized || s == StateRejected
}

// Verdict is the result of verifying one transaction reference.
type Verdict struct {
	State       State  `json:"state"`
	Reason      string `json:"reason"`
	TxHash      string `json:"tx_hash,omitempty"`
	Sender      string `json:"sender,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	AmountOctas uint64 `json:"amount_octas,omitempty"`
	Bypass      bool   `json:"bypass,omitempty"`
}

// Authorized reports whether the verdict permits a paid run.
func (v Verdict) Authorized() bool { return v.State == StateAuthorized }

// PaidBy reports whether wallet sent the payment. An empty wallet and a
// bypass verdict match anything; otherwise the sender must be known.
func (v Verdict) PaidBy(wallet string) bool {
	if strings.TrimSpace(wallet) == "" || v.Bypass {
		return true
	}
	return v.Sender != "" && SameAddress(v.Sender, wallet)
}

// Config is the payment policy.
type Config struct {
	Recipient         string
	MinimumOctas      uint64
	TransferFunctions []string

	// BypassToken authorizes without a chain lookup, and only when
	// BypassEnabled is set.
	BypassToken   string
	BypassEnabled bool
}

// AmountAPT is the minimum price in APT.
func (c Config) AmountAPT() float64 {
	return float64(c.MinimumOctas) / OctasPerAPT
}

// TransactionFetcher looks up committed transactions.
type TransactionFetcher interface {
	TransactionByHash(ctx context.Context, hash string) (*source.Transaction, error)
}

// Gate runs the verification state machine.
type Gate struct {
	chain  TransactionFetcher
	cfg    Config
	logger observability.Logger
}

// NewGate builds a Gate.
func NewGate(chain TransactionFetcher, cfg Config, logger observability.Logger) *Gate {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Gate{chain: chain, cfg: cfg, logger: logger}
}

// Config returns the gate's policy.
func (g *Gate) Config() Config { return g.cfg }

// Verify moves a reference from UNPAID through VERIFYING to AUTHORIZED or
// REJECTED. It never returns an error; every failure is a rejection.
func (g *Gate) Verify(ctx context.Context, txRef string) (v Verdict) {
	txRef = strings.TrimSpace(txRef)
	v = Verdict{State: StateUnpaid, TxHash: txRef}

	defer func() {
		if r := recover(); r != nil {
			v = g.reject(v, fmt.Sprintf("verification panic: %v", r))
		}
		metrics.RecordPaymentVerification(string(v.State))
	}()

	if txRef == "" {
		return g.reject(v, "empty transaction reference")
	}
	if g.cfg.BypassEnabled && g.cfg.BypassToken != "" && txRef == g.cfg.BypassToken {
		g.logger.Warn("payment bypass token accepted", zap.String("tx_hash", txRef))
		v.State = StateAuthorized
		v.Reason = "development bypass"
		v.Bypass = true
		return v
	}
	// The reference becomes a URL path segment on the payment node.
	if !IsTxHash(txRef) {
		return g.reject(v, "malformed transaction hash")
	}
	if g.chain == nil {
		return g.reject(v, "no chain client configured")
	}

	v.State = StateVerifying
	g.logger.Debug("verifying payment", zap.String("tx_hash", txRef))

	tx, err := g.chain.TransactionByHash(ctx, txRef)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return g.reject(v, "transaction not found")
		}
		g.logger.Warn("transaction lookup failed", zap.String("tx_hash", txRef), zap.Error(err))
		return g.reject(v, "transaction lookup failed")
	}
	if tx == nil {
		return g.reject(v, "transaction not found")
	}
	if tx.Sender != "" {
		v.Sender = NormalizeAddress(tx.Sender)
	}
	if !tx.Success {
		return g.reject(v, "transaction failed on-chain")
	}
	if tx.Payload == nil || !g.isTransfer(tx.Payload.Function) {
		fn := ""
		if tx.Payload != nil {
			fn = tx.Payload.Function
		}
		return g.reject(v, "unrecognized function "+strconv.Quote(fn))
	}
	if len(tx.Payload.Arguments) < 2 {
		return g.reject(v, "insufficient transfer arguments")
	}

	recipient, err := decodeString(tx.Payload.Arguments[0])
	if err != nil {
		return g.reject(v, "invalid recipient argument")
	}
	amount, err := ParseOctas(tx.Payload.Arguments[1])
	if err != nil {
		return g.reject(v, "invalid amount argument")
	}
	v.Recipient = NormalizeAddress(recipient)
	v.AmountOctas = amount

	if v.Recipient != NormalizeAddress(g.cfg.Recipient) {
		return g.reject(v, "recipient mismatch")
	}
	if amount < g.cfg.MinimumOctas {
		return g.reject(v, fmt.Sprintf("insufficient amount: got %d, need %d", amount, g.cfg.MinimumOctas))
	}

	v.State = StateAuthorized
	v.Reason = "payment verified"
	g.logger.Info("payment verified", zap.String("tx_hash", txRef), zap.Uint64("amount_octas", amount))
	return v
}

func (g *Gate) reject(v Verdict, reason string) Verdict {
	v.State = StateRejected
	v.Reason = reason
	g.logger.Warn("payment rejected", zap.String("tx_hash", v.TxHash), zap.String("reason", reason))
	return v
}

func (g *Gate) isTransfer(function string) bool {
	function = strings.ToLower(strings.TrimSpace(function))
	for _, f := range g.cfg.TransferFunctions {
		if strings.ToLower(strings.TrimSpace(f)) == function {
			return true
		}
	}
	return false
}

// NormalizeAddress lowercases an address and ensures a 0x prefix.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	return addr
}

// SameAddress compares two account addresses, ignoring case, the 0x prefix
// and leading zeros (0x1 equals 0x0000...0001).
func SameAddress(a, b string) bool {
	return shortAddress(a) == shortAddress(b)
}

func shortAddress(addr string) string {
	addr = strings.TrimPrefix(NormalizeAddress(addr), "0x")
	if trimmed := strings.TrimLeft(addr, "0"); trimmed != "" {
		return trimmed
	}
	return "0"
}

// ParseOctas reads a u64 amount encoded as a JSON string or integer.
func ParseOctas(raw json.RawMessage) (uint64, error) {
	s, err := decodeString(raw)
	if err != nil {
		s = strings.TrimSpace(string(raw))
	}
	return strconv.ParseUint(s, 10, 64)
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return strings.TrimSpace(s), nil
}
