package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ClaimPayment binds txHash to inputKey on first use. It reports true when the
// hash is unclaimed or already bound to inputKey, false when it paid for a
// different input.
func (s *Store) ClaimPayment(ctx context.Context, txHash, inputKey, wallet string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	txHash = strings.ToLower(strings.TrimSpace(txHash))
	if txHash == "" || inputKey == "" {
		return false, errors.New("tx hash and input key are required")
	}

	insert := `
		INSERT INTO payments (tx_hash, input_key, wallet_address, claimed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tx_hash) DO NOTHING`
	if _, err := s.DB.ExecContext(ctx, s.rebind(insert),
		txHash, inputKey, strings.TrimSpace(wallet), time.Now().UnixMilli()); err != nil {
		return false, fmt.Errorf("claim payment: %w", err)
	}

	var owner string
	err := s.DB.QueryRowContext(ctx, s.rebind(`SELECT input_key FROM payments WHERE tx_hash = ?`), txHash).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("claim payment: %s vanished after insert", txHash)
	}
	if err != nil {
		return false, fmt.Errorf("claim payment: %w", err)
	}
	return owner == inputKey, nil
}
