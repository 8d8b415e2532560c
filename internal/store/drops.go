package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siftlabs/sift/internal/contracts"
)

// DropRepository records rejected candidates so no cycle decision is
// lost. Rows land in the shadow table with the full candidate payload.
type DropRepository struct {
	pool *pgxpool.Pool
}

// NewDropRepository creates a new drop repository.
func NewDropRepository(pool *pgxpool.Pool) *DropRepository {
	return &DropRepository{pool: pool}
}

// Record stores one dropped candidate with its rejection reason.
func (r *DropRepository) Record(ctx context.Context, drop *contracts.DropRecord, payload *contracts.SignalCandidate) error {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal dropped candidate: %w", err)
		}
	}

	query := `
		INSERT INTO signals_shadow (
			id, reason, symbol, signal_type, direction, score, detail,
			payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		uuid.NewString(),
		drop.Reason,
		drop.Symbol,
		drop.SignalType,
		string(drop.Direction),
		drop.Score,
		drop.Detail,
		data,
		drop.DroppedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record drop: %w", err)
	}
	return nil
}
