package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// minOutcomeSamples is the smallest outcome count a family needs before
// its hit rate is trusted for calibration.
const minOutcomeSamples = 3

// AccuracyRepository aggregates resolved signal outcomes into hit rates
// per signal family.
type AccuracyRepository struct {
	pool *pgxpool.Pool
}

// NewAccuracyRepository creates a new accuracy repository.
func NewAccuracyRepository(pool *pgxpool.Pool) *AccuracyRepository {
	return &AccuracyRepository{pool: pool}
}

// Rates returns the historical hit rate keyed by "signal_type:DIRECTION"
// plus a per-type aggregate under the bare signal type.
func (r *AccuracyRepository) Rates(ctx context.Context) (map[string]float64, error) {
	query := `
		SELECT s.signal_type,
		       s.direction,
		       COUNT(*) AS total,
		       SUM(CASE WHEN o.correct_at_1h THEN 1 ELSE 0 END) AS correct
		FROM signal_outcomes o
		JOIN signals s ON s.id = o.signal_id
		GROUP BY s.signal_type, s.direction
		HAVING COUNT(*) >= $1
	`

	rows, err := r.pool.Query(ctx, query, minOutcomeSamples)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcome accuracy: %w", err)
	}
	defer rows.Close()

	rates := make(map[string]float64)
	typeTotals := make(map[string]int64)
	typeCorrect := make(map[string]int64)

	for rows.Next() {
		var (
			signalType string
			direction  string
			total      int64
			correct    int64
		)
		if err := rows.Scan(&signalType, &direction, &total, &correct); err != nil {
			return nil, fmt.Errorf("failed to scan accuracy row: %w", err)
		}

		rates[fmt.Sprintf("%s:%s", signalType, direction)] = float64(correct) / float64(total)
		typeTotals[signalType] += total
		typeCorrect[signalType] += correct
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for signalType, total := range typeTotals {
		if total > 0 {
			rates[signalType] = float64(typeCorrect[signalType]) / float64(total)
		}
	}
	return rates, nil
}
