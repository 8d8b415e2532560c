package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siftlabs/sift/internal/contracts"
)

// SignalRepository implements contracts.SignalRepository on postgres.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a new signal repository.
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

const signalColumns = `
	id, signal_type, symbol, direction, conviction, time_horizon,
	thesis, headline, score, raw_score, score_ceiling, score_source,
	tier, quality, convergence, fingerprint, weight_tier, freshness,
	forced_persist, price_at_signal, payload, research,
	created_at, expires_at
`

// Insert stores a scored signal. The full candidate and the research
// bundle are kept as jsonb alongside the indexed columns.
func (r *SignalRepository) Insert(ctx context.Context, signal *contracts.ScoredSignal) error {
	payload, err := json.Marshal(signal.Candidate)
	if err != nil {
		return fmt.Errorf("failed to marshal signal payload: %w", err)
	}

	var research []byte
	if signal.Research != nil {
		research, err = json.Marshal(signal.Research)
		if err != nil {
			return fmt.Errorf("failed to marshal research bundle: %w", err)
		}
	}

	query := `
		INSERT INTO signals (
			id, signal_type, symbol, direction, conviction, time_horizon,
			thesis, headline, score, raw_score, score_ceiling, score_source,
			tier, quality, convergence, fingerprint, weight_tier, freshness,
			forced_persist, price_at_signal, payload, research,
			created_at, expires_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
	`

	_, err = r.pool.Exec(ctx, query,
		signal.ID,
		signal.Candidate.SignalType,
		signal.Candidate.PrimarySymbol(),
		string(signal.Candidate.Direction),
		signal.Candidate.Conviction,
		string(signal.Candidate.TimeHorizon),
		signal.Candidate.Thesis,
		signal.Candidate.Headline,
		signal.Score,
		signal.RawScore,
		signal.ScoreCeiling,
		signal.ScoreSource,
		signal.Tier,
		signal.Quality,
		signal.Convergence,
		signal.Fingerprint,
		signal.WeightTier,
		signal.Freshness,
		signal.ForcedPersist,
		signal.PriceAtSignal,
		payload,
		research,
		signal.CreatedAt,
		signal.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert signal: %w", err)
	}
	return nil
}

// FindSameType returns the newest unexpired signal with the same
// primary symbol and type, or nil.
func (r *SignalRepository) FindSameType(ctx context.Context, symbol, signalType string, since time.Time) (*contracts.ScoredSignal, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM signals
		WHERE symbol = $1 AND signal_type = $2 AND created_at >= $3
		  AND expires_at > now()
		ORDER BY created_at DESC
		LIMIT 1
	`, signalColumns)

	row := r.pool.QueryRow(ctx, query, symbol, signalType, since)
	signal, err := scanSignal(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query same-type signal: %w", err)
	}
	return signal, nil
}

// RecentBySymbol returns recent signals for a symbol, newest first.
func (r *SignalRepository) RecentBySymbol(ctx context.Context, symbol string, since time.Time, limit int) ([]*contracts.ScoredSignal, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM signals
		WHERE symbol = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, signalColumns)

	rows, err := r.pool.Query(ctx, query, symbol, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// MergeInto raises the stored score and conviction of an existing
// signal after a same-type merge and replaces the payload's sources
// with the merged union.
func (r *SignalRepository) MergeInto(ctx context.Context, id string, score int, conviction float64, sources []contracts.SourceRef) error {
	if len(sources) == 0 {
		query := `
			UPDATE signals
			SET score = GREATEST(score, $2),
			    conviction = GREATEST(conviction, $3),
			    merged_count = COALESCE(merged_count, 0) + 1,
			    updated_at = now()
			WHERE id = $1
		`
		if _, err := r.pool.Exec(ctx, query, id, score, conviction); err != nil {
			return fmt.Errorf("failed to merge into signal: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal merged sources: %w", err)
	}

	query := `
		UPDATE signals
		SET score = GREATEST(score, $2),
		    conviction = GREATEST(conviction, $3),
		    payload = jsonb_set(payload, '{sources}', $4::jsonb),
		    merged_count = COALESCE(merged_count, 0) + 1,
		    updated_at = now()
		WHERE id = $1
	`

	if _, err := r.pool.Exec(ctx, query, id, score, conviction, data); err != nil {
		return fmt.Errorf("failed to merge into signal: %w", err)
	}
	return nil
}

// RecentDirections returns directions of signals created since the cutoff.
func (r *SignalRepository) RecentDirections(ctx context.Context, since time.Time) ([]contracts.Direction, error) {
	query := `
		SELECT direction
		FROM signals
		WHERE created_at >= $1 AND weight_tier IS DISTINCT FROM 'shadow_low_priority'
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent directions: %w", err)
	}
	defer rows.Close()

	var out []contracts.Direction
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan direction: %w", err)
		}
		out = append(out, contracts.Direction(d))
	}
	return out, rows.Err()
}

// NearMiss returns recent signals whose evidence base is thin enough to
// warrant a corroboration pass: borderline independence, a single
// platform, or a top tier resting on hard-control exemptions.
func (r *SignalRepository) NearMiss(ctx context.Context, since time.Time, limit int) ([]*contracts.ScoredSignal, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM signals
		WHERE created_at >= $1
		  AND (
			((research->'evidence'->>'independence_score')::float >= 0.35
			 AND (research->'evidence'->>'independence_score')::float < 0.45)
			OR (SELECT COUNT(DISTINCT src->>'platform')
			    FROM jsonb_array_elements(COALESCE(payload->'sources', '[]'::jsonb)) src) <= 1
			OR tier IN ('CRITICAL', 'HIGH')
		  )
		ORDER BY created_at DESC
		LIMIT $2
	`, signalColumns)

	rows, err := r.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query near-miss signals: %w", err)
	}
	defer rows.Close()

	return scanSignals(rows)
}

// UpdateResearch replaces the stored research bundle.
func (r *SignalRepository) UpdateResearch(ctx context.Context, id string, research *contracts.ResearchBundle) error {
	data, err := json.Marshal(research)
	if err != nil {
		return fmt.Errorf("failed to marshal research bundle: %w", err)
	}

	query := `UPDATE signals SET research = $2, updated_at = now() WHERE id = $1`
	_, err = r.pool.Exec(ctx, query, id, data)
	if err != nil {
		return fmt.Errorf("failed to update research bundle: %w", err)
	}
	return nil
}

func scanSignal(row pgx.Row) (*contracts.ScoredSignal, error) {
	var (
		s          contracts.ScoredSignal
		signalType string
		symbol     string
		direction  string
		conviction float64
		horizon    string
		thesis     string
		headline   string
		payload    []byte
		research   []byte
	)

	err := row.Scan(
		&s.ID, &signalType, &symbol, &direction, &conviction, &horizon,
		&thesis, &headline, &s.Score, &s.RawScore, &s.ScoreCeiling, &s.ScoreSource,
		&s.Tier, &s.Quality, &s.Convergence, &s.Fingerprint, &s.WeightTier, &s.Freshness,
		&s.ForcedPersist, &s.PriceAtSignal, &payload, &research,
		&s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &s.Candidate); err != nil {
			return nil, fmt.Errorf("failed to unmarshal signal payload: %w", err)
		}
	}
	// Indexed columns win over the stored payload after merges.
	s.Candidate.SignalType = signalType
	s.Candidate.Direction = contracts.Direction(direction)
	s.Candidate.Conviction = conviction
	s.Candidate.TimeHorizon = contracts.TimeHorizon(horizon)
	s.Candidate.Thesis = thesis
	s.Candidate.Headline = headline

	if len(research) > 0 {
		s.Research = &contracts.ResearchBundle{}
		if err := json.Unmarshal(research, s.Research); err != nil {
			return nil, fmt.Errorf("failed to unmarshal research bundle: %w", err)
		}
	}
	return &s, nil
}

func scanSignals(rows pgx.Rows) ([]*contracts.ScoredSignal, error) {
	var out []*contracts.ScoredSignal
	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
