package db

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"emofuse/internal/domain"
)

var ErrNoResult = errors.New("no fusion result for subject")

// Store is the durable observation store and result sink. Observations are
// append-only; results are idempotent upserts keyed by (subject_id, ts).
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			id BIGSERIAL PRIMARY KEY,
			subject_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			labels JSONB NOT NULL DEFAULT '[]'::jsonb,
			primary_label TEXT NOT NULL DEFAULT '',
			primary_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_observations_subject_session_ts ON observations(subject_id, session_id, ts);`,
		`CREATE TABLE IF NOT EXISTS fusion_results (
			subject_id TEXT NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			session_id TEXT NOT NULL,
			state JSONB NOT NULL,
			recommendations JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (subject_id, ts)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fusion_results_subject_created ON fusion_results(subject_id, created_at);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// InsertObservation appends one channel reading. Writes normally come from
// the upstream channel analyzers; the server exposes this through the
// ingest endpoint so they share a deployment.
func (s *Store) InsertObservation(ctx context.Context, obs domain.EmotionObservation) error {
	labelsJSON, err := json.Marshal(obs.Labels)
	if err != nil {
		return err
	}
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO observations(subject_id, session_id, channel, ts, labels, primary_label, primary_confidence)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
	`, obs.SubjectID, obs.SessionID, obs.Channel, obs.Timestamp, string(labelsJSON), obs.PrimaryLabel, obs.PrimaryConfidence)
	return err
}

// FetchObservations returns the window in non-decreasing timestamp order.
// Malformed fields are clamped or defaulted here, once, so the pipeline
// never re-checks them.
func (s *Store) FetchObservations(ctx context.Context, subjectID, sessionID string, from, to time.Time) ([]domain.EmotionObservation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT subject_id, session_id, channel, ts, labels, primary_label, primary_confidence
		FROM observations
		WHERE subject_id=$1 AND session_id=$2 AND ts >= $3 AND ts <= $4
		ORDER BY ts ASC, id ASC
	`, subjectID, sessionID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EmotionObservation
	for rows.Next() {
		var obs domain.EmotionObservation
		var labelsRaw []byte
		if err := rows.Scan(&obs.SubjectID, &obs.SessionID, &obs.Channel, &obs.Timestamp, &labelsRaw, &obs.PrimaryLabel, &obs.PrimaryConfidence); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(labelsRaw, &obs.Labels); err != nil {
			obs.Labels = nil
		}
		out = append(out, normalizeObservation(obs))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveResult persists one fusion pass. Last successful write for a
// (subject_id, ts) key wins, which makes concurrent same-session passes and
// retries safe.
func (s *Store) SaveResult(ctx context.Context, state domain.UnifiedState, recs domain.RecommendationSet) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return err
	}
	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO fusion_results(subject_id, ts, session_id, state, recommendations)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb)
		ON CONFLICT (subject_id, ts)
		DO UPDATE SET session_id=EXCLUDED.session_id, state=EXCLUDED.state, recommendations=EXCLUDED.recommendations;
	`, state.SubjectID, state.Timestamp, state.SessionID, string(stateJSON), string(recsJSON))
	return err
}

// LatestResult returns the most recent persisted state for a subject.
func (s *Store) LatestResult(ctx context.Context, subjectID string) (domain.UnifiedState, domain.RecommendationSet, error) {
	var stateRaw, recsRaw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT state, recommendations
		FROM fusion_results
		WHERE subject_id=$1
		ORDER BY ts DESC
		LIMIT 1
	`, subjectID).Scan(&stateRaw, &recsRaw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UnifiedState{}, domain.RecommendationSet{}, ErrNoResult
	}
	if err != nil {
		return domain.UnifiedState{}, domain.RecommendationSet{}, err
	}

	var state domain.UnifiedState
	var recs domain.RecommendationSet
	if err := json.Unmarshal(stateRaw, &state); err != nil {
		return domain.UnifiedState{}, domain.RecommendationSet{}, err
	}
	if err := json.Unmarshal(recsRaw, &recs); err != nil {
		return domain.UnifiedState{}, domain.RecommendationSet{}, err
	}
	return state, recs, nil
}

func normalizeObservation(obs domain.EmotionObservation) domain.EmotionObservation {
	if !domain.ValidChannel(obs.Channel) {
		obs.Channel = domain.ChannelText
	}
	if strings.TrimSpace(obs.PrimaryLabel) == "" && len(obs.Labels) > 0 {
		// Derive the convenience fields from the label list when absent.
		best := obs.Labels[0]
		for _, l := range obs.Labels[1:] {
			if l.Confidence > best.Confidence {
				best = l
			}
		}
		obs.PrimaryLabel = best.Name
		if obs.PrimaryConfidence == 0 {
			obs.PrimaryConfidence = best.Confidence
		}
	}
	obs.PrimaryLabel = domain.CanonicalLabel(obs.PrimaryLabel)
	obs.PrimaryConfidence = clamp01(obs.PrimaryConfidence)
	return obs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
