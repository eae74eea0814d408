package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Setting is one stored configuration row. Exactly one of the value slots is
// expected to be populated.
type Setting struct {
	Key         string          `json:"key"`
	IntValue    *int64          `json:"int_value,omitempty"`
	TextValue   *string         `json:"text_value,omitempty"`
	JSONValue   json.RawMessage `json:"json_value,omitempty"`
	Description string          `json:"description,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Repository persists settings in radar.settings.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a settings repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get returns one setting, or pgx.ErrNoRows when absent.
func (r *Repository) Get(ctx context.Context, key string) (*Setting, error) {
	query := `
		SELECT key, int_value, text_value, json_value, COALESCE(description, ''), updated_at
		FROM radar.settings
		WHERE key = $1
	`

	var s Setting
	err := r.db.QueryRow(ctx, query, key).Scan(
		&s.Key, &s.IntValue, &s.TextValue, &s.JSONValue, &s.Description, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all settings ordered by key.
func (r *Repository) List(ctx context.Context) ([]Setting, error) {
	query := `
		SELECT key, int_value, text_value, json_value, COALESCE(description, ''), updated_at
		FROM radar.settings
		ORDER BY key
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.IntValue, &s.TextValue, &s.JSONValue, &s.Description, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, s)
	}

	return out, rows.Err()
}

// Upsert writes a setting, replacing all value slots.
func (r *Repository) Upsert(ctx context.Context, s *Setting) error {
	query := `
		INSERT INTO radar.settings (key, int_value, text_value, json_value, description, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (key) DO UPDATE SET
			int_value = EXCLUDED.int_value,
			text_value = EXCLUDED.text_value,
			json_value = EXCLUDED.json_value,
			description = EXCLUDED.description,
			updated_at = NOW()
	`

	_, err := r.db.Exec(ctx, query, s.Key, s.IntValue, s.TextValue, s.JSONValue, s.Description)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", s.Key, err)
	}
	return nil
}

// ErrNoRows re-exported so callers do not import pgx for one sentinel.
var ErrNoRows = pgx.ErrNoRows
