package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"taskgate/internal/config"
)

// DefaultOrgID keys the settings blob for a single-org workspace.
const DefaultOrgID = "default"

// GetSettings loads the org's settings blob.
func (r Repo) GetSettings(ctx context.Context, orgID string) (*config.Settings, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT settings_json FROM settings WHERE org_id=?`, orgID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s config.Settings
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, err
	}
	return &s, s.Validate()
}

// UpsertSettings validates and stores the whole settings blob. Profile
// mutation is replace-by-role-key at this layer, never field patch.
func (r Repo) UpsertSettings(ctx context.Context, orgID string, s *config.Settings) error {
	if s == nil {
		return fmt.Errorf("settings nil")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.DB.ExecContext(ctx, `INSERT INTO settings(org_id,settings_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(org_id) DO UPDATE SET settings_json=excluded.settings_json, updated_at=excluded.updated_at`, orgID, string(payload), now, now)
	return err
}
