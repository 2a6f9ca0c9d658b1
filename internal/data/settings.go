package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// settingsRepo stores the single user settings row
type settingsRepo struct {
	db       *sql.DB
	defaults domain.UserSettings
}

// NewSettingsRepo creates a settings repository; defaults apply until settings are saved
func NewSettingsRepo(db *sql.DB, defaults domain.UserSettings) repo.SettingsRepo {
	return &settingsRepo{db: db, defaults: defaults.Normalize()}
}

// Get returns the stored settings, or the defaults when none are saved
func (r *settingsRepo) Get(ctx context.Context) (domain.UserSettings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT auto_analysis_enabled, default_email_recipient, message_threshold, time_threshold
		FROM user_settings WHERE id = 1
	`)

	var s domain.UserSettings
	var enabled int
	err := row.Scan(&enabled, &s.DefaultEmailRecipient, &s.MessageThreshold, &s.TimeThreshold)
	if err == sql.ErrNoRows {
		return r.defaults, nil
	}
	if err != nil {
		return domain.UserSettings{}, fmt.Errorf("failed to query settings: %w", err)
	}
	s.AutoAnalysisEnabled = enabled != 0
	return s.Normalize(), nil
}

// Save normalizes and stores settings
func (r *settingsRepo) Save(ctx context.Context, settings domain.UserSettings) error {
	s := settings.Normalize()
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_settings (id, auto_analysis_enabled, default_email_recipient, message_threshold, time_threshold, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, boolToInt(s.AutoAnalysisEnabled), s.DefaultEmailRecipient, s.MessageThreshold, s.TimeThreshold, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
