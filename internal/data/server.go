package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/channelpulse/channel-pulse/internal/biz/domain"
	"github.com/channelpulse/channel-pulse/internal/biz/repo"
)

// serverRepo implements the server and channel catalog
type serverRepo struct {
	db *sql.DB
}

// NewServerRepo creates a new server repository
func NewServerRepo(db *sql.DB) repo.ServerRepo {
	return &serverRepo{db: db}
}

// UpsertServer inserts or renames a server, keeping its last sync time
func (r *serverRepo) UpsertServer(ctx context.Context, s *domain.Server) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO servers (id, name, platform, last_synced)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, platform = excluded.platform
	`, s.ID, s.Name, s.Platform, unixOrZero(s.LastSynced))
	if err != nil {
		return fmt.Errorf("failed to upsert server: %w", err)
	}
	return nil
}

// UpsertChannel inserts a channel or renames it; the active flag is only set on insert
func (r *serverRepo) UpsertChannel(ctx context.Context, ch *domain.Channel) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO channels (id, server_id, name, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET server_id = excluded.server_id, name = excluded.name
	`, ch.ID, ch.ServerID, ch.Name, boolToInt(ch.Active))
	if err != nil {
		return fmt.Errorf("failed to upsert channel: %w", err)
	}
	return nil
}

// GetServer gets a server, nil if unknown
func (r *serverRepo) GetServer(ctx context.Context, serverID string) (*domain.Server, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, platform, last_synced FROM servers WHERE id = ?
	`, serverID)

	var s domain.Server
	var lastSynced int64
	err := row.Scan(&s.ID, &s.Name, &s.Platform, &lastSynced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query server: %w", err)
	}
	s.LastSynced = timeOrNil(lastSynced)
	return &s, nil
}

// GetChannel gets a channel, nil if unknown
func (r *serverRepo) GetChannel(ctx context.Context, channelID string) (*domain.Channel, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, server_id, name, active FROM channels WHERE id = ?
	`, channelID)

	var ch domain.Channel
	var active int
	err := row.Scan(&ch.ID, &ch.ServerID, &ch.Name, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query channel: %w", err)
	}
	ch.Active = active != 0
	return &ch, nil
}

// ListServers lists all known servers
func (r *serverRepo) ListServers(ctx context.Context) ([]*domain.Server, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, platform, last_synced FROM servers ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}
	defer rows.Close()

	var servers []*domain.Server
	for rows.Next() {
		var s domain.Server
		var lastSynced int64
		if err := rows.Scan(&s.ID, &s.Name, &s.Platform, &lastSynced); err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		s.LastSynced = timeOrNil(lastSynced)
		servers = append(servers, &s)
	}
	return servers, rows.Err()
}

// ListChannels lists the channels of a server
func (r *serverRepo) ListChannels(ctx context.Context, serverID string) ([]domain.Channel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, server_id, name, active FROM channels WHERE server_id = ? ORDER BY name
	`, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		var active int
		if err := rows.Scan(&ch.ID, &ch.ServerID, &ch.Name, &active); err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		ch.Active = active != 0
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// UpdateLastSynced records the time of the latest analysis run
func (r *serverRepo) UpdateLastSynced(ctx context.Context, serverID string, t time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE servers SET last_synced = ? WHERE id = ?`, t.UnixMilli(), serverID)
	if err != nil {
		return fmt.Errorf("failed to update last synced: %w", err)
	}
	return nil
}

// SetChannelActive enables or disables monitoring of a channel
func (r *serverRepo) SetChannelActive(ctx context.Context, channelID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE channels SET active = ? WHERE id = ?`, boolToInt(active), channelID)
	if err != nil {
		return fmt.Errorf("failed to set channel active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrChannelNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
