// Package sqlite implements the game repository over a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yargame/yar/internal/game/domain"
	"github.com/yargame/yar/internal/game/storage"
	"github.com/yargame/yar/internal/game/storage/sqlite/migrations"
	"github.com/yargame/yar/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements game persistence over SQLite.
//
// A single SQLite file backs the whole game state so the loop's batched
// writes share one transaction and visibility boundary.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the game SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateGame inserts a new game record.
func (s *Store) CreateGame(ctx context.Context) (domain.Game, error) {
	if err := ctx.Err(); err != nil {
		return domain.Game{}, err
	}
	createdAt := time.Now().UTC()
	res, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO games (created_at) VALUES (?)", toMillis(createdAt))
	if err != nil {
		return domain.Game{}, fmt.Errorf("create game: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Game{}, fmt.Errorf("game id: %w", err)
	}
	return domain.Game{ID: id, CreatedAt: fromMillis(toMillis(createdAt))}, nil
}

// GetGame retrieves a game by id.
func (s *Store) GetGame(ctx context.Context, id int64) (domain.Game, error) {
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT created_at FROM games WHERE id = ?", id).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Game{}, storage.ErrNotFound
		}
		return domain.Game{}, fmt.Errorf("get game %d: %w", id, err)
	}
	return domain.Game{ID: id, CreatedAt: fromMillis(createdAt)}, nil
}

// LatestGame returns the most recently created game.
func (s *Store) LatestGame(ctx context.Context) (domain.Game, error) {
	var g domain.Game
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT id, created_at FROM games ORDER BY id DESC LIMIT 1").Scan(&g.ID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Game{}, storage.ErrNotFound
		}
		return domain.Game{}, fmt.Errorf("latest game: %w", err)
	}
	g.CreatedAt = fromMillis(createdAt)
	return g, nil
}

// CreatePlayer inserts one side of a game.
func (s *Store) CreatePlayer(ctx context.Context, p domain.Player) (domain.Player, error) {
	if !p.PlayerID.Valid() {
		return domain.Player{}, fmt.Errorf("invalid player id %d", p.PlayerID)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO players (game_id, player_id, bandwidth, score, bandwidth_used, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		p.GameID, int(p.PlayerID), p.Bandwidth, p.Score, p.BandwidthUsed, toMillis(p.CreatedAt))
	if err != nil {
		return domain.Player{}, fmt.Errorf("create player %d: %w", p.PlayerID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Player{}, fmt.Errorf("player row id: %w", err)
	}
	p.ID = id
	p.CreatedAt = fromMillis(toMillis(p.CreatedAt))
	return p, nil
}

// ListPlayers returns a game's players ordered by player id.
func (s *Store) ListPlayers(ctx context.Context, gameID int64) ([]domain.Player, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, game_id, player_id, bandwidth, score, bandwidth_used, created_at
FROM players WHERE game_id = ? ORDER BY player_id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		var playerID int
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.GameID, &playerID, &p.Bandwidth, &p.Score, &p.BandwidthUsed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.PlayerID = domain.PlayerID(playerID)
		p.CreatedAt = fromMillis(createdAt)
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

// SavePlayer writes a player's mutable fields.
func (s *Store) SavePlayer(ctx context.Context, p domain.Player) error {
	res, err := s.sqlDB.ExecContext(ctx,
		"UPDATE players SET score = ?, bandwidth_used = ? WHERE id = ?",
		p.Score, p.BandwidthUsed, p.ID)
	if err != nil {
		return fmt.Errorf("save player %d: %w", p.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save player %d: %w", p.ID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CreateTerritory inserts a contested resource.
func (s *Store) CreateTerritory(ctx context.Context, t domain.Territory) (domain.Territory, error) {
	if t.Threshold <= 0 {
		return domain.Territory{}, fmt.Errorf("territory threshold must be positive, got %d", t.Threshold)
	}
	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO territories (game_id, socket_path, score_path, p1_progress, p2_progress, threshold, net_score)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.GameID, t.SocketPath, t.ScorePath, t.P1Progress, t.P2Progress, t.Threshold, t.NetScore)
	if err != nil {
		return domain.Territory{}, fmt.Errorf("create territory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Territory{}, fmt.Errorf("territory row id: %w", err)
	}
	t.ID = id
	return t, nil
}

// ListTerritories returns a game's territories in creation order.
func (s *Store) ListTerritories(ctx context.Context, gameID int64) ([]domain.Territory, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, game_id, socket_path, score_path, p1_progress, p2_progress, threshold, net_score
FROM territories WHERE game_id = ? ORDER BY id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list territories: %w", err)
	}
	defer rows.Close()

	var territories []domain.Territory
	for rows.Next() {
		var t domain.Territory
		if err := rows.Scan(&t.ID, &t.GameID, &t.SocketPath, &t.ScorePath, &t.P1Progress, &t.P2Progress, &t.Threshold, &t.NetScore); err != nil {
			return nil, fmt.Errorf("scan territory: %w", err)
		}
		territories = append(territories, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate territories: %w", err)
	}
	return territories, nil
}

// SaveTerritory writes a territory's mutable fields.
func (s *Store) SaveTerritory(ctx context.Context, t domain.Territory) error {
	res, err := s.sqlDB.ExecContext(ctx,
		"UPDATE territories SET p1_progress = ?, p2_progress = ?, net_score = ? WHERE id = ?",
		t.P1Progress, t.P2Progress, t.NetScore, t.ID)
	if err != nil {
		return fmt.Errorf("save territory %d: %w", t.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save territory %d: %w", t.ID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ storage.Store = (*Store)(nil)
