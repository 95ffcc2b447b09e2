package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/devricklin/feishu-assistant/internal/biz/domain"
	"github.com/devricklin/feishu-assistant/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// DefaultMaxTurns is the number of recent turns sent with every completion
const DefaultMaxTurns = 10

// HistoryConfig contains history store configuration
type HistoryConfig struct {
	Path         string // SQLite file
	MaxTurns     int    // Turns kept per speaker, 0 = DefaultMaxTurns
	SystemPrompt string // Used when a speaker has no override
}

// historyRepo implements the History repository
type historyRepo struct {
	db           *sql.DB
	maxTurns     int
	systemPrompt string
}

// NewHistoryRepo creates a new History repository
func NewHistoryRepo(cfg HistoryConfig) (repo.HistoryRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			speaker TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_turns_speaker ON turns(speaker, id);
		CREATE INDEX IF NOT EXISTS idx_turns_created_at ON turns(created_at);
		CREATE TABLE IF NOT EXISTS prompts (
			speaker TEXT PRIMARY KEY,
			prompt TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	return &historyRepo{db: db, maxTurns: maxTurns, systemPrompt: cfg.SystemPrompt}, nil
}

// AppendUser appends a user turn
func (r *historyRepo) AppendUser(ctx context.Context, speaker, text string) error {
	return r.append(ctx, speaker, domain.RoleUser, text)
}

// AppendAssistant appends an assistant turn
func (r *historyRepo) AppendAssistant(ctx context.Context, speaker, text string) error {
	return r.append(ctx, speaker, domain.RoleAssistant, text)
}

func (r *historyRepo) append(ctx context.Context, speaker string, role domain.Role, text string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (speaker, role, content, created_at) VALUES (?, ?, ?, ?)
	`, speaker, string(role), text, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	// Keep only the most recent turns
	_, err = tx.ExecContext(ctx, `
		DELETE FROM turns WHERE speaker = ? AND id NOT IN (
			SELECT id FROM turns WHERE speaker = ? ORDER BY id DESC LIMIT ?
		)
	`, speaker, speaker, r.maxTurns)
	if err != nil {
		return fmt.Errorf("failed to trim turns: %w", err)
	}

	return tx.Commit()
}

// GetHistory returns the system prompt followed by the most recent turns
func (r *historyRepo) GetHistory(ctx context.Context, speaker string) ([]domain.Turn, error) {
	prompt, err := r.prompt(ctx, speaker)
	if err != nil {
		return nil, err
	}
	turns := []domain.Turn{{Role: domain.RoleSystem, Content: prompt}}

	rows, err := r.db.QueryContext(ctx, `
		SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at FROM turns
			WHERE speaker = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC
	`, speaker, r.maxTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content string
		var createdAt int64
		if err := rows.Scan(&role, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, domain.Turn{
			Role:      domain.Role(role),
			Content:   content,
			CreatedAt: time.UnixMilli(createdAt),
		})
	}
	return turns, rows.Err()
}

func (r *historyRepo) prompt(ctx context.Context, speaker string) (string, error) {
	var prompt string
	err := r.db.QueryRowContext(ctx, `SELECT prompt FROM prompts WHERE speaker = ?`, speaker).Scan(&prompt)
	if err == sql.ErrNoRows {
		return r.systemPrompt, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query prompt: %w", err)
	}
	return prompt, nil
}

// SetPrompt stores a per-speaker system prompt override, empty clears it
func (r *historyRepo) SetPrompt(ctx context.Context, speaker, prompt string) error {
	if prompt == "" {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM prompts WHERE speaker = ?`, speaker); err != nil {
			return fmt.Errorf("failed to clear prompt: %w", err)
		}
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO prompts (speaker, prompt, updated_at) VALUES (?, ?, ?)
	`, speaker, prompt, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save prompt: %w", err)
	}
	return nil
}

// Clear removes all stored turns of the speaker
// The prompt override is kept.
func (r *historyRepo) Clear(ctx context.Context, speaker string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM turns WHERE speaker = ?`, speaker); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	return nil
}

// CleanupStale removes turns created before the given time
func (r *historyRepo) CleanupStale(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM turns WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup stale turns: %w", err)
	}
	return result.RowsAffected()
}

// Speakers lists speakers with stored turns or a prompt override
func (r *historyRepo) Speakers(ctx context.Context) ([]repo.SpeakerStat, error) {
	stats := make(map[string]*repo.SpeakerStat)
	get := func(speaker string) *repo.SpeakerStat {
		s, ok := stats[speaker]
		if !ok {
			s = &repo.SpeakerStat{Speaker: speaker}
			stats[speaker] = s
		}
		return s
	}

	if err := r.turnStats(ctx, get); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT speaker, updated_at FROM prompts`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var speaker string
		var updatedAt int64
		if err := rows.Scan(&speaker, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		s := get(speaker)
		s.HasPrompt = true
		if t := time.UnixMilli(updatedAt); t.After(s.LastActive) {
			s.LastActive = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	result := make([]repo.SpeakerStat, 0, len(stats))
	for _, s := range stats {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActive.After(result[j].LastActive)
	})
	return result, nil
}

// Close closes the database
func (r *historyRepo) Close() error {
	return r.db.Close()
}

// turnStats fills turn counts and last activity per speaker
func (r *historyRepo) turnStats(ctx context.Context, get func(string) *repo.SpeakerStat) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT speaker, COUNT(*), MAX(created_at) FROM turns GROUP BY speaker
	`)
	if err != nil {
		return fmt.Errorf("failed to list speakers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var speaker string
		var count int
		var lastActive int64
		if err := rows.Scan(&speaker, &count, &lastActive); err != nil {
			return fmt.Errorf("failed to scan speaker: %w", err)
		}
		s := get(speaker)
		s.TurnCount = count
		s.LastActive = time.UnixMilli(lastActive)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list speakers: %w", err)
	}
	return nil
}
