package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Hook binds a session event to a plugin.
type Hook struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	PluginName string          `json:"plugin_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
}

// HookRepository provides CRUD operations for hook bindings.
type HookRepository struct {
	db *sql.DB
}

// Hooks returns the hook repository for this store.
func (s *Store) Hooks() *HookRepository {
	return &HookRepository{db: s.db}
}

const hookColumns = `id, event, plugin_name, config, enabled, created_at`

func scanHook(row scanner) (*Hook, error) {
	h := &Hook{}
	var config string
	if err := row.Scan(&h.ID, &h.Event, &h.PluginName, &config, &h.Enabled, &h.CreatedAt); err != nil {
		return nil, err
	}
	h.Config = json.RawMessage(config)
	return h, nil
}

func configOrEmpty(c json.RawMessage) string {
	if len(c) == 0 {
		return "{}"
	}
	return string(c)
}

// Create inserts a new hook binding.
func (r *HookRepository) Create(h *Hook) error {
	h.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO hooks (`+hookColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.Event, h.PluginName, configOrEmpty(h.Config), h.Enabled, h.CreatedAt,
	)
	return err
}

// GetByID retrieves a hook binding by its ID.
func (r *HookRepository) GetByID(id string) (*Hook, error) {
	h, err := scanHook(r.db.QueryRow(`SELECT `+hookColumns+` FROM hooks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

// List retrieves all hook bindings.
func (r *HookRepository) List() ([]*Hook, error) {
	return r.query(`SELECT ` + hookColumns + ` FROM hooks ORDER BY created_at`)
}

// ListEnabled retrieves the enabled bindings for an event.
func (r *HookRepository) ListEnabled(event string) ([]*Hook, error) {
	return r.query(`SELECT `+hookColumns+` FROM hooks WHERE event = ? AND enabled = 1 ORDER BY created_at`, event)
}

func (r *HookRepository) query(q string, args ...any) ([]*Hook, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hooks []*Hook
	for rows.Next() {
		h, err := scanHook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return hooks, nil
}

// Update updates an existing hook binding.
func (r *HookRepository) Update(h *Hook) error {
	result, err := r.db.Exec(
		`UPDATE hooks SET event = ?, plugin_name = ?, config = ?, enabled = ? WHERE id = ?`,
		h.Event, h.PluginName, configOrEmpty(h.Config), h.Enabled, h.ID,
	)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// Delete removes a hook binding by its ID.
func (r *HookRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM hooks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}
