package store

import (
	"database/sql"
	"errors"
	"time"
)

// Pose represents a catalog entry stored in the database.
type Pose struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ImagePath  string    `json:"image_path"`
	Points     int       `json:"points"`
	Difficulty float64   `json:"difficulty"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PoseRepository provides CRUD operations for the pose catalog.
type PoseRepository struct {
	db *sql.DB
}

// Poses returns the pose repository for this store.
func (s *Store) Poses() *PoseRepository {
	return &PoseRepository{db: s.db}
}

const poseColumns = `id, name, image_path, points, difficulty, position, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPose(row scanner) (*Pose, error) {
	p := &Pose{}
	err := row.Scan(&p.ID, &p.Name, &p.ImagePath, &p.Points, &p.Difficulty, &p.Position, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create appends a new pose at the end of the catalog.
func (r *PoseRepository) Create(p *Pose) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	err := r.db.QueryRow(`SELECT COALESCE(MAX(position) + 1, 0) FROM poses`).Scan(&p.Position)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO poses (`+poseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.ImagePath, p.Points, p.Difficulty, p.Position, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a pose by its ID.
func (r *PoseRepository) GetByID(id string) (*Pose, error) {
	p, err := scanPose(r.db.QueryRow(`SELECT `+poseColumns+` FROM poses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List retrieves the catalog in sequence order.
func (r *PoseRepository) List() ([]*Pose, error) {
	rows, err := r.db.Query(`SELECT ` + poseColumns + ` FROM poses ORDER BY position, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var poses []*Pose
	for rows.Next() {
		p, err := scanPose(rows)
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return poses, nil
}

// Update updates an existing pose. The position is left unchanged.
func (r *PoseRepository) Update(p *Pose) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE poses SET name = ?, image_path = ?, points = ?, difficulty = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.ImagePath, p.Points, p.Difficulty, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// Delete removes a pose and its cached reference.
func (r *PoseRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM poses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := affectedOne(result); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM pose_references WHERE pose_id = ?`, id); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceAll replaces the whole catalog with poses, in order, in a single
// transaction. Cached references of poses that remain are kept.
func (r *PoseRepository) ReplaceAll(poses []*Pose) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM poses`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO poses (` + poseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i, p := range poses {
		p.Position = i
		p.CreatedAt = now
		p.UpdatedAt = now
		if _, err := stmt.Exec(p.ID, p.Name, p.ImagePath, p.Points, p.Difficulty, p.Position, p.CreatedAt, p.UpdatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}
