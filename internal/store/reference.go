package store

import (
	"database/sql"
	"errors"
	"time"
)

// Landmark is one stored landmark of a reference pose.
type Landmark struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Reference is a cached detection of a pose's reference image.
type Reference struct {
	PoseID     string     `json:"pose_id"`
	ImagePath  string     `json:"image_path"`
	Score      float64    `json:"score"`
	Landmarks  []Landmark `json:"landmarks"`
	DetectedAt time.Time  `json:"detected_at"`
}

// ReferenceRepository caches reference landmark sets by pose id.
type ReferenceRepository struct {
	db *sql.DB
}

// References returns the reference repository for this store.
func (s *Store) References() *ReferenceRepository {
	return &ReferenceRepository{db: s.db}
}

// Get retrieves the cached reference for a pose.
func (r *ReferenceRepository) Get(poseID string) (*Reference, error) {
	ref := &Reference{}
	err := r.db.QueryRow(
		`SELECT pose_id, image_path, score, detected_at FROM pose_references WHERE pose_id = ?`,
		poseID,
	).Scan(&ref.PoseID, &ref.ImagePath, &ref.Score, &ref.DetectedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT landmark_index, x, y, z FROM pose_landmarks
		 WHERE pose_id = ?
		 ORDER BY landmark_index`,
		poseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.Index, &l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		ref.Landmarks = append(ref.Landmarks, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ref, nil
}

// Save stores ref, replacing any previous reference for the same pose.
func (r *ReferenceRepository) Save(ref *Reference) error {
	if ref.DetectedAt.IsZero() {
		ref.DetectedAt = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pose_references WHERE pose_id = ?`, ref.PoseID); err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO pose_references (pose_id, image_path, score, detected_at) VALUES (?, ?, ?, ?)`,
		ref.PoseID, ref.ImagePath, ref.Score, ref.DetectedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_landmarks (pose_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range ref.Landmarks {
		if _, err := stmt.Exec(ref.PoseID, l.Index, l.X, l.Y, l.Z); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes the cached reference for a pose.
func (r *ReferenceRepository) Delete(poseID string) error {
	result, err := r.db.Exec(`DELETE FROM pose_references WHERE pose_id = ?`, poseID)
	if err != nil {
		return err
	}
	return affectedOne(result)
}
