package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Poses table - the ordered pose catalog
		`CREATE TABLE IF NOT EXISTS poses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			image_path TEXT NOT NULL DEFAULT '',
			points INTEGER NOT NULL CHECK(points > 0),
			difficulty REAL NOT NULL DEFAULT 1.0 CHECK(difficulty > 0),
			position INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Reference table - one cached detection per pose id. Not keyed to
		// poses so that poses defined only in a sequence file can be cached.
		`CREATE TABLE IF NOT EXISTS pose_references (
			pose_id TEXT PRIMARY KEY,
			image_path TEXT NOT NULL,
			score REAL NOT NULL DEFAULT 0,
			detected_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Pose landmarks table - the landmark set of each cached reference
		`CREATE TABLE IF NOT EXISTS pose_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pose_id TEXT NOT NULL REFERENCES pose_references(pose_id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		)`,

		// Hooks table - binds session events to plugins
		`CREATE TABLE IF NOT EXISTS hooks (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL,
			plugin_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_poses_position ON poses(position)`,
		`CREATE INDEX IF NOT EXISTS idx_pose_landmarks_pose_id ON pose_landmarks(pose_id)`,
		`CREATE INDEX IF NOT EXISTS idx_hooks_event ON hooks(event)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
