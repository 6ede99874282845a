package challenge

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrEmptySequence is returned when a sequence has no poses.
var ErrEmptySequence = errors.New("sequence has no poses")

// PoseDefinition is one target pose of a sequence.
type PoseDefinition struct {
	ID         string  `yaml:"id" json:"id"`
	Name       string  `yaml:"name" json:"name"`
	ImagePath  string  `yaml:"image" json:"image_path"`
	Points     int     `yaml:"points" json:"points"`
	Difficulty float64 `yaml:"difficulty" json:"difficulty"`

	// Completed is a display flag; it never blocks another attempt.
	Completed bool `yaml:"-" json:"completed"`
}

// Sequence is the ordered list of poses that makes up one level.
type Sequence []PoseDefinition

// Clone returns a copy of s that shares no memory with it.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Validate checks that s is non-empty, ids are unique, and rewards are positive.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmptySequence
	}

	seen := make(map[string]bool, len(s))
	for i, p := range s {
		if p.ID == "" {
			return fmt.Errorf("pose %d: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("pose %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true

		if p.Points <= 0 {
			return fmt.Errorf("pose %q: points must be positive", p.ID)
		}
		if p.Difficulty <= 0 {
			return fmt.Errorf("pose %q: difficulty must be positive", p.ID)
		}
	}
	return nil
}

// DefaultSequence returns the built-in four-pose beginner sequence.
func DefaultSequence() Sequence {
	return Sequence{
		{ID: "mountain", Name: "Mountain", ImagePath: "poses/mountain.jpg", Points: 100, Difficulty: 1.0},
		{ID: "t-pose", Name: "T-Pose", ImagePath: "poses/t-pose.jpg", Points: 100, Difficulty: 1.0},
		{ID: "upward-salute", Name: "Upward Salute", ImagePath: "poses/upward-salute.jpg", Points: 120, Difficulty: 1.1},
		{ID: "goddess", Name: "Goddess", ImagePath: "poses/goddess.jpg", Points: 150, Difficulty: 1.3},
	}
}

// sequenceFile is the on-disk layout of a sequence definition.
type sequenceFile struct {
	Poses []PoseDefinition `yaml:"poses"`
}

// LoadSequence parses a YAML sequence definition. Relative image paths are
// resolved against baseDir; a missing difficulty defaults to 1.0.
func LoadSequence(r io.Reader, baseDir string) (Sequence, error) {
	var f sequenceFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySequence
		}
		return nil, fmt.Errorf("parse sequence: %w", err)
	}

	seq := Sequence(f.Poses)
	for i := range seq {
		if seq[i].Difficulty == 0 {
			seq[i].Difficulty = 1.0
		}
		if seq[i].Name == "" {
			seq[i].Name = seq[i].ID
		}
		if seq[i].ImagePath != "" && baseDir != "" && !filepath.IsAbs(seq[i].ImagePath) {
			seq[i].ImagePath = filepath.Join(baseDir, seq[i].ImagePath)
		}
	}

	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// LoadSequenceFile reads a YAML sequence definition from path.
func LoadSequenceFile(path string) (Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sequence: %w", err)
	}
	defer f.Close()

	return LoadSequence(f, filepath.Dir(path))
}
