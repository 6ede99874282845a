package app

import (
	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/store"
)

// SequenceFromCatalog builds a sequence from catalog entries in order.
func SequenceFromCatalog(poses []*store.Pose) challenge.Sequence {
	seq := make(challenge.Sequence, 0, len(poses))
	for _, p := range poses {
		seq = append(seq, challenge.PoseDefinition{
			ID:         p.ID,
			Name:       p.Name,
			ImagePath:  p.ImagePath,
			Points:     p.Points,
			Difficulty: p.Difficulty,
		})
	}
	return seq
}

// CatalogFromSequence converts a sequence into catalog entries, positioned
// in sequence order.
func CatalogFromSequence(seq challenge.Sequence) []*store.Pose {
	poses := make([]*store.Pose, 0, len(seq))
	for i, p := range seq {
		poses = append(poses, &store.Pose{
			ID:         p.ID,
			Name:       p.Name,
			ImagePath:  p.ImagePath,
			Points:     p.Points,
			Difficulty: p.Difficulty,
			Position:   i,
		})
	}
	return poses
}
