package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/detector"
	"github.com/ayusman/posehold/internal/log"
	"github.com/ayusman/posehold/internal/store"
)

// Reference resolution errors.
var (
	ErrNoReferenceImage = errors.New("pose has no reference image")
	ErrNoBodyInImage    = errors.New("no body detected in reference image")
)

// ReferenceResolver produces the reference landmark set for a pose.
// Resolve may be slow; it runs off the session loop and ctx is cancelled
// when the active pose changes.
type ReferenceResolver interface {
	Resolve(ctx context.Context, pose challenge.PoseDefinition) (*detector.PoseLandmarks, error)
}

// ReferenceCache stores detected reference landmark sets by pose id.
type ReferenceCache interface {
	Get(poseID string) (*store.Reference, error)
	Save(ref *store.Reference) error
}

// CachedResolver looks a pose up in the cache and falls back to detecting
// its still image. Fresh detections are written back to the cache.
type CachedResolver struct {
	cache    ReferenceCache
	detector detector.Detector

	// mu serializes access to the detector, which handles one image at a time.
	mu sync.Mutex
}

// NewCachedResolver returns a resolver. cache may be nil.
func NewCachedResolver(cache ReferenceCache, d detector.Detector) *CachedResolver {
	return &CachedResolver{cache: cache, detector: d}
}

// Resolve returns the reference landmarks for p.
func (r *CachedResolver) Resolve(ctx context.Context, p challenge.PoseDefinition) (*detector.PoseLandmarks, error) {
	if r.cache != nil {
		ref, err := r.cache.Get(p.ID)
		switch {
		case err == nil && ref.ImagePath == p.ImagePath:
			if lm, ok := LandmarksFromReference(ref); ok {
				return lm, nil
			}
			log.Warn("cached reference is incomplete", "pose", p.ID, "landmarks", len(ref.Landmarks))
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Warn("reference cache lookup failed", "pose", p.ID, "err", err)
		}
	}

	if p.ImagePath == "" {
		return nil, fmt.Errorf("%s: %w", p.ID, ErrNoReferenceImage)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	lm, err := detector.DetectImage(r.detector, p.ImagePath)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if lm == nil {
		return nil, fmt.Errorf("%s: %w", p.ImagePath, ErrNoBodyInImage)
	}

	if r.cache != nil {
		if err := r.cache.Save(ReferenceFromLandmarks(p.ID, p.ImagePath, lm)); err != nil {
			log.Warn("failed to cache reference", "pose", p.ID, "err", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return lm, nil
}

// LandmarksFromReference converts a stored reference to a landmark set.
// It reports false unless every landmark index is present exactly once.
func LandmarksFromReference(ref *store.Reference) (*detector.PoseLandmarks, bool) {
	if ref == nil || len(ref.Landmarks) != detector.NumLandmarks {
		return nil, false
	}

	lm := &detector.PoseLandmarks{Score: ref.Score}
	var seen [detector.NumLandmarks]bool
	for _, l := range ref.Landmarks {
		if l.Index < 0 || l.Index >= detector.NumLandmarks || seen[l.Index] {
			return nil, false
		}
		seen[l.Index] = true
		lm.Points[l.Index] = detector.Point3D{X: l.X, Y: l.Y, Z: l.Z}
	}
	return lm, true
}

// ReferenceFromLandmarks converts a landmark set to its stored form.
func ReferenceFromLandmarks(poseID, imagePath string, lm *detector.PoseLandmarks) *store.Reference {
	ref := &store.Reference{
		PoseID:    poseID,
		ImagePath: imagePath,
		Score:     lm.Score,
		Landmarks: make([]store.Landmark, detector.NumLandmarks),
	}
	for i, p := range lm.Points {
		ref.Landmarks[i] = store.Landmark{Index: i, X: p.X, Y: p.Y, Z: p.Z}
	}
	return ref
}
