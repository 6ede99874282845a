package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// DetectImage loads a still image from disk and runs d on it.
// Returns nil (and no error) when the image contains no detectable body.
func DetectImage(d Detector, path string) (*PoseLandmarks, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("read image %s: empty or unreadable", path)
	}

	pose, err := d.Detect(&img)
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", path, err)
	}
	return pose, nil
}
