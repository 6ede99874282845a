// Package pose scores how closely a detected body pose matches a reference pose.
package pose

import (
	"math"

	"github.com/ayusman/posehold/internal/detector"
)

// minRayLength is the ray length below which a joint angle is treated as degenerate.
const minRayLength = 1e-12

// JointAngle returns the angle at vertex b between rays b→a and b→c, in
// degrees within [0, 180]. Only the x/y plane is used. If either ray has
// zero length the angle is 0.
func JointAngle(a, b, c detector.Point3D) float64 {
	abx, aby := a.X-b.X, a.Y-b.Y
	cbx, cby := c.X-b.X, c.Y-b.Y

	magAB := math.Hypot(abx, aby)
	magCB := math.Hypot(cbx, cby)
	if magAB < minRayLength || magCB < minRayLength {
		return 0
	}

	cos := (abx*cbx + aby*cby) / (magAB * magCB)
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos) * 180 / math.Pi
}
