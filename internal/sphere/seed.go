// Public domain.

package sphere

import (
	"math"

	"github.com/soniakeys/unit"
)

// SeedRadius is the half size of a new container, in Dec.
var SeedRadius = unit.AngleFromSec(1)

// Seed returns the box around a single observation.  The half width in RA is
// SeedRadius / cos(dec) so the box covers the same angle on the sky at any
// Dec.  Near the poles the width is capped at a half turn.
func Seed(ra, dec float64) Rect {
	h := SeedRadius.Deg()
	w := 180.
	if c := unit.AngleFromDeg(dec).Cos(); c > 0 {
		w = math.Min(h/c, w)
	}
	return Rect{ra - w, ra + w, dec - h, dec + h}
}

// Wrap brings a probe point back onto the sphere.  A Dec past a pole is
// reflected back through the pole, which puts it on the opposite meridian.
// RA ends up in [0,360).
func Wrap(ra, dec float64) (float64, float64) {
	if dec > 90 || dec < -90 {
		ra += 180
		dec = 90 - unit.PMod(dec+90, 180)
	}
	return unit.PMod(ra, 360), dec
}

// Inside maps a position onto the half-open sky, RA [0,360) and
// Dec [-90,90).
func Inside(ra, dec float64) (float64, float64) {
	if ra < 0 || ra >= 360 {
		ra = math.Mod(ra, 360)
		if ra < 0 {
			ra += 360
		}
		if ra >= 360 {
			ra = 0
		}
	}
	if dec >= 90 {
		dec = math.Nextafter(90, 0)
	}
	return ra, dec
}
