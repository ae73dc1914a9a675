// geometry/equal.go
package geometry

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Equal reports whether a and b are structurally identical: the same
// polygons, rings and positions in the same order with bit-for-bit
// coordinates. Topologically equivalent shapes with a different ring start,
// winding or precision are not equal.
func Equal(a, b orb.MultiPolygon) bool {
	return a.Equal(b)
}

// Hash returns a hex SHA-256 over the structure and coordinate bits of mp.
// Structurally equal geometries hash identically; -0 hashes as 0.
func Hash(mp orb.MultiPolygon) string {
	h := sha256.New()
	var buf [8]byte
	writeLen := func(n int) {
		binary.BigEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}
	writeLen(len(mp))
	for _, poly := range mp {
		writeLen(len(poly))
		for _, ring := range poly {
			writeLen(len(ring))
			for _, p := range ring {
				binary.BigEndian.PutUint64(buf[:], coordBits(p[0]))
				h.Write(buf[:])
				binary.BigEndian.PutUint64(buf[:], coordBits(p[1]))
				h.Write(buf[:])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func coordBits(v float64) uint64 {
	if v == 0 {
		v = 0
	}
	return math.Float64bits(v)
}

// Counts returns the number of polygons, rings and positions in mp.
func Counts(mp orb.MultiPolygon) (polygons, rings, points int) {
	polygons = len(mp)
	for _, poly := range mp {
		rings += len(poly)
		for _, ring := range poly {
			points += len(ring)
		}
	}
	return polygons, rings, points
}

// AreaKm2 is the geodesic area of mp in square kilometres.
func AreaKm2(mp orb.MultiPolygon) float64 {
	return math.Abs(geo.Area(mp)) / 1e6
}
