// Package geo implements the spatial primitives of the donor search: geohash
// rings around a seeker's cell, approximate cell-center distances, and the
// per-round ring expansion step.
//
// All functions are pure and deterministic. Ring cells are computed with the
// standard 8-neighbor geohash adjacency, so ring k around a cell contains the
// 8k cells at Chebyshev distance k (fewer near the poles).
package geo

import (
	"math"
	"sort"
	"strings"

	"github.com/mmcloughlin/geohash"
)

// earthRadiusKm is the mean Earth radius used by Distance.
const earthRadiusKm = 6371.0

const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// Valid reports whether s is a non-empty geohash (case-insensitive).
func Valid(s string) bool {
	if s == "" || len(s) > 12 {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if !strings.ContainsRune(base32, r) {
			return false
		}
	}
	return true
}

// NeighborsAtRing returns the cells exactly ring steps away from center, at
// the same length as center, in lexical order. Ring 0 is {center}; ring k is
// the set of neighbors of ring k-1 that were not visited by an inner ring.
func NeighborsAtRing(center string, ring int) []string {
	center = strings.ToLower(center)
	if ring <= 0 {
		return []string{center}
	}

	visited := map[string]struct{}{center: {}}
	frontier := []string{center}
	for k := 1; k <= ring; k++ {
		next := make([]string, 0, 8*k)
		for _, cell := range frontier {
			for _, n := range geohash.Neighbors(cell) {
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = struct{}{}
				next = append(next, n)
			}
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	sort.Strings(frontier)
	return frontier
}

// Distance returns the great-circle distance in kilometres between the
// centers of two geohash cells. Precision is bounded by the cell size.
func Distance(a, b string) float64 {
	lat1, lng1 := geohash.DecodeCenter(strings.ToLower(a))
	lat2, lng2 := geohash.DecodeCenter(strings.ToLower(b))
	return haversine(lat1, lng1, lat2, lng2)
}

func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	p1, p2 := radians(lat1), radians(lat2)
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(p1)*math.Cos(p2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// RingLimits bounds ExpandRing.
type RingLimits struct {
	// MaxLevel is the outermost ring that may be expanded to.
	MaxLevel int
	// MaxQueued stops expansion while this many cells are already queued.
	MaxQueued int
}

// ExpandRing advances the search by one ring. When the queue is already at
// MaxQueued, or level has reached MaxLevel, queued and level are returned
// unchanged. Otherwise the next ring's cells are appended to a copy of queued
// and the incremented level is returned. Rings are disjoint, so a cell that
// was already queried is never queued again.
func ExpandRing(center string, level int, queued []string, lim RingLimits) ([]string, int) {
	if len(queued) >= lim.MaxQueued || level >= lim.MaxLevel {
		return queued, level
	}
	next := level + 1
	ring := NeighborsAtRing(center, next)

	out := make([]string, 0, len(queued)+len(ring))
	out = append(out, queued...)
	out = append(out, ring...)
	return out, next
}

// Exhausted reports whether no further cells can be searched: the queue is
// empty and the outermost ring has been expanded.
func Exhausted(level int, queued []string, lim RingLimits) bool {
	return len(queued) == 0 && level >= lim.MaxLevel
}

// Truncate returns the first n characters of hash (or hash if shorter).
func Truncate(hash string, n int) string {
	if n <= 0 || len(hash) <= n {
		return hash
	}
	return hash[:n]
}
