package query

import "strings"

// SeedPolicy decides which index record within the radius becomes the
// comparison vector.
type SeedPolicy string

const (
	// SeedNearest picks the record closest to the anchor, ties by id.
	SeedNearest SeedPolicy = "nearest"
	// SeedStrict requires exactly one record within the radius.
	SeedStrict SeedPolicy = "strict"
	// SeedUnordered takes whichever record the engine yields first.
	SeedUnordered SeedPolicy = "unordered"
)

func (p SeedPolicy) Valid() bool {
	switch p {
	case SeedNearest, SeedStrict, SeedUnordered:
		return true
	}
	return false
}

func ParseSeedPolicy(s string) (SeedPolicy, bool) {
	p := SeedPolicy(strings.ToLower(strings.TrimSpace(s)))
	if p == "" {
		return SeedNearest, true
	}
	return p, p.Valid()
}

// DistanceType selects the vector distance. The empty value leaves the
// engine default (euclidean) in place.
//
// Only metrics under which a vector is its own nearest neighbour are
// accepted: the first returned row must be the seed. DOT_PRODUCT breaks
// that for any embedding that is not unit length.
type DistanceType string

const (
	DistanceDefault   DistanceType = ""
	DistanceEuclidean DistanceType = "EUCLIDEAN"
	DistanceCosine    DistanceType = "COSINE"
)

func (d DistanceType) Valid() bool {
	switch d {
	case DistanceDefault, DistanceEuclidean, DistanceCosine:
		return true
	}
	return false
}

func ParseDistanceType(s string) (DistanceType, bool) {
	d := DistanceType(strings.ToUpper(strings.TrimSpace(s)))
	return d, d.Valid()
}
