package result

import (
	"errors"
	"math"

	"where2meet/internal/geo"
	"where2meet/internal/places"
)

const (
	DefaultRadius    = 1000
	MinRadius        = 50
	MaxRadius        = 2500
	DefaultMinRating = 4.0
	MaxRating        = 5.0
)

var (
	ErrNoVotes       = errors.New("poll has no votes yet")
	ErrInvalidRadius = errors.New("radius must be between 50 and 2500 meters")
	ErrInvalidRating = errors.New("min rating must be between 0 and 5")
)

// Stage is a step of one results computation.
type Stage string

const (
	StageLoadingVotes            Stage = "loading_votes"
	StageComputingGeometry       Stage = "computing_geometry"
	StageQueryingRecommendations Stage = "querying_recommendations"
	StageAssembled               Stage = "assembled"
	StageFailed                  Stage = "failed"
)

// Params parameterize a computation at read time. A zero Radius selects
// DefaultRadius and a nil MinRating selects DefaultMinRating.
type Params struct {
	Radius    int
	MinRating *float64
}

// Rating returns a pointer to r for use in Params.
func Rating(r float64) *float64 { return &r }

func (p Params) resolve() (radius int, minRating float64, err error) {
	radius = p.Radius
	if radius == 0 {
		radius = DefaultRadius
	}
	if radius < MinRadius || radius > MaxRadius {
		return 0, 0, ErrInvalidRadius
	}

	minRating = DefaultMinRating
	if p.MinRating != nil {
		minRating = *p.MinRating
	}
	if math.IsNaN(minRating) || minRating < 0 || minRating > MaxRating {
		return 0, 0, ErrInvalidRating
	}
	return radius, minRating, nil
}

type PollResult struct {
	PollID                      int64                     `json:"poll_id"`
	TotalVotes                  int                       `json:"total_votes"`
	MostPopularCategories       []string                  `json:"most_popular_categories"`
	AveragePoint                geo.Point                 `json:"average_point"`
	Radius                      int                       `json:"radius"`
	MinRating                   float64                   `json:"min_rating"`
	RecommendedPlacesByCategory map[string][]places.Place `json:"recommended_places_by_category"`
	// DegradedCategories lists categories whose lookup failed or timed out
	// and were answered with an empty list.
	DegradedCategories []string `json:"degraded_categories"`
}

// SharedResult is what a share-token holder sees.
type SharedResult struct {
	PollResult
	OwnerDisplayName string `json:"owner_display_name"`
}
