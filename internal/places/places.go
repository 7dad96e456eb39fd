// Package places is the adapter to the external place-search oracle.
package places

import (
	"context"
	"errors"

	"where2meet/internal/geo"
)

var ErrUpstream = errors.New("place search upstream error")

type Query struct {
	Center    geo.Point
	Radius    int
	MinRating float64
	Category  string
}

type NavLinks struct {
	Google string `json:"google"`
	Yandex string `json:"yandex"`
}

type Place struct {
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviews_count"`
	Point        geo.Point `json:"coordinates"`
	Distance     float64   `json:"distance"`
	ExternalLink string    `json:"external_link"`
	NavLinks     NavLinks  `json:"nav_links"`
}

// Client looks up places around a point. Implementations may block on the
// network and must honour ctx.
type Client interface {
	Search(ctx context.Context, q Query) ([]Place, error)
}

var popularCategories = []string{
	"кафе",
	"ресторан",
	"магазин",
	"банк",
	"больница",
	"кинотеатр",
	"парк",
	"автостоянка",
	"фитнес",
	"супермаркет",
	"бар",
}

// Categories lists the suggestions offered to voters.
func Categories() []string {
	out := make([]string, len(popularCategories))
	copy(out, popularCategories)
	return out
}
