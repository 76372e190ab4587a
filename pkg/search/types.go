package search

import "time"

type Config struct {
	// IndexPath is the on-disk bleve index. Empty keeps the index in memory.
	IndexPath    string
	QueryTimeout time.Duration
	BatchSize    int
}

// Hospital is one directory entry. Only approved hospitals with a location
// belong in the index.
type Hospital struct {
	ID        uint
	Name      string
	Code      string
	Latitude  float64
	Longitude float64
}

type Query struct {
	Text      string
	Latitude  *float64
	Longitude *float64
	// RadiusKm limits results around the origin; zero means unbounded.
	RadiusKm float64
	Size     int
}

func (q Query) hasOrigin() bool {
	return q.Latitude != nil && q.Longitude != nil
}

type Hit struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Score     float64 `json:"score"`
}

type Result struct {
	Total uint64        `json:"total"`
	Took  time.Duration `json:"took"`
	Hits  []Hit         `json:"hits"`
}
