package handlers

import (
	"strings"

	"MediRoute/internal/dispatch"
	"MediRoute/pkg/response"
	"MediRoute/pkg/search"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type HospitalHit struct {
	search.Hit
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

func optionalFloat(c *gin.Context, key string) (*float64, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		response.Fail(c, "invalid "+key, nil)
		return nil, false
	}
	return &v, true
}

// handleSearchHospitals looks up approved hospitals by name or code, nearest
// first when lat and lng are supplied.
func (h *Handlers) handleSearchHospitals(c *gin.Context) {
	lat, ok := optionalFloat(c, "lat")
	if !ok {
		return
	}
	lng, ok := optionalFloat(c, "lng")
	if !ok {
		return
	}
	radius, ok := optionalFloat(c, "radiusKm")
	if !ok {
		return
	}
	q := search.Query{
		Text:      c.Query("q"),
		Latitude:  lat,
		Longitude: lng,
		Size:      cast.ToInt(c.DefaultQuery("size", "10")),
	}
	if radius != nil {
		q.RadiusKm = *radius
	}

	res, err := h.dir.Search(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	hits := make([]HospitalHit, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out := HospitalHit{Hit: hit}
		if lat != nil && lng != nil {
			d := dispatch.Distance(
				dispatch.Coordinate{Lat: *lat, Lng: *lng},
				dispatch.Coordinate{Lat: hit.Latitude, Lng: hit.Longitude})
			out.DistanceKm = &d
		}
		hits = append(hits, out)
	}
	response.Success(c, "success", gin.H{"total": res.Total, "hospitals": hits})
}
