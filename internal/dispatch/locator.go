package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"MediRoute/internal/models"
	"MediRoute/pkg/cache"
	apperrors "MediRoute/pkg/errors"
	"MediRoute/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrNoOperationalHospital = apperrors.WithCode(http.StatusServiceUnavailable, "no operational hospital found")

// Hospital is the locator's view of an approved hospital account.
type Hospital struct {
	ID       uint       `json:"id"`
	Name     string     `json:"name"`
	Code     string     `json:"code"`
	Location Coordinate `json:"location"`
}

// HospitalSource yields approved hospitals that have a location, in a
// stable order.
type HospitalSource interface {
	ApprovedHospitals(ctx context.Context) ([]Hospital, error)
}

type StoreHospitalSource struct {
	db *gorm.DB
}

func NewStoreHospitalSource(db *gorm.DB) *StoreHospitalSource {
	return &StoreHospitalSource{db: db}
}

func (s *StoreHospitalSource) ApprovedHospitals(ctx context.Context) ([]Hospital, error) {
	accounts, err := models.ListApprovedHospitals(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	hospitals := make([]Hospital, 0, len(accounts))
	for i := range accounts {
		acc := &accounts[i]
		if !acc.HasLocation() {
			continue
		}
		hospitals = append(hospitals, Hospital{
			ID:       acc.ID,
			Name:     acc.DisplayName,
			Code:     acc.Code(),
			Location: Coordinate{Lat: *acc.Latitude, Lng: *acc.Longitude},
		})
	}
	return hospitals, nil
}

const (
	hospitalSnapshotKey   = "dispatch:approved_hospitals"
	hospitalGenerationKey = "dispatch:approved_hospitals:gen"
)

// CachedHospitalSource keeps a JSON snapshot of the wrapped source in a
// cache. Invalidate must be called when approvals or locations change.
// Every snapshot carries the generation it was loaded under, and Invalidate
// moves the generation on, so a load racing an invalidation is never served.
type CachedHospitalSource struct {
	next  HospitalSource
	cache cache.Cache
	ttl   time.Duration
}

type hospitalSnapshot struct {
	Generation string     `json:"gen"`
	Hospitals  []Hospital `json:"hospitals"`
}

func NewCachedHospitalSource(next HospitalSource, c cache.Cache, ttl time.Duration) *CachedHospitalSource {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedHospitalSource{next: next, cache: c, ttl: ttl}
}

func (s *CachedHospitalSource) generation(ctx context.Context) string {
	if v, ok := s.cache.Get(ctx, hospitalGenerationKey); ok {
		if g, ok := v.(string); ok {
			return g
		}
	}
	return ""
}

func (s *CachedHospitalSource) ApprovedHospitals(ctx context.Context) ([]Hospital, error) {
	gen := s.generation(ctx)
	if v, ok := s.cache.Get(ctx, hospitalSnapshotKey); ok {
		if raw, ok := v.(string); ok {
			var snap hospitalSnapshot
			if err := json.Unmarshal([]byte(raw), &snap); err == nil && snap.Generation == gen {
				return snap.Hospitals, nil
			}
		}
	}

	hospitals, err := s.next.ApprovedHospitals(ctx)
	if err != nil {
		return nil, err
	}
	if s.generation(ctx) != gen {
		logger.Debug("hospital snapshot invalidated during load")
		return hospitals, nil
	}
	data, err := json.Marshal(hospitalSnapshot{Generation: gen, Hospitals: hospitals})
	if err == nil {
		if err := s.cache.Set(ctx, hospitalSnapshotKey, string(data), s.ttl); err != nil {
			logger.Warn("cache hospital snapshot failed", zap.Error(err))
		}
	}
	return hospitals, nil
}

func (s *CachedHospitalSource) Invalidate(ctx context.Context) error {
	if err := s.cache.Set(ctx, hospitalGenerationKey, uuid.NewString(), 0); err != nil {
		return err
	}
	return s.cache.Delete(ctx, hospitalSnapshotKey)
}

// Match is the located hospital and its distance from the requester.
type Match struct {
	Hospital   Hospital
	DistanceKm float64
}

// Locator finds the nearest approved hospital by a full linear scan of the
// source. Hospital counts are expected to stay small; a spatial index can
// replace the scan behind the same method.
type Locator struct {
	source   HospitalSource
	recorder Recorder
}

func NewLocator(source HospitalSource, recorder Recorder) *Locator {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Locator{source: source, recorder: recorder}
}

// Nearest returns the hospital with strictly minimal distance to origin.
// On ties the first hospital in source order wins.
func (l *Locator) Nearest(ctx context.Context, origin Coordinate) (*Match, error) {
	start := time.Now()
	defer func() { l.recorder.ObserveLocatorScan(time.Since(start)) }()

	hospitals, err := l.source.ApprovedHospitals(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, "load approved hospitals")
	}

	var best *Match
	for i := range hospitals {
		d := Distance(origin, hospitals[i].Location)
		if best == nil || d < best.DistanceKm {
			best = &Match{Hospital: hospitals[i], DistanceKm: d}
		}
	}
	if best == nil {
		return nil, ErrNoOperationalHospital
	}
	return best, nil
}
