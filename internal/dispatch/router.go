package dispatch

import (
	"context"
	"net/http"
	"strings"

	"MediRoute/internal/models"
	apperrors "MediRoute/pkg/errors"
	"MediRoute/pkg/logger"
	"MediRoute/pkg/sse"

	"go.uber.org/zap"
)

const sosReasonPrefix = "EMERGENCY SOS: "

var ErrMissingCoordinate = apperrors.WithCode(http.StatusBadRequest, "latitude and longitude are required")

// GeoPoint is a submitted coordinate. Both parts are pointers so an absent
// value is distinguishable from zero.
type GeoPoint struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// DispatchInput is a patient submission:
// {"requesterName", "reason", "criticality", "coordinate": {"lat", "lng"}}.
// The flat patientName/latitude/longitude form of older clients is still
// read when the nested fields are absent.
type DispatchInput struct {
	RequesterName string    `json:"requesterName"`
	Reason        string    `json:"reason"`
	Criticality   string    `json:"criticality"`
	Coordinate    *GeoPoint `json:"coordinate"`

	PatientName string   `json:"patientName"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

func (in DispatchInput) requester() string {
	if name := strings.TrimSpace(in.RequesterName); name != "" {
		return name
	}
	return strings.TrimSpace(in.PatientName)
}

func (in DispatchInput) origin() (Coordinate, bool) {
	if p := in.Coordinate; p != nil && (p.Lat != nil || p.Lng != nil) {
		if p.Lat == nil || p.Lng == nil {
			return Coordinate{}, false
		}
		return Coordinate{Lat: *p.Lat, Lng: *p.Lng}, true
	}
	if in.Latitude == nil || in.Longitude == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *in.Latitude, Lng: *in.Longitude}, true
}

type Assignment struct {
	RequestID            string             `json:"requestId"`
	AssignedHospitalName string             `json:"assignedHospitalName"`
	DistanceKm           float64            `json:"distanceKm"`
	Criticality          models.Criticality `json:"criticality"`
}

// Emergency dispatches an SOS. Criticality is always HIGH whatever the
// caller sent.
func (s *Service) Emergency(ctx context.Context, in DispatchInput) (*Assignment, error) {
	return s.dispatch(ctx, models.RequestTypeSOS, models.CriticalityHigh, sosReasonPrefix+in.Reason, in)
}

// DoctorConnect dispatches a standard consultation request. Missing or
// unknown criticality becomes LOW.
func (s *Service) DoctorConnect(ctx context.Context, in DispatchInput) (*Assignment, error) {
	crit, ok := models.ParseCriticality(in.Criticality)
	if !ok {
		crit = models.CriticalityLow
	}
	return s.dispatch(ctx, models.RequestTypeDoctorConnect, crit, in.Reason, in)
}

func (s *Service) dispatch(ctx context.Context, typ models.RequestType, crit models.Criticality, reason string, in DispatchInput) (*Assignment, error) {
	origin, ok := in.origin()
	if !ok {
		return nil, ErrMissingCoordinate
	}

	match, err := s.locator.Nearest(ctx, origin)
	if err != nil {
		if apperrors.Is(err, ErrNoOperationalHospital) {
			s.recorder.RecordDispatchUnavailable(string(typ))
			logger.Warn("no operational hospital",
				zap.String("type", string(typ)),
				zap.Float64("lat", origin.Lat),
				zap.Float64("lng", origin.Lng))
		}
		return nil, err
	}

	req := &models.Request{
		Type:          typ,
		RequesterName: in.requester(),
		Reason:        reason,
		Criticality:   crit,
		Latitude:      origin.Lat,
		Longitude:     origin.Lng,
		HospitalID:    match.Hospital.ID,
		DistanceKm:    match.DistanceKm,
	}
	if err := models.CreateRequest(s.db.WithContext(ctx), req); err != nil {
		return nil, apperrors.Wrap(err, "persist request")
	}

	s.recorder.RecordDispatch(string(typ), string(crit))
	logger.Info("request dispatched",
		zap.String("request_id", req.ID),
		zap.String("requester", req.RequesterName),
		zap.String("type", string(typ)),
		zap.String("criticality", string(crit)),
		zap.Uint("hospital_id", match.Hospital.ID),
		zap.Float64("distance_km", match.DistanceKm))
	s.publisher.SendToGroup(HospitalGroup(match.Hospital.ID), sse.Event{Name: EventRequestCreated, Data: req})

	return &Assignment{
		RequestID:            req.ID,
		AssignedHospitalName: match.Hospital.Name,
		DistanceKm:           match.DistanceKm,
		Criticality:          crit,
	}, nil
}
