package dispatch

import (
	"strconv"
	"time"

	"MediRoute/pkg/sse"

	"gorm.io/gorm"
)

const DefaultStaffName = "Duty Physician"

const (
	EventRequestCreated  = "request.created"
	EventRequestResolved = "request.resolved"
)

// Recorder receives dispatch and resolution measurements.
type Recorder interface {
	RecordDispatch(requestType, criticality string)
	RecordDispatchUnavailable(requestType string)
	ObserveLocatorScan(d time.Duration)
	RecordResolution(result string)
	RecordReconcileFlagged(n int)
}

// Publisher pushes queue events to subscribers of a hospital group.
type Publisher interface {
	SendToGroup(group string, ev sse.Event)
}

type nopRecorder struct{}

func (nopRecorder) RecordDispatch(string, string) {}
func (nopRecorder) RecordDispatchUnavailable(string) {}
func (nopRecorder) ObserveLocatorScan(time.Duration) {}
func (nopRecorder) RecordResolution(string) {}
func (nopRecorder) RecordReconcileFlagged(int) {}

type nopPublisher struct{}

func (nopPublisher) SendToGroup(string, sse.Event) {}

// Publishers fans an event out to several feeds.
type Publishers []Publisher

func (ps Publishers) SendToGroup(group string, ev sse.Event) {
	for _, p := range ps {
		p.SendToGroup(group, ev)
	}
}

type Config struct {
	// DefaultStaffName labels prescriptions written without a staff name.
	DefaultStaffName string
	// Transactional resolves inside one store transaction; false selects
	// the saga flow that reconciliation completes.
	Transactional bool
	Recorder      Recorder
	Publisher     Publisher
}

// Service routes requests to hospitals and resolves them. The store handle
// is owned by the caller.
type Service struct {
	db        *gorm.DB
	locator   *Locator
	staffName string
	tx        bool
	recorder  Recorder
	publisher Publisher
}

func NewService(db *gorm.DB, locator *Locator, cfg Config) *Service {
	s := &Service{
		db:        db,
		locator:   locator,
		staffName: cfg.DefaultStaffName,
		tx:        cfg.Transactional,
		recorder:  cfg.Recorder,
		publisher: cfg.Publisher,
	}
	if s.staffName == "" {
		s.staffName = DefaultStaffName
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	return s
}

// HospitalGroup is the feed group a hospital's queue events are sent to.
func HospitalGroup(hospitalID uint) string {
	return "hospital:" + strconv.FormatUint(uint64(hospitalID), 10)
}
