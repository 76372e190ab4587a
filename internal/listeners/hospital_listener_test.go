package listeners

import (
	"context"
	"errors"
	"testing"
	"time"

	"MediRoute/internal/models"
	"MediRoute/pkg/notification"
	"MediRoute/pkg/search"
	"MediRoute/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type chanSender struct {
	ch  chan sentMail
	err error
}

func (s *chanSender) Send(to []string, subject, body string) error {
	s.ch <- sentMail{to: to, subject: subject, body: body}
	return s.err
}

type countingCache struct {
	n   int
	err error
}

func (c *countingCache) Invalidate(context.Context) error {
	c.n++
	return c.err
}

func approvedHospital() *models.Account {
	code := "HSP-ABC123"
	return &models.Account{ID: 9, Email: "north@example.com", DisplayName: "North General", Role: models.RoleHospital, HospitalCode: &code}
}

func TestApprovalSendsMailAndInvalidates(t *testing.T) {
	sig := util.NewSignals()
	sender := &chanSender{ch: make(chan sentMail, 1)}
	cache := &countingCache{}
	InitHospitalListeners(sig, notification.NewMailNotificationWithSender(notification.MailConfig{}, sender), cache)

	sig.Emit(models.SigHospitalApproved, approvedHospital())
	assert.Equal(t, 1, cache.n)

	select {
	case m := <-sender.ch:
		assert.Equal(t, []string{"north@example.com"}, m.to)
		assert.Contains(t, m.body, "HSP-ABC123")
		assert.Contains(t, m.body, "North General")
	case <-time.After(2 * time.Second):
		t.Fatal("approval mail was not sent")
	}
}

func TestLocationChangeInvalidatesOnly(t *testing.T) {
	sig := util.NewSignals()
	sender := &chanSender{ch: make(chan sentMail, 1)}
	cache := &countingCache{err: errors.New("cache down")}
	InitHospitalListeners(sig, notification.NewMailNotificationWithSender(notification.MailConfig{}, sender), cache)

	require.NotPanics(t, func() {
		sig.Emit(models.SigHospitalLocationChanged, approvedHospital())
	})
	assert.Equal(t, 1, cache.n)
	assert.Empty(t, sender.ch)
}

func TestApprovalWithoutMailer(t *testing.T) {
	sig := util.NewSignals()
	InitHospitalListeners(sig, nil, nil)
	assert.NotPanics(t, func() {
		sig.Emit(models.SigHospitalApproved, approvedHospital())
	})
}

func TestDirectoryFollowsApprovalAndLocation(t *testing.T) {
	sig := util.NewSignals()
	dir, err := search.New(search.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })
	InitDirectoryListeners(sig, dir)

	hosp := approvedHospital()
	sig.Emit(models.SigHospitalApproved, hosp)
	n, err := dir.Count()
	require.NoError(t, err)
	assert.Zero(t, n, "status and location are required")

	lat, lng := 12.97, 77.59
	hosp.Status = models.StatusApproved
	hosp.Latitude, hosp.Longitude = &lat, &lng
	sig.Emit(models.SigHospitalLocationChanged, hosp)

	res, err := dir.Search(context.Background(), search.Query{Text: "general"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, uint(9), res.Hits[0].ID)
	assert.Equal(t, "HSP-ABC123", res.Hits[0].Code)
}
