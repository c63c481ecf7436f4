package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coordenador-app/booking-api/internal/model"
	"github.com/coordenador-app/booking-api/internal/repository"
)

type stubClock struct{ t time.Time }

func (s stubClock) Now() time.Time { return s.t }

type stubSource struct {
	byProfessor map[uint64][]model.Booking
}

func (s *stubSource) FindDailyForProfessor(_ context.Context, _ string, professorID uint64) ([]model.Booking, error) {
	return s.byProfessor[professorID], nil
}

type stubUsers struct {
	professors []model.User
	students   map[uint64]*model.User
}

func (s *stubUsers) ListProfessors(_ context.Context) ([]model.User, error) {
	return s.professors, nil
}

func (s *stubUsers) FindByID(_ context.Context, id uint64) (*model.User, error) {
	u, ok := s.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type captureSender struct {
	mu   sync.Mutex
	sent []struct{ to, subject, body string }
}

func (c *captureSender) Send(to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, struct{ to, subject, body string }{to, subject, body})
	return nil
}

func newTestDigest(now time.Time, src *stubSource, users *stubUsers, sender *captureSender) *Digest {
	return NewDigest(src, users, users, sender, stubClock{t: now}, 6, zap.NewNop())
}

func TestComposeBodyEmpty(t *testing.T) {
	d := newTestDigest(time.Now(), &stubSource{}, &stubUsers{}, &captureSender{})
	day := time.Date(2026, 9, 14, 6, 0, 0, 0, time.UTC)

	body := d.composeBody(context.Background(), day, nil)
	assert.Contains(t, body, "14/09/2026")
	assert.Contains(t, body, "No meetings scheduled for today.")
}

func TestComposeBodyTable(t *testing.T) {
	users := &stubUsers{students: map[uint64]*model.User{
		1: {ID: 1, Name: "Ana"},
	}}
	d := newTestDigest(time.Now(), &stubSource{}, users, &captureSender{})
	day := time.Date(2026, 9, 14, 6, 0, 0, 0, time.UTC)

	meetings := []model.Booking{
		{TimeSlot: "08:00 - 09:00", StudentID: 1, Reason: "thesis"},
		{TimeSlot: "10:00 - 11:00", StudentID: 99, Reason: "grade review"},
	}
	body := d.composeBody(context.Background(), day, meetings)
	assert.Contains(t, body, "Time | Student | Reason")
	assert.Contains(t, body, "08:00 - 09:00 | Ana | thesis")
	// unresolvable student falls back to a placeholder
	assert.Contains(t, body, "10:00 - 11:00 | N/A | grade review")
}

func TestSendAllMailsEveryProfessor(t *testing.T) {
	now := time.Date(2026, 9, 14, 6, 0, 0, 0, time.UTC) // a Monday
	users := &stubUsers{
		professors: []model.User{
			{ID: 7, Name: "Silva", Email: "silva@prof.example"},
			{ID: 8, Name: "Souza", Email: "souza@prof.example"},
		},
		students: map[uint64]*model.User{1: {ID: 1, Name: "Ana"}},
	}
	src := &stubSource{byProfessor: map[uint64][]model.Booking{
		7: {{TimeSlot: "08:00 - 09:00", StudentID: 1, Reason: "thesis"}},
	}}
	sender := &captureSender{}
	d := newTestDigest(now, src, users, sender)

	d.sendAll(context.Background())

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "silva@prof.example", sender.sent[0].to)
	assert.Equal(t, "Daily meeting summary - 14/09/2026", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].body, "Ana")
	// a professor with no meetings still gets the empty summary
	assert.Contains(t, sender.sent[1].body, "No meetings scheduled for today.")
}

func TestSendAllSkipsSunday(t *testing.T) {
	now := time.Date(2026, 9, 13, 6, 0, 0, 0, time.UTC) // a Sunday
	users := &stubUsers{professors: []model.User{{ID: 7, Email: "silva@prof.example"}}}
	sender := &captureSender{}
	d := newTestDigest(now, &stubSource{}, users, sender)

	d.sendAll(context.Background())
	assert.Empty(t, sender.sent)
}

func TestUntilNextRun(t *testing.T) {
	users := &stubUsers{}
	// 05:00, digest at 06:00: one hour away
	d := newTestDigest(time.Date(2026, 9, 14, 5, 0, 0, 0, time.UTC), &stubSource{}, users, &captureSender{})
	assert.Equal(t, time.Hour, d.untilNextRun())

	// 06:00 exactly: next run is tomorrow
	d = newTestDigest(time.Date(2026, 9, 14, 6, 0, 0, 0, time.UTC), &stubSource{}, users, &captureSender{})
	assert.Equal(t, 24*time.Hour, d.untilNextRun())
}
