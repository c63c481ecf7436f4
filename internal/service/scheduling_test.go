package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coordenador-app/booking-api/internal/model"
	"github.com/coordenador-app/booking-api/internal/repository"
)

// fixedClock pins Now() for deterministic "future meeting" checks.
type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// fakeSlotStore is an in-memory AvailabilityStore.  Acquire holds a
// mutex across the check-and-flip so the concurrency test exercises
// the same "exactly one winner" guarantee the SQL version gives.
type fakeSlotStore struct {
	mu    sync.Mutex
	slots map[string]*model.AvailabilitySlot
}

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{slots: map[string]*model.AvailabilitySlot{}}
}

func slotKey(date, timeSlot string) string { return date + "|" + timeSlot }

func (f *fakeSlotStore) Upsert(_ context.Context, date, timeSlot string, professorID uint64, available bool) (*model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := slotKey(date, timeSlot)
	s, ok := f.slots[k]
	if !ok {
		s = &model.AvailabilitySlot{ID: uint64(len(f.slots) + 1), Date: date, TimeSlot: timeSlot, ProfessorID: professorID}
		f.slots[k] = s
	}
	s.Available = available
	cp := *s
	return &cp, nil
}

func (f *fakeSlotStore) FindBySlot(_ context.Context, date, timeSlot string) (*model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotKey(date, timeSlot)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSlotStore) FindAvailableByDate(_ context.Context, date string) ([]model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AvailabilitySlot
	for _, s := range f.slots {
		if s.Date == date && s.Available {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSlotStore) Acquire(_ context.Context, date, timeSlot string) (*model.AvailabilitySlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[slotKey(date, timeSlot)]
	if !ok || !s.Available {
		return nil, repository.ErrSlotUnavailable
	}
	s.Available = false
	cp := *s
	return &cp, nil
}

func (f *fakeSlotStore) Release(ctx context.Context, date, timeSlot string, professorID uint64) (*model.AvailabilitySlot, error) {
	return f.Upsert(ctx, date, timeSlot, professorID, true)
}

func (f *fakeSlotStore) DeleteAll(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.slots))
	f.slots = map[string]*model.AvailabilitySlot{}
	return n, nil
}

// fakeBookingStore is an in-memory BookingStore.  createErr lets a
// test force the insert to fail after the slot flip.
type fakeBookingStore struct {
	mu        sync.Mutex
	bookings  []model.Booking
	nextID    uint64
	createErr error
}

func newFakeBookingStore() *fakeBookingStore { return &fakeBookingStore{nextID: 1} }

func (f *fakeBookingStore) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	b.ID = f.nextID
	f.nextID++
	f.bookings = append(f.bookings, *b)
	return nil
}

func (f *fakeBookingStore) FindByID(_ context.Context, id uint64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			cp := f.bookings[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBookingStore) FindByStudent(_ context.Context, studentID uint64, includeCanceled bool) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.bookings {
		if b.StudentID != studentID {
			continue
		}
		if b.Canceled && !includeCanceled {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBookingStore) FindDaily(_ context.Context, date string) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.bookings {
		if b.Date == date && !b.Canceled {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) FindDailyForProfessor(ctx context.Context, date string, professorID uint64) ([]model.Booking, error) {
	all, _ := f.FindDaily(ctx, date)
	var out []model.Booking
	for _, b := range all {
		if b.ProfessorID == professorID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) FindNextForProfessor(_ context.Context, professorID uint64, today, nowTime string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.Booking
	for i := range f.bookings {
		b := f.bookings[i]
		if b.ProfessorID != professorID || b.Canceled {
			continue
		}
		if b.Date < today || (b.Date == today && b.StartHour() <= nowTime) {
			continue
		}
		if best == nil || b.Date < best.Date || (b.Date == best.Date && b.TimeSlot < best.TimeSlot) {
			cp := b
			best = &cp
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (f *fakeBookingStore) ListFutureForProfessor(_ context.Context, professorID uint64, today, nowTime string) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.bookings {
		if b.ProfessorID != professorID {
			continue
		}
		if b.Date > today || (b.Date == today && b.StartHour() > nowTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) SetCanceled(_ context.Context, id uint64, reason string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			if f.bookings[i].Canceled {
				return nil, repository.ErrConflict
			}
			f.bookings[i].Canceled = true
			f.bookings[i].CancelReason = reason
			cp := f.bookings[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBookingStore) Update(_ context.Context, id uint64, fields map[string]any) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID != id {
			continue
		}
		if v, ok := fields["date"].(string); ok {
			f.bookings[i].Date = v
		}
		if v, ok := fields["time_slot"].(string); ok {
			f.bookings[i].TimeSlot = v
		}
		if v, ok := fields["reason"].(string); ok {
			f.bookings[i].Reason = v
		}
		cp := f.bookings[i]
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBookingStore) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeBookingStore) DeleteAll(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.bookings))
	f.bookings = nil
	return n, nil
}

// monday is a weekday safely usable in reservation tests.
const monday = "2026-09-14"

func newTestService(slots *fakeSlotStore, bookings *fakeBookingStore, now time.Time) *SchedulingService {
	return NewSchedulingService(slots, bookings, fixedClock{t: now}, zap.NewNop())
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2026-09-14", "2026-09-14"},
		{"2026-09-14T00:00:00Z", "2026-09-14"},
		{"14/09/2026", "2026-09-14"},
		{"2026-01-02", "2026-01-02"},
	}
	for _, c := range cases {
		got, _, err := NormalizeDate(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	_, _, err := NormalizeDate("not-a-date")
	assert.True(t, IsValidation(err))
	_, _, err = NormalizeDate("14-09-2026")
	assert.True(t, IsValidation(err))
}

func TestReserveRejectsMissingFields(t *testing.T) {
	svc := newTestService(newFakeSlotStore(), newFakeBookingStore(), time.Now())

	_, err := svc.Reserve(context.Background(), "", "08:00 - 09:00", "thesis", 1)
	assert.True(t, IsValidation(err))
	_, err = svc.Reserve(context.Background(), monday, "", "thesis", 1)
	assert.True(t, IsValidation(err))
	_, err = svc.Reserve(context.Background(), monday, "08:00 - 09:00", "", 1)
	assert.True(t, IsValidation(err))
	_, err = svc.Reserve(context.Background(), monday, "08:00 - 09:00", "thesis", 0)
	assert.True(t, IsValidation(err))
}

func TestReserveRejectsSunday(t *testing.T) {
	slots := newFakeSlotStore()
	// published and open, but on a Sunday
	_, err := slots.Upsert(context.Background(), "2026-09-13", "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, newFakeBookingStore(), time.Now())

	_, err = svc.Reserve(context.Background(), "2026-09-13", "08:00 - 09:00", "thesis", 1)
	assert.True(t, IsValidation(err))
}

func TestReserveUnpublishedSlotFailsClosed(t *testing.T) {
	svc := newTestService(newFakeSlotStore(), newFakeBookingStore(), time.Now())

	_, err := svc.Reserve(context.Background(), monday, "08:00 - 09:00", "thesis", 1)
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)
}

func TestReserveResolvesProfessorFromSlot(t *testing.T) {
	slots := newFakeSlotStore()
	bookings := newFakeBookingStore()
	_, err := slots.Upsert(context.Background(), monday, "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, bookings, time.Now())

	b, err := svc.Reserve(context.Background(), monday, "08:00 - 09:00", "thesis review", 42)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), b.ProfessorID)
	assert.Equal(t, uint64(42), b.StudentID)
	assert.Equal(t, monday, b.Date)

	// the slot is consumed
	open, err := svc.IsSlotAvailable(context.Background(), monday, "08:00 - 09:00")
	require.NoError(t, err)
	assert.False(t, open)

	// and a second attempt conflicts instead of double-booking
	_, err = svc.Reserve(context.Background(), monday, "08:00 - 09:00", "other", 43)
	assert.ErrorIs(t, err, repository.ErrSlotUnavailable)
}

func TestReserveNormalizesDateBeforeLookup(t *testing.T) {
	slots := newFakeSlotStore()
	_, err := slots.Upsert(context.Background(), monday, "10:00 - 11:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, newFakeBookingStore(), time.Now())

	// the slot was published under 2026-09-14; the DD/MM/YYYY spelling
	// must land on the same record
	b, err := svc.Reserve(context.Background(), "14/09/2026", "10:00 - 11:00", "thesis", 1)
	require.NoError(t, err)
	assert.Equal(t, monday, b.Date)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	slots := newFakeSlotStore()
	bookings := newFakeBookingStore()
	_, err := slots.Upsert(context.Background(), monday, "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, bookings, time.Now())

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(student uint64) {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), monday, "08:00 - 09:00", "thesis", student)
			results <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, repository.ErrSlotUnavailable):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)
	assert.Len(t, bookings.bookings, 1)
}

func TestReserveReleasesSlotWhenInsertFails(t *testing.T) {
	slots := newFakeSlotStore()
	bookings := newFakeBookingStore()
	bookings.createErr = errors.New("insert blew up")
	_, err := slots.Upsert(context.Background(), monday, "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, bookings, time.Now())

	_, err = svc.Reserve(context.Background(), monday, "08:00 - 09:00", "thesis", 1)
	require.Error(t, err)

	// compensation reopened the slot
	open, err := svc.IsSlotAvailable(context.Background(), monday, "08:00 - 09:00")
	require.NoError(t, err)
	assert.True(t, open)
}

func TestCancelByStudentReleasesSlot(t *testing.T) {
	slots := newFakeSlotStore()
	bookings := newFakeBookingStore()
	_, err := slots.Upsert(context.Background(), monday, "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, bookings, time.Now())

	b, err := svc.Reserve(context.Background(), monday, "08:00 - 09:00", "thesis", 42)
	require.NoError(t, err)

	student := model.Identity{ID: 42}
	canceled, err := svc.Cancel(context.Background(), b.ID, "sick", student)
	require.NoError(t, err)
	assert.True(t, canceled.Canceled)
	assert.Equal(t, "sick", canceled.CancelReason)

	open, err := svc.IsSlotAvailable(context.Background(), monday, "08:00 - 09:00")
	require.NoError(t, err)
	assert.True(t, open, "student cancellation reopens the slot")
}

func TestCancelByProfessorKeepsSlotClosed(t *testing.T) {
	slots := newFakeSlotStore()
	bookings := newFakeBookingStore()
	_, err := slots.Upsert(context.Background(), monday, "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, bookings, time.Now())

	b, err := svc.Reserve(context.Background(), monday, "08:00 - 09:00", "thesis", 42)
	require.NoError(t, err)

	professor := model.Identity{ID: 7, IsProfessor: true}
	canceled, err := svc.Cancel(context.Background(), b.ID, "unavailable that day", professor)
	require.NoError(t, err)
	assert.True(t, canceled.Canceled)

	open, err := svc.IsSlotAvailable(context.Background(), monday, "08:00 - 09:00")
	require.NoError(t, err)
	assert.False(t, open, "professor cancellation takes the slot off the board")
}

func TestCancelTwiceDoesNotReleaseSlot(t *testing.T) {
	slots := newFakeSlotStore()
	bookings := newFakeBookingStore()
	_, err := slots.Upsert(context.Background(), monday, "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, bookings, time.Now())

	first, err := svc.Reserve(context.Background(), monday, "08:00 - 09:00", "thesis", 42)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), first.ID, "sick", model.Identity{ID: 42})
	require.NoError(t, err)

	// another student picks up the reopened slot
	second, err := svc.Reserve(context.Background(), monday, "08:00 - 09:00", "project", 43)
	require.NoError(t, err)

	// re-canceling the dead booking must not reopen the occupied slot
	_, err = svc.Cancel(context.Background(), first.ID, "sick again", model.Identity{ID: 42})
	assert.ErrorIs(t, err, repository.ErrConflict)

	open, err := svc.IsSlotAvailable(context.Background(), monday, "08:00 - 09:00")
	require.NoError(t, err)
	assert.False(t, open, "slot stays held by the active booking")

	got, err := svc.FindByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.False(t, got.Canceled)
}

func TestCancelUnknownBooking(t *testing.T) {
	svc := newTestService(newFakeSlotStore(), newFakeBookingStore(), time.Now())

	_, err := svc.Cancel(context.Background(), 999, "whatever", model.Identity{ID: 1})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIsSlotAvailableFailsClosed(t *testing.T) {
	slots := newFakeSlotStore()
	svc := newTestService(slots, newFakeBookingStore(), time.Now())

	// never published: not an error, just unavailable
	open, err := svc.IsSlotAvailable(context.Background(), monday, "08:00 - 09:00")
	require.NoError(t, err)
	assert.False(t, open)

	_, err = slots.Upsert(context.Background(), monday, "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	open, err = svc.IsSlotAvailable(context.Background(), monday, "08:00 - 09:00")
	require.NoError(t, err)
	assert.True(t, open)
}

func TestResolveProfessorForSlot(t *testing.T) {
	slots := newFakeSlotStore()
	_, err := slots.Upsert(context.Background(), monday, "08:00 - 09:00", 7, true)
	require.NoError(t, err)
	svc := newTestService(slots, newFakeBookingStore(), time.Now())

	id, err := svc.ResolveProfessorForSlot(context.Background(), monday, "08:00 - 09:00")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)

	_, err = svc.ResolveProfessorForSlot(context.Background(), monday, "09:00 - 10:00")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNextForStudent(t *testing.T) {
	bookings := newFakeBookingStore()
	now := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)
	svc := newTestService(newFakeSlotStore(), bookings, now)

	seed := []model.Booking{
		{Date: "2026-09-10", TimeSlot: "08:00 - 09:00", Reason: "past", StudentID: 1, ProfessorID: 7},
		{Date: "2026-09-14", TimeSlot: "08:00 - 09:00", Reason: "earlier today", StudentID: 1, ProfessorID: 7},
		{Date: "2026-09-14", TimeSlot: "11:00 - 12:00", Reason: "later today", StudentID: 1, ProfessorID: 7},
		{Date: "2026-09-21", TimeSlot: "08:00 - 09:00", Reason: "next week", StudentID: 1, ProfessorID: 7},
	}
	for i := range seed {
		require.NoError(t, bookings.Create(context.Background(), &seed[i]))
	}

	b, err := svc.NextForStudent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "later today", b.Reason)

	// canceled bookings never count as the next meeting
	_, err = bookings.SetCanceled(context.Background(), b.ID, "dropped")
	require.NoError(t, err)
	b, err = svc.NextForStudent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "next week", b.Reason)

	_, err = svc.NextForStudent(context.Background(), 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateBookingNormalizesDate(t *testing.T) {
	bookings := newFakeBookingStore()
	b := model.Booking{Date: monday, TimeSlot: "08:00 - 09:00", Reason: "thesis", StudentID: 1, ProfessorID: 7}
	require.NoError(t, bookings.Create(context.Background(), &b))
	svc := newTestService(newFakeSlotStore(), bookings, time.Now())

	updated, err := svc.UpdateBooking(context.Background(), b.ID, map[string]any{"date": "15/09/2026"})
	require.NoError(t, err)
	assert.Equal(t, "2026-09-15", updated.Date)

	_, err = svc.UpdateBooking(context.Background(), b.ID, map[string]any{"date": "garbage"})
	assert.True(t, IsValidation(err))
}
