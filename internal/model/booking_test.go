package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartHour(t *testing.T) {
	b := Booking{TimeSlot: "08:00 - 09:00"}
	assert.Equal(t, "08:00", b.StartHour())

	b.TimeSlot = "14:30"
	assert.Equal(t, "14:30", b.StartHour())
}

func TestStartsAt(t *testing.T) {
	b := Booking{Date: "2026-09-14", TimeSlot: "08:00 - 09:00"}
	got, err := b.StartsAt(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 14, 8, 0, 0, 0, time.UTC), got)

	bad := Booking{Date: "garbage", TimeSlot: "08:00 - 09:00"}
	_, err = bad.StartsAt(time.UTC)
	assert.Error(t, err)
}

func TestIsFuture(t *testing.T) {
	now := time.Date(2026, 9, 14, 10, 0, 0, 0, time.UTC)

	past := Booking{Date: "2026-09-14", TimeSlot: "08:00 - 09:00"}
	assert.False(t, past.IsFuture(now))

	// starts exactly now: not strictly after, so not future
	boundary := Booking{Date: "2026-09-14", TimeSlot: "10:00 - 11:00"}
	assert.False(t, boundary.IsFuture(now))

	later := Booking{Date: "2026-09-14", TimeSlot: "11:00 - 12:00"}
	assert.True(t, later.IsFuture(now))

	nextWeek := Booking{Date: "2026-09-21", TimeSlot: "08:00 - 09:00"}
	assert.True(t, nextWeek.IsFuture(now))

	malformed := Booking{Date: "14/09/2026", TimeSlot: "11:00 - 12:00"}
	assert.False(t, malformed.IsFuture(now))
}

func TestIdentityIsStudent(t *testing.T) {
	assert.True(t, Identity{ID: 1}.IsStudent())
	assert.False(t, Identity{ID: 1, IsProfessor: true}.IsStudent())
	assert.False(t, Identity{ID: 1, IsAdmin: true}.IsStudent())
}
