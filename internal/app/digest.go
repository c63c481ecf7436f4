package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coordenador-app/booking-api/internal/mailer"
	"github.com/coordenador-app/booking-api/internal/metrics"
	"github.com/coordenador-app/booking-api/internal/model"
	"github.com/coordenador-app/booking-api/internal/service"
)

// DigestSource is the read-only slice of the scheduling service the
// digest needs: a professor's bookings for one day, already sorted by
// time slot.
type DigestSource interface {
	FindDailyForProfessor(ctx context.Context, date string, professorID uint64) ([]model.Booking, error)
}

// ProfessorLister enumerates digest recipients.
type ProfessorLister interface {
	ListProfessors(ctx context.Context) ([]model.User, error)
}

// StudentResolver turns a booking's student id into a display name for
// the digest table.
type StudentResolver interface {
	FindByID(ctx context.Context, id uint64) (*model.User, error)
}

// Digest is the periodic job that mails each professor a summary of the
// day's meetings.  It is read-only with respect to the scheduling core;
// any failure is logged and retried the next day, never propagated.
type Digest struct {
	source   DigestSource
	users    ProfessorLister
	students StudentResolver
	mailer   mailer.Sender
	clock    service.Clock
	hour     int
	log      *zap.Logger
	stopChan chan struct{}
}

// NewDigest creates the job.  hour is the local hour of day (0-23) at
// which the digest fires.
func NewDigest(source DigestSource, users ProfessorLister, students StudentResolver, m mailer.Sender, clock service.Clock, hour int, log *zap.Logger) *Digest {
	return &Digest{
		source:   source,
		users:    users,
		students: students,
		mailer:   m,
		clock:    clock,
		hour:     hour,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start launches the background loop.
func (d *Digest) Start(ctx context.Context) {
	d.log.Info("starting daily digest job", zap.Int("hour", d.hour))
	go d.run(ctx)
}

// Stop terminates the background loop.
func (d *Digest) Stop() {
	close(d.stopChan)
}

func (d *Digest) run(ctx context.Context) {
	for {
		wait := d.untilNextRun()
		select {
		case <-time.After(wait):
			d.sendAll(ctx)
		case <-d.stopChan:
			d.log.Info("digest job stopped")
			return
		case <-ctx.Done():
			d.log.Info("digest job cancelled")
			return
		}
	}
}

// untilNextRun computes the duration until the next digest hour in the
// configured timezone.
func (d *Digest) untilNextRun() time.Duration {
	now := d.clock.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), d.hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

// sendAll mails today's summary to every professor.  Sundays are
// skipped entirely: nothing can be booked on them.
func (d *Digest) sendAll(ctx context.Context) {
	now := d.clock.Now()
	if now.Weekday() == time.Sunday {
		return
	}
	date := now.Format("2006-01-02")

	professors, err := d.users.ListProfessors(ctx)
	if err != nil {
		d.log.Error("digest: list professors failed", zap.Error(err))
		return
	}
	for _, prof := range professors {
		meetings, err := d.source.FindDailyForProfessor(ctx, date, prof.ID)
		if err != nil {
			d.log.Error("digest: load daily meetings failed",
				zap.Uint64("professor_id", prof.ID), zap.Error(err))
			continue
		}
		body := d.composeBody(ctx, now, meetings)
		subject := fmt.Sprintf("Daily meeting summary - %s", now.Format("02/01/2006"))
		if err := d.mailer.Send(prof.Email, subject, body); err != nil {
			d.log.Error("digest: send failed",
				zap.Uint64("professor_id", prof.ID), zap.Error(err))
			continue
		}
		metrics.IncDigest()
		d.log.Info("digest sent",
			zap.Uint64("professor_id", prof.ID), zap.Int("meetings", len(meetings)))
	}
}

// composeBody renders the plain-text table of today's meetings.  The
// bookings arrive sorted by time slot, so the table is chronological.
func (d *Digest) composeBody(ctx context.Context, day time.Time, meetings []model.Booking) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your meetings scheduled for today (%s):\n\n", day.Format("02/01/2006"))

	if len(meetings) == 0 {
		b.WriteString("No meetings scheduled for today.\n")
		return b.String()
	}

	b.WriteString("Time | Student | Reason\n")
	b.WriteString("-----------------------------\n")
	for _, m := range meetings {
		name := "N/A"
		if u, err := d.students.FindByID(ctx, m.StudentID); err == nil {
			name = u.Name
		}
		fmt.Fprintf(&b, "%s | %s | %s\n", m.TimeSlot, name, m.Reason)
	}
	return b.String()
}
