package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/staff"
	"github.com/hms/hms/pkg/apperr"
)

// slotMinutes is the booking grid granularity.
const slotMinutes = 30

// NumberSource allocates appointment numbers.
type NumberSource interface {
	NextAppointmentNumber(ctx context.Context) (string, error)
}

// DoctorSource exposes the consulting doctor's fee and weekly schedule.
// Satisfied by staff.Service.
type DoctorSource interface {
	ConsultationFee(ctx context.Context, doctorID uuid.UUID) (float64, error)
	ScheduleFor(ctx context.Context, doctorID uuid.UUID, weekday time.Weekday) (*staff.ScheduleSlot, error)
}

type Service struct {
	repo    Repository
	numbers NumberSource
	doctors DoctorSource
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, numbers NumberSource, doctors DoctorSource, log zerolog.Logger) *Service {
	return &Service{repo: repo, numbers: numbers, doctors: doctors, log: log, now: time.Now}
}

func parseClock(v string) (int, bool) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func clockString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// BookRequest books an appointment slot.
type BookRequest struct {
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	AppointmentDate time.Time  `json:"appointment_date"`
	SlotStart       string     `json:"slot_start"`
	Type            string     `json:"type"`
	Reason          *string    `json:"reason"`
	Symptoms        []string   `json:"symptoms"`
	BookedBy        *uuid.UUID `json:"-"`
	RescheduledFrom *uuid.UUID `json:"-"`
}

func (r *BookRequest) validate() error {
	if r.PatientID == uuid.Nil {
		return apperr.Validationf("patient_id is required")
	}
	if r.DoctorID == uuid.Nil {
		return apperr.Validationf("doctor_id is required")
	}
	if r.AppointmentDate.IsZero() {
		return apperr.Validationf("appointment_date is required")
	}
	if r.SlotStart == "" {
		return apperr.Validationf("slot_start is required")
	}
	if _, ok := parseClock(r.SlotStart); !ok {
		return apperr.Validationf("invalid slot_start %q, expected HH:MM", r.SlotStart)
	}
	if r.Type == "" {
		r.Type = TypeOPD
	}
	if !ValidType(r.Type) {
		return apperr.Validationf("invalid type %q", r.Type)
	}
	return nil
}

// Book reserves a slot on a doctor's day. The slot must lie on the booking
// grid inside the doctor's consulting window, and the conditional insert
// rejects a slot already held by a live booking.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	day := req.AppointmentDate.Truncate(24 * time.Hour)
	today := s.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return nil, apperr.Validationf("appointment_date must not be in the past")
	}

	fee, err := s.doctors.ConsultationFee(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	window, err := s.doctors.ScheduleFor(ctx, req.DoctorID, day.Weekday())
	if err != nil {
		return nil, err
	}
	if window == nil {
		return nil, apperr.InvalidStatef("doctor does not consult on %s", day.Weekday())
	}
	start, _ := parseClock(req.SlotStart)
	winStart, _ := parseClock(window.StartTime)
	winEnd, _ := parseClock(window.EndTime)
	if start < winStart || start+slotMinutes > winEnd {
		return nil, apperr.Validationf("slot %s is outside consulting hours %s to %s",
			req.SlotStart, window.StartTime, window.EndTime)
	}
	if (start-winStart)%slotMinutes != 0 {
		return nil, apperr.Validationf("slot %s is not on the booking grid", req.SlotStart)
	}

	number, err := s.numbers.NextAppointmentNumber(ctx)
	if err != nil {
		return nil, err
	}
	a := &Appointment{
		AppointmentNumber: number,
		PatientID:         req.PatientID,
		DoctorID:          req.DoctorID,
		AppointmentDate:   day,
		SlotStart:         req.SlotStart,
		SlotEnd:           clockString(start + slotMinutes),
		Type:              req.Type,
		Status:            StatusScheduled,
		Reason:            req.Reason,
		Symptoms:          req.Symptoms,
		Fee:               fee,
		PaymentStatus:     PaymentPending,
		RescheduledFrom:   req.RescheduledFrom,
		BookedBy:          req.BookedBy,
	}
	ok, err := s.repo.CreateIfSlotFree(ctx, a)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflictf("slot %s on %s is already booked",
			req.SlotStart, day.Format("2006-01-02"))
	}
	s.log.Info().Str("appointment_number", a.AppointmentNumber).
		Str("doctor_id", a.DoctorID.String()).Str("slot", a.SlotStart).
		Msg("appointment booked")
	return a, nil
}

// Get resolves an appointment by id or by appointment number.
func (s *Service) Get(ctx context.Context, ref string) (*Appointment, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetByNumber(ctx, ref)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validationf("invalid status %q", f.Status)
	}
	if f.Type != "" && !ValidType(f.Type) {
		return nil, 0, apperr.Validationf("invalid type %q", f.Type)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Today lists today's non-cancelled appointments in slot order.
func (s *Service) Today(ctx context.Context) ([]*Appointment, error) {
	return s.repo.Today(ctx)
}

// AvailableSlots walks the doctor's consulting window for a date on the
// booking grid and marks slots held by live bookings.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	day := date.Truncate(24 * time.Hour)
	window, err := s.doctors.ScheduleFor(ctx, doctorID, day.Weekday())
	if err != nil {
		return nil, err
	}
	if window == nil {
		return []Slot{}, nil
	}
	booked, err := s.repo.BookedSlotStarts(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}
	winStart, _ := parseClock(window.StartTime)
	winEnd, _ := parseClock(window.EndTime)
	var slots []Slot
	for m := winStart; m+slotMinutes <= winEnd; m += slotMinutes {
		start := clockString(m)
		slots = append(slots, Slot{
			Start:     start,
			End:       clockString(m + slotMinutes),
			Available: !taken[start],
		})
	}
	return slots, nil
}

// UpdateStatus moves an appointment along the check-in flow.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, apperr.Validationf("invalid status %q", to)
	}
	if to == StatusCancelled || to == StatusRescheduled {
		return nil, apperr.Validationf("status %s is set through its own operation", to)
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, to) {
		return nil, apperr.InvalidStatef("cannot move appointment from %s to %s", a.Status, to)
	}
	ok, err := s.repo.SetStatusGuarded(ctx, id, a.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidStatef("appointment is no longer %s", a.Status)
	}
	return s.repo.GetByID(ctx, id)
}

// Cancel releases the slot and records who called it off and why.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, by, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, apperr.Validationf("reason is required")
	}
	ok, err := s.repo.Cancel(ctx, id, by, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidStatef("cannot cancel a %s appointment", a.Status)
	}
	return s.repo.GetByID(ctx, id)
}

// Reschedule books a new slot and retires the old appointment. The old
// booking keeps holding its slot until the new one lands, so a failed
// rebooking leaves the original untouched.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, slotStart string, by *uuid.UUID) (*Appointment, error) {
	old, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if old.Status != StatusScheduled && old.Status != StatusConfirmed {
		return nil, apperr.InvalidStatef("cannot reschedule a %s appointment", old.Status)
	}

	req := BookRequest{
		PatientID:       old.PatientID,
		DoctorID:        old.DoctorID,
		AppointmentDate: date,
		SlotStart:       slotStart,
		Type:            old.Type,
		Reason:          old.Reason,
		Symptoms:        old.Symptoms,
		BookedBy:        by,
		RescheduledFrom: &old.ID,
	}
	replacement, err := s.Book(ctx, req)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.MarkRescheduled(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Warn().Str("appointment_number", old.AppointmentNumber).
			Msg("original appointment moved while rescheduling")
	}
	return replacement, nil
}

// MarkPayment settles or waives the appointment fee.
func (s *Service) MarkPayment(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	if status != PaymentPaid && status != PaymentWaived {
		return nil, apperr.Validationf("payment status must be %s or %s", PaymentPaid, PaymentWaived)
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.PaymentStatus != PaymentPending {
		return nil, apperr.InvalidStatef("appointment payment is already %s", a.PaymentStatus)
	}
	if err := s.repo.SetPaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	a.PaymentStatus = status
	return a, nil
}
