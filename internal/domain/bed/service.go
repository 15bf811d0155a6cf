package bed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	if b.BedNumber == "" {
		return apperr.Validationf("bed_number is required")
	}
	if b.Ward == "" {
		return apperr.Validationf("ward is required")
	}
	if b.Type == "" {
		b.Type = TypeGeneral
	}
	if !ValidType(b.Type) {
		return apperr.Validationf("invalid bed type %q", b.Type)
	}
	if b.ChargesPerDay < 0 {
		return apperr.Validationf("charges_per_day must not be negative")
	}
	if existing, err := s.repo.GetByNumber(ctx, b.Ward, b.BedNumber); err == nil && existing != nil {
		return apperr.Conflictf("bed %s already exists in ward %s", b.BedNumber, b.Ward)
	}
	b.Status = StatusAvailable
	b.IsActive = true
	return s.repo.Create(ctx, b)
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateBed(ctx context.Context, b *Bed) error {
	current, err := s.repo.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	if b.Type != "" && !ValidType(b.Type) {
		return apperr.Validationf("invalid bed type %q", b.Type)
	}
	if b.ChargesPerDay < 0 {
		return apperr.Validationf("charges_per_day must not be negative")
	}
	// Occupied beds keep their ward and number so open admissions stay
	// consistent.
	if current.Status == StatusOccupied &&
		(b.Ward != current.Ward || b.BedNumber != current.BedNumber) {
		return apperr.InvalidStatef("cannot move an occupied bed")
	}
	return s.repo.Update(ctx, b)
}

// DeactivateBed retires a bed from service. Occupied or reserved beds must
// be freed first.
func (s *Service) DeactivateBed(ctx context.Context, id uuid.UUID) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == StatusOccupied || b.Status == StatusReserved {
		return apperr.InvalidStatef("cannot deactivate a bed in %s state", b.Status)
	}
	return s.repo.SetActive(ctx, id, false)
}

func (s *Service) ReactivateBed(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, true)
}

func (s *Service) ListBeds(ctx context.Context, f Filter, limit, offset int) ([]*Bed, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validationf("invalid status %q", f.Status)
	}
	if f.Type != "" && !ValidType(f.Type) {
		return nil, 0, apperr.Validationf("invalid bed type %q", f.Type)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Assign claims the bed for an admission. The available -> occupied move is
// one guarded statement, so two concurrent callers for the same bed cannot
// both win. A reservation held for the same patient is honored. An id that
// resolves to no bed fails NotFound, not Conflict.
func (s *Service) Assign(ctx context.Context, bedID, patientID, admissionID uuid.UUID) error {
	ok, err := s.repo.AssignIfAvailable(ctx, bedID, patientID, admissionID)
	if err != nil {
		return err
	}
	if !ok {
		ok, err = s.repo.AssignIfReservedFor(ctx, bedID, patientID, admissionID)
		if err != nil {
			return err
		}
	}
	if !ok {
		if _, err := s.repo.GetByID(ctx, bedID); err != nil {
			return err
		}
		return apperr.Conflictf("bed is not available")
	}
	s.recordHistory(ctx, bedID, &patientID, &admissionID, EventAssigned, nil, nil)
	return nil
}

// Reserve holds an available bed for a patient ahead of admission.
func (s *Service) Reserve(ctx context.Context, bedID, patientID uuid.UUID) error {
	ok, err := s.repo.ReserveIfAvailable(ctx, bedID, patientID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflictf("bed is not available for reservation")
	}
	s.recordHistory(ctx, bedID, &patientID, nil, EventReserved, nil, nil)
	return nil
}

func (s *Service) CancelReservation(ctx context.Context, bedID uuid.UUID) error {
	ok, err := s.repo.FreeReservation(ctx, bedID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidStatef("bed is not reserved")
	}
	s.recordHistory(ctx, bedID, nil, nil, EventReservationFreed, nil, nil)
	return nil
}

// Release frees an occupied bed into the cleaning state. The history entry
// records the occupant the release cleared together with the start of the
// stay. A missing bed fails NotFound.
func (s *Service) Release(ctx context.Context, bedID uuid.UUID) error {
	occ, err := s.repo.ReleaseIfOccupied(ctx, bedID)
	if err != nil {
		return err
	}
	if occ == nil {
		if _, err := s.repo.GetByID(ctx, bedID); err != nil {
			return err
		}
		return apperr.InvalidStatef("bed is not occupied")
	}
	s.recordHistory(ctx, bedID, occ.PatientID, occ.AdmissionID, EventReleased, nil, occ.OccupiedSince)
	return nil
}

func (s *Service) CompleteCleaning(ctx context.Context, bedID uuid.UUID) error {
	ok, err := s.repo.CompleteCleaning(ctx, bedID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidStatef("bed is not in cleaning state")
	}
	s.recordHistory(ctx, bedID, nil, nil, EventCleaningDone, nil, nil)
	return nil
}

func (s *Service) SetMaintenance(ctx context.Context, bedID uuid.UUID, note *string) error {
	ok, err := s.repo.SetMaintenance(ctx, bedID, note)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidStatef("only available or cleaning beds can enter maintenance")
	}
	s.recordHistory(ctx, bedID, nil, nil, EventMaintenanceSet, note, nil)
	return nil
}

func (s *Service) EndMaintenance(ctx context.Context, bedID uuid.UUID) error {
	ok, err := s.repo.EndMaintenance(ctx, bedID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidStatef("bed is not in maintenance")
	}
	return nil
}

func (s *Service) WardSummary(ctx context.Context) ([]*WardOccupancy, error) {
	return s.repo.WardSummary(ctx)
}

func (s *Service) History(ctx context.Context, bedID uuid.UUID, limit, offset int) ([]*OccupancyRecord, int, error) {
	return s.repo.ListHistory(ctx, bedID, limit, offset)
}

// recordHistory is best effort. A failed history write never rolls back the
// state change it describes.
func (s *Service) recordHistory(ctx context.Context, bedID uuid.UUID, patientID, admissionID *uuid.UUID, event string, note *string, occupiedSince *time.Time) {
	rec := &OccupancyRecord{
		BedID:         bedID,
		PatientID:     patientID,
		AdmissionID:   admissionID,
		Event:         event,
		OccupiedSince: occupiedSince,
		OccurredAt:    time.Now().UTC(),
		Note:          note,
	}
	if err := s.repo.AddHistory(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("bed_id", bedID.String()).Str("event", event).
			Msg("failed to record bed occupancy history")
	}
}
