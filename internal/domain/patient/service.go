package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// NumberSource allocates patient numbers.
type NumberSource interface {
	NextPatientNumber(ctx context.Context, now time.Time) (string, error)
}

type Service struct {
	repo    Repository
	numbers NumberSource
	log     zerolog.Logger
}

func NewService(repo Repository, numbers NumberSource, log zerolog.Logger) *Service {
	return &Service{repo: repo, numbers: numbers, log: log}
}

func (s *Service) validate(p *Patient) error {
	if p.Name == "" {
		return apperr.Validationf("name is required")
	}
	if p.DateOfBirth.IsZero() {
		return apperr.Validationf("date_of_birth is required")
	}
	if p.DateOfBirth.After(time.Now()) {
		return apperr.Validationf("date_of_birth is in the future")
	}
	if !ValidGender(p.Gender) {
		return apperr.Validationf("invalid gender %q", p.Gender)
	}
	if p.Phone == "" {
		return apperr.Validationf("phone is required")
	}
	if p.BloodGroup != nil && !ValidBloodGroup(*p.BloodGroup) {
		return apperr.Validationf("invalid blood_group %q", *p.BloodGroup)
	}
	return nil
}

// Register creates a patient record with a fresh year-scoped number.
func (s *Service) Register(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	if p.AddressCountry == "" {
		p.AddressCountry = "India"
	}
	number, err := s.numbers.NextPatientNumber(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	p.PatientNumber = number
	p.IsActive = true
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, patientNumber string) (*Patient, error) {
	return s.repo.GetByNumber(ctx, patientNumber)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, p *Patient) (*Patient, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsActive {
		return nil, apperr.InvalidStatef("patient record is deactivated")
	}
	p.ID = existing.ID
	p.PatientNumber = existing.PatientNumber
	p.RegisteredBy = existing.RegisteredBy
	if p.AddressCountry == "" {
		p.AddressCountry = existing.AddressCountry
	}
	if err := s.validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Deactivate soft-deletes a patient record. The record and its history stay
// readable.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("patient record is already deactivated")
	}
	return nil
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.SetActive(ctx, id, true)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("patient record is already active")
	}
	return nil
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	if f.Gender != "" && !ValidGender(f.Gender) {
		return nil, 0, apperr.Validationf("invalid gender %q", f.Gender)
	}
	return s.repo.List(ctx, f, limit, offset)
}

const searchLimit = 20

// Search matches name, phone, or patient number, active records only.
func (s *Service) Search(ctx context.Context, q string) ([]*Patient, error) {
	if q == "" {
		return nil, apperr.Validationf("search query is required")
	}
	return s.repo.Search(ctx, q, searchLimit)
}

func (s *Service) AttachDocument(ctx context.Context, patientID uuid.UUID, d *Document) error {
	if d.Name == "" {
		return apperr.Validationf("document name is required")
	}
	if d.URL == "" {
		return apperr.Validationf("document url is required")
	}
	if d.DocType == "" {
		d.DocType = DocOther
	}
	if !ValidDocType(d.DocType) {
		return apperr.Validationf("invalid doc_type %q", d.DocType)
	}
	if _, err := s.repo.GetByID(ctx, patientID); err != nil {
		return err
	}
	d.PatientID = patientID
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}
	return s.repo.AddDocument(ctx, d)
}

func (s *Service) Documents(ctx context.Context, patientID uuid.UUID) ([]*Document, error) {
	return s.repo.ListDocuments(ctx, patientID)
}
