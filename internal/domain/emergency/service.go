package emergency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// BedBinder is the slice of the bed registry the emergency department uses.
type BedBinder interface {
	Assign(ctx context.Context, bedID, patientID, admissionID uuid.UUID) error
	Release(ctx context.Context, bedID uuid.UUID) error
}

// NumberSource allocates case numbers.
type NumberSource interface {
	NextEmergencyNumber(ctx context.Context, now time.Time) (string, error)
}

type Service struct {
	repo    Repository
	beds    BedBinder
	numbers NumberSource
	log     zerolog.Logger
}

func NewService(repo Repository, beds BedBinder, numbers NumberSource, log zerolog.Logger) *Service {
	return &Service{repo: repo, beds: beds, numbers: numbers, log: log}
}

// RegisterRequest carries an intake. PatientID is nil for unidentified
// arrivals.
type RegisterRequest struct {
	PatientID         *uuid.UUID `json:"patient_id,omitempty"`
	UnknownName       *string    `json:"unknown_name,omitempty"`
	UnknownAge        *int       `json:"unknown_age,omitempty"`
	UnknownGender     *string    `json:"unknown_gender,omitempty"`
	BystanderName     *string    `json:"bystander_name,omitempty"`
	BystanderPhone    *string    `json:"bystander_phone,omitempty"`
	BystanderRelation *string    `json:"bystander_relation,omitempty"`
	ArrivalMode       string     `json:"arrival_mode"`
	TriageLevel       *string    `json:"triage_level,omitempty"`
	ChiefComplaint    *string    `json:"chief_complaint,omitempty"`
	InjuryMechanism   *string    `json:"injury_mechanism,omitempty"`
	AttendingDoctorID *uuid.UUID `json:"attending_doctor_id,omitempty"`
	BedID             *uuid.UUID `json:"bed_id,omitempty"`
	IsMLC             bool       `json:"is_mlc"`
	MLCPoliceStation  *string    `json:"mlc_police_station,omitempty"`
	MLCReportNumber   *string    `json:"mlc_report_number,omitempty"`
	RegisteredBy      *uuid.UUID `json:"-"`
}

func (r *RegisterRequest) validate() error {
	if r.ArrivalMode == "" {
		r.ArrivalMode = ArrivalWalkIn
	}
	if !ValidArrivalMode(r.ArrivalMode) {
		return apperr.Validationf("invalid arrival_mode %q", r.ArrivalMode)
	}
	if r.TriageLevel != nil && !ValidTriageLevel(*r.TriageLevel) {
		return apperr.Validationf("invalid triage_level %q", *r.TriageLevel)
	}
	if r.PatientID == nil && r.UnknownName == nil {
		name := "Unknown"
		r.UnknownName = &name
	}
	return nil
}

// RegisterCase opens a case and, when a bed was requested, tries to claim
// it. Registration never fails on bed unavailability: a lost bed race is
// logged and the case stays unbedded.
func (s *Service) RegisterCase(ctx context.Context, req *RegisterRequest) (*Case, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	number, err := s.numbers.NextEmergencyNumber(ctx, now)
	if err != nil {
		return nil, err
	}
	c := &Case{
		CaseNumber:        number,
		PatientID:         req.PatientID,
		UnknownName:       req.UnknownName,
		UnknownAge:        req.UnknownAge,
		UnknownGender:     req.UnknownGender,
		BystanderName:     req.BystanderName,
		BystanderPhone:    req.BystanderPhone,
		BystanderRelation: req.BystanderRelation,
		ArrivalMode:       req.ArrivalMode,
		ArrivedAt:         now,
		TriageLevel:       req.TriageLevel,
		ChiefComplaint:    req.ChiefComplaint,
		InjuryMechanism:   req.InjuryMechanism,
		AttendingDoctorID: req.AttendingDoctorID,
		Status:            StatusActive,
		IsMLC:             req.IsMLC,
		MLCPoliceStation:  req.MLCPoliceStation,
		MLCReportNumber:   req.MLCReportNumber,
		RegisteredBy:      req.RegisteredBy,
	}
	if req.TriageLevel != nil {
		c.TriagedBy = req.RegisteredBy
		c.TriagedAt = &now
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	if req.BedID != nil {
		if err := s.bindBed(ctx, c, *req.BedID); err != nil {
			s.log.Warn().Err(err).
				Str("case_number", c.CaseNumber).
				Str("bed_id", req.BedID.String()).
				Msg("emergency case registered without bed")
		}
	}
	return c, nil
}

// bindBed claims the bed and records it on the case. An unidentified
// occupant is stored as the zero patient id until the patient record
// catches up.
func (s *Service) bindBed(ctx context.Context, c *Case, bedID uuid.UUID) error {
	patientID := uuid.Nil
	if c.PatientID != nil {
		patientID = *c.PatientID
	}
	if err := s.beds.Assign(ctx, bedID, patientID, c.ID); err != nil {
		return err
	}
	ok, err := s.repo.SetBedIfOpen(ctx, c.ID, &bedID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.InvalidStatef("case is already closed")
	}
	c.BedID = &bedID
	return nil
}

func (s *Service) GetCase(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetCaseByNumber(ctx context.Context, caseNumber string) (*Case, error) {
	return s.repo.GetByNumber(ctx, caseNumber)
}

func (s *Service) ListCases(ctx context.Context, f Filter, limit, offset int) ([]*Case, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validationf("invalid status %q", f.Status)
	}
	if f.TriageLevel != "" && !ValidTriageLevel(f.TriageLevel) {
		return nil, 0, apperr.Validationf("invalid triage_level %q", f.TriageLevel)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// TriageUpdate reclassifies an open case.
type TriageUpdate struct {
	Level           string     `json:"level"`
	ChiefComplaint  *string    `json:"chief_complaint,omitempty"`
	InjuryMechanism *string    `json:"injury_mechanism,omitempty"`
	PerformedBy     *uuid.UUID `json:"-"`
}

func (s *Service) UpdateTriage(ctx context.Context, id uuid.UUID, upd *TriageUpdate) (*Case, error) {
	if !ValidTriageLevel(upd.Level) {
		return nil, apperr.Validationf("invalid triage_level %q", upd.Level)
	}
	c, err := s.requireOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c.TriageLevel = &upd.Level
	c.TriagedBy = upd.PerformedBy
	c.TriagedAt = &now
	if upd.ChiefComplaint != nil {
		c.ChiefComplaint = upd.ChiefComplaint
	}
	if upd.InjuryMechanism != nil {
		c.InjuryMechanism = upd.InjuryMechanism
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateStatus moves an open case between the working statuses. Terminal
// statuses are only set through Disposition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Case, error) {
	if !ValidStatus(status) {
		return nil, apperr.Validationf("invalid status %q", status)
	}
	if IsTerminal(status) {
		return nil, apperr.InvalidStatef("status %s is set through disposition", status)
	}
	ok, err := s.repo.SetStatusIfOpen(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperr.InvalidStatef("case is already closed")
	}
	return s.repo.GetByID(ctx, id)
}

// IdentifyPatient links a registered patient to a case opened as unknown.
func (s *Service) IdentifyPatient(ctx context.Context, id, patientID uuid.UUID) (*Case, error) {
	c, err := s.requireOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.PatientID != nil {
		return nil, apperr.InvalidStatef("case already has a patient")
	}
	c.PatientID = &patientID
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AssignBed is the explicit bed claim, distinct from the best-effort claim
// at registration. A lost race surfaces as Conflict here.
func (s *Service) AssignBed(ctx context.Context, id, bedID uuid.UUID) (*Case, error) {
	c, err := s.requireOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.BedID != nil {
		return nil, apperr.InvalidStatef("case already has a bed")
	}
	if err := s.bindBed(ctx, c, bedID); err != nil {
		return nil, err
	}
	return c, nil
}

// MarkMLC flags a case as a medico-legal case and records the police report.
func (s *Service) MarkMLC(ctx context.Context, id uuid.UUID, station, reportNumber, officer *string, reportedAt *time.Time) (*Case, error) {
	c, err := s.requireOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	c.IsMLC = true
	c.MLCPoliceStation = station
	c.MLCReportNumber = reportNumber
	c.MLCOfficerName = officer
	c.MLCReportedAt = reportedAt
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DispositionRequest closes a case.
type DispositionRequest struct {
	Type        string     `json:"type"`
	Notes       *string    `json:"notes,omitempty"`
	AdmissionID *uuid.UUID `json:"admission_id,omitempty"`
}

// Disposition closes the case and frees any bound bed. The bed release is
// best effort: the disposition outcome takes priority over bed bookkeeping,
// so a release that lost a race is logged, not failed.
func (s *Service) Disposition(ctx context.Context, id uuid.UUID, req *DispositionRequest) (*Case, error) {
	if !ValidDisposition(req.Type) {
		return nil, apperr.Validationf("invalid disposition type %q", req.Type)
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(c.Status) {
		return nil, apperr.InvalidStatef("case is already closed")
	}

	now := time.Now().UTC()
	boundBed := c.BedID
	c.Status = dispositionStatusFor(req.Type)
	c.DispositionType = &req.Type
	c.DispositionNotes = req.Notes
	c.AdmissionID = req.AdmissionID
	c.DischargedAt = &now

	ok, err := s.repo.CloseIfOpen(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidStatef("case is already closed")
	}
	c.BedID = nil

	if boundBed != nil {
		if err := s.beds.Release(ctx, *boundBed); err != nil {
			s.log.Warn().Err(err).
				Str("case_number", c.CaseNumber).
				Str("bed_id", boundBed.String()).
				Msg("bed release skipped on disposition")
		}
	}
	return c, nil
}

func (s *Service) AddVital(ctx context.Context, caseID uuid.UUID, v *Vital) error {
	if _, err := s.requireOpen(ctx, caseID); err != nil {
		return err
	}
	v.CaseID = caseID
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now().UTC()
	}
	return s.repo.AddVital(ctx, v)
}

func (s *Service) Vitals(ctx context.Context, caseID uuid.UUID) ([]*Vital, error) {
	return s.repo.ListVitals(ctx, caseID)
}

func (s *Service) AddTreatmentNote(ctx context.Context, caseID uuid.UUID, n *TreatmentNote) error {
	if n.Note == "" {
		return apperr.Validationf("note text is required")
	}
	if _, err := s.requireOpen(ctx, caseID); err != nil {
		return err
	}
	n.CaseID = caseID
	if n.WrittenAt.IsZero() {
		n.WrittenAt = time.Now().UTC()
	}
	return s.repo.AddTreatmentNote(ctx, n)
}

func (s *Service) TreatmentNotes(ctx context.Context, caseID uuid.UUID) ([]*TreatmentNote, error) {
	return s.repo.ListTreatmentNotes(ctx, caseID)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx, time.Now().UTC())
}

func (s *Service) requireOpen(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(c.Status) {
		return nil, apperr.InvalidStatef("case is already closed")
	}
	return c, nil
}
