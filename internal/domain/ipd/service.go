package ipd

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// BedAllocator is the slice of the bed registry the admission lifecycle
// needs. Assign and Release run guarded transitions; Assign returns a
// conflict error when the bed is not free.
type BedAllocator interface {
	Assign(ctx context.Context, bedID, patientID, admissionID uuid.UUID) error
	Release(ctx context.Context, bedID uuid.UUID) error
}

// NumberSource allocates admission numbers.
type NumberSource interface {
	NextAdmissionNumber(ctx context.Context, now time.Time) (string, error)
}

// TxRunner runs fn atomically. Repository calls inside fn share one
// transaction through the context.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	admissions AdmissionRepository
	chart      ChartRepository
	beds       BedAllocator
	numbers    NumberSource
	tx         TxRunner
	log        zerolog.Logger
}

func NewService(admissions AdmissionRepository, chart ChartRepository, beds BedAllocator,
	numbers NumberSource, tx TxRunner, log zerolog.Logger) *Service {
	return &Service{
		admissions: admissions,
		chart:      chart,
		beds:       beds,
		numbers:    numbers,
		tx:         tx,
		log:        log,
	}
}

// AdmitRequest carries the fields needed to open an admission.
type AdmitRequest struct {
	PatientID            uuid.UUID  `json:"patient_id"`
	BedID                *uuid.UUID `json:"bed_id,omitempty"`
	AdmittingDoctorID    uuid.UUID  `json:"admitting_doctor_id"`
	Department           *string    `json:"department,omitempty"`
	AdmissionType        string     `json:"admission_type"`
	ChiefComplaint       *string    `json:"chief_complaint,omitempty"`
	ProvisionalDiagnosis string     `json:"provisional_diagnosis"`
	ExpectedDischargeAt  *time.Time `json:"expected_discharge_at,omitempty"`
	AdvanceDeposit       float64    `json:"advance_deposit"`
	AttendantName        *string    `json:"attendant_name,omitempty"`
	AttendantPhone       *string    `json:"attendant_phone,omitempty"`
	AttendantRelation    *string    `json:"attendant_relation,omitempty"`
	EmergencyCaseID      *uuid.UUID `json:"emergency_case_id,omitempty"`
	CreatedBy            *uuid.UUID `json:"-"`
}

func (r *AdmitRequest) validate() error {
	if r.PatientID == uuid.Nil {
		return apperr.Validationf("patient_id is required")
	}
	if r.BedID != nil && *r.BedID == uuid.Nil {
		r.BedID = nil
	}
	if r.AdmittingDoctorID == uuid.Nil {
		return apperr.Validationf("admitting_doctor_id is required")
	}
	if r.ProvisionalDiagnosis == "" {
		return apperr.Validationf("provisional_diagnosis is required")
	}
	if r.AdvanceDeposit < 0 {
		return apperr.Validationf("advance_deposit must not be negative")
	}
	switch r.AdmissionType {
	case "":
		r.AdmissionType = AdmissionPlanned
	case AdmissionPlanned, AdmissionEmergency, AdmissionTransfer:
	default:
		return apperr.Validationf("invalid admission_type %q", r.AdmissionType)
	}
	return nil
}

// Admit opens an admission and, when a bed was requested, claims it in the
// same transaction. When the bed claim loses, the whole admission rolls back
// and the caller sees a conflict; no half-admitted record survives. Without
// a bed the admission opens unbedded and gains one later via TransferBed.
func (s *Service) Admit(ctx context.Context, req *AdmitRequest) (*Admission, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if open, _, err := s.admissions.List(ctx, Filter{PatientID: &req.PatientID, ActiveOnly: true}, 1, 0); err != nil {
		return nil, err
	} else if len(open) > 0 {
		return nil, apperr.Conflictf("patient already has an open admission %s", open[0].AdmissionNumber)
	}

	now := time.Now().UTC()
	a := &Admission{
		PatientID:            req.PatientID,
		BedID:                req.BedID,
		AdmittingDoctorID:    req.AdmittingDoctorID,
		Department:           req.Department,
		AdmissionType:        req.AdmissionType,
		ChiefComplaint:       req.ChiefComplaint,
		ProvisionalDiagnosis: req.ProvisionalDiagnosis,
		Status:               StatusAdmitted,
		AdmittedAt:           now,
		ExpectedDischargeAt:  req.ExpectedDischargeAt,
		AdvanceDeposit:       req.AdvanceDeposit,
		AttendantName:        req.AttendantName,
		AttendantPhone:       req.AttendantPhone,
		AttendantRelation:    req.AttendantRelation,
		EmergencyCaseID:      req.EmergencyCaseID,
		CreatedBy:            req.CreatedBy,
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		number, err := s.numbers.NextAdmissionNumber(ctx, now)
		if err != nil {
			return err
		}
		a.AdmissionNumber = number
		if err := s.admissions.Create(ctx, a); err != nil {
			return err
		}
		if req.BedID != nil {
			if err := s.beds.Assign(ctx, *req.BedID, req.PatientID, a.ID); err != nil {
				return err
			}
		}
		return s.admissions.AddStatusChange(ctx, &StatusChange{
			AdmissionID: a.ID,
			Status:      StatusAdmitted,
			ChangedAt:   now,
			ChangedBy:   req.CreatedBy,
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.admissions.GetByID(ctx, id)
}

func (s *Service) GetAdmissionByNumber(ctx context.Context, number string) (*Admission, error) {
	return s.admissions.GetByNumber(ctx, number)
}

func (s *Service) ListAdmissions(ctx context.Context, f Filter, limit, offset int) ([]*Admission, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validationf("invalid status %q", f.Status)
	}
	return s.admissions.List(ctx, f, limit, offset)
}

func (s *Service) CountByStatus(ctx context.Context) (map[string]int, error) {
	return s.admissions.CountByStatus(ctx)
}

func (s *Service) UpdateDetails(ctx context.Context, a *Admission) error {
	current, err := s.admissions.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	if IsTerminal(current.Status) {
		return apperr.InvalidStatef("admission %s is closed", current.AdmissionNumber)
	}
	if a.AdvanceDeposit < 0 {
		return apperr.Validationf("advance_deposit must not be negative")
	}
	return s.admissions.UpdateDetails(ctx, a)
}

// UpdateStatus moves an open admission between clinical statuses. Terminal
// statuses are reached only through Discharge.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, changedBy *uuid.UUID, note *string) error {
	if !ValidStatus(status) {
		return apperr.Validationf("invalid status %q", status)
	}
	if IsTerminal(status) {
		return apperr.Validationf("status %q is set by discharge, not directly", status)
	}
	ok, err := s.admissions.SetStatusIfActive(ctx, id, status)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.admissions.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.InvalidStatef("admission is closed")
	}
	return s.admissions.AddStatusChange(ctx, &StatusChange{
		AdmissionID: id,
		Status:      status,
		ChangedAt:   time.Now().UTC(),
		ChangedBy:   changedBy,
		Note:        note,
	})
}

// TransferBed moves an open admission to a new bed atomically: the new bed
// is claimed, the old one released, and the admission repointed, or none of
// it happens. A registry that disagrees about the old bed aborts the
// transfer as inconsistent rather than leaving the patient on two beds.
// An unbedded admission gains its first bed here; there is no source bed to
// release in that case.
func (s *Service) TransferBed(ctx context.Context, admissionID, toBedID uuid.UUID, reason *string, by *uuid.UUID) (*Admission, error) {
	a, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(a.Status) {
		return nil, apperr.InvalidStatef("admission %s is closed", a.AdmissionNumber)
	}
	if a.BedID != nil && *a.BedID == toBedID {
		return nil, apperr.Validationf("admission already occupies that bed")
	}

	fromBedID := a.BedID
	now := time.Now().UTC()
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.beds.Assign(ctx, toBedID, a.PatientID, a.ID); err != nil {
			return err
		}
		if fromBedID != nil {
			if err := s.beds.Release(ctx, *fromBedID); err != nil {
				return apperr.Inconsistentf("bed registry disagrees about bed %s: %v", *fromBedID, err)
			}
		}
		ok, err := s.admissions.SetBedIfActive(ctx, admissionID, toBedID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Conflictf("admission was closed during transfer")
		}
		return s.admissions.AddBedTransfer(ctx, &BedTransfer{
			AdmissionID:   admissionID,
			FromBedID:     fromBedID,
			ToBedID:       toBedID,
			Reason:        reason,
			TransferredBy: by,
			TransferredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	a.BedID = &toBedID
	return a, nil
}

// DischargeRequest carries discharge details.
type DischargeRequest struct {
	DischargeType    string     `json:"discharge_type"`
	DischargeSummary *string    `json:"discharge_summary,omitempty"`
	FinalDiagnosis   *string    `json:"final_diagnosis,omitempty"`
	DischargedBy     *uuid.UUID `json:"-"`
}

// Discharge closes an admission and frees its bed in one transaction. The
// admission close and the bed release either both land or neither does; a
// bed the registry no longer shows as occupied aborts the discharge as
// inconsistent. Closing clears the bed reference, so terminal admissions
// never point at a bed; unbedded admissions close without a release.
func (s *Service) Discharge(ctx context.Context, admissionID uuid.UUID, req *DischargeRequest) (*Admission, error) {
	if req.DischargeType == "" {
		req.DischargeType = DischargeNormal
	}
	if !ValidDischargeType(req.DischargeType) {
		return nil, apperr.Validationf("invalid discharge_type %q", req.DischargeType)
	}

	a, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(a.Status) {
		return nil, apperr.InvalidStatef("admission %s is already closed", a.AdmissionNumber)
	}

	now := time.Now().UTC()
	a.Status = dischargeStatusFor(req.DischargeType)
	a.DischargedAt = &now
	a.DischargeType = &req.DischargeType
	a.DischargeSummary = req.DischargeSummary
	a.FinalDiagnosis = req.FinalDiagnosis

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.admissions.CloseIfActive(ctx, a)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidStatef("admission %s is already closed", a.AdmissionNumber)
		}
		if a.BedID != nil {
			if err := s.beds.Release(ctx, *a.BedID); err != nil {
				return apperr.Inconsistentf("bed registry disagrees about bed %s: %v", *a.BedID, err)
			}
		}
		return s.admissions.AddStatusChange(ctx, &StatusChange{
			AdmissionID: admissionID,
			Status:      a.Status,
			ChangedAt:   now,
			ChangedBy:   req.DischargedBy,
		})
	})
	if err != nil {
		return nil, err
	}
	a.BedID = nil
	return a, nil
}

// -- Clinical record streams --

func (s *Service) requireOpen(ctx context.Context, admissionID uuid.UUID) error {
	a, err := s.admissions.GetByID(ctx, admissionID)
	if err != nil {
		return err
	}
	if IsTerminal(a.Status) {
		return apperr.InvalidStatef("admission %s is closed", a.AdmissionNumber)
	}
	return nil
}

func (s *Service) AddVital(ctx context.Context, v *VitalRecord) error {
	if err := s.requireOpen(ctx, v.AdmissionID); err != nil {
		return err
	}
	if v.RecordedAt.IsZero() {
		v.RecordedAt = time.Now().UTC()
	}
	return s.chart.AddVital(ctx, v)
}

func (s *Service) ListVitals(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalRecord, int, error) {
	return s.chart.ListVitals(ctx, admissionID, limit, offset)
}

func (s *Service) AddNote(ctx context.Context, n *ProgressNote) error {
	if n.Note == "" {
		return apperr.Validationf("note is required")
	}
	if err := s.requireOpen(ctx, n.AdmissionID); err != nil {
		return err
	}
	if n.AuthoredAt.IsZero() {
		n.AuthoredAt = time.Now().UTC()
	}
	return s.chart.AddNote(ctx, n)
}

func (s *Service) ListNotes(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*ProgressNote, int, error) {
	return s.chart.ListNotes(ctx, admissionID, limit, offset)
}

func (s *Service) AddMedicationOrder(ctx context.Context, o *MedicationOrder) error {
	if o.Medicine == "" {
		return apperr.Validationf("medicine is required")
	}
	if o.Dose == "" {
		return apperr.Validationf("dose is required")
	}
	if o.Frequency == "" {
		return apperr.Validationf("frequency is required")
	}
	if err := s.requireOpen(ctx, o.AdmissionID); err != nil {
		return err
	}
	o.Status = OrderActive
	if o.StartAt.IsZero() {
		o.StartAt = time.Now().UTC()
	}
	return s.chart.AddMedicationOrder(ctx, o)
}

func (s *Service) StopMedicationOrder(ctx context.Context, orderID uuid.UUID) error {
	ok, err := s.chart.SetOrderStatus(ctx, orderID, OrderStopped)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.chart.GetMedicationOrder(ctx, orderID); err != nil {
			return err
		}
		return apperr.InvalidStatef("medication order is not active")
	}
	return nil
}

func (s *Service) ListMedicationOrders(ctx context.Context, admissionID uuid.UUID) ([]*MedicationOrder, error) {
	return s.chart.ListMedicationOrders(ctx, admissionID)
}

// RecordAdministration appends a medication administration outcome. The
// referenced order must belong to the same admission.
func (s *Service) RecordAdministration(ctx context.Context, m *MedicationAdministration) error {
	if !ValidMAROutcome(m.Outcome) {
		return apperr.Validationf("invalid administration outcome %q", m.Outcome)
	}
	if m.OrderID == uuid.Nil {
		return apperr.Validationf("order_id is required")
	}
	if err := s.requireOpen(ctx, m.AdmissionID); err != nil {
		return err
	}
	o, err := s.chart.GetMedicationOrder(ctx, m.OrderID)
	if err != nil {
		return err
	}
	if o.AdmissionID != m.AdmissionID {
		return apperr.Validationf("medication order belongs to another admission")
	}
	if m.AdministeredAt.IsZero() {
		m.AdministeredAt = time.Now().UTC()
	}
	return s.chart.AddAdministration(ctx, m)
}

func (s *Service) ListAdministrations(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*MedicationAdministration, int, error) {
	return s.chart.ListAdministrations(ctx, admissionID, limit, offset)
}

func (s *Service) AddDressing(ctx context.Context, d *DressingRecord) error {
	if err := s.requireOpen(ctx, d.AdmissionID); err != nil {
		return err
	}
	if d.PerformedAt.IsZero() {
		d.PerformedAt = time.Now().UTC()
	}
	return s.chart.AddDressing(ctx, d)
}

func (s *Service) ListDressings(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*DressingRecord, int, error) {
	return s.chart.ListDressings(ctx, admissionID, limit, offset)
}

func (s *Service) AddProcedure(ctx context.Context, p *ProcedureRecord) error {
	if err := s.requireOpen(ctx, p.AdmissionID); err != nil {
		return err
	}
	if p.Name == "" {
		return apperr.Validationf("procedure name is required")
	}
	if p.PerformedAt.IsZero() {
		p.PerformedAt = time.Now().UTC()
	}
	return s.chart.AddProcedure(ctx, p)
}

func (s *Service) ListProcedures(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*ProcedureRecord, int, error) {
	return s.chart.ListProcedures(ctx, admissionID, limit, offset)
}

func (s *Service) AddSurgery(ctx context.Context, sr *SurgeryRecord) error {
	if err := s.requireOpen(ctx, sr.AdmissionID); err != nil {
		return err
	}
	if sr.Name == "" {
		return apperr.Validationf("surgery name is required")
	}
	if sr.ScheduledAt == nil && sr.PerformedAt == nil {
		return apperr.Validationf("surgery needs a scheduled or performed time")
	}
	if sr.RecordedAt.IsZero() {
		sr.RecordedAt = time.Now().UTC()
	}
	return s.chart.AddSurgery(ctx, sr)
}

func (s *Service) ListSurgeries(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*SurgeryRecord, int, error) {
	return s.chart.ListSurgeries(ctx, admissionID, limit, offset)
}

func (s *Service) StatusHistory(ctx context.Context, admissionID uuid.UUID) ([]*StatusChange, error) {
	return s.admissions.ListStatusChanges(ctx, admissionID)
}

func (s *Service) BedTransfers(ctx context.Context, admissionID uuid.UUID) ([]*BedTransfer, error) {
	return s.admissions.ListBedTransfers(ctx, admissionID)
}
