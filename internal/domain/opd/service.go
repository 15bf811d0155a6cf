package opd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// NumberSource allocates visit numbers and per-doctor queue tokens.
type NumberSource interface {
	NextOPDVisitNumber(ctx context.Context, now time.Time) (string, error)
	NextOPDToken(ctx context.Context, doctorID string, day time.Time) (int, error)
}

// FeeSource looks up the consulting doctor's fee. Satisfied by staff.Service.
type FeeSource interface {
	ConsultationFee(ctx context.Context, doctorID uuid.UUID) (float64, error)
}

type Service struct {
	repo    Repository
	numbers NumberSource
	fees    FeeSource
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(repo Repository, numbers NumberSource, fees FeeSource, log zerolog.Logger) *Service {
	return &Service{repo: repo, numbers: numbers, fees: fees, log: log, now: time.Now}
}

// RegisterRequest is the payload for registering an outpatient visit.
type RegisterRequest struct {
	PatientID       uuid.UUID  `json:"patient_id"`
	DoctorID        uuid.UUID  `json:"doctor_id"`
	VisitType       string     `json:"visit_type"`
	ChiefComplaint  *string    `json:"chief_complaint"`
	Symptoms        []string   `json:"symptoms"`
	ConsultationFee *float64   `json:"consultation_fee"`
	RegisteredBy    *uuid.UUID `json:"registered_by"`
}

func (r *RegisterRequest) validate() error {
	if r.PatientID == uuid.Nil {
		return apperr.Validationf("patient_id is required")
	}
	if r.DoctorID == uuid.Nil {
		return apperr.Validationf("doctor_id is required")
	}
	if r.VisitType == "" {
		r.VisitType = TypeNew
	}
	if !ValidType(r.VisitType) {
		return apperr.Validationf("invalid visit_type %q", r.VisitType)
	}
	if r.ConsultationFee != nil && *r.ConsultationFee < 0 {
		return apperr.Validationf("consultation_fee must not be negative")
	}
	return nil
}

// RegisterVisit creates a waiting visit with the next queue token for the
// doctor's day. The fee defaults to the doctor's consultation fee unless
// overridden, which also rejects registration against unavailable doctors.
func (s *Service) RegisterVisit(ctx context.Context, req RegisterRequest) (*Visit, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	fee, err := s.fees.ConsultationFee(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if req.ConsultationFee != nil {
		fee = *req.ConsultationFee
	}

	number, err := s.numbers.NextOPDVisitNumber(ctx, now)
	if err != nil {
		return nil, err
	}
	token, err := s.numbers.NextOPDToken(ctx, req.DoctorID.String(), now)
	if err != nil {
		return nil, err
	}

	v := &Visit{
		VisitNumber:     number,
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		VisitDate:       now,
		TokenNumber:     fmt.Sprintf("T-%03d", token),
		Status:          StatusWaiting,
		VisitType:       req.VisitType,
		ChiefComplaint:  req.ChiefComplaint,
		Symptoms:        req.Symptoms,
		ConsultationFee: fee,
		PaymentStatus:   PaymentPending,
		RegisteredBy:    req.RegisteredBy,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	s.log.Info().Str("visit_number", v.VisitNumber).Str("token", v.TokenNumber).
		Str("doctor_id", v.DoctorID.String()).Msg("opd visit registered")
	return v, nil
}

// GetVisit resolves a visit by id or by visit number.
func (s *Service) GetVisit(ctx context.Context, ref string) (*Visit, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.repo.GetByID(ctx, id)
	}
	return s.repo.GetByNumber(ctx, ref)
}

func (s *Service) ListVisits(ctx context.Context, f Filter, limit, offset int) ([]*Visit, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validationf("invalid status %q", f.Status)
	}
	if f.VisitType != "" && !ValidType(f.VisitType) {
		return nil, 0, apperr.Validationf("invalid visit_type %q", f.VisitType)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// TodayQueue lists today's open visits in arrival order, optionally for one
// doctor.
func (s *Service) TodayQueue(ctx context.Context, doctorID *uuid.UUID) ([]*Visit, error) {
	return s.repo.TodayQueue(ctx, doctorID)
}

// UpdateStatus moves a visit along the allowed status flow. Both the flow
// check and the conditional write use the status read here, so a visit moved
// by a concurrent writer fails the guard instead of skipping a step.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*Visit, error) {
	if !ValidStatus(to) {
		return nil, apperr.Validationf("invalid status %q", to)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(v.Status, to) {
		return nil, apperr.InvalidStatef("cannot move visit from %s to %s", v.Status, to)
	}
	ok, err := s.repo.SetStatusGuarded(ctx, id, v.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidStatef("visit is no longer %s", v.Status)
	}
	return s.repo.GetByID(ctx, id)
}

// StartConsultation is the queue-front shortcut for waiting to in-consultation.
func (s *Service) StartConsultation(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.UpdateStatus(ctx, id, StatusInConsultation)
}

// ConsultationUpdate carries the clinical fields a doctor records mid-consult.
type ConsultationUpdate struct {
	ChiefComplaint   *string  `json:"chief_complaint"`
	Symptoms         []string `json:"symptoms"`
	Diagnosis        *string  `json:"diagnosis"`
	ICDCode          *string  `json:"icd_code"`
	ClinicalFindings *string  `json:"clinical_findings"`
	TreatmentPlan    *string  `json:"treatment_plan"`
	Notes            *string  `json:"notes"`
}

// UpdateConsultation records clinical findings on an open visit.
func (s *Service) UpdateConsultation(ctx context.Context, id uuid.UUID, upd ConsultationUpdate) (*Visit, error) {
	v, err := s.requireOpen(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.ChiefComplaint != nil {
		v.ChiefComplaint = upd.ChiefComplaint
	}
	if upd.Symptoms != nil {
		v.Symptoms = upd.Symptoms
	}
	if upd.Diagnosis != nil {
		v.Diagnosis = upd.Diagnosis
	}
	if upd.ICDCode != nil {
		v.ICDCode = upd.ICDCode
	}
	if upd.ClinicalFindings != nil {
		v.ClinicalFindings = upd.ClinicalFindings
	}
	if upd.TreatmentPlan != nil {
		v.TreatmentPlan = upd.TreatmentPlan
	}
	if upd.Notes != nil {
		v.Notes = upd.Notes
	}
	if err := s.repo.UpdateConsultation(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ReferralRequest marks a visit as referred out.
type ReferralRequest struct {
	ReferredTo       string  `json:"referred_to"`
	ReferralHospital *string `json:"referral_hospital"`
	Reason           string  `json:"reason"`
	Urgency          string  `json:"urgency"`
}

// Refer moves an in-consultation visit to referred and records the referral.
func (s *Service) Refer(ctx context.Context, id uuid.UUID, req ReferralRequest) (*Visit, error) {
	if req.ReferredTo == "" {
		return nil, apperr.Validationf("referred_to is required")
	}
	if req.Reason == "" {
		return nil, apperr.Validationf("reason is required")
	}
	if req.Urgency == "" {
		req.Urgency = "routine"
	}
	if !ValidUrgency(req.Urgency) {
		return nil, apperr.Validationf("invalid urgency %q", req.Urgency)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(v.Status, StatusReferred) {
		return nil, apperr.InvalidStatef("cannot refer a %s visit", v.Status)
	}
	v.ReferredTo = &req.ReferredTo
	v.ReferralHospital = req.ReferralHospital
	v.ReferralReason = &req.Reason
	v.ReferralUrgency = &req.Urgency
	if err := s.repo.UpdateConsultation(ctx, v); err != nil {
		return nil, err
	}
	ok, err := s.repo.SetStatusGuarded(ctx, id, v.Status, StatusReferred)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidStatef("visit is no longer %s", v.Status)
	}
	return s.repo.GetByID(ctx, id)
}

// RecordVitals stores the visit's vitals snapshot, replacing any earlier one.
func (s *Service) RecordVitals(ctx context.Context, id uuid.UUID, v *VitalsSnapshot) (*VitalsSnapshot, error) {
	if _, err := s.requireOpen(ctx, id); err != nil {
		return nil, err
	}
	v.VisitID = id
	v.RecordedAt = s.now().UTC()
	if v.BMI == nil && v.WeightKg != nil && v.HeightCm != nil && *v.HeightCm > 0 {
		m := *v.HeightCm / 100
		bmi := *v.WeightKg / (m * m)
		v.BMI = &bmi
	}
	if err := s.repo.UpsertVitals(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) Vitals(ctx context.Context, id uuid.UUID) (*VitalsSnapshot, error) {
	return s.repo.GetVitals(ctx, id)
}

// SavePrescription stores the consult outcome and completes the visit.
func (s *Service) SavePrescription(ctx context.Context, id uuid.UUID, p *Prescription) (*Visit, error) {
	if len(p.Items) == 0 && p.Instructions == nil {
		return nil, apperr.Validationf("prescription needs at least one item or instructions")
	}
	for i := range p.Items {
		item := &p.Items[i]
		if item.Name == "" {
			return nil, apperr.Validationf("item %d: name is required", i+1)
		}
		if item.Dosage == "" {
			return nil, apperr.Validationf("item %d: dosage is required", i+1)
		}
		if item.Frequency == "" {
			return nil, apperr.Validationf("item %d: frequency is required", i+1)
		}
		if item.Route == "" {
			item.Route = "oral"
		}
		if !ValidRoute(item.Route) {
			return nil, apperr.Validationf("item %d: invalid route %q", i+1, item.Route)
		}
		if item.Quantity != nil && *item.Quantity <= 0 {
			return nil, apperr.Validationf("item %d: quantity must be positive", i+1)
		}
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(v.Status, StatusCompleted) {
		return nil, apperr.InvalidStatef("cannot prescribe on a %s visit", v.Status)
	}
	p.VisitID = id
	if err := s.repo.SavePrescription(ctx, p); err != nil {
		return nil, err
	}
	ok, err := s.repo.SetStatusGuarded(ctx, id, v.Status, StatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.InvalidStatef("visit is no longer %s", v.Status)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Prescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetPrescription(ctx, id)
}

// MarkPayment settles or waives the consultation fee.
func (s *Service) MarkPayment(ctx context.Context, id uuid.UUID, status string) (*Visit, error) {
	if status != PaymentPaid && status != PaymentWaived {
		return nil, apperr.Validationf("payment status must be %s or %s", PaymentPaid, PaymentWaived)
	}
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.PaymentStatus != PaymentPending {
		return nil, apperr.InvalidStatef("visit payment is already %s", v.PaymentStatus)
	}
	if err := s.repo.SetPaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	v.PaymentStatus = status
	return v, nil
}

func (s *Service) requireOpen(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if IsTerminal(v.Status) {
		return nil, apperr.InvalidStatef("visit is %s", v.Status)
	}
	return v, nil
}
