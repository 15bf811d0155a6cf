package opd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

type mockRepo struct {
	mu            sync.Mutex
	visits        map[uuid.UUID]*Visit
	vitals        map[uuid.UUID]*VitalsSnapshot
	prescriptions map[uuid.UUID]*Prescription
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		visits:        make(map[uuid.UUID]*Visit),
		vitals:        make(map[uuid.UUID]*VitalsSnapshot),
		prescriptions: make(map[uuid.UUID]*Prescription),
	}
}

func cloneVisit(v *Visit) *Visit {
	c := *v
	c.Symptoms = append([]string(nil), v.Symptoms...)
	return &c
}

func (m *mockRepo) Create(_ context.Context, v *Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()
	m.visits[v.ID] = cloneVisit(v)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[id]
	if !ok {
		return nil, apperr.NotFoundf("visit not found")
	}
	return cloneVisit(v), nil
}

func (m *mockRepo) GetByNumber(_ context.Context, number string) (*Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.visits {
		if v.VisitNumber == number {
			return cloneVisit(v), nil
		}
	}
	return nil, apperr.NotFoundf("visit not found")
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Visit, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Visit
	for _, v := range m.visits {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		if f.PatientID != nil && v.PatientID != *f.PatientID {
			continue
		}
		if f.DoctorID != nil && v.DoctorID != *f.DoctorID {
			continue
		}
		items = append(items, cloneVisit(v))
	}
	return items, len(items), nil
}

func (m *mockRepo) TodayQueue(_ context.Context, doctorID *uuid.UUID) ([]*Visit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Visit
	for _, v := range m.visits {
		if IsTerminal(v.Status) {
			continue
		}
		if doctorID != nil && v.DoctorID != *doctorID {
			continue
		}
		items = append(items, cloneVisit(v))
	}
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if items[j].CreatedAt.Before(items[i].CreatedAt) {
				items[i], items[j] = items[j], items[i]
			}
		}
	}
	return items, nil
}

func (m *mockRepo) UpdateConsultation(_ context.Context, v *Visit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.visits[v.ID]
	if !ok {
		return apperr.NotFoundf("visit not found")
	}
	c := cloneVisit(v)
	c.Status = stored.Status
	c.PaymentStatus = stored.PaymentStatus
	m.visits[v.ID] = c
	return nil
}

func (m *mockRepo) SetStatusGuarded(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[id]
	if !ok {
		return false, apperr.NotFoundf("visit not found")
	}
	if v.Status != from {
		return false, nil
	}
	v.Status = to
	return true, nil
}

func (m *mockRepo) SetPaymentStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.visits[id]
	if !ok {
		return apperr.NotFoundf("visit not found")
	}
	v.PaymentStatus = status
	return nil
}

func (m *mockRepo) UpsertVitals(_ context.Context, v *VitalsSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *v
	m.vitals[v.VisitID] = &c
	return nil
}

func (m *mockRepo) GetVitals(_ context.Context, visitID uuid.UUID) (*VitalsSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vitals[visitID]
	if !ok {
		return nil, apperr.NotFoundf("vitals not recorded")
	}
	c := *v
	return &c, nil
}

func (m *mockRepo) SavePrescription(_ context.Context, p *Prescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *p
	c.Items = append([]PrescriptionItem(nil), p.Items...)
	m.prescriptions[p.VisitID] = &c
	return nil
}

func (m *mockRepo) GetPrescription(_ context.Context, visitID uuid.UUID) (*Prescription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prescriptions[visitID]
	if !ok {
		return nil, apperr.NotFoundf("prescription not found")
	}
	c := *p
	c.Items = append([]PrescriptionItem(nil), p.Items...)
	return &c, nil
}

type mockNumbers struct {
	mu     sync.Mutex
	visits int64
	tokens map[string]int
}

func (m *mockNumbers) NextOPDVisitNumber(_ context.Context, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visits++
	return fmt.Sprintf("OPD-%s-%05d", now.Format("200601"), m.visits), nil
}

func (m *mockNumbers) NextOPDToken(_ context.Context, doctorID string, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[string]int)
	}
	key := doctorID + ":" + day.Format("20060102")
	m.tokens[key]++
	return m.tokens[key], nil
}

type mockFees struct {
	fees map[uuid.UUID]float64
}

func (m *mockFees) ConsultationFee(_ context.Context, doctorID uuid.UUID) (float64, error) {
	fee, ok := m.fees[doctorID]
	if !ok {
		return 0, apperr.InvalidStatef("doctor is not available")
	}
	return fee, nil
}

type testEnv struct {
	repo    *mockRepo
	numbers *mockNumbers
	fees    *mockFees
	svc     *Service
	doctor  uuid.UUID
	patient uuid.UUID
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:    newMockRepo(),
		numbers: &mockNumbers{},
		doctor:  uuid.New(),
		patient: uuid.New(),
	}
	env.fees = &mockFees{fees: map[uuid.UUID]float64{env.doctor: 500}}
	env.svc = NewService(env.repo, env.numbers, env.fees, zerolog.Nop())
	return env
}

func (e *testEnv) register(t *testing.T) *Visit {
	t.Helper()
	v, err := e.svc.RegisterVisit(context.Background(), RegisterRequest{
		PatientID: e.patient,
		DoctorID:  e.doctor,
	})
	if err != nil {
		t.Fatalf("RegisterVisit: %v", err)
	}
	return v
}

func strPtr(s string) *string { return &s }

func TestRegisterVisitDefaults(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)

	if !strings.HasPrefix(v.VisitNumber, "OPD-") {
		t.Errorf("visit number = %q, want OPD- prefix", v.VisitNumber)
	}
	if v.TokenNumber != "T-001" {
		t.Errorf("token = %q, want T-001", v.TokenNumber)
	}
	if v.Status != StatusWaiting {
		t.Errorf("status = %q, want %q", v.Status, StatusWaiting)
	}
	if v.VisitType != TypeNew {
		t.Errorf("visit type = %q, want %q", v.VisitType, TypeNew)
	}
	if v.ConsultationFee != 500 {
		t.Errorf("fee = %v, want doctor's fee 500", v.ConsultationFee)
	}
	if v.PaymentStatus != PaymentPending {
		t.Errorf("payment status = %q, want pending", v.PaymentStatus)
	}
}

func TestRegisterVisitFeeOverride(t *testing.T) {
	env := newTestEnv()
	fee := 250.0
	v, err := env.svc.RegisterVisit(context.Background(), RegisterRequest{
		PatientID:       env.patient,
		DoctorID:        env.doctor,
		VisitType:       TypeFollowUp,
		ConsultationFee: &fee,
	})
	if err != nil {
		t.Fatalf("RegisterVisit: %v", err)
	}
	if v.ConsultationFee != 250 {
		t.Errorf("fee = %v, want override 250", v.ConsultationFee)
	}
}

func TestRegisterVisitUnavailableDoctor(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.RegisterVisit(context.Background(), RegisterRequest{
		PatientID: env.patient,
		DoctorID:  uuid.New(),
	})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
}

func TestRegisterVisitValidation(t *testing.T) {
	env := newTestEnv()
	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing patient", RegisterRequest{DoctorID: env.doctor}},
		{"missing doctor", RegisterRequest{PatientID: env.patient}},
		{"bad visit type", RegisterRequest{PatientID: env.patient, DoctorID: env.doctor, VisitType: "house-call"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.RegisterVisit(context.Background(), tc.req)
			if !errors.Is(err, apperr.Validation) {
				t.Fatalf("err = %v, want Validation", err)
			}
		})
	}
}

func TestTokensAdvancePerDoctor(t *testing.T) {
	env := newTestEnv()
	env.register(t)
	v2 := env.register(t)
	if v2.TokenNumber != "T-002" {
		t.Errorf("second token = %q, want T-002", v2.TokenNumber)
	}

	other := uuid.New()
	env.fees.fees[other] = 300
	v3, err := env.svc.RegisterVisit(context.Background(), RegisterRequest{
		PatientID: env.patient,
		DoctorID:  other,
	})
	if err != nil {
		t.Fatalf("RegisterVisit: %v", err)
	}
	if v3.TokenNumber != "T-001" {
		t.Errorf("other doctor's first token = %q, want T-001", v3.TokenNumber)
	}
}

func TestStatusFlow(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()

	got, err := env.svc.StartConsultation(ctx, v.ID)
	if err != nil {
		t.Fatalf("StartConsultation: %v", err)
	}
	if got.Status != StatusInConsultation {
		t.Errorf("status = %q, want in-consultation", got.Status)
	}

	got, err = env.svc.UpdateStatus(ctx, v.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestStatusFlowRejectsSkips(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()

	if _, err := env.svc.UpdateStatus(ctx, v.ID, StatusCompleted); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("waiting -> completed: err = %v, want InvalidState", err)
	}
	if _, err := env.svc.UpdateStatus(ctx, v.ID, StatusNoShow); err != nil {
		t.Fatalf("waiting -> no-show: %v", err)
	}
	if _, err := env.svc.UpdateStatus(ctx, v.ID, StatusInConsultation); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("no-show -> in-consultation: err = %v, want InvalidState", err)
	}
}

func TestConcurrentStartOnlyOneWins(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.StartConsultation(ctx, v.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if succeeded != 1 {
		t.Errorf("succeeded = %d, want exactly 1", succeeded)
	}
}

func TestUpdateConsultation(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()

	got, err := env.svc.UpdateConsultation(ctx, v.ID, ConsultationUpdate{
		Diagnosis: strPtr("acute pharyngitis"),
		ICDCode:   strPtr("J02.9"),
		Symptoms:  []string{"sore throat", "fever"},
	})
	if err != nil {
		t.Fatalf("UpdateConsultation: %v", err)
	}
	if got.Diagnosis == nil || *got.Diagnosis != "acute pharyngitis" {
		t.Errorf("diagnosis not recorded: %+v", got.Diagnosis)
	}
	if len(got.Symptoms) != 2 {
		t.Errorf("symptoms = %v, want 2 entries", got.Symptoms)
	}
}

func TestUpdateConsultationOnClosedVisitFails(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()
	if _, err := env.svc.UpdateStatus(ctx, v.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := env.svc.UpdateConsultation(ctx, v.ID, ConsultationUpdate{Diagnosis: strPtr("x")})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
}

func TestRecordVitalsComputesBMI(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	weight, height := 80.0, 180.0
	got, err := env.svc.RecordVitals(context.Background(), v.ID, &VitalsSnapshot{
		WeightKg: &weight,
		HeightCm: &height,
	})
	if err != nil {
		t.Fatalf("RecordVitals: %v", err)
	}
	if got.BMI == nil {
		t.Fatal("BMI not derived")
	}
	if *got.BMI < 24.6 || *got.BMI > 24.8 {
		t.Errorf("BMI = %v, want about 24.7", *got.BMI)
	}
}

func TestRecordVitalsReplacesSnapshot(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()

	hr1 := 88
	if _, err := env.svc.RecordVitals(ctx, v.ID, &VitalsSnapshot{HeartRate: &hr1}); err != nil {
		t.Fatalf("first RecordVitals: %v", err)
	}
	hr2 := 72
	if _, err := env.svc.RecordVitals(ctx, v.ID, &VitalsSnapshot{HeartRate: &hr2}); err != nil {
		t.Fatalf("second RecordVitals: %v", err)
	}
	got, err := env.svc.Vitals(ctx, v.ID)
	if err != nil {
		t.Fatalf("Vitals: %v", err)
	}
	if got.HeartRate == nil || *got.HeartRate != 72 {
		t.Errorf("heart rate = %v, want latest 72", got.HeartRate)
	}
}

func TestSavePrescriptionCompletesVisit(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()
	if _, err := env.svc.StartConsultation(ctx, v.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	got, err := env.svc.SavePrescription(ctx, v.ID, &Prescription{
		Items: []PrescriptionItem{
			{Name: "Amoxicillin", Dosage: "500mg", Frequency: "TID"},
		},
	})
	if err != nil {
		t.Fatalf("SavePrescription: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want completed after prescription", got.Status)
	}

	p, err := env.svc.Prescription(ctx, v.ID)
	if err != nil {
		t.Fatalf("Prescription: %v", err)
	}
	if len(p.Items) != 1 || p.Items[0].Route != "oral" {
		t.Errorf("items = %+v, want one oral item", p.Items)
	}
}

func TestSavePrescriptionValidation(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()
	if _, err := env.svc.StartConsultation(ctx, v.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	cases := []struct {
		name string
		p    Prescription
	}{
		{"empty", Prescription{}},
		{"missing dosage", Prescription{Items: []PrescriptionItem{{Name: "X", Frequency: "OD"}}}},
		{"bad route", Prescription{Items: []PrescriptionItem{{Name: "X", Dosage: "1", Frequency: "OD", Route: "nasal-spray"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.p
			if _, err := env.svc.SavePrescription(ctx, v.ID, &p); !errors.Is(err, apperr.Validation) {
				t.Fatalf("err = %v, want Validation", err)
			}
		})
	}
}

func TestSavePrescriptionOnWaitingVisitFails(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	_, err := env.svc.SavePrescription(context.Background(), v.ID, &Prescription{
		Items: []PrescriptionItem{{Name: "X", Dosage: "1", Frequency: "OD"}},
	})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
}

func TestReferThenComplete(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()
	if _, err := env.svc.StartConsultation(ctx, v.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	got, err := env.svc.Refer(ctx, v.ID, ReferralRequest{
		ReferredTo: "Cardiology",
		Reason:     "suspected arrhythmia",
		Urgency:    "urgent",
	})
	if err != nil {
		t.Fatalf("Refer: %v", err)
	}
	if got.Status != StatusReferred {
		t.Errorf("status = %q, want referred", got.Status)
	}
	if got.ReferredTo == nil || *got.ReferredTo != "Cardiology" {
		t.Errorf("referred_to not recorded: %+v", got.ReferredTo)
	}

	got, err = env.svc.UpdateStatus(ctx, v.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("complete after referral: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestReferFromWaitingFails(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	_, err := env.svc.Refer(context.Background(), v.ID, ReferralRequest{
		ReferredTo: "Cardiology",
		Reason:     "x",
	})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
}

func TestMarkPayment(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	ctx := context.Background()

	got, err := env.svc.MarkPayment(ctx, v.ID, PaymentPaid)
	if err != nil {
		t.Fatalf("MarkPayment: %v", err)
	}
	if got.PaymentStatus != PaymentPaid {
		t.Errorf("payment status = %q, want paid", got.PaymentStatus)
	}
	if _, err := env.svc.MarkPayment(ctx, v.ID, PaymentWaived); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("second payment: err = %v, want InvalidState", err)
	}
}

func TestMarkPaymentRejectsPending(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	_, err := env.svc.MarkPayment(context.Background(), v.ID, PaymentPending)
	if !errors.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want Validation", err)
	}
}

func TestTodayQueueExcludesClosed(t *testing.T) {
	env := newTestEnv()
	v1 := env.register(t)
	env.register(t)
	ctx := context.Background()
	if _, err := env.svc.UpdateStatus(ctx, v1.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	queue, err := env.svc.TodayQueue(ctx, &env.doctor)
	if err != nil {
		t.Fatalf("TodayQueue: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queue))
	}
	if queue[0].ID == v1.ID {
		t.Error("cancelled visit still in queue")
	}
}

func TestGetVisitByNumber(t *testing.T) {
	env := newTestEnv()
	v := env.register(t)
	got, err := env.svc.GetVisit(context.Background(), v.VisitNumber)
	if err != nil {
		t.Fatalf("GetVisit by number: %v", err)
	}
	if got.ID != v.ID {
		t.Errorf("resolved wrong visit: %s", got.ID)
	}
}
