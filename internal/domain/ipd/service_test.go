package ipd

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

// -- Mock Repositories --

type mockAdmissionRepo struct {
	admissions map[uuid.UUID]*Admission
	history    []*StatusChange
	transfers  []*BedTransfer
}

func newMockAdmissionRepo() *mockAdmissionRepo {
	return &mockAdmissionRepo{admissions: make(map[uuid.UUID]*Admission)}
}

func (m *mockAdmissionRepo) snapshot() func() {
	saved := make(map[uuid.UUID]*Admission, len(m.admissions))
	for k, v := range m.admissions {
		cp := *v
		saved[k] = &cp
	}
	savedHistory := append([]*StatusChange(nil), m.history...)
	savedTransfers := append([]*BedTransfer(nil), m.transfers...)
	return func() {
		m.admissions = saved
		m.history = savedHistory
		m.transfers = savedTransfers
	}
}

func (m *mockAdmissionRepo) Create(_ context.Context, a *Admission) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.admissions[a.ID] = a
	return nil
}

func (m *mockAdmissionRepo) GetByID(_ context.Context, id uuid.UUID) (*Admission, error) {
	a, ok := m.admissions[id]
	if !ok {
		return nil, apperr.NotFoundf("admission not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAdmissionRepo) GetByNumber(_ context.Context, number string) (*Admission, error) {
	for _, a := range m.admissions {
		if a.AdmissionNumber == number {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.NotFoundf("admission not found")
}

func (m *mockAdmissionRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Admission, int, error) {
	var items []*Admission
	for _, a := range m.admissions {
		if f.PatientID != nil && a.PatientID != *f.PatientID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.ActiveOnly && IsTerminal(a.Status) {
			continue
		}
		cp := *a
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockAdmissionRepo) CountByStatus(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, a := range m.admissions {
		counts[a.Status]++
	}
	return counts, nil
}

func (m *mockAdmissionRepo) SetStatusIfActive(_ context.Context, id uuid.UUID, status string) (bool, error) {
	a, ok := m.admissions[id]
	if !ok || IsTerminal(a.Status) {
		return false, nil
	}
	a.Status = status
	return true, nil
}

func (m *mockAdmissionRepo) SetBedIfActive(_ context.Context, id, bedID uuid.UUID) (bool, error) {
	a, ok := m.admissions[id]
	if !ok || IsTerminal(a.Status) {
		return false, nil
	}
	a.BedID = &bedID
	return true, nil
}

func (m *mockAdmissionRepo) CloseIfActive(_ context.Context, in *Admission) (bool, error) {
	a, ok := m.admissions[in.ID]
	if !ok || IsTerminal(a.Status) {
		return false, nil
	}
	a.Status = in.Status
	a.BedID = nil
	a.DischargedAt = in.DischargedAt
	a.DischargeType = in.DischargeType
	a.DischargeSummary = in.DischargeSummary
	if in.FinalDiagnosis != nil {
		a.FinalDiagnosis = in.FinalDiagnosis
	}
	return true, nil
}

func (m *mockAdmissionRepo) UpdateDetails(_ context.Context, in *Admission) error {
	a, ok := m.admissions[in.ID]
	if !ok {
		return apperr.NotFoundf("admission not found")
	}
	a.Department = in.Department
	a.ChiefComplaint = in.ChiefComplaint
	a.ProvisionalDiagnosis = in.ProvisionalDiagnosis
	a.AdvanceDeposit = in.AdvanceDeposit
	return nil
}

func (m *mockAdmissionRepo) AddStatusChange(_ context.Context, sc *StatusChange) error {
	sc.ID = uuid.New()
	m.history = append(m.history, sc)
	return nil
}

func (m *mockAdmissionRepo) ListStatusChanges(_ context.Context, admissionID uuid.UUID) ([]*StatusChange, error) {
	var items []*StatusChange
	for _, sc := range m.history {
		if sc.AdmissionID == admissionID {
			items = append(items, sc)
		}
	}
	return items, nil
}

func (m *mockAdmissionRepo) AddBedTransfer(_ context.Context, bt *BedTransfer) error {
	bt.ID = uuid.New()
	m.transfers = append(m.transfers, bt)
	return nil
}

func (m *mockAdmissionRepo) ListBedTransfers(_ context.Context, admissionID uuid.UUID) ([]*BedTransfer, error) {
	var items []*BedTransfer
	for _, bt := range m.transfers {
		if bt.AdmissionID == admissionID {
			items = append(items, bt)
		}
	}
	return items, nil
}

type mockChartRepo struct {
	vitals     []*VitalRecord
	notes      []*ProgressNote
	orders     map[uuid.UUID]*MedicationOrder
	admins     []*MedicationAdministration
	dressings  []*DressingRecord
	procedures []*ProcedureRecord
	surgeries  []*SurgeryRecord
}

func newMockChartRepo() *mockChartRepo {
	return &mockChartRepo{orders: make(map[uuid.UUID]*MedicationOrder)}
}

func (m *mockChartRepo) AddVital(_ context.Context, v *VitalRecord) error {
	v.ID = uuid.New()
	m.vitals = append(m.vitals, v)
	return nil
}

func (m *mockChartRepo) ListVitals(_ context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalRecord, int, error) {
	var items []*VitalRecord
	for _, v := range m.vitals {
		if v.AdmissionID == admissionID {
			items = append(items, v)
		}
	}
	return items, len(items), nil
}

func (m *mockChartRepo) AddNote(_ context.Context, n *ProgressNote) error {
	n.ID = uuid.New()
	m.notes = append(m.notes, n)
	return nil
}

func (m *mockChartRepo) ListNotes(_ context.Context, admissionID uuid.UUID, limit, offset int) ([]*ProgressNote, int, error) {
	var items []*ProgressNote
	for _, n := range m.notes {
		if n.AdmissionID == admissionID {
			items = append(items, n)
		}
	}
	return items, len(items), nil
}

func (m *mockChartRepo) AddMedicationOrder(_ context.Context, o *MedicationOrder) error {
	o.ID = uuid.New()
	m.orders[o.ID] = o
	return nil
}

func (m *mockChartRepo) GetMedicationOrder(_ context.Context, id uuid.UUID) (*MedicationOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFoundf("medication order not found")
	}
	return o, nil
}

func (m *mockChartRepo) SetOrderStatus(_ context.Context, id uuid.UUID, status string) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != OrderActive {
		return false, nil
	}
	o.Status = status
	return true, nil
}

func (m *mockChartRepo) ListMedicationOrders(_ context.Context, admissionID uuid.UUID) ([]*MedicationOrder, error) {
	var items []*MedicationOrder
	for _, o := range m.orders {
		if o.AdmissionID == admissionID {
			items = append(items, o)
		}
	}
	return items, nil
}

func (m *mockChartRepo) AddAdministration(_ context.Context, a *MedicationAdministration) error {
	a.ID = uuid.New()
	m.admins = append(m.admins, a)
	return nil
}

func (m *mockChartRepo) ListAdministrations(_ context.Context, admissionID uuid.UUID, limit, offset int) ([]*MedicationAdministration, int, error) {
	var items []*MedicationAdministration
	for _, a := range m.admins {
		if a.AdmissionID == admissionID {
			items = append(items, a)
		}
	}
	return items, len(items), nil
}

func (m *mockChartRepo) AddDressing(_ context.Context, d *DressingRecord) error {
	d.ID = uuid.New()
	m.dressings = append(m.dressings, d)
	return nil
}

func (m *mockChartRepo) ListDressings(_ context.Context, admissionID uuid.UUID, limit, offset int) ([]*DressingRecord, int, error) {
	var items []*DressingRecord
	for _, d := range m.dressings {
		if d.AdmissionID == admissionID {
			items = append(items, d)
		}
	}
	return items, len(items), nil
}

func (m *mockChartRepo) AddProcedure(_ context.Context, p *ProcedureRecord) error {
	p.ID = uuid.New()
	m.procedures = append(m.procedures, p)
	return nil
}

func (m *mockChartRepo) ListProcedures(_ context.Context, admissionID uuid.UUID, limit, offset int) ([]*ProcedureRecord, int, error) {
	var items []*ProcedureRecord
	for _, p := range m.procedures {
		if p.AdmissionID == admissionID {
			items = append(items, p)
		}
	}
	return items, len(items), nil
}

func (m *mockChartRepo) AddSurgery(_ context.Context, sr *SurgeryRecord) error {
	sr.ID = uuid.New()
	m.surgeries = append(m.surgeries, sr)
	return nil
}

func (m *mockChartRepo) ListSurgeries(_ context.Context, admissionID uuid.UUID, limit, offset int) ([]*SurgeryRecord, int, error) {
	var items []*SurgeryRecord
	for _, sr := range m.surgeries {
		if sr.AdmissionID == admissionID {
			items = append(items, sr)
		}
	}
	return items, len(items), nil
}

// mockBeds tracks bed occupancy by id, mirroring the registry's guarded
// transitions.
type mockBeds struct {
	occupied map[uuid.UUID]uuid.UUID // bed -> admission
}

func newMockBeds() *mockBeds {
	return &mockBeds{occupied: make(map[uuid.UUID]uuid.UUID)}
}

func (m *mockBeds) snapshot() func() {
	saved := make(map[uuid.UUID]uuid.UUID, len(m.occupied))
	for k, v := range m.occupied {
		saved[k] = v
	}
	return func() { m.occupied = saved }
}

func (m *mockBeds) Assign(_ context.Context, bedID, patientID, admissionID uuid.UUID) error {
	if _, taken := m.occupied[bedID]; taken {
		return apperr.Conflictf("bed is not available")
	}
	m.occupied[bedID] = admissionID
	return nil
}

func (m *mockBeds) Release(_ context.Context, bedID uuid.UUID) error {
	if _, taken := m.occupied[bedID]; !taken {
		return apperr.InvalidStatef("bed is not occupied")
	}
	delete(m.occupied, bedID)
	return nil
}

type mockNumbers struct{ n int }

func (m *mockNumbers) NextAdmissionNumber(_ context.Context, now time.Time) (string, error) {
	m.n++
	return fmt.Sprintf("IPD-%d-%06d", now.Year(), m.n), nil
}

// mockTx restores repository state when fn fails, mirroring a rollback.
type mockTx struct {
	admissions *mockAdmissionRepo
	beds       *mockBeds
}

func (m *mockTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	restoreAdmissions := m.admissions.snapshot()
	restoreBeds := m.beds.snapshot()
	if err := fn(ctx); err != nil {
		restoreAdmissions()
		restoreBeds()
		return err
	}
	return nil
}

type testEnv struct {
	svc        *Service
	admissions *mockAdmissionRepo
	chart      *mockChartRepo
	beds       *mockBeds
}

func newTestEnv() *testEnv {
	admissions := newMockAdmissionRepo()
	chart := newMockChartRepo()
	beds := newMockBeds()
	tx := &mockTx{admissions: admissions, beds: beds}
	svc := NewService(admissions, chart, beds, &mockNumbers{}, tx, zerolog.Nop())
	return &testEnv{svc: svc, admissions: admissions, chart: chart, beds: beds}
}

func validAdmitRequest() *AdmitRequest {
	bedID := uuid.New()
	return &AdmitRequest{
		PatientID:            uuid.New(),
		BedID:                &bedID,
		AdmittingDoctorID:    uuid.New(),
		ProvisionalDiagnosis: "acute appendicitis",
	}
}

// -- Tests --

func TestAdmit(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()

	a, err := env.svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.AdmissionNumber == "" {
		t.Error("expected admission number to be allocated")
	}
	if a.Status != StatusAdmitted {
		t.Errorf("status = %s, want admitted", a.Status)
	}
	if got := env.beds.occupied[*req.BedID]; got != a.ID {
		t.Error("expected bed to be bound to the admission")
	}
	if len(env.admissions.history) != 1 {
		t.Errorf("expected one status history entry, got %d", len(env.admissions.history))
	}
}

func TestAdmitDiagnosisRequired(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	req.ProvisionalDiagnosis = ""
	if _, err := env.svc.Admit(context.Background(), req); !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdmitOccupiedBedRollsBack(t *testing.T) {
	env := newTestEnv()
	first := validAdmitRequest()
	if _, err := env.svc.Admit(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := validAdmitRequest()
	second.BedID = first.BedID
	_, err := env.svc.Admit(context.Background(), second)
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	// The losing admission must not survive the rollback.
	if len(env.admissions.admissions) != 1 {
		t.Errorf("expected 1 admission after rollback, got %d", len(env.admissions.admissions))
	}
}

func TestAdmitPatientAlreadyAdmitted(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	if _, err := env.svc.Admit(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	again := validAdmitRequest()
	again.PatientID = req.PatientID
	if _, err := env.svc.Admit(context.Background(), again); !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAdmitWithoutBed(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	req.BedID = nil

	a, err := env.svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != StatusAdmitted {
		t.Errorf("status = %s, want admitted", a.Status)
	}
	if a.BedID != nil {
		t.Error("expected admission to open unbedded")
	}
	if len(env.beds.occupied) != 0 {
		t.Error("expected no bed to be claimed")
	}
}

func TestAdmitZeroBedIDOpensUnbedded(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	req.BedID = &uuid.UUID{}

	a, err := env.svc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.BedID != nil {
		t.Error("expected zero bed id to be treated as no bed")
	}
}

func TestTransferBedAssignsFirstBed(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	req.BedID = nil
	a, _ := env.svc.Admit(context.Background(), req)

	bedID := uuid.New()
	got, err := env.svc.TransferBed(context.Background(), a.ID, bedID, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BedID == nil || *got.BedID != bedID {
		t.Error("expected admission to point at the assigned bed")
	}
	if env.beds.occupied[bedID] != a.ID {
		t.Error("expected bed to be bound to the admission")
	}
	transfers, _ := env.svc.BedTransfers(context.Background(), a.ID)
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer record, got %d", len(transfers))
	}
	if transfers[0].FromBedID != nil {
		t.Error("expected first assignment to have no source bed")
	}
}

func TestDischargeUnbeddedAdmission(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	req.BedID = nil
	a, _ := env.svc.Admit(context.Background(), req)

	got, err := env.svc.Discharge(context.Background(), a.ID, &DischargeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusDischarged {
		t.Errorf("status = %s, want discharged", got.Status)
	}
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())

	if err := env.svc.UpdateStatus(context.Background(), a.ID, StatusCritical, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := env.svc.GetAdmission(context.Background(), a.ID)
	if got.Status != StatusCritical {
		t.Errorf("status = %s, want critical", got.Status)
	}
	if len(env.admissions.history) != 2 {
		t.Errorf("expected 2 status history entries, got %d", len(env.admissions.history))
	}
}

func TestUpdateStatusRejectsTerminal(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())

	err := env.svc.UpdateStatus(context.Background(), a.ID, StatusDischarged, nil, nil)
	if !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransferBed(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	a, _ := env.svc.Admit(context.Background(), req)
	toBed := uuid.New()

	got, err := env.svc.TransferBed(context.Background(), a.ID, toBed, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.BedID == nil || *got.BedID != toBed {
		t.Error("expected admission to point at the new bed")
	}
	if _, taken := env.beds.occupied[*req.BedID]; taken {
		t.Error("expected old bed to be released")
	}
	if env.beds.occupied[toBed] != a.ID {
		t.Error("expected new bed to be bound to the admission")
	}
	transfers, _ := env.svc.BedTransfers(context.Background(), a.ID)
	if len(transfers) != 1 {
		t.Fatalf("expected 1 transfer record, got %d", len(transfers))
	}
	if transfers[0].FromBedID == nil || *transfers[0].FromBedID != *req.BedID || transfers[0].ToBedID != toBed {
		t.Error("transfer record has wrong beds")
	}
}

func TestTransferToOccupiedBedFails(t *testing.T) {
	env := newTestEnv()
	first := validAdmitRequest()
	a1, _ := env.svc.Admit(context.Background(), first)
	second := validAdmitRequest()
	if _, err := env.svc.Admit(context.Background(), second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := env.svc.TransferBed(context.Background(), a1.ID, *second.BedID, nil, nil)
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	got, _ := env.svc.GetAdmission(context.Background(), a1.ID)
	if got.BedID == nil || *got.BedID != *first.BedID {
		t.Error("expected admission to keep its bed after failed transfer")
	}
	if env.beds.occupied[*first.BedID] != a1.ID {
		t.Error("expected original bed to stay bound")
	}
}

func TestTransferInconsistentRegistryRollsBack(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	a, _ := env.svc.Admit(context.Background(), req)
	// Simulate a registry that lost the occupancy record.
	delete(env.beds.occupied, *req.BedID)

	toBed := uuid.New()
	_, err := env.svc.TransferBed(context.Background(), a.ID, toBed, nil, nil)
	if !errors.Is(err, apperr.Inconsistent) {
		t.Fatalf("expected inconsistent error, got %v", err)
	}
	if _, taken := env.beds.occupied[toBed]; taken {
		t.Error("expected new bed claim to be rolled back")
	}
	got, _ := env.svc.GetAdmission(context.Background(), a.ID)
	if got.BedID == nil || *got.BedID != *req.BedID {
		t.Error("expected admission bed to be unchanged")
	}
}

func TestDischarge(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	a, _ := env.svc.Admit(context.Background(), req)

	summary := "recovered"
	got, err := env.svc.Discharge(context.Background(), a.ID, &DischargeRequest{
		DischargeType:    DischargeNormal,
		DischargeSummary: &summary,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusDischarged {
		t.Errorf("status = %s, want discharged", got.Status)
	}
	if got.DischargedAt == nil {
		t.Error("expected discharged_at to be set")
	}
	if _, taken := env.beds.occupied[*req.BedID]; taken {
		t.Error("expected bed to be released on discharge")
	}
	if got.BedID != nil {
		t.Error("expected discharged admission to have no bed")
	}
	stored, _ := env.svc.GetAdmission(context.Background(), a.ID)
	if stored.BedID != nil {
		t.Error("expected stored admission to have no bed after discharge")
	}
}

func TestDischargeTypeDeterminesTerminalStatus(t *testing.T) {
	cases := []struct {
		dischargeType string
		wantStatus    string
	}{
		{DischargeNormal, StatusDischarged},
		{DischargeAMA, StatusAMA},
		{DischargeDeath, StatusExpired},
		{DischargeTransfer, StatusTransferred},
		{DischargeReferral, StatusTransferred},
	}
	for _, tc := range cases {
		t.Run(tc.dischargeType, func(t *testing.T) {
			env := newTestEnv()
			a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
			got, err := env.svc.Discharge(context.Background(), a.ID, &DischargeRequest{DischargeType: tc.dischargeType})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tc.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tc.wantStatus)
			}
		})
	}
}

func TestDischargeTwiceFails(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	if _, err := env.svc.Discharge(context.Background(), a.ID, &DischargeRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := env.svc.Discharge(context.Background(), a.ID, &DischargeRequest{})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestDischargeInconsistentBedRollsBack(t *testing.T) {
	env := newTestEnv()
	req := validAdmitRequest()
	a, _ := env.svc.Admit(context.Background(), req)
	delete(env.beds.occupied, *req.BedID)

	_, err := env.svc.Discharge(context.Background(), a.ID, &DischargeRequest{})
	if !errors.Is(err, apperr.Inconsistent) {
		t.Fatalf("expected inconsistent error, got %v", err)
	}
	// The admission stays open so the mismatch can be repaired and retried.
	got, _ := env.svc.GetAdmission(context.Background(), a.ID)
	if IsTerminal(got.Status) {
		t.Error("expected admission to remain open after rollback")
	}
}

func TestAddVital(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())

	temp := 38.5
	v := &VitalRecord{AdmissionID: a.ID, Temperature: &temp}
	if err := env.svc.AddVital(context.Background(), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.RecordedAt.IsZero() {
		t.Error("expected recorded_at to be defaulted")
	}
}

func TestAddVitalClosedAdmission(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	env.svc.Discharge(context.Background(), a.ID, &DischargeRequest{})

	err := env.svc.AddVital(context.Background(), &VitalRecord{AdmissionID: a.ID})
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestAddNoteRequiresText(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	err := env.svc.AddNote(context.Background(), &ProgressNote{AdmissionID: a.ID})
	if !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMedicationOrderLifecycle(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())

	o := &MedicationOrder{AdmissionID: a.ID, Medicine: "ceftriaxone", Dose: "1g", Frequency: "bd"}
	if err := env.svc.AddMedicationOrder(context.Background(), o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != OrderActive {
		t.Errorf("status = %s, want active", o.Status)
	}

	if err := env.svc.StopMedicationOrder(context.Background(), o.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := env.svc.StopMedicationOrder(context.Background(), o.ID); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("expected invalid state on double stop, got %v", err)
	}
}

func TestRecordAdministration(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	o := &MedicationOrder{AdmissionID: a.ID, Medicine: "ceftriaxone", Dose: "1g", Frequency: "bd"}
	env.svc.AddMedicationOrder(context.Background(), o)

	m := &MedicationAdministration{AdmissionID: a.ID, OrderID: o.ID, Outcome: MARGiven}
	if err := env.svc.RecordAdministration(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRecordAdministrationRequiresOrder(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	m := &MedicationAdministration{AdmissionID: a.ID, Outcome: MARGiven}
	if err := env.svc.RecordAdministration(context.Background(), m); !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordAdministrationInvalidOutcome(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	m := &MedicationAdministration{AdmissionID: a.ID, Outcome: "maybe"}
	if err := env.svc.RecordAdministration(context.Background(), m); !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRecordAdministrationWrongAdmission(t *testing.T) {
	env := newTestEnv()
	a1, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	a2, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	o := &MedicationOrder{AdmissionID: a1.ID, Medicine: "ceftriaxone", Dose: "1g", Frequency: "bd"}
	env.svc.AddMedicationOrder(context.Background(), o)

	m := &MedicationAdministration{AdmissionID: a2.ID, OrderID: o.ID, Outcome: MARGiven}
	if err := env.svc.RecordAdministration(context.Background(), m); !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddProcedure(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())

	p := &ProcedureRecord{AdmissionID: a.ID, Name: "central line insertion"}
	if err := env.svc.AddProcedure(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PerformedAt.IsZero() {
		t.Error("expected performed_at to be defaulted")
	}

	items, total, err := env.svc.ListProcedures(context.Background(), a.ID, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Errorf("expected one procedure, got %d", total)
	}
}

func TestAddProcedureRequiresName(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	err := env.svc.AddProcedure(context.Background(), &ProcedureRecord{AdmissionID: a.ID})
	if !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddSurgery(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())

	at := time.Now().UTC().Add(24 * time.Hour)
	sr := &SurgeryRecord{AdmissionID: a.ID, Name: "laparoscopic appendectomy", ScheduledAt: &at}
	if err := env.svc.AddSurgery(context.Background(), sr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sr.RecordedAt.IsZero() {
		t.Error("expected recorded_at to be defaulted")
	}
}

func TestAddSurgeryNeedsTime(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	sr := &SurgeryRecord{AdmissionID: a.ID, Name: "laparoscopic appendectomy"}
	if err := env.svc.AddSurgery(context.Background(), sr); !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddSurgeryClosedAdmission(t *testing.T) {
	env := newTestEnv()
	a, _ := env.svc.Admit(context.Background(), validAdmitRequest())
	env.svc.Discharge(context.Background(), a.ID, &DischargeRequest{})

	at := time.Now().UTC()
	sr := &SurgeryRecord{AdmissionID: a.ID, Name: "laparoscopic appendectomy", PerformedAt: &at}
	if err := env.svc.AddSurgery(context.Background(), sr); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}
