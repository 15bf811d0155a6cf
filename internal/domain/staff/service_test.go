package staff

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

type mockDoctorRepo struct {
	doctors   map[uuid.UUID]*Doctor
	schedules map[uuid.UUID][]ScheduleSlot
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{
		doctors:   make(map[uuid.UUID]*Doctor),
		schedules: make(map[uuid.UUID][]ScheduleSlot),
	}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	d.ID = uuid.New()
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFoundf("doctor not found")
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) GetByLicense(_ context.Context, license string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.LicenseNumber == license {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperr.NotFoundf("doctor not found")
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	if _, ok := m.doctors[d.ID]; !ok {
		return apperr.NotFoundf("doctor not found")
	}
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) SetAvailable(_ context.Context, id uuid.UUID, available bool) (bool, error) {
	d, ok := m.doctors[id]
	if !ok || d.IsAvailable == available {
		return false, nil
	}
	d.IsAvailable = available
	return true, nil
}

func (m *mockDoctorRepo) List(_ context.Context, f DoctorFilter, limit, offset int) ([]*Doctor, int, error) {
	var items []*Doctor
	for _, d := range m.doctors {
		if f.Specialization != "" && d.Specialization != f.Specialization {
			continue
		}
		if f.AvailableOnly && !d.IsAvailable {
			continue
		}
		cp := *d
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockDoctorRepo) ReplaceSchedule(_ context.Context, doctorID uuid.UUID, slots []ScheduleSlot) error {
	m.schedules[doctorID] = append([]ScheduleSlot(nil), slots...)
	return nil
}

func (m *mockDoctorRepo) GetSchedule(_ context.Context, doctorID uuid.UUID) ([]*ScheduleSlot, error) {
	var items []*ScheduleSlot
	for i := range m.schedules[doctorID] {
		cp := m.schedules[doctorID][i]
		items = append(items, &cp)
	}
	return items, nil
}

type mockStaffRepo struct {
	members map[uuid.UUID]*Staff
}

func newMockStaffRepo() *mockStaffRepo {
	return &mockStaffRepo{members: make(map[uuid.UUID]*Staff)}
}

func (m *mockStaffRepo) Create(_ context.Context, s *Staff) error {
	s.ID = uuid.New()
	cp := *s
	m.members[s.ID] = &cp
	return nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*Staff, error) {
	s, ok := m.members[id]
	if !ok {
		return nil, apperr.NotFoundf("staff member not found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockStaffRepo) Update(_ context.Context, s *Staff) error {
	if _, ok := m.members[s.ID]; !ok {
		return apperr.NotFoundf("staff member not found")
	}
	cp := *s
	m.members[s.ID] = &cp
	return nil
}

func (m *mockStaffRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (bool, error) {
	s, ok := m.members[id]
	if !ok || s.IsActive == active {
		return false, nil
	}
	s.IsActive = active
	return true, nil
}

func (m *mockStaffRepo) List(_ context.Context, f StaffFilter, limit, offset int) ([]*Staff, int, error) {
	var items []*Staff
	for _, s := range m.members {
		if f.ActiveOnly && !s.IsActive {
			continue
		}
		if f.Role != "" && s.Role != f.Role {
			continue
		}
		cp := *s
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockStaffRepo) CountByDepartment(_ context.Context) ([]*DepartmentCount, error) {
	counts := make(map[string]int)
	for _, s := range m.members {
		if s.IsActive {
			counts[s.Department]++
		}
	}
	var items []*DepartmentCount
	for dept, n := range counts {
		items = append(items, &DepartmentCount{Department: dept, Count: n})
	}
	return items, nil
}

type mockNumbers struct{ doctors, staff int }

func (m *mockNumbers) NextDoctorNumber(_ context.Context) (string, error) {
	m.doctors++
	return fmt.Sprintf("DOC-%05d", m.doctors), nil
}

func (m *mockNumbers) NextStaffNumber(_ context.Context) (string, error) {
	m.staff++
	return fmt.Sprintf("STF-%05d", m.staff), nil
}

func newTestService() *Service {
	return NewService(newMockDoctorRepo(), newMockStaffRepo(), &mockNumbers{}, zerolog.Nop())
}

func validDoctor() *Doctor {
	return &Doctor{
		Name:            "Dr. Meera Nair",
		Specialization:  "Cardiology",
		Department:      "Cardiology",
		LicenseNumber:   "MCI-88421",
		ConsultationFee: 600,
	}
}

func TestCreateDoctorAssignsNumber(t *testing.T) {
	svc := newTestService()
	d := validDoctor()

	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	if d.DoctorNumber != "DOC-00001" {
		t.Errorf("doctor number = %q", d.DoctorNumber)
	}
	if !d.IsAvailable || !d.OPDEnabled {
		t.Error("new doctor should be available with OPD enabled")
	}
}

func TestCreateDoctorDuplicateLicense(t *testing.T) {
	svc := newTestService()
	if err := svc.CreateDoctor(context.Background(), validDoctor()); err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	err := svc.CreateDoctor(context.Background(), validDoctor())
	if !errors.Is(err, apperr.Conflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestCreateDoctorValidation(t *testing.T) {
	svc := newTestService()
	cases := []struct {
		name   string
		mutate func(*Doctor)
	}{
		{"missing name", func(d *Doctor) { d.Name = "" }},
		{"bad specialization", func(d *Doctor) { d.Specialization = "Sorcery" }},
		{"missing department", func(d *Doctor) { d.Department = "" }},
		{"missing license", func(d *Doctor) { d.LicenseNumber = "" }},
		{"negative fee", func(d *Doctor) { d.ConsultationFee = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDoctor()
			tc.mutate(d)
			if err := svc.CreateDoctor(context.Background(), d); !errors.Is(err, apperr.Validation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestUpdateDoctorKeepsIdentity(t *testing.T) {
	svc := newTestService()
	d := validDoctor()
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}

	upd := validDoctor()
	upd.ConsultationFee = 800
	upd.LicenseNumber = "MCI-DIFFERENT"
	got, err := svc.UpdateDoctor(context.Background(), d.ID, upd)
	if err != nil {
		t.Fatalf("UpdateDoctor: %v", err)
	}
	if got.DoctorNumber != d.DoctorNumber {
		t.Error("doctor number must not change on update")
	}
	if got.LicenseNumber != d.LicenseNumber {
		t.Error("license number must not change on update")
	}
	if got.ConsultationFee != 800 {
		t.Errorf("fee = %v", got.ConsultationFee)
	}
}

func TestSetScheduleValidation(t *testing.T) {
	svc := newTestService()
	d := validDoctor()
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}

	cases := []struct {
		name  string
		slots []ScheduleSlot
	}{
		{"bad weekday", []ScheduleSlot{{Weekday: "Funday", StartTime: "09:00", EndTime: "12:00"}}},
		{"bad time", []ScheduleSlot{{Weekday: "Monday", StartTime: "9am", EndTime: "12:00"}}},
		{"start after end", []ScheduleSlot{{Weekday: "Monday", StartTime: "13:00", EndTime: "12:00"}}},
		{"duplicate day", []ScheduleSlot{
			{Weekday: "Monday", StartTime: "09:00", EndTime: "12:00"},
			{Weekday: "Monday", StartTime: "14:00", EndTime: "17:00"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SetSchedule(context.Background(), d.ID, tc.slots); !errors.Is(err, apperr.Validation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestScheduleForWeekday(t *testing.T) {
	svc := newTestService()
	d := validDoctor()
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("CreateDoctor: %v", err)
	}
	slots := []ScheduleSlot{
		{Weekday: "Monday", StartTime: "09:00", EndTime: "12:00"},
		{Weekday: "Thursday", StartTime: "14:00", EndTime: "17:00", MaxAppointments: 10},
	}
	if _, err := svc.SetSchedule(context.Background(), d.ID, slots); err != nil {
		t.Fatalf("SetSchedule: %v", err)
	}

	got, err := svc.ScheduleFor(context.Background(), d.ID, time.Thursday)
	if err != nil {
		t.Fatalf("ScheduleFor: %v", err)
	}
	if got == nil || got.StartTime != "14:00" || got.MaxAppointments != 10 {
		t.Errorf("thursday slot = %+v", got)
	}

	got, err = svc.ScheduleFor(context.Background(), d.ID, time.Sunday)
	if err != nil {
		t.Fatalf("ScheduleFor: %v", err)
	}
	if got != nil {
		t.Error("expected no schedule on Sunday")
	}

	// Defaulted capacity on the Monday slot.
	monday, _ := svc.ScheduleFor(context.Background(), d.ID, time.Monday)
	if monday.MaxAppointments != 20 {
		t.Errorf("default max appointments = %d, want 20", monday.MaxAppointments)
	}
}

func TestCreateStaffDefaults(t *testing.T) {
	svc := newTestService()
	m := &Staff{Name: "Sunil Kumar", Role: "nurse", Designation: "Staff Nurse", Department: "ICU"}

	if err := svc.CreateStaff(context.Background(), m); err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if m.StaffNumber != "STF-00001" {
		t.Errorf("staff number = %q", m.StaffNumber)
	}
	if m.EmploymentType != "full-time" {
		t.Errorf("employment type = %q, want full-time default", m.EmploymentType)
	}
	if m.JoiningDate.IsZero() || !m.IsActive {
		t.Error("joining date and active flag should be set")
	}
}

func TestCreateStaffInvalidRole(t *testing.T) {
	svc := newTestService()
	m := &Staff{Name: "X", Role: "surgeon", Designation: "Y", Department: "Z"}
	if err := svc.CreateStaff(context.Background(), m); !errors.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestUpdateDeactivatedStaffFails(t *testing.T) {
	svc := newTestService()
	m := &Staff{Name: "Sunil Kumar", Role: "nurse", Designation: "Staff Nurse", Department: "ICU"}
	if err := svc.CreateStaff(context.Background(), m); err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if err := svc.DeactivateStaff(context.Background(), m.ID); err != nil {
		t.Fatalf("DeactivateStaff: %v", err)
	}
	if _, err := svc.UpdateStaff(context.Background(), m.ID, m); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}

func TestStaffByDepartmentCountsActiveOnly(t *testing.T) {
	svc := newTestService()
	for i := 0; i < 2; i++ {
		m := &Staff{Name: fmt.Sprintf("Nurse %d", i), Role: "nurse", Designation: "Staff Nurse", Department: "ICU"}
		if err := svc.CreateStaff(context.Background(), m); err != nil {
			t.Fatalf("CreateStaff: %v", err)
		}
	}
	gone := &Staff{Name: "Former", Role: "cleaner", Designation: "Cleaner", Department: "Housekeeping"}
	if err := svc.CreateStaff(context.Background(), gone); err != nil {
		t.Fatalf("CreateStaff: %v", err)
	}
	if err := svc.DeactivateStaff(context.Background(), gone.ID); err != nil {
		t.Fatalf("DeactivateStaff: %v", err)
	}

	counts, err := svc.StaffByDepartment(context.Background())
	if err != nil {
		t.Fatalf("StaffByDepartment: %v", err)
	}
	if len(counts) != 1 || counts[0].Department != "ICU" || counts[0].Count != 2 {
		t.Errorf("counts = %+v", counts)
	}
}
