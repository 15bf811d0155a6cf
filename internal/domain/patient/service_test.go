package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/pkg/apperr"
)

type mockRepo struct {
	patients  map[uuid.UUID]*Patient
	documents map[uuid.UUID][]*Document
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients:  make(map[uuid.UUID]*Patient),
		documents: make(map[uuid.UUID][]*Document),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFoundf("patient not found")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByNumber(_ context.Context, number string) (*Patient, error) {
	for _, p := range m.patients {
		if p.PatientNumber == number {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperr.NotFoundf("patient not found")
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return apperr.NotFoundf("patient not found")
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) (bool, error) {
	p, ok := m.patients[id]
	if !ok || p.IsActive == active {
		return false, nil
	}
	p.IsActive = active
	return true, nil
}

func (m *mockRepo) List(_ context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.Gender != "" && p.Gender != f.Gender {
			continue
		}
		if f.BloodGroup != "" && (p.BloodGroup == nil || *p.BloodGroup != f.BloodGroup) {
			continue
		}
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func (m *mockRepo) Search(_ context.Context, q string, limit int) ([]*Patient, error) {
	var items []*Patient
	lq := strings.ToLower(q)
	for _, p := range m.patients {
		if !p.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), lq) ||
			strings.Contains(p.Phone, q) ||
			strings.Contains(strings.ToLower(p.PatientNumber), lq) {
			cp := *p
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (m *mockRepo) AddDocument(_ context.Context, d *Document) error {
	d.ID = uuid.New()
	m.documents[d.PatientID] = append(m.documents[d.PatientID], d)
	return nil
}

func (m *mockRepo) ListDocuments(_ context.Context, patientID uuid.UUID) ([]*Document, error) {
	return m.documents[patientID], nil
}

type mockNumbers struct{ n int }

func (m *mockNumbers) NextPatientNumber(_ context.Context, now time.Time) (string, error) {
	m.n++
	return fmt.Sprintf("PAT-%d-%06d", now.Year(), m.n), nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, &mockNumbers{}, zerolog.Nop()), repo
}

func validPatient() *Patient {
	return &Patient{
		Name:        "Asha Verma",
		DateOfBirth: time.Date(1987, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:      GenderFemale,
		Phone:       "9876543210",
	}
}

func TestRegisterAssignsNumber(t *testing.T) {
	svc, _ := newTestService()
	p := validPatient()

	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	want := fmt.Sprintf("PAT-%d-000001", time.Now().Year())
	if p.PatientNumber != want {
		t.Errorf("patient number = %q, want %q", p.PatientNumber, want)
	}
	if !p.IsActive {
		t.Error("new patient should be active")
	}
	if p.AddressCountry != "India" {
		t.Errorf("country = %q, want default India", p.AddressCountry)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	cases := []struct {
		name   string
		mutate func(*Patient)
	}{
		{"missing name", func(p *Patient) { p.Name = "" }},
		{"missing dob", func(p *Patient) { p.DateOfBirth = time.Time{} }},
		{"future dob", func(p *Patient) { p.DateOfBirth = time.Now().Add(48 * time.Hour) }},
		{"bad gender", func(p *Patient) { p.Gender = "unknown" }},
		{"missing phone", func(p *Patient) { p.Phone = "" }},
		{"bad blood group", func(p *Patient) { bg := "C+"; p.BloodGroup = &bg }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPatient()
			tc.mutate(p)
			if err := svc.Register(context.Background(), p); !errors.Is(err, apperr.Validation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestUpdateKeepsNumber(t *testing.T) {
	svc, _ := newTestService()
	p := validPatient()
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	upd := validPatient()
	upd.Phone = "9123456780"
	got, err := svc.Update(context.Background(), p.ID, upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.PatientNumber != p.PatientNumber {
		t.Errorf("number changed from %q to %q", p.PatientNumber, got.PatientNumber)
	}
	if got.Phone != "9123456780" {
		t.Errorf("phone = %q", got.Phone)
	}
}

func TestUpdateDeactivatedFails(t *testing.T) {
	svc, _ := newTestService()
	p := validPatient()
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Deactivate(context.Background(), p.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	_, err := svc.Update(context.Background(), p.ID, validPatient())
	if !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
}

func TestDeactivateTwiceFails(t *testing.T) {
	svc, _ := newTestService()
	p := validPatient()
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Deactivate(context.Background(), p.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := svc.Deactivate(context.Background(), p.ID); !errors.Is(err, apperr.InvalidState) {
		t.Fatalf("err = %v, want invalid state", err)
	}
	if err := svc.Reactivate(context.Background(), p.ID); err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
}

func TestDeactivatedExcludedFromActiveList(t *testing.T) {
	svc, _ := newTestService()
	p1, p2 := validPatient(), validPatient()
	p2.Name = "Rohan Gupta"
	for _, p := range []*Patient{p1, p2} {
		if err := svc.Register(context.Background(), p); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	if err := svc.Deactivate(context.Background(), p2.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	items, total, err := svc.List(context.Background(), Filter{ActiveOnly: true}, 50, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != p1.ID {
		t.Errorf("active list = %d items, want only the active patient", len(items))
	}
}

func TestSearchMatchesNamePhoneNumber(t *testing.T) {
	svc, _ := newTestService()
	p := validPatient()
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, q := range []string{"asha", "98765", p.PatientNumber} {
		items, err := svc.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		if len(items) != 1 {
			t.Errorf("Search(%q) = %d hits, want 1", q, len(items))
		}
	}

	if _, err := svc.Search(context.Background(), ""); !errors.Is(err, apperr.Validation) {
		t.Error("empty query should be rejected")
	}
}

func TestAttachDocument(t *testing.T) {
	svc, _ := newTestService()
	p := validPatient()
	if err := svc.Register(context.Background(), p); err != nil {
		t.Fatalf("Register: %v", err)
	}

	d := &Document{Name: "cbc.pdf", URL: "/uploads/cbc.pdf"}
	if err := svc.AttachDocument(context.Background(), p.ID, d); err != nil {
		t.Fatalf("AttachDocument: %v", err)
	}
	if d.DocType != DocOther {
		t.Errorf("doc type = %q, want default %q", d.DocType, DocOther)
	}

	bad := &Document{Name: "x", URL: "/x", DocType: "spreadsheet"}
	if err := svc.AttachDocument(context.Background(), p.ID, bad); !errors.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	docs, err := svc.Documents(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("documents = %d, want 1", len(docs))
	}
}

func TestAge(t *testing.T) {
	p := &Patient{DateOfBirth: time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)}
	now := time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC)
	if got := p.Age(now); got != 35 {
		t.Errorf("age day before birthday = %d, want 35", got)
	}
	now = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	if got := p.Age(now); got != 36 {
		t.Errorf("age on birthday = %d, want 36", got)
	}
}
