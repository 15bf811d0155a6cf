package ipd

import (
	"context"

	"github.com/google/uuid"
)

// AdmissionRepository persists admissions. The guarded mutations return
// false when the admission was not in the state the guard requires.
type AdmissionRepository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	GetByNumber(ctx context.Context, admissionNumber string) (*Admission, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Admission, int, error)
	CountByStatus(ctx context.Context) (map[string]int, error)

	// SetStatusIfActive moves a non-terminal admission to the given status.
	SetStatusIfActive(ctx context.Context, id uuid.UUID, status string) (bool, error)
	// SetBedIfActive points a non-terminal admission at a new bed.
	SetBedIfActive(ctx context.Context, id, bedID uuid.UUID) (bool, error)
	// CloseIfActive finalizes a non-terminal admission with discharge
	// details and clears its bed reference.
	CloseIfActive(ctx context.Context, a *Admission) (bool, error)
	UpdateDetails(ctx context.Context, a *Admission) error

	AddStatusChange(ctx context.Context, sc *StatusChange) error
	ListStatusChanges(ctx context.Context, admissionID uuid.UUID) ([]*StatusChange, error)
	AddBedTransfer(ctx context.Context, bt *BedTransfer) error
	ListBedTransfers(ctx context.Context, admissionID uuid.UUID) ([]*BedTransfer, error)
}

// ChartRepository persists the append-only clinical record streams attached
// to an admission. Rows are never updated or deleted.
type ChartRepository interface {
	AddVital(ctx context.Context, v *VitalRecord) error
	ListVitals(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalRecord, int, error)

	AddNote(ctx context.Context, n *ProgressNote) error
	ListNotes(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*ProgressNote, int, error)

	AddMedicationOrder(ctx context.Context, o *MedicationOrder) error
	GetMedicationOrder(ctx context.Context, id uuid.UUID) (*MedicationOrder, error)
	SetOrderStatus(ctx context.Context, id uuid.UUID, status string) (bool, error)
	ListMedicationOrders(ctx context.Context, admissionID uuid.UUID) ([]*MedicationOrder, error)

	AddAdministration(ctx context.Context, m *MedicationAdministration) error
	ListAdministrations(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*MedicationAdministration, int, error)

	AddDressing(ctx context.Context, d *DressingRecord) error
	ListDressings(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*DressingRecord, int, error)

	AddProcedure(ctx context.Context, p *ProcedureRecord) error
	ListProcedures(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*ProcedureRecord, int, error)

	AddSurgery(ctx context.Context, sr *SurgeryRecord) error
	ListSurgeries(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*SurgeryRecord, int, error)
}
