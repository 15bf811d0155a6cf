package bed

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists beds. The conditional transition methods return false
// when the guard did not match, so callers can distinguish a lost race from
// an infrastructure failure.
type Repository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	GetByNumber(ctx context.Context, ward, bedNumber string) (*Bed, error)
	Update(ctx context.Context, b *Bed) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*Bed, int, error)

	// AssignIfAvailable moves an available bed to occupied and binds the
	// patient and admission in one guarded statement. Under contention
	// exactly one caller sees true.
	AssignIfAvailable(ctx context.Context, bedID, patientID, admissionID uuid.UUID) (bool, error)
	// AssignIfReservedFor claims a reservation held for the given patient.
	AssignIfReservedFor(ctx context.Context, bedID, patientID, admissionID uuid.UUID) (bool, error)
	// ReserveIfAvailable moves an available bed to reserved.
	ReserveIfAvailable(ctx context.Context, bedID, patientID uuid.UUID) (bool, error)
	// FreeReservation moves a reserved bed back to available.
	FreeReservation(ctx context.Context, bedID uuid.UUID) (bool, error)
	// ReleaseIfOccupied moves an occupied bed to cleaning, clears the
	// occupant columns and returns the prior occupant. A nil occupant with
	// a nil error means the bed was not occupied.
	ReleaseIfOccupied(ctx context.Context, bedID uuid.UUID) (*ReleasedOccupant, error)
	// CompleteCleaning moves a cleaning bed back to available.
	CompleteCleaning(ctx context.Context, bedID uuid.UUID) (bool, error)
	// SetMaintenance moves an available or cleaning bed to maintenance.
	SetMaintenance(ctx context.Context, bedID uuid.UUID, note *string) (bool, error)
	// EndMaintenance moves a maintenance bed back to available.
	EndMaintenance(ctx context.Context, bedID uuid.UUID) (bool, error)

	WardSummary(ctx context.Context) ([]*WardOccupancy, error)

	AddHistory(ctx context.Context, rec *OccupancyRecord) error
	ListHistory(ctx context.Context, bedID uuid.UUID, limit, offset int) ([]*OccupancyRecord, int, error)
}
