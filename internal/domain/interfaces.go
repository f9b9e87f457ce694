package domain

import "context"

// EmployeeRepository defines the interface for employee record storage.
// Implementations return errors wrapping ErrConflict or ErrNotFound for the
// cases documented below; anything else is a storage failure.
type EmployeeRepository interface {
	// Insert fails with ErrConflict when employee_id is already taken,
	// including when a concurrent insert wins the race.
	Insert(ctx context.Context, e *Employee) error
	Exists(ctx context.Context, employeeID string) (bool, error)
	// FindByEmployeeID fails with ErrNotFound when absent.
	FindByEmployeeID(ctx context.Context, employeeID string) (*Employee, error)
	// Update fails with ErrNotFound when no record matches.
	Update(ctx context.Context, employeeID string, set UpdateSet) error
	// Delete fails with ErrNotFound when no record matches.
	Delete(ctx context.Context, employeeID string) error
	FindBySkill(ctx context.Context, skill string) ([]Employee, error)
	AverageSalaryByDepartment(ctx context.Context) ([]DepartmentSalary, error)
	DistinctDepartments(ctx context.Context) ([]string, error)
	// FindByDepartment returns one department's records ordered by joining
	// date ascending, after skipping skip records, at most limit of them.
	FindByDepartment(ctx context.Context, department string, skip, limit int) ([]Employee, error)
	// DeleteAll removes every record and reports how many were removed.
	DeleteAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// EventPublisher announces record lifecycle changes.
type EventPublisher interface {
	PublishEmployeeCreated(ctx context.Context, e *Employee) error
	PublishEmployeeUpdated(ctx context.Context, employeeID string, fields []string) error
	PublishEmployeeDeleted(ctx context.Context, employeeID string) error
}

// SearchIndex is a secondary full-text copy of the records.
type SearchIndex interface {
	IndexEmployee(ctx context.Context, e Employee) error
	DeleteEmployee(ctx context.Context, employeeID string) error
	SearchByName(ctx context.Context, query string) ([]Employee, error)
}
