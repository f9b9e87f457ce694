package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/locvowork/employee_records/apigateway/internal/domain"
)

// MemoryEmployeeRepository keeps records in process memory. It backs tests
// and STORE_DRIVER=memory; uniqueness is checked under the write lock.
type MemoryEmployeeRepository struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	seq     uint64
}

type memoryRecord struct {
	employee domain.Employee
	// seq is the insertion order; it breaks joining date ties the way a
	// natural _id order does in the document store.
	seq uint64
}

// NewMemoryEmployeeRepository creates an empty in-memory store.
func NewMemoryEmployeeRepository() *MemoryEmployeeRepository {
	return &MemoryEmployeeRepository{records: make(map[string]memoryRecord)}
}

func (r *MemoryEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[e.EmployeeID]; ok {
		return fmt.Errorf("%w: employee_id %q already exists", domain.ErrConflict, e.EmployeeID)
	}
	r.seq++
	stored := cloneEmployee(*e)
	stored.ID = uuid.NewString()
	r.records[e.EmployeeID] = memoryRecord{employee: stored, seq: r.seq}
	e.ID = stored.ID
	return nil
}

func (r *MemoryEmployeeRepository) Exists(ctx context.Context, employeeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.records[employeeID]
	return ok, nil
}

func (r *MemoryEmployeeRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[employeeID]
	if !ok {
		return nil, fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	e := cloneEmployee(rec.employee)
	return &e, nil
}

func (r *MemoryEmployeeRepository) Update(ctx context.Context, employeeID string, set domain.UpdateSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[employeeID]
	if !ok {
		return fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	set.Apply(&rec.employee)
	r.records[employeeID] = rec
	return nil
}

func (r *MemoryEmployeeRepository) Delete(ctx context.Context, employeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[employeeID]; !ok {
		return fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	delete(r.records, employeeID)
	return nil
}

func (r *MemoryEmployeeRepository) FindBySkill(ctx context.Context, skill string) ([]domain.Employee, error) {
	return r.filter(func(e domain.Employee) bool {
		for _, s := range e.Skills {
			if s == skill {
				return true
			}
		}
		return false
	}), nil
}

func (r *MemoryEmployeeRepository) AverageSalaryByDepartment(ctx context.Context) ([]domain.DepartmentSalary, error) {
	all := r.filter(func(domain.Employee) bool { return true })
	return averageSalaries(all), nil
}

func (r *MemoryEmployeeRepository) DistinctDepartments(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, rec := range r.records {
		seen[rec.employee.Department] = struct{}{}
	}
	departments := make([]string, 0, len(seen))
	for dept := range seen {
		departments = append(departments, dept)
	}
	sort.Strings(departments)
	return departments, nil
}

func (r *MemoryEmployeeRepository) FindByDepartment(ctx context.Context, department string, skip, limit int) ([]domain.Employee, error) {
	if skip < 0 {
		return nil, fmt.Errorf("negative skip %d", skip)
	}
	matches := r.filter(func(e domain.Employee) bool { return e.Department == department })
	if skip >= len(matches) {
		return []domain.Employee{}, nil
	}
	end := len(matches)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return matches[skip:end], nil
}

func (r *MemoryEmployeeRepository) DeleteAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.records))
	r.records = make(map[string]memoryRecord)
	return n, nil
}

func (r *MemoryEmployeeRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// filter returns matching records ordered by joining date, then insertion.
func (r *MemoryEmployeeRepository) filter(keep func(domain.Employee) bool) []domain.Employee {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []memoryRecord
	for _, rec := range r.records {
		if keep(rec.employee) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.employee.JoiningDate.Equal(b.employee.JoiningDate) {
			return a.employee.JoiningDate.Before(b.employee.JoiningDate)
		}
		return a.seq < b.seq
	})

	result := make([]domain.Employee, 0, len(matched))
	for _, rec := range matched {
		result = append(result, cloneEmployee(rec.employee))
	}
	return result
}

func cloneEmployee(e domain.Employee) domain.Employee {
	skills := make([]string, len(e.Skills))
	copy(skills, e.Skills)
	e.Skills = skills
	return e
}
