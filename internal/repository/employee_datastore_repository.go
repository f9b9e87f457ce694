package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"google.golang.org/api/iterator"
)

// datastoreBatchLimit is the per-call entity limit of DeleteMulti.
const datastoreBatchLimit = 500

// employeeEntity is one record in Cloud Datastore. The key name is the
// employee_id, which makes uniqueness a property of the key itself.
type employeeEntity struct {
	EmployeeID  string    `datastore:"employee_id"`
	Name        string    `datastore:"name,noindex"`
	Department  string    `datastore:"department"`
	Salary      float64   `datastore:"salary"`
	JoiningDate time.Time `datastore:"joining_date"`
	Skills      []string  `datastore:"skills"`
}

func newEmployeeEntity(e domain.Employee) *employeeEntity {
	return &employeeEntity{
		EmployeeID:  e.EmployeeID,
		Name:        e.Name,
		Department:  e.Department,
		Salary:      e.Salary,
		JoiningDate: domain.DateOf(e.JoiningDate).Time(),
		Skills:      nonNilSkills(e.Skills),
	}
}

func (ent *employeeEntity) toDomain(key *datastore.Key) domain.Employee {
	return domain.Employee{
		ID:          key.Encode(),
		EmployeeID:  ent.EmployeeID,
		Name:        ent.Name,
		Department:  ent.Department,
		Salary:      ent.Salary,
		JoiningDate: domain.DateOf(ent.JoiningDate.UTC()).Time(),
		Skills:      nonNilSkills(ent.Skills),
	}
}

type datastoreEmployeeRepository struct {
	client *datastore.Client
	kind   string
}

// NewDatastoreEmployeeRepository stores records as entities of the given kind.
// Department listings need the composite index declared in index.yaml.
func NewDatastoreEmployeeRepository(client *datastore.Client, kind string) *datastoreEmployeeRepository {
	return &datastoreEmployeeRepository{client: client, kind: kind}
}

func (r *datastoreEmployeeRepository) key(employeeID string) *datastore.Key {
	return datastore.NameKey(r.kind, employeeID, nil)
}

func (r *datastoreEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	key := r.key(e.EmployeeID)
	_, err := r.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing employeeEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return fmt.Errorf("%w: employee_id %q already exists", domain.ErrConflict, e.EmployeeID)
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, newEmployeeEntity(*e))
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return err
		}
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	e.ID = key.Encode()
	return nil
}

func (r *datastoreEmployeeRepository) Exists(ctx context.Context, employeeID string) (bool, error) {
	var ent employeeEntity
	err := r.client.Get(ctx, r.key(employeeID), &ent)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check employee: %w", err)
	}
	return true, nil
}

func (r *datastoreEmployeeRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	key := r.key(employeeID)
	var ent employeeEntity
	err := r.client.Get(ctx, key, &ent)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	e := ent.toDomain(key)
	return &e, nil
}

func (r *datastoreEmployeeRepository) Update(ctx context.Context, employeeID string, set domain.UpdateSet) error {
	key := r.key(employeeID)
	_, err := r.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var ent employeeEntity
		if err := tx.Get(key, &ent); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
			}
			return err
		}
		e := ent.toDomain(key)
		set.Apply(&e)
		_, err := tx.Put(key, newEmployeeEntity(e))
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return nil
}

func (r *datastoreEmployeeRepository) Delete(ctx context.Context, employeeID string) error {
	key := r.key(employeeID)
	_, err := r.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var ent employeeEntity
		if err := tx.Get(key, &ent); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
			}
			return err
		}
		return tx.Delete(key)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	return nil
}

// FindBySkill uses equality on a multi-valued property, which matches any
// element of the list.
func (r *datastoreEmployeeRepository) FindBySkill(ctx context.Context, skill string) ([]domain.Employee, error) {
	q := datastore.NewQuery(r.kind).FilterField("skills", "=", skill)
	employees, err := r.getAll(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to find employees by skill: %w", err)
	}
	sortByJoiningDate(employees)
	return employees, nil
}

// AverageSalaryByDepartment folds over every record client-side.
func (r *datastoreEmployeeRepository) AverageSalaryByDepartment(ctx context.Context) ([]domain.DepartmentSalary, error) {
	q := datastore.NewQuery(r.kind)
	employees, err := r.getAll(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate salaries: %w", err)
	}
	return averageSalaries(employees), nil
}

func (r *datastoreEmployeeRepository) DistinctDepartments(ctx context.Context) ([]string, error) {
	q := datastore.NewQuery(r.kind).
		Project("department").
		DistinctOn("department").
		Order("department")

	var rows []struct {
		Department string `datastore:"department"`
	}
	if _, err := r.client.GetAll(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	departments := make([]string, 0, len(rows))
	for _, row := range rows {
		departments = append(departments, row.Department)
	}
	return departments, nil
}

func (r *datastoreEmployeeRepository) FindByDepartment(ctx context.Context, department string, skip, limit int) ([]domain.Employee, error) {
	q := datastore.NewQuery(r.kind).
		FilterField("department", "=", department).
		Order("joining_date").
		Order("__key__").
		Offset(skip).
		Limit(limit)
	employees, err := r.getAll(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list department %q: %w", department, err)
	}
	return employees, nil
}

func (r *datastoreEmployeeRepository) DeleteAll(ctx context.Context) (int64, error) {
	keys, err := r.client.GetAll(ctx, datastore.NewQuery(r.kind).KeysOnly(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to list employee keys: %w", err)
	}
	for start := 0; start < len(keys); start += datastoreBatchLimit {
		end := start + datastoreBatchLimit
		if end > len(keys) {
			end = len(keys)
		}
		if err := r.client.DeleteMulti(ctx, keys[start:end]); err != nil {
			return int64(start), fmt.Errorf("failed to delete employees: %w", err)
		}
	}
	return int64(len(keys)), nil
}

func (r *datastoreEmployeeRepository) Ping(ctx context.Context) error {
	it := r.client.Run(ctx, datastore.NewQuery(r.kind).KeysOnly().Limit(1))
	_, err := it.Next(nil)
	if err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

func (r *datastoreEmployeeRepository) getAll(ctx context.Context, q *datastore.Query) ([]domain.Employee, error) {
	var entities []employeeEntity
	keys, err := r.client.GetAll(ctx, q, &entities)
	if err != nil {
		return nil, err
	}
	employees := make([]domain.Employee, 0, len(entities))
	for i := range entities {
		employees = append(employees, entities[i].toDomain(keys[i]))
	}
	return employees, nil
}

func sortByJoiningDate(employees []domain.Employee) {
	sort.SliceStable(employees, func(i, j int) bool {
		a, b := employees[i], employees[j]
		if !a.JoiningDate.Equal(b.JoiningDate) {
			return a.JoiningDate.Before(b.JoiningDate)
		}
		return a.EmployeeID < b.EmployeeID
	})
}

// averageSalaries groups by department and returns rows sorted by name.
func averageSalaries(employees []domain.Employee) []domain.DepartmentSalary {
	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	for _, e := range employees {
		a, ok := groups[e.Department]
		if !ok {
			a = &acc{}
			groups[e.Department] = a
		}
		a.sum += e.Salary
		a.count++
	}

	result := make([]domain.DepartmentSalary, 0, len(groups))
	for dept, a := range groups {
		result = append(result, domain.DepartmentSalary{Department: dept, AvgSalary: a.sum / float64(a.count)})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Department < result[j].Department })
	return result
}
