package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/locvowork/employee_records/apigateway/internal/repository/builder"
)

const employeesTable = "employees"

var employeeColumns = []string{"id", "employee_id", "name", "department", "salary", "joining_date", "skills"}

// EmployeeSchema is applied at startup when STORE_DRIVER=postgres.
const EmployeeSchema = `
CREATE TABLE IF NOT EXISTS employees (
	id           BIGSERIAL PRIMARY KEY,
	employee_id  TEXT NOT NULL,
	name         TEXT NOT NULL,
	department   TEXT NOT NULL,
	salary       DOUBLE PRECISION NOT NULL,
	joining_date DATE NOT NULL,
	skills       TEXT[] NOT NULL DEFAULT '{}'
);
CREATE UNIQUE INDEX IF NOT EXISTS uniq_employee_id ON employees (employee_id);
CREATE INDEX IF NOT EXISTS idx_employees_department ON employees (department, joining_date, id);
`

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type postgresEmployeeRepository struct {
	db *sql.DB
}

// NewPostgresEmployeeRepository creates a repository over a PostgreSQL pool.
func NewPostgresEmployeeRepository(db *sql.DB) *postgresEmployeeRepository {
	return &postgresEmployeeRepository{db: db}
}

func (r *postgresEmployeeRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, EmployeeSchema); err != nil {
		return fmt.Errorf("failed to apply employee schema: %w", err)
	}
	return nil
}

func insertEmployeeQuery(e domain.Employee) (string, []interface{}) {
	return builder.NewSQLBuilder().
		Insert(employeesTable, "employee_id", "name", "department", "salary", "joining_date", "skills").
		Values(e.EmployeeID, e.Name, e.Department, e.Salary, domain.DateOf(e.JoiningDate).String(), pq.Array(nonNilSkills(e.Skills))).
		Returning("id").
		Build()
}

func (r *postgresEmployeeRepository) Insert(ctx context.Context, e *domain.Employee) error {
	query, args := insertEmployeeQuery(*e)

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: employee_id %q already exists", domain.ErrConflict, e.EmployeeID)
		}
		return fmt.Errorf("failed to insert employee: %w", err)
	}
	e.ID = strconv.FormatInt(id, 10)
	return nil
}

func (r *postgresEmployeeRepository) Exists(ctx context.Context, employeeID string) (bool, error) {
	query, args := builder.NewSQLBuilder().
		Select("1").
		From(employeesTable).
		Where("employee_id = ?", employeeID).
		Limit(1).
		Build()

	var one int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check employee: %w", err)
	}
	return true, nil
}

func (r *postgresEmployeeRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	query, args := builder.NewSQLBuilder().
		Select(employeeColumns...).
		From(employeesTable).
		Where("employee_id = ?", employeeID).
		Build()

	e, err := scanEmployee(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

func updateEmployeeQuery(employeeID string, set domain.UpdateSet) (string, []interface{}) {
	b := builder.NewSQLBuilder().Update(employeesTable)
	if set.Name != nil {
		b.Set("name", *set.Name)
	}
	if set.Department != nil {
		b.Set("department", *set.Department)
	}
	if set.Salary != nil {
		b.Set("salary", *set.Salary)
	}
	if set.JoiningDate != nil {
		b.Set("joining_date", domain.DateOf(*set.JoiningDate).String())
	}
	if set.Skills != nil {
		b.Set("skills", pq.Array(nonNilSkills(*set.Skills)))
	}
	return b.Where("employee_id = ?", employeeID).Build()
}

func (r *postgresEmployeeRepository) Update(ctx context.Context, employeeID string, set domain.UpdateSet) error {
	if set.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", domain.ErrBadRequest)
	}
	query, args := updateEmployeeQuery(employeeID, set)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}
	return requireAffected(res, employeeID)
}

func (r *postgresEmployeeRepository) Delete(ctx context.Context, employeeID string) error {
	query, args := builder.NewSQLBuilder().
		Delete(employeesTable).
		Where("employee_id = ?", employeeID).
		Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	return requireAffected(res, employeeID)
}

func (r *postgresEmployeeRepository) FindBySkill(ctx context.Context, skill string) ([]domain.Employee, error) {
	query, args := builder.NewSQLBuilder().
		Select(employeeColumns...).
		From(employeesTable).
		Where("? = ANY(skills)", skill).
		OrderBy("id ASC").
		Build()
	return r.query(ctx, query, args...)
}

func (r *postgresEmployeeRepository) AverageSalaryByDepartment(ctx context.Context) ([]domain.DepartmentSalary, error) {
	query, args := builder.NewSQLBuilder().
		Select("department", "AVG(salary) AS avg_salary").
		From(employeesTable).
		GroupBy("department").
		OrderBy("department ASC").
		Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate salaries: %w", err)
	}
	defer rows.Close()

	result := []domain.DepartmentSalary{}
	for rows.Next() {
		var ds domain.DepartmentSalary
		if err := rows.Scan(&ds.Department, &ds.AvgSalary); err != nil {
			return nil, fmt.Errorf("failed to scan salary group: %w", err)
		}
		result = append(result, ds)
	}
	return result, rows.Err()
}

func (r *postgresEmployeeRepository) DistinctDepartments(ctx context.Context) ([]string, error) {
	query, args := builder.NewSQLBuilder().
		Select("department").
		Distinct().
		From(employeesTable).
		OrderBy("department ASC").
		Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	departments := []string{}
	for rows.Next() {
		var dept string
		if err := rows.Scan(&dept); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, dept)
	}
	return departments, rows.Err()
}

func departmentWindowQuery(department string, skip, limit int) (string, []interface{}) {
	return builder.NewSQLBuilder().
		Select(employeeColumns...).
		From(employeesTable).
		Where("department = ?", department).
		OrderBy("joining_date ASC").
		OrderBy("id ASC").
		Limit(limit).
		Offset(skip).
		Build()
}

func (r *postgresEmployeeRepository) FindByDepartment(ctx context.Context, department string, skip, limit int) ([]domain.Employee, error) {
	query, args := departmentWindowQuery(department, skip, limit)
	return r.query(ctx, query, args...)
}

func (r *postgresEmployeeRepository) DeleteAll(ctx context.Context) (int64, error) {
	query, args := builder.NewSQLBuilder().Delete(employeesTable).Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to clear employees: %w", err)
	}
	return res.RowsAffected()
}

func (r *postgresEmployeeRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *postgresEmployeeRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Employee, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	employees := []domain.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmployee(row rowScanner) (domain.Employee, error) {
	var (
		e      domain.Employee
		id     int64
		joined time.Time
		skills []string
	)
	if err := row.Scan(&id, &e.EmployeeID, &e.Name, &e.Department, &e.Salary, &joined, pq.Array(&skills)); err != nil {
		return domain.Employee{}, err
	}
	e.ID = strconv.FormatInt(id, 10)
	e.JoiningDate = domain.DateOf(joined).Time()
	e.Skills = nonNilSkills(skills)
	return e, nil
}

func requireAffected(res sql.Result, employeeID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: employee_id %q", domain.ErrNotFound, employeeID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation
}

func nonNilSkills(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}
