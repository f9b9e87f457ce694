package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertEmployeeQuery(t *testing.T) {
	e := domain.Employee{
		EmployeeID:  "E1",
		Name:        "Ann",
		Department:  "Eng",
		Salary:      120,
		JoiningDate: time.Date(2023, 5, 17, 15, 4, 5, 0, time.UTC),
	}

	query, args := insertEmployeeQuery(e)

	assert.Equal(t,
		"INSERT INTO employees (employee_id, name, department, salary, joining_date, skills) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id",
		query)
	require.Len(t, args, 6)
	assert.Equal(t, "2023-05-17", args[4])
	assert.Equal(t, pq.Array([]string{}), args[5])
}

func TestUpdateEmployeeQuery(t *testing.T) {
	salary := 99.5
	joined := time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	skills := []string{"go"}

	tests := []struct {
		name      string
		set       domain.UpdateSet
		wantQuery string
		wantArgs  int
	}{
		{
			name:      "single field",
			set:       domain.UpdateSet{Salary: &salary},
			wantQuery: "UPDATE employees SET salary = $1 WHERE employee_id = $2",
			wantArgs:  2,
		},
		{
			name:      "date and skills",
			set:       domain.UpdateSet{JoiningDate: &joined, Skills: &skills},
			wantQuery: "UPDATE employees SET joining_date = $1, skills = $2 WHERE employee_id = $3",
			wantArgs:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := updateEmployeeQuery("E1", tt.set)
			assert.Equal(t, tt.wantQuery, query)
			require.Len(t, args, tt.wantArgs)
			assert.Equal(t, "E1", args[len(args)-1])
		})
	}
}

func TestDepartmentWindowQuery(t *testing.T) {
	query, args := departmentWindowQuery("Eng", 10, domain.PageSize)

	assert.Equal(t,
		"SELECT id, employee_id, name, department, salary, joining_date, skills FROM employees WHERE department = $1 ORDER BY joining_date ASC, id ASC LIMIT 10 OFFSET 10",
		query)
	assert.Equal(t, []interface{}{"Eng"}, args)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pq.Error{Code: pgUniqueViolation})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestPostgresUpdate_EmptySetRejected(t *testing.T) {
	repo := NewPostgresEmployeeRepository(nil)
	err := repo.Update(context.Background(), "E1", domain.UpdateSet{})
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

type fakeRow struct {
	values []interface{}
}

func (f fakeRow) Scan(dest ...interface{}) error {
	if len(dest) != len(f.values) {
		return fmt.Errorf("want %d columns, got %d", len(f.values), len(dest))
	}
	*(dest[0].(*int64)) = f.values[0].(int64)
	*(dest[1].(*string)) = f.values[1].(string)
	*(dest[2].(*string)) = f.values[2].(string)
	*(dest[3].(*string)) = f.values[3].(string)
	*(dest[4].(*float64)) = f.values[4].(float64)
	*(dest[5].(*time.Time)) = f.values[5].(time.Time)
	return dest[6].(interface{ Scan(interface{}) error }).Scan(f.values[6])
}

func TestScanEmployee(t *testing.T) {
	row := fakeRow{values: []interface{}{
		int64(42), "E1", "Ann", "Eng", 150.0,
		time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC),
		[]byte(`{go,"machine learning"}`),
	}}

	e, err := scanEmployee(row)
	require.NoError(t, err)
	assert.Equal(t, "42", e.ID)
	assert.Equal(t, []string{"go", "machine learning"}, e.Skills)
	assert.Equal(t, "2022-07-01", domain.DateOf(e.JoiningDate).String())
}
