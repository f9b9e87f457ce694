package domain

import (
	"fmt"
	"strings"
	"time"
)

// CreateEmployeeRequest is the body of POST /employees. Pointer fields let
// validation tell a missing field from a zero value.
type CreateEmployeeRequest struct {
	EmployeeID  *string  `json:"employee_id"`
	Name        *string  `json:"name"`
	Department  *string  `json:"department"`
	Salary      *float64 `json:"salary"`
	JoiningDate *Date    `json:"joining_date"`
	Skills      []string `json:"skills"`
}

// Validate reports every missing required field at once.
func (r CreateEmployeeRequest) Validate() error {
	var missing []string
	if r.EmployeeID == nil || strings.TrimSpace(*r.EmployeeID) == "" {
		missing = append(missing, "employee_id")
	}
	if r.Name == nil {
		missing = append(missing, "name")
	}
	if r.Department == nil {
		missing = append(missing, "department")
	}
	if r.Salary == nil {
		missing = append(missing, "salary")
	}
	if r.JoiningDate == nil || r.JoiningDate.IsZero() {
		missing = append(missing, "joining_date")
	}
	if len(missing) > 0 {
		return NewError(ErrBadRequest, fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Employee converts a validated request into a record. Skills default to an
// empty list.
func (r CreateEmployeeRequest) Employee() Employee {
	skills := make([]string, len(r.Skills))
	copy(skills, r.Skills)
	return Employee{
		EmployeeID:  *r.EmployeeID,
		Name:        *r.Name,
		Department:  *r.Department,
		Salary:      *r.Salary,
		JoiningDate: r.JoiningDate.Time(),
		Skills:      skills,
	}
}

// UpdateEmployeeRequest is the body of PUT /employees/{id}. employee_id is
// deliberately absent: identity is immutable.
type UpdateEmployeeRequest struct {
	Name        Optional[string]   `json:"name"`
	Department  Optional[string]   `json:"department"`
	Salary      Optional[float64]  `json:"salary"`
	JoiningDate Optional[Date]     `json:"joining_date"`
	Skills      Optional[[]string] `json:"skills"`
}

// UpdateSet keeps only the fields that carry a value. Absent and null fields
// are both left out, so they leave the stored value untouched.
func (r UpdateEmployeeRequest) UpdateSet() UpdateSet {
	var set UpdateSet
	if r.Name.HasValue() {
		v := r.Name.Value
		set.Name = &v
	}
	if r.Department.HasValue() {
		v := r.Department.Value
		set.Department = &v
	}
	if r.Salary.HasValue() {
		v := r.Salary.Value
		set.Salary = &v
	}
	if r.JoiningDate.HasValue() {
		v := r.JoiningDate.Value.Time()
		set.JoiningDate = &v
	}
	if r.Skills.HasValue() {
		v := make([]string, len(r.Skills.Value))
		copy(v, r.Skills.Value)
		set.Skills = &v
	}
	return set
}

// UpdateSet is the field-level write of a partial update. A nil pointer means
// the field is excluded; a non-nil pointer to an empty value is a write.
type UpdateSet struct {
	Name        *string
	Department  *string
	Salary      *float64
	JoiningDate *time.Time
	Skills      *[]string
}

func (u UpdateSet) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Fields lists the storage names of the fields present in the set.
func (u UpdateSet) Fields() []string {
	var fields []string
	if u.Name != nil {
		fields = append(fields, "name")
	}
	if u.Department != nil {
		fields = append(fields, "department")
	}
	if u.Salary != nil {
		fields = append(fields, "salary")
	}
	if u.JoiningDate != nil {
		fields = append(fields, "joining_date")
	}
	if u.Skills != nil {
		fields = append(fields, "skills")
	}
	return fields
}

// Apply writes the set onto e in place.
func (u UpdateSet) Apply(e *Employee) {
	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Department != nil {
		e.Department = *u.Department
	}
	if u.Salary != nil {
		e.Salary = *u.Salary
	}
	if u.JoiningDate != nil {
		e.JoiningDate = *u.JoiningDate
	}
	if u.Skills != nil {
		skills := make([]string, len(*u.Skills))
		copy(skills, *u.Skills)
		e.Skills = skills
	}
}
