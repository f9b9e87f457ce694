package domain

import "time"

// PageSize bounds the page window of every department in a grouped listing.
const PageSize = 10

// Employee is the stored employee record.
type Employee struct {
	// ID is the storage identifier assigned by the backend (ObjectID hex,
	// datastore key, row id). It is never an input.
	ID          string
	EmployeeID  string
	Name        string
	Department  string
	Salary      float64
	JoiningDate time.Time
	Skills      []string
}

// EmployeeView is the read shape returned at the HTTP boundary.
type EmployeeView struct {
	ID          string   `json:"_id"`
	EmployeeID  string   `json:"employee_id"`
	Name        string   `json:"name"`
	Department  string   `json:"department"`
	Salary      float64  `json:"salary"`
	JoiningDate string   `json:"joining_date"`
	Skills      []string `json:"skills"`
}

// NewEmployeeView shapes a stored record for output.
func NewEmployeeView(e Employee) EmployeeView {
	skills := make([]string, len(e.Skills))
	copy(skills, e.Skills)
	return EmployeeView{
		ID:          e.ID,
		EmployeeID:  e.EmployeeID,
		Name:        e.Name,
		Department:  e.Department,
		Salary:      e.Salary,
		JoiningDate: DateOf(e.JoiningDate).String(),
		Skills:      skills,
	}
}

// NewEmployeeViews shapes a slice of records, never returning nil.
func NewEmployeeViews(employees []Employee) []EmployeeView {
	views := make([]EmployeeView, 0, len(employees))
	for _, e := range employees {
		views = append(views, NewEmployeeView(e))
	}
	return views
}

// DepartmentSalary is one row of the average salary aggregation.
type DepartmentSalary struct {
	Department string  `json:"department"`
	AvgSalary  float64 `json:"avg_salary"`
}

// DepartmentPage is the response of the department-grouped listing.
type DepartmentPage struct {
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
	Employees DepartmentGroups `json:"employees"`
}
