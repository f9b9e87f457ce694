package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/locvowork/employee_records/apigateway/internal/repository"
	"github.com/locvowork/employee_records/apigateway/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var errStoreDown = errors.New("connection refused")

// brokenRepo fails every read that reaches the store.
type brokenRepo struct {
	*repository.MemoryEmployeeRepository
}

func (brokenRepo) DistinctDepartments(context.Context) ([]string, error) { return nil, errStoreDown }
func (brokenRepo) Ping(context.Context) error                          { return errStoreDown }

type nameIndex struct {
	repo *repository.MemoryEmployeeRepository
}

func (nameIndex) IndexEmployee(context.Context, domain.Employee) error { return nil }
func (nameIndex) DeleteEmployee(context.Context, string) error         { return nil }
func (i nameIndex) SearchByName(ctx context.Context, q string) ([]domain.Employee, error) {
	e, err := i.repo.FindByEmployeeID(ctx, q)
	if err != nil {
		return []domain.Employee{}, nil
	}
	return []domain.Employee{*e}, nil
}

func newRouter(svc service.EmployeeService) *echo.Echo {
	e := echo.New()
	h := NewEmployeeHandler(svc)
	e.GET("/", DashboardHandler)
	e.GET("/healthz", h.HealthHandler)
	e.POST("/employees", h.CreateHandler)
	e.GET("/employees", h.ListHandler)
	e.GET("/employees/avg-salary", h.AvgSalaryHandler)
	e.GET("/employees/search", h.SearchSkillHandler)
	e.GET("/employees/search/name", h.SearchNameHandler)
	e.GET("/employees/export", h.ExportHandler)
	e.GET("/employees/:id", h.GetHandler)
	e.PUT("/employees/:id", h.UpdateHandler)
	e.DELETE("/employees/:id", h.DeleteHandler)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func employeeBody(id, dept string, salary float64, date, skills string) string {
	return fmt.Sprintf(`{"employee_id":%q,"name":"Name %s","department":%q,"salary":%v,"joining_date":%q,"skills":[%s]}`,
		id, id, dept, salary, date, skills)
}

func TestEmployeeHandler_CRUD(t *testing.T) {
	e := newRouter(service.NewEmployeeService(repository.NewMemoryEmployeeRepository()))

	t.Run("create", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/employees", employeeBody("E1", "SWE-1", 75000, "2023-01-15", `"Python"`))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Employee created successfully"}`, rec.Body.String())
	})

	t.Run("duplicate create is a bad request", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/employees", employeeBody("E1", "HR", 1, "2023-01-15", ""))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, service.MsgEmployeeExists, detail(t, rec))
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/employees", `{"employee_id":"E9"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, detail(t, rec), "Missing required fields")
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, e, http.MethodPost, "/employees", `{"employee_id":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, msgInvalidBody, detail(t, rec))
	})

	t.Run("get returns the iso date", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/employees/E1", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var got domain.EmployeeView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "E1", got.EmployeeID)
		assert.Equal(t, "2023-01-15", got.JoiningDate)
		assert.Equal(t, []string{"Python"}, got.Skills)
		assert.NotEmpty(t, got.ID)
	})

	t.Run("get missing", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/employees/NOPE", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, service.MsgEmployeeNotFound, detail(t, rec))
	})

	t.Run("empty update", func(t *testing.T) {
		for _, body := range []string{"", `{}`, `{"name":null}`} {
			rec := do(t, e, http.MethodPut, "/employees/E1", body)
			require.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
			assert.Equal(t, service.MsgNoFieldsToUpdate, detail(t, rec))
		}
	})

	t.Run("update missing", func(t *testing.T) {
		rec := do(t, e, http.MethodPut, "/employees/NOPE", `{"name":"X"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("partial update", func(t *testing.T) {
		rec := do(t, e, http.MethodPut, "/employees/E1", `{"salary":80000,"skills":[]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Employee updated successfully"}`, rec.Body.String())

		rec = do(t, e, http.MethodGet, "/employees/E1", "")
		var got domain.EmployeeView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 80000.0, got.Salary)
		assert.Equal(t, "Name E1", got.Name)
		assert.Empty(t, got.Skills)
	})

	t.Run("delete is not idempotent", func(t *testing.T) {
		rec := do(t, e, http.MethodDelete, "/employees/E1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Employee deleted successfully"}`, rec.Body.String())

		rec = do(t, e, http.MethodDelete, "/employees/E1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestEmployeeHandler_Queries(t *testing.T) {
	e := newRouter(service.NewEmployeeService(repository.NewMemoryEmployeeRepository()))
	for i := 0; i < 12; i++ {
		body := employeeBody(fmt.Sprintf("S%02d", i), "SWE", 100, fmt.Sprintf("2023-01-%02d", i+1), `"Go"`)
		require.Equal(t, http.StatusOK, do(t, e, http.MethodPost, "/employees", body).Code)
	}
	require.Equal(t, http.StatusOK, do(t, e, http.MethodPost, "/employees", employeeBody("H1", "HR", 50, "2022-06-01", `"Python3"`)).Code)

	t.Run("list defaults to page 1", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/employees", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var page domain.DepartmentPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, domain.PageSize, page.PageSize)
		require.Len(t, page.Employees, 2)
		assert.Equal(t, "HR", page.Employees[0].Department)
		assert.Equal(t, "SWE", page.Employees[1].Department)
		swe := page.Employees[1].Employees
		assert.Len(t, swe, domain.PageSize)
		assert.Equal(t, "S00", swe[0].EmployeeID)
	})

	t.Run("second page", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/employees?page=2", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"page":2,"page_size":10,"employees":{"SWE":[
			{"_id":"`+mustID(t, e, "S10")+`","employee_id":"S10","name":"Name S10","department":"SWE","salary":100,"joining_date":"2023-01-11","skills":["Go"]},
			{"_id":"`+mustID(t, e, "S11")+`","employee_id":"S11","name":"Name S11","department":"SWE","salary":100,"joining_date":"2023-01-12","skills":["Go"]}
		]}}`, rec.Body.String())
	})

	t.Run("page past any window is empty", func(t *testing.T) {
		for _, q := range []string{"922337203685477582", "9223372036854775807"} {
			rec := do(t, e, http.MethodGet, "/employees?page="+q, "")
			require.Equal(t, http.StatusOK, rec.Code, "page %s", q)
			assert.JSONEq(t, `{"page":`+q+`,"page_size":10,"employees":{}}`, rec.Body.String())
		}
	})

	t.Run("invalid page", func(t *testing.T) {
		for _, q := range []string{"0", "-1", "abc"} {
			rec := do(t, e, http.MethodGet, "/employees?page="+q, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, "page %q", q)
			assert.Equal(t, service.MsgInvalidPage, detail(t, rec))
		}
	})

	t.Run("avg salary", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/employees/avg-salary", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"department":"HR","avg_salary":50},{"department":"SWE","avg_salary":100}]`, rec.Body.String())
	})

	t.Run("skill search is exact", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/employees/search?skill=Python", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())

		rec = do(t, e, http.MethodGet, "/employees/search?skill=Python3", "")
		var got []domain.EmployeeView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "H1", got[0].EmployeeID)
	})

	t.Run("skill is required", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/employees/search", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, service.MsgSkillRequired, detail(t, rec))
	})

	t.Run("name search disabled", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/employees/search/name?q=Name", "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, service.MsgSearchDisabled, detail(t, rec))
	})

	t.Run("health", func(t *testing.T) {
		rec := do(t, e, http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})
}

func mustID(t *testing.T, e *echo.Echo, id string) string {
	t.Helper()
	rec := do(t, e, http.MethodGet, "/employees/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.EmployeeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got.ID
}

func TestEmployeeHandler_SearchByName(t *testing.T) {
	repo := repository.NewMemoryEmployeeRepository()
	e := newRouter(service.NewEmployeeService(repo, service.WithSearchIndex(nameIndex{repo: repo})))
	require.Equal(t, http.StatusOK, do(t, e, http.MethodPost, "/employees", employeeBody("E1", "HR", 1, "2023-01-15", "")).Code)

	rec := do(t, e, http.MethodGet, "/employees/search/name?q=E1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.EmployeeView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "E1", got[0].EmployeeID)

	rec = do(t, e, http.MethodGet, "/employees/search/name?q=%20", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.MsgQueryRequired, detail(t, rec))
}

func TestEmployeeHandler_StoreFailures(t *testing.T) {
	e := newRouter(service.NewEmployeeService(brokenRepo{repository.NewMemoryEmployeeRepository()}))

	rec := do(t, e, http.MethodGet, "/employees", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternalError, detail(t, rec))
	assert.NotContains(t, rec.Body.String(), errStoreDown.Error())

	rec = do(t, e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, msgStoreUnhealthy, detail(t, rec))
}

func TestExportHandler(t *testing.T) {
	e := newRouter(service.NewEmployeeService(repository.NewMemoryEmployeeRepository()))
	require.Equal(t, http.StatusOK, do(t, e, http.MethodPost, "/employees", employeeBody("E1", "SWE", 1234.5, "2023-01-15", `"Go","SQL"`)).Code)
	require.Equal(t, http.StatusOK, do(t, e, http.MethodPost, "/employees", employeeBody("H1", "HR", 50, "2022-06-01", "")).Code)

	rec := do(t, e, http.MethodGet, "/employees/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "employees_page_1.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Page 1"}, f.GetSheetList())

	cells := map[string]string{
		"Summary!A1": "Average salary by department",
		"Summary!A3": "HR",
		"Summary!B3": "50.00",
		"Summary!B4": "1234.50",
		"Page 1!A1":  "HR",
		"Page 1!A2":  "Employee ID",
		"Page 1!A3":  "H1",
		"Page 1!A5":  "SWE",
		"Page 1!A7":  "E1",
		"Page 1!D7":  "2023-01-15",
		"Page 1!E7":  "Go, SQL",
	}
	for ref, want := range cells {
		parts := strings.SplitN(ref, "!", 2)
		got, err := f.GetCellValue(parts[0], parts[1])
		require.NoError(t, err)
		assert.Equal(t, want, got, ref)
	}

	rec = do(t, e, http.MethodGet, "/employees/export?page=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/employees/export?page=922337203685477582", "")
	require.Equal(t, http.StatusOK, rec.Code)
	f, err = excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "Page 922337203685477582"}, f.GetSheetList())
}

func TestDashboardHandler(t *testing.T) {
	e := newRouter(service.NewEmployeeService(repository.NewMemoryEmployeeRepository()))

	rec := do(t, e, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML))
	assert.Contains(t, rec.Body.String(), "Employee API Dashboard")
}
