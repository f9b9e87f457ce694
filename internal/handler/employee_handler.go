package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/employee_records/apigateway/internal/domain"
	"github.com/locvowork/employee_records/apigateway/internal/service"
	"github.com/locvowork/employee_records/apigateway/internal/service/serviceutils"
)

const (
	msgCreated        = "Employee created successfully"
	msgUpdated        = "Employee updated successfully"
	msgDeleted        = "Employee deleted successfully"
	msgInvalidBody    = "Invalid request body"
	msgInternalError  = "Internal server error"
	msgStoreUnhealthy = "Store is unreachable"
)

type EmployeeHandler struct {
	svc service.EmployeeService
}

func NewEmployeeHandler(svc service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

func (h *EmployeeHandler) CreateHandler(c echo.Context) error {
	var req domain.CreateEmployeeRequest
	if err := c.Bind(&req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, msgInvalidBody, err)
	}

	if err := h.svc.Create(c.Request().Context(), req); err != nil {
		return respondError(c, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, msgCreated, nil)
}

func (h *EmployeeHandler) GetHandler(c echo.Context) error {
	emp, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "", emp)
}

func (h *EmployeeHandler) UpdateHandler(c echo.Context) error {
	// Body only: the path id must not leak into the update fields.
	var req domain.UpdateEmployeeRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, msgInvalidBody, err)
	}

	if err := h.svc.Update(c.Request().Context(), c.Param("id"), req); err != nil {
		return respondError(c, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, msgUpdated, nil)
}

func (h *EmployeeHandler) DeleteHandler(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, msgDeleted, nil)
}

func (h *EmployeeHandler) ListHandler(c echo.Context) error {
	page, err := pageParam(c)
	if err != nil {
		return respondError(c, err)
	}

	result, err := h.svc.ListByDepartment(c.Request().Context(), page)
	if err != nil {
		return respondError(c, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "", result)
}

func (h *EmployeeHandler) AvgSalaryHandler(c echo.Context) error {
	result, err := h.svc.AverageSalaryByDepartment(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "", result)
}

func (h *EmployeeHandler) SearchSkillHandler(c echo.Context) error {
	result, err := h.svc.SearchBySkill(c.Request().Context(), c.QueryParam("skill"))
	if err != nil {
		return respondError(c, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "", result)
}

func (h *EmployeeHandler) SearchNameHandler(c echo.Context) error {
	result, err := h.svc.SearchByName(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return respondError(c, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "", result)
}

func (h *EmployeeHandler) HealthHandler(c echo.Context) error {
	if err := h.svc.Ping(c.Request().Context()); err != nil {
		return serviceutils.ResponseError(c, http.StatusServiceUnavailable, msgStoreUnhealthy, err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "", map[string]string{"status": "ok"})
}

// pageParam reads ?page, defaulting to 1. Range checks are left to the
// service.
func pageParam(c echo.Context) (int, error) {
	raw := c.QueryParam("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewError(domain.ErrBadRequest, service.MsgInvalidPage)
	}
	return page, nil
}

// respondError maps the domain taxonomy onto status codes. Anything outside
// it is a storage failure and gets a generic detail.
func respondError(c echo.Context, err error) error {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, msgInternalError, err)
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(derr, domain.ErrConflict), errors.Is(derr, domain.ErrBadRequest):
		status = http.StatusBadRequest
	case errors.Is(derr, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(derr, domain.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	return serviceutils.ResponseError(c, status, derr.Message, err)
}
