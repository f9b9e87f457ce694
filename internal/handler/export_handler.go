package handler

import (
	_ "embed"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/employee_records/apigateway/internal/service/serviceutils"
	"github.com/locvowork/employee_records/apigateway/pkg/simpleexcel"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

//go:embed templates/employee_export.yaml
var exportTemplate string

func currency(v interface{}) interface{} {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.2f", f)
	}
	return v
}

// ExportHandler writes one page of the department listing as a workbook: a
// summary sheet with the salary averages and one section per department.
func (h *EmployeeHandler) ExportHandler(c echo.Context) error {
	ctx := c.Request().Context()

	page, err := pageParam(c)
	if err != nil {
		return respondError(c, err)
	}
	listing, err := h.svc.ListByDepartment(ctx, page)
	if err != nil {
		return respondError(c, err)
	}
	averages, err := h.svc.AverageSalaryByDepartment(ctx)
	if err != nil {
		return respondError(c, err)
	}

	exporter, err := simpleexcel.NewDataExporterFromYamlConfig(exportTemplate)
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to load export template", err)
	}
	exporter.RegisterFormatter("currency", currency)
	exporter.BindSectionData("avg_salary", averages)

	sheet := exporter.AddSheet(fmt.Sprintf("Page %d", page))
	for _, group := range listing.Employees {
		section, ok := exporter.SectionTemplate("department")
		if !ok {
			return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to load export template", fmt.Errorf("section template %q missing", "department"))
		}
		rows, err := simpleexcel.ConvertToDynamicData(group.Employees)
		if err != nil {
			return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to generate Excel file", err)
		}
		section.Title = group.Department
		section.Data = rows
		sheet.AddSection(section)
	}

	excelBytes, err := exporter.ToBytes()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to generate Excel file", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="employees_page_%d.xlsx"`, page))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(excelBytes)))
	return c.Blob(http.StatusOK, xlsxContentType, excelBytes)
}
