package simpleexcel

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const reportYaml = `
sheets:
  - name: "Summary"
    sections:
      - id: "averages"
        title: "Average salary"
        show_header: true
        locked: true
        title_style:
          font: { bold: true }
        columns:
          - field_name: "Department"
            header: "Department"
            width: 24
          - field_name: "AvgSalary"
            header: "Average"
            formatter: "currency"
section_templates:
  - id: "department"
    show_header: true
    columns:
      - field_name: "EmployeeID"
        header: "Employee ID"
      - field_name: "Name"
        header: "Name"
`

type avgRow struct {
	Department string
	AvgSalary  float64
}

type person struct {
	EmployeeID string
	Name       string
}

func openExport(t *testing.T, e *DataExporter) *excelize.File {
	t.Helper()
	b, err := e.ToBytes()
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, axis string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, axis)
	require.NoError(t, err)
	return v
}

func TestDataExporter_YamlBoundSection(t *testing.T) {
	e, err := NewDataExporterFromYamlConfig(reportYaml)
	require.NoError(t, err)

	e.RegisterFormatter("currency", func(v interface{}) interface{} {
		return fmt.Sprintf("$%.2f", v)
	})
	e.BindSectionData("averages", []avgRow{{"Eng", 150}, {"HR", 75.5}})

	f := openExport(t, e)
	assert.Equal(t, []string{"Summary"}, f.GetSheetList())
	assert.Equal(t, "Average salary", cell(t, f, "Summary", "A1"))
	assert.Equal(t, "Department", cell(t, f, "Summary", "A2"))
	assert.Equal(t, "Average", cell(t, f, "Summary", "B2"))
	assert.Equal(t, "Eng", cell(t, f, "Summary", "A3"))
	assert.Equal(t, "$150.00", cell(t, f, "Summary", "B3"))
	assert.Equal(t, "$75.50", cell(t, f, "Summary", "B4"))

	width, err := f.GetColWidth("Summary", "A")
	require.NoError(t, err)
	assert.Equal(t, 24.0, width)
}

func TestDataExporter_SectionTemplatesStackVertically(t *testing.T) {
	e, err := NewDataExporterFromYamlConfig(reportYaml)
	require.NoError(t, err)

	sheet := e.AddSheet("Page 1")
	for _, dept := range []string{"Eng", "HR"} {
		sec, ok := e.SectionTemplate("department")
		require.True(t, ok)
		sec.Title = dept
		sec.Data = []person{{dept + "-1", "A"}, {dept + "-2", "B"}}
		sheet.AddSection(sec)
	}

	f := openExport(t, e)
	assert.Equal(t, []string{"Summary", "Page 1"}, f.GetSheetList())

	// title, header, two rows, blank row, then the next section
	assert.Equal(t, "Eng", cell(t, f, "Page 1", "A1"))
	assert.Equal(t, "Employee ID", cell(t, f, "Page 1", "A2"))
	assert.Equal(t, "Eng-2", cell(t, f, "Page 1", "A4"))
	assert.Equal(t, "", cell(t, f, "Page 1", "A5"))
	assert.Equal(t, "HR", cell(t, f, "Page 1", "A6"))
	assert.Equal(t, "HR-1", cell(t, f, "Page 1", "A8"))

	_, ok := e.SectionTemplate("missing")
	assert.False(t, ok)
}

func TestDataExporter_SectionTemplateIsACopy(t *testing.T) {
	e, err := NewDataExporterFromYamlConfig(reportYaml)
	require.NoError(t, err)

	sec, _ := e.SectionTemplate("department")
	sec.Columns[0].Header = "changed"

	again, _ := e.SectionTemplate("department")
	assert.Equal(t, "Employee ID", again.Columns[0].Header)
}

func TestDataExporter_HiddenSectionAndMaps(t *testing.T) {
	e := NewDataExporter()
	e.AddSheet("Data").
		AddSection(&SectionConfig{
			Title:      "Visible",
			ShowHeader: true,
			Columns: []ColumnConfig{
				{FieldName: "Name", Header: "Name", Formatter: func(v interface{}) interface{} { return fmt.Sprintf("<%v>", v) }},
			},
			Data: []map[string]interface{}{{"Name": "Ann"}},
		}).
		AddSection(&SectionConfig{
			Type:    SectionTypeHidden,
			Columns: []ColumnConfig{{FieldName: "Missing"}},
			Data:    []map[string]interface{}{{"Other": 1}},
		})

	f := openExport(t, e)
	assert.Equal(t, "<Ann>", cell(t, f, "Data", "A3"))

	visible, err := f.GetRowVisible("Data", 3)
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = f.GetRowVisible("Data", 5)
	require.NoError(t, err)
	assert.False(t, visible)
	assert.Equal(t, "", cell(t, f, "Data", "A5"))
}

func TestDataExporter_GetSheet(t *testing.T) {
	e, err := NewDataExporterFromYamlConfig(reportYaml)
	require.NoError(t, err)

	sb := e.GetSheet("Summary")
	require.NotNil(t, sb)
	sb.AddSection(&SectionConfig{
		Position: "E1",
		Columns:  []ColumnConfig{{FieldName: "Name"}},
		Data:     []person{{"E1", "Extra"}},
	})
	assert.Same(t, sb, e.GetSheet("Summary"))
	assert.Nil(t, e.GetSheet("Nope"))

	e.BindSectionData("averages", []avgRow{{"Eng", 1}})
	f := openExport(t, e)
	assert.Equal(t, []string{"Summary"}, f.GetSheetList())
	assert.Equal(t, "Eng", cell(t, f, "Summary", "A3"))
	assert.Equal(t, "Extra", cell(t, f, "Summary", "E1"))
}

func TestNewDataExporterFromYamlConfig_Invalid(t *testing.T) {
	_, err := NewDataExporterFromYamlConfig("sheets: [")
	assert.Error(t, err)
}
