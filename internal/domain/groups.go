package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DepartmentGroup is one department's page window.
type DepartmentGroup struct {
	Department string
	Employees  []EmployeeView
}

// DepartmentGroups is an ordered department -> employees mapping. It encodes
// as a JSON object whose keys keep slice order, which a Go map cannot do.
type DepartmentGroups []DepartmentGroup

func (g DepartmentGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, group := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(group.Department)
		if err != nil {
			return nil, err
		}
		employees := group.Employees
		if employees == nil {
			employees = []EmployeeView{}
		}
		value, err := json.Marshal(employees)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *DepartmentGroups) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("department groups: expected object, got %v", tok)
	}
	groups := DepartmentGroups{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		dept, ok := tok.(string)
		if !ok {
			return fmt.Errorf("department groups: expected key, got %v", tok)
		}
		var employees []EmployeeView
		if err := dec.Decode(&employees); err != nil {
			return fmt.Errorf("department groups: %s: %w", dept, err)
		}
		groups = append(groups, DepartmentGroup{Department: dept, Employees: employees})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*g = groups
	return nil
}
