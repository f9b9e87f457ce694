package simpleexcel

import (
	"fmt"
	"reflect"
	"strings"
)

// ListSeparator joins slice fields into a single cell.
const ListSeparator = ", "

// ConvertToDynamicData flattens a struct, or a slice of structs, into maps
// keyed by field name so they can be bound to sections by FieldName. Map
// fields expand to "Field_key" entries and slice fields are joined into one
// string.
func ConvertToDynamicData(data interface{}) (interface{}, error) {
	val := reflect.ValueOf(data)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
		return flattenStruct(val), nil
	case reflect.Slice:
		return flattenSlice(val)
	default:
		return nil, fmt.Errorf("expected struct or slice, got %v", val.Kind())
	}
}

func flattenStruct(val reflect.Value) map[string]interface{} {
	result := make(map[string]interface{}, val.NumField())
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		fieldType := typ.Field(i)
		if !fieldType.IsExported() {
			continue
		}
		field := val.Field(i)
		name := fieldType.Name

		switch field.Kind() {
		case reflect.Map:
			for _, key := range field.MapKeys() {
				result[fmt.Sprintf("%s_%v", name, key.Interface())] = field.MapIndex(key).Interface()
			}
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.Uint8 {
				result[name] = field.Interface()
				continue
			}
			parts := make([]string, field.Len())
			for j := range parts {
				parts[j] = fmt.Sprint(field.Index(j).Interface())
			}
			result[name] = strings.Join(parts, ListSeparator)
		default:
			result[name] = field.Interface()
		}
	}
	return result
}

func flattenSlice(val reflect.Value) ([]map[string]interface{}, error) {
	result := make([]map[string]interface{}, val.Len())
	for i := range result {
		elem := val.Index(i)
		if elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return nil, fmt.Errorf("expected slice of structs, got slice of %v", elem.Kind())
		}
		result[i] = flattenStruct(elem)
	}
	return result, nil
}
