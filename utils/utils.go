// Package utils converts between Go structs and query rows.
package utils

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/asaidimu/rowql/core/row"
)

// StructToRow converts a Go struct into a row.Row.
//
// The struct is marshaled to JSON, so `json:"tag"` annotations, `omitempty`
// and custom marshalers apply, and the resulting object is decoded back into a
// row. Fields keep their declaration order. Nested structs and maps become
// nested rows, slices become []any and numbers become float64, exactly as
// row.Row decodes any JSON document.
//
// The input `record` must be a struct or a pointer to a struct. If `record` is
// nil, or not a struct/pointer to a struct, an error is returned.
//
// Example:
//
//	type Owner struct {
//		Name string `json:"name"`
//	}
//	type Product struct {
//		ID    string `json:"id"`
//		Size  int    `json:"size"`
//		Owner Owner  `json:"owner"`
//	}
//	r, err := StructToRow(Product{ID: "p1", Size: 3, Owner: Owner{Name: "ada"}})
//	// r is {id: p1, size: 3, owner: {name: ada}}
func StructToRow[T any](record T) (row.Row, error) {
	val := reflect.ValueOf(record)

	if !val.IsValid() {
		return row.Row{}, fmt.Errorf("input record cannot be nil")
	}

	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return row.Row{}, fmt.Errorf("input record cannot be a nil pointer to a struct")
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return row.Row{}, fmt.Errorf("input record must be a struct or a pointer to a struct, got %s", val.Kind())
	}

	jsonBytes, err := json.Marshal(record)
	if err != nil {
		return row.Row{}, fmt.Errorf("StructToRow: failed to marshal input record to JSON: %w", err)
	}

	var r row.Row
	if err := r.UnmarshalJSON(jsonBytes); err != nil {
		return row.Row{}, fmt.Errorf("StructToRow: failed to decode JSON into a row: %w", err)
	}
	return r, nil
}

// RowsFromStructs converts every record with StructToRow. The first failure
// aborts the conversion and reports the index of the offending record.
func RowsFromStructs[T any](records []T) ([]row.Row, error) {
	rows := make([]row.Row, len(records))
	for i, record := range records {
		r, err := StructToRow(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows[i] = r
	}
	return rows, nil
}

// RowToStruct is a generic function that converts a row.Row into a new
// instance of the specified generic struct type `T`. It is the inverse of
// StructToRow: the row is marshaled to JSON and unmarshaled into T.
//
// The generic type `T` must be a struct type or a pointer to one.
//
// Example:
//
//	type Result struct {
//		Value string `json:"value"`
//		Size  int    `json:"size"`
//	}
//	res, err := RowToStruct[Result](row.Of("value", "a", "size", 3))
//	// res is Result{Value: "a", Size: 3}
func RowToStruct[T any](input row.Row) (T, error) {
	var zero T

	typ := reflect.TypeOf(zero)
	if typ == nil {
		return zero, fmt.Errorf("RowToStruct: generic type T must be a struct type (or pointer to struct), got interface")
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return zero, fmt.Errorf("RowToStruct: generic type T must be a struct type (or pointer to struct), got %s", typ.Kind())
	}

	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("RowToStruct: failed to marshal input row to JSON: %w", err)
	}

	var result T
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return zero, fmt.Errorf("RowToStruct: failed to unmarshal JSON to target struct: %w", err)
	}
	return result, nil
}

// RowsToStructs converts every row with RowToStruct.
func RowsToStructs[T any](rows []row.Row) ([]T, error) {
	out := make([]T, len(rows))
	for i, r := range rows {
		v, err := RowToStruct[T](r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
