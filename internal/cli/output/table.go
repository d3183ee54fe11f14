package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"
)

// Table holds pre-built tabular data. Commands that need full control
// over columns construct one directly instead of going through the
// reflection path.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render writes the table aligned with elastic tab stops.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return nil
}

// TableFormatter renders structs, slices and maps as aligned text
// tables. Wide includes columns tagged `table:"wide"`.
type TableFormatter struct {
	Wide bool
}

// Format renders data as a table. Values that have no tabular shape
// fall back to indented JSON.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if data == nil {
		return nil
	}

	switch t := data.(type) {
	case *Table:
		return t.Render(w)
	case Table:
		return t.Render(w)
	}

	table, ok := f.build(reflect.ValueOf(data))
	if !ok {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return table.Render(w)
}

func (f *TableFormatter) build(v reflect.Value) (*Table, bool) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return f.buildList(v), true
	case reflect.Map:
		return buildKV(v), true
	case reflect.Struct:
		return f.buildDetail(v), true
	default:
		return nil, false
	}
}

// buildList renders a slice of structs as one row per element, or
// falls back to a single VALUE column for scalar slices.
func (f *TableFormatter) buildList(v reflect.Value) *Table {
	if v.Len() == 0 {
		return &Table{}
	}

	first := reflect.Indirect(v.Index(0))
	if first.Kind() != reflect.Struct || first.Type() == reflect.TypeOf(time.Time{}) {
		t := &Table{Headers: []string{"VALUE"}}
		for i := 0; i < v.Len(); i++ {
			t.Rows = append(t.Rows, []string{cell(v.Index(i))})
		}
		return t
	}

	cols := f.columns(first.Type())
	t := &Table{}
	for _, c := range cols {
		t.Headers = append(t.Headers, c.header)
	}
	for i := 0; i < v.Len(); i++ {
		elem := reflect.Indirect(v.Index(i))
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			row = append(row, cell(elem.Field(c.index)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// buildDetail renders a single struct as FIELD/VALUE pairs, one field
// per row.
func (f *TableFormatter) buildDetail(v reflect.Value) *Table {
	t := &Table{Headers: []string{"FIELD", "VALUE"}}
	for _, c := range f.columns(v.Type()) {
		t.Rows = append(t.Rows, []string{c.name, cell(v.Field(c.index))})
	}
	return t
}

func buildKV(v reflect.Value) *Table {
	t := &Table{Headers: []string{"KEY", "VALUE"}}
	iter := v.MapRange()
	for iter.Next() {
		t.Rows = append(t.Rows, []string{cell(iter.Key()), cell(iter.Value())})
	}
	return t
}

type column struct {
	index  int
	name   string
	header string
}

// columns selects the visible fields of a struct type. The json tag
// names the column; `table:"-"` hides a field and `table:"wide"`
// shows it only in wide mode.
func (f *TableFormatter) columns(t reflect.Type) []column {
	var cols []column
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		switch field.Tag.Get("table") {
		case "-":
			continue
		case "wide":
			if !f.Wide {
				continue
			}
		}

		name := field.Name
		if jsonTag, _, _ := strings.Cut(field.Tag.Get("json"), ","); jsonTag != "" && jsonTag != "-" {
			name = jsonTag
		}
		cols = append(cols, column{
			index:  i,
			name:   name,
			header: strings.ToUpper(snake(name)),
		})
	}
	return cols
}

// cell formats one value for a table cell. Empty strings and empty
// collections show as "-" so sparse rows stay scannable.
func cell(v reflect.Value) string {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return ""
	}

	if v.Type() == reflect.TypeOf(time.Time{}) {
		ts := v.Interface().(time.Time)
		if ts.IsZero() {
			return "-"
		}
		return ts.Format("2006-01-02 15:04")
	}

	switch v.Kind() {
	case reflect.String:
		if s := v.String(); s != "" {
			return s
		}
		return "-"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprintf("%d", v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprintf("%d", v.Uint())
	case reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%.2f", v.Float())
	case reflect.Bool:
		return fmt.Sprintf("%t", v.Bool())
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		if v.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", v.Len())
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}
