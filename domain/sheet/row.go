package sheet

import (
	"strconv"
	"strings"
)

// Row is one record of customer/product dimension data.
// ID is nil for rows that have never been persisted.
type Row struct {
	ID       *int64   `json:"id,omitempty"`
	Customer string   `json:"customer"`
	Product  string   `json:"product"`
	Length1  *float64 `json:"length1"`
	Length2  *float64 `json:"length2"`
	Length3  *float64 `json:"length3"`
	Width1   *float64 `json:"width1"`
	Width2   *float64 `json:"width2"`
	Width3   *float64 `json:"width3"`
}

// NewEmptyRow returns a row with blank text and null measurements
func NewEmptyRow() Row {
	return Row{}
}

func (r *Row) measure(key string) **float64 {
	switch key {
	case "length1":
		return &r.Length1
	case "length2":
		return &r.Length2
	case "length3":
		return &r.Length3
	case "width1":
		return &r.Width1
	case "width2":
		return &r.Width2
	case "width3":
		return &r.Width3
	}
	return nil
}

// Text returns the value of a text column
func (r Row) Text(key string) string {
	switch key {
	case "customer":
		return r.Customer
	case "product":
		return r.Product
	}
	return ""
}

// SetText sets a text column; unknown keys are ignored
func (r *Row) SetText(key, value string) {
	switch key {
	case "customer":
		r.Customer = value
	case "product":
		r.Product = value
	}
}

// Measure returns the value of a numeric column
func (r Row) Measure(key string) *float64 {
	if p := r.measure(key); p != nil {
		return *p
	}
	return nil
}

// SetMeasure sets a numeric column; unknown keys are ignored
func (r *Row) SetMeasure(key string, value *float64) {
	if p := r.measure(key); p != nil {
		*p = copyFloat(value)
	}
}

// Raw renders a column value the way a user would have typed it
func (r Row) Raw(col Column) string {
	if !col.IsNumeric() {
		return r.Text(col.Key)
	}
	v := r.Measure(col.Key)
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// IsEmpty reports whether every data field is blank or null.
// The identity field is not considered.
func (r Row) IsEmpty() bool {
	if strings.TrimSpace(r.Customer) != "" || strings.TrimSpace(r.Product) != "" {
		return false
	}
	for _, col := range Columns {
		if col.IsNumeric() && r.Measure(col.Key) != nil {
			return false
		}
	}
	return true
}

// Equal compares identity and every data field by value
func (r Row) Equal(other Row) bool {
	if !equalInt(r.ID, other.ID) {
		return false
	}
	if r.Customer != other.Customer || r.Product != other.Product {
		return false
	}
	for _, col := range Columns {
		if col.IsNumeric() && !equalFloat(r.Measure(col.Key), other.Measure(col.Key)) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the row
func (r Row) Clone() Row {
	out := r
	if r.ID != nil {
		id := *r.ID
		out.ID = &id
	}
	for _, col := range Columns {
		if col.IsNumeric() {
			out.SetMeasure(col.Key, r.Measure(col.Key))
		}
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// ID returns a pointer to id
func ID(id int64) *int64 {
	return &id
}
