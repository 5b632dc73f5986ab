package core

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a parameterized WHERE clause. Empty values are
// skipped so optional filters can be added unconditionally.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n" unless value is empty.
func (wb *WhereBuilder) Add(column string, value string) {
	if value == "" {
		return
	}
	wb.addCondition(column+" = $%d", value)
}

// AddBool appends "column = $n" when value is non-nil.
func (wb *WhereBuilder) AddBool(column string, value *bool) {
	if value == nil {
		return
	}
	wb.addCondition(column+" = $%d", *value)
}

// AddTimestampRange appends an inclusive range on column. Nil bounds are
// skipped.
func (wb *WhereBuilder) AddTimestampRange(column string, start, end any) {
	if start != nil {
		wb.addCondition(column+" >= $%d", start)
	}
	if end != nil {
		wb.addCondition(column+" <= $%d", end)
	}
}

// NextArgIndex returns the number of the next placeholder.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the clause with a leading space, or "" and nil args when no
// condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func (wb *WhereBuilder) addCondition(format string, value any) {
	wb.conditions = append(wb.conditions, fmt.Sprintf(format, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}
