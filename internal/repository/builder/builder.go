package builder

import (
	"fmt"
	"strings"
)

// SQLBuilder helps construct PostgreSQL queries dynamically. Conditions are
// written with "?" markers which Build rewrites to $1, $2, ... in order.
type SQLBuilder struct {
	table      string
	columns    []string
	distinct   bool
	values     []interface{}
	updateCols []string
	setArgs    []interface{}
	groupBy    []string
	orderBy    []string
	returning  []string
	limit      int
	offset     int
	isInsert   bool
	isUpdate   bool
	isDelete   bool
	isSelect   bool

	where []condition
}

// condition is a SQL fragment with "?" markers and the args filling them.
type condition struct {
	sql  string
	args []interface{}
}

// NewSQLBuilder creates a new instance of SQLBuilder.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{}
}

// Select specifies the columns to retrieve.
func (b *SQLBuilder) Select(cols ...string) *SQLBuilder {
	b.isSelect = true
	b.columns = cols
	return b
}

// Distinct turns the select into SELECT DISTINCT.
func (b *SQLBuilder) Distinct() *SQLBuilder {
	b.distinct = true
	return b
}

// Insert specifies the table and columns for insertion.
func (b *SQLBuilder) Insert(table string, cols ...string) *SQLBuilder {
	b.isInsert = true
	b.table = table
	b.columns = cols
	return b
}

// Update specifies the table to update.
func (b *SQLBuilder) Update(table string) *SQLBuilder {
	b.isUpdate = true
	b.table = table
	return b
}

// Delete specifies the table to delete from.
func (b *SQLBuilder) Delete(table string) *SQLBuilder {
	b.isDelete = true
	b.table = table
	return b
}

// From specifies the table to select from.
func (b *SQLBuilder) From(table string) *SQLBuilder {
	b.table = table
	return b
}

// Set adds a column assignment to an update.
func (b *SQLBuilder) Set(col string, val interface{}) *SQLBuilder {
	b.updateCols = append(b.updateCols, col)
	b.setArgs = append(b.setArgs, val)
	return b
}

// Values specifies the values for insertion.
func (b *SQLBuilder) Values(vals ...interface{}) *SQLBuilder {
	b.values = vals
	return b
}

// Where adds a condition. Conditions are joined with AND.
func (b *SQLBuilder) Where(cond string, args ...interface{}) *SQLBuilder {
	b.where = append(b.where, condition{sql: cond, args: args})
	return b
}

// GroupBy adds a GROUP BY clause.
func (b *SQLBuilder) GroupBy(cols ...string) *SQLBuilder {
	b.groupBy = append(b.groupBy, cols...)
	return b
}

// OrderBy adds an ORDER BY clause.
func (b *SQLBuilder) OrderBy(order string) *SQLBuilder {
	b.orderBy = append(b.orderBy, order)
	return b
}

// Limit adds a LIMIT clause.
func (b *SQLBuilder) Limit(limit int) *SQLBuilder {
	b.limit = limit
	return b
}

// Offset adds an OFFSET clause.
func (b *SQLBuilder) Offset(offset int) *SQLBuilder {
	b.offset = offset
	return b
}

// Returning adds a RETURNING clause to insert, update and delete.
func (b *SQLBuilder) Returning(cols ...string) *SQLBuilder {
	b.returning = append(b.returning, cols...)
	return b
}

// Build constructs the final SQL string and arguments. It does not modify
// the builder, so calling it twice yields the same result.
func (b *SQLBuilder) Build() (string, []interface{}) {
	p := &binder{}
	var sb strings.Builder

	switch {
	case b.isSelect:
		sb.WriteString("SELECT ")
		if b.distinct {
			sb.WriteString("DISTINCT ")
		}
		sb.WriteString(strings.Join(b.columns, ", "))
		sb.WriteString(" FROM ")
		sb.WriteString(b.table)
	case b.isInsert:
		sb.WriteString("INSERT INTO ")
		sb.WriteString(b.table)
		sb.WriteString(" (")
		sb.WriteString(strings.Join(b.columns, ", "))
		sb.WriteString(") VALUES (")
		placeholders := make([]string, len(b.values))
		for i := range b.values {
			placeholders[i] = p.bind("?", b.values[i])
		}
		sb.WriteString(strings.Join(placeholders, ", "))
		sb.WriteString(")")
		b.writeReturning(&sb)
		return sb.String(), p.args
	case b.isUpdate:
		sb.WriteString("UPDATE ")
		sb.WriteString(b.table)
		sb.WriteString(" SET ")
		setClauses := make([]string, len(b.updateCols))
		for i, col := range b.updateCols {
			setClauses[i] = col + " = " + p.bind("?", b.setArgs[i])
		}
		sb.WriteString(strings.Join(setClauses, ", "))
	case b.isDelete:
		sb.WriteString("DELETE FROM ")
		sb.WriteString(b.table)
	}

	if where := b.whereClause(p); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}

	if len(b.groupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(b.groupBy, ", "))
	}

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d", b.limit))
	}

	if b.offset > 0 {
		sb.WriteString(fmt.Sprintf(" OFFSET %d", b.offset))
	}

	b.writeReturning(&sb)
	return sb.String(), p.args
}

// whereClause renders the conditions joined with AND.
func (b *SQLBuilder) whereClause(p *binder) string {
	parts := make([]string, len(b.where))
	for i, c := range b.where {
		parts[i] = p.bind(c.sql, c.args...)
	}
	return strings.Join(parts, " AND ")
}

func (b *SQLBuilder) writeReturning(sb *strings.Builder) {
	if len(b.returning) > 0 && !b.isSelect {
		sb.WriteString(" RETURNING ")
		sb.WriteString(strings.Join(b.returning, ", "))
	}
}

// binder numbers placeholders across the whole statement.
type binder struct {
	args []interface{}
}

// bind rewrites each "?" in sql to the next $n and records args. Markers
// beyond the supplied args are left as is.
func (p *binder) bind(sql string, args ...interface{}) string {
	var sb strings.Builder
	used := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '?' && used < len(args) {
			p.args = append(p.args, args[used])
			used++
			sb.WriteString(fmt.Sprintf("$%d", len(p.args)))
			continue
		}
		sb.WriteByte(sql[i])
	}
	return sb.String()
}
