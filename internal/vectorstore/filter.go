package vectorstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter is a composable scalar predicate over a collection. Filters
// render to parameterized SQL exactly once, at query time, so value
// escaping lives in one place.
type Filter interface {
	render(b *sqlBuilder)
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// sqlBuilder accumulates a WHERE clause and its positional arguments.
// Placeholder numbering starts after any arguments the caller has
// already bound (the query vector, for search).
type sqlBuilder struct {
	sql  strings.Builder
	args []any
	next int
}

func newBuilder(firstPlaceholder int) *sqlBuilder {
	return &sqlBuilder{next: firstPlaceholder}
}

func (b *sqlBuilder) column(name string) {
	if !identRe.MatchString(name) {
		panic(fmt.Sprintf("vectorstore: invalid column name %q", name))
	}
	b.sql.WriteString(name)
}

func (b *sqlBuilder) bind(v any) {
	fmt.Fprintf(&b.sql, "$%d", b.next)
	b.args = append(b.args, v)
	b.next++
}

// Render produces the SQL fragment and argument list for f. A nil
// filter renders to TRUE so it can be dropped into a WHERE clause.
func Render(f Filter, firstPlaceholder int) (string, []any) {
	b := newBuilder(firstPlaceholder)
	if f == nil {
		return "TRUE", nil
	}
	f.render(b)
	return b.sql.String(), b.args
}

type cmpFilter struct {
	column string
	op     string
	value  any
}

func (f cmpFilter) render(b *sqlBuilder) {
	b.column(f.column)
	b.sql.WriteString(" " + f.op + " ")
	b.bind(f.value)
}

// Eq matches rows where column equals value.
func Eq(column string, value any) Filter { return cmpFilter{column, "=", value} }

// Ne matches rows where column differs from value.
func Ne(column string, value any) Filter { return cmpFilter{column, "<>", value} }

// Ge matches rows where column is at least value.
func Ge(column string, value any) Filter { return cmpFilter{column, ">=", value} }

// Le matches rows where column is at most value.
func Le(column string, value any) Filter { return cmpFilter{column, "<=", value} }

// Gt matches rows where column exceeds value.
func Gt(column string, value any) Filter { return cmpFilter{column, ">", value} }

// Lt matches rows where column is below value.
func Lt(column string, value any) Filter { return cmpFilter{column, "<", value} }

// Like matches rows where column matches pattern, case insensitively.
func Like(column, pattern string) Filter { return cmpFilter{column, "ILIKE", pattern} }

type betweenFilter struct {
	column string
	lo, hi any
}

func (f betweenFilter) render(b *sqlBuilder) {
	b.column(f.column)
	b.sql.WriteString(" BETWEEN ")
	b.bind(f.lo)
	b.sql.WriteString(" AND ")
	b.bind(f.hi)
}

// Between matches rows where column lies in [lo, hi].
func Between(column string, lo, hi any) Filter { return betweenFilter{column, lo, hi} }

type inFilter struct {
	column string
	values []any
}

func (f inFilter) render(b *sqlBuilder) {
	if len(f.values) == 0 {
		b.sql.WriteString("FALSE")
		return
	}
	b.column(f.column)
	b.sql.WriteString(" IN (")
	for i, v := range f.values {
		if i > 0 {
			b.sql.WriteString(", ")
		}
		b.bind(v)
	}
	b.sql.WriteString(")")
}

// In matches rows where column equals any of values. An empty value set
// matches nothing.
func In(column string, values ...any) Filter { return inFilter{column, values} }

type boolFilter struct {
	op      string
	filters []Filter
}

func (f boolFilter) render(b *sqlBuilder) {
	if len(f.filters) == 0 {
		b.sql.WriteString("TRUE")
		return
	}
	b.sql.WriteString("(")
	for i, sub := range f.filters {
		if i > 0 {
			b.sql.WriteString(" " + f.op + " ")
		}
		sub.render(b)
	}
	b.sql.WriteString(")")
}

// And matches rows satisfying every filter.
func And(filters ...Filter) Filter { return boolFilter{"AND", filters} }

// Or matches rows satisfying at least one filter.
func Or(filters ...Filter) Filter { return boolFilter{"OR", filters} }
