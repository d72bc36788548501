// Package query holds the SQL used by the board directory and the task engine.
// Statements are written with ? placeholders and rebound for the active dialect.
package query

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/Joseda-hg/lazyboard/internal/db"
)

type Queries struct {
	db      db.DBTX
	dialect db.Dialect
}

func New(conn db.DBTX, dialect db.Dialect) *Queries {
	return &Queries{db: conn, dialect: dialect}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, dialect: q.dialect}
}

func (q *Queries) rebind(query string) string {
	return Rebind(q.dialect, query)
}

// Rebind rewrites ? placeholders as $1, $2, ... for postgres. Other dialects are returned unchanged.
func Rebind(dialect db.Dialect, query string) string {
	if dialect != db.DialectPostgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
