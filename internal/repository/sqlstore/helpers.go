package sqlstore

import (
	"database/sql"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Dialect Helpers
// ============================================================================

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL. Queries in
// this package never contain a literal question mark.
func (s *Store) rebind(query string) string {
	if s.dialect != dialectPostgres {
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

// splitStatements splits a schema script on semicolons, dropping empty parts
func splitStatements(script string) []string {
	var stmts []string
	for _, stmt := range strings.Split(script, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullToTrait converts a nullable 0/1 column to an observed trait
func nullToTrait(ni sql.NullInt64) *bool {
	if !ni.Valid {
		return nil
	}
	has := ni.Int64 != 0
	return &has
}

// traitToNull converts an observed trait to a nullable 0/1 column
func traitToNull(trait *bool) sql.NullInt64 {
	switch {
	case trait == nil:
		return sql.NullInt64{}
	case *trait:
		return sql.NullInt64{Int64: 1, Valid: true}
	default:
		return sql.NullInt64{Int64: 0, Valid: true}
	}
}

// ============================================================================
// Time Helpers
// ============================================================================

// Timestamps are stored as Unix nanoseconds so both drivers agree on them.

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func unixToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func durationFromNanos(n int64) time.Duration {
	return time.Duration(n)
}
