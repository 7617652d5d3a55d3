package model

import "fmt"

// Dialect identifies one of the supported sandbox SQL engines.
type Dialect string

const (
	DialectPostgreSQL Dialect = "postgresql"
	DialectMySQL      Dialect = "mysql"
)

// ParseDialect maps a request-supplied dialect name to a Dialect.
// An empty string defaults to PostgreSQL.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "", string(DialectPostgreSQL):
		return DialectPostgreSQL, nil
	case string(DialectMySQL):
		return DialectMySQL, nil
	default:
		return "", fmt.Errorf("unsupported database dialect: %s", s)
	}
}

// Valid reports whether the dialect is one of the supported engines.
func (d Dialect) Valid() bool {
	return d == DialectPostgreSQL || d == DialectMySQL
}
