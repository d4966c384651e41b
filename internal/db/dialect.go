package db

import (
	"strings"

	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// ContainsFold builds a case-insensitive substring filter on column. LIKE
// wildcards in term match literally.
func ContainsFold(conn *gorm.DB, column, term string) (string, string) {
	pattern := "%" + likeEscaper.Replace(term) + "%"
	if IsSQLite(conn) {
		return "LOWER(" + column + `) LIKE ? ESCAPE '\'`, strings.ToLower(pattern)
	}
	return column + ` ILIKE ? ESCAPE '\'`, pattern
}
