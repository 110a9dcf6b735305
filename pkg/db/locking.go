package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate appends a FOR UPDATE clause on dialects that support it.
// sqlite permits a single writer per database and rejects the syntax, so
// the clause is skipped there.
func LockForUpdate(conn *gorm.DB) *gorm.DB {
	if conn.Dialector != nil && conn.Dialector.Name() == "sqlite" {
		return conn
	}
	return conn.Clauses(clause.Locking{Strength: "UPDATE"})
}
