// Package testsupport holds helpers shared by package tests.
package testsupport

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteMemoryDB opens a named in-memory SQLite database. Distinct names
// yield isolated databases, so tests should pass something unique (t.Name()).
func NewSQLiteMemoryDB(name string) (*sql.DB, error) {
	name = sanitizeDBName(name)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)
	return sql.Open("sqlite3", dsn)
}

func sanitizeDBName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "testdb"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "?", "_", "&", "_", "#", "_")
	return replacer.Replace(name)
}
