package catalog

import (
	"fmt"
	"strings"
)

const DefaultDb = "default"

// Catalog is an in-memory, already loaded view of the metastore. Lookups are
// pure reads, a compilation never mutates it.
type Catalog struct {
	tables map[string]*Table
}

func New() *Catalog {
	return &Catalog{
		tables: make(map[string]*Table),
	}
}

func key(db, name string) string {
	return strings.ToLower(db) + "." + strings.ToLower(name)
}

func (self *Catalog) AddTable(t *Table) error {
	k := key(t.Db, t.Name)
	if _, ok := self.tables[k]; ok {
		return fmt.Errorf("table %s already exists", k)
	}
	self.tables[k] = t
	return nil
}

// GetTable looks a table up by database and name, an empty database means the
// default database
func (self *Catalog) GetTable(db, name string) (*Table, error) {
	if db == "" {
		db = DefaultDb
	}
	t, ok := self.tables[key(db, name)]
	if !ok {
		return nil, fmt.Errorf("could not resolve table reference: '%s.%s'", db, name)
	}
	return t, nil
}

func (self *Catalog) NumTables() int { return len(self.tables) }
