package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// YAML description of a catalog, used by the command line tool and by tests as
// fixtures. Type strings use the metastore syntax, an unparseable type string
// is loaded as InvalidType rather than rejected.

type columnDoc struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Nullable  *bool  `yaml:"nullable"`
	NDV       *int64 `yaml:"ndv"`
	NullCount *int64 `yaml:"null_count"`
}

type tableDoc struct {
	Db          string            `yaml:"db"`
	Name        string            `yaml:"name"`
	Kind        string            `yaml:"kind"`
	NumRows     *int64            `yaml:"num_rows"`
	FileFormats []string          `yaml:"file_formats"`
	Masks       map[string]string `yaml:"masks"`
	LoadError   string            `yaml:"load_error"`
	Columns     []columnDoc       `yaml:"columns"`
}

type catalogDoc struct {
	Tables []tableDoc `yaml:"tables"`
}

// LoadFile reads a catalog description from a YAML file
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // reading user-specified catalog file
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

// Load decodes a catalog description, unknown fields are rejected
func Load(r io.Reader) (*Catalog, error) {
	doc := catalogDoc{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil && err != io.EOF {
		return nil, err
	}

	out := New()
	for idx, td := range doc.Tables {
		t, err := td.build()
		if err != nil {
			return nil, fmt.Errorf("tables[%d]: %w", idx, err)
		}
		if err := out.AddTable(t); err != nil {
			return nil, fmt.Errorf("tables[%d]: %w", idx, err)
		}
	}
	return out, nil
}

func (self *tableDoc) build() (*Table, error) {
	if self.Name == "" {
		return nil, fmt.Errorf("table name must be specified")
	}
	db := self.Db
	if db == "" {
		db = DefaultDb
	}

	t := NewTable(db, self.Name)
	kind, err := ParseTableKind(self.Kind)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", self.Name, err)
	}
	t.Kind = kind
	t.LoadError = self.LoadError

	if self.NumRows != nil {
		t.NumRows = *self.NumRows
	}

	if len(self.FileFormats) > 0 {
		t.FileFormats = nil
		for _, f := range self.FileFormats {
			ff, err := ParseFileFormat(f)
			if err != nil {
				return nil, fmt.Errorf("table %s: %w", self.Name, err)
			}
			t.FileFormats = append(t.FileFormats, ff)
		}
	}
	if t.Kind != TableFS {
		t.FileFormats = nil
	}

	for k, v := range self.Masks {
		t.Masks[k] = v
	}

	for _, cd := range self.Columns {
		if cd.Name == "" {
			return nil, fmt.Errorf("table %s: column name must be specified", self.Name)
		}
		if t.Column(cd.Name) != nil {
			return nil, fmt.Errorf("table %s: duplicated column %s", self.Name, cd.Name)
		}
		c := NewColumn(cd.Name, ParseTypeOrInvalid(cd.Type))
		if cd.Nullable != nil {
			c.Nullable = *cd.Nullable
		}
		if cd.NDV != nil {
			c.Stats.NumDistinctValues = *cd.NDV
		}
		if cd.NullCount != nil {
			c.Stats.NumNulls = *cd.NullCount
		}
		t.AddColumn(c)
	}
	return t, nil
}
