package analysis

import (
	"fmt"
	"strings"

	"github.com/GoGoWen/impala/catalog"
	"github.com/GoGoWen/impala/sql"
)

type PathType int

const (
	PathTypeSlotRef = PathType(iota)
	PathTypeStar
)

func (t PathType) String() string {
	switch t {
	case PathTypeSlotRef:
		return "SLOT_REF"
	case PathTypeStar:
		return "STAR"
	default:
		return "UNKNOWN"
	}
}

// Path is a raw dotted path resolved against the row type of a tuple. The
// leading Skip segments of the raw path name the tuple itself (ie a table
// alias), the rest walks struct fields starting at the root type.
//
// A resolved path is never modified, extending a path creates a new one.
type Path struct {
	rawPath   []string
	skip      int
	rootTuple TupleId
	rootTable *catalog.Table
	rootType  *catalog.StructType

	matchedTypes     []catalog.Type
	matchedPositions []int
	matchedNames     []string
	resolved         bool

	// number of fields matched before Resolve failed
	failedAt int
}

// NewPath creates an unresolved path rooted at a tuple. The table is nil when
// the tuple does not belong to a table.
func NewPath(
	rootTuple TupleId,
	rootTable *catalog.Table,
	rootType *catalog.StructType,
	rawPath []string,
	skip int,
) *Path {
	assertf(skip >= 0 && skip <= len(rawPath), "path-skip",
		"invalid skip %d for path %v", skip, rawPath)
	return &Path{
		rawPath:   rawPath,
		skip:      skip,
		rootTuple: rootTuple,
		rootTable: rootTable,
		rootType:  rootType,
	}
}

// Resolve walks the raw path through the struct fields of the root type. The
// error is a resolution error meant to be shown to the user.
func (self *Path) Resolve() error {
	if self.resolved {
		return nil
	}

	var cur catalog.Type = self.rootType
	types := []catalog.Type{}
	positions := []int{}
	names := []string{}

	for idx, seg := range self.rawPath[self.skip:] {
		self.failedAt = idx
		st, ok := cur.(*catalog.StructType)
		if !ok {
			if cur.IsCollection() {
				return errResolution(
					"Illegal column/field reference '%s' with intermediate collection '%s' of type '%s'",
					sql.PathSql(self.rawPath),
					sql.PathSql(self.rawPath[:self.skip+idx]),
					cur.ToSql(),
				)
			}
			return errResolution("Could not resolve column/field reference: '%s'",
				sql.PathSql(self.rawPath))
		}
		f := st.FieldByName(seg)
		if f == nil {
			return errResolution("Could not resolve column/field reference: '%s'",
				sql.PathSql(self.rawPath))
		}
		types = append(types, f.Type)
		positions = append(positions, f.Position)
		names = append(names, f.Name)
		cur = f.Type
	}

	self.matchedTypes = types
	self.matchedPositions = positions
	self.matchedNames = names
	self.resolved = true
	return nil
}

// ExtendPath returns a resolved path that is parent plus one more struct
// field. The parent must be resolved and its destination must be a struct
// carrying the field.
func ExtendPath(parent *Path, field string) *Path {
	assertf(parent.resolved, "path-resolved", "extending unresolved path %s", parent)
	st, ok := parent.DestType().(*catalog.StructType)
	assertf(ok, "path-extend-struct", "extending non struct path %s", parent)
	f := st.FieldByName(field)
	assertf(f != nil, "path-extend-field", "no field %s in %s", field, st.ToSql())

	out := &Path{
		rawPath:   append(append([]string{}, parent.rawPath...), field),
		skip:      parent.skip,
		rootTuple: parent.rootTuple,
		rootTable: parent.rootTable,
		rootType:  parent.rootType,

		matchedTypes:     append(append([]catalog.Type{}, parent.matchedTypes...), f.Type),
		matchedPositions: append(append([]int{}, parent.matchedPositions...), f.Position),
		matchedNames:     append(append([]string{}, parent.matchedNames...), f.Name),
		resolved:         true,
	}
	return out
}

func (self *Path) IsResolved() bool              { return self.resolved }
func (self *Path) RawPath() []string             { return self.rawPath }
func (self *Path) Skip() int                     { return self.skip }
func (self *Path) RootTuple() TupleId            { return self.rootTuple }
func (self *Path) RootTable() *catalog.Table     { return self.rootTable }
func (self *Path) RootType() *catalog.StructType { return self.rootType }
func (self *Path) MatchedTypes() []catalog.Type  { return self.matchedTypes }
func (self *Path) MatchedPositions() []int       { return self.matchedPositions }

func (self *Path) IsRootedAtTable() bool { return self.rootTable != nil }

// DestType is the type the path points to, ie the row type itself when no
// field has been matched.
func (self *Path) DestType() catalog.Type {
	assertf(self.resolved, "path-resolved", "unresolved path %s", self)
	if len(self.matchedTypes) == 0 {
		return self.rootType
	}
	return self.matchedTypes[len(self.matchedTypes)-1]
}

// FirstColumn is the table column the path goes through, nil when the path is
// not rooted at a table or matched nothing.
func (self *Path) FirstColumn() *catalog.Column {
	if self.rootTable == nil || len(self.matchedPositions) == 0 {
		return nil
	}
	return self.rootTable.Columns[self.matchedPositions[0]]
}

// DestColumn is the table column the path points to, nil when the path points
// into a nested field.
func (self *Path) DestColumn() *catalog.Column {
	if len(self.matchedPositions) != 1 {
		return nil
	}
	return self.FirstColumn()
}

// Label is the canonical name of what the path matched, ie "s.f"
func (self *Path) Label() string {
	return strings.Join(self.matchedNames, ".")
}

// Key identifies the destination of the path, two paths with the same key
// point to the same column of the same tuple.
func (self *Path) Key() string {
	assertf(self.resolved, "path-resolved", "unresolved path %s", self)
	b := &strings.Builder{}
	b.WriteString(fmt.Sprintf("%d", self.rootTuple))
	for _, p := range self.matchedPositions {
		b.WriteString(fmt.Sprintf(":%d", p))
	}
	return b.String()
}

func (self *Path) String() string {
	return sql.PathSql(self.rawPath)
}
