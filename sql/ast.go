package sql

import (
	"bytes"
	"strings"
)

const (
	SelectVarCol = iota
	SelectVarStar
)

const (
	OrderAsc = iota
	OrderDesc
)

type CodeInfo struct {
	Start   int
	End     int
	Snippet string
}

// Select statement, ie the only one we support. Every value is a dotted path,
// the front end does not know anything about tables or types, it is up to the
// analyzer to figure out what a path points to.

type SelectVar interface {
	Type() int
	CInfo() CodeInfo

	// Index of the select item, starting from 0
	Index() int

	// If the field has an alias, via as keyword or implicitly, then it returns
	// otherwise returns an empty string
	Alias() string
}

type Col struct {
	CodeInfo CodeInfo
	ColIndex int
	As       string
	Path     []string
}

// Star is either a bare '*' or a qualified 'path.*'
type Star struct {
	CodeInfo  CodeInfo
	ColIndex  int
	Qualifier []string
}

func (self *Col) Type() int       { return SelectVarCol }
func (self *Col) CInfo() CodeInfo { return self.CodeInfo }
func (self *Col) Index() int      { return self.ColIndex }
func (self *Col) Alias() string   { return self.As }

func (self *Star) Type() int       { return SelectVarStar }
func (self *Star) CInfo() CodeInfo { return self.CodeInfo }
func (self *Star) Index() int      { return self.ColIndex }
func (self *Star) Alias() string   { return "" }

func (self *Star) IsQualified() bool { return len(self.Qualifier) != 0 }

type SelectVarList []SelectVar

type Projection struct {
	CodeInfo  CodeInfo
	ValueList SelectVarList
}

func (self *SelectVarList) HasStar() bool {
	for _, y := range *self {
		if y.Type() == SelectVarStar {
			return true
		}
	}
	return false
}

func (self *Projection) HasStar() bool {
	return self.ValueList.HasStar()
}

// FromVar is a table reference, ie [db.]table with an optional alias
type FromVar struct {
	CodeInfo CodeInfo
	Path     []string
	Alias    string
}

type From struct {
	CodeInfo CodeInfo
	VarList  []*FromVar
}

type OrderByVar struct {
	CodeInfo CodeInfo
	Path     []string
	Order    int
}

type OrderBy struct {
	CodeInfo CodeInfo
	VarList  []*OrderByVar
}

type Select struct {
	CodeInfo CodeInfo

	Projection *Projection // projection
	From       *From       // from clause
	OrderBy    *OrderBy    // order by
}

type Code struct {
	CodeInfo CodeInfo
	Select   *Select
}

// ----------------------------------------------------------------------------
// Printer
// ----------------------------------------------------------------------------

func doPrintStmtProjection(projection *Projection, buf *bytes.Buffer) {
	l := []string{}
	for _, x := range projection.ValueList {
		switch x.Type() {
		case SelectVarCol:
			col := x.(*Col)
			s := PathSql(col.Path)
			if col.As != "" {
				s += " as " + IdentSql(col.As)
			}
			l = append(l, s)

		default:
			star := x.(*Star)
			if star.IsQualified() {
				l = append(l, PathSql(star.Qualifier)+".*")
			} else {
				l = append(l, "*")
			}
		}
	}
	buf.WriteString(strings.Join(l, ", "))
}

func doPrintStmtFrom(from *From, buf *bytes.Buffer) {
	buf.WriteString("\nfrom ")
	l := []string{}
	for _, x := range from.VarList {
		s := PathSql(x.Path)
		if x.Alias != "" {
			s += " as " + IdentSql(x.Alias)
		}
		l = append(l, s)
	}
	buf.WriteString(strings.Join(l, ", "))
}

func doPrintStmtOrderBy(orderBy *OrderBy, buf *bytes.Buffer) {
	buf.WriteString("\norder by ")
	l := []string{}
	for _, x := range orderBy.VarList {
		if x.Order == OrderAsc {
			l = append(l, PathSql(x.Path)+" asc")
		} else {
			l = append(l, PathSql(x.Path)+" desc")
		}
	}
	buf.WriteString(strings.Join(l, ", "))
}

func doPrintSelect(s *Select, buf *bytes.Buffer) {
	buf.WriteString("select\n")
	doPrintStmtProjection(s.Projection, buf)
	doPrintStmtFrom(s.From, buf)
	if s.OrderBy != nil {
		doPrintStmtOrderBy(s.OrderBy, buf)
	}
}

func PrintSelect(s *Select) string {
	b := &bytes.Buffer{}
	doPrintSelect(s, b)
	return b.String()
}

func PrintCode(c *Code) string {
	b := &bytes.Buffer{}
	doPrintSelect(c.Select, b)
	return b.String()
}
