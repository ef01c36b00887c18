package sql

// parser of the sql, which is tailored for column reference analysis. Only
// the parts of a select statement that carry column references are supported,
// briefly described as following EBNF
//
// code := select ';'?
// select :=
//     SELECT projection
//     from
//     order-by?
//
// path := ident ('.' ident)*
// ident := ID | '`' quoted '`'
//
// projection := project-var (',' project-var)*
// project-var :=
//   '*' |
//   path '.' '*' |
//   path as?
// as := AS? ID
//
// from := FROM from-var (',' from-var)*
// from-var := path as?
//
// order-by := ORDERBY order-by-var (',' order-by-var)*
// order-by-var := path ('ASC' | 'DESC')?
//
// ----------------------------------------------------------------------------

import (
	"fmt"
	"strings"
)

type Parser struct {
	L *Lexer
}

func newParser(xx string) *Parser {
	return &Parser{
		L: newLexer(xx),
	}
}

func NewParser(xx string) *Parser {
	return newParser(xx)
}

// Parse is a shortcut of NewParser(xx).Parse()
func Parse(xx string) (*Code, error) {
	return newParser(xx).Parse()
}

func (self *Parser) posStart() int {
	return self.L.TokenStart
}

// start of the current token, snippets are trimmed afterwards
func (self *Parser) posEnd() int {
	return self.L.TokenStart
}

func (self *Parser) snippet(start, end int) string {
	if start >= end {
		start = end
	}
	if end > len(self.L.Source) {
		end = len(self.L.Source)
	}
	return strings.TrimSpace(self.L.Source[start:end])
}

func (self *Parser) err(msg string) error {
	if self.L.Token == TkError {
		return fmt.Errorf("%s", self.L.Lexeme.Text)
	}
	return fmt.Errorf("%s: %s", self.L.dinfo(), msg)
}

func (self *Parser) currentCodeInfo(start int) CodeInfo {
	return CodeInfo{
		Start:   start,
		End:     self.posEnd(),
		Snippet: self.snippet(start, self.posEnd()),
	}
}

func (self *Parser) Parse() (*Code, error) {
	c := &Code{}

	self.L.Next()
	start := self.posStart()

	switch self.L.Token {
	case TkSelect:
		if n, err := self.parseSelect(); err != nil {
			return nil, err
		} else {
			c.Select = n
		}
	default:
		return nil, self.err("unknown statement, expect *select*")
	}

	c.CodeInfo = self.currentCodeInfo(start)

	if self.L.Token == TkSemicolon {
		self.L.Next()
	}
	if self.L.Token != TkEof {
		return nil, self.err("dangling code after parser thinks the statement is finished")
	}
	return c, nil
}

func (self *Parser) parseSelect() (*Select, error) {
	start := self.posStart()
	self.L.Next() // skip the *select* keyword

	projection, err := self.parseProjection()
	if err != nil {
		return nil, err
	}

	if self.L.Token != TkFrom {
		return nil, self.err("from clause is not specified")
	}
	from, err := self.parseFrom()
	if err != nil {
		return nil, err
	}

	var orderBy *OrderBy
	if self.L.Token == TkOrderBy {
		if n, err := self.parseOrderBy(); err != nil {
			return nil, err
		} else {
			orderBy = n
		}
	}

	return &Select{
		CodeInfo:   self.currentCodeInfo(start),
		Projection: projection,
		From:       from,
		OrderBy:    orderBy,
	}, nil
}

// SQLLIST, which is a name I coin to represent grammar like following :
// element (',' element)*, the difference between the normal one is that the
// list will never be empty. This is same for *projection*, *from*, *order by*
func (self *Parser) parseSqlList(
	visitor func(int) error,
) error {
	if err := visitor(0); err != nil {
		return err
	}
	idx := 1

	for self.L.Token == TkComma {
		self.L.Next()
		if err := visitor(idx); err != nil {
			return err
		}
		idx++
	}
	return nil
}

// parsePath parses a dotted path. When allowStar is set, a trailing '.*' is
// accepted and reported via the second return value.
func (self *Parser) parsePath(allowStar bool) ([]string, bool, error) {
	if self.L.Token != TkId {
		return nil, false, self.err("expect an identifier")
	}
	path := []string{self.L.Lexeme.Text}
	self.L.Next()

	for self.L.Token == TkDot {
		switch self.L.Next() {
		case TkId:
			path = append(path, self.L.Lexeme.Text)
			self.L.Next()
		case TkMul:
			if !allowStar {
				return nil, false, self.err("'*' is not allowed here")
			}
			self.L.Next()
			return path, true, nil
		default:
			return nil, false, self.err("expect an identifier after '.'")
		}
	}
	return path, false, nil
}

// optional alias, the AS keyword itself is optional as well
func (self *Parser) parseAlias() (string, error) {
	switch self.L.Token {
	case TkAs:
		if self.L.Next() != TkId {
			return "", self.err("expect an alias identifier after *as*")
		}
		alias := self.L.Lexeme.Text
		self.L.Next()
		return alias, nil
	case TkId:
		alias := self.L.Lexeme.Text
		self.L.Next()
		return alias, nil
	default:
		return "", nil
	}
}

func (self *Parser) parseProjectionVar(idx int) (SelectVar, error) {
	start := self.posStart()

	if self.L.Token == TkMul {
		self.L.Next()
		return &Star{
			CodeInfo: self.currentCodeInfo(start),
			ColIndex: idx,
		}, nil
	}

	path, star, err := self.parsePath(true)
	if err != nil {
		return nil, err
	}
	if star {
		return &Star{
			CodeInfo:  self.currentCodeInfo(start),
			ColIndex:  idx,
			Qualifier: path,
		}, nil
	}

	alias, err := self.parseAlias()
	if err != nil {
		return nil, err
	}
	return &Col{
		CodeInfo: self.currentCodeInfo(start),
		ColIndex: idx,
		As:       alias,
		Path:     path,
	}, nil
}

func (self *Parser) parseProjection() (*Projection, error) {
	x := SelectVarList{}
	start := self.posStart()

	if err := self.parseSqlList(
		func(idx int) error {
			if n, err := self.parseProjectionVar(idx); err != nil {
				return err
			} else {
				x = append(x, n)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	return &Projection{
		CodeInfo:  self.currentCodeInfo(start),
		ValueList: x,
	}, nil
}

func (self *Parser) parseFromVar() (*FromVar, error) {
	start := self.posStart()
	path, _, err := self.parsePath(false)
	if err != nil {
		return nil, err
	}
	alias, err := self.parseAlias()
	if err != nil {
		return nil, err
	}
	return &FromVar{
		CodeInfo: self.currentCodeInfo(start),
		Path:     path,
		Alias:    alias,
	}, nil
}

func (self *Parser) parseFrom() (*From, error) {
	from := &From{}
	start := self.posStart()

	self.L.Next() // eat the *from*

	if err := self.parseSqlList(
		func(_ int) error {
			if n, err := self.parseFromVar(); err != nil {
				return err
			} else {
				from.VarList = append(from.VarList, n)
			}
			return nil
		},
	); err != nil {
		return nil, err
	}

	from.CodeInfo = self.currentCodeInfo(start)
	return from, nil
}

func (self *Parser) parseOrderBy() (*OrderBy, error) {
	oB := &OrderBy{}
	start := self.posStart()
	self.L.Next() // eat order by

	if err := self.parseSqlList(
		func(_ int) error {
			vstart := self.posStart()
			path, _, err := self.parsePath(false)
			if err != nil {
				return err
			}
			order := OrderAsc
			switch self.L.Token {
			case TkAsc:
				self.L.Next()
			case TkDesc:
				order = OrderDesc
				self.L.Next()
			}
			oB.VarList = append(oB.VarList, &OrderByVar{
				CodeInfo: self.currentCodeInfo(vstart),
				Path:     path,
				Order:    order,
			})
			return nil
		},
	); err != nil {
		return nil, err
	}

	oB.CodeInfo = self.currentCodeInfo(start)
	return oB, nil
}
