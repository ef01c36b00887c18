package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parser for the metastore's type strings, ie Hive style type declaration as
// following EBNF
//
// type   := scalar | array | map | struct
// scalar := ID ('(' INT (',' INT)? ')')?
// array  := ARRAY '<' type '>'
// map    := MAP '<' type ',' type '>'
// struct := STRUCT '<' field (',' field)* '>'
// field  := ID ':' type

type typeParser struct {
	source string
	cursor int
}

func (self *typeParser) err(msg string) error {
	return fmt.Errorf("invalid type string %q around position %d: %s",
		self.source, self.cursor, msg)
}

func (self *typeParser) skipWS() {
	for self.cursor < len(self.source) {
		r, sz := utf8.DecodeRuneInString(self.source[self.cursor:])
		if !unicode.IsSpace(r) {
			return
		}
		self.cursor += sz
	}
}

func (self *typeParser) peek() rune {
	self.skipWS()
	if self.cursor == len(self.source) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(self.source[self.cursor:])
	return r
}

func (self *typeParser) expect(c rune) error {
	if self.peek() != c {
		return self.err(fmt.Sprintf("expect '%c'", c))
	}
	self.cursor++
	return nil
}

func (self *typeParser) ident() (string, error) {
	self.skipWS()
	start := self.cursor
	for self.cursor < len(self.source) {
		r, sz := utf8.DecodeRuneInString(self.source[self.cursor:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			break
		}
		self.cursor += sz
	}
	if start == self.cursor {
		return "", self.err("expect an identifier")
	}
	return self.source[start:self.cursor], nil
}

func (self *typeParser) integer() (int, error) {
	self.skipWS()
	start := self.cursor
	for self.cursor < len(self.source) && unicode.IsDigit(rune(self.source[self.cursor])) {
		self.cursor++
	}
	v, err := strconv.Atoi(self.source[start:self.cursor])
	if err != nil {
		return 0, self.err("expect an integer")
	}
	return v, nil
}

// optional '(' INT (',' INT)? ')' suffix, returns the number of arguments
func (self *typeParser) params() ([]int, error) {
	if self.peek() != '(' {
		return nil, nil
	}
	self.cursor++
	out := []int{}
	for {
		v, err := self.integer()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if self.peek() == ',' {
			self.cursor++
			continue
		}
		break
	}
	if err := self.expect(')'); err != nil {
		return nil, err
	}
	return out, nil
}

func (self *typeParser) parseScalar(name string) (Type, error) {
	params, err := self.params()
	if err != nil {
		return nil, err
	}

	simple := func(t *ScalarType) (Type, error) {
		if len(params) != 0 {
			return nil, self.err(fmt.Sprintf("type %s takes no parameter", t.Kind))
		}
		return t, nil
	}

	switch strings.ToLower(name) {
	case "boolean":
		return simple(Boolean)
	case "tinyint":
		return simple(TinyInt)
	case "smallint":
		return simple(SmallInt)
	case "int", "integer":
		return simple(Int)
	case "bigint":
		return simple(BigInt)
	case "float", "real":
		return simple(Float)
	case "double":
		return simple(Double)
	case "string":
		return simple(String)
	case "timestamp":
		return simple(Timestamp)
	case "date":
		return simple(Date)
	case "binary":
		return simple(Binary)
	case "datetime":
		return simple(DateTime)
	case "varchar", "char":
		if len(params) != 1 || params[0] <= 0 {
			return nil, self.err(fmt.Sprintf("%s requires a positive length", name))
		}
		if strings.EqualFold(name, "char") {
			return NewChar(params[0]), nil
		}
		return NewVarchar(params[0]), nil
	case "decimal":
		switch len(params) {
		case 0:
			return NewDecimal(9, 0), nil
		case 1:
			return NewDecimal(params[0], 0), nil
		case 2:
			if params[1] > params[0] || params[0] > 38 {
				return nil, self.err("invalid decimal precision/scale")
			}
			return NewDecimal(params[0], params[1]), nil
		}
		return nil, self.err("too many decimal parameters")
	default:
		return nil, self.err(fmt.Sprintf("unknown type %s", name))
	}
}

func (self *typeParser) parseStruct() (Type, error) {
	if err := self.expect('<'); err != nil {
		return nil, err
	}
	fields := []StructField{}
	seen := make(map[string]bool)
	for {
		name, err := self.ident()
		if err != nil {
			return nil, err
		}
		if seen[strings.ToLower(name)] {
			return nil, self.err(fmt.Sprintf("duplicated struct field %s", name))
		}
		seen[strings.ToLower(name)] = true

		if err := self.expect(':'); err != nil {
			return nil, err
		}
		ty, err := self.parseType()
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field(strings.ToLower(name), ty))
		if self.peek() == ',' {
			self.cursor++
			continue
		}
		break
	}
	if err := self.expect('>'); err != nil {
		return nil, err
	}
	return NewStruct(fields...), nil
}

func (self *typeParser) parseType() (Type, error) {
	name, err := self.ident()
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(name) {
	case "array":
		if err := self.expect('<'); err != nil {
			return nil, err
		}
		item, err := self.parseType()
		if err != nil {
			return nil, err
		}
		if err := self.expect('>'); err != nil {
			return nil, err
		}
		return NewArray(item), nil

	case "map":
		if err := self.expect('<'); err != nil {
			return nil, err
		}
		key, err := self.parseType()
		if err != nil {
			return nil, err
		}
		if err := self.expect(','); err != nil {
			return nil, err
		}
		value, err := self.parseType()
		if err != nil {
			return nil, err
		}
		if err := self.expect('>'); err != nil {
			return nil, err
		}
		return NewMap(key, value), nil

	case "struct":
		return self.parseStruct()

	default:
		return self.parseScalar(name)
	}
}

// ParseType parses a metastore type string. Callers that load schemas are
// expected to map a failure to InvalidType instead of rejecting the table, the
// error only shows up once a query references such a column.
func ParseType(s string) (Type, error) {
	p := &typeParser{source: s}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if p.peek() != utf8.RuneError {
		return nil, p.err("dangling characters after type")
	}
	return t, nil
}

// ParseTypeOrInvalid is ParseType that never fails
func ParseTypeOrInvalid(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		return InvalidType
	}
	return t
}
