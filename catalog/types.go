package catalog

import (
	"fmt"
	"strings"
)

// Column types as they are known to the catalog. The type system is a small
// Hive-like one: scalars, plus the three complex kinds ARRAY, MAP and STRUCT.

type PrimitiveKind int

const (
	KindInvalid = PrimitiveKind(iota)
	KindNull
	KindBoolean
	KindTinyInt
	KindSmallInt
	KindInt
	KindBigInt
	KindFloat
	KindDouble
	KindString
	KindVarchar
	KindChar
	KindTimestamp
	KindDate
	KindDecimal
	KindBinary
	KindDateTime
)

func (k PrimitiveKind) String() string {
	switch k {
	case KindNull:
		return "NULL_TYPE"
	case KindBoolean:
		return "BOOLEAN"
	case KindTinyInt:
		return "TINYINT"
	case KindSmallInt:
		return "SMALLINT"
	case KindInt:
		return "INT"
	case KindBigInt:
		return "BIGINT"
	case KindFloat:
		return "FLOAT"
	case KindDouble:
		return "DOUBLE"
	case KindString:
		return "STRING"
	case KindVarchar:
		return "VARCHAR"
	case KindChar:
		return "CHAR"
	case KindTimestamp:
		return "TIMESTAMP"
	case KindDate:
		return "DATE"
	case KindDecimal:
		return "DECIMAL"
	case KindBinary:
		return "BINARY"
	case KindDateTime:
		return "DATETIME"
	default:
		return "INVALID_TYPE"
	}
}

type Type interface {
	ToSql() string

	// IsSupported reports whether the engine can process values of this type.
	// Structs are only checked shallowly, their fields are validated when the
	// struct gets expanded.
	IsSupported() bool

	// IsValid is false only for InvalidType, ie the metastore held a type
	// string we could not parse.
	IsValid() bool
	IsComplex() bool
	IsCollection() bool
	IsStruct() bool
	IsNull() bool
	Equals(Type) bool

	// SlotSize is the number of bytes a value of this type occupies inside of a
	// tuple. Struct slots own no storage, their fields live in an item tuple.
	SlotSize() int
}

type ScalarType struct {
	Kind      PrimitiveKind
	Len       int // VARCHAR/CHAR
	Precision int // DECIMAL
	Scale     int // DECIMAL
}

type ArrayType struct {
	Item Type
}

type MapType struct {
	Key   Type
	Value Type
}

type StructField struct {
	Name     string
	Type     Type
	Position int
}

type StructType struct {
	Fields []StructField
}

var (
	InvalidType = &ScalarType{Kind: KindInvalid}
	NullType    = &ScalarType{Kind: KindNull}
	Boolean     = &ScalarType{Kind: KindBoolean}
	TinyInt     = &ScalarType{Kind: KindTinyInt}
	SmallInt    = &ScalarType{Kind: KindSmallInt}
	Int         = &ScalarType{Kind: KindInt}
	BigInt      = &ScalarType{Kind: KindBigInt}
	Float       = &ScalarType{Kind: KindFloat}
	Double      = &ScalarType{Kind: KindDouble}
	String      = &ScalarType{Kind: KindString}
	Timestamp   = &ScalarType{Kind: KindTimestamp}
	Date        = &ScalarType{Kind: KindDate}
	Binary      = &ScalarType{Kind: KindBinary}
	DateTime    = &ScalarType{Kind: KindDateTime}
)

func NewVarchar(n int) *ScalarType { return &ScalarType{Kind: KindVarchar, Len: n} }
func NewChar(n int) *ScalarType    { return &ScalarType{Kind: KindChar, Len: n} }

func NewDecimal(precision, scale int) *ScalarType {
	return &ScalarType{Kind: KindDecimal, Precision: precision, Scale: scale}
}

func NewArray(item Type) *ArrayType { return &ArrayType{Item: item} }

func NewMap(key, value Type) *MapType { return &MapType{Key: key, Value: value} }

// NewStruct builds a struct type, field positions follow the argument order.
func NewStruct(fields ...StructField) *StructType {
	out := &StructType{}
	for idx, f := range fields {
		f.Position = idx
		out.Fields = append(out.Fields, f)
	}
	return out
}

func Field(name string, ty Type) StructField {
	return StructField{Name: name, Type: ty}
}

// ----------------------------------------------------------------------------
// ScalarType

func (self *ScalarType) ToSql() string {
	switch self.Kind {
	case KindVarchar, KindChar:
		return fmt.Sprintf("%s(%d)", self.Kind, self.Len)
	case KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", self.Precision, self.Scale)
	default:
		return self.Kind.String()
	}
}

func (self *ScalarType) IsSupported() bool {
	switch self.Kind {
	case KindBinary, KindDateTime:
		return false
	default:
		return true
	}
}

func (self *ScalarType) IsValid() bool      { return self.Kind != KindInvalid }
func (self *ScalarType) IsComplex() bool    { return false }
func (self *ScalarType) IsCollection() bool { return false }
func (self *ScalarType) IsStruct() bool     { return false }
func (self *ScalarType) IsNull() bool       { return self.Kind == KindNull }

func (self *ScalarType) Equals(that Type) bool {
	other, ok := that.(*ScalarType)
	if !ok {
		return false
	}
	return *self == *other
}

func (self *ScalarType) SlotSize() int {
	switch self.Kind {
	case KindBoolean, KindTinyInt, KindNull:
		return 1
	case KindSmallInt:
		return 2
	case KindInt, KindFloat, KindDate:
		return 4
	case KindBigInt, KindDouble:
		return 8
	case KindTimestamp, KindDateTime:
		return 16
	case KindString, KindVarchar, KindBinary:
		return 12 // ptr + len
	case KindChar:
		return self.Len
	case KindDecimal:
		switch {
		case self.Precision <= 9:
			return 4
		case self.Precision <= 18:
			return 8
		default:
			return 16
		}
	default:
		return 0
	}
}

// ----------------------------------------------------------------------------
// ArrayType

func (self *ArrayType) ToSql() string {
	return fmt.Sprintf("ARRAY<%s>", self.Item.ToSql())
}

func (self *ArrayType) IsSupported() bool  { return self.Item.IsSupported() }
func (self *ArrayType) IsValid() bool      { return self.Item.IsValid() }
func (self *ArrayType) IsComplex() bool    { return true }
func (self *ArrayType) IsCollection() bool { return true }
func (self *ArrayType) IsStruct() bool     { return false }
func (self *ArrayType) IsNull() bool       { return false }
func (self *ArrayType) SlotSize() int      { return 12 }

func (self *ArrayType) Equals(that Type) bool {
	other, ok := that.(*ArrayType)
	return ok && self.Item.Equals(other.Item)
}

// ----------------------------------------------------------------------------
// MapType

func (self *MapType) ToSql() string {
	return fmt.Sprintf("MAP<%s,%s>", self.Key.ToSql(), self.Value.ToSql())
}

func (self *MapType) IsSupported() bool {
	return self.Key.IsSupported() && self.Value.IsSupported()
}
func (self *MapType) IsValid() bool      { return self.Key.IsValid() && self.Value.IsValid() }
func (self *MapType) IsComplex() bool    { return true }
func (self *MapType) IsCollection() bool { return true }
func (self *MapType) IsStruct() bool     { return false }
func (self *MapType) IsNull() bool       { return false }
func (self *MapType) SlotSize() int      { return 12 }

func (self *MapType) Equals(that Type) bool {
	other, ok := that.(*MapType)
	return ok && self.Key.Equals(other.Key) && self.Value.Equals(other.Value)
}

// ----------------------------------------------------------------------------
// StructType

func (self *StructType) ToSql() string {
	l := []string{}
	for _, f := range self.Fields {
		l = append(l, fmt.Sprintf("%s:%s", f.Name, f.Type.ToSql()))
	}
	return fmt.Sprintf("STRUCT<%s>", strings.Join(l, ","))
}

func (self *StructType) IsSupported() bool { return true }

func (self *StructType) IsValid() bool {
	for _, f := range self.Fields {
		if !f.Type.IsValid() {
			return false
		}
	}
	return true
}

func (self *StructType) IsComplex() bool    { return true }
func (self *StructType) IsCollection() bool { return false }
func (self *StructType) IsStruct() bool     { return true }
func (self *StructType) IsNull() bool       { return false }
func (self *StructType) SlotSize() int      { return 0 }

func (self *StructType) Equals(that Type) bool {
	other, ok := that.(*StructType)
	if !ok || len(self.Fields) != len(other.Fields) {
		return false
	}
	for idx, f := range self.Fields {
		o := other.Fields[idx]
		if !strings.EqualFold(f.Name, o.Name) || !f.Type.Equals(o.Type) {
			return false
		}
	}
	return true
}

// FieldByName does a case insensitive lookup, returns nil when not found
func (self *StructType) FieldByName(name string) *StructField {
	for idx := range self.Fields {
		if strings.EqualFold(self.Fields[idx].Name, name) {
			return &self.Fields[idx]
		}
	}
	return nil
}
