package sql

import (
	"strings"
	"unicode"
)

// words that cannot be used as a bare identifier when printing SQL back
var reservedWords = map[string]bool{
	"all": true, "and": true, "array": true, "as": true, "asc": true,
	"between": true, "by": true, "case": true, "cast": true, "create": true,
	"cross": true, "default": true, "desc": true, "distinct": true,
	"else": true, "end": true, "exists": true, "false": true, "from": true,
	"full": true, "group": true, "having": true, "if": true, "in": true,
	"inner": true, "insert": true, "is": true, "join": true, "left": true,
	"like": true, "limit": true, "map": true, "not": true, "null": true,
	"offset": true, "on": true, "or": true, "order": true, "outer": true,
	"right": true, "select": true, "struct": true, "table": true,
	"then": true, "true": true, "union": true, "when": true, "where": true,
	"with": true,
}

func IsReserved(ident string) bool {
	return reservedWords[strings.ToLower(ident)]
}

func isPlainIdent(ident string) bool {
	if ident == "" || isAllDigits(ident) {
		return false
	}
	for _, r := range ident {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// IdentSql returns the identifier as it must be written inside of a query,
// ie backquoted when it is a reserved word or contains characters that are
// not part of a bare identifier.
func IdentSql(ident string) string {
	if isPlainIdent(ident) && !IsReserved(ident) {
		return ident
	}
	return "`" + ident + "`"
}

// PathSql prints a dotted path, quoting each segment with IdentSql
func PathSql(path []string) string {
	l := make([]string, 0, len(path))
	for _, p := range path {
		l = append(l, IdentSql(p))
	}
	return strings.Join(l, ".")
}
