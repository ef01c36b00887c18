package sql

import (
	"bytes"
	"fmt"
	"unicode"
	"unicode/utf8"
)

const (
	TkId = iota

	// Keywords
	TkSelect
	TkFrom
	TkAs
	TkOrderBy
	TkAsc
	TkDesc

	// Punctuation
	TkComma
	TkSemicolon
	TkDot
	TkMul

	TkError
	TkEof
)

type Lexeme struct {
	Text string

	// Quoted is set when the identifier was written inside of backquotes, the
	// text is kept verbatim then.
	Quoted bool
}

type Lexer struct {
	Source string
	Cursor int
	Token  int
	Lexeme Lexeme

	// start of the current token, used for code snippets
	TokenStart int
}

func (self *Lexer) nextRune() (rune, int) {
	if self.Cursor >= len(self.Source) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(self.Source[self.Cursor:])
}

func (self *Lexer) nextRune2() rune {
	if self.Cursor+1 >= len(self.Source) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+1:])
	return r
}

func (self *Lexer) yield(tk int, sz int) int {
	self.Token = tk
	self.TokenStart = self.Cursor
	self.Cursor += sz
	return tk
}

func (self *Lexer) eof() int {
	self.Token = TkEof
	self.TokenStart = self.Cursor
	return TkEof
}

// generate a debug position for diagnostic information output
func (self *Lexer) pos(where int) (int, int) {
	line := 1
	col := 1
	for idx, r := range self.Source {
		if idx >= where {
			break
		}
		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

func (self *Lexer) dinfo() string {
	line, col := self.pos(self.Cursor)
	return fmt.Sprintf("around position(%d: %d)", line, col)
}

func (self *Lexer) err(msg string) int {
	self.Lexeme.Text = fmt.Sprintf("%s: %s", self.dinfo(), msg)
	self.Token = TkError
	return TkError
}

func (self *Lexer) errUtf8() int {
	return self.err("invalid utf8 character")
}

func (self *Lexer) lexLineComment() bool {
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				return true // reaching end of the source
			}
			self.errUtf8()
			return false
		}

		self.Cursor += sz

		if r == '\n' {
			break
		}
	}
	return true
}

func (self *Lexer) lexBlockComment() bool {
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				self.err("block comment is not closed properly")
			} else {
				self.errUtf8()
			}
			return false
		}

		if r == '*' && self.nextRune2() == '/' {
			self.Cursor += 2
			break
		}

		self.Cursor += sz
	}
	return true
}

func (self *Lexer) matchkeyword(str string, offset int) bool {
	c := self.Cursor + offset
	tar := []rune(str)

	for idx := 0; idx < len(tar); idx++ {
		if c >= len(self.Source) {
			return false
		}
		r, sz := utf8.DecodeRuneInString(self.Source[c:]) // case insensitive
		if unicode.ToLower(r) != tar[idx] {
			return false
		}
		c += sz
	}

	if c >= len(self.Source) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(self.Source[c:])
	return !self.isIdChar(r)
}

func (self *Lexer) matchKeyword(w string) bool {
	return self.matchkeyword(w, 1)
}

// matches two keywords separated by whitespace, ie ORDER BY, and returns the
// total length
func (self *Lexer) matchKeyword2(w1, w2 string) (bool, int) {
	if !self.matchKeyword(w1) {
		return false, -1
	}

	off := 1 + len(w1)
	for self.Cursor+off < len(self.Source) {
		r, _ := utf8.DecodeRuneInString(self.Source[self.Cursor+off:])
		if !self.isWS(r) {
			break
		}
		off++
	}

	if self.matchkeyword(w2, off) {
		return true, off + len(w2)
	}
	return false, -1
}

func (self *Lexer) isWS(r rune) bool {
	switch r {
	case ' ', '\r', '\t', '\n', '\b', '\v':
		return true
	default:
		return false
	}
}

func (self *Lexer) isIdChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// identifiers may start with digits as long as they are not all digits
func (self *Lexer) isIdLeadingChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func (self *Lexer) tryKeyword(c rune) (bool, int) {
	switch c {
	case 'a', 'A':
		if self.matchKeyword("s") {
			return true, self.yield(TkAs, 2)
		}
		if self.matchKeyword("sc") {
			return true, self.yield(TkAsc, 3)
		}

	case 'd', 'D':
		if self.matchKeyword("esc") {
			return true, self.yield(TkDesc, 4)
		}

	case 'f', 'F':
		if self.matchKeyword("rom") {
			return true, self.yield(TkFrom, 4)
		}

	case 'o', 'O':
		if yes, l := self.matchKeyword2("rder", "by"); yes {
			return true, self.yield(TkOrderBy, l)
		}

	case 's', 'S':
		if self.matchKeyword("elect") {
			return true, self.yield(TkSelect, 6)
		}
	}

	return false, 0
}

func (self *Lexer) lexId(c rune) int {
	if !self.isIdLeadingChar(c) {
		return self.err(fmt.Sprintf("unexpected character '%c'", c))
	}

	self.TokenStart = self.Cursor
	start := self.Cursor
	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError || !self.isIdChar(r) {
			break
		}
		self.Cursor += sz
	}

	self.Lexeme.Text = self.Source[start:self.Cursor]
	self.Lexeme.Quoted = false
	if isAllDigits(self.Lexeme.Text) {
		return self.err("numeric literal is not allowed here")
	}
	self.Token = TkId
	return TkId
}

// `quoted identifier`, the content is taken verbatim and may contain any
// character but the backquote itself
func (self *Lexer) lexQuotedId() int {
	self.TokenStart = self.Cursor
	self.Cursor++
	buf := &bytes.Buffer{}

	for {
		r, sz := self.nextRune()
		if r == utf8.RuneError {
			if sz == 0 {
				return self.err("quoted identifier is not closed by '`' properly")
			}
			return self.errUtf8()
		}
		self.Cursor += sz
		if r == '`' {
			break
		}
		buf.WriteRune(r)
	}

	if buf.Len() == 0 {
		return self.err("empty quoted identifier")
	}

	self.Lexeme.Text = buf.String()
	self.Lexeme.Quoted = true
	self.Token = TkId
	return TkId
}

func (self *Lexer) lexKeywordOrId(c rune) int {
	if yes, tk := self.tryKeyword(c); yes {
		self.Lexeme.Text = self.Source[self.TokenStart:self.Cursor]
		return tk
	}
	return self.lexId(c)
}

func (self *Lexer) Next() int {
	if self.Token == TkEof || self.Token == TkError && self.Cursor > 0 {
		return self.Token
	}
	return self.next()
}

func (self *Lexer) next() int {
	for {
		c, sz := self.nextRune()
		if c == utf8.RuneError {
			if sz == 0 {
				return self.eof()
			}
			return self.errUtf8()
		}

		switch c {
		case ',':
			return self.yield(TkComma, 1)
		case ';':
			return self.yield(TkSemicolon, 1)
		case '.':
			return self.yield(TkDot, 1)
		case '*':
			return self.yield(TkMul, 1)

		case '-':
			if self.nextRune2() != '-' {
				return self.err("unexpected character '-'")
			}
			self.Cursor += 2
			if !self.lexLineComment() {
				return self.Token
			}

		case '/':
			switch self.nextRune2() {
			case '/':
				self.Cursor += 2
				if !self.lexLineComment() {
					return self.Token
				}
			case '*':
				self.Cursor += 2
				if !self.lexBlockComment() {
					return self.Token
				}
			default:
				return self.err("unexpected character '/'")
			}

		case '#':
			self.Cursor++
			if !self.lexLineComment() {
				return self.Token
			}

		case ' ', '\r', '\t', '\n', '\b', '\v':
			self.Cursor++

		case '`':
			return self.lexQuotedId()

		default:
			return self.lexKeywordOrId(c)
		}
	}
}

func newLexer(source string) *Lexer {
	return &Lexer{
		Source: source,
		Cursor: 0,
		Token:  TkError,
	}
}
