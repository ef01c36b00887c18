package analysis

import (
	"github.com/GoGoWen/impala/catalog"
)

const (
	// UnknownCost is the evaluation cost of an expression that is not analyzed
	UnknownCost = float64(-1)
)

// Expr is a node of an expression tree. Column references are the only kind of
// node this package knows about, the interface is what any other node kind
// would have to provide to live in the same tree.
type Expr interface {
	// LocalEquals compares the node itself, ignoring children
	LocalEquals(Expr) bool

	// Hash is consistent with LocalEquals among nodes of the same analysis
	// state
	Hash() uint64

	Clone() Expr
	Children() []Expr

	// CollectsChildren reports whether Collect should descend into the
	// children of this node
	CollectsChildren() bool

	EvalCost() float64
	Type() catalog.Type
	ToSql() string
	IsAnalyzed() bool
}

// Collect returns every node of the tree, root included, for which pred
// returns true. A node whose CollectsChildren is false is itself considered
// but its subtree is not.
func Collect(root Expr, pred func(Expr) bool) []Expr {
	out := []Expr{}
	var walk func(Expr)
	walk = func(e Expr) {
		if pred(e) {
			out = append(out, e)
		}
		if !e.CollectsChildren() {
			return
		}
		for _, c := range e.Children() {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Walk visits every node of the tree in prefix order, regardless of
// CollectsChildren. The visitor returns false to skip the subtree.
func Walk(root Expr, visitor func(Expr) bool) {
	if !visitor(root) {
		return
	}
	for _, c := range root.Children() {
		Walk(c, visitor)
	}
}

// ExprSubstitutionMap maps expressions to expressions. Lookup uses Hash and
// LocalEquals, so an unanalyzed reference finds the entry registered for an
// equal label.
type ExprSubstitutionMap struct {
	buckets map[uint64][]int
	lhs     []Expr
	rhs     []Expr
}

func NewExprSubstitutionMap() *ExprSubstitutionMap {
	return &ExprSubstitutionMap{
		buckets: make(map[uint64][]int),
	}
}

func (self *ExprSubstitutionMap) find(e Expr) int {
	for _, idx := range self.buckets[e.Hash()] {
		if self.lhs[idx].LocalEquals(e) {
			return idx
		}
	}
	return -1
}

// Put adds or replaces a mapping
func (self *ExprSubstitutionMap) Put(lhs, rhs Expr) {
	if idx := self.find(lhs); idx >= 0 {
		self.rhs[idx] = rhs
		return
	}
	h := lhs.Hash()
	self.buckets[h] = append(self.buckets[h], len(self.lhs))
	self.lhs = append(self.lhs, lhs)
	self.rhs = append(self.rhs, rhs)
}

func (self *ExprSubstitutionMap) Get(lhs Expr) (Expr, bool) {
	if idx := self.find(lhs); idx >= 0 {
		return self.rhs[idx], true
	}
	return nil, false
}

// Substitute returns a clone of the mapped expression when e is mapped,
// otherwise e itself.
func (self *ExprSubstitutionMap) Substitute(e Expr) Expr {
	if rhs, ok := self.Get(e); ok {
		return rhs.Clone()
	}
	return e
}

func (self *ExprSubstitutionMap) Size() int { return len(self.lhs) }

func (self *ExprSubstitutionMap) Lhs() []Expr { return self.lhs }
func (self *ExprSubstitutionMap) Rhs() []Expr { return self.rhs }
