package analysis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/GoGoWen/impala/catalog"
	"github.com/GoGoWen/impala/sql"
	"github.com/cespare/xxhash/v2"
)

// SlotRefCost is the evaluation cost of an analyzed column reference
const SlotRefCost = float64(1)

type SlotRefState int

const (
	StateUnresolved = SlotRefState(iota)
	StateResolving
	StateResolved
	StateExpanded
	StateFinalized
)

func (s SlotRefState) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateExpanded:
		return "expanded"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// The binding of a SlotRef is either unresolved, ie only the raw path is known,
// or resolved to a slot of the descriptor table.
type slotBinding interface {
	isSlotBinding()
}

type unresolvedSlot struct{}

type resolvedSlot struct {
	id      SlotId
	tupleId TupleId
	ty      catalog.Type
	ndv     int64
	path    *Path // nil for slots that do not come from a path
}

func (*unresolvedSlot) isSlotBinding() {}
func (*resolvedSlot) isSlotBinding()   {}

// SlotRef is a reference to a column, or to a field nested in a column. A
// reference to a struct carries one child per field once analyzed.
type SlotRef struct {
	rawPath []string // nil for alias dummies and derived slots
	label   string

	binding   slotBinding
	resolving bool
	finalized bool
	children  []*SlotRef
}

// NewSlotRef creates an unresolved reference of a dotted path
func NewSlotRef(rawPath []string) *SlotRef {
	return &SlotRef{
		rawPath: rawPath,
		label:   sql.PathSql(rawPath),
		binding: &unresolvedSlot{},
	}
}

// NewAliasSlotRef creates a dummy reference used as the key of a select list
// alias inside of a substitution map. It is never analyzed, the label is all
// that matters.
func NewAliasSlotRef(alias string) *SlotRef {
	return &SlotRef{
		label:   sql.IdentSql(strings.ToLower(alias)),
		binding: &unresolvedSlot{},
	}
}

// NewSlotRefFromDesc creates an already analyzed reference of a slot. A struct
// slot whose item tuple exists comes with its children, one whose item tuple
// does not is expanded by Analyze.
func NewSlotRefFromDesc(tbl *DescriptorTable, desc *SlotDescriptor) *SlotRef {
	var rawPath []string
	var path *Path
	if desc.IsScanSlot() {
		path = desc.Path()
		rawPath = path.RawPath()
	}

	label := desc.Label()
	if alias := tbl.Tuple(desc.Parent()).Alias(); alias != "" {
		label = alias + "." + label
	}

	stats := desc.Stats()
	ref := &SlotRef{
		rawPath: rawPath,
		label:   label,
		binding: &resolvedSlot{
			id:      desc.Id(),
			tupleId: desc.Parent(),
			ty:      desc.Type(),
			ndv: AdjustNumDistinctValues(
				stats.NumDistinctValues,
				desc.IsNullable(),
				stats.HasNulls(),
				stats.HasNullsStats(),
			),
			path: path,
		},
	}
	if desc.HasItemTuple() {
		for _, sid := range tbl.Tuple(desc.ItemTuple()).Slots() {
			ref.children = append(ref.children, NewSlotRefFromDesc(tbl, tbl.Slot(sid)))
		}
	}
	return ref
}

func (self *SlotRef) resolved() (*resolvedSlot, bool) {
	rs, ok := self.binding.(*resolvedSlot)
	return rs, ok
}

func (self *SlotRef) mustResolved() *resolvedSlot {
	rs, ok := self.resolved()
	assertf(ok, "slot-ref-resolved", "slot ref %s is not analyzed", self.label)
	return rs
}

func (self *SlotRef) State() SlotRefState {
	if self.resolving {
		return StateResolving
	}
	rs, ok := self.resolved()
	switch {
	case !ok:
		return StateUnresolved
	case self.finalized:
		return StateFinalized
	case rs.ty.IsStruct() && len(self.children) > 0:
		return StateExpanded
	default:
		return StateResolved
	}
}

func (self *SlotRef) RawPath() []string { return self.rawPath }
func (self *SlotRef) Label() string     { return self.label }
func (self *SlotRef) IsAnalyzed() bool  { _, ok := self.resolved(); return ok }

func (self *SlotRef) SlotId() SlotId            { return self.mustResolved().id }
func (self *SlotRef) TupleId() TupleId          { return self.mustResolved().tupleId }
func (self *SlotRef) NumDistinctValues() int64 { return self.mustResolved().ndv }

// ResolvedPath is nil when the referenced slot does not come from a path
func (self *SlotRef) ResolvedPath() *Path { return self.mustResolved().path }

func (self *SlotRef) Desc(tbl *DescriptorTable) *SlotDescriptor {
	return tbl.Slot(self.mustResolved().id)
}

func (self *SlotRef) StructChildren() []*SlotRef { return self.children }

// Analyze resolves the reference against the scope. Analyzing a resolved
// reference does nothing, except that a struct reference without children is
// expanded again.
func (self *SlotRef) Analyze(scope Scope) error {
	assertf(!self.resolving, "slot-ref-reentrant",
		"slot ref %s is analyzed while being resolved", self.label)

	if rs, ok := self.resolved(); ok {
		if rs.ty.IsStruct() && len(self.children) == 0 {
			return self.expandStruct(scope, 0, self.ToSql())
		}
		return nil
	}

	assertf(self.rawPath != nil, "slot-ref-raw-path",
		"slot ref %s has no path to resolve", self.label)

	self.resolving = true
	defer func() { self.resolving = false }()

	path, err := scope.ResolvePathWithMasking(self.rawPath, PathTypeSlotRef)
	if err != nil {
		if errors.Is(err, ErrTableLoading) {
			// only registered table references are resolved against
			internalf("table-loaded", "resolving %s: %s", self.label, err)
		}
		var ae *AnalysisError
		if errors.As(err, &ae) {
			return err
		}
		return errResolution("%s", err)
	}
	assertf(path.IsResolved(), "path-resolved", "scope returned unresolved path %s", path)

	desc := scope.RegisterSlotRef(path)
	ty := desc.Type()
	if !ty.IsSupported() {
		return errAnalysis(KindUnsupportedType,
			"Unsupported type '%s' in '%s'.", ty.ToSql(), self.ToSql())
	}
	if !ty.IsValid() {
		// the metastore holds a type string that could not be parsed
		return errAnalysis(KindInvalidType, "Unsupported type in '%s'.", self.ToSql())
	}

	if mt := path.MatchedTypes(); len(mt) > 0 && !mt[0].IsComplex() {
		scope.RegisterScalarColumnForMasking(desc)
	}

	stats := desc.Stats()
	ndv := AdjustNumDistinctValues(
		stats.NumDistinctValues,
		desc.IsNullable(),
		stats.HasNulls(),
		stats.HasNullsStats(),
	)

	root := path.RootTable()
	if root != nil {
		ndv = ClampToRowCount(ndv, root.NumRows)
	}

	if ty.IsStruct() && root != nil {
		if err := checkStructTable(root, ty, scope.Config()); err != nil {
			return err
		}
	}

	self.binding = &resolvedSlot{
		id:      desc.Id(),
		tupleId: desc.Parent(),
		ty:      ty,
		ndv:     ndv,
		path:    path,
	}

	if ty.IsStruct() {
		if err := self.expandStruct(scope, 0, self.ToSql()); err != nil {
			self.binding = &unresolvedSlot{}
			self.children = nil
			return err
		}
	}
	return nil
}

func checkStructTable(table *catalog.Table, ty catalog.Type, cfg Config) error {
	if table.Kind != catalog.TableFS {
		return errAnalysis(KindStructFormat,
			"%s table is not supported when querying STRUCT type %s", table.Kind, ty.ToSql())
	}
	for _, f := range table.FileFormats {
		if f != cfg.StructFileFormat {
			return errAnalysis(KindStructFormat,
				"Querying STRUCT is only supported for %s file format.", cfg.StructFileFormat)
		}
	}
	return nil
}

// Reset drops the struct children. A reference that has a raw path goes back
// to unresolved, a derived one stays resolved and gets its children back on
// the next Analyze.
func (self *SlotRef) Reset() {
	assertf(!self.resolving, "slot-ref-reentrant",
		"slot ref %s is reset while being resolved", self.label)
	self.children = nil
	self.finalized = false
	if self.rawPath != nil {
		self.binding = &unresolvedSlot{}
	}
}

// checkSerializable panics unless the reference can be handed to the backend
func (self *SlotRef) checkSerializable(tbl *DescriptorTable) {
	rs := self.mustResolved()
	desc := tbl.Slot(rs.id)
	if !desc.IsMaterialized() {
		internalf("slot-materialized",
			"Illegal reference to non-materialized slot: tid=%d sid=%d", rs.tupleId, rs.id)
	}
	tbl.CheckIsExecutable(desc.Parent())
	if desc.HasItemTuple() {
		tbl.CheckIsExecutable(desc.ItemTuple())
	}
}

// Finalize checks the reference and its children can be serialized and moves
// them to the finalized state.
func (self *SlotRef) Finalize(tbl *DescriptorTable) {
	self.checkSerializable(tbl)
	for _, c := range self.children {
		c.Finalize(tbl)
	}
	self.finalized = true
}

// ----------------------------------------------------------------------------
// Expr

func (self *SlotRef) LocalEquals(that Expr) bool {
	other, ok := that.(*SlotRef)
	if !ok {
		return false
	}
	lhs, lok := self.resolved()
	rhs, rok := other.resolved()
	if lok && rok {
		return lhs.id == rhs.id
	}
	return strings.EqualFold(self.label, other.label)
}

func (self *SlotRef) Hash() uint64 {
	if rs, ok := self.resolved(); ok {
		return xxhash.Sum64String("slot:" + strconv.Itoa(int(rs.id)))
	}
	return xxhash.Sum64String("label:" + strings.ToLower(self.label))
}

func (self *SlotRef) Clone() Expr {
	return self.clone()
}

func (self *SlotRef) clone() *SlotRef {
	out := &SlotRef{
		rawPath:   self.rawPath,
		label:     self.label,
		finalized: self.finalized,
	}
	switch b := self.binding.(type) {
	case *resolvedSlot:
		cp := *b
		out.binding = &cp
	default:
		out.binding = &unresolvedSlot{}
	}
	for _, c := range self.children {
		out.children = append(out.children, c.clone())
	}
	return out
}

func (self *SlotRef) Children() []Expr {
	out := make([]Expr, 0, len(self.children))
	for _, c := range self.children {
		out = append(out, c)
	}
	return out
}

// CollectsChildren is false for struct references, collecting the references
// of a tree yields the struct itself but not its fields.
func (self *SlotRef) CollectsChildren() bool {
	if rs, ok := self.resolved(); ok && rs.ty.IsStruct() {
		return false
	}
	return true
}

func (self *SlotRef) EvalCost() float64 {
	if self.IsAnalyzed() {
		return SlotRefCost
	}
	return UnknownCost
}

func (self *SlotRef) Type() catalog.Type {
	if rs, ok := self.resolved(); ok {
		return rs.ty
	}
	return catalog.InvalidType
}

func (self *SlotRef) ToSql() string {
	if self.label != "" {
		return self.label
	}
	if self.rawPath != nil {
		return sql.PathSql(self.rawPath)
	}
	if rs, ok := self.resolved(); ok {
		return fmt.Sprintf("<slot %d>", rs.id)
	}
	return "<slot>"
}

// ----------------------------------------------------------------------------
// Binding queries, only valid on analyzed references

func (self *SlotRef) IsBoundByTupleIds(tids []TupleId) bool {
	rs := self.mustResolved()
	for _, tid := range tids {
		if tid == rs.tupleId {
			return true
		}
	}
	return false
}

func (self *SlotRef) IsBoundBySlotIds(sids []SlotId) bool {
	rs := self.mustResolved()
	for _, sid := range sids {
		if sid == rs.id {
			return true
		}
	}
	return false
}

// GetIds appends the tuple and slot id of the reference to the given lists,
// either of them may be nil.
func (self *SlotRef) GetIds(tids *[]TupleId, sids *[]SlotId) {
	rs := self.mustResolved()
	if tids != nil {
		*tids = append(*tids, rs.tupleId)
	}
	if sids != nil {
		*sids = append(*sids, rs.id)
	}
}

func (self *SlotRef) ReferencesTuple(tid TupleId) bool {
	return self.mustResolved().tupleId == tid
}

// ----------------------------------------------------------------------------
// Debug

func (self *SlotRef) String() string {
	if rs, ok := self.resolved(); ok {
		return fmt.Sprintf("%s (tid=%d sid=%d)", self.ToSql(), rs.tupleId, rs.id)
	}
	return fmt.Sprintf("%s (no desc set)", self.ToSql())
}

func (self *SlotRef) DebugString(tbl *DescriptorTable) string {
	b := &strings.Builder{}
	b.WriteString(fmt.Sprintf("SlotRef{label=%s state=%s", self.label, self.State()))
	if self.rawPath != nil {
		b.WriteString(fmt.Sprintf(" path=%s", sql.PathSql(self.rawPath)))
	}
	if rs, ok := self.resolved(); ok {
		b.WriteString(fmt.Sprintf(" type=%s ndv=%d slotDesc=%s",
			rs.ty.ToSql(), rs.ndv, tbl.Slot(rs.id).DebugString()))
	} else {
		b.WriteString(" slotDesc=null")
	}
	b.WriteString(fmt.Sprintf(" children=%d}", len(self.children)))
	return b.String()
}
