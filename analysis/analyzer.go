package analysis

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/GoGoWen/impala/catalog"
	"github.com/GoGoWen/impala/sql"
	"github.com/google/uuid"
)

// Scope is everything a column reference needs from its surroundings while
// being analyzed.
type Scope interface {
	// ResolvePathWithMasking resolves a raw path against the registered table
	// references and checks it against the column masking policy.
	ResolvePathWithMasking(rawPath []string, pathType PathType) (*Path, error)

	// RegisterSlotRef returns the slot of a resolved path, creating it the
	// first time the destination of the path is seen.
	RegisterSlotRef(path *Path) *SlotDescriptor

	// RegisterScalarColumnForMasking records a scalar table column reference
	// that may need masking.
	RegisterScalarColumnForMasking(desc *SlotDescriptor)

	DescTbl() *DescriptorTable
	Config() Config
}

// a table in the FROM clause
type tableRef struct {
	tuple   TupleId
	table   *catalog.Table
	aliases []string // lower case, either the explicit alias or tbl and db.tbl
}

// Analyzer is the scope of a single select statement. It owns the descriptor
// table of the compilation and is not safe for concurrent use.
type Analyzer struct {
	catalog *catalog.Catalog
	config  Config
	descTbl *DescriptorTable
	policy  MaskingPolicy
	logger  *slog.Logger
	queryId string

	tableRefs   []*tableRef
	aliases     map[string]*tableRef
	slotPathMap map[string]SlotId
	masked      map[SlotId]MaskedSlot
}

func NewAnalyzer(cat *catalog.Catalog, cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	queryId := uuid.NewString()
	logger = logger.With("query_id", queryId)

	return &Analyzer{
		catalog:     cat,
		config:      cfg,
		descTbl:     NewDescriptorTable(logger),
		policy:      TableMaskPolicy{},
		logger:      logger,
		queryId:     queryId,
		aliases:     make(map[string]*tableRef),
		slotPathMap: make(map[string]SlotId),
		masked:      make(map[SlotId]MaskedSlot),
	}
}

func (self *Analyzer) DescTbl() *DescriptorTable { return self.descTbl }
func (self *Analyzer) Config() Config            { return self.config }
func (self *Analyzer) QueryId() string           { return self.queryId }
func (self *Analyzer) Logger() *slog.Logger      { return self.logger }

// SetMaskingPolicy replaces the masking policy, nil disables masking
func (self *Analyzer) SetMaskingPolicy(p MaskingPolicy) { self.policy = p }

func (self *Analyzer) maskingEnabled() bool {
	return self.config.EnableColumnMasking && self.policy != nil
}

// RegisterTableRef adds a [db.]table reference to the scope and creates the
// tuple of its rows.
func (self *Analyzer) RegisterTableRef(path []string, alias string) (*TupleDescriptor, error) {
	var db, name string
	switch len(path) {
	case 1:
		name = path[0]
	case 2:
		db, name = path[0], path[1]
	default:
		return nil, errResolution("Invalid table reference: '%s'", sql.PathSql(path))
	}

	table, err := self.catalog.GetTable(db, name)
	if err != nil {
		return nil, errResolution("%s", err)
	}
	if !table.IsLoaded() {
		return nil, errResolution("Failed to load metadata for table: '%s': %s",
			table.FullName(), table.LoadError)
	}

	ref := &tableRef{table: table}
	if alias != "" {
		ref.aliases = []string{strings.ToLower(alias)}
	} else {
		ref.aliases = []string{table.Name, table.FullName()}
	}
	for _, a := range ref.aliases {
		if _, ok := self.aliases[a]; ok {
			return nil, errResolution("Duplicate table alias: '%s'", a)
		}
	}

	tuple := self.descTbl.CreateTupleDescriptor(table.FullName())
	tuple.SetTable(table)
	tuple.SetType(table.StructType())
	if alias != "" {
		tuple.SetAlias(ref.aliases[0])
	} else {
		tuple.SetAlias(table.FullName())
	}
	root := NewPath(tuple.Id(), table, tuple.Type(), nil, 0)
	if err := root.Resolve(); err != nil {
		internalf("table-root-path", "resolving root path of %s: %s", table.FullName(), err)
	}
	tuple.SetPath(root)

	ref.tuple = tuple.Id()
	for _, a := range ref.aliases {
		self.aliases[a] = ref
	}
	self.tableRefs = append(self.tableRefs, ref)

	self.logger.Debug("table registered",
		"table", table.FullName(), "alias", tuple.Alias(), "tuple_id", tuple.Id())
	return tuple, nil
}

// TableTuples returns the tuples of the registered tables in FROM order
func (self *Analyzer) TableTuples() []TupleId {
	out := []TupleId{}
	for _, ref := range self.tableRefs {
		out = append(out, ref.tuple)
	}
	return out
}

// Every table reference is tried as the root of the path, both unqualified and
// qualified by each of its aliases. A candidate that consumes more leading
// segments as table alias takes precedence, two candidates of the same kind
// make the path ambiguous.
func (self *Analyzer) resolvePath(rawPath []string, pathType PathType) (*Path, error) {
	var best *Path
	ambiguous := false
	var deepest *Path
	var deepestErr error

	for _, ref := range self.tableRefs {
		skips := []int{0}
		for _, a := range ref.aliases {
			n := strings.Count(a, ".") + 1
			if n <= len(rawPath) && strings.EqualFold(strings.Join(rawPath[:n], "."), a) {
				skips = append(skips, n)
			}
		}

		for _, skip := range skips {
			if pathType == PathTypeSlotRef && skip == len(rawPath) {
				continue
			}
			if !ref.table.IsLoaded() {
				return nil, fmt.Errorf("%w: %s", ErrTableLoading, ref.table.FullName())
			}

			tuple := self.descTbl.Tuple(ref.tuple)
			p := NewPath(ref.tuple, ref.table, tuple.Type(), rawPath, skip)
			if err := p.Resolve(); err != nil {
				if p.failedAt > 0 && (deepest == nil || p.skip+p.failedAt > deepest.skip+deepest.failedAt) {
					deepest = p
					deepestErr = err
				}
				continue
			}

			switch {
			case best == nil || skip > best.Skip():
				best = p
				ambiguous = false
			case skip == best.Skip():
				ambiguous = true
			}
		}
	}

	if best == nil {
		if deepestErr != nil {
			return nil, deepestErr
		}
		if pathType == PathTypeStar {
			return nil, errResolution("Could not resolve star expression: '%s.*'", sql.PathSql(rawPath))
		}
		return nil, errResolution("Could not resolve column/field reference: '%s'", sql.PathSql(rawPath))
	}
	if ambiguous {
		if pathType == PathTypeStar {
			return nil, errResolution("Star expression is ambiguous: '%s.*'", sql.PathSql(rawPath))
		}
		return nil, errResolution("Column/field reference is ambiguous: '%s'", sql.PathSql(rawPath))
	}
	return best, nil
}

func (self *Analyzer) ResolvePathWithMasking(rawPath []string, pathType PathType) (*Path, error) {
	assertf(len(rawPath) > 0, "raw-path", "resolving an empty path")

	path, err := self.resolvePath(rawPath, pathType)
	if err != nil {
		return nil, err
	}
	if self.maskingEnabled() {
		if err := self.policy.CheckPath(path, pathType); err != nil {
			return nil, err
		}
	}
	return path, nil
}

func (self *Analyzer) RegisterSlotRef(path *Path) *SlotDescriptor {
	key := path.Key()
	if id, ok := self.slotPathMap[key]; ok {
		self.logger.Debug("slot reused", "path", path.String(), "slot_id", id)
		return self.descTbl.Slot(id)
	}

	desc := self.descTbl.AddSlotDescriptor(path.RootTuple())
	desc.SetPath(path)
	desc.SetType(path.DestType())
	desc.SetLabel(path.Label())
	if col := path.DestColumn(); col != nil {
		desc.SetNullable(col.Nullable)
		desc.SetStats(col.Stats)
	}
	self.slotPathMap[key] = desc.Id()

	self.logger.Debug("slot registered",
		"path", path.String(), "slot_id", desc.Id(), "tuple_id", desc.Parent())
	return desc
}

func (self *Analyzer) RegisterScalarColumnForMasking(desc *SlotDescriptor) {
	if !self.maskingEnabled() {
		return
	}
	path := desc.Path()
	if path == nil {
		return
	}
	col := path.FirstColumn()
	if col == nil {
		return
	}
	expr, ok := self.policy.MaskExpr(path.RootTable(), col.Name)
	if !ok {
		return
	}
	if _, ok := self.masked[desc.Id()]; ok {
		return
	}
	self.masked[desc.Id()] = MaskedSlot{
		SlotId: desc.Id(),
		Table:  path.RootTable().FullName(),
		Column: col.Name,
		Expr:   expr,
	}
	self.logger.Debug("masked column registered",
		"table", path.RootTable().FullName(), "column", col.Name, "slot_id", desc.Id())
}

// MaskedSlots returns the registered masked columns ordered by slot id
func (self *Analyzer) MaskedSlots() []MaskedSlot {
	out := make([]MaskedSlot, 0, len(self.masked))
	for _, m := range self.masked {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotId < out[j].SlotId })
	return out
}

func (self *Analyzer) starExpandable(ty catalog.Type) bool {
	switch {
	case ty.IsCollection():
		return false
	case ty.IsStruct():
		return self.config.ExpandComplexTypes
	default:
		return true
	}
}

// ExpandStar returns the raw paths a star expands to. An empty qualifier is a
// bare '*' over every table, otherwise the qualifier names a table or a struct.
func (self *Analyzer) ExpandStar(qualifier []string) ([][]string, error) {
	out := [][]string{}

	if len(qualifier) == 0 {
		if len(self.tableRefs) == 0 {
			return nil, errResolution("'*' expression in select list requires FROM clause.")
		}
		for _, ref := range self.tableRefs {
			prefix := strings.Split(ref.aliases[0], ".")
			for _, col := range ref.table.Columns {
				if self.starExpandable(col.Type) {
					out = append(out, appendPath(prefix, col.Name))
				}
			}
		}
		return out, nil
	}

	path, err := self.ResolvePathWithMasking(qualifier, PathTypeStar)
	if err != nil {
		return nil, err
	}
	st, ok := path.DestType().(*catalog.StructType)
	if !ok {
		return nil, errResolution(
			"Cannot expand star in '%s.*' because path '%s' resolved to type %s. "+
				"Star expansion is only valid for paths to a struct type.",
			sql.PathSql(qualifier), sql.PathSql(qualifier), path.DestType().ToSql())
	}
	for _, f := range st.Fields {
		if self.starExpandable(f.Type) {
			out = append(out, appendPath(qualifier, f.Name))
		}
	}
	return out, nil
}

func appendPath(prefix []string, name string) []string {
	return append(append([]string{}, prefix...), name)
}
