package analysis

import (
	"log/slog"
	"strings"

	"github.com/GoGoWen/impala/catalog"
	"github.com/GoGoWen/impala/sql"
)

// Compilation is the analyzed form of a select statement, ready to be handed
// to the backend.
type Compilation struct {
	Query   string
	QueryId string

	ScanTuples   []TupleId
	SelectExprs  []*SlotRef
	ColumnLabels []string

	// ORDER BY expressions over the scanned tuples and their counterpart over
	// the sort tuple, in the same order
	OrderByExprs []*SlotRef
	IsAscOrder   []bool
	SortExprs    []*SlotRef
	SortTuple    TupleId

	SelectWire []WireExpr
	SortWire   []WireExpr

	DescTbl     *DescriptorTable
	Wire        WireDescriptorTable
	MaskedSlots []MaskedSlot
}

type selectItem struct {
	ref   *SlotRef
	label string
	alias string
}

// Compile parses and analyzes a single select statement against the catalog
func Compile(query string, cat *catalog.Catalog, cfg Config, logger *slog.Logger) (*Compilation, error) {
	code, err := sql.Parse(query)
	if err != nil {
		return nil, &CompileError{Query: query, Err: err}
	}

	a := NewAnalyzer(cat, cfg, logger)
	c, err := a.compileSelect(code.Select)
	if err != nil {
		a.logger.Debug("query rejected", "error", err)
		return nil, &CompileError{Query: query, Err: err}
	}
	c.Query = query

	a.logger.Debug("query compiled",
		"select_exprs", len(c.SelectExprs),
		"order_by_exprs", len(c.OrderByExprs),
		"slots", a.descTbl.NumSlots(),
		"tuples", a.descTbl.NumTuples())
	return c, nil
}

func (self *Analyzer) compileSelect(s *sql.Select) (*Compilation, error) {
	for _, fv := range s.From.VarList {
		if _, err := self.RegisterTableRef(fv.Path, fv.Alias); err != nil {
			return nil, err
		}
	}

	items, err := self.analyzeProjection(s.Projection)
	if err != nil {
		return nil, err
	}

	c := &Compilation{
		QueryId:    self.queryId,
		ScanTuples: self.TableTuples(),
		SortTuple:  InvalidTupleId,
		DescTbl:    self.descTbl,
	}
	for _, it := range items {
		assertf(it.ref.IsBoundByTupleIds(c.ScanTuples), "select-bound",
			"select item %s is not bound by the scanned tuples", it.ref)
		c.SelectExprs = append(c.SelectExprs, it.ref)
		c.ColumnLabels = append(c.ColumnLabels, it.label)
	}

	if s.OrderBy != nil {
		if err := self.analyzeOrderBy(s.OrderBy, items, c); err != nil {
			return nil, err
		}
		if err := self.createSortTuple(c); err != nil {
			return nil, err
		}
	}

	self.materialize(c)
	self.descTbl.ComputeMemLayouts()

	for _, list := range [][]*SlotRef{c.SelectExprs, c.OrderByExprs, c.SortExprs} {
		for _, ref := range list {
			ref.Finalize(self.descTbl)
		}
	}
	for _, ref := range c.SelectExprs {
		c.SelectWire = append(c.SelectWire, ref.TreeToWire(self.descTbl))
	}
	for _, ref := range c.SortExprs {
		c.SortWire = append(c.SortWire, ref.TreeToWire(self.descTbl))
	}
	c.Wire = self.descTbl.ToWire()
	c.MaskedSlots = self.MaskedSlots()
	return c, nil
}

func (self *Analyzer) analyzeProjection(p *sql.Projection) ([]selectItem, error) {
	out := []selectItem{}
	for _, v := range p.ValueList {
		switch item := v.(type) {
		case *sql.Star:
			paths, err := self.ExpandStar(item.Qualifier)
			if err != nil {
				return nil, err
			}
			for _, path := range paths {
				ref := NewSlotRef(path)
				if err := ref.Analyze(self); err != nil {
					return nil, err
				}
				out = append(out, selectItem{
					ref:   ref,
					label: strings.ToLower(path[len(path)-1]),
				})
			}

		case *sql.Col:
			ref := NewSlotRef(item.Path)
			if err := ref.Analyze(self); err != nil {
				return nil, err
			}
			it := selectItem{ref: ref, label: strings.ToLower(ref.ToSql())}
			if item.As != "" {
				it.alias = strings.ToLower(item.As)
				it.label = it.alias
			}
			out = append(out, it)

		default:
			internalf("select-item", "unknown select item %T", v)
		}
	}
	return out, nil
}

// ORDER BY items naming an output alias refer to the aliased select item,
// anything else is a column/field path.
func (self *Analyzer) analyzeOrderBy(o *sql.OrderBy, items []selectItem, c *Compilation) error {
	aliasMap := NewExprSubstitutionMap()
	ambiguous := map[string]bool{}
	for _, it := range items {
		if it.alias == "" {
			continue
		}
		key := NewAliasSlotRef(it.alias)
		if prev, ok := aliasMap.Get(key); ok && !prev.LocalEquals(it.ref) {
			ambiguous[it.alias] = true
		}
		aliasMap.Put(key, it.ref)
	}

	for _, ov := range o.VarList {
		ref := NewSlotRef(ov.Path)
		if len(ov.Path) == 1 && ambiguous[strings.ToLower(ov.Path[0])] {
			return errResolution("Column '%s' in ORDER BY clause is ambiguous", ref.ToSql())
		}
		if sub, ok := aliasMap.Substitute(ref).(*SlotRef); ok && sub != ref {
			ref = sub
		} else if err := ref.Analyze(self); err != nil {
			return err
		}
		c.OrderByExprs = append(c.OrderByExprs, ref)
		c.IsAscOrder = append(c.IsAscOrder, ov.Order == sql.OrderAsc)
	}
	return nil
}

// createSortTuple materializes the ORDER BY expressions into a tuple of their
// own. The sort slots do not come from a path, struct sort slots get their
// item tuple from analyzing the sort expression.
func (self *Analyzer) createSortTuple(c *Compilation) error {
	tbl := self.descTbl
	tuple := tbl.CreateTupleDescriptor("sort_tuple")
	tuple.SetIsMaterialized(true)

	for _, ref := range c.OrderByExprs {
		src := ref.Desc(tbl)
		slot := tbl.AddSlotDescriptor(tuple.Id())
		slot.SetType(src.Type())
		slot.SetLabel(src.Label())
		slot.SetStats(src.Stats())
		slot.SetNullable(src.IsNullable())
		slot.SetIsMaterialized(true)

		sortRef := NewSlotRefFromDesc(tbl, slot)
		if sortRef.Type().IsStruct() {
			if err := sortRef.Analyze(self); err != nil {
				return err
			}
		}
		c.SortExprs = append(c.SortExprs, sortRef)
	}
	c.SortTuple = tuple.Id()

	self.logger.Debug("sort tuple created",
		"tuple_id", tuple.Id(), "slots", len(tuple.Slots()))
	return nil
}

func (self *Analyzer) materialize(c *Compilation) {
	visit := func(e Expr) bool {
		if ref, ok := e.(*SlotRef); ok {
			self.descTbl.MarkMaterialized(ref.SlotId())
		}
		return true
	}
	for _, list := range [][]*SlotRef{c.SelectExprs, c.OrderByExprs, c.SortExprs} {
		for _, ref := range list {
			Walk(ref, visit)
		}
	}
}
