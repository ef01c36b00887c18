package analysis

import (
	"log/slog"
	"sort"

	"github.com/GoGoWen/impala/catalog"
)

type SlotId int
type TupleId int

const (
	InvalidSlotId  = SlotId(-1)
	InvalidTupleId = TupleId(-1)
)

// SlotDescriptor describes a single column/field of a tuple. It is owned by
// the DescriptorTable, other objects refer to it by SlotId.
type SlotDescriptor struct {
	id        SlotId
	parent    TupleId
	itemTuple TupleId // struct slots only, the tuple holding the fields

	ty           catalog.Type
	label        string
	path         *Path // nil for slots that do not come from a path
	nullable     bool
	materialized bool
	stats        catalog.ColumnStats

	// memory layout, valid once the parent's layout is computed
	byteOffset        int
	nullIndicatorByte int
	nullIndicatorBit  int
}

func (self *SlotDescriptor) Id() SlotId                   { return self.id }
func (self *SlotDescriptor) Parent() TupleId              { return self.parent }
func (self *SlotDescriptor) ItemTuple() TupleId           { return self.itemTuple }
func (self *SlotDescriptor) HasItemTuple() bool           { return self.itemTuple != InvalidTupleId }
func (self *SlotDescriptor) Type() catalog.Type           { return self.ty }
func (self *SlotDescriptor) Label() string                { return self.label }
func (self *SlotDescriptor) Path() *Path                  { return self.path }
func (self *SlotDescriptor) IsNullable() bool             { return self.nullable }
func (self *SlotDescriptor) IsMaterialized() bool         { return self.materialized }
func (self *SlotDescriptor) Stats() catalog.ColumnStats   { return self.stats }
func (self *SlotDescriptor) ByteOffset() int              { return self.byteOffset }
func (self *SlotDescriptor) NullIndicator() (int, int)    { return self.nullIndicatorByte, self.nullIndicatorBit }
func (self *SlotDescriptor) SetType(ty catalog.Type)      { self.ty = ty }
func (self *SlotDescriptor) SetLabel(l string)            { self.label = l }
func (self *SlotDescriptor) SetPath(p *Path)              { self.path = p }
func (self *SlotDescriptor) SetNullable(n bool)           { self.nullable = n }
func (self *SlotDescriptor) SetIsMaterialized(m bool)     { self.materialized = m }

func (self *SlotDescriptor) SetStats(s catalog.ColumnStats) { self.stats = s }

// IsScanSlot is true for slots that are read out of a table
func (self *SlotDescriptor) IsScanSlot() bool {
	return self.path != nil && self.path.IsRootedAtTable()
}

// TupleDescriptor is a group of slots that are laid out together in memory,
// ie a table row or the fields of a struct.
type TupleDescriptor struct {
	id         TupleId
	debugName  string
	slots      []SlotId
	ty         *catalog.StructType
	parentSlot SlotId // struct child tuples only
	path       *Path
	table      *catalog.Table
	alias      string

	materialized bool
	layoutDone   bool
	byteSize     int
	numNullBytes int
}

func (self *TupleDescriptor) Id() TupleId                    { return self.id }
func (self *TupleDescriptor) DebugName() string              { return self.debugName }
func (self *TupleDescriptor) Slots() []SlotId                { return self.slots }
func (self *TupleDescriptor) Type() *catalog.StructType      { return self.ty }
func (self *TupleDescriptor) ParentSlot() SlotId             { return self.parentSlot }
func (self *TupleDescriptor) HasParentSlot() bool            { return self.parentSlot != InvalidSlotId }
func (self *TupleDescriptor) Path() *Path                    { return self.path }
func (self *TupleDescriptor) Table() *catalog.Table          { return self.table }
func (self *TupleDescriptor) Alias() string                  { return self.alias }
func (self *TupleDescriptor) IsMaterialized() bool           { return self.materialized }
func (self *TupleDescriptor) ByteSize() int                  { return self.byteSize }
func (self *TupleDescriptor) NumNullBytes() int              { return self.numNullBytes }
func (self *TupleDescriptor) SetType(ty *catalog.StructType) { self.ty = ty }
func (self *TupleDescriptor) SetPath(p *Path)                { self.path = p }
func (self *TupleDescriptor) SetTable(t *catalog.Table)      { self.table = t }
func (self *TupleDescriptor) SetAlias(a string)              { self.alias = a }
func (self *TupleDescriptor) SetIsMaterialized(m bool)       { self.materialized = m }

// IsExecutable reports whether the backend can use the tuple, ie it is
// materialized and its memory layout has been computed.
func (self *TupleDescriptor) IsExecutable() bool {
	return self.materialized && self.layoutDone
}

// DescriptorTable is the arena of every slot and tuple descriptor created for
// a single compilation. Ids are assigned sequentially from 0 and never reused.
type DescriptorTable struct {
	slots  []*SlotDescriptor
	tuples []*TupleDescriptor
	logger *slog.Logger
}

func NewDescriptorTable(logger *slog.Logger) *DescriptorTable {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DescriptorTable{
		logger: logger,
	}
}

func (self *DescriptorTable) CreateTupleDescriptor(name string) *TupleDescriptor {
	t := &TupleDescriptor{
		id:         TupleId(len(self.tuples)),
		debugName:  name,
		parentSlot: InvalidSlotId,
	}
	self.tuples = append(self.tuples, t)
	return t
}

// AddSlotDescriptor creates a new slot and appends it to the tuple's members
func (self *DescriptorTable) AddSlotDescriptor(tupleId TupleId) *SlotDescriptor {
	t := self.Tuple(tupleId)
	s := &SlotDescriptor{
		id:                SlotId(len(self.slots)),
		parent:            tupleId,
		itemTuple:         InvalidTupleId,
		ty:                catalog.InvalidType,
		nullable:          true,
		stats:             catalog.UnknownStats,
		nullIndicatorByte: -1,
		nullIndicatorBit:  -1,
	}
	self.slots = append(self.slots, s)
	t.slots = append(t.slots, s.id)
	return s
}

// LinkItemTuple links a struct slot and the tuple holding its fields in both
// directions. A slot gets its item tuple at most once, and a tuple belongs to
// at most one slot.
func (self *DescriptorTable) LinkItemTuple(slotId SlotId, tupleId TupleId) {
	s := self.Slot(slotId)
	t := self.Tuple(tupleId)
	assertf(!s.HasItemTuple(), "item-tuple-once",
		"slot %d already has item tuple %d", slotId, s.itemTuple)
	assertf(!t.HasParentSlot(), "parent-slot-once",
		"tuple %d already has parent slot %d", tupleId, t.parentSlot)
	assertf(s.ty.IsStruct(), "item-tuple-struct",
		"slot %d of type %s cannot have an item tuple", slotId, s.ty.ToSql())
	s.itemTuple = tupleId
	t.parentSlot = slotId
}

func (self *DescriptorTable) Slot(id SlotId) *SlotDescriptor {
	assertf(id >= 0 && int(id) < len(self.slots), "slot-id", "unknown slot id %d", id)
	return self.slots[id]
}

func (self *DescriptorTable) Tuple(id TupleId) *TupleDescriptor {
	assertf(id >= 0 && int(id) < len(self.tuples), "tuple-id", "unknown tuple id %d", id)
	return self.tuples[id]
}

func (self *DescriptorTable) NumSlots() int  { return len(self.slots) }
func (self *DescriptorTable) NumTuples() int { return len(self.tuples) }

// CreateStructTuplesAndSlots creates the item tuple of a struct slot with one
// materialized slot per field, in field order. The path is the resolved path
// of the struct slot, nil for slots that do not come from a path, ie a sort
// tuple.
func (self *DescriptorTable) CreateStructTuplesAndSlots(slotId SlotId, path *Path) *TupleDescriptor {
	s := self.Slot(slotId)
	st, ok := s.ty.(*catalog.StructType)
	assertf(ok, "struct-slot", "slot %d of type %s is not a struct", slotId, s.ty.ToSql())

	t := self.CreateTupleDescriptor("struct_tuple")
	t.path = path
	t.ty = st
	self.LinkItemTuple(slotId, t.id)

	for _, f := range st.Fields {
		fs := self.AddSlotDescriptor(t.id)
		if path != nil {
			fs.path = ExtendPath(path, f.Name)
		}
		fs.ty = f.Type
		fs.label = f.Name
		fs.materialized = true
	}

	self.logger.Debug("struct tuple created",
		"slot_id", slotId, "tuple_id", t.id, "fields", len(st.Fields))
	return t
}

// MarkMaterialized marks the slot, its tuple and, for struct fields, every
// enclosing struct slot as materialized.
func (self *DescriptorTable) MarkMaterialized(slotId SlotId) {
	for {
		s := self.Slot(slotId)
		s.materialized = true
		t := self.Tuple(s.parent)
		t.materialized = true
		if !t.HasParentSlot() {
			return
		}
		slotId = t.parentSlot
	}
}

// ComputeMemLayout assigns byte offsets to the materialized slots of a tuple.
// The null indicator bytes come first, one bit per nullable slot, then slots
// in descending size order. Struct slots take no space, their fields live in
// the item tuple.
func (self *DescriptorTable) ComputeMemLayout(tupleId TupleId) {
	t := self.Tuple(tupleId)

	slots := []*SlotDescriptor{}
	for _, id := range t.slots {
		if s := self.slots[id]; s.materialized {
			slots = append(slots, s)
		}
	}

	numNullable := 0
	for _, s := range slots {
		if s.nullable {
			s.nullIndicatorByte = numNullable / 8
			s.nullIndicatorBit = numNullable % 8
			numNullable++
		} else {
			s.nullIndicatorByte = -1
			s.nullIndicatorBit = -1
		}
	}
	t.numNullBytes = (numNullable + 7) / 8

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].ty.SlotSize() > slots[j].ty.SlotSize()
	})

	offset := t.numNullBytes
	for _, s := range slots {
		s.byteOffset = offset
		offset += s.ty.SlotSize()
	}
	t.byteSize = offset
	t.layoutDone = true
}

// ComputeMemLayouts computes the layout of every materialized tuple
func (self *DescriptorTable) ComputeMemLayouts() {
	for _, t := range self.tuples {
		if t.materialized {
			self.ComputeMemLayout(t.id)
		}
	}
}

// CheckIsExecutable panics when the tuple cannot be handed to the backend
func (self *DescriptorTable) CheckIsExecutable(tupleId TupleId) {
	t := self.Tuple(tupleId)
	assertf(t.materialized, "tuple-executable",
		"tuple %d (%s) is not materialized", t.id, t.debugName)
	assertf(t.layoutDone, "tuple-executable",
		"memory layout of tuple %d (%s) is not computed", t.id, t.debugName)
}
