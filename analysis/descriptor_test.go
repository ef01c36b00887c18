package analysis

import (
	"encoding/json"
	"testing"

	"github.com/GoGoWen/impala/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorTableIds(t *testing.T) {
	assert := assert.New(t)
	tbl := NewDescriptorTable(testLogger())

	t0 := tbl.CreateTupleDescriptor("t0")
	t1 := tbl.CreateTupleDescriptor("t1")
	assert.Equal(TupleId(0), t0.Id())
	assert.Equal(TupleId(1), t1.Id())

	s0 := tbl.AddSlotDescriptor(t1.Id())
	s1 := tbl.AddSlotDescriptor(t0.Id())
	s2 := tbl.AddSlotDescriptor(t1.Id())
	assert.Equal(SlotId(0), s0.Id())
	assert.Equal(SlotId(1), s1.Id())
	assert.Equal(SlotId(2), s2.Id())
	assert.Equal([]SlotId{0, 2}, t1.Slots())
	assert.Equal([]SlotId{1}, t0.Slots())
	assert.Equal(3, tbl.NumSlots())
	assert.Equal(2, tbl.NumTuples())

	// fresh slots
	assert.True(s0.IsNullable())
	assert.False(s0.IsMaterialized())
	assert.False(s0.HasItemTuple())
	assert.Equal(catalog.UnknownStats, s0.Stats())
	assert.False(s0.Type().IsValid())
	assert.False(s0.IsScanSlot())

	{
		ie := catchInternal(func() { tbl.Slot(3) })
		require.NotNil(t, ie)
		assert.Equal("slot-id", ie.Invariant)
	}
	{
		ie := catchInternal(func() { tbl.Tuple(-1) })
		require.NotNil(t, ie)
		assert.Equal("tuple-id", ie.Invariant)
	}
}

func TestLinkItemTuple(t *testing.T) {
	assert := assert.New(t)
	tbl := NewDescriptorTable(testLogger())

	parent := tbl.CreateTupleDescriptor("parent")
	s := tbl.AddSlotDescriptor(parent.Id())
	s.SetType(catalog.NewStruct(catalog.Field("a", catalog.Int)))
	scalar := tbl.AddSlotDescriptor(parent.Id())
	scalar.SetType(catalog.Int)

	item := tbl.CreateStructTuplesAndSlots(s.Id(), nil)
	assert.Equal("struct_tuple", item.DebugName())
	assert.Equal(item.Id(), s.ItemTuple())
	assert.Equal(s.Id(), item.ParentSlot())
	require.Len(t, item.Slots(), 1)

	field := tbl.Slot(item.Slots()[0])
	assert.Equal("a", field.Label())
	assert.True(field.IsMaterialized())
	assert.Nil(field.Path())

	{
		other := tbl.CreateTupleDescriptor("other")
		ie := catchInternal(func() { tbl.LinkItemTuple(s.Id(), other.Id()) })
		require.NotNil(t, ie)
		assert.Equal("item-tuple-once", ie.Invariant)
	}
	{
		ie := catchInternal(func() { tbl.LinkItemTuple(scalar.Id(), item.Id()) })
		require.NotNil(t, ie)
		assert.Equal("parent-slot-once", ie.Invariant)
	}
	{
		other := tbl.CreateTupleDescriptor("other")
		ie := catchInternal(func() { tbl.LinkItemTuple(scalar.Id(), other.Id()) })
		require.NotNil(t, ie)
		assert.Equal("item-tuple-struct", ie.Invariant)
	}
	{
		ie := catchInternal(func() { tbl.CreateStructTuplesAndSlots(scalar.Id(), nil) })
		require.NotNil(t, ie)
		assert.Equal("struct-slot", ie.Invariant)
	}
}

func TestMarkMaterialized(t *testing.T) {
	assert := assert.New(t)
	tbl := NewDescriptorTable(testLogger())

	parent := tbl.CreateTupleDescriptor("parent")
	s := tbl.AddSlotDescriptor(parent.Id())
	s.SetType(catalog.NewStruct(
		catalog.Field("a", catalog.Int),
		catalog.Field("b", catalog.NewStruct(catalog.Field("c", catalog.Int))),
	))
	item := tbl.CreateStructTuplesAndSlots(s.Id(), nil)
	b := tbl.Slot(item.Slots()[1])
	nested := tbl.CreateStructTuplesAndSlots(b.Id(), nil)
	c := tbl.Slot(nested.Slots()[0])

	tbl.MarkMaterialized(c.Id())
	assert.True(nested.IsMaterialized())
	assert.True(b.IsMaterialized())
	assert.True(item.IsMaterialized())
	assert.True(s.IsMaterialized())
	assert.True(parent.IsMaterialized())

	// materialized, but no layout yet
	assert.False(parent.IsExecutable())
	ie := catchInternal(func() { tbl.CheckIsExecutable(parent.Id()) })
	require.NotNil(t, ie)
	assert.Equal("tuple-executable", ie.Invariant)

	tbl.ComputeMemLayouts()
	assert.True(parent.IsExecutable())
	assert.True(nested.IsExecutable())
	assert.Nil(catchInternal(func() { tbl.CheckIsExecutable(parent.Id()) }))
}

func TestComputeMemLayout(t *testing.T) {
	assert := assert.New(t)
	tbl := NewDescriptorTable(testLogger())
	tuple := tbl.CreateTupleDescriptor("t")

	add := func(ty catalog.Type, nullable bool) *SlotDescriptor {
		s := tbl.AddSlotDescriptor(tuple.Id())
		s.SetType(ty)
		s.SetNullable(nullable)
		s.SetIsMaterialized(true)
		return s
	}

	i := add(catalog.Int, true)
	b := add(catalog.BigInt, false)
	str := add(catalog.String, true)
	bo := add(catalog.Boolean, true)
	st := add(catalog.NewStruct(catalog.Field("a", catalog.Int)), true)
	skipped := tbl.AddSlotDescriptor(tuple.Id())
	skipped.SetType(catalog.BigInt)

	tuple.SetIsMaterialized(true)
	tbl.ComputeMemLayout(tuple.Id())

	// 4 nullable slots fit into a single null byte
	assert.Equal(1, tuple.NumNullBytes())

	// STRING(12) BIGINT(8) INT(4) BOOLEAN(1) STRUCT(0)
	assert.Equal(1, str.ByteOffset())
	assert.Equal(13, b.ByteOffset())
	assert.Equal(21, i.ByteOffset())
	assert.Equal(25, bo.ByteOffset())
	assert.Equal(26, st.ByteOffset())
	assert.Equal(26, tuple.ByteSize())

	{
		byteIdx, bit := i.NullIndicator()
		assert.Equal(0, byteIdx)
		assert.Equal(0, bit)
	}
	{
		byteIdx, bit := b.NullIndicator()
		assert.Equal(-1, byteIdx)
		assert.Equal(-1, bit)
	}
	{
		_, bit := st.NullIndicator()
		assert.Equal(3, bit)
	}
	{
		byteIdx, _ := skipped.NullIndicator()
		assert.Equal(-1, byteIdx)
	}
}

func TestComputeMemLayoutManyNullable(t *testing.T) {
	assert := assert.New(t)
	tbl := NewDescriptorTable(testLogger())
	tuple := tbl.CreateTupleDescriptor("t")
	var last *SlotDescriptor
	for i := 0; i < 9; i++ {
		last = tbl.AddSlotDescriptor(tuple.Id())
		last.SetType(catalog.TinyInt)
		last.SetIsMaterialized(true)
	}
	tbl.ComputeMemLayout(tuple.Id())

	assert.Equal(2, tuple.NumNullBytes())
	assert.Equal(11, tuple.ByteSize())
	byteIdx, bit := last.NullIndicator()
	assert.Equal(1, byteIdx)
	assert.Equal(0, bit)
}

func TestDescriptorTableToWire(t *testing.T) {
	assert := assert.New(t)
	a := newTestAnalyzer(t, "orc_t")
	tbl := a.DescTbl()

	id := analyzed(t, a, "id")
	analyzed(t, a, "name")

	tbl.MarkMaterialized(id.SlotId())
	tbl.ComputeMemLayouts()

	w := tbl.ToWire()
	require.Len(t, w.Tuples, 1)
	assert.Equal("default.orc_t", w.Tuples[0].Table)
	assert.Equal(InvalidSlotId, w.Tuples[0].ParentSlot)

	// name is not materialized
	require.Len(t, w.Slots, 1)
	assert.Equal(id.SlotId(), w.Slots[0].Id)
	assert.Equal("BIGINT", w.Slots[0].Type)
	assert.Equal([]int{0}, w.Slots[0].MaterializedPath)
	assert.Equal(InvalidTupleId, w.Slots[0].ItemTuple)
	assert.False(w.Slots[0].Nullable)
	assert.True(w.Slots[0].IsMaterialized)

	data, err := json.Marshal(w.Slots[0])
	require.NoError(t, err)
	assert.JSONEq(`{
		"id": 0,
		"parent": 0,
		"item_tuple": -1,
		"type": "BIGINT",
		"label": "id",
		"nullable": false,
		"is_materialized": true,
		"materialized_path": [0],
		"byte_offset": 0,
		"null_indicator_byte": -1,
		"null_indicator_bit": -1
	}`, string(data))

	// nullable slots say so
	tbl.MarkMaterialized(analyzed(t, a, "name").SlotId())
	tbl.ComputeMemLayouts()
	w = tbl.ToWire()
	require.Len(t, w.Slots, 2)
	assert.Equal("name", w.Slots[1].Label)
	assert.True(w.Slots[1].Nullable)
}

func TestDescriptorTablePrint(t *testing.T) {
	assert := assert.New(t)
	a := newTestAnalyzer(t, "orc_t")
	ref := analyzed(t, a, "s")
	a.DescTbl().MarkMaterialized(ref.SlotId())

	out := a.DescTbl().Print()
	assert.Contains(out, "##> Tuple Descriptor\nId: 0\nName: default.orc_t\n")
	assert.Contains(out, "Name: struct_tuple\n")
	assert.Contains(out, "ParentSlot: 0\n")
	assert.Contains(out, "##> Slot Descriptor\nId: 0\nLabel: s\n")
	assert.Contains(out, "Path: s.a\n")

	assert.Contains(a.DescTbl().Slot(0).DebugString(), "SlotDescriptor{id=0 parent=0 itemTuple=1")
	assert.Contains(a.DescTbl().Tuple(1).DebugString(), "parentSlot=0")
}
