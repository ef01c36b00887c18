package analysis

import (
	"testing"

	"github.com/GoGoWen/impala/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterTableRef(t *testing.T) {
	assert := assert.New(t)

	{
		a := NewAnalyzer(newTestCatalog(), DefaultConfig(), testLogger())
		tuple, err := a.RegisterTableRef([]string{"Shop", "Orders"}, "")
		require.NoError(t, err)
		assert.Equal("shop.orders", tuple.DebugName())
		assert.Equal("shop.orders", tuple.Alias())
		assert.Equal("shop.orders", tuple.Table().FullName())
		assert.Len(tuple.Type().Fields, 3)
		assert.NotNil(tuple.Path())

		tuple, err = a.RegisterTableRef([]string{"orc_t"}, "O")
		require.NoError(t, err)
		assert.Equal("o", tuple.Alias())
		assert.Equal([]TupleId{0, 1}, a.TableTuples())
	}
	{
		a := NewAnalyzer(newTestCatalog(), DefaultConfig(), testLogger())
		_, err := a.RegisterTableRef([]string{"nope"}, "")
		assert.True(IsKind(err, KindResolution))
		assert.Equal("could not resolve table reference: 'default.nope'", err.Error())
	}
	{
		a := NewAnalyzer(newTestCatalog(), DefaultConfig(), testLogger())
		_, err := a.RegisterTableRef([]string{"broken"}, "")
		assert.True(IsKind(err, KindResolution))
		assert.Equal("Failed to load metadata for table: 'default.broken': corrupt metadata", err.Error())
	}
	{
		a := NewAnalyzer(newTestCatalog(), DefaultConfig(), testLogger())
		_, err := a.RegisterTableRef([]string{"a", "b", "c"}, "")
		assert.Equal("Invalid table reference: 'a.b.c'", err.Error())
	}
	{
		a := NewAnalyzer(newTestCatalog(), DefaultConfig(), testLogger())
		_, err := a.RegisterTableRef([]string{"orc_t"}, "")
		require.NoError(t, err)
		_, err = a.RegisterTableRef([]string{"default", "orc_t"}, "")
		assert.Equal("Duplicate table alias: 'orc_t'", err.Error())

		// the same table under another alias is fine
		_, err = a.RegisterTableRef([]string{"orc_t"}, "x")
		require.NoError(t, err)
		_, err = a.RegisterTableRef([]string{"parquet_t"}, "X")
		assert.Equal("Duplicate table alias: 'x'", err.Error())
	}
}

func TestResolvePath(t *testing.T) {
	assert := assert.New(t)

	{
		a := newTestAnalyzer(t, "orc_t", "parquet_t")
		err := NewSlotRef([]string{"id"}).Analyze(a)
		assert.True(IsKind(err, KindResolution))
		assert.Equal("Column/field reference is ambiguous: 'id'", err.Error())

		r0 := analyzed(t, a, "orc_t", "id")
		r1 := analyzed(t, a, "default", "parquet_t", "id")
		assert.Equal(TupleId(0), r0.TupleId())
		assert.Equal(TupleId(1), r1.TupleId())
		assert.True(r1.Type().Equals(catalog.Int))

		// only orc_t has a name column
		assert.Equal(TupleId(0), analyzed(t, a, "name").TupleId())
	}
	{
		// the alias wins over a column of the same name
		a := NewAnalyzer(newTestCatalog(), DefaultConfig(), testLogger())
		_, err := a.RegisterTableRef([]string{"collide_t"}, "t")
		require.NoError(t, err)

		ref := analyzed(t, a, "t", "id")
		assert.True(ref.Type().Equals(catalog.BigInt))
		assert.Equal(1, ref.ResolvedPath().Skip())

		// a lone alias names the column
		ref = analyzed(t, a, "t")
		assert.True(ref.Type().IsStruct())
		assert.Equal(0, ref.ResolvedPath().Skip())
	}
	{
		a := newTestAnalyzer(t, "collide_t")
		ref := analyzed(t, a, "t", "id")
		assert.True(ref.Type().Equals(catalog.Int))
		assert.Equal([]int{0, 0}, ref.ResolvedPath().MatchedPositions())
	}
	{
		a := newTestAnalyzer(t, "orc_t")
		path, err := a.ResolvePathWithMasking([]string{"orc_t"}, PathTypeStar)
		require.NoError(t, err)
		assert.Equal(1, path.Skip())
		assert.Empty(path.MatchedTypes())
		assert.True(path.DestType().IsStruct())

		_, err = a.ResolvePathWithMasking([]string{"orc_t"}, PathTypeSlotRef)
		assert.Equal("Could not resolve column/field reference: 'orc_t'", err.Error())
	}
}

func TestMaskingPolicy(t *testing.T) {
	assert := assert.New(t)

	{
		a := newTestAnalyzer(t, "shop.orders")
		card := analyzed(t, a, "card")
		analyzed(t, a, "orders", "card")
		analyzed(t, a, "id")

		masked := a.MaskedSlots()
		require.Len(t, masked, 1)
		assert.Equal(MaskedSlot{
			SlotId: card.SlotId(),
			Table:  "shop.orders",
			Column: "card",
			Expr:   "'****'",
		}, masked[0])

		// neither the masked struct nor its fields can be referenced
		numSlots := a.DescTbl().NumSlots()
		customer := NewSlotRef([]string{"customer"})
		err := customer.Analyze(a)
		assert.True(IsKind(err, KindResolution))
		assert.Equal(
			"Column masking is not supported for masked column 'customer' of complex type STRUCT<name:STRING>",
			err.Error())
		assert.Equal(StateUnresolved, customer.State())
		assert.Equal(numSlots, a.DescTbl().NumSlots())

		err = NewSlotRef([]string{"orders", "customer"}).Analyze(a)
		assert.True(IsKind(err, KindResolution))

		err = NewSlotRef([]string{"customer", "name"}).Analyze(a)
		assert.True(IsKind(err, KindResolution))
		assert.Equal(
			"Column masking is not supported for nested field 'customer.name' of masked column 'customer'",
			err.Error())

		_, err = a.ExpandStar([]string{"customer"})
		assert.True(IsKind(err, KindResolution))

		// refused references register nothing
		assert.Len(a.MaskedSlots(), 1)
	}
	{
		cfg := DefaultConfig()
		cfg.EnableColumnMasking = false
		a := newTestAnalyzerWithConfig(t, cfg, "shop.orders")
		analyzed(t, a, "card")
		analyzed(t, a, "customer", "name")
		assert.Empty(a.MaskedSlots())
	}
	{
		a := newTestAnalyzer(t, "shop.orders")
		a.SetMaskingPolicy(nil)
		analyzed(t, a, "card")
		analyzed(t, a, "customer", "name")
		assert.Empty(a.MaskedSlots())
	}
}

func TestExpandStar(t *testing.T) {
	assert := assert.New(t)

	{
		a := newTestAnalyzer(t, "orc_t")
		paths, err := a.ExpandStar(nil)
		require.NoError(t, err)
		assert.Equal([][]string{
			{"orc_t", "id"},
			{"orc_t", "name"},
			{"orc_t", "bad"},
			{"orc_t", "bin"},
		}, paths)

		paths, err = a.ExpandStar([]string{"orc_t"})
		require.NoError(t, err)
		assert.Len(paths, 4)

		paths, err = a.ExpandStar([]string{"s"})
		require.NoError(t, err)
		assert.Equal([][]string{{"s", "a"}, {"s", "b"}}, paths)

		_, err = a.ExpandStar([]string{"id"})
		assert.Equal(
			"Cannot expand star in 'id.*' because path 'id' resolved to type BIGINT. "+
				"Star expansion is only valid for paths to a struct type.",
			err.Error())

		_, err = a.ExpandStar([]string{"zz"})
		assert.Equal("Could not resolve star expression: 'zz.*'", err.Error())
	}
	{
		cfg := DefaultConfig()
		cfg.ExpandComplexTypes = true
		a := newTestAnalyzerWithConfig(t, cfg, "orc_t")
		paths, err := a.ExpandStar(nil)
		require.NoError(t, err)
		assert.Len(paths, 7)

		paths, err = a.ExpandStar([]string{"orc_t", "s"})
		require.NoError(t, err)
		assert.Equal([][]string{{"orc_t", "s", "a"}, {"orc_t", "s", "b"}, {"orc_t", "s", "nested"}}, paths)
	}
	{
		a := NewAnalyzer(newTestCatalog(), DefaultConfig(), testLogger())
		_, err := a.RegisterTableRef([]string{"parquet_t"}, "p")
		require.NoError(t, err)
		paths, err := a.ExpandStar(nil)
		require.NoError(t, err)
		assert.Equal([][]string{{"p", "id"}}, paths)

		_, err = a.RegisterTableRef([]string{"orc_t"}, "")
		require.NoError(t, err)
		_, err = a.ExpandStar([]string{"s"})
		assert.Equal("Star expression is ambiguous: 's.*'", err.Error())
	}
	{
		a := NewAnalyzer(newTestCatalog(), DefaultConfig(), testLogger())
		_, err := a.ExpandStar(nil)
		assert.True(IsKind(err, KindResolution))
	}
}
