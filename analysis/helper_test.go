package analysis

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/GoGoWen/impala/catalog"
	"github.com/stretchr/testify/require"
)

func testColumn(name string, ty catalog.Type) *catalog.Column {
	return catalog.NewColumn(name, ty)
}

func testStatsColumn(name string, ty catalog.Type, nullable bool, ndv, nulls int64) *catalog.Column {
	c := catalog.NewColumn(name, ty)
	c.Nullable = nullable
	c.Stats = catalog.ColumnStats{NumDistinctValues: ndv, NumNulls: nulls}
	return c
}

func testTable(
	db, name string,
	kind catalog.TableKind,
	formats []catalog.FileFormat,
	columns ...*catalog.Column,
) *catalog.Table {
	t := catalog.NewTable(db, name, columns...)
	t.Kind = kind
	t.FileFormats = formats
	return t
}

var orcOnly = []catalog.FileFormat{catalog.FormatORC}

// the catalog every test in this package runs against
func newTestCatalog() *catalog.Catalog {
	cat := catalog.New()

	nested := catalog.NewStruct(catalog.Field("x", catalog.Int))
	orc := testTable("default", "orc_t", catalog.TableFS, orcOnly,
		testStatsColumn("id", catalog.BigInt, false, 500, 0),
		testStatsColumn("name", catalog.String, true, 0, -1),
		testColumn("s", catalog.NewStruct(
			catalog.Field("a", catalog.Int),
			catalog.Field("b", catalog.String),
			catalog.Field("nested", nested),
		)),
		testColumn("arr", catalog.NewArray(catalog.Int)),
		testColumn("m", catalog.NewMap(catalog.String, catalog.Int)),
		testColumn("bad", catalog.InvalidType),
		testColumn("bin", catalog.Binary),
		testColumn("cs", catalog.NewStruct(catalog.Field("l", catalog.NewArray(catalog.Int)))),
		testColumn("us", catalog.NewStruct(catalog.Field("d", catalog.DateTime))),
	)
	orc.NumRows = 100

	parquet := testTable("default", "parquet_t", catalog.TableFS,
		[]catalog.FileFormat{catalog.FormatParquet},
		testColumn("id", catalog.Int),
		testColumn("s", catalog.NewStruct(catalog.Field("a", catalog.Int))),
	)

	kudu := testTable("default", "kudu_t", catalog.TableKudu, nil,
		testColumn("s", catalog.NewStruct(catalog.Field("a", catalog.Int))),
	)

	mixed := testTable("default", "mixed_t", catalog.TableFS,
		[]catalog.FileFormat{catalog.FormatORC, catalog.FormatParquet},
		testColumn("s", catalog.NewStruct(catalog.Field("a", catalog.Int))),
	)

	// column t collides with the usual alias of the table
	collide := testTable("default", "collide_t", catalog.TableFS, orcOnly,
		testColumn("t", catalog.NewStruct(catalog.Field("id", catalog.Int))),
		testColumn("id", catalog.BigInt),
	)

	orders := testTable("shop", "orders", catalog.TableFS, orcOnly,
		testColumn("id", catalog.BigInt),
		testColumn("card", catalog.String),
		testColumn("customer", catalog.NewStruct(catalog.Field("name", catalog.String))),
	)
	orders.Masks["card"] = "'****'"
	orders.Masks["customer"] = "NULL"

	broken := testTable("default", "broken", catalog.TableFS, orcOnly,
		testColumn("id", catalog.Int),
	)
	broken.LoadError = "corrupt metadata"

	for _, t := range []*catalog.Table{orc, parquet, kudu, mixed, collide, orders, broken} {
		if err := cat.AddTable(t); err != nil {
			panic(err)
		}
	}
	return cat
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestAnalyzerWithConfig(t *testing.T, cfg Config, tables ...string) *Analyzer {
	a := NewAnalyzer(newTestCatalog(), cfg, testLogger())
	for _, name := range tables {
		_, err := a.RegisterTableRef(strings.Split(name, "."), "")
		require.NoError(t, err)
	}
	return a
}

func newTestAnalyzer(t *testing.T, tables ...string) *Analyzer {
	return newTestAnalyzerWithConfig(t, DefaultConfig(), tables...)
}

func analyzed(t *testing.T, scope Scope, path ...string) *SlotRef {
	ref := NewSlotRef(path)
	require.NoError(t, ref.Analyze(scope))
	return ref
}

// catchInternal runs f and returns the internal error it panics with, nil if
// it does not panic.
func catchInternal(f func()) (ie *InternalError) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			ie = e
		}
	}()
	f()
	return nil
}
