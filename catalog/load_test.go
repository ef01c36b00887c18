package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
tables:
  - db: shop
    name: orders
    num_rows: 1000
    file_formats: [orc]
    masks:
      card: "'****'"
    columns:
      - name: id
        type: bigint
        nullable: false
        ndv: 1000
        null_count: 0
      - name: customer
        type: struct<name:string,age:int>
      - name: card
        type: string
        ndv: 0
      - name: legacy
        type: map
  - name: events
    kind: kudu
    file_formats: [parquet]
    columns:
      - name: ts
        type: timestamp
`

func TestLoadCatalog(t *testing.T) {
	assert := assert.New(t)

	c, err := Load(strings.NewReader(testCatalog))
	require.NoError(t, err)
	assert.Equal(2, c.NumTables())

	{
		tbl, err := c.GetTable("SHOP", "Orders")
		require.NoError(t, err)
		assert.Equal("shop.orders", tbl.FullName())
		assert.Equal(TableFS, tbl.Kind)
		assert.Equal(int64(1000), tbl.NumRows)
		assert.Equal([]FileFormat{FormatORC}, tbl.FileFormats)
		assert.True(tbl.IsLoaded())

		id := tbl.Column("ID")
		require.NotNil(t, id)
		assert.False(id.Nullable)
		assert.Equal(int64(1000), id.Stats.NumDistinctValues)
		assert.False(id.Stats.HasNulls())
		assert.True(id.Stats.HasNullsStats())

		card := tbl.Column("card")
		require.NotNil(t, card)
		assert.True(card.Nullable)
		assert.Equal(int64(0), card.Stats.NumDistinctValues)
		assert.False(card.Stats.HasNullsStats())

		mask, ok := tbl.MaskExpr("CARD")
		assert.True(ok)
		assert.Equal("'****'", mask)

		assert.False(tbl.Column("legacy").Type.IsValid())
		assert.True(tbl.Column("customer").Type.IsStruct())
		assert.Equal(1, tbl.Column("customer").Position)
	}

	{
		tbl, err := c.GetTable("", "events")
		require.NoError(t, err)
		assert.Equal(TableKudu, tbl.Kind)
		assert.Nil(tbl.FileFormats)
		assert.Equal(int64(-1), tbl.NumRows)
	}

	{
		_, err := c.GetTable("shop", "nope")
		assert.NotNil(err)
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	assert := assert.New(t)
	{
		_, err := Load(strings.NewReader("tables:\n  - name: t\n    unknown: 1\n"))
		assert.NotNil(err)
	}
	{
		_, err := Load(strings.NewReader("tables:\n  - name: t\n    kind: cassandra\n"))
		assert.NotNil(err)
	}
	{
		_, err := Load(strings.NewReader("tables:\n  - name: t\n  - name: T\n"))
		assert.NotNil(err)
	}
	{
		_, err := Load(strings.NewReader("tables:\n  - name: t\n    columns:\n      - name: a\n        type: int\n      - name: A\n        type: int\n"))
		assert.NotNil(err)
	}
	{
		c, err := Load(strings.NewReader(""))
		assert.Nil(err)
		assert.Equal(0, c.NumTables())
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumTables())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
