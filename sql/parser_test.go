package sql

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func doTestSelect(lhs, rhs string, assert *assert.Assertions) {
	c, err := Parse(rhs)
	if err != nil {
		print(fmt.Sprintf("%s\n", err))
	}
	if assert.True(err == nil) {
		assert.Equal(lhs, PrintCode(c))
	}
}

func TestSelect1(t *testing.T) {
	assert := assert.New(t)

	doTestSelect(
		`select
a
from t`, "select a from t", assert)

	doTestSelect(
		`select
a as x, b.c.d as y
from db.t as tt`, "SELECT a AS x, b.c.d y FROM db.t tt", assert)

	doTestSelect(
		`select
*, t.*, t.s.*
from t`, "select *, t.*, t.s.* from t;", assert)

	doTestSelect(
		`select
a
from t1, t2 as x
order by a asc, x.b desc, c asc`, "select a from t1, t2 x order by a, x.b DESC, c asc", assert)

	doTestSelect(
		"select\n`select`.`a b`\nfrom `from`",
		"select `select`.`a b` from `from`", assert)

	doTestSelect(
		`select
a
from t`, `
-- leading comment
select /* inline */ a # trailing
from t // done
`, assert)
}

func TestSelectAst(t *testing.T) {
	assert := assert.New(t)

	c, err := Parse("select T.a.B as x, * from db.T t order by x desc")
	assert.Nil(err)

	s := c.Select
	assert.Equal(2, len(s.Projection.ValueList))
	assert.True(s.Projection.HasStar())

	col := s.Projection.ValueList[0].(*Col)
	assert.Equal([]string{"T", "a", "B"}, col.Path)
	assert.Equal("x", col.Alias())
	assert.Equal(0, col.Index())
	assert.Equal("T.a.B as x", col.CInfo().Snippet)

	star := s.Projection.ValueList[1].(*Star)
	assert.False(star.IsQualified())
	assert.Equal(1, star.Index())

	assert.Equal(1, len(s.From.VarList))
	assert.Equal([]string{"db", "T"}, s.From.VarList[0].Path)
	assert.Equal("t", s.From.VarList[0].Alias)

	assert.Equal(1, len(s.OrderBy.VarList))
	assert.Equal(OrderDesc, s.OrderBy.VarList[0].Order)
}

func TestSelectError(t *testing.T) {
	assert := assert.New(t)

	bad := []string{
		"",
		"from t",
		"select a",
		"select from t",
		"select a from",
		"select a. from t",
		"select a from t.*",
		"select a from t order by",
		"select a from t order by a.*",
		"select a from t; select b from t",
		"select a as from t",
		"select a, from t",
		"select a from t where a",
	}
	for _, q := range bad {
		_, err := Parse(q)
		assert.NotNil(err, q)
	}
}

func TestIdentSql(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("abc", IdentSql("abc"))
	assert.Equal("Abc_1", IdentSql("Abc_1"))
	assert.Equal("`select`", IdentSql("select"))
	assert.Equal("`Order`", IdentSql("Order"))
	assert.Equal("`a b`", IdentSql("a b"))
	assert.Equal("`123`", IdentSql("123"))
	assert.Equal("``", IdentSql(""))
	assert.Equal("t.`struct`.f", PathSql([]string{"t", "struct", "f"}))
	assert.Equal("", PathSql(nil))
}
