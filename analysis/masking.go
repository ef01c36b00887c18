package analysis

import (
	"github.com/GoGoWen/impala/catalog"
)

// MaskingPolicy is the hook of column masking. The policy decides which
// columns are masked and may refuse paths it cannot mask, it never rewrites
// anything itself.
type MaskingPolicy interface {
	// CheckPath is called for every resolved path before it is used
	CheckPath(path *Path, pathType PathType) error

	// MaskExpr returns the mask expression of a table column
	MaskExpr(table *catalog.Table, column string) (string, bool)
}

// TableMaskPolicy takes the masks registered on the catalog tables. Masks
// apply to scalar columns only: a masked column of complex type cannot be
// referenced at all, and fields nested inside of a masked column cannot be
// masked individually.
type TableMaskPolicy struct{}

func (TableMaskPolicy) MaskExpr(table *catalog.Table, column string) (string, bool) {
	return table.MaskExpr(column)
}

func (self TableMaskPolicy) CheckPath(path *Path, pathType PathType) error {
	col := path.FirstColumn()
	if col == nil {
		return nil
	}
	if _, ok := self.MaskExpr(path.RootTable(), col.Name); !ok {
		return nil
	}
	if len(path.MatchedTypes()) > 1 {
		return errResolution(
			"Column masking is not supported for nested field '%s' of masked column '%s'",
			path, col.Name)
	}
	if ty := path.DestType(); ty.IsComplex() {
		return errResolution(
			"Column masking is not supported for masked column '%s' of complex type %s",
			col.Name, ty.ToSql())
	}
	return nil
}

// MaskedSlot is a scalar column reference that has to be replaced by its mask
// expression before execution.
type MaskedSlot struct {
	SlotId SlotId `json:"slot_id"`
	Table  string `json:"table"`
	Column string `json:"column"`
	Expr   string `json:"mask_expr"`
}
