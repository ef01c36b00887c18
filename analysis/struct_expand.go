package analysis

import (
	"github.com/GoGoWen/impala/catalog"
)

// expandStruct builds one child reference per field of the referenced struct.
// The item tuple of a struct slot is created once, every later expansion of
// the same slot reuses it, so two references to the same struct share the
// field slots but own distinct children. Errors name expr, the outermost
// reference being expanded.
func (self *SlotRef) expandStruct(scope Scope, depth int, expr string) error {
	rs := self.mustResolved()
	assertf(rs.ty.IsStruct(), "struct-slot", "expanding non struct slot ref %s", self.label)

	cfg := scope.Config()
	if depth >= cfg.MaxStructDepth {
		return errAnalysis(KindUnsupportedType,
			"Struct nesting exceeds the maximum depth of %d in '%s'.", cfg.MaxStructDepth, expr)
	}

	tbl := scope.DescTbl()
	desc := tbl.Slot(rs.id)
	if !desc.HasItemTuple() {
		if err := checkStructFields(rs.ty.(*catalog.StructType), expr); err != nil {
			return err
		}
		tbl.CreateStructTuplesAndSlots(desc.Id(), rs.path)
	} else {
		tbl.logger.Debug("struct tuple reused",
			"slot_id", desc.Id(), "tuple_id", desc.ItemTuple())
	}

	item := tbl.Tuple(desc.ItemTuple())
	assertf(item.ParentSlot() == desc.Id(), "parent-slot-link",
		"item tuple %d is linked to slot %d instead of %d", item.Id(), item.ParentSlot(), desc.Id())

	children := make([]*SlotRef, 0, len(item.Slots()))
	for _, sid := range item.Slots() {
		child := NewSlotRefFromDesc(tbl, tbl.Slot(sid))
		if child.Type().IsStruct() {
			if err := child.expandStruct(scope, depth+1, expr); err != nil {
				return err
			}
		}
		children = append(children, child)
	}
	self.children = children
	return nil
}

func checkStructFields(st *catalog.StructType, expr string) error {
	for _, f := range st.Fields {
		if !f.Type.IsSupported() {
			return errAnalysis(KindUnsupportedType,
				"Unsupported type '%s' in '%s'.", f.Type.ToSql(), expr)
		}
		if f.Type.IsCollection() {
			return errAnalysis(KindStructCollectionField,
				"Struct containing a collection type is not allowed in the select list.")
		}
	}
	return nil
}
