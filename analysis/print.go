package analysis

import (
	"fmt"
	"strings"
)

// Printing descriptors out, for testing, debugging, explain etc ...

func (self *SlotDescriptor) DebugString() string {
	path := "null"
	if self.path != nil {
		path = self.path.String()
	}
	return fmt.Sprintf(
		"SlotDescriptor{id=%d parent=%d itemTuple=%d type=%s label=%s path=%s "+
			"nullable=%v materialized=%v offset=%d nullIndicator=%d:%d}",
		self.id,
		self.parent,
		self.itemTuple,
		self.ty.ToSql(),
		self.label,
		path,
		self.nullable,
		self.materialized,
		self.byteOffset,
		self.nullIndicatorByte,
		self.nullIndicatorBit,
	)
}

func (self *TupleDescriptor) DebugString() string {
	table := "null"
	if self.table != nil {
		table = self.table.FullName()
	}
	return fmt.Sprintf(
		"TupleDescriptor{id=%d name=%s table=%s alias=%s parentSlot=%d slots=%v "+
			"materialized=%v byteSize=%d}",
		self.id,
		self.debugName,
		table,
		self.alias,
		self.parentSlot,
		self.slots,
		self.materialized,
		self.byteSize,
	)
}

func (self *DescriptorTable) printSlot(
	s *SlotDescriptor,
	buf *strings.Builder,
) {
	buf.WriteString("##> Slot Descriptor\n")
	buf.WriteString(fmt.Sprintf("Id: %d\n", s.id))
	buf.WriteString(fmt.Sprintf("Label: %s\n", s.label))
	buf.WriteString(fmt.Sprintf("Type: %s\n", s.ty.ToSql()))
	if s.path != nil {
		buf.WriteString(fmt.Sprintf("Path: %s\n", s.path))
	} else {
		buf.WriteString("Path: --\n")
	}
	buf.WriteString(fmt.Sprintf("Nullable: %v\n", s.nullable))
	buf.WriteString(fmt.Sprintf("Materialized: %v\n", s.materialized))
	if s.HasItemTuple() {
		buf.WriteString(fmt.Sprintf("ItemTuple: %d\n", s.itemTuple))
	}
	if s.materialized {
		buf.WriteString(fmt.Sprintf("Offset: %d\n", s.byteOffset))
	}
}

func (self *DescriptorTable) printTuple(
	t *TupleDescriptor,
	buf *strings.Builder,
) {
	buf.WriteString("##> Tuple Descriptor\n")
	buf.WriteString(fmt.Sprintf("Id: %d\n", t.id))
	buf.WriteString(fmt.Sprintf("Name: %s\n", t.debugName))
	if t.table != nil {
		buf.WriteString(fmt.Sprintf("Table: %s\n", t.table.FullName()))
	}
	if t.alias != "" {
		buf.WriteString(fmt.Sprintf("Alias: %s\n", t.alias))
	}
	if t.HasParentSlot() {
		buf.WriteString(fmt.Sprintf("ParentSlot: %d\n", t.parentSlot))
	}
	buf.WriteString(fmt.Sprintf("Materialized: %v\n", t.materialized))
	if t.layoutDone {
		buf.WriteString(fmt.Sprintf("ByteSize: %d\n", t.byteSize))
		buf.WriteString(fmt.Sprintf("NullBytes: %d\n", t.numNullBytes))
	}
	for _, sid := range t.slots {
		self.printSlot(self.slots[sid], buf)
	}
}

func (self *DescriptorTable) Print() string {
	buf := &strings.Builder{}
	for _, t := range self.tuples {
		self.printTuple(t, buf)
	}
	return buf.String()
}

func printExprList(
	title string,
	list []*SlotRef,
	buf *strings.Builder,
) {
	buf.WriteString(fmt.Sprintf("##> %s\n", title))
	if len(list) == 0 {
		buf.WriteString("--\n")
		return
	}
	for idx, e := range list {
		buf.WriteString(fmt.Sprintf("Expr[%d]: %s\n", idx, e))
	}
}

func (self *Compilation) Print() string {
	buf := &strings.Builder{}
	buf.WriteString("##> Query\n")
	buf.WriteString(fmt.Sprintf("Id: %s\n", self.QueryId))
	printExprList("Select", self.SelectExprs, buf)
	buf.WriteString(fmt.Sprintf("Labels: %s\n", strings.Join(self.ColumnLabels, ", ")))
	printExprList("OrderBy", self.OrderByExprs, buf)
	printExprList("Sort", self.SortExprs, buf)
	if len(self.MaskedSlots) > 0 {
		buf.WriteString("##> Masked\n")
		for _, m := range self.MaskedSlots {
			buf.WriteString(fmt.Sprintf("Slot[%d]: %s.%s => %s\n", m.SlotId, m.Table, m.Column, m.Expr))
		}
	}
	buf.WriteString(self.DescTbl.Print())
	return buf.String()
}
