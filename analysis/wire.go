package analysis

// The wire form is what the backend receives. Expression trees are flattened
// in prefix order, every node carrying its number of children. A reference
// carries the slot id only, type and nullability live in the slot record.

const NodeTypeSlotRef = "SLOT_REF"

type WireSlotRef struct {
	SlotID SlotId `json:"slot_id"`
}

type WireExprNode struct {
	NodeType    string       `json:"node_type"`
	NumChildren int          `json:"num_children"`
	SlotRef     *WireSlotRef `json:"slot_ref,omitempty"`
}

type WireExpr struct {
	Nodes []WireExprNode `json:"nodes"`
}

// ToWire serializes the node itself. It panics when the referenced slot is not
// materialized or its tuple is not executable.
func (self *SlotRef) ToWire(tbl *DescriptorTable) WireExprNode {
	self.checkSerializable(tbl)
	rs := self.mustResolved()
	return WireExprNode{
		NodeType:    NodeTypeSlotRef,
		NumChildren: len(self.children),
		SlotRef:     &WireSlotRef{SlotID: rs.id},
	}
}

// TreeToWire serializes the reference and its struct children
func (self *SlotRef) TreeToWire(tbl *DescriptorTable) WireExpr {
	out := WireExpr{}
	var walk func(*SlotRef)
	walk = func(s *SlotRef) {
		out.Nodes = append(out.Nodes, s.ToWire(tbl))
		for _, c := range s.children {
			walk(c)
		}
	}
	walk(self)
	return out
}

type WireSlotDescriptor struct {
	Id                SlotId  `json:"id"`
	Parent            TupleId `json:"parent"`
	ItemTuple         TupleId `json:"item_tuple"`
	Type              string  `json:"type"`
	Label             string  `json:"label"`
	Nullable          bool    `json:"nullable"`
	IsMaterialized    bool    `json:"is_materialized"`
	MaterializedPath  []int   `json:"materialized_path,omitempty"`
	ByteOffset        int     `json:"byte_offset"`
	NullIndicatorByte int     `json:"null_indicator_byte"`
	NullIndicatorBit  int     `json:"null_indicator_bit"`
}

type WireTupleDescriptor struct {
	Id           TupleId `json:"id"`
	DebugName    string  `json:"debug_name"`
	ByteSize     int     `json:"byte_size"`
	NumNullBytes int     `json:"num_null_bytes"`
	Table        string  `json:"table,omitempty"`
	ParentSlot   SlotId  `json:"parent_slot"`
}

type WireDescriptorTable struct {
	Slots  []WireSlotDescriptor  `json:"slots"`
	Tuples []WireTupleDescriptor `json:"tuples"`
}

// ToWire serializes the materialized part of the table. Every materialized
// tuple must be executable.
func (self *DescriptorTable) ToWire() WireDescriptorTable {
	out := WireDescriptorTable{
		Slots:  []WireSlotDescriptor{},
		Tuples: []WireTupleDescriptor{},
	}
	for _, t := range self.tuples {
		if !t.materialized {
			continue
		}
		self.CheckIsExecutable(t.id)
		wt := WireTupleDescriptor{
			Id:           t.id,
			DebugName:    t.debugName,
			ByteSize:     t.byteSize,
			NumNullBytes: t.numNullBytes,
			ParentSlot:   t.parentSlot,
		}
		if t.table != nil {
			wt.Table = t.table.FullName()
		}
		out.Tuples = append(out.Tuples, wt)
	}
	for _, s := range self.slots {
		if !s.materialized || !self.tuples[s.parent].materialized {
			continue
		}
		ws := WireSlotDescriptor{
			Id:                s.id,
			Parent:            s.parent,
			ItemTuple:         s.itemTuple,
			Type:              s.ty.ToSql(),
			Label:             s.label,
			Nullable:          s.nullable,
			IsMaterialized:    s.materialized,
			ByteOffset:        s.byteOffset,
			NullIndicatorByte: s.nullIndicatorByte,
			NullIndicatorBit:  s.nullIndicatorBit,
		}
		if s.path != nil {
			ws.MaterializedPath = s.path.MatchedPositions()
		}
		out.Slots = append(out.Slots, ws)
	}
	return out
}
