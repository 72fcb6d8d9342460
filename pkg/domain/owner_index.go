package domain

// OwnerIndex enumerates the kitties held by a single account. Positions
// 0..Len()-1 are always densely packed; removal swaps the last element into the
// vacated slot so every operation is O(1).
type OwnerIndex struct {
	ids       []KittyID
	positions map[KittyID]uint32
}

// NewOwnerIndex builds an index holding ids in the given positional order.
// Duplicate ids are ignored after their first occurrence.
func NewOwnerIndex(ids ...KittyID) *OwnerIndex {
	idx := &OwnerIndex{positions: make(map[KittyID]uint32, len(ids))}
	for _, id := range ids {
		idx.Upsert(id)
	}
	return idx
}

// Len returns the number of kitties in the enumeration.
func (o *OwnerIndex) Len() int {
	if o == nil {
		return 0
	}
	return len(o.ids)
}

// At returns the id stored at position i.
func (o *OwnerIndex) At(i int) (KittyID, bool) {
	if o == nil || i < 0 || i >= len(o.ids) {
		return 0, false
	}
	return o.ids[i], true
}

// Position reports where id sits in the enumeration.
func (o *OwnerIndex) Position(id KittyID) (int, bool) {
	if o == nil {
		return 0, false
	}
	pos, ok := o.positions[id]
	return int(pos), ok
}

// Contains reports whether id is enumerated.
func (o *OwnerIndex) Contains(id KittyID) bool {
	_, ok := o.Position(id)
	return ok
}

// Upsert appends id at position Len() unless it is already present, in which
// case the index is left untouched. It returns the position of id.
func (o *OwnerIndex) Upsert(id KittyID) int {
	if pos, ok := o.positions[id]; ok {
		return int(pos)
	}
	if o.positions == nil {
		o.positions = make(map[KittyID]uint32)
	}
	pos := len(o.ids)
	o.ids = append(o.ids, id)
	o.positions[id] = uint32(pos)
	return pos
}

// Remove swap-removes id, moving the last element into its slot.
func (o *OwnerIndex) Remove(id KittyID) bool {
	if o == nil {
		return false
	}
	pos, ok := o.positions[id]
	if !ok {
		return false
	}
	last := len(o.ids) - 1
	if int(pos) != last {
		moved := o.ids[last]
		o.ids[pos] = moved
		o.positions[moved] = pos
	}
	o.ids = o.ids[:last]
	delete(o.positions, id)
	return true
}

// IDs returns a copy of the enumeration in positional order.
func (o *OwnerIndex) IDs() []KittyID {
	if o == nil {
		return nil
	}
	return append([]KittyID(nil), o.ids...)
}

// Clone returns an independent copy of the index.
func (o *OwnerIndex) Clone() *OwnerIndex {
	if o == nil {
		return nil
	}
	cp := &OwnerIndex{
		ids:       append([]KittyID(nil), o.ids...),
		positions: make(map[KittyID]uint32, len(o.positions)),
	}
	for id, pos := range o.positions {
		cp.positions[id] = pos
	}
	return cp
}
