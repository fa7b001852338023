package tradeengine

import "sort"

// GroupInventoryState groups items by SetKey and sums Amount per classId.
// Fails with ErrInvalidInput on an empty or nil input.
func GroupInventoryState(items []Item) (InventoryState, error) {
	if len(items) == 0 {
		return nil, ErrInvalidInput
	}
	state := make(InventoryState)
	for _, it := range items {
		key := SetKeyOf(it)
		bucket, ok := state[key]
		if !ok {
			bucket = make(map[uint64]uint32)
			state[key] = bucket
		}
		bucket[it.ClassID] += it.Amount
	}
	return state, nil
}

// GroupInventorySets groups items by SetKey, then sorts each bucket's
// per-classId amounts in ascending order. Later algorithms depend on this
// sort order for index-aligned comparison, so it is never incidental.
func GroupInventorySets(items []Item) (InventorySets, error) {
	state, err := GroupInventoryState(items)
	if err != nil {
		return nil, err
	}
	sets := make(InventorySets, len(state))
	for key, byClass := range state {
		seq := make([]uint32, 0, len(byClass))
		for _, amount := range byClass {
			seq = append(seq, amount)
		}
		sort.Slice(seq, func(i, j int) bool { return seq[i] < seq[j] })
		sets[key] = seq
	}
	return sets, nil
}

// GroupDividedInventoryState computes the full grouping and the
// tradable-only grouping in one pass.
func GroupDividedInventoryState(items []Item) (full InventoryState, tradable InventoryState, err error) {
	if len(items) == 0 {
		return nil, nil, ErrInvalidInput
	}
	full = make(InventoryState)
	tradable = make(InventoryState)
	for _, it := range items {
		key := SetKeyOf(it)
		addTo(full, key, it)
		if it.Tradable {
			addTo(tradable, key, it)
		}
	}
	return full, tradable, nil
}

func addTo(state InventoryState, key SetKey, it Item) {
	bucket, ok := state[key]
	if !ok {
		bucket = make(map[uint64]uint32)
		state[key] = bucket
	}
	bucket[it.ClassID] += it.Amount
}

// SelectTradable returns the InventoryState restricted to tradable items.
func SelectTradable(items []Item) (InventoryState, error) {
	_, tradable, err := GroupDividedInventoryState(items)
	return tradable, err
}

// ExtractTradableMatching builds a new set of items satisfying a
// per-classId demand: for each tradable item whose classId is in demand,
// it takes min(item.Amount, remainingDemand), records a shallow copy with
// the adjusted Amount, and decrements (or removes) the demand entry.
// classIdCountMap is mutated to reflect remaining unmet demand.
func ExtractTradableMatching(inventory []Item, classIdCountMap map[uint64]uint32) ([]Item, error) {
	if len(inventory) == 0 || len(classIdCountMap) == 0 {
		return nil, ErrInvalidInput
	}
	var extracted []Item
	for _, it := range inventory {
		if !it.Tradable {
			continue
		}
		remaining, wanted := classIdCountMap[it.ClassID]
		if !wanted || remaining == 0 {
			continue
		}
		take := it.Amount
		if take > remaining {
			take = remaining
		}
		copyItem := it.Copy()
		copyItem.Amount = take
		extracted = append(extracted, copyItem)

		remaining -= take
		if remaining == 0 {
			delete(classIdCountMap, it.ClassID)
		} else {
			classIdCountMap[it.ClassID] = remaining
		}
	}
	return extracted, nil
}
