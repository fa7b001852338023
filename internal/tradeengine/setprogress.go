package tradeengine

// IsTradeNeutralOrBetter decides whether applying give/receive to inventory
// preserves or improves set-completion progress across every SetKey the
// trade touches. inventory is assumed pre-filtered to the SetKeys relevant
// to the trade. The simulation mutates Amount only on its own copies of the
// inventory items; inventory, give and receive are left unchanged.
func IsTradeNeutralOrBetter(inventory []Item, give, receive []Item) (bool, error) {
	initial, err := GroupInventorySets(inventory)
	if err != nil {
		return false, err
	}

	simulated, err := applyGive(inventory, give)
	if err != nil {
		return false, err
	}
	simulated = append(simulated, receive...)

	final, err := GroupInventorySets(simulated)
	if err != nil {
		return false, err
	}

	for key, initialSeq := range initial {
		finalSeq, ok := final[key]
		if !ok {
			return false, nil // regression: lost the entire set
		}
		if len(finalSeq) < len(initialSeq) {
			return false, nil // lost a unique class
		}
		if len(finalSeq) > len(initialSeq) {
			continue // gained a unique class: strictly better
		}

		b0, a0 := initialSeq[0], finalSeq[0]
		if a0 < b0 {
			return false, nil
		}
		if a0 > b0 {
			continue
		}

		// Same unique-class count, same complete-set count: walk the
		// prefix sums of the delta and reject if progress ever goes
		// negative at any point.
		var neutrality int64
		for i := range initialSeq {
			neutrality += int64(finalSeq[i]) - int64(initialSeq[i])
			if neutrality < 0 {
				return false, nil
			}
		}
	}

	return true, nil
}

// applyGive destructively simulates giving away items: for each item to
// give, it scans the inventory copy for entries sharing the same classId
// and subtracts amount, removing entries fully consumed. If less than
// item.Amount could be deducted, the inventory does not actually contain
// what is being given away and that is an invalid input.
func applyGive(inventory []Item, give []Item) ([]Item, error) {
	working := make([]Item, len(inventory))
	for i, it := range inventory {
		working[i] = it.Copy()
	}

	for _, toGive := range give {
		remaining := toGive.Amount
		for i := range working {
			if remaining == 0 {
				break
			}
			if working[i].ClassID != toGive.ClassID {
				continue
			}
			deduct := working[i].Amount
			if deduct > remaining {
				deduct = remaining
			}
			working[i].Amount -= deduct
			remaining -= deduct
		}
		if remaining > 0 {
			return nil, ErrInvalidInput
		}
	}

	// Drop fully-consumed entries.
	result := working[:0]
	for _, it := range working {
		if it.Amount > 0 {
			result = append(result, it)
		}
	}
	return result, nil
}
