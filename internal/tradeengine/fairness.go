package tradeengine

// IsFairExchange reports whether give/receive is fair count-wise, per item
// class. A trade is fair iff for every SetKey present on the give side,
// that SetKey also appears on the receive side with at least as much total
// amount. SetKeys present only on the receive side are always acceptable
// (the counterparty is overpaying).
func IsFairExchange(give, receive []Item) (bool, error) {
	if len(give) == 0 || len(receive) == 0 {
		return false, ErrInvalidInput
	}

	giveTotals := totalsBySetKey(give)
	receiveTotals := totalsBySetKey(receive)

	for key, giveAmount := range giveTotals {
		receiveAmount, ok := receiveTotals[key]
		if !ok || giveAmount > receiveAmount {
			return false, nil
		}
	}
	return true, nil
}

func totalsBySetKey(items []Item) map[SetKey]uint64 {
	totals := make(map[SetKey]uint64, len(items))
	for _, it := range items {
		totals[SetKeyOf(it)] += uint64(it.Amount)
	}
	return totals
}
