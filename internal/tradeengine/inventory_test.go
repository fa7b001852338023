package tradeengine

import "testing"

func card(classID uint64, amount uint32, tradable bool) Item {
	return Item{
		AppID:     730,
		RealAppID: 730,
		ClassID:   classID,
		Type:      ItemTypeTradingCard,
		Rarity:    RarityCommon,
		Amount:    amount,
		Tradable:  tradable,
	}
}

func TestGroupInventoryState_Empty(t *testing.T) {
	if _, err := GroupInventoryState(nil); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGroupInventoryState_SumsPerClass(t *testing.T) {
	items := []Item{card(1, 2, true), card(1, 3, true), card(2, 1, true)}
	state, err := GroupInventoryState(items)
	if err != nil {
		t.Fatal(err)
	}
	key := SetKeyOf(items[0])
	if state[key][1] != 5 {
		t.Fatalf("expected classId 1 to sum to 5, got %d", state[key][1])
	}
	if state[key][2] != 1 {
		t.Fatalf("expected classId 2 to sum to 1, got %d", state[key][2])
	}
}

func TestGroupInventorySets_AscendingOrder(t *testing.T) {
	items := []Item{card(1, 5, true), card(2, 1, true), card(3, 3, true)}
	sets, err := GroupInventorySets(items)
	if err != nil {
		t.Fatal(err)
	}
	key := SetKeyOf(items[0])
	seq := sets[key]
	want := []uint32{1, 3, 5}
	for i, v := range want {
		if seq[i] != v {
			t.Fatalf("seq[%d] = %d, want %d (full: %v)", i, seq[i], v, seq)
		}
	}
	if sets.CompleteSets(key) != 1 {
		t.Fatalf("expected 1 complete set, got %d", sets.CompleteSets(key))
	}
	if sets.UniqueClasses(key) != 3 {
		t.Fatalf("expected 3 unique classes, got %d", sets.UniqueClasses(key))
	}
}

func TestGroupDividedInventoryState_ExcludesNonTradable(t *testing.T) {
	items := []Item{card(1, 2, true), card(2, 4, false)}
	full, tradable, err := GroupDividedInventoryState(items)
	if err != nil {
		t.Fatal(err)
	}
	key := SetKeyOf(items[0])
	if len(full[key]) != 2 {
		t.Fatalf("expected 2 classes in full state, got %d", len(full[key]))
	}
	if len(tradable[key]) != 1 {
		t.Fatalf("expected 1 class in tradable state, got %d", len(tradable[key]))
	}
	if _, ok := tradable[key][2]; ok {
		t.Fatal("non-tradable classId 2 leaked into tradable state")
	}
}

func TestSelectTradable_EmptyInput(t *testing.T) {
	if _, err := SelectTradable(nil); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExtractTradableMatching_PartialAndExhausted(t *testing.T) {
	inventory := []Item{card(1, 5, true), card(2, 2, false)}
	demand := map[uint64]uint32{1: 3, 2: 10}

	extracted, err := ExtractTradableMatching(inventory, demand)
	if err != nil {
		t.Fatal(err)
	}
	if len(extracted) != 1 {
		t.Fatalf("expected 1 extracted item (classId 2 is non-tradable), got %d", len(extracted))
	}
	if extracted[0].Amount != 3 {
		t.Fatalf("expected extracted amount 3, got %d", extracted[0].Amount)
	}
	if _, stillWanted := demand[1]; stillWanted {
		t.Fatal("classId 1 demand should be exhausted and removed")
	}
	if demand[2] != 10 {
		t.Fatalf("classId 2 demand should be untouched (non-tradable), got %d", demand[2])
	}
	// Original inventory item must be untouched (shallow copy semantics).
	if inventory[0].Amount != 5 {
		t.Fatalf("original inventory item mutated: %d", inventory[0].Amount)
	}
}

func TestExtractTradableMatching_EmptyInputs(t *testing.T) {
	if _, err := ExtractTradableMatching(nil, map[uint64]uint32{1: 1}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for empty inventory, got %v", err)
	}
	if _, err := ExtractTradableMatching([]Item{card(1, 1, true)}, nil); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for empty demand, got %v", err)
	}
}
