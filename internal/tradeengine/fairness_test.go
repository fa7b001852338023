package tradeengine

import "testing"

func TestIsFairExchange_EmptySides(t *testing.T) {
	if _, err := IsFairExchange(nil, []Item{card(1, 1, true)}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for empty give, got %v", err)
	}
	if _, err := IsFairExchange([]Item{card(1, 1, true)}, nil); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput for empty receive, got %v", err)
	}
}

func TestIsFairExchange_Fair(t *testing.T) {
	give := []Item{card(1, 2, true), card(2, 1, true)}
	receive := []Item{card(3, 3, true)}
	fair, err := IsFairExchange(give, receive)
	if err != nil {
		t.Fatal(err)
	}
	if !fair {
		t.Fatal("expected fair: give total 3 <= receive total 3 for the shared SetKey")
	}
}

// Give {A:2, B:1} (total 3), Receive {D:2} (total 2) -> unfair.
func TestIsFairExchange_UnfairOnTotals(t *testing.T) {
	give := []Item{card(1, 2, true), card(2, 1, true)}
	receive := []Item{card(4, 2, true)}
	fair, err := IsFairExchange(give, receive)
	if err != nil {
		t.Fatal(err)
	}
	if fair {
		t.Fatal("expected unfair: give total 3 > receive total 2")
	}
}

func TestIsFairExchange_GiveSetKeyMissingFromReceive(t *testing.T) {
	give := []Item{card(1, 1, true)}
	// Receive a SetKey entirely absent from give: that alone never makes
	// the trade fair, since the give side's SetKey must appear on the
	// receive side with at least as much total amount.
	receive := []Item{{AppID: 440, RealAppID: 440, ClassID: 9, Type: ItemTypeBackground, Rarity: RarityRare, Amount: 1, Tradable: true}}
	fair, err := IsFairExchange(give, receive)
	if err != nil {
		t.Fatal(err)
	}
	if fair {
		t.Fatal("give SetKey absent from receive must make the trade unfair")
	}
}

func TestIsFairExchange_ExtraReceiveSetKeyIsAlwaysAcceptable(t *testing.T) {
	give := []Item{card(1, 1, true)}
	receive := []Item{
		card(2, 1, true), // matches give's SetKey, satisfies fairness
		{AppID: 440, RealAppID: 440, ClassID: 9, Type: ItemTypeBackground, Rarity: RarityRare, Amount: 1, Tradable: true}, // bonus SetKey absent from give
	}
	fair, err := IsFairExchange(give, receive)
	if err != nil {
		t.Fatal(err)
	}
	if !fair {
		t.Fatal("a bonus SetKey on the receive side only should never make an otherwise-fair trade unfair")
	}
}
