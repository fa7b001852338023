package tradeengine

import (
	"context"
	"testing"
)

type fakePermissions struct {
	master      map[uint64]bool
	blacklisted map[uint64]bool
	ownBots     map[uint64]bool
	err         error
}

func (f *fakePermissions) IsMaster(_ context.Context, _, counterparty uint64) (bool, error) {
	return f.master[counterparty], f.err
}
func (f *fakePermissions) IsBlacklisted(_ context.Context, _, counterparty uint64) (bool, error) {
	return f.blacklisted[counterparty], f.err
}
func (f *fakePermissions) IsOwnBot(_ context.Context, _, counterparty uint64) (bool, error) {
	return f.ownBots[counterparty], f.err
}

type fakeHoldQuerier struct {
	days uint8
	ok   bool
	err  error
}

func (f *fakeHoldQuerier) GetTradeHoldDuration(_ context.Context, _, _ uint64) (uint8, bool, error) {
	return f.days, f.ok, f.err
}

type fakeInventoryFetcher struct {
	items []Item
	err   error
}

func (f *fakeInventoryFetcher) GetInventory(_ context.Context, _ uint64, filter func(Item) bool) ([]Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Item
	for _, it := range f.items {
		if filter == nil || filter(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

func newPolicy() (*DecisionPolicy, *fakePermissions, *fakeHoldQuerier, *fakeInventoryFetcher) {
	perms := &fakePermissions{master: map[uint64]bool{}, blacklisted: map[uint64]bool{}, ownBots: map[uint64]bool{}}
	hold := &fakeHoldQuerier{ok: true}
	invFetcher := &fakeInventoryFetcher{}
	policy := &DecisionPolicy{
		BotAccountID: 1,
		Config: Config{
			SteamTradeMatcher:    true,
			MaxTradeHoldDuration: 7,
		},
		Permissions: perms,
		HoldQuerier: hold,
		Inventory:   invFetcher,
	}
	return policy, perms, hold, invFetcher
}

func TestShouldAcceptTrade_MasterAlwaysAccepted(t *testing.T) {
	policy, perms, _, _ := newPolicy()
	perms.master[42] = true
	offer := TradeOffer{TradeOfferID: 1, OtherSteamID64: 42}

	result, err := policy.ShouldAcceptTrade(context.Background(), offer)
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultAccepted {
		t.Fatalf("want Accepted, got %s", result)
	}
}

func TestShouldAcceptTrade_Blacklisted(t *testing.T) {
	policy, perms, _, _ := newPolicy()
	perms.blacklisted[42] = true
	offer := TradeOffer{TradeOfferID: 1, OtherSteamID64: 42, ItemsToGive: []Item{card(1, 1, true)}}

	result, err := policy.ShouldAcceptTrade(context.Background(), offer)
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultBlacklisted {
		t.Fatalf("want Blacklisted, got %s", result)
	}
}

func TestShouldAcceptTrade_EmptyBothSides(t *testing.T) {
	policy, _, _, _ := newPolicy()
	offer := TradeOffer{TradeOfferID: 1, OtherSteamID64: 42}

	result, _ := policy.ShouldAcceptTrade(context.Background(), offer)
	if result != ResultTryAgain {
		t.Fatalf("want TryAgain, got %s", result)
	}
}

func TestShouldAcceptTrade_DonationAcceptedFromNonBot(t *testing.T) {
	policy, _, _, _ := newPolicy()
	policy.Config.AcceptDonations = true
	policy.Config.DontAcceptBotTrades = true // acceptBotTrades = false
	offer := TradeOffer{TradeOfferID: 1, OtherSteamID64: 42, ItemsToReceive: []Item{card(1, 1, true)}}

	result, _ := policy.ShouldAcceptTrade(context.Background(), offer)
	if result != ResultAccepted {
		t.Fatalf("want Accepted (donation from non-bot with AcceptDonations), got %s", result)
	}
}

func TestShouldAcceptTrade_DonationRejectedWhenBothFlagsOff(t *testing.T) {
	policy, _, _, _ := newPolicy()
	offer := TradeOffer{TradeOfferID: 1, OtherSteamID64: 42, ItemsToReceive: []Item{card(1, 1, true)}}

	result, _ := policy.ShouldAcceptTrade(context.Background(), offer)
	if result != ResultRejected {
		t.Fatalf("want Rejected, got %s", result)
	}
}

func TestShouldAcceptTrade_MatcherDisabled(t *testing.T) {
	policy, _, _, _ := newPolicy()
	policy.Config.SteamTradeMatcher = false
	offer := TradeOffer{
		TradeOfferID:   1,
		OtherSteamID64: 42,
		ItemsToGive:    []Item{card(1, 1, true)},
		ItemsToReceive: []Item{card(2, 1, true)},
	}

	result, _ := policy.ShouldAcceptTrade(context.Background(), offer)
	if result != ResultRejected {
		t.Fatalf("want Rejected (matcher disabled), got %s", result)
	}
}

func TestShouldAcceptTrade_GivingMoreThanReceivingCountWise(t *testing.T) {
	policy, _, _, _ := newPolicy()
	offer := TradeOffer{
		TradeOfferID:   1,
		OtherSteamID64: 42,
		ItemsToGive:    []Item{card(1, 1, true), card(2, 1, true)},
		ItemsToReceive: []Item{card(3, 1, true)},
	}

	result, _ := policy.ShouldAcceptTrade(context.Background(), offer)
	if result != ResultRejected {
		t.Fatalf("want Rejected (gives 2 items for 1), got %s", result)
	}
}

func TestShouldAcceptTrade_HoldDurationUnavailableIsTryAgain(t *testing.T) {
	policy, _, hold, _ := newPolicy()
	hold.ok = false
	offer := TradeOffer{
		TradeOfferID:   1,
		OtherSteamID64: 42,
		ItemsToGive:    []Item{card(1, 1, true)},
		ItemsToReceive: []Item{card(2, 1, true)},
	}

	result, _ := policy.ShouldAcceptTrade(context.Background(), offer)
	if result != ResultTryAgain {
		t.Fatalf("want TryAgain (hold duration unavailable), got %s", result)
	}
}

func TestShouldAcceptTrade_HoldExceedsMax(t *testing.T) {
	policy, _, hold, _ := newPolicy()
	hold.days = 10
	offer := TradeOffer{
		TradeOfferID:   1,
		OtherSteamID64: 42,
		ItemsToGive:    []Item{card(1, 1, true)},
		ItemsToReceive: []Item{card(2, 1, true)},
	}

	result, _ := policy.ShouldAcceptTrade(context.Background(), offer)
	if result != ResultRejected {
		t.Fatalf("want Rejected (hold 10 > max 7), got %s", result)
	}
}

func TestShouldAcceptTrade_MatchEverythingSkipsInventoryCheck(t *testing.T) {
	policy, _, _, invFetcher := newPolicy()
	policy.Config.MatchEverything = true
	invFetcher.err = context.DeadlineExceeded // would blow up if ever consulted
	offer := TradeOffer{
		TradeOfferID:   1,
		OtherSteamID64: 42,
		ItemsToGive:    []Item{card(1, 1, true)},
		ItemsToReceive: []Item{card(2, 1, true)},
	}

	result, err := policy.ShouldAcceptTrade(context.Background(), offer)
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultAccepted {
		t.Fatalf("want Accepted (MatchEverything), got %s", result)
	}
}

func TestShouldAcceptTrade_InventoryFetchFailureIsTryAgain(t *testing.T) {
	policy, _, _, invFetcher := newPolicy()
	invFetcher.err = context.DeadlineExceeded
	offer := TradeOffer{
		TradeOfferID:   1,
		OtherSteamID64: 42,
		ItemsToGive:    []Item{card(1, 1, true)},
		ItemsToReceive: []Item{card(2, 1, true)},
	}

	result, _ := policy.ShouldAcceptTrade(context.Background(), offer)
	if result != ResultTryAgain {
		t.Fatalf("want TryAgain (inventory fetch failed), got %s", result)
	}
}

func TestShouldAcceptTrade_NeutralOrBetterDrivesFinalDecision(t *testing.T) {
	policy, _, _, invFetcher := newPolicy()
	invFetcher.items = inv(map[uint64]uint32{classA: 2, classB: 2, classC: 2})
	offer := TradeOffer{
		TradeOfferID:   1,
		OtherSteamID64: 42,
		ItemsToGive:    []Item{card(classA, 1, true)},
		ItemsToReceive: []Item{card(classD, 1, true)},
	}

	result, err := policy.ShouldAcceptTrade(context.Background(), offer)
	if err != nil {
		t.Fatal(err)
	}
	if result != ResultAccepted {
		t.Fatalf("want Accepted (unique-class gain), got %s", result)
	}
}
