// Package tradeengine implements the trade-offer evaluation core: inventory
// grouping, fairness and set-progress evaluation, the accept/reject policy,
// the per-offer pipeline, and the coalescing scheduler that drives it.
package tradeengine

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned by the pure evaluators when called with a
// null or empty required collection. It is a programming error in the
// caller, not a transient condition.
var ErrInvalidInput = errors.New("tradeengine: invalid input")

// ItemType enumerates the kinds of item a SetKey can group.
type ItemType int

const (
	ItemTypeUnknown ItemType = iota
	ItemTypeTradingCard
	ItemTypeFoilCard
	ItemTypeEmoticon
	ItemTypeBackground
	ItemTypeSaleItem
)

func (t ItemType) String() string {
	switch t {
	case ItemTypeTradingCard:
		return "TradingCard"
	case ItemTypeFoilCard:
		return "FoilCard"
	case ItemTypeEmoticon:
		return "Emoticon"
	case ItemTypeBackground:
		return "Background"
	case ItemTypeSaleItem:
		return "SaleItem"
	default:
		return "Unknown"
	}
}

// Rarity is an ordinal rarity tier; higher is rarer.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityUltraRare
)

// Item represents a single stack of fungible in-game objects. Amount is
// mutable on a shallow copy during simulation; the zero value is not a
// valid Item (AppID/ClassID must be set by whoever produces it).
type Item struct {
	AppID      uint32
	RealAppID  uint32
	ClassID    uint64
	Type       ItemType
	Rarity     Rarity
	Amount     uint32
	Tradable   bool
	Marketable bool
}

// Copy returns a shallow value copy of the item, safe for the caller to
// mutate Amount on without affecting the original.
func (i Item) Copy() Item {
	return i
}

// SetKey groups items that belong to the same "set": all items sharing a
// (RealAppID, Type, Rarity) triple are interchangeable for set-completion
// purposes.
type SetKey struct {
	RealAppID uint32
	Type      ItemType
	Rarity    Rarity
}

func SetKeyOf(i Item) SetKey {
	return SetKey{RealAppID: i.RealAppID, Type: i.Type, Rarity: i.Rarity}
}

// InventoryState maps a SetKey to a mapping of classId to aggregated amount.
type InventoryState map[SetKey]map[uint64]uint32

// InventorySets maps a SetKey to an ascending-sorted sequence of per-classId
// amounts. The number of complete sets is the first element (the minimum);
// the number of unique classes held is the sequence length.
type InventorySets map[SetKey][]uint32

// CompleteSets returns min(sequence), the number of complete sets for key.
func (s InventorySets) CompleteSets(key SetKey) uint32 {
	seq := s[key]
	if len(seq) == 0 {
		return 0
	}
	return seq[0]
}

// UniqueClasses returns len(sequence), the number of distinct classIds held
// for key.
func (s InventorySets) UniqueClasses(key SetKey) int {
	return len(s[key])
}

// TradeOfferState mirrors the handful of states the counterparty's trading
// service reports for an offer; only Active is ever processed.
type TradeOfferState int

const (
	TradeOfferStateUnknown TradeOfferState = iota
	TradeOfferStateActive
	TradeOfferStateAccepted
	TradeOfferStateDeclined
	TradeOfferStateCanceled
	TradeOfferStateExpired
	TradeOfferStateInEscrow
)

// TradeOffer is a two-sided proposed exchange awaiting a decision.
type TradeOffer struct {
	TradeOfferID   uint64
	OtherSteamID64 uint64 // 0 means "the platform itself"
	State          TradeOfferState
	ItemsToGive    []Item
	ItemsToReceive []Item
}

// Result is the outcome of evaluating a trade offer.
type Result int

const (
	ResultUnknown Result = iota
	ResultAccepted
	ResultBlacklisted
	ResultIgnored
	ResultRejected
	ResultTryAgain
)

func (r Result) String() string {
	switch r {
	case ResultAccepted:
		return "Accepted"
	case ResultBlacklisted:
		return "Blacklisted"
	case ResultIgnored:
		return "Ignored"
	case ResultRejected:
		return "Rejected"
	case ResultTryAgain:
		return "TryAgain"
	default:
		return "Unknown"
	}
}

// ParseTradeResult records the final decision for one offer. It is only
// ever constructed with a nonzero TradeOfferID and a non-Unknown Result.
type ParseTradeResult struct {
	TradeOfferID      uint64
	Result            Result
	ReceivedItemTypes map[ItemType]struct{}
}

// NewParseTradeResult rejects the two states a result must never carry: a
// zero offer id and an Unknown decision.
func NewParseTradeResult(tradeOfferID uint64, result Result, receivedItemTypes map[ItemType]struct{}) (ParseTradeResult, error) {
	if tradeOfferID == 0 {
		return ParseTradeResult{}, fmt.Errorf("%w: zero tradeOfferID", ErrInvalidInput)
	}
	if result == ResultUnknown {
		return ParseTradeResult{}, fmt.Errorf("%w: unknown result", ErrInvalidInput)
	}
	if receivedItemTypes == nil {
		receivedItemTypes = map[ItemType]struct{}{}
	}
	return ParseTradeResult{
		TradeOfferID:      tradeOfferID,
		Result:            result,
		ReceivedItemTypes: receivedItemTypes,
	}, nil
}
