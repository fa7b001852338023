// Package steam implements the trading-service collaborator contracts
// (tradeengine.TradeOfferClient, InventoryFetcher, TradeHoldQuerier) over
// the Steam IEconService/community HTTP endpoints, via resty.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradeengine/internal/tradeengine"

	"github.com/go-resty/resty/v2"
)

// Client is the resty-based implementation of the trading-service
// collaborators.
type Client struct {
	apiKey string
	client *resty.Client

	// apiBaseURL and communityBaseURL default to Steam's real hosts; tests
	// point them at an httptest.Server instead.
	apiBaseURL       string
	communityBaseURL string
}

func NewClient(apiKey string) *Client {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	return &Client{
		apiKey:           apiKey,
		client:           client,
		apiBaseURL:       "https://api.steampowered.com",
		communityBaseURL: "https://steamcommunity.com",
	}
}

// inventoryAppID and inventoryContextID are the Steam Community inventory's
// container app/context: trading cards, foil cards, emoticons, and profile
// backgrounds for every game all live here, not under each game's own
// appid.
const (
	inventoryAppID     = 753
	inventoryContextID = 6
)

type inventoryAssetDTO struct {
	AppID      interface{} `json:"appid"`
	ClassID    string      `json:"classid"`
	InstanceID string      `json:"instanceid"`
	Amount     string      `json:"amount"`
}

type inventoryDescriptionDTO struct {
	ClassID     string `json:"classid"`
	InstanceID  string `json:"instanceid"`
	MarketFeeApp uint32 `json:"market_fee_app"`
	Type        string `json:"type"`
	Tradable    int    `json:"tradable"`
	Marketable  int    `json:"marketable"`
}

// GetInventory implements tradeengine.InventoryFetcher, fetching the
// public Steam Community inventory endpoint for the given account.
func (c *Client) GetInventory(ctx context.Context, steamID uint64, filter func(tradeengine.Item) bool) ([]tradeengine.Item, error) {
	url := fmt.Sprintf(
		"%s/inventory/%d/%d/%d?l=english&count=5000",
		c.communityBaseURL, steamID, inventoryAppID, inventoryContextID,
	)
	return c.getInventoryFrom(ctx, url, filter)
}

func (c *Client) getInventoryFrom(ctx context.Context, url string, filter func(tradeengine.Item) bool) ([]tradeengine.Item, error) {
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("steam: fetch inventory: %w", err)
	}

	var parsed struct {
		Assets       []inventoryAssetDTO       `json:"assets"`
		Descriptions []inventoryDescriptionDTO `json:"descriptions"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("steam: decode inventory: %w", err)
	}

	descByKey := make(map[string]inventoryDescriptionDTO, len(parsed.Descriptions))
	for _, d := range parsed.Descriptions {
		descByKey[d.ClassID+":"+d.InstanceID] = d
	}

	items := make([]tradeengine.Item, 0, len(parsed.Assets))
	for _, a := range parsed.Assets {
		desc, ok := descByKey[a.ClassID+":"+a.InstanceID]
		if !ok {
			continue
		}
		classID, err := strconv.ParseUint(a.ClassID, 10, 64)
		if err != nil {
			continue
		}
		amount, _ := strconv.ParseUint(a.Amount, 10, 32)
		item := tradeengine.Item{
			AppID:      inventoryAppID,
			RealAppID:  desc.MarketFeeApp,
			ClassID:    classID,
			Type:       itemTypeFromDescription(desc.Type),
			Amount:     uint32(amount),
			Tradable:   desc.Tradable == 1,
			Marketable: desc.Marketable == 1,
		}
		if filter != nil && !filter(item) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// itemTypeFromDescription maps Steam's free-text asset "type" field to our
// ItemType enum. Unrecognized types map to ItemTypeUnknown rather than
// failing the fetch.
func itemTypeFromDescription(raw string) tradeengine.ItemType {
	switch {
	case strings.Contains(raw, "Foil Trading Card"):
		return tradeengine.ItemTypeFoilCard
	case strings.Contains(raw, "Trading Card"):
		return tradeengine.ItemTypeTradingCard
	case strings.Contains(raw, "Emoticon"):
		return tradeengine.ItemTypeEmoticon
	case strings.Contains(raw, "Profile Background"):
		return tradeengine.ItemTypeBackground
	case strings.Contains(raw, "Sale Item"):
		return tradeengine.ItemTypeSaleItem
	default:
		return tradeengine.ItemTypeUnknown
	}
}

type tradeOfferDTO struct {
	TradeOfferID       string    `json:"tradeofferid"`
	AccountIDOther     uint32    `json:"accountid_other"`
	TradeOfferState    int       `json:"trade_offer_state"`
	ItemsToGive        []itemDTO `json:"items_to_give"`
	ItemsToReceive     []itemDTO `json:"items_to_receive"`
	ConfirmationMethod int       `json:"confirmation_method"`
}

type itemDTO struct {
	AppID      uint32 `json:"appid"`
	ContextID  string `json:"contextid"`
	AssetID    string `json:"assetid"`
	ClassID    string `json:"classid"`
	Amount     string `json:"amount"`
	Tradable   int    `json:"tradable"`
	Marketable int    `json:"marketable"`
}

// GetActiveTradeOffers implements tradeengine.TradeOfferClient.
func (c *Client) GetActiveTradeOffers(ctx context.Context) ([]tradeengine.TradeOffer, error) {
	url := fmt.Sprintf(
		"%s/IEconService/GetTradeOffers/v1/?key=%s&active_only=1&get_sent_offers=0&get_received_offers=1",
		c.apiBaseURL, c.apiKey,
	)
	return c.getActiveTradeOffersFrom(ctx, url)
}

func (c *Client) getActiveTradeOffersFrom(ctx context.Context, url string) ([]tradeengine.TradeOffer, error) {
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("steam: fetch active trade offers: %w", err)
	}

	var parsed struct {
		Response struct {
			TradeOffersReceived []tradeOfferDTO `json:"trade_offers_received"`
		} `json:"response"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("steam: decode trade offers: %w", err)
	}

	offers := make([]tradeengine.TradeOffer, 0, len(parsed.Response.TradeOffersReceived))
	for _, dto := range parsed.Response.TradeOffersReceived {
		offer, err := dto.toOffer()
		if err != nil {
			continue // malformed entries are skipped rather than failing the whole fetch
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

func (dto tradeOfferDTO) toOffer() (tradeengine.TradeOffer, error) {
	id, err := strconv.ParseUint(dto.TradeOfferID, 10, 64)
	if err != nil {
		return tradeengine.TradeOffer{}, err
	}
	give := make([]tradeengine.Item, 0, len(dto.ItemsToGive))
	for _, it := range dto.ItemsToGive {
		give = append(give, it.toItem())
	}
	receive := make([]tradeengine.Item, 0, len(dto.ItemsToReceive))
	for _, it := range dto.ItemsToReceive {
		receive = append(receive, it.toItem())
	}
	return tradeengine.TradeOffer{
		TradeOfferID:   id,
		OtherSteamID64: accountIDToSteamID64(dto.AccountIDOther),
		State:          toTradeOfferState(dto.TradeOfferState),
		ItemsToGive:    give,
		ItemsToReceive: receive,
	}, nil
}

func (it itemDTO) toItem() tradeengine.Item {
	classID, _ := strconv.ParseUint(it.ClassID, 10, 64)
	amount, _ := strconv.ParseUint(it.Amount, 10, 32)
	return tradeengine.Item{
		AppID:      it.AppID,
		RealAppID:  it.AppID,
		ClassID:    classID,
		Amount:     uint32(amount),
		Tradable:   it.Tradable == 1,
		Marketable: it.Marketable == 1,
	}
}

// toTradeOfferState maps Steam's numeric ETradeOfferState to our enum; only
// state 2 (Active) is ever handed off to evaluation.
func toTradeOfferState(state int) tradeengine.TradeOfferState {
	switch state {
	case 2:
		return tradeengine.TradeOfferStateActive
	case 3:
		return tradeengine.TradeOfferStateAccepted
	case 6:
		return tradeengine.TradeOfferStateDeclined
	case 7:
		return tradeengine.TradeOfferStateCanceled
	case 11:
		return tradeengine.TradeOfferStateExpired
	case 9:
		return tradeengine.TradeOfferStateInEscrow
	default:
		return tradeengine.TradeOfferStateUnknown
	}
}

// accountIDToSteamID64 expands a 32-bit Steam account id into a 64-bit
// SteamID using the standard individual-account universe/type identifier.
func accountIDToSteamID64(accountID uint32) uint64 {
	if accountID == 0 {
		return 0
	}
	const individualAccountBase = uint64(0x0110000100000000)
	return individualAccountBase + uint64(accountID)
}

// AcceptTradeOffer implements tradeengine.TradeOfferClient.
func (c *Client) AcceptTradeOffer(ctx context.Context, tradeOfferID uint64) (bool, bool, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":          c.apiKey,
			"tradeofferid": strconv.FormatUint(tradeOfferID, 10),
		}).
		Post(c.apiBaseURL + "/IEconService/AcceptTradeOffer/v1/")
	if err != nil {
		return false, false, fmt.Errorf("steam: accept offer %d: %w", tradeOfferID, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return false, false, fmt.Errorf("steam: accept offer %d: status %s", tradeOfferID, resp.Status())
	}

	var parsed struct {
		Response struct {
			NeedsMobileConfirmation bool `json:"needs_mobile_confirmation"`
		} `json:"response"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return false, false, fmt.Errorf("steam: decode accept response for %d: %w", tradeOfferID, err)
	}
	return true, parsed.Response.NeedsMobileConfirmation, nil
}

// DeclineTradeOffer implements tradeengine.TradeOfferClient.
func (c *Client) DeclineTradeOffer(ctx context.Context, tradeOfferID uint64) (bool, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":          c.apiKey,
			"tradeofferid": strconv.FormatUint(tradeOfferID, 10),
		}).
		Post(c.apiBaseURL + "/IEconService/DeclineTradeOffer/v1/")
	if err != nil {
		return false, fmt.Errorf("steam: decline offer %d: %w", tradeOfferID, err)
	}
	return resp.StatusCode() == http.StatusOK, nil
}

// GetTradeHoldDuration implements tradeengine.TradeHoldQuerier.
func (c *Client) GetTradeHoldDuration(ctx context.Context, otherSteamID64 uint64, tradeOfferID uint64) (uint8, bool, error) {
	url := fmt.Sprintf(
		"%s/IEconService/GetTradeHoldDurations/v1/?key=%s&steamid_target=%d&trade_offer_id=%d",
		c.apiBaseURL, c.apiKey, otherSteamID64, tradeOfferID,
	)
	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, false, fmt.Errorf("steam: trade hold duration for offer %d: %w", tradeOfferID, err)
	}

	var parsed struct {
		Response struct {
			BothTradeHold struct {
				HoldDurationSeconds int64 `json:"both_trade_hold_duration"`
			} `json:"holds"`
		} `json:"response"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return 0, false, fmt.Errorf("steam: decode trade hold response for %d: %w", tradeOfferID, err)
	}

	days := parsed.Response.BothTradeHold.HoldDurationSeconds / int64((24 * time.Hour).Seconds())
	if days > 255 {
		days = 255
	}
	return uint8(days), true, nil
}
