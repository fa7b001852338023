// Package models holds the gorm-backed persistence types: bot accounts,
// permission grants, and the decision audit trail. None of these are read
// by the pure decision core in internal/tradeengine.
package models

import (
	"time"

	"gorm.io/gorm"
)

// BotAccount is one managed trading account.
type BotAccount struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	SteamID64        uint64 `json:"steam_id_64" gorm:"unique;not null"`
	DisplayName      string `json:"display_name"`
	SharedSecret     string `json:"-"`
	IdentitySecret   string `json:"-"`
	HasAuthenticator bool   `json:"has_authenticator"`

	AcceptDonations       bool   `json:"accept_donations"`
	DontAcceptBotTrades   bool   `json:"dont_accept_bot_trades"`
	SteamTradeMatcher     bool   `json:"steam_trade_matcher"`
	MatchEverything       bool   `json:"match_everything"`
	RejectInvalidTrades   bool   `json:"reject_invalid_trades"`
	SendOnFarmingFinished bool   `json:"send_on_farming_finished"`
	MatchableTypes        string `json:"matchable_types"` // comma-separated ItemType names
	LootableTypes         string `json:"lootable_types"`  // comma-separated ItemType names
	MaxTradeHoldDuration  uint8  `json:"max_trade_hold_duration"`
	ShortLivedSaleGames   string `json:"short_lived_sale_games"` // comma-separated realAppIds

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PermissionLevel mirrors the three identity questions ShouldAcceptTrade
// asks about a counterparty.
type PermissionLevel string

const (
	PermissionMaster      PermissionLevel = "master"
	PermissionBlacklisted PermissionLevel = "blacklisted"
	PermissionOwnBot      PermissionLevel = "own_bot"
)

// Permission grants one level to one counterparty for one bot account. A
// counterparty may hold more than one level (e.g. an own bot that is also
// a Master on another account).
type Permission struct {
	ID                    uint            `json:"id" gorm:"primaryKey"`
	BotAccountID          uint            `json:"bot_account_id" gorm:"not null;uniqueIndex:idx_permission_unique"`
	CounterpartySteamID64 uint64          `json:"counterparty_steam_id_64" gorm:"not null;uniqueIndex:idx_permission_unique"`
	Level                 PermissionLevel `json:"level" gorm:"not null;uniqueIndex:idx_permission_unique"`
	CreatedAt             time.Time       `json:"created_at"`
}

// AuditRecord is an append-only log of every ParseTradeResult the engine
// has produced, for operational visibility and export. It is purely
// observational: the decision core never reads it back.
type AuditRecord struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	BotAccountID      uint      `json:"bot_account_id" gorm:"index;not null"`
	TradeOfferID      uint64    `json:"trade_offer_id" gorm:"index;not null"`
	Result            string    `json:"result"`
	ReceivedItemTypes string    `json:"received_item_types"` // comma-separated
	CreatedAt         time.Time `json:"created_at" gorm:"index"`
}
