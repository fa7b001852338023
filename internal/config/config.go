package config

import (
	"os"
	"strconv"
	"strings"

	"tradeengine/internal/models"
	"tradeengine/internal/tradeengine"
)

// Config holds process-wide settings loaded from the environment: ambient
// infrastructure (database, API keys, HTTP port) plus a default trading
// policy. PolicyFromAccount takes only DefaultPolicy's MatchableTypes,
// LootableTypes and ShortLivedSaleGames, for accounts whose row leaves
// those blank; the boolean flags and MaxTradeHoldDuration always come from
// the account row.
type Config struct {
	DatabaseURL    string
	SteamAPIKey    string
	JWTSecret      string
	Port           string
	Environment    string
	EventFeedURL   string
	IdentitySecret string
	SharedSecret   string

	DefaultPolicy tradeengine.Config
}

func Load() *Config {
	defaultDSN := "trader:trader@tcp(127.0.0.1:3306)/tradeengine?charset=utf8mb4&parseTime=True&loc=Local"

	return &Config{
		DatabaseURL:    getEnv("DATABASE_URL", defaultDSN),
		SteamAPIKey:    getEnv("STEAM_API_KEY", ""),
		JWTSecret:      getEnv("JWT_SECRET", "change-me"),
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		EventFeedURL:   getEnv("EVENT_FEED_URL", ""),
		IdentitySecret: getEnv("STEAM_IDENTITY_SECRET", ""),
		SharedSecret:   getEnv("STEAM_SHARED_SECRET", ""),

		DefaultPolicy: tradeengine.Config{
			AcceptDonations:       getEnvBool("ACCEPT_DONATIONS", false),
			DontAcceptBotTrades:   getEnvBool("DONT_ACCEPT_BOT_TRADES", false),
			SteamTradeMatcher:     getEnvBool("STEAM_TRADE_MATCHER", true),
			MatchEverything:       getEnvBool("MATCH_EVERYTHING", false),
			RejectInvalidTrades:   getEnvBool("REJECT_INVALID_TRADES", true),
			SendOnFarmingFinished: getEnvBool("SEND_ON_FARMING_FINISHED", false),
			MatchableTypes:        parseItemTypes(getEnv("MATCHABLE_TYPES", "TradingCard,FoilCard")),
			LootableTypes:         parseItemTypes(getEnv("LOOTABLE_TYPES", "TradingCard,FoilCard")),
			MaxTradeHoldDuration:  getEnvUint8("MAX_TRADE_HOLD_DURATION", 0),
			ShortLivedSaleGames:   parseAppIDs(getEnv("SHORT_LIVED_SALE_GAMES", "")),
		},
	}
}

// PolicyFromAccount builds the tradeengine.Config a bot account's stored
// policy row describes, falling back to field-by-field defaults for any
// comma-list field the account left blank.
func PolicyFromAccount(a models.BotAccount, fallback tradeengine.Config) tradeengine.Config {
	policy := tradeengine.Config{
		AcceptDonations:       a.AcceptDonations,
		DontAcceptBotTrades:   a.DontAcceptBotTrades,
		SteamTradeMatcher:     a.SteamTradeMatcher,
		MatchEverything:       a.MatchEverything,
		RejectInvalidTrades:   a.RejectInvalidTrades,
		SendOnFarmingFinished: a.SendOnFarmingFinished,
		MaxTradeHoldDuration:  a.MaxTradeHoldDuration,
		MatchableTypes:        fallback.MatchableTypes,
		LootableTypes:         fallback.LootableTypes,
		ShortLivedSaleGames:   fallback.ShortLivedSaleGames,
	}
	if a.MatchableTypes != "" {
		policy.MatchableTypes = parseItemTypes(a.MatchableTypes)
	}
	if a.LootableTypes != "" {
		policy.LootableTypes = parseItemTypes(a.LootableTypes)
	}
	if a.ShortLivedSaleGames != "" {
		policy.ShortLivedSaleGames = parseAppIDs(a.ShortLivedSaleGames)
	}
	return policy
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvUint8(key string, defaultValue uint8) uint8 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return defaultValue
	}
	return uint8(parsed)
}

var itemTypeNames = map[string]tradeengine.ItemType{
	"tradingcard": tradeengine.ItemTypeTradingCard,
	"foilcard":    tradeengine.ItemTypeFoilCard,
	"emoticon":    tradeengine.ItemTypeEmoticon,
	"background":  tradeengine.ItemTypeBackground,
	"saleitem":    tradeengine.ItemTypeSaleItem,
}

func parseItemTypes(csv string) map[tradeengine.ItemType]struct{} {
	out := make(map[tradeengine.ItemType]struct{})
	for _, raw := range strings.Split(csv, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if t, ok := itemTypeNames[name]; ok {
			out[t] = struct{}{}
		}
	}
	return out
}

func parseAppIDs(csv string) map[uint32]struct{} {
	out := make(map[uint32]struct{})
	for _, raw := range strings.Split(csv, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			continue
		}
		out[uint32(id)] = struct{}{}
	}
	return out
}
