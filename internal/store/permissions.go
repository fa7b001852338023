package store

import (
	"context"
	"fmt"

	"tradeengine/internal/models"
)

// PermissionStore implements tradeengine.PermissionSource against the
// Permission table.
type PermissionStore struct {
	db *Store
}

func (s *Store) Permissions() *PermissionStore {
	return &PermissionStore{db: s}
}

func (p *PermissionStore) has(ctx context.Context, botAccountID, counterparty uint64, level models.PermissionLevel) (bool, error) {
	var count int64
	err := p.db.db.WithContext(ctx).
		Model(&models.Permission{}).
		Where("bot_account_id = ? AND counterparty_steam_id_64 = ? AND level = ?", botAccountID, counterparty, level).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("store: permission lookup: %w", err)
	}
	return count > 0, nil
}

func (p *PermissionStore) IsMaster(ctx context.Context, botAccountID, counterparty uint64) (bool, error) {
	return p.has(ctx, botAccountID, counterparty, models.PermissionMaster)
}

func (p *PermissionStore) IsBlacklisted(ctx context.Context, botAccountID, counterparty uint64) (bool, error) {
	return p.has(ctx, botAccountID, counterparty, models.PermissionBlacklisted)
}

func (p *PermissionStore) IsOwnBot(ctx context.Context, botAccountID, counterparty uint64) (bool, error) {
	return p.has(ctx, botAccountID, counterparty, models.PermissionOwnBot)
}

// Grant inserts a permission row unless an identical one already exists
// (gorm FirstOrCreate); any database error is returned.
func (p *PermissionStore) Grant(ctx context.Context, botAccountID uint, counterparty uint64, level models.PermissionLevel) error {
	grant := models.Permission{BotAccountID: botAccountID, CounterpartySteamID64: counterparty, Level: level}
	err := p.db.db.WithContext(ctx).Where(grant).FirstOrCreate(&grant).Error
	if err != nil {
		return fmt.Errorf("store: grant permission: %w", err)
	}
	return nil
}

func (p *PermissionStore) Revoke(ctx context.Context, botAccountID uint, counterparty uint64, level models.PermissionLevel) error {
	err := p.db.db.WithContext(ctx).
		Where("bot_account_id = ? AND counterparty_steam_id_64 = ? AND level = ?", botAccountID, counterparty, level).
		Delete(&models.Permission{}).Error
	if err != nil {
		return fmt.Errorf("store: revoke permission: %w", err)
	}
	return nil
}
