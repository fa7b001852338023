// Package store is the gorm/MySQL-backed adapter for bot configuration,
// the permission registry, the audit trail, and the per-account trading
// lock.
package store

import (
	"fmt"
	"log"
	"time"

	"tradeengine/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Initialize opens the MySQL connection and runs auto-migration for the
// ambient persistence models.
func Initialize(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.BotAccount{}, &models.Permission{}, &models.AuditRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Println("store: database initialized successfully")
	return db, nil
}

// Store bundles the gorm-backed adapters the engine wires into each bot's
// tradeengine.DecisionPolicy, tradeengine.Scheduler, and
// tradeengine.OfferPipeline.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// BotAccountByID loads one managed account's row, including its trading
// policy configuration.
func (s *Store) BotAccountByID(id uint) (*models.BotAccount, error) {
	var account models.BotAccount
	if err := s.db.First(&account, id).Error; err != nil {
		return nil, fmt.Errorf("store: bot account %d: %w", id, err)
	}
	return &account, nil
}

// AllBotAccounts returns every managed account, for the daemon to start
// one engine instance per bot.
func (s *Store) AllBotAccounts() ([]models.BotAccount, error) {
	var accounts []models.BotAccount
	if err := s.db.Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("store: list bot accounts: %w", err)
	}
	return accounts, nil
}

// AppendAudit records one decision outcome. Failures are logged, never
// returned: the audit trail is observational and must never block or fail
// a parsing pass.
func (s *Store) AppendAudit(record models.AuditRecord) {
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("store: failed to append audit record for offer %d: %v", record.TradeOfferID, err)
	}
}

// AuditHistory returns a bot account's audit trail, most recent first, for
// the export feature.
func (s *Store) AuditHistory(botAccountID uint) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	if err := s.db.Where("bot_account_id = ?", botAccountID).Order("created_at desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("store: audit history for bot %d: %w", botAccountID, err)
	}
	return records, nil
}
