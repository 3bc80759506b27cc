package governance

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wakichain/ids"
)

// ReceiptRow is the gorm-mapped read-model row for a single CoinTransfer
// proposal receipt, projected out of the authoritative cache-layer state so
// operators and explorers can query receipt history with SQL instead of
// replaying the KV store.
type ReceiptRow struct {
	ID         uint   `gorm:"primaryKey"`
	ProposalId string `gorm:"index;size:64"`
	FromUser   string
	ToUser     string
	Token      string
	Amount     uint64
	Code       string
}

func (ReceiptRow) TableName() string { return "governance_receipts" }

// ReceiptStore is the SQL-backed read model for governance receipts,
// separate from Store (the authoritative cache.Layer-backed state every
// variant Check/Execute reads and writes).
type ReceiptStore struct {
	db *gorm.DB
}

// OpenReceiptStore opens (creating if absent) a sqlite database at path and
// migrates the receipt table.
func OpenReceiptStore(path string) (*ReceiptStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("governance: open receipt store: %w", err)
	}
	if err := db.AutoMigrate(&ReceiptRow{}); err != nil {
		return nil, fmt.Errorf("governance: migrate receipt store: %w", err)
	}
	return &ReceiptStore{db: db}, nil
}

// Project appends receipts emitted by a CoinTransfer proposal's Execute to
// the read model. Called by the node's block-application path after a
// successful Engine.Execute, never by the variant handlers themselves (they
// only know about the authoritative Store).
func (rs *ReceiptStore) Project(proposalID ids.Hash256, receipts []Receipt) error {
	rows := make([]ReceiptRow, 0, len(receipts))
	for _, r := range receipts {
		rows = append(rows, ReceiptRow{
			ProposalId: proposalID.String(),
			FromUser:   r.From.String(),
			ToUser:     r.To.String(),
			Token:      string(r.Token),
			Amount:     r.Amount,
			Code:       r.Code,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := rs.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("governance: project receipts: %w", err)
	}
	return nil
}

// ForProposal returns every receipt row projected for proposalID, ordered by
// insertion.
func (rs *ReceiptStore) ForProposal(proposalID ids.Hash256) ([]ReceiptRow, error) {
	var rows []ReceiptRow
	if err := rs.db.Where("proposal_id = ?", proposalID.String()).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("governance: query receipts: %w", err)
	}
	return rows, nil
}

// ForAccount returns every receipt row touching userID as either side of the
// transfer, most recent first.
func (rs *ReceiptStore) ForAccount(userID ids.UserId, limit int) ([]ReceiptRow, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ReceiptRow
	addr := userID.String()
	if err := rs.db.Where("from_user = ? OR to_user = ?", addr, addr).Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("governance: query account receipts: %w", err)
	}
	return rows, nil
}
