package postgresadapter

import (
	"context"
	"strings"
	"time"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
)

type accountModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Username  string    `gorm:"column:username;not null"`
	Balance   int64     `gorm:"column:balance;not null;check:balance >= 0"`
	Version   int64     `gorm:"column:version;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (accountModel) TableName() string {
	return "ledger_accounts"
}

func (m accountModel) toEntity() entities.Account {
	return entities.Account{
		UserID:    m.UserID,
		Username:  m.Username,
		Balance:   m.Balance,
		Version:   m.Version,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type rewardItemModel struct {
	ItemID    string     `gorm:"column:item_id;primaryKey"`
	OwnerID   string     `gorm:"column:owner_id;not null;index"`
	ProductID string     `gorm:"column:product_id;not null"`
	State     string     `gorm:"column:state;not null"`
	Source    string     `gorm:"column:source;not null"`
	SourceRef string     `gorm:"column:source_ref"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
	UsedAt    *time.Time `gorm:"column:used_at"`
}

func (rewardItemModel) TableName() string {
	return "ledger_reward_items"
}

func rewardItemModelFromEntity(item entities.RewardItem) rewardItemModel {
	row := rewardItemModel{
		ItemID:    strings.TrimSpace(item.ItemID),
		OwnerID:   strings.TrimSpace(item.OwnerID),
		ProductID: strings.TrimSpace(item.ProductID),
		State:     string(item.State),
		Source:    string(item.Source),
		SourceRef: strings.TrimSpace(item.SourceRef),
		CreatedAt: item.CreatedAt.UTC(),
		UpdatedAt: item.UpdatedAt.UTC(),
		UsedAt:    item.UsedAt,
	}
	if row.State == "" {
		row.State = string(entities.ItemStateUnused)
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m rewardItemModel) toEntity() entities.RewardItem {
	var usedAt *time.Time
	if m.UsedAt != nil {
		value := m.UsedAt.UTC()
		usedAt = &value
	}
	return entities.RewardItem{
		ItemID:    m.ItemID,
		OwnerID:   m.OwnerID,
		ProductID: m.ProductID,
		State:     entities.ItemState(m.State),
		Source:    entities.ItemSource(m.Source),
		SourceRef: m.SourceRef,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
		UsedAt:    usedAt,
	}
}

type transferModel struct {
	TransferID string    `gorm:"column:transfer_id;primaryKey"`
	Kind       string    `gorm:"column:kind;not null"`
	FromUserID string    `gorm:"column:from_user_id;not null;index"`
	ToUserID   string    `gorm:"column:to_user_id;not null;index"`
	Amount     int64     `gorm:"column:amount"`
	ItemID     string    `gorm:"column:item_id"`
	Status     string    `gorm:"column:status;not null"`
	RejectCode string    `gorm:"column:reject_code"`
	RequestID  string    `gorm:"column:request_id"`
	CreatedAt  time.Time `gorm:"column:created_at;index"`
}

func (transferModel) TableName() string {
	return "ledger_transfers"
}

func transferModelFromEntity(record entities.TransferRecord) transferModel {
	return transferModel{
		TransferID: strings.TrimSpace(record.TransferID),
		Kind:       string(record.Kind),
		FromUserID: strings.TrimSpace(record.FromUserID),
		ToUserID:   strings.TrimSpace(record.ToUserID),
		Amount:     record.Amount,
		ItemID:     strings.TrimSpace(record.ItemID),
		Status:     string(record.Status),
		RejectCode: record.RejectCode,
		RequestID:  strings.TrimSpace(record.RequestID),
		CreatedAt:  record.CreatedAt.UTC(),
	}
}

func (m transferModel) toEntity() entities.TransferRecord {
	return entities.TransferRecord{
		TransferID: m.TransferID,
		Kind:       entities.TransferKind(m.Kind),
		FromUserID: m.FromUserID,
		ToUserID:   m.ToUserID,
		Amount:     m.Amount,
		ItemID:     m.ItemID,
		Status:     entities.TransferStatus(m.Status),
		RejectCode: m.RejectCode,
		RequestID:  m.RequestID,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type voteRewardGrantModel struct {
	GrantID   string    `gorm:"column:grant_id;primaryKey"`
	UserID    string    `gorm:"column:user_id;not null"`
	Amount    int64     `gorm:"column:amount"`
	ProductID string    `gorm:"column:product_id"`
	ItemID    string    `gorm:"column:item_id"`
	GrantedAt time.Time `gorm:"column:granted_at"`
}

func (voteRewardGrantModel) TableName() string {
	return "ledger_vote_reward_grants"
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	TransferID  string    `gorm:"column:transfer_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "ledger_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	Seq          int64      `gorm:"column:seq;autoIncrement"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	SentAt       *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "ledger_outbox"
}

// Migrate creates the ledger tables. The partial index makes a request id
// produce at most one completed transfer per sender.
func (r *Repository) Migrate(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(
		&accountModel{},
		&rewardItemModel{},
		&transferModel{},
		&voteRewardGrantModel{},
		&idempotencyModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("ledger_repo_migrate_failed", err)
	}
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_transfers_request
			ON ledger_transfers (from_user_id, request_id)
			WHERE status = 'completed' AND request_id <> ''`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_accounts_username
			ON ledger_accounts (LOWER(username))`,
	}
	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return r.logError("ledger_repo_migrate_index_failed", err)
		}
	}
	return nil
}
