package postgresadapter

import (
	"context"
	"time"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
)

type cooldownModel struct {
	UserID      string    `gorm:"column:user_id;primaryKey"`
	ActionClass string    `gorm:"column:action_class;primaryKey"`
	EligibleAt  time.Time `gorm:"column:eligible_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (cooldownModel) TableName() string {
	return "vote_cooldowns"
}

func (m cooldownModel) toEntity() entities.CooldownEntry {
	return entities.CooldownEntry{
		UserID:      m.UserID,
		ActionClass: m.ActionClass,
		EligibleAt:  m.EligibleAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type voteModel struct {
	VoteID          string    `gorm:"column:vote_id;primaryKey"`
	UserID          string    `gorm:"column:user_id;not null;index"`
	ProviderID      string    `gorm:"column:provider_id;not null"`
	SubmittedAt     time.Time `gorm:"column:submitted_at;index"`
	EligibleAt      time.Time `gorm:"column:eligible_at"`
	RewardAmount    int64     `gorm:"column:reward_amount"`
	RewardProductID string    `gorm:"column:reward_product_id"`
}

func (voteModel) TableName() string {
	return "vote_records"
}

func (m voteModel) toEntity() entities.VoteRecord {
	return entities.VoteRecord{
		VoteID:          m.VoteID,
		UserID:          m.UserID,
		ProviderID:      m.ProviderID,
		SubmittedAt:     m.SubmittedAt.UTC(),
		EligibleAt:      m.EligibleAt.UTC(),
		RewardAmount:    m.RewardAmount,
		RewardProductID: m.RewardProductID,
	}
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
	return "vote_outbox"
}

func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&cooldownModel{},
		&voteModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("vote_repo_migrate_failed", err)
	}
	return nil
}
