package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rewardledger/contexts/player-economy/vote-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/vote-service/domain/errors"
	"rewardledger/contexts/player-economy/vote-service/domain/services"
	"rewardledger/contexts/player-economy/vote-service/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	moduleName          = "player-economy/vote-service"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetCooldown(ctx context.Context, userID string, actionClass string) (entities.CooldownEntry, bool, error) {
	var row cooldownModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND action_class = ?", strings.TrimSpace(userID), strings.TrimSpace(actionClass)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CooldownEntry{}, false, nil
		}
		return entities.CooldownEntry{}, false, r.logError("vote_repo_get_cooldown_failed", err,
			"user_id", strings.TrimSpace(userID),
			"action_class", strings.TrimSpace(actionClass),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListCooldowns(ctx context.Context, userID string) ([]entities.CooldownEntry, error) {
	var rows []cooldownModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("action_class ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("vote_repo_list_cooldowns_failed", err, "user_id", strings.TrimSpace(userID))
	}
	items := make([]entities.CooldownEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// AdvanceCooldown upserts with GREATEST, so the stored eligible time only
// moves forward whatever order concurrent writers commit in.
func (r *Repository) AdvanceCooldown(ctx context.Context, entry entities.CooldownEntry) (entities.CooldownEntry, error) {
	var stored entities.CooldownEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stored, err = advanceCooldown(tx, entry, nil)
		return err
	})
	if err != nil {
		return entities.CooldownEntry{}, r.logError("vote_repo_advance_cooldown_failed", err,
			"user_id", entry.UserID,
			"action_class", entry.ActionClass,
		)
	}
	return stored, nil
}

// CommitVote claims the cooldown with a conditional upsert that only applies
// when the existing entry has expired at the submission time. Zero affected
// rows means a concurrent vote won.
func (r *Repository) CommitVote(
	ctx context.Context,
	vote entities.VoteRecord,
	actionClass string,
	event ports.VoteEvent,
) (entities.CooldownEntry, error) {
	envelope, err := event.Envelope()
	if err != nil {
		return entities.CooldownEntry{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return entities.CooldownEntry{}, err
	}

	var stored entities.CooldownEntry
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		submittedAt := vote.SubmittedAt.UTC()
		var err error
		stored, err = advanceCooldown(tx, entities.CooldownEntry{
			UserID:      vote.UserID,
			ActionClass: actionClass,
			EligibleAt:  vote.EligibleAt,
			UpdatedAt:   submittedAt,
		}, &submittedAt)
		if err != nil {
			return err
		}

		row := voteModel{
			VoteID:          strings.TrimSpace(vote.VoteID),
			UserID:          strings.TrimSpace(vote.UserID),
			ProviderID:      strings.TrimSpace(vote.ProviderID),
			SubmittedAt:     submittedAt,
			EligibleAt:      vote.EligibleAt.UTC(),
			RewardAmount:    vote.RewardAmount,
			RewardProductID: strings.TrimSpace(vote.RewardProductID),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		outbox := outboxModel{
			OutboxID:     strings.TrimSpace(event.EventID),
			EventType:    strings.TrimSpace(event.EventType),
			PartitionKey: strings.TrimSpace(event.PartitionKey),
			Payload:      payload,
			Status:       outboxStatusPending,
			CreatedAt:    event.OccurredAt.UTC(),
		}
		return tx.Create(&outbox).Error
	})
	if err != nil {
		var cooldownErr *domainerrors.CooldownActiveError
		if errors.As(err, &cooldownErr) {
			return entities.CooldownEntry{}, err
		}
		return entities.CooldownEntry{}, r.logError("vote_repo_commit_vote_failed", err,
			"vote_id", vote.VoteID,
			"user_id", vote.UserID,
			"provider_id", vote.ProviderID,
		)
	}
	return stored, nil
}

func (r *Repository) GetVote(ctx context.Context, voteID string) (entities.VoteRecord, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("vote_id = ?", strings.TrimSpace(voteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteRecord{}, domainerrors.ErrVoteNotFound
		}
		return entities.VoteRecord{}, r.logError("vote_repo_get_vote_failed", err, "vote_id", strings.TrimSpace(voteID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListVotesByUser(ctx context.Context, userID string, limit int) ([]entities.VoteRecord, error) {
	tx := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("submitted_at DESC").
		Order("vote_id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []voteModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, r.logError("vote_repo_list_votes_failed", err, "user_id", strings.TrimSpace(userID))
	}
	items := make([]entities.VoteRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("vote_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("vote_repo_mark_outbox_sent_failed", result.Error, "outbox_id", strings.TrimSpace(outboxID))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", moduleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("vote repository operation failed", fields...)
	return err
}

// advanceCooldown writes max(existing, entry.EligibleAt). When expiredAt is
// set the update only applies to entries already expired at that time, and a
// running cooldown is returned as *CooldownActiveError.
func advanceCooldown(tx *gorm.DB, entry entities.CooldownEntry, expiredAt *time.Time) (entities.CooldownEntry, error) {
	row := cooldownModel{
		UserID:      strings.TrimSpace(entry.UserID),
		ActionClass: strings.TrimSpace(entry.ActionClass),
		EligibleAt:  entry.EligibleAt.UTC(),
		UpdatedAt:   entry.UpdatedAt.UTC(),
	}
	conflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "action_class"}},
		DoUpdates: clause.Assignments(map[string]any{
			"eligible_at": gorm.Expr("GREATEST(vote_cooldowns.eligible_at, EXCLUDED.eligible_at)"),
			"updated_at":  gorm.Expr("EXCLUDED.updated_at"),
		}),
	}
	if expiredAt != nil {
		conflict.Where = clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "vote_cooldowns.eligible_at <= ?", Vars: []any{expiredAt.UTC()}},
		}}
	}
	result := tx.Clauses(conflict).Create(&row)
	if result.Error != nil {
		return entities.CooldownEntry{}, result.Error
	}

	var stored cooldownModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND action_class = ?", row.UserID, row.ActionClass).
		First(&stored).Error; err != nil {
		return entities.CooldownEntry{}, err
	}
	if result.RowsAffected == 0 && expiredAt != nil {
		current := stored.toEntity()
		return entities.CooldownEntry{}, &domainerrors.CooldownActiveError{
			Remaining:  services.Remaining(&current, *expiredAt),
			EligibleAt: current.EligibleAt,
		}
	}
	return stored.toEntity(), nil
}

var (
	_ ports.CooldownRepository = (*Repository)(nil)
	_ ports.VoteRepository     = (*Repository)(nil)
	_ ports.OutboxRepository   = (*Repository)(nil)
)
