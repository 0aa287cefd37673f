package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	"rewardledger/contexts/player-economy/ledger-service/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
	moduleName          = "player-economy/ledger-service"
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

func (r *Repository) GetAccount(ctx context.Context, userID string) (entities.Account, error) {
	var row accountModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, domainerrors.ErrAccountNotFound
		}
		return entities.Account{}, r.logError("ledger_repo_get_account_failed", err, "user_id", strings.TrimSpace(userID))
	}
	return row.toEntity(), nil
}

func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (entities.Account, error) {
	var row accountModel
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", strings.TrimSpace(username)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Account{}, domainerrors.ErrAccountNotFound
		}
		return entities.Account{}, r.logError("ledger_repo_get_account_by_username_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetBalance(ctx context.Context, userID string) (int64, error) {
	account, err := r.GetAccount(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (r *Repository) AdjustBalance(ctx context.Context, userID string, delta int64, at time.Time) (entities.Account, error) {
	var updated entities.Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := lockAccounts(tx, strings.TrimSpace(userID))
		if err != nil {
			return err
		}
		updated, err = rows[strings.TrimSpace(userID)].toEntity().Adjust(delta, at)
		if err != nil {
			return err
		}
		return saveAccount(tx, updated)
	})
	if err != nil {
		if isDomainError(err) {
			return entities.Account{}, err
		}
		return entities.Account{}, r.logError("ledger_repo_adjust_balance_failed", err, "user_id", strings.TrimSpace(userID))
	}
	return updated, nil
}

func (r *Repository) GetItem(ctx context.Context, itemID string) (entities.RewardItem, error) {
	var row rewardItemModel
	err := r.db.WithContext(ctx).
		Where("item_id = ?", strings.TrimSpace(itemID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RewardItem{}, domainerrors.ErrItemNotFound
		}
		return entities.RewardItem{}, r.logError("ledger_repo_get_item_failed", err, "item_id", strings.TrimSpace(itemID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListItemsByOwner(ctx context.Context, ownerID string, state entities.ItemState) ([]entities.RewardItem, error) {
	tx := r.db.WithContext(ctx).Model(&rewardItemModel{}).
		Where("owner_id = ?", strings.TrimSpace(ownerID))
	if state != "" {
		tx = tx.Where("state = ?", string(state))
	}
	var rows []rewardItemModel
	if err := tx.Order("created_at DESC").Order("item_id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_items_failed", err, "owner_id", strings.TrimSpace(ownerID))
	}
	items := make([]entities.RewardItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) TransferItemOwnership(
	ctx context.Context,
	itemID string,
	fromUserID string,
	toUserID string,
	at time.Time,
) (entities.RewardItem, error) {
	var moved entities.RewardItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		moved, err = moveItem(tx, itemID, fromUserID, toUserID, at)
		return err
	})
	if err != nil {
		if isDomainError(err) {
			return entities.RewardItem{}, err
		}
		return entities.RewardItem{}, r.logError("ledger_repo_transfer_item_failed", err, "item_id", strings.TrimSpace(itemID))
	}
	return moved, nil
}

func (r *Repository) MarkItemUsed(ctx context.Context, itemID string, userID string, at time.Time) (entities.RewardItem, error) {
	var used entities.RewardItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		used, err = markItemUsed(tx, itemID, userID, at)
		return err
	})
	if err != nil {
		if isDomainError(err) {
			return entities.RewardItem{}, err
		}
		return entities.RewardItem{}, r.logError("ledger_repo_mark_item_used_failed", err, "item_id", strings.TrimSpace(itemID))
	}
	return used, nil
}

func (r *Repository) CreateItem(ctx context.Context, item entities.RewardItem) error {
	row := rewardItemModelFromEntity(item)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariant
		}
		if isForeignKeyViolation(err) {
			return domainerrors.ErrAccountNotFound
		}
		return r.logError("ledger_repo_create_item_failed", err, "item_id", row.ItemID)
	}
	return nil
}

// CommitBalanceTransfer locks both account rows in user-id order, so two
// opposite transfers between the same pair queue instead of deadlocking. The
// idempotency key is claimed first, so a concurrent twin waits on the key row
// and then sees it bound.
func (r *Repository) CommitBalanceTransfer(
	ctx context.Context,
	record entities.TransferRecord,
	event ports.LedgerEvent,
	claim *ports.IdempotencyRecord,
) error {
	outbox, err := outboxModelFromEvent(event)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimKey(tx, claim, record.CreatedAt); err != nil {
			return err
		}
		rows, err := lockAccounts(tx, record.FromUserID, record.ToUserID)
		if err != nil {
			return err
		}
		debited, err := rows[record.FromUserID].toEntity().Adjust(-record.Amount, record.CreatedAt)
		if err != nil {
			return err
		}
		credited, err := rows[record.ToUserID].toEntity().Adjust(record.Amount, record.CreatedAt)
		if err != nil {
			return err
		}
		if err := saveAccount(tx, debited); err != nil {
			return err
		}
		if err := saveAccount(tx, credited); err != nil {
			return err
		}
		if err := insertTransfer(tx, record); err != nil {
			return err
		}
		return tx.Create(&outbox).Error
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("ledger_repo_commit_balance_transfer_failed", err,
			"transfer_id", record.TransferID,
			"from_user_id", record.FromUserID,
			"to_user_id", record.ToUserID,
		)
	}
	return nil
}

func (r *Repository) CommitItemTransfer(
	ctx context.Context,
	record entities.TransferRecord,
	event ports.LedgerEvent,
	claim *ports.IdempotencyRecord,
) error {
	outbox, err := outboxModelFromEvent(event)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := claimKey(tx, claim, record.CreatedAt); err != nil {
			return err
		}
		if _, err := lockAccounts(tx, record.FromUserID, record.ToUserID); err != nil {
			return err
		}
		if _, err := moveItem(tx, record.ItemID, record.FromUserID, record.ToUserID, record.CreatedAt); err != nil {
			return err
		}
		if err := insertTransfer(tx, record); err != nil {
			return err
		}
		return tx.Create(&outbox).Error
	})
	if err != nil {
		if isDomainError(err) {
			return err
		}
		return r.logError("ledger_repo_commit_item_transfer_failed", err,
			"transfer_id", record.TransferID,
			"item_id", record.ItemID,
		)
	}
	return nil
}

func (r *Repository) CommitItemUse(
	ctx context.Context,
	itemID string,
	userID string,
	at time.Time,
	event ports.LedgerEvent,
) (entities.RewardItem, error) {
	outbox, err := outboxModelFromEvent(event)
	if err != nil {
		return entities.RewardItem{}, err
	}
	var used entities.RewardItem
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		used, err = markItemUsed(tx, itemID, userID, at)
		if err != nil {
			return err
		}
		return tx.Create(&outbox).Error
	})
	if err != nil {
		if isDomainError(err) {
			return entities.RewardItem{}, err
		}
		return entities.RewardItem{}, r.logError("ledger_repo_commit_item_use_failed", err, "item_id", strings.TrimSpace(itemID))
	}
	return used, nil
}

func (r *Repository) AppendRejectedTransfer(ctx context.Context, record entities.TransferRecord) error {
	if record.Completed() {
		return domainerrors.ErrRepositoryInvariant
	}
	row := transferModelFromEntity(record)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("ledger_repo_append_rejected_transfer_failed", err, "transfer_id", record.TransferID)
	}
	return nil
}

func (r *Repository) GetTransfer(ctx context.Context, transferID string) (entities.TransferRecord, error) {
	var row transferModel
	err := r.db.WithContext(ctx).
		Where("transfer_id = ?", strings.TrimSpace(transferID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TransferRecord{}, domainerrors.ErrTransferNotFound
		}
		return entities.TransferRecord{}, r.logError("ledger_repo_get_transfer_failed", err, "transfer_id", strings.TrimSpace(transferID))
	}
	return row.toEntity(), nil
}

func (r *Repository) ListTransfersByUser(ctx context.Context, userID string, limit int) ([]entities.TransferRecord, error) {
	userID = strings.TrimSpace(userID)
	tx := r.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Order("transfer_id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []transferModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_transfers_failed", err, "user_id", userID)
	}
	items := make([]entities.TransferRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

// ApplyVoteReward claims the grant row first; a conflict means another
// delivery of the same vote already credited it.
func (r *Repository) ApplyVoteReward(ctx context.Context, reward entities.VoteReward) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		grant := voteRewardGrantModel{
			GrantID:   strings.TrimSpace(reward.GrantID),
			UserID:    strings.TrimSpace(reward.UserID),
			Amount:    reward.Amount,
			ProductID: strings.TrimSpace(reward.ProductID),
			ItemID:    strings.TrimSpace(reward.ItemID),
			GrantedAt: reward.GrantedAt.UTC(),
		}
		claim := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "grant_id"}},
			DoNothing: true,
		}).Create(&grant)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}

		rows, err := lockAccounts(tx, grant.UserID)
		if err != nil {
			return err
		}
		account := rows[grant.UserID].toEntity()
		if reward.Amount > 0 {
			account, err = account.Adjust(reward.Amount, reward.GrantedAt)
			if err != nil {
				return err
			}
			if err := saveAccount(tx, account); err != nil {
				return err
			}
		}
		if grant.ProductID != "" {
			item, err := entities.NewRewardItem(
				grant.ItemID,
				account.UserID,
				grant.ProductID,
				entities.ItemSourceVoteReward,
				grant.GrantID,
				grant.GrantedAt,
			)
			if err != nil {
				return err
			}
			row := rewardItemModelFromEntity(item)
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			return false, err
		}
		return false, r.logError("ledger_repo_apply_vote_reward_failed", err, "grant_id", strings.TrimSpace(reward.GrantID))
	}
	return applied, nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		Where("expires_at > ?", now.UTC()).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("ledger_repo_get_idempotency_failed", err)
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		TransferID:  row.TransferID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ledger_repo_list_pending_outbox_failed", err, "limit", limit)
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
		return r.logError("ledger_repo_mark_outbox_sent_failed", result.Error, "outbox_id", strings.TrimSpace(outboxID))
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrRepositoryInvariant
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
	r.logger.Error("ledger repository operation failed", fields...)
	return err
}

// lockAccounts takes FOR UPDATE locks in ascending user_id order in a single
// statement and fails with ErrAccountNotFound if any id is missing.
func lockAccounts(tx *gorm.DB, userIDs ...string) (map[string]accountModel, error) {
	var rows []accountModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}
	byID := make(map[string]accountModel, len(rows))
	for _, row := range rows {
		byID[row.UserID] = row
	}
	for _, userID := range userIDs {
		if _, ok := byID[userID]; !ok {
			return nil, domainerrors.ErrAccountNotFound
		}
	}
	return byID, nil
}

// saveAccount writes through an optimistic version guard on top of the row
// lock.
func saveAccount(tx *gorm.DB, account entities.Account) error {
	result := tx.Model(&accountModel{}).
		Where("user_id = ?", account.UserID).
		Where("version = ?", account.Version-1).
		Updates(map[string]any{
			"balance":    account.Balance,
			"version":    account.Version,
			"updated_at": account.UpdatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return domainerrors.ErrRepositoryInvariant
	}
	return nil
}

func lockItem(tx *gorm.DB, itemID string) (rewardItemModel, error) {
	var row rewardItemModel
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ?", strings.TrimSpace(itemID)).
		First(&row).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return rewardItemModel{}, domainerrors.ErrItemNotFound
		}
		return rewardItemModel{}, err
	}
	return row, nil
}

func moveItem(tx *gorm.DB, itemID string, fromUserID string, toUserID string, at time.Time) (entities.RewardItem, error) {
	row, err := lockItem(tx, itemID)
	if err != nil {
		return entities.RewardItem{}, err
	}
	moved, err := row.toEntity().TransferTo(strings.TrimSpace(fromUserID), strings.TrimSpace(toUserID), at)
	if err != nil {
		return entities.RewardItem{}, err
	}
	if err := tx.Model(&rewardItemModel{}).
		Where("item_id = ?", moved.ItemID).
		Updates(map[string]any{
			"owner_id":   moved.OwnerID,
			"updated_at": moved.UpdatedAt,
		}).Error; err != nil {
		return entities.RewardItem{}, err
	}
	return moved, nil
}

func markItemUsed(tx *gorm.DB, itemID string, userID string, at time.Time) (entities.RewardItem, error) {
	row, err := lockItem(tx, itemID)
	if err != nil {
		return entities.RewardItem{}, err
	}
	used, err := row.toEntity().MarkUsed(strings.TrimSpace(userID), at)
	if err != nil {
		return entities.RewardItem{}, err
	}
	if err := tx.Model(&rewardItemModel{}).
		Where("item_id = ?", used.ItemID).
		Updates(map[string]any{
			"state":      string(used.State),
			"used_at":    used.UsedAt,
			"updated_at": used.UpdatedAt,
		}).Error; err != nil {
		return entities.RewardItem{}, err
	}
	return used, nil
}

// claimKey binds the key to the transfer inside the commit transaction. An
// expired row is taken over; a live one turns the commit into a replay or a
// conflict. A concurrent insert of the same key blocks until its transaction
// ends.
func claimKey(tx *gorm.DB, claim *ports.IdempotencyRecord, now time.Time) error {
	if claim == nil || strings.TrimSpace(claim.Key) == "" {
		return nil
	}
	row := idempotencyModel{
		Key:         strings.TrimSpace(claim.Key),
		RequestHash: strings.TrimSpace(claim.RequestHash),
		TransferID:  strings.TrimSpace(claim.TransferID),
		ExpiresAt:   claim.ExpiresAt.UTC(),
	}
	result := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"request_hash": row.RequestHash,
			"transfer_id":  row.TransferID,
			"expires_at":   row.ExpiresAt,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "ledger_idempotency.expires_at <= ?", Vars: []any{now.UTC()}},
		}},
	}).Create(&row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := tx.Where("key = ?", row.Key).First(&existing).Error; err != nil {
		return err
	}
	if existing.RequestHash != row.RequestHash {
		return domainerrors.ErrIdempotencyConflict
	}
	return &domainerrors.ReplayError{TransferID: existing.TransferID}
}

func insertTransfer(tx *gorm.DB, record entities.TransferRecord) error {
	row := transferModelFromEntity(record)
	if err := tx.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

func outboxModelFromEvent(event ports.LedgerEvent) (outboxModel, error) {
	envelope, err := event.Envelope()
	if err != nil {
		return outboxModel{}, err
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outboxModel{}, err
	}
	return outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt,
	}, nil
}

func isDomainError(err error) bool {
	var replay *domainerrors.ReplayError
	return errors.As(err, &replay) ||
		errors.Is(err, domainerrors.ErrNotFound) ||
		errors.Is(err, domainerrors.ErrInsufficientFunds) ||
		errors.Is(err, domainerrors.ErrInvalidState) ||
		errors.Is(err, domainerrors.ErrInvalidRequest) ||
		errors.Is(err, domainerrors.ErrIdempotencyConflict)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var _ ports.AccountDirectory = (*Repository)(nil)
var _ ports.LedgerRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
