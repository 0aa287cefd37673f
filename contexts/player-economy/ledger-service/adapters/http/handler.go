package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "rewardledger/contexts/player-economy/ledger-service/application"
	"rewardledger/contexts/player-economy/ledger-service/application/commands"
	"rewardledger/contexts/player-economy/ledger-service/application/queries"
	"rewardledger/contexts/player-economy/ledger-service/domain/entities"
	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
	httptransport "rewardledger/contexts/player-economy/ledger-service/transport/http"
)

const moduleName = "player-economy/ledger-service"

type Handler struct {
	TransferBalance commands.TransferBalanceUseCase
	TransferItem    commands.TransferItemUseCase
	UseItem         commands.UseItemUseCase
	AdjustBalance   commands.AdjustBalanceUseCase
	Users           queries.UserDirectoryUseCase
	Chest           queries.ChestUseCase
	Transfers       queries.TransferHistoryUseCase
	Currency        httptransport.Currency
	Logger          *slog.Logger
}

// TransferBalanceHandler godoc
// @Summary Gift balance to another player
// @Description Moves currency from the sender to the recipient atomically. Rejected attempts are audited and the error carries the audit transfer_id.
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id, must equal from_user_id"
// @Param Idempotency-Key header string false "Replay key"
// @Param request body httptransport.TransferBalanceRequest true "Balance transfer"
// @Success 200 {object} httptransport.TransferResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /transfer/balance [post]
func (h Handler) TransferBalanceHandler(
	ctx context.Context,
	idempotencyKey string,
	req httptransport.TransferBalanceRequest,
) (httptransport.TransferResponse, error) {
	amount, err := h.Currency.ToMinor(req.Amount)
	if err != nil {
		return httptransport.TransferResponse{}, domainerrors.ErrInvalidAmount
	}
	result, err := h.TransferBalance.Execute(ctx, commands.TransferBalanceCommand{
		FromUserID:     req.FromUserID,
		ToUserID:       req.ToUserID,
		Amount:         amount,
		RequestID:      req.RequestID,
		IdempotencyKey: idempotencyKey,
	})
	return h.mapTransfer(result), err
}

// TransferItemHandler godoc
// @Summary Gift a chest item to another player
// @Description Moves an unused reward item to the recipient, who owns it in unused state.
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id, must equal from_user_id"
// @Param Idempotency-Key header string false "Replay key"
// @Param request body httptransport.TransferItemRequest true "Item transfer"
// @Success 200 {object} httptransport.TransferResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /transfer/item [post]
func (h Handler) TransferItemHandler(
	ctx context.Context,
	idempotencyKey string,
	req httptransport.TransferItemRequest,
) (httptransport.TransferResponse, error) {
	result, err := h.TransferItem.Execute(ctx, commands.TransferItemCommand{
		FromUserID:     req.FromUserID,
		ToUserID:       req.ToUserID,
		ItemID:         req.ItemID,
		RequestID:      req.RequestID,
		IdempotencyKey: idempotencyKey,
	})
	return h.mapTransfer(result), err
}

// GiftHandler godoc
// @Summary Gift balance or an item
// @Description Dispatches on kind to the balance or item transfer.
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-User-Id header string true "Acting user id, must equal from_user_id"
// @Param Idempotency-Key header string false "Replay key"
// @Param request body httptransport.GiftRequest true "Gift"
// @Success 200 {object} httptransport.TransferResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /gifts [post]
func (h Handler) GiftHandler(
	ctx context.Context,
	idempotencyKey string,
	req httptransport.GiftRequest,
) (httptransport.TransferResponse, error) {
	switch entities.TransferKind(strings.ToLower(strings.TrimSpace(req.Kind))) {
	case entities.TransferKindBalance:
		return h.TransferBalanceHandler(ctx, idempotencyKey, httptransport.TransferBalanceRequest{
			FromUserID: req.FromUserID,
			ToUserID:   req.ToUserID,
			Amount:     req.Amount,
			RequestID:  req.RequestID,
		})
	case entities.TransferKindItem:
		return h.TransferItemHandler(ctx, idempotencyKey, httptransport.TransferItemRequest{
			FromUserID: req.FromUserID,
			ToUserID:   req.ToUserID,
			ItemID:     req.ItemID,
			RequestID:  req.RequestID,
		})
	default:
		return httptransport.TransferResponse{}, domainerrors.ErrInvalidRequest
	}
}

// GetUserHandler godoc
// @Summary Get a player's ledger account
// @Tags ledger
// @Produce json
// @Param user_id path string true "User id"
// @Success 200 {object} httptransport.UserResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /users/{user_id} [get]
func (h Handler) GetUserHandler(ctx context.Context, userID string) (httptransport.UserResponse, error) {
	account, err := h.Users.GetUser(ctx, userID)
	if err != nil {
		return httptransport.UserResponse{}, err
	}
	return h.mapUser(account), nil
}

// FindUserHandler godoc
// @Summary Find a gift recipient by username
// @Description Case-insensitive exact match.
// @Tags ledger
// @Produce json
// @Param username query string true "Username"
// @Success 200 {object} httptransport.UserResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /users [get]
func (h Handler) FindUserHandler(ctx context.Context, username string) (httptransport.UserResponse, error) {
	account, err := h.Users.FindUserByUsername(ctx, username)
	if err != nil {
		return httptransport.UserResponse{}, err
	}
	return h.mapUser(account), nil
}

// ListTransfersHandler godoc
// @Summary List a player's transfer audit trail
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User id"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} httptransport.TransferListResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /users/{user_id}/transfers [get]
func (h Handler) ListTransfersHandler(ctx context.Context, userID string, limit int) (httptransport.TransferListResponse, error) {
	records, err := h.Transfers.ListByUser(ctx, userID, limit)
	if err != nil {
		return httptransport.TransferListResponse{}, err
	}
	items := make([]httptransport.TransferResponse, 0, len(records))
	for _, record := range records {
		items = append(items, h.mapTransfer(commands.TransferResult{Record: record}))
	}
	return httptransport.TransferListResponse{Items: items}, nil
}

// ListChestHandler godoc
// @Summary List chest items
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User id"
// @Param state query string false "unused, used or transferred"
// @Success 200 {object} httptransport.ChestResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /users/{user_id}/chest [get]
func (h Handler) ListChestHandler(ctx context.Context, userID string, state string) (httptransport.ChestResponse, error) {
	items, err := h.Chest.ListItems(ctx, userID, state)
	if err != nil {
		return httptransport.ChestResponse{}, err
	}
	resp := httptransport.ChestResponse{
		UserID: strings.TrimSpace(userID),
		Items:  make([]httptransport.ChestItem, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapChestItem(item))
	}
	return resp, nil
}

// UseChestItemHandler godoc
// @Summary Use a chest item
// @Description Marks an unused item as used and queues in-game delivery.
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param user_id path string true "User id"
// @Param item_id path string true "Item id"
// @Success 200 {object} httptransport.ChestItem
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /users/{user_id}/chest/{item_id}/use [post]
func (h Handler) UseChestItemHandler(ctx context.Context, userID string, itemID string) (httptransport.ChestItem, error) {
	item, err := h.UseItem.Execute(ctx, commands.UseItemCommand{
		UserID: userID,
		ItemID: itemID,
	})
	if err != nil {
		return httptransport.ChestItem{}, err
	}
	return mapChestItem(item), nil
}

// AdjustBalanceHandler godoc
// @Summary Operator balance adjustment
// @Tags ledger-admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param X-Admin-Id header string true "Operator id"
// @Param user_id path string true "User id"
// @Param request body httptransport.AdjustBalanceRequest true "Adjustment"
// @Success 200 {object} httptransport.UserResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Router /admin/users/{user_id}/balance-adjustments [post]
func (h Handler) AdjustBalanceHandler(
	ctx context.Context,
	adminID string,
	userID string,
	req httptransport.AdjustBalanceRequest,
) (httptransport.UserResponse, error) {
	delta, err := h.Currency.ToMinor(req.Delta)
	if err != nil {
		return httptransport.UserResponse{}, domainerrors.ErrInvalidAmount
	}
	logger := application.ResolveLogger(h.Logger)
	logger.Info("balance adjustment request received",
		"event", "http_balance_adjustment_received",
		"module", moduleName,
		"layer", "transport",
		"admin_id", strings.TrimSpace(adminID),
		"user_id", strings.TrimSpace(userID),
	)
	account, err := h.AdjustBalance.Execute(ctx, commands.AdjustBalanceCommand{
		AdminID: adminID,
		UserID:  userID,
		Delta:   delta,
		Reason:  req.Reason,
	})
	if err != nil {
		return httptransport.UserResponse{}, err
	}
	return h.mapUser(account), nil
}

func (h Handler) mapTransfer(result commands.TransferResult) httptransport.TransferResponse {
	record := result.Record
	if record.TransferID == "" {
		return httptransport.TransferResponse{}
	}
	resp := httptransport.TransferResponse{
		TransferID: record.TransferID,
		Kind:       string(record.Kind),
		FromUserID: record.FromUserID,
		ToUserID:   record.ToUserID,
		ItemID:     record.ItemID,
		Status:     string(record.Status),
		RejectCode: record.RejectCode,
		RequestID:  record.RequestID,
		CreatedAt:  record.CreatedAt.UTC().Format(time.RFC3339),
		Replayed:   result.Replayed,
	}
	if record.Kind == entities.TransferKindBalance {
		resp.Amount = h.Currency.FromMinor(record.Amount)
	}
	return resp
}

func (h Handler) mapUser(account entities.Account) httptransport.UserResponse {
	return httptransport.UserResponse{
		UserID:   account.UserID,
		Username: account.Username,
		Balance:  h.Currency.FromMinor(account.Balance),
	}
}

func mapChestItem(item entities.RewardItem) httptransport.ChestItem {
	resp := httptransport.ChestItem{
		ItemID:    item.ItemID,
		ProductID: item.ProductID,
		State:     string(item.State),
		Source:    string(item.Source),
		CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.UsedAt != nil {
		resp.UsedAt = item.UsedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
