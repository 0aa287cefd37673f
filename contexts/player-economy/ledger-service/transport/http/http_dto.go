package http

import "github.com/shopspring/decimal"

type ErrorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	TransferID string `json:"transfer_id,omitempty"`
}

type TransferBalanceRequest struct {
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string" example:"40.00"`
	RequestID  string          `json:"request_id,omitempty"`
}

type TransferItemRequest struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	ItemID     string `json:"item_id"`
	RequestID  string `json:"request_id,omitempty"`
}

// GiftRequest is the combined gift form: kind "balance" reads Amount, kind
// "item" reads ItemID.
type GiftRequest struct {
	Kind       string          `json:"kind" enums:"balance,item"`
	FromUserID string          `json:"from_user_id"`
	ToUserID   string          `json:"to_user_id"`
	Amount     decimal.Decimal `json:"amount,omitempty" swaggertype:"string" example:"40.00"`
	ItemID     string          `json:"item_id,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
}

type TransferResponse struct {
	TransferID string `json:"transfer_id"`
	Kind       string `json:"kind"`
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     string `json:"amount,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Status     string `json:"status"`
	RejectCode string `json:"reject_code,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	CreatedAt  string `json:"created_at"`
	Replayed   bool   `json:"replayed"`
}

type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
}

type UserResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

type ChestItem struct {
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	State     string `json:"state"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"`
	UsedAt    string `json:"used_at,omitempty"`
}

type ChestResponse struct {
	UserID string      `json:"user_id"`
	Items  []ChestItem `json:"items"`
}

type AdjustBalanceRequest struct {
	Delta  decimal.Decimal `json:"delta" swaggertype:"string" example:"-12.50"`
	Reason string          `json:"reason"`
}
