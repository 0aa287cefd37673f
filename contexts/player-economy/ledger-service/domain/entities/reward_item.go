package entities

import (
	"strings"
	"time"

	domainerrors "rewardledger/contexts/player-economy/ledger-service/domain/errors"
)

type ItemState string

const (
	ItemStateUnused      ItemState = "unused"
	ItemStateUsed        ItemState = "used"
	ItemStateTransferred ItemState = "transferred"
)

type ItemSource string

const (
	ItemSourcePurchase   ItemSource = "purchase"
	ItemSourceVoteReward ItemSource = "vote_reward"
	ItemSourceGift       ItemSource = "gift"
)

// RewardItem is one claimable chest entry. It has exactly one owner.
type RewardItem struct {
	ItemID    string
	OwnerID   string
	ProductID string
	State     ItemState
	Source    ItemSource
	SourceRef string
	CreatedAt time.Time
	UpdatedAt time.Time
	UsedAt    *time.Time
}

func NewRewardItem(
	itemID string,
	ownerID string,
	productID string,
	source ItemSource,
	sourceRef string,
	createdAt time.Time,
) (RewardItem, error) {
	if strings.TrimSpace(itemID) == "" ||
		strings.TrimSpace(ownerID) == "" ||
		strings.TrimSpace(productID) == "" {
		return RewardItem{}, domainerrors.ErrInvalidRequest
	}
	return RewardItem{
		ItemID:    itemID,
		OwnerID:   ownerID,
		ProductID: productID,
		State:     ItemStateUnused,
		Source:    source,
		SourceRef: sourceRef,
		CreatedAt: createdAt.UTC(),
		UpdatedAt: createdAt.UTC(),
	}, nil
}

// TransferTo moves the instance to a new owner. The item stays unused so the
// recipient can use or gift it again.
func (i RewardItem) TransferTo(fromUserID string, toUserID string, at time.Time) (RewardItem, error) {
	if i.State != ItemStateUnused || i.OwnerID != fromUserID {
		return i, domainerrors.ErrInvalidState
	}
	i.OwnerID = toUserID
	i.UpdatedAt = at.UTC()
	return i, nil
}

// MarkUsed is terminal: used items never change state again.
func (i RewardItem) MarkUsed(userID string, at time.Time) (RewardItem, error) {
	if i.State != ItemStateUnused || i.OwnerID != userID {
		return i, domainerrors.ErrInvalidState
	}
	usedAt := at.UTC()
	i.State = ItemStateUsed
	i.UpdatedAt = usedAt
	i.UsedAt = &usedAt
	return i, nil
}
