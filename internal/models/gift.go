package models

import "time"

// FlameGift is append-only
type FlameGift struct {
	ID        string    `json:"id" db:"id"`
	BattleID  string    `json:"battleId" db:"battle_id"`
	GifterID  string    `json:"gifterId" db:"gifter_id"`
	Amount    int64     `json:"amount" db:"amount"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type GiftReceipt struct {
	Gift       FlameGift `json:"gift"`
	NewBalance int64     `json:"newBalance"`
}
