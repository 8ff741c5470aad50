package db

import (
	"time"
)

// User represents a panel user. The balance is kept in the panel currency and
// is only mutated by recharge order fulfillment.
type User struct {
	ID       uint64  `json:"id" bson:"_id"`
	Email    string  `json:"email" bson:"email"`
	Password string  `json:"password" bson:"password"`
	Name     string  `json:"name" bson:"name"`
	Balance  float64 `json:"balance" bson:"balance"`
}

// OrderStatus is the lifecycle state of a recharge order.
type OrderStatus string

// Order represents a recharge order. It is created as pending when a checkout
// session is requested and flipped to paid by webhook fulfillment. Orders are
// never deleted by the payment flow.
type Order struct {
	TradeNo   string      `json:"tradeNo" bson:"_id"`
	UserID    uint64      `json:"userId" bson:"userId"`
	Amount    float64     `json:"amount" bson:"amount"`
	Status    OrderStatus `json:"status" bson:"status"`
	// Credited records that the user balance was incremented for this
	// order, it is set after the paid transition so an interrupted
	// fulfillment can resume the credit on redelivery.
	Credited  bool      `json:"credited" bson:"credited"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	PaidAt    time.Time `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
}

// Setting is a persisted key-value gateway setting. The only key written at
// runtime is the webhook endpoint signing secret.
type Setting struct {
	Key   string `json:"key" bson:"_id"`
	Value string `json:"value" bson:"value"`
}
