package apicommon

import (
	"time"

	"github.com/airpanel/billing-backend/db"
)

// UserInfo carries the user registration and login credentials.
type UserInfo struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name,omitempty"`
}

// UserProfile is the information of the authenticated user returned by the
// API, the password never leaves the server.
type UserProfile struct {
	ID      uint64  `json:"id"`
	Email   string  `json:"email"`
	Name    string  `json:"name,omitempty"`
	Balance float64 `json:"balance"`
}

// UserProfileFromUser converts a stored user into its API representation.
func UserProfileFromUser(user *db.User) *UserProfile {
	return &UserProfile{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Balance: user.Balance,
	}
}

// LoginResponse is the response of the login and refresh handlers.
type LoginResponse struct {
	Token    string    `json:"token"`
	Expirity time.Time `json:"expirity"`
}

// RechargeRequest is the body of the recharge purchase handler.
type RechargeRequest struct {
	Amount float64 `json:"amount"`
}

// OrderInfo is the API representation of a recharge order.
type OrderInfo struct {
	TradeNo   string     `json:"tradeNo"`
	Amount    float64    `json:"amount"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

// OrderInfoFromOrder converts a stored order into its API representation.
func OrderInfoFromOrder(order *db.Order) *OrderInfo {
	info := &OrderInfo{
		TradeNo:   order.TradeNo,
		Amount:    order.Amount,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
	}
	if !order.PaidAt.IsZero() {
		paidAt := order.PaidAt
		info.PaidAt = &paidAt
	}
	return info
}

// GatewayInfo is the public gateway configuration the web app needs to render
// the recharge form.
type GatewayInfo struct {
	PublishableKey string  `json:"publishableKey"`
	Currency       string  `json:"currency"`
	PanelCurrency  string  `json:"panelCurrency"`
	MinRecharge    float64 `json:"minRecharge"`
	MaxRecharge    float64 `json:"maxRecharge"`
}
