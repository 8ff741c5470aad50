package db

import "time"

const (
	// order statuses
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	// SettingWebhookSecret is the settings key holding the Stripe webhook
	// endpoint signing secret, written by the webhook registrar.
	SettingWebhookSecret = "stripe_webhook_endpoint_secret"
)

// defaultTimeout is the timeout applied to every single database operation.
const defaultTimeout = 10 * time.Second
