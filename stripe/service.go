package stripe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	stripeapi "github.com/stripe/stripe-go/v81"
	"go.vocdoni.io/dvote/log"

	"github.com/airpanel/billing-backend/db"
	"github.com/airpanel/billing-backend/internal"
)

// metadataTradeNo is the checkout session metadata key carrying the trade
// reference of the pending order.
const metadataTradeNo = "trade_no"

// requiredWebhookEvents is the event set the webhook endpoint must be
// subscribed to. Fulfillment only acts on checkout completion.
var requiredWebhookEvents = []string{
	string(stripeapi.EventTypeCheckoutSessionCompleted),
}

// Repository is the storage surface the gateway needs. *db.MongoStorage
// satisfies it.
type Repository interface {
	User(id uint64) (*db.User, error)
	CreateOrder(order *db.Order) error
	Order(tradeNo string) (*db.Order, error)
	MarkOrderPaid(tradeNo string) (*db.Order, error)
	MarkOrderCredited(tradeNo string) error
	AddUserBalance(userID uint64, amount float64) error
	Setting(key string) (string, error)
	SetSetting(key, value string) error
}

// APIClient is the Stripe API surface the gateway needs. *Client satisfies
// it, tests substitute a fake.
type APIClient interface {
	CustomerByEmail(email string) (*stripeapi.Customer, error)
	CreateCustomer(email, name string) (*stripeapi.Customer, error)
	UpdateCustomerName(customerID, name string) error
	CreateCheckoutSession(params *CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
	ListWebhookEndpoints() ([]*stripeapi.WebhookEndpoint, error)
	CreateWebhookEndpoint(url string, enabledEvents []string) (*stripeapi.WebhookEndpoint, error)
	PaymentIntent(id string) (*stripeapi.PaymentIntent, error)
	PaymentMethod(id string) (*stripeapi.PaymentMethod, error)
	ConstructWebhookEvent(payload []byte, signatureHeader, secret string) (*stripeapi.Event, error)
}

// RateSource resolves exchange rates between the settlement currency and the
// panel currency.
type RateSource interface {
	Rate(ctx context.Context, base, quote string) (float64, error)
}

// Service implements the Stripe Checkout recharge gateway: it creates
// checkout sessions for recharge orders, keeps the webhook endpoint
// registered, and fulfills orders from webhook deliveries.
type Service struct {
	client APIClient
	repo   Repository
	rates  RateSource
	config *Config
	events EventStore
	locks  *LockManager

	secretMtx     sync.RWMutex
	webhookSecret string
}

// NewService creates the gateway service. A webhook signing secret persisted
// by a previous run is loaded from storage, so deliveries can be verified
// even before EnsureWebhookEndpoint runs.
func NewService(client APIClient, repo Repository, rates RateSource, config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stripe config: %w", err)
	}
	s := &Service{
		client: client,
		repo:   repo,
		rates:  rates,
		config: config,
		events: NewMemoryEventStore(defaultEventTTL),
		locks:  NewLockManager(),
	}
	secret, err := repo.Setting(db.SettingWebhookSecret)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("could not load webhook secret: %w", err)
	}
	s.webhookSecret = secret
	return s, nil
}

// Config returns the gateway configuration.
func (s *Service) Config() *Config {
	return s.config
}

// WebhookReady reports whether a webhook signing secret is available, i.e.
// the endpoint has been registered at some point.
func (s *Service) WebhookReady() bool {
	s.secretMtx.RLock()
	defer s.secretMtx.RUnlock()
	return s.webhookSecret != ""
}

func (s *Service) secret() string {
	s.secretMtx.RLock()
	defer s.secretMtx.RUnlock()
	return s.webhookSecret
}

func (s *Service) setSecret(secret string) {
	s.secretMtx.Lock()
	defer s.secretMtx.Unlock()
	s.webhookSecret = secret
}

// EnsureWebhookEndpoint makes sure a webhook endpoint subscribed to the
// required events exists on the Stripe account, creating it when missing.
// It is meant to run once at startup, before the HTTP server accepts
// traffic, so no concurrent registration can race. When the endpoint already
// exists the signing secret comes from storage, Stripe only discloses it at
// creation time.
func (s *Service) EnsureWebhookEndpoint() error {
	endpoints, err := s.client.ListWebhookEndpoints()
	if err != nil {
		return fmt.Errorf("could not list webhook endpoints: %w", err)
	}
	for _, endpoint := range endpoints {
		if endpoint.URL != s.config.NotifyURL || endpoint.Status != "enabled" {
			continue
		}
		if !containsAllEvents(endpoint.EnabledEvents, requiredWebhookEvents) {
			continue
		}
		if s.secret() == "" {
			return NewGatewayError(CodeWebhookNotRegistered,
				"webhook endpoint exists but its signing secret is not in storage, delete the endpoint and restart", nil)
		}
		log.Infow("webhook endpoint already registered", "url", endpoint.URL, "id", endpoint.ID)
		return nil
	}

	endpoint, err := s.client.CreateWebhookEndpoint(s.config.NotifyURL, requiredWebhookEvents)
	if err != nil {
		return fmt.Errorf("could not create webhook endpoint: %w", err)
	}
	if err := s.repo.SetSetting(db.SettingWebhookSecret, endpoint.Secret); err != nil {
		return fmt.Errorf("could not persist webhook secret: %w", err)
	}
	s.setSecret(endpoint.Secret)
	log.Infow("webhook endpoint registered", "url", endpoint.URL, "id", endpoint.ID)
	return nil
}

func containsAllEvents(have []string, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w || h == "*" {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CreateRechargeCheckout creates a pending recharge order for the user and a
// hosted checkout session to pay it. The amount is expressed in the panel
// currency and converted into the settlement currency at the current exchange
// rate. It returns the URL of the hosted checkout page.
func (s *Service) CreateRechargeCheckout(ctx context.Context, user *db.User, amount float64) (string, error) {
	if !s.WebhookReady() {
		return "", NewGatewayError(CodeWebhookNotRegistered, "webhook endpoint is not registered yet", nil)
	}
	if amount < s.config.MinRecharge || amount > s.config.MaxRecharge {
		return "", NewGatewayError(CodeAmountOutOfRange,
			fmt.Sprintf("amount %v is out of the allowed range [%v, %v]",
				amount, s.config.MinRecharge, s.config.MaxRecharge), nil)
	}

	customer, err := s.ensureCustomer(user)
	if err != nil {
		return "", err
	}

	order := &db.Order{
		TradeNo: internal.NewTradeNo(),
		UserID:  user.ID,
		Amount:  amount,
		Status:  db.OrderStatusPending,
	}
	if err := s.repo.CreateOrder(order); err != nil {
		return "", NewGatewayError(CodeStorageFailed, "could not create recharge order", err)
	}

	rate, err := s.rates.Rate(ctx, s.config.Currency, s.config.PanelCurrency)
	if err != nil {
		return "", NewGatewayError(CodeUpstreamUnavailable, "could not resolve the exchange rate", err)
	}
	// amount is in the panel currency, the session charges in the
	// settlement currency, in its minor unit
	unitAmount := int64(math.Round(amount / rate * 100))

	session, err := s.client.CreateCheckoutSession(&CheckoutSessionParams{
		CustomerID:         customer.ID,
		TradeNo:            order.TradeNo,
		ClientReferenceID:  fmt.Sprintf("%d", user.ID),
		Currency:           s.config.Currency,
		UnitAmount:         unitAmount,
		ProductName:        s.config.ProductName,
		ProductDescription: fmt.Sprintf("Recharge %.2f %s", amount, s.config.PanelCurrency),
		Locale:             s.config.Locale,
		SuccessURL:         s.config.ReturnURL,
		CancelURL:          s.config.ReturnURL,
	})
	if err != nil {
		return "", err
	}
	log.Infow("checkout session created",
		"tradeNo", order.TradeNo, "userID", user.ID, "amount", amount, "unitAmount", unitAmount)
	return session.URL, nil
}

// ensureCustomer finds the Stripe customer for the user by email, creating
// one when none exists. A customer found without a display name gets the
// user's name backfilled.
func (s *Service) ensureCustomer(user *db.User) (*stripeapi.Customer, error) {
	customer, err := s.client.CustomerByEmail(user.Email)
	if err != nil {
		if ErrorCode(err) == CodeCustomerNotFound {
			return s.client.CreateCustomer(user.Email, user.Name)
		}
		return nil, err
	}
	if customer.Name == "" && user.Name != "" {
		if err := s.client.UpdateCustomerName(customer.ID, user.Name); err != nil {
			return nil, err
		}
	}
	return customer, nil
}
