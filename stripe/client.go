package stripe

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v81"
	stripecheckoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	stripecustomer "github.com/stripe/stripe-go/v81/customer"
	stripepaymentintent "github.com/stripe/stripe-go/v81/paymentintent"
	stripepaymentmethod "github.com/stripe/stripe-go/v81/paymentmethod"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
	stripewebhookendpoint "github.com/stripe/stripe-go/v81/webhookendpoint"
)

// CheckoutSessionParams holds the parameters for creating a recharge checkout
// session. The trade reference travels as opaque session metadata and the
// user ID as the client reference, so webhook fulfillment can correlate the
// payment back to the pending order.
type CheckoutSessionParams struct {
	CustomerID         string
	TradeNo            string
	ClientReferenceID  string
	Currency           string
	UnitAmount         int64
	ProductName        string
	ProductDescription string
	Locale             string
	SuccessURL         string
	CancelURL          string
}

// Client wraps the Stripe API bindings with a bounded HTTP client.
type Client struct {
	config *Config
}

// NewClient creates a new Stripe client with the given configuration. The SDK
// is configured with an explicit timeout so no outbound call can hang.
func NewClient(config *Config) *Client {
	stripeapi.Key = config.APIKey
	stripeapi.SetHTTPClient(&http.Client{
		Timeout: 30 * time.Second,
	})
	return &Client{config: config}
}

// CustomerByEmail retrieves the customer with the given email address. When
// several customers share the email, the first match is authoritative.
func (*Client) CustomerByEmail(email string) (*stripeapi.Customer, error) {
	params := &stripeapi.CustomerListParams{
		Email: stripeapi.String(email),
	}
	params.Limit = stripeapi.Int64(1)

	customers := stripecustomer.List(params)
	if !customers.Next() {
		if err := customers.Err(); err != nil {
			return nil, NewGatewayError(CodeAPICallFailed, "failed to list customers", err)
		}
		return nil, NewGatewayError(CodeCustomerNotFound, fmt.Sprintf("customer with email %s not found", email), nil)
	}
	return customers.Customer(), nil
}

// CreateCustomer creates a new customer with the given email and display name.
func (*Client) CreateCustomer(email, name string) (*stripeapi.Customer, error) {
	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(email),
		Name:  stripeapi.String(name),
	}
	customer, err := stripecustomer.New(params)
	if err != nil {
		return nil, NewGatewayError(CodeAPICallFailed, "failed to create customer", err)
	}
	return customer, nil
}

// UpdateCustomerName sets the display name of an existing customer.
func (*Client) UpdateCustomerName(customerID, name string) error {
	params := &stripeapi.CustomerParams{
		Name: stripeapi.String(name),
	}
	if _, err := stripecustomer.Update(customerID, params); err != nil {
		return NewGatewayError(CodeAPICallFailed, "failed to update customer name", err)
	}
	return nil
}

// CreateCheckoutSession creates a hosted checkout session in payment mode for
// a one-off recharge. Returns the created session, whose URL the user is
// redirected to.
// Overview of stripe checkout mechanics: https://docs.stripe.com/payments/checkout
// API description: https://docs.stripe.com/api/checkout/sessions
func (*Client) CreateCheckoutSession(params *CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	checkoutParams := &stripeapi.CheckoutSessionParams{
		Customer: stripeapi.String(params.CustomerID),
		Mode:     stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripeapi.String(strings.ToLower(params.Currency)),
					UnitAmount: stripeapi.Int64(params.UnitAmount),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripeapi.String(params.ProductName),
						Description: stripeapi.String(params.ProductDescription),
					},
				},
				Quantity: stripeapi.Int64(1),
			},
		},
		PaymentIntentData: &stripeapi.CheckoutSessionPaymentIntentDataParams{
			CaptureMethod: stripeapi.String("automatic"),
		},
		SubmitType:          stripeapi.String(string(stripeapi.CheckoutSessionSubmitTypePay)),
		AllowPromotionCodes: stripeapi.Bool(true),
		ClientReferenceID:   stripeapi.String(params.ClientReferenceID),
		Locale:              stripeapi.String(params.Locale),
		SuccessURL:          stripeapi.String(params.SuccessURL),
		CancelURL:           stripeapi.String(params.CancelURL),
	}
	checkoutParams.AddMetadata(metadataTradeNo, params.TradeNo)

	session, err := stripecheckoutsession.New(checkoutParams)
	if err != nil {
		return nil, NewGatewayError(CodeAPICallFailed, "failed to create checkout session", err)
	}
	return session, nil
}

// ListWebhookEndpoints returns all the webhook endpoints registered on the
// Stripe account.
func (*Client) ListWebhookEndpoints() ([]*stripeapi.WebhookEndpoint, error) {
	var endpoints []*stripeapi.WebhookEndpoint
	i := stripewebhookendpoint.List(&stripeapi.WebhookEndpointListParams{})
	for i.Next() {
		endpoints = append(endpoints, i.WebhookEndpoint())
	}
	if err := i.Err(); err != nil {
		return nil, NewGatewayError(CodeAPICallFailed, "failed to list webhook endpoints", err)
	}
	return endpoints, nil
}

// CreateWebhookEndpoint registers a new webhook endpoint subscribed to the
// given event set. The returned endpoint carries the signing secret, which is
// only disclosed at creation time.
func (*Client) CreateWebhookEndpoint(url string, enabledEvents []string) (*stripeapi.WebhookEndpoint, error) {
	params := &stripeapi.WebhookEndpointParams{
		URL:           stripeapi.String(url),
		EnabledEvents: stripeapi.StringSlice(enabledEvents),
	}
	endpoint, err := stripewebhookendpoint.New(params)
	if err != nil {
		return nil, NewGatewayError(CodeAPICallFailed, "failed to create webhook endpoint", err)
	}
	return endpoint, nil
}

// PaymentIntent retrieves a payment intent by ID.
func (*Client) PaymentIntent(id string) (*stripeapi.PaymentIntent, error) {
	intent, err := stripepaymentintent.Get(id, nil)
	if err != nil {
		return nil, NewGatewayError(CodeAPICallFailed, "failed to get payment intent", err)
	}
	return intent, nil
}

// PaymentMethod retrieves a payment method by ID.
func (*Client) PaymentMethod(id string) (*stripeapi.PaymentMethod, error) {
	method, err := stripepaymentmethod.Get(id, nil)
	if err != nil {
		return nil, NewGatewayError(CodeAPICallFailed, "failed to get payment method", err)
	}
	return method, nil
}

// ConstructWebhookEvent authenticates and parses a webhook delivery. A failed
// cryptographic check yields a signature error, anything else wrong with the
// payload yields a payload error; both abort fulfillment. API version
// mismatches are tolerated, the account API version may drift from the one
// the SDK was generated against.
func (*Client) ConstructWebhookEvent(payload []byte, signatureHeader, secret string) (*stripeapi.Event, error) {
	event, err := stripewebhook.ConstructEventWithOptions(payload, signatureHeader, secret,
		stripewebhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		if errors.Is(err, stripewebhook.ErrNotSigned) ||
			errors.Is(err, stripewebhook.ErrInvalidHeader) ||
			errors.Is(err, stripewebhook.ErrNoValidSignature) ||
			errors.Is(err, stripewebhook.ErrTooOld) {
			return nil, NewGatewayError(CodeSignatureVerification, "webhook signature validation failed", err)
		}
		return nil, NewGatewayError(CodeInvalidPayload, "webhook payload is not valid", err)
	}
	return &event, nil
}
