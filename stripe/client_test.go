package stripe

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	stripeapi "github.com/stripe/stripe-go/v81"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"
)

// signPayload builds a Stripe-Signature header for the payload the way
// Stripe's servers do.
func signPayload(payload []byte, secret string, at time.Time) string {
	signature := stripewebhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%x", at.Unix(), signature)
}

func TestConstructWebhookEvent(t *testing.T) {
	c := qt.New(t)
	client := NewClient(testConfig())
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{"trade_no":"trade_1"},"payment_intent":"pi_1"}}}`)

	// a correctly signed payload authenticates and parses
	header := signPayload(payload, testSecret, time.Now())
	event, err := client.ConstructWebhookEvent(payload, header, testSecret)
	c.Assert(err, qt.IsNil)
	c.Assert(event.ID, qt.Equals, "evt_1")
	c.Assert(event.Type, qt.Equals, stripeapi.EventTypeCheckoutSessionCompleted)

	var session stripeapi.CheckoutSession
	c.Assert(event.Data.Raw, qt.Not(qt.HasLen), 0)
	c.Assert(json.Unmarshal(event.Data.Raw, &session), qt.IsNil)
	c.Assert(session.Metadata["trade_no"], qt.Equals, "trade_1")
	c.Assert(session.PaymentIntent.ID, qt.Equals, "pi_1")
}

func TestConstructWebhookEventAPIVersionDrift(t *testing.T) {
	c := qt.New(t)
	client := NewClient(testConfig())
	// the account API version may trail or lead the SDK's pinned one, a
	// correctly signed delivery must still authenticate
	payload := []byte(`{"id":"evt_drift","api_version":"2023-10-16","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	header := signPayload(payload, testSecret, time.Now())
	event, err := client.ConstructWebhookEvent(payload, header, testSecret)
	c.Assert(err, qt.IsNil)
	c.Assert(event.ID, qt.Equals, "evt_drift")
}

func TestConstructWebhookEventBadSignature(t *testing.T) {
	c := qt.New(t)
	client := NewClient(testConfig())
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	// signed with the wrong secret
	header := signPayload(payload, "whsec_other", time.Now())
	_, err := client.ConstructWebhookEvent(payload, header, testSecret)
	c.Assert(ErrorCode(err), qt.Equals, CodeSignatureVerification)

	// tampered payload under a valid header
	header = signPayload(payload, testSecret, time.Now())
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = ' '
	_, err = client.ConstructWebhookEvent(tampered, header, testSecret)
	c.Assert(ErrorCode(err), qt.Equals, CodeSignatureVerification)

	// stale timestamp outside the tolerance window
	header = signPayload(payload, testSecret, time.Now().Add(-time.Hour))
	_, err = client.ConstructWebhookEvent(payload, header, testSecret)
	c.Assert(ErrorCode(err), qt.Equals, CodeSignatureVerification)

	// missing header entirely
	_, err = client.ConstructWebhookEvent(payload, "", testSecret)
	c.Assert(ErrorCode(err), qt.Equals, CodeSignatureVerification)
}

func TestConstructWebhookEventBadPayload(t *testing.T) {
	c := qt.New(t)
	client := NewClient(testConfig())
	payload := []byte(`this is not json`)
	header := signPayload(payload, testSecret, time.Now())
	_, err := client.ConstructWebhookEvent(payload, header, testSecret)
	c.Assert(ErrorCode(err), qt.Equals, CodeInvalidPayload)
}

func TestConfigValidate(t *testing.T) {
	c := qt.New(t)

	config := testConfig()
	c.Assert(config.Validate(), qt.IsNil)
	c.Assert(config.PanelCurrency, qt.Equals, DefaultPanelCurrency)
	c.Assert(config.Locale, qt.Equals, "auto")
	c.Assert(config.ProductName, qt.Not(qt.Equals), "")

	for name, mutate := range map[string]func(*Config){
		"missing api key":   func(c *Config) { c.APIKey = "" },
		"missing currency":  func(c *Config) { c.Currency = "" },
		"missing notifyURL": func(c *Config) { c.NotifyURL = "" },
		"missing returnURL": func(c *Config) { c.ReturnURL = "" },
		"zero min":          func(c *Config) { c.MinRecharge = 0 },
		"max below min":     func(c *Config) { c.MaxRecharge = c.MinRecharge - 1 },
	} {
		config := testConfig()
		mutate(config)
		c.Assert(config.Validate(), qt.IsNotNil, qt.Commentf(name))
	}
}
