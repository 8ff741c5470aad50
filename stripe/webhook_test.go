package stripe

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
	stripeapi "github.com/stripe/stripe-go/v81"

	"github.com/airpanel/billing-backend/db"
)

// checkoutCompletedPayload builds the raw event a checkout completion
// delivery carries. The payment intent comes as a bare ID, the way Stripe
// sends unexpanded references.
func checkoutCompletedPayload(eventID, tradeNo, intentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{"trade_no":%q},"payment_intent":%q}}}`,
		eventID, tradeNo, intentID))
}

// settleableOrder seeds a pending order with a matching payment intent and
// method in the fakes, and returns its trade reference.
func settleableOrder(c *qt.C, api *fakeAPI, repo *fakeRepo, amount float64) string {
	tradeNo := fmt.Sprintf("trade_%d", len(repo.orders)+1)
	c.Assert(repo.CreateOrder(&db.Order{TradeNo: tradeNo, UserID: 1, Amount: amount, Status: db.OrderStatusPending}), qt.IsNil)
	api.intents["pi_1"] = &stripeapi.PaymentIntent{
		ID:            "pi_1",
		PaymentMethod: &stripeapi.PaymentMethod{ID: "pm_1"},
	}
	api.methods["pm_1"] = &stripeapi.PaymentMethod{ID: "pm_1"}
	return tradeNo
}

func TestProcessWebhookInvalidSignature(t *testing.T) {
	c := qt.New(t)
	service, api, repo := newTestService(t)
	tradeNo := settleableOrder(c, api, repo, 100)

	payload := checkoutCompletedPayload("evt_1", tradeNo, "pi_1")
	err := service.ProcessWebhookEvent(payload, "t=1,v1=bogus")
	c.Assert(ErrorCode(err), qt.Equals, CodeSignatureVerification)

	// a rejected delivery leaves the order untouched
	c.Assert(repo.orders[tradeNo].Status, qt.Equals, db.OrderStatusPending)
	c.Assert(repo.users[1].Balance, qt.Equals, 0.0)
}

func TestProcessWebhookNoSecret(t *testing.T) {
	c := qt.New(t)
	service, err := NewService(newFakeAPI(), newFakeRepo(), &fakeRates{rate: 1.0}, testConfig())
	c.Assert(err, qt.IsNil)
	err = service.ProcessWebhookEvent([]byte(`{}`), testSigHeader)
	c.Assert(ErrorCode(err), qt.Equals, CodeWebhookNotRegistered)
}

func TestProcessWebhookUnsupportedEvent(t *testing.T) {
	c := qt.New(t)
	service, _, _ := newTestService(t)
	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":{}}}`)
	err := service.ProcessWebhookEvent(payload, testSigHeader)
	c.Assert(ErrorCode(err), qt.Equals, CodeUnsupportedEvent)
}

func TestProcessWebhookMissingTradeNo(t *testing.T) {
	c := qt.New(t)
	service, _, _ := newTestService(t)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	err := service.ProcessWebhookEvent(payload, testSigHeader)
	c.Assert(ErrorCode(err), qt.Equals, CodeInvalidPayload)
}

func TestProcessWebhookMissingPaymentIntent(t *testing.T) {
	c := qt.New(t)
	service, api, repo := newTestService(t)
	tradeNo := settleableOrder(c, api, repo, 100)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{"trade_no":%q}}}}`,
		tradeNo))
	err := service.ProcessWebhookEvent(payload, testSigHeader)
	c.Assert(ErrorCode(err), qt.Equals, CodeMissingPaymentIntent)
	c.Assert(repo.orders[tradeNo].Status, qt.Equals, db.OrderStatusPending)
	c.Assert(repo.users[1].Balance, qt.Equals, 0.0)
}

func TestProcessWebhookMissingPaymentMethod(t *testing.T) {
	c := qt.New(t)
	service, api, repo := newTestService(t)
	tradeNo := settleableOrder(c, api, repo, 100)
	api.intents["pi_1"].PaymentMethod = nil

	payload := checkoutCompletedPayload("evt_1", tradeNo, "pi_1")
	err := service.ProcessWebhookEvent(payload, testSigHeader)
	c.Assert(ErrorCode(err), qt.Equals, CodeMissingPaymentMethod)
	c.Assert(repo.orders[tradeNo].Status, qt.Equals, db.OrderStatusPending)
	c.Assert(repo.users[1].Balance, qt.Equals, 0.0)
}

func TestProcessWebhookUnknownOrder(t *testing.T) {
	c := qt.New(t)
	service, api, _ := newTestService(t)
	api.intents["pi_1"] = &stripeapi.PaymentIntent{
		ID:            "pi_1",
		PaymentMethod: &stripeapi.PaymentMethod{ID: "pm_1"},
	}
	api.methods["pm_1"] = &stripeapi.PaymentMethod{ID: "pm_1"}

	payload := checkoutCompletedPayload("evt_1", "trade_unknown", "pi_1")
	err := service.ProcessWebhookEvent(payload, testSigHeader)
	c.Assert(ErrorCode(err), qt.Equals, CodeOrderNotFound)
}

func TestProcessWebhookSettlesOnce(t *testing.T) {
	c := qt.New(t)
	service, api, repo := newTestService(t)
	tradeNo := settleableOrder(c, api, repo, 100)

	// first delivery settles the order and credits the balance
	payload := checkoutCompletedPayload("evt_1", tradeNo, "pi_1")
	c.Assert(service.ProcessWebhookEvent(payload, testSigHeader), qt.IsNil)
	c.Assert(repo.orders[tradeNo].Status, qt.Equals, db.OrderStatusPaid)
	c.Assert(repo.orders[tradeNo].Credited, qt.IsTrue)
	c.Assert(repo.users[1].Balance, qt.Equals, 100.0)

	// the exact same event again is deduplicated
	c.Assert(service.ProcessWebhookEvent(payload, testSigHeader), qt.IsNil)
	c.Assert(repo.users[1].Balance, qt.Equals, 100.0)

	// a fresh event for the already settled order is acknowledged too,
	// without crediting twice
	redelivery := checkoutCompletedPayload("evt_2", tradeNo, "pi_1")
	c.Assert(service.ProcessWebhookEvent(redelivery, testSigHeader), qt.IsNil)
	c.Assert(repo.users[1].Balance, qt.Equals, 100.0)
}

func TestProcessWebhookResumesInterruptedCredit(t *testing.T) {
	c := qt.New(t)
	service, api, repo := newTestService(t)
	tradeNo := settleableOrder(c, api, repo, 100)
	// the balance increment fails right after the paid transition
	repo.balanceFailures = 1

	payload := checkoutCompletedPayload("evt_1", tradeNo, "pi_1")
	err := service.ProcessWebhookEvent(payload, testSigHeader)
	c.Assert(ErrorCode(err), qt.Equals, CodeStorageFailed)
	c.Assert(repo.orders[tradeNo].Status, qt.Equals, db.OrderStatusPaid)
	c.Assert(repo.orders[tradeNo].Credited, qt.IsFalse)
	c.Assert(repo.users[1].Balance, qt.Equals, 0.0)

	// the redelivery must resume the credit, not acknowledge it away
	redelivery := checkoutCompletedPayload("evt_2", tradeNo, "pi_1")
	c.Assert(service.ProcessWebhookEvent(redelivery, testSigHeader), qt.IsNil)
	c.Assert(repo.orders[tradeNo].Credited, qt.IsTrue)
	c.Assert(repo.users[1].Balance, qt.Equals, 100.0)

	// and once credited, further redeliveries are acknowledged without
	// crediting twice
	again := checkoutCompletedPayload("evt_3", tradeNo, "pi_1")
	c.Assert(service.ProcessWebhookEvent(again, testSigHeader), qt.IsNil)
	c.Assert(repo.users[1].Balance, qt.Equals, 100.0)
}

func TestMemoryEventStoreTTL(t *testing.T) {
	c := qt.New(t)
	store := NewMemoryEventStore(1)
	store.MarkProcessed("evt_1")
	// a nanosecond TTL expires immediately
	c.Assert(store.EventExists("evt_1"), qt.IsFalse)

	store = NewMemoryEventStore(defaultEventTTL)
	store.MarkProcessed("evt_1")
	c.Assert(store.EventExists("evt_1"), qt.IsTrue)
	c.Assert(store.EventExists("evt_2"), qt.IsFalse)
}

func TestLockManagerSerializes(t *testing.T) {
	lm := NewLockManager()
	unlock := lm.LockOrder("trade_1")
	// a different order is not blocked
	done := make(chan struct{})
	go func() {
		u := lm.LockOrder("trade_2")
		u()
		close(done)
	}()
	<-done
	unlock()
	// the same order can be taken again after release
	unlock = lm.LockOrder("trade_1")
	unlock()
}
