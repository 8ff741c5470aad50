package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v81"
	"go.vocdoni.io/dvote/log"

	"github.com/airpanel/billing-backend/db"
)

// ProcessWebhookEvent authenticates a raw webhook delivery and runs the
// matching handler. Redelivered events that were already processed are
// acknowledged without running fulfillment again.
func (s *Service) ProcessWebhookEvent(payload []byte, signatureHeader string) error {
	secret := s.secret()
	if secret == "" {
		return NewGatewayError(CodeWebhookNotRegistered, "no webhook signing secret available", nil)
	}
	event, err := s.client.ConstructWebhookEvent(payload, signatureHeader, secret)
	if err != nil {
		return err
	}
	if s.events.EventExists(event.ID) {
		log.Debugw("webhook event already processed", "eventID", event.ID, "type", event.Type)
		return nil
	}
	if err := s.handleEvent(event); err != nil {
		return err
	}
	s.events.MarkProcessed(event.ID)
	return nil
}

// handleEvent dispatches the event by type. Only checkout completion is a
// supported delivery, the endpoint is not subscribed to anything else.
func (s *Service) handleEvent(event *stripeapi.Event) error {
	switch event.Type {
	case stripeapi.EventTypeCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(event)
	default:
		return NewGatewayError(CodeUnsupportedEvent,
			fmt.Sprintf("unsupported event type %s", event.Type), nil)
	}
}

// handleCheckoutCompleted fulfills the recharge order referenced by a
// completed checkout session: it verifies the payment intent and method
// exist, flips the order from pending to paid and credits the user balance.
// Fulfillment is serialized per trade reference, and the pending-to-paid
// transition happens at most once, so a duplicate delivery never credits
// twice.
func (s *Service) handleCheckoutCompleted(event *stripeapi.Event) error {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return NewGatewayError(CodeInvalidPayload, "could not parse checkout session from event", err)
	}
	tradeNo := session.Metadata[metadataTradeNo]
	if tradeNo == "" {
		return NewGatewayError(CodeInvalidPayload, "checkout session has no trade reference", nil)
	}

	unlock := s.locks.LockOrder(tradeNo)
	defer unlock()

	if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
		return NewGatewayError(CodeMissingPaymentIntent, "checkout session has no payment intent", nil)
	}
	intent, err := s.client.PaymentIntent(session.PaymentIntent.ID)
	if err != nil {
		return err
	}
	if intent.PaymentMethod == nil || intent.PaymentMethod.ID == "" {
		return NewGatewayError(CodeMissingPaymentMethod, "payment intent has no payment method", nil)
	}
	if _, err := s.client.PaymentMethod(intent.PaymentMethod.ID); err != nil {
		return err
	}

	order, err := s.repo.MarkOrderPaid(tradeNo)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return NewGatewayError(CodeOrderNotFound,
				fmt.Sprintf("no order with trade reference %s", tradeNo), nil)
		case errors.Is(err, db.ErrOrderNotPending):
			// the order was already flipped to paid by an earlier
			// delivery, acknowledge only if the credit also landed
			existing, err := s.repo.Order(tradeNo)
			if err != nil {
				return NewGatewayError(CodeStorageFailed, "could not load the settled order", err)
			}
			if existing.Credited {
				log.Warnw("order already settled, skipping", "tradeNo", tradeNo, "eventID", event.ID)
				return nil
			}
			// the previous fulfillment failed between the paid
			// transition and the credit, resume the credit here
			order = existing
		default:
			return NewGatewayError(CodeStorageFailed, "could not mark the order as paid", err)
		}
	}
	if err := s.repo.AddUserBalance(order.UserID, order.Amount); err != nil {
		return NewGatewayError(CodeStorageFailed, "could not credit the user balance", err)
	}
	if err := s.repo.MarkOrderCredited(tradeNo); err != nil {
		// the balance increment already landed, failing here would make
		// Stripe redeliver and credit twice, so acknowledge and leave a
		// trace for the operator
		log.Errorw(err, fmt.Sprintf("could not persist the credit marker for order %s", tradeNo))
	}
	log.Infow("recharge order settled",
		"tradeNo", tradeNo, "userID", order.UserID, "amount", order.Amount, "eventID", event.ID)
	return nil
}
