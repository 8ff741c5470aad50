package api

import (
	"encoding/json"
	"io"
	"net/http"

	"go.vocdoni.io/dvote/log"

	"github.com/airpanel/billing-backend/api/apicommon"
	"github.com/airpanel/billing-backend/errors"
	"github.com/airpanel/billing-backend/stripe"
)

// maxWebhookBodyBytes bounds webhook request bodies, per Stripe's own
// recommendation.
const maxWebhookBodyBytes = int64(65536)

// gatewayInfoHandler handles the request to get the public gateway
// configuration the web app needs to render the recharge form.
func (a *API) gatewayInfoHandler(w http.ResponseWriter, _ *http.Request) {
	config := a.stripe.Config()
	apicommon.HTTPWriteJSON(w, &apicommon.GatewayInfo{
		PublishableKey: config.PublishableKey,
		Currency:       config.Currency,
		PanelCurrency:  config.PanelCurrency,
		MinRecharge:    config.MinRecharge,
		MaxRecharge:    config.MaxRecharge,
	})
}

// rechargePurchaseHandler handles the request to create a recharge checkout
// session for the authenticated user. On success it redirects to the hosted
// checkout page.
func (a *API) rechargePurchaseHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := apicommon.UserFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	req := &apicommon.RechargeRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	checkoutURL, err := a.stripe.CreateRechargeCheckout(r.Context(), user, req.Amount)
	if err != nil {
		a.writeGatewayError(w, err)
		return
	}
	http.Redirect(w, r, checkoutURL, http.StatusSeeOther)
}

// rechargeNotifyHandler handles the Stripe webhook deliveries. A delivery
// that fails signature verification, carries an unparseable payload or an
// unsupported event type is rejected with a 4xx status so it shows up as
// failed on the Stripe dashboard.
func (a *API) rechargeNotifyHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warnw("could not read webhook request body", "error", err)
		errors.ErrInvalidWebhookPayload.Write(w)
		return
	}
	if err := a.stripe.ProcessWebhookEvent(payload, r.Header.Get("Stripe-Signature")); err != nil {
		log.Warnw("webhook event rejected", "error", err)
		a.writeGatewayError(w, err)
		return
	}
	apicommon.HTTPWriteOK(w)
}

// rechargeReturnHandler sends the user back to the web app after the hosted
// checkout page, whatever the payment outcome. Fulfillment only happens
// through the webhook.
func (a *API) rechargeReturnHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, a.webAppURL, http.StatusSeeOther)
}

// writeGatewayError maps a gateway error to the matching API error response.
func (*API) writeGatewayError(w http.ResponseWriter, err error) {
	switch stripe.ErrorCode(err) {
	case stripe.CodeAmountOutOfRange:
		errors.ErrAmountOutOfRange.WithErr(err).Write(w)
	case stripe.CodeInvalidPayload:
		errors.ErrInvalidWebhookPayload.Write(w)
	case stripe.CodeSignatureVerification:
		errors.ErrInvalidWebhookSignature.Write(w)
	case stripe.CodeUnsupportedEvent:
		errors.ErrUnsupportedWebhookEvent.Write(w)
	case stripe.CodeMissingPaymentIntent:
		errors.ErrMissingPaymentIntent.Write(w)
	case stripe.CodeMissingPaymentMethod:
		errors.ErrMissingPaymentMethod.Write(w)
	case stripe.CodeOrderNotFound:
		errors.ErrOrderNotFound.Write(w)
	case stripe.CodeWebhookNotRegistered:
		errors.ErrWebhookNotRegistered.Write(w)
	case stripe.CodeUpstreamUnavailable:
		errors.ErrUpstreamUnavailable.WithErr(err).Write(w)
	case stripe.CodeAPICallFailed:
		errors.ErrStripeError.WithErr(err).Write(w)
	default:
		errors.ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
