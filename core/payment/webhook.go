package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/irsalhamdi/coursepay/api/web"
	"github.com/irsalhamdi/coursepay/api/weberr"
	"github.com/irsalhamdi/coursepay/core/enrollment"
	"github.com/irsalhamdi/coursepay/core/order"
	"github.com/irsalhamdi/coursepay/database"
	"github.com/irsalhamdi/coursepay/gateway"
	"github.com/irsalhamdi/coursepay/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// SignatureHeader carries the gateway's HMAC over the raw webhook body.
const SignatureHeader = "X-Razorpay-Signature"

const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
	eventOrderPaid       = "order.paid"
)

type webhookEvent struct {
	Type    string         `json:"event"`
	Payload webhookPayload `json:"payload"`
}

type webhookPayload struct {
	Payment *struct {
		Entity paymentEntity `json:"entity"`
	} `json:"payment"`
	Order *struct {
		Entity orderEntity `json:"entity"`
	} `json:"order"`
}

type paymentEntity struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
	Email    string `json:"email"`
	Contact  string `json:"contact"`
}

type orderEntity struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Outcome classifies what a webhook delivery did. The dispatcher, not
// the individual handler, turns outcomes into an HTTP status: only a
// bad signature or an unreadable body is rejected, so the gateway never
// retries an event this system cannot make progress on.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
	OutcomeFailed  Outcome = "failed"
)

// HandleWebhook is the asynchronous confirmation path: the gateway
// pushes signed state-change events, at least once each, in no
// guaranteed order relative to the client's verify call. Every handler
// is idempotent, so replays and races converge on the same rows.
func HandleWebhook(db *sqlx.DB, webhookSecret string, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get(SignatureHeader)
		if !gateway.VerifyWebhook(webhookSecret, body, sig) {
			return weberr.BadRequest(errors.New("invalid webhook signature"), weberr.WithFields(map[string]interface{}{
				"security": "signature_mismatch",
				"remote":   r.RemoteAddr,
			}))
		}

		var evt webhookEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot decode webhook event: %w", err))
		}

		res := dispatch(ctx, db, evt)
		if res.Outcome == OutcomeFailed {
			log.WithFields(logrus.Fields{
				"event":   evt.Type,
				"message": res.Err,
			}).Error("webhook event could not be applied")
		} else {
			log.WithFields(logrus.Fields{
				"event":   evt.Type,
				"outcome": res.Outcome,
			}).Info("webhook event processed")
		}

		resp := struct {
			Received bool `json:"received"`
		}{true}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

type eventResult struct {
	Outcome Outcome
	Err     error
}

func dispatch(ctx context.Context, db *sqlx.DB, evt webhookEvent) eventResult {
	var err error
	switch evt.Type {
	case eventPaymentCaptured:
		err = applyPaymentCaptured(ctx, db, evt.Payload)
	case eventPaymentFailed:
		err = applyPaymentFailed(ctx, db, evt.Payload)
	case eventOrderPaid:
		err = applyOrderPaid(ctx, db, evt.Payload)
	default:
		return eventResult{Outcome: OutcomeIgnored}
	}

	if err != nil {
		return eventResult{Outcome: OutcomeFailed, Err: err}
	}
	return eventResult{Outcome: OutcomeApplied}
}

// applyPaymentCaptured records the capture and grants the enrollment
// the order bought. When the delivery beats the client's verify call
// the payment row does not exist yet and is created from the event
// payload; when it loses the race the insert is a no-op and only the
// status update runs.
func applyPaymentCaptured(ctx context.Context, db *sqlx.DB, pl webhookPayload) error {
	if pl.Payment == nil {
		return errors.New("payment.captured event carries no payment entity")
	}
	pe := pl.Payment.Entity

	ord, err := order.FetchByExternalID(ctx, db, pe.OrderID)
	if err != nil {
		return fmt.Errorf("fetching the order bound to payment[%s]: %w", pe.ID, err)
	}

	now := time.Now().UTC()
	pay := Payment{
		ID:         validate.GenerateID(),
		ExternalID: pe.ID,
		OrderID:    ord.ID,
		UserID:     ord.UserID,
		Amount:     gateway.WholeUnits(pe.Amount),
		Currency:   pe.Currency,
		Status:     Captured,
		Method:     pe.Method,
		Email:      pe.Email,
		Contact:    pe.Contact,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		created, err := CreateIfAbsent(ctx, tx, pay)
		if err != nil {
			return fmt.Errorf("creating payment: %w", err)
		}

		if !created {
			if err := UpdateStatus(ctx, tx, pe.ID, Captured); err != nil {
				return fmt.Errorf("updating payment status: %w", err)
			}
		}

		up := order.StatusUp{
			ExternalID: ord.ExternalID,
			Status:     order.Status(Captured),
			UpdatedAt:  now,
		}
		if err := order.UpdateStatus(ctx, tx, up); err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}

		course, source := resolveGrant(ord)
		if course == "" {
			return nil
		}

		if _, err := enrollment.Grant(ctx, tx, ord.UserID, course, source); err != nil {
			return fmt.Errorf("granting enrollment: %w", err)
		}

		return nil
	})
}

// applyPaymentFailed marks the attempt failed; it never grants
// anything. A failure arriving before any local payment row creates the
// row so the failed attempt is still on record.
func applyPaymentFailed(ctx context.Context, db *sqlx.DB, pl webhookPayload) error {
	if pl.Payment == nil {
		return errors.New("payment.failed event carries no payment entity")
	}
	pe := pl.Payment.Entity

	ord, err := order.FetchByExternalID(ctx, db, pe.OrderID)
	if err != nil {
		return fmt.Errorf("fetching the order bound to payment[%s]: %w", pe.ID, err)
	}

	now := time.Now().UTC()
	pay := Payment{
		ID:         validate.GenerateID(),
		ExternalID: pe.ID,
		OrderID:    ord.ID,
		UserID:     ord.UserID,
		Amount:     gateway.WholeUnits(pe.Amount),
		Currency:   pe.Currency,
		Status:     Failed,
		Method:     pe.Method,
		Email:      pe.Email,
		Contact:    pe.Contact,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return database.Transaction(db, func(tx sqlx.ExtContext) error {
		created, err := CreateIfAbsent(ctx, tx, pay)
		if err != nil {
			return fmt.Errorf("creating payment: %w", err)
		}

		if !created {
			if err := UpdateStatus(ctx, tx, pe.ID, Failed); err != nil {
				return fmt.Errorf("updating payment status: %w", err)
			}
		}

		// A failed attempt must not downgrade an order another payment
		// already settled.
		if ord.Status == order.Status(Captured) || ord.Status == order.Paid {
			return nil
		}

		up := order.StatusUp{
			ExternalID: ord.ExternalID,
			Status:     order.Failed,
			UpdatedAt:  now,
		}
		if err := order.UpdateStatus(ctx, tx, up); err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}

		return nil
	})
}

func applyOrderPaid(ctx context.Context, db *sqlx.DB, pl webhookPayload) error {
	if pl.Order == nil {
		return errors.New("order.paid event carries no order entity")
	}
	oe := pl.Order.Entity

	up := order.StatusUp{
		ExternalID: oe.ID,
		Status:     order.Paid,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := order.UpdateStatus(ctx, db, up); err != nil {
		return fmt.Errorf("marking order[%s] paid: %w", oe.ID, err)
	}

	return nil
}
