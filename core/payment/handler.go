package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/coursepay/api/web"
	"github.com/irsalhamdi/coursepay/api/weberr"
	"github.com/irsalhamdi/coursepay/core/claims"
	"github.com/irsalhamdi/coursepay/core/enrollment"
	"github.com/irsalhamdi/coursepay/core/order"
	"github.com/irsalhamdi/coursepay/database"
	"github.com/irsalhamdi/coursepay/gateway"
	"github.com/irsalhamdi/coursepay/validate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var errAlreadyProcessed = errors.New("payment already processed")

// resolveGrant maps a paid order to the enrollment it buys, read from
// the notes attached at order creation. An order carrying neither key
// buys no enrollment; the capture is still recorded.
func resolveGrant(ord order.Order) (courseName string, source enrollment.Source) {
	if ord.Notes["access_type"] == "premium_pass" {
		return enrollment.PremiumPass, enrollment.SourcePremium
	}
	if name := ord.Notes["course_name"]; name != "" {
		return name, enrollment.SourcePayment
	}
	return "", ""
}

// HandleVerify is the synchronous confirmation path: the client posts
// the payment id, order id and signature the gateway handed it after
// checkout. The signature check runs before anything is read or
// written; the payment insert is the idempotency guard against both
// double submission and a racing webhook.
func HandleVerify(db *sqlx.DB, gw gateway.Client, keySecret string, log logrus.FieldLogger) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var body VerifyNew
		if err := web.Decode(w, r, &body); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding verify body: %w", err))
		}

		if err := validate.Check(body); err != nil {
			return weberr.BadRequest(err)
		}

		if !gateway.VerifyCallback(keySecret, body.ExternalOrderID, body.ExternalPaymentID, body.Signature) {
			// Rejected before anything is read or written; the fields
			// mark it as a forgery attempt in the error log.
			return weberr.BadRequest(errors.New("invalid payment signature"), weberr.WithFields(map[string]interface{}{
				"security": "signature_mismatch",
				"order":    body.ExternalOrderID,
				"payment":  body.ExternalPaymentID,
				"user":     clm.UserID,
			}))
		}

		gwp, err := gw.FetchPayment(ctx, body.ExternalPaymentID)
		if err != nil {
			return weberr.BadGateway(fmt.Errorf("fetching payment detail: %w", err))
		}

		ord, err := order.FetchOwned(ctx, db, body.ExternalOrderID, clm.UserID)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		now := time.Now().UTC()
		pay := Payment{
			ID:         validate.GenerateID(),
			ExternalID: gwp.ID,
			OrderID:    ord.ID,
			UserID:     ord.UserID,
			Amount:     gateway.WholeUnits(gwp.Amount),
			Currency:   gwp.Currency,
			Status:     Status(gwp.Status),
			Method:     gwp.Method,
			Email:      gwp.Email,
			Contact:    gwp.Contact,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			created, err := CreateIfAbsent(ctx, tx, pay)
			if err != nil {
				return fmt.Errorf("creating payment: %w", err)
			}

			if !created {
				return errAlreadyProcessed
			}

			up := order.StatusUp{
				ExternalID: ord.ExternalID,
				Status:     order.Status(pay.Status),
				UpdatedAt:  now,
			}
			if err := order.UpdateStatus(ctx, tx, up); err != nil {
				return fmt.Errorf("updating order status: %w", err)
			}

			if pay.Status == Captured {
				course, source := resolveGrant(ord)
				if course == "" {
					log.WithField("order", ord.ExternalID).Warn("captured order implies no enrollment")
					return nil
				}

				if _, err := enrollment.Grant(ctx, tx, ord.UserID, course, source); err != nil {
					return fmt.Errorf("granting enrollment: %w", err)
				}
			}

			return nil
		})

		if err != nil {
			if errors.Is(err, errAlreadyProcessed) {
				return weberr.Conflict(fmt.Errorf("payment[%s] already processed", pay.ExternalID))
			}
			return fmt.Errorf("verifying payment[%s]: %w", pay.ExternalID, err)
		}

		resp := struct {
			Payment Payment `json:"payment"`
		}{pay}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
