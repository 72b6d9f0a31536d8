package order

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/coursepay/api/web"
	"github.com/irsalhamdi/coursepay/api/weberr"
	"github.com/irsalhamdi/coursepay/core/claims"
	"github.com/irsalhamdi/coursepay/core/user"
	"github.com/irsalhamdi/coursepay/gateway"
	"github.com/irsalhamdi/coursepay/random"
	"github.com/irsalhamdi/coursepay/validate"
	"github.com/jmoiron/sqlx"
)

// HandleCreate creates a gateway order for the requesting user and
// records it locally with status created. The gateway call happens
// first: a gateway failure leaves no local row behind.
func HandleCreate(db *sqlx.DB, gw gateway.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var body OrderNew
		if err := web.Decode(w, r, &body); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding order body: %w", err))
		}

		if err := validate.Check(body); err != nil {
			return weberr.BadRequest(err)
		}

		if body.Currency == "" {
			body.Currency = CurrencyINR
		}

		if body.Receipt == "" {
			body.Receipt = "rcpt_" + random.String(14)
		}

		usr, err := user.Fetch(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("fetching requesting user: %w", err)
		}

		notes := Notes{}
		for k, v := range body.Notes {
			notes[k] = v
		}
		notes["user_id"] = usr.ID
		notes["user_email"] = usr.Email

		gwo, err := gw.CreateOrder(ctx, gateway.OrderRequest{
			Amount:   gateway.MinorUnits(body.Amount),
			Currency: body.Currency,
			Receipt:  body.Receipt,
			Notes:    notes,
		})
		if err != nil {
			return weberr.BadGateway(fmt.Errorf("creating gateway order: %w", err))
		}

		now := time.Now().UTC()
		ord := Order{
			ID:         validate.GenerateID(),
			ExternalID: gwo.ID,
			UserID:     usr.ID,
			Amount:     body.Amount,
			Currency:   body.Currency,
			Receipt:    body.Receipt,
			Notes:      notes,
			Status:     Created,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := Create(ctx, db, ord); err != nil {
			return fmt.Errorf("creating the order bound to gateway order[%s]: %w", gwo.ID, err)
		}

		resp := struct {
			Order Order `json:"order"`
		}{ord}

		return web.Respond(ctx, w, resp, http.StatusCreated)
	}
}
