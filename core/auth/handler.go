package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/coursepay/api/web"
	"github.com/irsalhamdi/coursepay/api/weberr"
	"github.com/irsalhamdi/coursepay/core/user"
	"github.com/irsalhamdi/coursepay/rate"
	"github.com/irsalhamdi/coursepay/validate"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func HandleLogin(db *sqlx.DB, session *scs.SessionManager, limiter *rate.Limiter) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var body loginBody
		if err := web.Decode(w, r, &body); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding login body: %w", err))
		}

		if err := validate.Check(body); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if !limiter.Check(body.Email) {
			err := errors.New("too many login attempts")
			return weberr.NewError(err, err.Error(), http.StatusTooManyRequests)
		}

		usr, err := user.FetchByEmail(ctx, db, body.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotAuthorized(err)
			}
			return err
		}

		if err := bcrypt.CompareHashAndPassword(usr.PasswordHash, []byte(body.Password)); err != nil {
			return weberr.NotAuthorized(errors.New("wrong credentials"))
		}

		// Renew first so a pre-login session id never survives
		// authentication.
		if err := session.RenewToken(r.Context()); err != nil {
			return fmt.Errorf("renewing session token: %w", err)
		}

		session.Put(r.Context(), sessionUserID, usr.ID)
		session.Put(r.Context(), sessionRole, usr.Role)

		return web.Respond(ctx, w, usr, http.StatusOK)
	}
}

func HandleLogout(session *scs.SessionManager) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if err := session.Destroy(r.Context()); err != nil {
			return fmt.Errorf("destroying session: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}
