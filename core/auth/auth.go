// Package auth is the thin authentication capability consumed by the
// payment endpoints: session-backed claims plus login/logout. Identity
// issuance beyond that (activation, recovery, oauth) lives elsewhere.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/coursepay/api/web"
	"github.com/irsalhamdi/coursepay/api/weberr"
	"github.com/irsalhamdi/coursepay/core/claims"
)

const (
	sessionUserID = "user_id"
	sessionRole   = "role"
)

// LoadAndSave adapts the session manager's middleware to the web.Handler
// signature used across the API.
func LoadAndSave(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			var err error

			sh := session.LoadAndSave(http.HandlerFunc(func(ww http.ResponseWriter, rr *http.Request) {
				err = handler(rr.Context(), ww, rr)
			}))
			sh.ServeHTTP(w, r)

			return err
		}
		return h
	}
	return m
}

// Authenticate requires a logged-in session and stores its claims in the
// request context.
func Authenticate(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(r.Context(), sessionUserID)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			clm := claims.Claims{
				UserID: userID,
				Role:   session.GetString(r.Context(), sessionRole),
			}

			ctx = claims.Set(ctx, clm)
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Admin requires an authenticated session holding the ADMIN role.
func Admin(session *scs.SessionManager) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			userID := session.GetString(r.Context(), sessionUserID)
			if userID == "" {
				return weberr.NotAuthorized(errors.New("user not authenticated"))
			}

			role := session.GetString(r.Context(), sessionRole)
			if role != claims.RoleAdmin {
				err := errors.New("user is not an administrator")
				return weberr.NewError(err, "access denied", http.StatusForbidden)
			}

			ctx = claims.Set(ctx, claims.Claims{UserID: userID, Role: role})
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
