package enrollment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/coursepay/api/web"
	"github.com/irsalhamdi/coursepay/api/weberr"
	"github.com/irsalhamdi/coursepay/core/claims"
	"github.com/irsalhamdi/coursepay/core/user"
	"github.com/irsalhamdi/coursepay/validate"
	"github.com/jmoiron/sqlx"
)

// HandleGrantAccess is the administrator path for giving a user access
// outside of a payment: either the premium pass or a list of courses.
// Each course grant is independently idempotent, so resubmitting the
// same list is safe; courses already owned are reported, not failed.
// The one exception is a single-course request that is already granted,
// which answers 409 so the admin UI can tell "done now" from "was
// already there".
func HandleGrantAccess(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var body GrantNew
		if err := web.Decode(w, r, &body); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding grant body: %w", err))
		}

		if err := validate.Check(body); err != nil {
			return weberr.BadRequest(err)
		}

		usr, err := user.FetchByEmail(ctx, db, body.Email)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return weberr.NotFound(err)
			}
			return err
		}

		courses := body.Courses
		source := SourceManual
		if body.AccessType == "premium_pass" {
			courses = []string{PremiumPass}
			source = SourcePremium
		}

		granted := []string{}
		alreadyOwned := []string{}
		for _, course := range courses {
			created, err := Grant(ctx, db, usr.ID, course, source)
			if err != nil {
				return fmt.Errorf("granting access to course[%s]: %w", course, err)
			}

			if created {
				granted = append(granted, course)
			} else {
				alreadyOwned = append(alreadyOwned, course)
			}
		}

		if body.AccessType == "course" && len(courses) == 1 && len(granted) == 0 {
			err := fmt.Errorf("user[%s] already owns course[%s]", usr.ID, courses[0])
			return weberr.Conflict(err)
		}

		resp := struct {
			Granted      []string `json:"granted"`
			AlreadyOwned []string `json:"alreadyOwned"`
		}{granted, alreadyOwned}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}

func HandleListOwned(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		enrs, err := ListByUser(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, enrs, http.StatusOK)
	}
}

func HandleShowAccess(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		course := web.Param(r, "course")
		if course == "" {
			return weberr.BadRequest(errors.New("missing course name"))
		}

		ok, err := HasAccess(ctx, db, clm.UserID, course)
		if err != nil {
			return err
		}

		resp := struct {
			CourseName string `json:"courseName"`
			HasAccess  bool   `json:"hasAccess"`
		}{course, ok}

		return web.Respond(ctx, w, resp, http.StatusOK)
	}
}
