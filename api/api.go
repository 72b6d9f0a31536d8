package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/irsalhamdi/coursepay/api/middleware"
	"github.com/irsalhamdi/coursepay/api/web"
	"github.com/irsalhamdi/coursepay/config"
	"github.com/irsalhamdi/coursepay/core/auth"
	"github.com/irsalhamdi/coursepay/core/enrollment"
	"github.com/irsalhamdi/coursepay/core/order"
	"github.com/irsalhamdi/coursepay/core/payment"
	"github.com/irsalhamdi/coursepay/core/user"
	"github.com/irsalhamdi/coursepay/gateway"
	"github.com/irsalhamdi/coursepay/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type APIConfig struct {
	CorsOrigin   string
	Log          logrus.FieldLogger
	DB           *sqlx.DB
	Session      *scs.SessionManager
	Gateway      gateway.Client
	Razorpay     config.Razorpay
	LoginLimiter *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	admin := auth.Admin(cfg.Session)

	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session, cfg.LoginLimiter))
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)

	a.Handle(http.MethodPost, "/payments/orders", order.HandleCreate(cfg.DB, cfg.Gateway), authen)
	a.Handle(http.MethodPost, "/payments/verify", payment.HandleVerify(cfg.DB, cfg.Gateway, cfg.Razorpay.Secret, cfg.Log), authen)
	a.Handle(http.MethodPost, "/payments/webhook", payment.HandleWebhook(cfg.DB, cfg.Razorpay.WebhookSecret, cfg.Log))

	a.Handle(http.MethodGet, "/enrollments", enrollment.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/enrollments/{course}/access", enrollment.HandleShowAccess(cfg.DB), authen)

	a.Handle(http.MethodPost, "/admin/grant-access", enrollment.HandleGrantAccess(cfg.DB), admin)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
