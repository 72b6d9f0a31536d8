package test

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/irsalhamdi/coursepay/api"
	"github.com/irsalhamdi/coursepay/config"
	"github.com/irsalhamdi/coursepay/core/user"
	"github.com/irsalhamdi/coursepay/database"
	"github.com/irsalhamdi/coursepay/rate"
	"github.com/irsalhamdi/coursepay/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	pgUser = "postgres"
	pgPass = "postgres"

	keySecret     = "test-key-secret"
	webhookSecret = "test-webhook-secret"
)

var (
	pool     *dockertest.Pool
	resource *dockertest.Resource
	pgHost   string
)

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	os.Exit(run(m))
}

func run(m *testing.M) int {
	var err error
	pool, err = dockertest.NewPool("")
	if err != nil || pool.Client.Ping() != nil {
		fmt.Fprintln(os.Stderr, "docker is not available, database-backed tests will be skipped")
		pool = nil
		return m.Run()
	}

	resource, err = pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=" + pgUser,
		"POSTGRES_PASSWORD=" + pgPass,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start postgres: %v\n", err)
		return 1
	}
	defer pool.Purge(resource)

	// Hard stop in case a run is aborted before the purge.
	resource.Expire(900)

	pgHost = "localhost:" + resource.GetPort("5432/tcp")

	err = pool.Retry(func() error {
		db, err := database.Open(config.DB{
			User: pgUser, Password: pgPass, Host: pgHost, Name: "postgres", DisableTLS: true,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not connect to postgres: %v\n", err)
		return 1
	}

	return m.Run()
}

type TestEnv struct {
	Server *httptest.Server
	URL    string
	DB     *sqlx.DB

	Gateway       *fakeGateway
	KeySecret     string
	WebhookSecret string

	UserID     string
	UserEmail  string
	UserPass   string
	AdminEmail string
	AdminPass  string

	client *http.Client
}

// NewTestEnv creates a database named after the test, migrates it, seeds
// a learner and an administrator, and serves the API over it with the
// gateway faked in memory.
func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	if testing.Short() || pool == nil {
		t.Skip("skipping database-backed test")
	}

	admin, err := database.Open(config.DB{
		User: pgUser, Password: pgPass, Host: pgHost, Name: "postgres", DisableTLS: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening admin connection: %w", err)
	}
	defer admin.Close()

	if _, err := admin.Exec("CREATE DATABASE " + name); err != nil {
		return nil, fmt.Errorf("creating database %s: %w", name, err)
	}

	db, err := database.Open(config.DB{
		User: pgUser, Password: pgPass, Host: pgHost, Name: name, DisableTLS: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening test connection: %w", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating test database: %w", err)
	}

	env := &TestEnv{
		DB:            db,
		Gateway:       newFakeGateway(),
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
		UserEmail:     "learner@test.com",
		UserPass:      "learner-pass0",
		AdminEmail:    "admin@test.com",
		AdminPass:     "admin-pass000",
	}

	env.UserID, err = seedUser(db, "Learner", env.UserEmail, env.UserPass, "USER")
	if err != nil {
		return nil, err
	}
	if _, err := seedUser(db, "Admin", env.AdminEmail, env.AdminPass, "ADMIN"); err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(os.Stdout)

	session := scs.New()
	session.Lifetime = time.Hour

	mux := api.APIMux(api.APIConfig{
		Log:          log,
		DB:           db,
		Session:      session,
		Gateway:      env.Gateway,
		Razorpay:     config.Razorpay{Key: "test-key", Secret: keySecret, WebhookSecret: webhookSecret},
		LoginLimiter: rate.NewLimiter(100, 100, 100),
	})

	env.Server = httptest.NewServer(mux)
	t.Cleanup(env.Server.Close)
	env.URL = env.Server.URL

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("building cookie jar: %w", err)
	}
	env.client = &http.Client{Jar: jar}

	return env, nil
}

func (te *TestEnv) Client() *http.Client {
	return te.client
}

func seedUser(db *sqlx.DB, name string, email string, pass string, role string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:           validate.GenerateID(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(context.Background(), db, usr); err != nil {
		return "", fmt.Errorf("seeding user %s: %w", email, err)
	}

	return usr.ID, nil
}
