package config

import "time"

type Config struct {
	Web      Web
	DB       DB
	Cors     Cors
	Razorpay Razorpay
	Auth     Auth
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost"`
	Name       string `conf:"default:coursepay"`
	DisableTLS bool   `conf:"default:true"`
}

type Cors struct {
	Origin string
}

// Razorpay carries the gateway credentials. Key and Secret authenticate
// API calls and sign client callbacks; WebhookSecret signs webhook
// deliveries and is a separate secret on the gateway dashboard.
type Razorpay struct {
	Key           string
	Secret        string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
}

type Auth struct {
	SessionLifetime time.Duration `conf:"default:24h"`
	LoginRPS        float64       `conf:"default:1"`
	LoginBurst      int           `conf:"default:5"`
}
