package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	Database    Database  `envPrefix:"DATABASE_"`
	Redis       Redis     `envPrefix:"REDIS_"`
	Auth        Auth      `envPrefix:"AUTH_"`
	CORS        CORS      `envPrefix:"CORS_"`
	Payment     Payment   `envPrefix:"PAYMENT_"`
	Webhook     Webhook   `envPrefix:"WEBHOOK_"`
	Reconcile   Reconcile `envPrefix:"RECONCILE_"`

	// ATTENDANCE_CAS_RETRIES=0 keeps the lost-increment behaviour: the conflict is logged only.
	AttendanceCASRetries int `env:"ATTENDANCE_CAS_RETRIES" envDefault:"3"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host     string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port     string `env:"HTTP_PORT" envDefault:"8080"`
	// IPSource selects where the client IP comes from: direct, xff or real-ip.
	// Forwarding headers are only honoured from private network proxies.
	IPSource string `env:"HTTP_IP_SOURCE" envDefault:"direct"`
	// MaxBody bounds JSON request bodies, in echo BodyLimit notation.
	MaxBody  string `env:"HTTP_MAX_BODY" envDefault:"64K"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"mysql"` // mysql, sqlite
	URL    string `env:"URL"`
}

type Redis struct {
	URL string `env:"URL"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
	Audience  string `env:"JWT_AUDIENCE" envDefault:"authenticated"`
}

type CORS struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

type Payment struct {
	Provider        string        `env:"PROVIDER" envDefault:"http"` // http, braintree, none
	MaxAmount       float64       `env:"MAX_AMOUNT" envDefault:"10000"`
	Currencies      []string      `env:"CURRENCIES" envSeparator:"," envDefault:"USD,EUR,GBP,CAD"`
	DuplicateWindow time.Duration `env:"DUPLICATE_WINDOW" envDefault:"5m"`

	HTTP      PaymentHTTP `envPrefix:"HTTP_"`
	Braintree Braintree   `envPrefix:"BRAINTREE_"`
}

type PaymentHTTP struct {
	BaseApiURL string        `env:"BASE_API_URL"`
	SecretKey  string        `env:"SECRET_KEY"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type Braintree struct {
	Environment string `env:"ENVIRONMENT"`
	MerchantID  string `env:"MERCHANT_ID"`
	PublicKey   string `env:"PUBLIC_KEY"`
	PrivateKey  string `env:"PRIVATE_KEY"`

	// MerchantAccounts maps currency to merchant account id, e.g. "EUR:acme_eur,GBP:acme_gbp".
	MerchantAccounts map[string]string `env:"MERCHANT_ACCOUNTS"`
	// DefaultCurrency is billed by the gateway's default merchant account.
	DefaultCurrency  string            `env:"DEFAULT_CURRENCY" envDefault:"USD"`
}

type Webhook struct {
	Secret          string        `env:"SECRET"`
	SignatureHeader string        `env:"SIGNATURE_HEADER" envDefault:"X-Processor-Signature"`
	SignaturePrefix string        `env:"SIGNATURE_PREFIX" envDefault:"sha256="`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"65536"`
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"10"`
	RateWindow      time.Duration `env:"RATE_WINDOW" envDefault:"1m"`
}

type Reconcile struct {
	Interval    time.Duration `env:"INTERVAL" envDefault:"1m"`
	BatchSize   int           `env:"BATCH_SIZE" envDefault:"50"`
	AutoRefund  bool          `env:"AUTO_REFUND" envDefault:"false"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
}

func (c *Config) Address() string {
	return c.HTTP.Host + ":" + c.HTTP.Port
}
