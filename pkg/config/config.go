package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MODARO_DB_DSN"
	EnvDBHost = "MODARO_DB_HOST"
	EnvDBUser = "MODARO_DB_USER"
	EnvDBName = "MODARO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	ServiceKey   ServiceKeyConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	Orders       OrdersConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MODARO_APP_ENV" required:"true"`
	Port         string `envconfig:"MODARO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MODARO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MODARO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MODARO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MODARO_DB_DSN"`
	Driver string `envconfig:"MODARO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MODARO_DB_HOST"`
	LegacyPort     int    `envconfig:"MODARO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MODARO_DB_USER"`
	LegacyPassword string `envconfig:"MODARO_DB_PASSWORD"`
	LegacyName     string `envconfig:"MODARO_DB_NAME"`
	LegacySSLMode  string `envconfig:"MODARO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MODARO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MODARO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MODARO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MODARO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MODARO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MODARO_REDIS_ADDR"`
	Password     string        `envconfig:"MODARO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MODARO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MODARO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MODARO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MODARO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MODARO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MODARO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MODARO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MODARO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MODARO_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// ServiceKeyConfig carries the argon2id parameters and the stored hash used to
// authenticate service-to-service callers (payment webhook).
type ServiceKeyConfig struct {
	WebhookKeyHash   string `envconfig:"MODARO_WEBHOOK_SERVICE_KEY_HASH"`
	ArgonMemoryKB    int    `envconfig:"MODARO_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"MODARO_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"MODARO_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int    `envconfig:"MODARO_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int    `envconfig:"MODARO_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MODARO_AUTO_MIGRATE" default:"false"`
}

type InventoryConfig struct {
	LowStockThreshold int `envconfig:"MODARO_INVENTORY_LOW_STOCK_THRESHOLD" default:"10"`
}

type OrdersConfig struct {
	MaxItemsPerOrder int           `envconfig:"MODARO_ORDERS_MAX_ITEMS" default:"50"`
	PendingTTL       time.Duration `envconfig:"MODARO_ORDERS_PENDING_TTL" default:"24h"`
}

type CronConfig struct {
	OrderSweepInterval time.Duration `envconfig:"MODARO_CRON_ORDER_SWEEP_INTERVAL" default:"10m"`
	JobTimeout         time.Duration `envconfig:"MODARO_CRON_JOB_TIMEOUT" default:"2m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MODARO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"MODARO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MODARO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"MODARO_PUBSUB_ORDERS_TOPIC" default:"modaro-order-events"`
	OrdersSubscription    string `envconfig:"MODARO_PUBSUB_ORDERS_SUBSCRIPTION"`
	InventoryTopic        string `envconfig:"MODARO_PUBSUB_INVENTORY_TOPIC" default:"modaro-inventory-events"`
	InventorySubscription string `envconfig:"MODARO_PUBSUB_INVENTORY_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"MODARO_BIGQUERY_DATASET" default:"modaro"`
	OrderEventsTable string `envconfig:"MODARO_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
	StockEventsTable string `envconfig:"MODARO_BIGQUERY_STOCK_EVENTS_TABLE" default:"stock_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"MODARO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"MODARO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"MODARO_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"MODARO_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
