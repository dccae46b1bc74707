package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port        int
	TLSPort     int
	BaseURL     string
	EnableTLS   bool
	AutoCert    bool
	Domain      string
	CertFile    string
	KeyFile     string
	AutoCertDir string
	Email       string
	// AllowedOrigins applies to the referral link API only.
	AllowedOrigins []string
	// Requests per minute per client IP; 0 disables the limit.
	SiteRateLimit int
	APIRateLimit  int
	// TrustProxy is set when a load balancer we run appends X-Forwarded-For.
	TrustProxy    bool
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	TopicPrefix   string
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type PostgresConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type ElasticsearchConfig struct {
	URL        string
	Username   string
	Password   string
	AlertIndex string
}

type ClickhouseConfig struct {
	URL           string
	Username      string
	Password      string
	Database      string
	FlushInterval time.Duration
	BatchSize     int
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

type LoggingConfig struct {
	Level     string
	Format    string
	RedactPII bool
}

type HashingConfig struct {
	Argon2MemoryCost  int
	Argon2TimeCost    int
	Argon2Parallelism int
}

type BucketingConfig struct {
	ReferralBuckets int
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
}

type RapidProConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type WhatsAppConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type OpenHIMConfig struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

type ReferralConfig struct {
	// Store selects the referral link backend: "postgres" or "scylla".
	Store string
}

type JobsConfig struct {
	MaxRetries      int
	BackoffMax      time.Duration
	SoftTimeLimit   time.Duration
	HardTimeLimit   time.Duration
	RegSource       string
	PostRegFlowName string
}

// APIConfig holds credentials for the referral link API. Each token entry has
// the form "username:<argon2 hash>:perm1|perm2".
type APIConfig struct {
	Tokens []string
}

type Config struct {
	Environment         string
	SecretKey           string
	ClinicCodeBlacklist []string

	Server        ServerConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Scylla        ScyllaConfig
	Postgres      PostgresConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	KMS           KMSConfig
	Logging       LoggingConfig
	Hashing       HashingConfig
	Bucketing     BucketingConfig
	Session       SessionConfig
	RapidPro      RapidProConfig
	WhatsApp      WhatsAppConfig
	OpenHIM       OpenHIMConfig
	Referral      ReferralConfig
	Jobs          JobsConfig
	API           APIConfig
}

var (
	loaded *Config
	mu     sync.Mutex
)

// LoadConfig reads the environment (and a .env file when present) into a Config
// and remembers it for Get.
func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		SecretKey:           getEnv("SECRET_KEY", "REPLACEME"),
		ClinicCodeBlacklist: getList("CLINIC_CODE_BLACKLIST", nil),
		Server: ServerConfig{
			Port:           getInt("PORT", 8000),
			TLSPort:        getInt("TLS_PORT", 8443),
			BaseURL:        getEnv("BASE_URL", ""),
			EnableTLS:      getBool("ENABLE_TLS", false),
			AutoCert:       getBool("AUTO_CERT", false),
			Domain:         getEnv("DOMAIN", "localhost"),
			CertFile:       getEnv("TLS_CERT_FILE", ""),
			KeyFile:        getEnv("TLS_KEY_FILE", ""),
			AutoCertDir:    getEnv("AUTO_CERT_DIR", "./certs"),
			Email:          getEnv("ACME_EMAIL", ""),
			AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			SiteRateLimit:  getInt("SITE_RATE_LIMIT", 120),
			APIRateLimit:   getInt("API_RATE_LIMIT", 600),
			TrustProxy:     getBool("TRUST_PROXY", false),
			ReadTimeout:    getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			PoolSize: getInt("REDIS_POOL_SIZE", 20),
		},
		Kafka: KafkaConfig{
			Brokers:       getList("KAFKA_BROKERS", []string{"localhost:9092"}),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "nurseconnect-registration"),
			TopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", "nurseconnect"),
		},
		Scylla: ScyllaConfig{
			Nodes:    getList("SCYLLA_NODES", []string{"localhost:9042"}),
			Keyspace: getEnv("SCYLLA_KEYSPACE", "nurseconnect"),
			Username: getEnv("SCYLLA_USERNAME", ""),
			Password: getEnv("SCYLLA_PASSWORD", ""),
		},
		Postgres: PostgresConfig{
			DSN:          getEnv("DATABASE_URL", "postgres://postgres:@localhost/nurseconnect_registration?sslmode=disable"),
			MaxOpenConns: getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:        getEnv("ELASTICSEARCH_URL", ""),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			AlertIndex: getEnv("ELASTICSEARCH_ALERT_INDEX", "nurseconnect-alerts"),
		},
		Clickhouse: ClickhouseConfig{
			URL:           getEnv("CLICKHOUSE_URL", ""),
			Username:      getEnv("CLICKHOUSE_USERNAME", "default"),
			Password:      getEnv("CLICKHOUSE_PASSWORD", ""),
			Database:      getEnv("CLICKHOUSE_DATABASE", "nurseconnect"),
			FlushInterval: getDuration("CLICKHOUSE_FLUSH_INTERVAL", 5*time.Second),
			BatchSize:     getInt("CLICKHOUSE_BATCH_SIZE", 500),
		},
		KMS: KMSConfig{
			Enabled: getBool("KMS_ENABLED", false),
			KeyID:   getEnv("KMS_KEY_ID", ""),
			Region:  getEnv("AWS_REGION", "af-south-1"),
		},
		Logging: LoggingConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "json"),
			RedactPII: getBool("LOG_REDACT_PII", true),
		},
		Hashing: HashingConfig{
			Argon2MemoryCost:  getInt("ARGON2_MEMORY_COST", 64*1024),
			Argon2TimeCost:    getInt("ARGON2_TIME_COST", 1),
			Argon2Parallelism: getInt("ARGON2_PARALLELISM", 2),
		},
		Bucketing: BucketingConfig{
			ReferralBuckets: getInt("REFERRAL_BUCKETS", 64),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "sessionid"),
			TTL:        getDuration("SESSION_TTL", 14*24*time.Hour),
		},
		RapidPro: RapidProConfig{
			URL:     getEnv("RAPIDPRO_URL", "REPLACEME"),
			Token:   getEnv("RAPIDPRO_TOKEN", "REPLACEME"),
			Timeout: getDuration("RAPIDPRO_TIMEOUT", 5*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			URL:     getEnv("WHATSAPP_URL", "https://whatsapp.praekelt.org"),
			Token:   getEnv("WHATSAPP_TOKEN", "REPLACEME"),
			Timeout: getDuration("WHATSAPP_TIMEOUT", 10*time.Second),
		},
		OpenHIM: OpenHIMConfig{
			URL:      getEnv("OPENHIM_URL", "REPLACEME"),
			Username: getEnv("OPENHIM_USERNAME", "REPLACEME"),
			Password: getEnv("OPENHIM_PASSWORD", "REPLACEME"),
			Timeout:  getDuration("OPENHIM_TIMEOUT", 5*time.Second),
		},
		Referral: ReferralConfig{
			Store: getEnv("REFERRAL_STORE", "postgres"),
		},
		Jobs: JobsConfig{
			MaxRetries:      getInt("JOB_MAX_RETRIES", 15),
			BackoffMax:      getDuration("JOB_BACKOFF_MAX", 600*time.Second),
			SoftTimeLimit:   getDuration("JOB_SOFT_TIME_LIMIT", 10*time.Second),
			HardTimeLimit:   getDuration("JOB_HARD_TIME_LIMIT", 15*time.Second),
			RegSource:       getEnv("REG_SOURCE", "mobi-site"),
			PostRegFlowName: getEnv("POST_REGISTRATION_FLOW", "post registration"),
		},
		API: APIConfig{
			Tokens: getSeparated("API_TOKENS", ";"),
		},
	}

	mu.Lock()
	loaded = cfg
	mu.Unlock()
	return cfg
}

// Get returns the most recently loaded config, loading it on first use.
func Get() *Config {
	mu.Lock()
	cfg := loaded
	mu.Unlock()
	if cfg == nil {
		return LoadConfig()
	}
	return cfg
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	return splitOr(os.Getenv(key), ",", defaultValue)
}

func getSeparated(key, sep string) []string {
	return splitOr(os.Getenv(key), sep, nil)
}

func splitOr(value, sep string, defaultValue []string) []string {
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
