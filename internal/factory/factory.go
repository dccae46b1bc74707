package factory

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"nurseconnect-registration/internal/alerting"
	"nurseconnect-registration/internal/analytics"
	"nurseconnect-registration/internal/auth"
	"nurseconnect-registration/internal/bucketing"
	"nurseconnect-registration/internal/client"
	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/contacts"
	"nurseconnect-registration/internal/encryption"
	"nurseconnect-registration/internal/facility"
	"nurseconnect-registration/internal/handler"
	"nurseconnect-registration/internal/hashing"
	"nurseconnect-registration/internal/jobs"
	"nurseconnect-registration/internal/metrics"
	"nurseconnect-registration/internal/openhim"
	"nurseconnect-registration/internal/rapidpro"
	"nurseconnect-registration/internal/referral"
	"nurseconnect-registration/internal/registration"
	"nurseconnect-registration/internal/repository/postgres"
	redisrepo "nurseconnect-registration/internal/repository/redis"
	"nurseconnect-registration/internal/repository/scylla"
	"nurseconnect-registration/internal/tls"
	"nurseconnect-registration/internal/util"
	"nurseconnect-registration/internal/whatsapp"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager
	registry   *prometheus.Registry
	metrics    *metrics.Metrics

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	postgresDB       *sql.DB
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.EncryptionManager
	bucketingManager  *bucketing.BucketingManager

	// Partner APIs
	rapidPro rapidpro.Client
	whatsApp whatsapp.Client
	openHIM  openhim.Client

	// Services
	referrals  *referral.Service
	contacts   *contacts.Service
	alerter    *alerting.Alerter
	recorder   *analytics.Recorder
	topics     jobs.Topics
	queue      *jobs.KafkaQueue
	wizard     *registration.Wizard
	sessions   *redisrepo.SessionCache
	worker     *jobs.Worker
	authorizer *auth.Authenticator

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)
	util.SetRedactPII(cfg.Logging.RedactPII)

	factory := &Factory{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		closed:   make(chan struct{}),
	}
	factory.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory.metrics = metrics.New(factory.registry)

	if cfg.Server.EnableTLS {
		factory.tlsManager = tls.NewTLSManager(cfg)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	if err := factory.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
		util.String("referral_store", cfg.Referral.Store),
	)

	return factory, nil
}

// initializeClients connects to every backing service. Redis, Kafka and the
// referral store are required; Elasticsearch and ClickHouse are optional and
// only dialled when configured.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if c, err := client.NewRedisClient(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = c
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// Referral store
	switch f.config.Referral.Store {
	case "scylla":
		if c, err := scylla.NewScyllaClient(f.config, util.Get()); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
		} else {
			f.scyllaClient = c
			if err := f.scyllaClient.HealthCheck(ctx); err != nil {
				initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
			} else {
				util.Info("ScyllaDB client initialized and healthy")
			}
		}
	case "postgres":
		if db, err := postgres.Open(f.config.Postgres); err != nil {
			initErrors = append(initErrors, fmt.Errorf("postgres: %w", err))
		} else {
			f.postgresDB = db
			util.Info("PostgreSQL connection initialized and healthy")
		}
	default:
		return fmt.Errorf("unknown referral store %q", f.config.Referral.Store)
	}

	// Kafka
	if producer, err := client.NewKafkaProducer(f.config, util.Get()); err != nil {
		initErrors = append(initErrors, fmt.Errorf("kafka: %w", err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// Elasticsearch
	if f.config.Elasticsearch.URL == "" {
		util.Info("Elasticsearch not configured - alerts are logged only")
	} else if c, err := client.NewElasticsearchClient(f.config, util.Get()); err != nil {
		util.Warn("Elasticsearch initialization failed - alerts are logged only", util.ErrorField(err))
	} else {
		f.esClient = c
	}

	// ClickHouse
	if f.config.Clickhouse.URL == "" {
		util.Info("ClickHouse not configured - analytics disabled")
	} else if c, err := client.NewClickHouseClient(f.config, util.Get()); err != nil {
		util.Warn("ClickHouse initialization failed - analytics disabled", util.ErrorField(err))
	} else {
		f.clickhouseClient = c
		if err := c.Exec(ctx, analytics.Schema); err != nil {
			util.Warn("Failed to apply analytics schema", util.ErrorField(err))
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	if f.redisClient == nil || f.kafkaProducer == nil || (f.scyllaClient == nil && f.postgresDB == nil) {
		return fmt.Errorf("required services unavailable: %v", initErrors)
	}

	return nil
}

// initializeManagers initializes hashing, encryption, and bucketing managers
func (f *Factory) initializeManagers() error {
	f.hasher = hashing.NewHasher(f.config)

	var kmsClient encryption.KMSAPI
	if f.config.KMS.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		kmsClient = kms.NewFromConfig(awsCfg)
	}

	f.encryptionManager = encryption.NewEncryptionManager(f.config, kmsClient)
	f.bucketingManager = bucketing.NewBucketingManager(f.config)

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("encryption_initialized", f.encryptionManager != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
	)
	return nil
}

// initializeServices wires the partner API clients, the wizard and the jobs
// pipeline on top of the clients and managers.
func (f *Factory) initializeServices() error {
	cfg := f.config

	f.rapidPro = rapidpro.NewClient(cfg.RapidPro, &http.Client{Timeout: cfg.RapidPro.Timeout})
	f.whatsApp = whatsapp.NewClient(cfg.WhatsApp, &http.Client{Timeout: cfg.WhatsApp.Timeout})
	openHIM, err := openhim.NewClient(cfg.OpenHIM, &http.Client{Timeout: cfg.OpenHIM.Timeout})
	if err != nil {
		return fmt.Errorf("openhim: %w", err)
	}
	f.openHIM = openHIM

	codec, err := referral.NewCodec(cfg.SecretKey)
	if err != nil {
		return fmt.Errorf("referral codec: %w", err)
	}
	var repo referral.Repository
	if f.scyllaClient != nil {
		repo = scylla.NewReferralRepository(f.scyllaClient, f.bucketingManager)
	} else {
		repo = postgres.NewReferralRepository(f.postgresDB)
	}
	f.referrals = referral.NewService(repo, codec, f.metrics)

	f.contacts = contacts.NewService(f.rapidPro, redisrepo.NewContactCache(f.redisClient), f.metrics)
	f.sessions = redisrepo.NewSessionCache(f.redisClient, f.encryptionManager, cfg.Session.TTL)

	var indexer alerting.Indexer
	if f.esClient != nil {
		indexer = f.esClient
	}
	f.alerter = alerting.NewAlerter(indexer, cfg.Elasticsearch.AlertIndex, f.metrics)

	var inserter analytics.BatchInserter
	if f.clickhouseClient != nil {
		inserter = f.clickhouseClient
	}
	f.recorder = analytics.NewRecorder(inserter, f.bucketingManager, cfg.Clickhouse)
	f.recorder.Start()

	f.topics = jobs.NewTopics(cfg)
	f.queue = jobs.NewKafkaQueue(f.kafkaProducer, f.topics)

	f.wizard = registration.NewWizard(
		f.contacts,
		facility.NewVerifier(f.openHIM, cfg.ClinicCodeBlacklist, f.metrics),
		whatsapp.NewProber(f.whatsApp, f.metrics),
		f.referrals,
		jobs.NewDispatcher(f.queue),
		f.alerter,
		registration.WithMetrics(f.metrics),
		registration.WithRecorder(f.recorder),
	)

	f.worker = jobs.NewWorker(f.queue, jobs.NewRetryPolicy(cfg.Jobs), f.alerter, f.recorder, f.metrics)
	f.worker.Register(jobs.TaskDirectoryUpsert, jobs.NewDirectoryUpsert(f.rapidPro, cfg.Jobs.PostRegFlowName, cfg.Jobs.RegSource))
	f.worker.Register(jobs.TaskExchangeNotify, jobs.NewExchangeNotification(f.openHIM))

	f.authorizer, err = auth.NewAuthenticator(f.hasher, cfg.API.Tokens)
	if err != nil {
		return fmt.Errorf("api tokens: %w", err)
	}

	return nil
}

// Router builds the HTTP handler for the registration site and API.
func (f *Factory) Router() (chi.Router, error) {
	renderer, err := handler.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return handler.NewRouter(handler.RouterConfig{
		Wizard:         handler.NewWizardHandler(f.wizard, f.sessions, renderer, f.config),
		Referral:       handler.NewReferralHandler(f.referrals, f.config.Server.BaseURL),
		Auth:           f.authorizer,
		Metrics:        f.metrics,
		Gatherer:       f.registry,
		HealthChecks:   f.healthChecks(),
		RequireHTTPS:   f.config.IsProduction(),
		AllowedOrigins: f.config.Server.AllowedOrigins,
		Logger:         util.Get(),
		RateLimiter:    redisrepo.NewRateLimitCache(f.redisClient),
		SiteLimit:      f.config.Server.SiteRateLimit,
		APILimit:       f.config.Server.APIRateLimit,
		TrustProxy:     f.config.Server.TrustProxy,
	}), nil
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) healthChecks() []handler.HealthCheck {
	checks := []handler.HealthCheck{
		{Name: "redis", Check: f.redisClient.HealthCheck},
		{Name: "referral_store", Check: f.referrals.HealthCheck},
		{Name: "kafka", Check: f.kafkaProducer.HealthCheck},
	}
	if f.esClient != nil {
		checks = append(checks, handler.HealthCheck{Name: "elasticsearch", Check: f.esClient.HealthCheck})
	}
	if f.clickhouseClient != nil {
		checks = append(checks, handler.HealthCheck{Name: "clickhouse", Check: f.clickhouseClient.HealthCheck})
	}
	return checks
}

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)
	for _, c := range f.healthChecks() {
		if err := c.Check(ctx); err != nil {
			healthErrors[c.Name] = err
		}
	}
	if f.hasher == nil {
		healthErrors["hasher"] = fmt.Errorf("hasher not initialized")
	}
	if f.encryptionManager == nil {
		healthErrors["encryption"] = fmt.Errorf("encryption manager not initialized")
	}
	if f.bucketingManager == nil {
		healthErrors["bucketing"] = fmt.Errorf("bucketing manager not initialized")
	}
	return healthErrors
}

// ==============================
// Other Utility Methods
// ==============================

func (f *Factory) IsHealthy(ctx context.Context) bool {
	return len(f.HealthCheck(ctx)) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

		if f.recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := f.recorder.Close(ctx); err != nil {
				util.Error("Failed to flush analytics events", util.ErrorField(err))
			}
			cancel()
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			util.Info("ScyllaDB client closed")
		}

		if f.postgresDB != nil {
			if err := f.postgresDB.Close(); err != nil {
				util.Error("Failed to close PostgreSQL connection", util.ErrorField(err))
			} else {
				util.Info("PostgreSQL connection closed")
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		if f.encryptionManager != nil {
			f.encryptionManager.ClearCache()
			util.Info("Encryption manager cache cleared")
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}

func (f *Factory) Hasher() *hashing.Hasher {
	return f.hasher
}

func (f *Factory) Worker() *jobs.Worker {
	return f.worker
}

func (f *Factory) Queue() jobs.Queue {
	return f.queue
}

func (f *Factory) Topics() jobs.Topics {
	return f.topics
}
