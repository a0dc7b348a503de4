package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"secops-service/internal/bucketing"
	"secops-service/internal/client"
	"secops-service/internal/config"
	"secops-service/internal/encryption"
	"secops-service/internal/hashing"
	"secops-service/internal/repository/clickhouse"
	"secops-service/internal/repository/es"
	"secops-service/internal/repository/redis"
	"secops-service/internal/repository/scylla"
	"secops-service/internal/service"
	"secops-service/internal/tls"
	"secops-service/internal/util"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient

	// Managers
	hasher            *hashing.Hasher
	encryptionManager *encryption.Manager
	bucketingManager  *bucketing.BucketingManager

	// Repositories
	threatRepo       scylla.ThreatRepository
	incidentRepo     scylla.IncidentRepository
	requestRepo      scylla.DataRequestRepository
	twoFactorRepo    scylla.TwoFactorRepository
	preferenceRepo   scylla.PreferenceRepository
	sessionRepo      scylla.SessionRepository
	notificationRepo scylla.NotificationRepository
	auditRepo        scylla.AuditRepository
	adminSessionRepo scylla.AdminSessionRepository

	tokenCache  *redis.TokenCache
	threatIndex *es.ThreatIndex
	eventStore  *clickhouse.EventStore
	publisher   *service.StreamEventPublisher

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory creates and initializes all application dependencies
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	factory := &Factory{
		config: cfg,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		tlsConfig := &tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		}
		factory.tlsManager = tls.NewTLSManager(tlsConfig)
	}

	if err := factory.initializeClients(); err != nil {
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := factory.initializeManagers(); err != nil {
		return nil, fmt.Errorf("failed to initialize managers: %w", err)
	}

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kms_enabled", cfg.KMS.Enabled),
	)

	return factory, nil
}

// initializeClients initializes all external service clients with health checks
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var initErrors []error

	// Redis
	if rc, err := client.NewRedisClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
	} else {
		f.redisClient = rc
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			util.Info("Redis client initialized and healthy")
		}
	}

	// ScyllaDB
	if sc, err := scylla.NewScyllaClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
	} else {
		f.scyllaClient = sc
		if err := f.scyllaClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			util.Info("ScyllaDB client initialized and healthy")
		}
	}

	// Kafka is best-effort: events degrade to ClickHouse-only when absent
	if producer, err := client.NewKafkaProducer(f.config); err != nil {
		util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
	} else {
		f.kafkaProducer = producer
		util.Info("Kafka producer initialized")
	}

	// Elasticsearch
	if ec, err := client.NewElasticsearchClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
	} else {
		f.esClient = ec
		if err := f.esClient.HealthCheck(); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch health check: %w", err))
		} else {
			util.Info("Elasticsearch client initialized and healthy")
		}
	}

	// ClickHouse
	if cc, err := client.NewClickHouseClient(f.config); err != nil {
		initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
	} else {
		f.clickhouseClient = cc
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse health check: %w", err))
		} else {
			util.Info("ClickHouse client initialized and healthy")
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

	return nil
}

// initializeManagers initializes hashing, encryption, and bucketing managers
func (f *Factory) initializeManagers() error {
	f.hasher = hashing.NewHasher(f.config)

	var kmsClient *kms.Client
	if f.config.KMS.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(f.config.KMS.Region))
		if err != nil {
			return fmt.Errorf("aws config: %w", err)
		}
		kmsClient = kms.NewFromConfig(awsCfg)
	}

	f.encryptionManager = encryption.NewManager(f.config, kmsClient)
	f.bucketingManager = bucketing.NewBucketingManager(f.config)

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("encryption_initialized", f.encryptionManager != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
	)
	return nil
}

// ==============================
// Repository Initialization
// ==============================

func (f *Factory) ThreatRepository() scylla.ThreatRepository {
	if f.threatRepo == nil {
		f.threatRepo = scylla.NewThreatRepository(f.ScyllaClient())
	}
	return f.threatRepo
}

func (f *Factory) IncidentRepository() scylla.IncidentRepository {
	if f.incidentRepo == nil {
		f.incidentRepo = scylla.NewIncidentRepository(f.ScyllaClient())
	}
	return f.incidentRepo
}

func (f *Factory) DataRequestRepository() scylla.DataRequestRepository {
	if f.requestRepo == nil {
		f.requestRepo = scylla.NewDataRequestRepository(f.ScyllaClient())
	}
	return f.requestRepo
}

func (f *Factory) TwoFactorRepository() scylla.TwoFactorRepository {
	if f.twoFactorRepo == nil {
		f.twoFactorRepo = scylla.NewTwoFactorRepository(f.ScyllaClient())
	}
	return f.twoFactorRepo
}

func (f *Factory) PreferenceRepository() scylla.PreferenceRepository {
	if f.preferenceRepo == nil {
		f.preferenceRepo = scylla.NewPreferenceRepository(f.ScyllaClient())
	}
	return f.preferenceRepo
}

func (f *Factory) SessionRepository() scylla.SessionRepository {
	if f.sessionRepo == nil {
		f.sessionRepo = scylla.NewSessionRepository(f.ScyllaClient())
	}
	return f.sessionRepo
}

func (f *Factory) NotificationRepository() scylla.NotificationRepository {
	if f.notificationRepo == nil {
		f.notificationRepo = scylla.NewNotificationRepository(f.ScyllaClient())
	}
	return f.notificationRepo
}

func (f *Factory) AuditRepository() scylla.AuditRepository {
	if f.auditRepo == nil {
		f.auditRepo = scylla.NewAuditRepository(f.ScyllaClient())
	}
	return f.auditRepo
}

func (f *Factory) AdminSessionRepository() scylla.AdminSessionRepository {
	if f.adminSessionRepo == nil {
		f.adminSessionRepo = scylla.NewAdminSessionRepository(f.ScyllaClient())
	}
	return f.adminSessionRepo
}

func (f *Factory) TokenCache() *redis.TokenCache {
	if f.tokenCache == nil && f.redisClient != nil {
		f.tokenCache = redis.NewTokenCache(f.redisClient)
	}
	return f.tokenCache
}

func (f *Factory) ThreatIndex() *es.ThreatIndex {
	if f.threatIndex == nil && f.esClient != nil {
		f.threatIndex = es.NewThreatIndex(f.esClient, f.config)
	}
	return f.threatIndex
}

func (f *Factory) EventStore() *clickhouse.EventStore {
	if f.eventStore == nil && f.clickhouseClient != nil {
		f.eventStore = clickhouse.NewEventStore(f.clickhouseClient)
	}
	return f.eventStore
}

func (f *Factory) EventPublisher() *service.StreamEventPublisher {
	if f.publisher == nil {
		f.publisher = service.NewStreamEventPublisher(f.kafkaProducer, f.EventStore())
	}
	return f.publisher
}

// ==============================
// Service Factory
// ==============================

func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		deps := service.FactoryDeps{
			Config:  f.config,
			Buckets: f.BucketingManager(),
			Enc:     f.EncryptionManager(),
			Hasher:  f.Hasher(),

			ThreatRepo:       f.ThreatRepository(),
			IncidentRepo:     f.IncidentRepository(),
			RequestRepo:      f.DataRequestRepository(),
			TwoFactorRepo:    f.TwoFactorRepository(),
			PreferenceRepo:   f.PreferenceRepository(),
			SessionRepo:      f.SessionRepository(),
			NotificationRepo: f.NotificationRepository(),
			AuditRepo:        f.AuditRepository(),
			AdminSessionRepo: f.AdminSessionRepository(),

			Events: f.EventPublisher(),
		}

		// Nil interface values must stay nil, not wrap nil pointers,
		// so the services can detect degraded mode.
		if cache := f.TokenCache(); cache != nil {
			deps.Tokens = cache
		}
		if index := f.ThreatIndex(); index != nil {
			deps.Search = index
		}
		if store := f.EventStore(); store != nil {
			deps.Stats = store
		}

		f.serviceFactory = service.NewServiceFactory(deps)
	}
	return f.serviceFactory
}

// ==============================
// Health Checks
// ==============================

func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	} else {
		healthErrors["redis"] = fmt.Errorf("redis client not initialized")
	}

	if f.scyllaClient != nil {
		if err := f.scyllaClient.HealthCheck(); err != nil {
			healthErrors["scylla"] = err
		}
	} else {
		healthErrors["scylla"] = fmt.Errorf("scylla client not initialized")
	}

	if f.esClient != nil {
		if err := f.esClient.HealthCheck(); err != nil {
			healthErrors["elasticsearch"] = err
		}
	} else {
		healthErrors["elasticsearch"] = fmt.Errorf("elasticsearch client not initialized")
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	} else {
		healthErrors["clickhouse"] = fmt.Errorf("clickhouse client not initialized")
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
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

// IsHealthy treats Kafka as optional: event streaming degrades gracefully.
func (f *Factory) IsHealthy(ctx context.Context) bool {
	healthErrors := f.HealthCheck(ctx)
	delete(healthErrors, "kafka")
	return len(healthErrors) == 0
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		util.Info("Shutting down factory...")

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

func (f *Factory) ScyllaClient() *scylla.ScyllaClient {
	return f.scyllaClient
}

func (f *Factory) Hasher() *hashing.Hasher {
	return f.hasher
}

func (f *Factory) EncryptionManager() *encryption.Manager {
	return f.encryptionManager
}

func (f *Factory) BucketingManager() *bucketing.BucketingManager {
	return f.bucketingManager
}
