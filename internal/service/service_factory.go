package service

import (
	"secops-service/internal/bucketing"
	"secops-service/internal/config"
	"secops-service/internal/encryption"
	"secops-service/internal/hashing"
	"secops-service/internal/repository/scylla"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg     *config.Config
	buckets *bucketing.BucketingManager
	enc     *encryption.Manager
	hasher  *hashing.Hasher

	threatRepo       scylla.ThreatRepository
	incidentRepo     scylla.IncidentRepository
	requestRepo      scylla.DataRequestRepository
	twoFactorRepo    scylla.TwoFactorRepository
	preferenceRepo   scylla.PreferenceRepository
	sessionRepo      scylla.SessionRepository
	notificationRepo scylla.NotificationRepository
	auditRepo        scylla.AuditRepository
	adminSessionRepo scylla.AdminSessionRepository

	tokens TokenStore
	search ThreatSearcher
	stats  EventStats
	events EventPublisher

	authService         *AuthService
	threatService       *ThreatService
	incidentService     *IncidentService
	gdprService         *GDPRService
	twoFactorService    *TwoFactorService
	preferenceService   *PreferenceService
	sessionService      *SessionService
	notificationService *NotificationService
	dashboardService    *DashboardService
	complianceService   *ComplianceService
}

// FactoryDeps bundles everything the services sit on top of.
type FactoryDeps struct {
	Config  *config.Config
	Buckets *bucketing.BucketingManager
	Enc     *encryption.Manager
	Hasher  *hashing.Hasher

	ThreatRepo       scylla.ThreatRepository
	IncidentRepo     scylla.IncidentRepository
	RequestRepo      scylla.DataRequestRepository
	TwoFactorRepo    scylla.TwoFactorRepository
	PreferenceRepo   scylla.PreferenceRepository
	SessionRepo      scylla.SessionRepository
	NotificationRepo scylla.NotificationRepository
	AuditRepo        scylla.AuditRepository
	AdminSessionRepo scylla.AdminSessionRepository

	Tokens TokenStore
	Search ThreatSearcher
	Stats  EventStats
	Events EventPublisher
}

func NewServiceFactory(deps FactoryDeps) *ServiceFactory {
	return &ServiceFactory{
		cfg:              deps.Config,
		buckets:          deps.Buckets,
		enc:              deps.Enc,
		hasher:           deps.Hasher,
		threatRepo:       deps.ThreatRepo,
		incidentRepo:     deps.IncidentRepo,
		requestRepo:      deps.RequestRepo,
		twoFactorRepo:    deps.TwoFactorRepo,
		preferenceRepo:   deps.PreferenceRepo,
		sessionRepo:      deps.SessionRepo,
		notificationRepo: deps.NotificationRepo,
		auditRepo:        deps.AuditRepo,
		adminSessionRepo: deps.AdminSessionRepo,
		tokens:           deps.Tokens,
		search:           deps.Search,
		stats:            deps.Stats,
		events:           deps.Events,
	}
}

func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(f.adminSessionRepo, f.tokens, f.cfg)
	}
	return f.authService
}

func (f *ServiceFactory) ThreatService() *ThreatService {
	if f.threatService == nil {
		f.threatService = NewThreatService(f.threatRepo, f.search, f.events, f.buckets, f.cfg)
	}
	return f.threatService
}

func (f *ServiceFactory) IncidentService() *IncidentService {
	if f.incidentService == nil {
		f.incidentService = NewIncidentService(f.incidentRepo, f.events, f.buckets, f.cfg)
	}
	return f.incidentService
}

func (f *ServiceFactory) GDPRService() *GDPRService {
	if f.gdprService == nil {
		f.gdprService = NewGDPRService(
			f.requestRepo, f.sessionRepo, f.twoFactorRepo,
			f.notificationRepo, f.preferenceRepo,
			f.events, f.buckets, f.cfg)
	}
	return f.gdprService
}

func (f *ServiceFactory) TwoFactorService() *TwoFactorService {
	if f.twoFactorService == nil {
		f.twoFactorService = NewTwoFactorService(
			f.twoFactorRepo, f.enc, f.hasher,
			f.PreferenceService(), f.NotificationService(), f.events,
			f.buckets, f.cfg)
	}
	return f.twoFactorService
}

func (f *ServiceFactory) PreferenceService() *PreferenceService {
	if f.preferenceService == nil {
		f.preferenceService = NewPreferenceService(f.preferenceRepo, f.buckets)
	}
	return f.preferenceService
}

func (f *ServiceFactory) SessionService() *SessionService {
	if f.sessionService == nil {
		f.sessionService = NewSessionService(
			f.sessionRepo, f.tokens, f.NotificationService(), f.events,
			f.buckets, f.cfg)
	}
	return f.sessionService
}

func (f *ServiceFactory) NotificationService() *NotificationService {
	if f.notificationService == nil {
		f.notificationService = NewNotificationService(f.notificationRepo, f.buckets, f.cfg)
	}
	return f.notificationService
}

func (f *ServiceFactory) DashboardService() *DashboardService {
	if f.dashboardService == nil {
		f.dashboardService = NewDashboardService(
			f.threatRepo, f.incidentRepo, f.requestRepo, f.stats,
			f.buckets, f.cfg)
	}
	return f.dashboardService
}

func (f *ServiceFactory) ComplianceService() *ComplianceService {
	if f.complianceService == nil {
		f.complianceService = NewComplianceService(f.auditRepo, f.buckets, f.cfg)
	}
	return f.complianceService
}
