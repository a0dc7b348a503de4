package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"secops-service/internal/config"
	"secops-service/internal/util"
)

// PreparedStatements holds prepared statements that are actually used by the repositories
type PreparedStatements struct {
	CreateThreat       *gocql.Query
	GetThreat          *gocql.Query
	UpdateThreatStatus *gocql.Query
	ListThreats        *gocql.Query

	CreateIncident       *gocql.Query
	GetIncident          *gocql.Query
	UpdateIncidentStatus *gocql.Query
	ListIncidents        *gocql.Query

	CreateDataRequest  *gocql.Query
	GetDataRequest     *gocql.Query
	ResolveDataRequest *gocql.Query
	ListDataRequests   *gocql.Query

	CreateTwoFactor   *gocql.Query
	GetTwoFactor      *gocql.Query
	VerifyTwoFactor   *gocql.Query
	UpdateBackupCodes *gocql.Query
	DeleteTwoFactor   *gocql.Query

	GetPreference    *gocql.Query
	UpsertPreference *gocql.Query

	CreateActiveSession *gocql.Query
	TouchActiveSession  *gocql.Query
	ListActiveSessions  *gocql.Query
	DeactivateSession   *gocql.Query
	RecordActivity      *gocql.Query
	ListActivitySince   *gocql.Query

	CreateNotification   *gocql.Query
	ListNotifications    *gocql.Query
	ListAllNotifications *gocql.Query
	MarkNotification     *gocql.Query

	CreateAuditEntry *gocql.Query
	ListAuditEntries *gocql.Query

	GetAdminSession        *gocql.Query
	CreateAdminSession     *gocql.Query
	TouchAdminSession      *gocql.Query
	DeactivateAdminSession *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.RWMutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.MaxRoutingKeyInfo = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if !cfg.IsDevelopment() {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 util.GetEnv("SCYLLA_CA_FILE", "/root/certs/ca.pem"),
			CertPath:               util.GetEnv("SCYLLA_CERT_FILE", "/root/certs/server.pem"),
			KeyPath:                util.GetEnv("SCYLLA_KEY_FILE", "/root/certs/server.key"),
			EnableHostVerification: true,
		}
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateThreat = s.Session.Query(`
        INSERT INTO threat_detections (
            bucket, id, threat_type, severity, source, description,
            indicators, status, first_detected
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetThreat = s.Session.Query(`
        SELECT bucket, id, threat_type, severity, source, description,
            indicators, status, first_detected
        FROM threat_detections WHERE bucket = ? AND id = ?`)

	prepared.UpdateThreatStatus = s.Session.Query(`
        UPDATE threat_detections SET status = ?
        WHERE bucket = ? AND id = ?`)

	prepared.ListThreats = s.Session.Query(`
        SELECT bucket, id, threat_type, severity, source, description,
            indicators, status, first_detected
        FROM threat_detections WHERE bucket IN ?`)

	prepared.CreateIncident = s.Session.Query(`
        INSERT INTO incident_responses (
            bucket, id, trigger_event_id, response_type, priority, status,
            title, description, actions_plan, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetIncident = s.Session.Query(`
        SELECT bucket, id, trigger_event_id, response_type, priority, status,
            title, description, actions_plan, created_at
        FROM incident_responses WHERE bucket = ? AND id = ?`)

	prepared.UpdateIncidentStatus = s.Session.Query(`
        UPDATE incident_responses SET status = ?
        WHERE bucket = ? AND id = ?`)

	prepared.ListIncidents = s.Session.Query(`
        SELECT bucket, id, trigger_event_id, response_type, priority, status,
            title, description, actions_plan, created_at
        FROM incident_responses WHERE bucket IN ?`)

	prepared.CreateDataRequest = s.Session.Query(`
        INSERT INTO data_processing_requests (
            bucket, id, email, request_type, status, metadata,
            response_data, processed_by, processed_at, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetDataRequest = s.Session.Query(`
        SELECT bucket, id, email, request_type, status, metadata,
            response_data, processed_by, processed_at, created_at
        FROM data_processing_requests WHERE bucket = ? AND id = ?`)

	prepared.ResolveDataRequest = s.Session.Query(`
        UPDATE data_processing_requests
        SET status = ?, response_data = ?, processed_by = ?, processed_at = ?
        WHERE bucket = ? AND id = ?`)

	prepared.ListDataRequests = s.Session.Query(`
        SELECT bucket, id, email, request_type, status, metadata,
            response_data, processed_by, processed_at, created_at
        FROM data_processing_requests WHERE bucket IN ?`)

	prepared.CreateTwoFactor = s.Session.Query(`
        INSERT INTO two_factor_auth (
            bucket, user_id, user_type, method, secret_encrypted, secret_dek,
            secret_key_id, verified, backup_code_hashes, backup_codes_issued,
            created_at, verified_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetTwoFactor = s.Session.Query(`
        SELECT bucket, user_id, user_type, method, secret_encrypted, secret_dek,
            secret_key_id, verified, backup_code_hashes, backup_codes_issued,
            created_at, verified_at
        FROM two_factor_auth WHERE bucket = ? AND user_id = ? AND user_type = ?`)

	prepared.VerifyTwoFactor = s.Session.Query(`
        UPDATE two_factor_auth SET verified = ?, verified_at = ?
        WHERE bucket = ? AND user_id = ? AND user_type = ?`)

	prepared.UpdateBackupCodes = s.Session.Query(`
        UPDATE two_factor_auth SET backup_code_hashes = ?, backup_codes_issued = ?
        WHERE bucket = ? AND user_id = ? AND user_type = ?`)

	prepared.DeleteTwoFactor = s.Session.Query(`
        DELETE FROM two_factor_auth
        WHERE bucket = ? AND user_id = ? AND user_type = ?`)

	prepared.GetPreference = s.Session.Query(`
        SELECT bucket, user_id, user_type, two_factor_enabled, login_alerts,
            security_alerts, session_timeout_minutes, updated_at
        FROM user_security_preferences WHERE bucket = ? AND user_id = ? AND user_type = ?`)

	prepared.UpsertPreference = s.Session.Query(`
        INSERT INTO user_security_preferences (
            bucket, user_id, user_type, two_factor_enabled, login_alerts,
            security_alerts, session_timeout_minutes, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreateActiveSession = s.Session.Query(`
        INSERT INTO active_sessions (
            bucket, user_id, user_type, session_token, ip_address, user_agent,
            created_at, last_activity, is_active
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.TouchActiveSession = s.Session.Query(`
        UPDATE active_sessions SET last_activity = ?, ip_address = ?, user_agent = ?
        WHERE bucket = ? AND user_id = ? AND user_type = ? AND session_token = ?`)

	prepared.ListActiveSessions = s.Session.Query(`
        SELECT bucket, user_id, user_type, session_token, ip_address, user_agent,
            created_at, last_activity, is_active
        FROM active_sessions WHERE bucket = ? AND user_id = ? AND user_type = ?`)

	prepared.DeactivateSession = s.Session.Query(`
        UPDATE active_sessions SET is_active = false
        WHERE bucket = ? AND user_id = ? AND user_type = ? AND session_token = ?`)

	prepared.RecordActivity = s.Session.Query(`
        INSERT INTO session_activity (
            bucket, user_id, user_type, occurred_at, id, session_token,
            action, ip_address, user_agent
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.ListActivitySince = s.Session.Query(`
        SELECT bucket, user_id, user_type, occurred_at, id, session_token,
            action, ip_address, user_agent
        FROM session_activity
        WHERE bucket = ? AND user_id = ? AND user_type = ? AND occurred_at > ?`)

	prepared.CreateNotification = s.Session.Query(`
        INSERT INTO security_notifications (
            bucket, user_id, user_type, created_at, id, category, severity,
            title, body, is_read, read_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.ListNotifications = s.Session.Query(`
        SELECT bucket, user_id, user_type, created_at, id, category, severity,
            title, body, is_read, read_at
        FROM security_notifications
        WHERE bucket = ? AND user_id = ? AND user_type = ? LIMIT ?`)

	prepared.ListAllNotifications = s.Session.Query(`
        SELECT bucket, user_id, user_type, created_at, id, category, severity,
            title, body, is_read, read_at
        FROM security_notifications
        WHERE bucket = ? AND user_id = ? AND user_type = ?`)

	prepared.MarkNotification = s.Session.Query(`
        UPDATE security_notifications SET is_read = true, read_at = ?
        WHERE bucket = ? AND user_id = ? AND user_type = ? AND created_at = ? AND id = ?`)

	prepared.CreateAuditEntry = s.Session.Query(`
        INSERT INTO compliance_audit_log (
            day, created_at, id, actor_id, actor_type, action, resource_type,
            resource_id, before_state, after_state, justification, ip_address
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.ListAuditEntries = s.Session.Query(`
        SELECT day, created_at, id, actor_id, actor_type, action, resource_type,
            resource_id, before_state, after_state, justification, ip_address
        FROM compliance_audit_log WHERE day = ? LIMIT ?`)

	prepared.GetAdminSession = s.Session.Query(`
        SELECT session_token, admin_id, role, ip_address, created_at,
            last_activity, expires_at, is_active
        FROM admin_sessions WHERE session_token = ?`)

	prepared.CreateAdminSession = s.Session.Query(`
        INSERT INTO admin_sessions (
            session_token, admin_id, role, ip_address, created_at,
            last_activity, expires_at, is_active
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.TouchAdminSession = s.Session.Query(`
        UPDATE admin_sessions SET last_activity = ?
        WHERE session_token = ?`)

	prepared.DeactivateAdminSession = s.Session.Query(`
        UPDATE admin_sessions SET is_active = false
        WHERE session_token = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) Batch(typ gocql.BatchType) *gocql.Batch {
	return s.Session.NewBatch(typ)
}

func (s *ScyllaClient) ExecuteBatch(batch *gocql.Batch) error {
	return s.Session.ExecuteBatch(batch)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func (s *ScyllaClient) ExecuteWithRetry(query *gocql.Query, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := query.Exec(); err != nil {
			lastErr = err
			if i < maxRetries {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}

func (s *ScyllaClient) ScanWithRetry(query *gocql.Query, dest ...interface{}) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if err := query.Scan(dest...); err != nil {
			lastErr = err
			if i < 2 {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
