package scylla

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"nurseconnect-registration/internal/config"
	"nurseconnect-registration/internal/util"
)

// Statements holds the CQL used by the repositories. Queries are built per
// call from these strings because gocql.Query values are not safe to share.
type Statements struct {
	GetLinkByID        string
	GetLinkByMSISDN    string
	InsertLink         string
	DeleteLink         string
	InsertLinkByMSISDN string
	GetNextID          string
	InitNextID         string
	AdvanceNextID      string
}

var statements = Statements{
	GetLinkByID: `SELECT id, msisdn, created_at FROM referral_links
        WHERE bucket = ? AND id = ?`,
	GetLinkByMSISDN: `SELECT id, msisdn, created_at FROM referral_links_by_msisdn
        WHERE msisdn = ?`,
	InsertLink: `INSERT INTO referral_links (bucket, id, msisdn, created_at)
        VALUES (?, ?, ?, ?)`,
	DeleteLink: `DELETE FROM referral_links WHERE bucket = ? AND id = ?`,
	InsertLinkByMSISDN: `INSERT INTO referral_links_by_msisdn (msisdn, id, created_at)
        VALUES (?, ?, ?) IF NOT EXISTS`,
	GetNextID: `SELECT next_id FROM referral_link_ids WHERE name = ?`,
	InitNextID: `INSERT INTO referral_link_ids (name, next_id)
        VALUES (?, ?) IF NOT EXISTS`,
	AdvanceNextID: `UPDATE referral_link_ids SET next_id = ?
        WHERE name = ? IF next_id = ?`,
}

// Schema is the keyspace layout expected by the repositories.
const Schema = `
CREATE TABLE IF NOT EXISTS referral_link_ids (
    name    text PRIMARY KEY,
    next_id bigint
);
CREATE TABLE IF NOT EXISTS referral_links (
    bucket     int,
    id         bigint,
    msisdn     text,
    created_at timestamp,
    PRIMARY KEY ((bucket), id)
);
CREATE TABLE IF NOT EXISTS referral_links_by_msisdn (
    msisdn     text PRIMARY KEY,
    id         bigint,
    created_at timestamp
);`

type ScyllaClient struct {
	Session    *gocql.Session
	config     *config.ScyllaConfig
	Statements *Statements
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.SerialConsistency = gocql.LocalSerial
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 2
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        100 * time.Millisecond,
		Max:        2 * time.Second,
		NumRetries: 3,
	}

	if !cfg.IsDevelopment() {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 util.GetEnv("SCYLLA_TLS_CA_FILE", "/app/certs/ca.pem"),
			CertPath:               util.GetEnv("SCYLLA_TLS_CERT_FILE", "/app/certs/scylla.pem"),
			KeyPath:                util.GetEnv("SCYLLA_TLS_KEY_FILE", "/app/certs/scylla.key"),
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

	logger.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return &ScyllaClient{
		Session:    session,
		config:     &scyllaConfig,
		Statements: &statements,
	}, nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...).WithContext(ctx)
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	return nil
}

// EnsureSchema applies Schema one statement at a time.
func (s *ScyllaClient) EnsureSchema(ctx context.Context) error {
	for _, stmt := range SchemaStatements() {
		if err := s.Session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// SchemaStatements splits Schema into executable statements.
func SchemaStatements() []string {
	var out []string
	for _, stmt := range strings.Split(Schema, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
