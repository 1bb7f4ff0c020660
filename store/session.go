package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

// S3Config describes the bucket the partitioned layout lives in. Endpoint is
// only set for S3-compatible stores (MinIO etc.); empty means AWS.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	URLStyle string `yaml:"url_style"`
	UseSSL   bool   `yaml:"use_ssl"`
}

// SessionFactory opens short-lived embedded engine sessions configured for S3
// access. Sessions are per request: the engine is in-process and cheap to
// open, and a fresh session picks up rotated credentials.
type SessionFactory struct {
	cfg    S3Config
	creds  aws.CredentialsProvider
	logger *zap.Logger
}

func NewSessionFactory(cfg S3Config, creds aws.CredentialsProvider, logger *zap.Logger) *SessionFactory {
	return &SessionFactory{cfg: cfg, creds: creds, logger: logger}
}

// resolveURLStyle defaults to path-style addressing, which resolves against
// both AWS and S3-compatible endpoints without per-bucket DNS.
func resolveURLStyle(style string) string {
	if style == "" {
		return "path"
	}
	return style
}

// Open creates an in-memory session with httpfs loaded and S3 settings
// applied. Every interpolated value is validated before quoting. The caller
// owns the returned handle and must Close it.
func (f *SessionFactory) Open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	if _, err := db.ExecContext(ctx, "INSTALL httpfs; LOAD httpfs;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load httpfs extension: %w", err)
	}

	creds, err := f.creds.Retrieve(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}

	urlStyle := resolveURLStyle(f.cfg.URLStyle)

	settings := []struct{ name, value string }{
		{"s3_region", f.cfg.Region},
		{"s3_access_key_id", creds.AccessKeyID},
		{"s3_secret_access_key", creds.SecretAccessKey},
		{"s3_url_style", urlStyle},
	}
	if creds.SessionToken != "" {
		settings = append(settings, struct{ name, value string }{"s3_session_token", creds.SessionToken})
	}
	if f.cfg.Endpoint != "" {
		endpoint := strings.TrimPrefix(strings.TrimPrefix(f.cfg.Endpoint, "https://"), "http://")
		settings = append(settings, struct{ name, value string }{"s3_endpoint", endpoint})
	}

	for _, s := range settings {
		if err := CheckConfigValue(s.value); err != nil {
			db.Close()
			return nil, fmt.Errorf("invalid %s: %w", s.name, err)
		}
		stmt := fmt.Sprintf("SET %s = %s;", s.name, QuoteLiteral(s.value))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %s: %w", s.name, err)
		}
	}

	useSSL := "false"
	if f.cfg.UseSSL {
		useSSL = "true"
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("SET s3_use_ssl = %s;", useSSL)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set s3_use_ssl: %w", err)
	}

	f.logger.Debug("opened engine session",
		zap.String("region", f.cfg.Region),
		zap.String("url_style", urlStyle),
		zap.Bool("use_ssl", f.cfg.UseSSL))

	return db, nil
}
