// Package storage persists the daily ledger and tier-2 store behind a
// small key/value interface with local, Redis, Postgres, S3 and DynamoDB
// backends.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ignite/adreport-ingest/internal/config"
	"github.com/ignite/adreport-ingest/internal/ledger"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("storage: key not found")

// KV is the persistence contract every backend implements.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// New builds the backend selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalKV(cfg.LocalPath)

	case "redis":
		opts, err := redisOptions(cfg)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisKV(client), nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("storage: postgres requires database_url")
		}
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		kv := NewPostgresKV(db, cfg.Table)
		if err := kv.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return kv, nil

	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("storage: s3 requires s3_bucket")
		}
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion, cfg.GetAWSProfile(), cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			return nil, err
		}
		return NewS3KV(s3.NewFromConfig(awsCfg), cfg.S3Bucket, cfg.S3Prefix), nil

	case "dynamodb":
		if cfg.Table == "" {
			return nil, errors.New("storage: dynamodb requires table")
		}
		awsCfg, err := loadAWSConfig(ctx, cfg.AWSRegion, cfg.GetAWSProfile(), cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			return nil, err
		}
		return NewDynamoKV(dynamodb.NewFromConfig(awsCfg), cfg.Table), nil
	}
	return nil, fmt.Errorf("storage: unknown type %q", cfg.Type)
}

func redisOptions(cfg config.StorageConfig) (*redis.Options, error) {
	if strings.HasPrefix(cfg.RedisAddr, "redis://") || strings.HasPrefix(cfg.RedisAddr, "rediss://") {
		opts, err := redis.ParseURL(cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, nil
}

const (
	ledgerKey = "ledger"
	storeKey  = "tier2"
)

// Repository stores the ledger and tier-2 store as JSON documents.
type Repository struct {
	kv     KV
	prefix string
}

// NewRepository namespaces every key with prefix.
func NewRepository(kv KV, prefix string) *Repository {
	return &Repository{kv: kv, prefix: prefix}
}

// LoadLedger returns an empty ledger when none has been saved.
func (r *Repository) LoadLedger(ctx context.Context) (ledger.Ledger, error) {
	l := ledger.Ledger{}
	if err := r.load(ctx, ledgerKey, &l); err != nil {
		return nil, err
	}
	if l == nil {
		l = ledger.Ledger{}
	}
	return l, nil
}

func (r *Repository) SaveLedger(ctx context.Context, l ledger.Ledger) error {
	return r.save(ctx, ledgerKey, l)
}

// LoadStore returns an empty store when none has been saved.
func (r *Repository) LoadStore(ctx context.Context) (ledger.Store, error) {
	s := ledger.NewStore()
	if err := r.load(ctx, storeKey, &s); err != nil {
		return ledger.Store{}, err
	}
	if s.Platforms == nil {
		s = ledger.NewStore()
	}
	return s, nil
}

func (r *Repository) SaveStore(ctx context.Context, s ledger.Store) error {
	return r.save(ctx, storeKey, s)
}

func (r *Repository) load(ctx context.Context, name string, target interface{}) error {
	data, err := r.kv.Get(ctx, r.prefix+name)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func (r *Repository) save(ctx context.Context, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := r.kv.Set(ctx, r.prefix+name, data); err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	return nil
}
