package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthService interface {
	// Check pings each dependency and reports per-dependency errors.
	Check(ctx context.Context) map[string]error
}

type healthServiceImpl struct {
	db  *gorm.DB
	rdb redis.UniversalClient
}

// NewHealthService accepts a nil rdb when Redis is not configured.
func NewHealthService(db *gorm.DB, rdb redis.UniversalClient) HealthService {
	return &healthServiceImpl{db: db, rdb: rdb}
}

func (s *healthServiceImpl) Check(ctx context.Context) map[string]error {
	results := map[string]error{}

	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	results["database"] = wrapPing("database", err)

	if s.rdb != nil {
		results["redis"] = wrapPing("redis", s.rdb.Ping(ctx).Err())
	}

	return results
}

func wrapPing(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ping %s: %w", name, err)
}
