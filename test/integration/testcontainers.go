package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/andrewhigh08/account-core/internal/domain"
)

// TestContainers holds the throwaway Postgres and Redis instances shared by
// the integration suite, plus open clients for both.
type TestContainers struct {
	PostgresContainer testcontainers.Container
	RedisContainer    testcontainers.Container
	DB                *gorm.DB
	Redis             *redis.Client
}

// SetupTestContainers starts PostgreSQL and Redis containers and connects
// to both. The caller owns the returned value and must call Teardown.
func SetupTestContainers(ctx context.Context) (*TestContainers, error) {
	tc := &TestContainers{}

	if err := tc.startPostgres(ctx); err != nil {
		return nil, err
	}
	if err := tc.startRedis(ctx); err != nil {
		_ = tc.Teardown(ctx)
		return nil, err
	}
	return tc, nil
}

func (tc *TestContainers) startPostgres(ctx context.Context) error {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "account_core_test",
				"POSTGRES_USER":     "account_core",
				"POSTGRES_PASSWORD": "account_core",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}
	tc.PostgresContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to get postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return fmt.Errorf("failed to get postgres port: %w", err)
	}

	dsn := fmt.Sprintf("host=%s port=%s user=account_core password=account_core dbname=account_core_test sslmode=disable",
		host, port.Port())
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	tc.DB = db
	return nil
}

func (tc *TestContainers) startRedis(ctx context.Context) error {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start redis container: %w", err)
	}
	tc.RedisContainer = container

	host, err := container.Host(ctx)
	if err != nil {
		return fmt.Errorf("failed to get redis host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		return fmt.Errorf("failed to get redis port: %w", err)
	}

	tc.Redis = redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
	if err := tc.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	return nil
}

// Teardown closes the clients and removes both containers.
func (tc *TestContainers) Teardown(ctx context.Context) error {
	var errs []error

	if tc.Redis != nil {
		if err := tc.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	if tc.DB != nil {
		if sqlDB, err := tc.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if tc.PostgresContainer != nil {
		if err := tc.PostgresContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate postgres container: %w", err))
		}
	}

	if tc.RedisContainer != nil {
		if err := tc.RedisContainer.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to terminate redis container: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("teardown errors: %v", errs)
	}

	return nil
}

// RunMigrations creates the full schema the service migrates at startup.
func (tc *TestContainers) RunMigrations() error {
	return tc.DB.AutoMigrate(
		&domain.User{},
		&domain.PasswordRecord{},
		&domain.TOTPDevice{},
		&domain.BackupCode{},
		&domain.Session{},
		&domain.FailedLoginAttempt{},
		&domain.IPRule{},
		&domain.AuditEvent{},
		&domain.SecurityPolicy{},
	)
}

// CleanupData truncates every table and flushes Redis so tests start from a
// blank slate. Order respects foreign keys even though CASCADE would cope.
func (tc *TestContainers) CleanupData() error {
	tables := []string{
		"audit_events",
		"failed_login_attempts",
		"sessions",
		"backup_codes",
		"totp_devices",
		"password_records",
		"ip_rules",
		"security_policies",
		"users",
	}
	for _, table := range tables {
		if err := tc.DB.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			return err
		}
	}
	if err := tc.Redis.FlushDB(context.Background()).Err(); err != nil {
		return err
	}
	return nil
}
