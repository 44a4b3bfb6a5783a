package postgres

import (
	"context"
	"fmt"

	"cryptoetl/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type PostgresClient struct {
	DB        *gorm.DB
	tableName string
}

func NewClient(dsn string) (*PostgresClient, error) {
	return NewClientWithDialector(postgres.Open(dsn))
}

// NewClientWithDialector opens any gorm dialector; tests use sqlite.
func NewClientWithDialector(d gorm.Dialector) (*PostgresClient, error) {
	db, err := gorm.Open(d, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgresClient{DB: db, tableName: PriceRecordRow{}.TableName()}, nil
}

// WithTable points the client at a table other than price_record.
func (p *PostgresClient) WithTable(name string) *PostgresClient {
	if name != "" {
		p.tableName = name
	}
	return p
}

// InitializeAndMigratePriceRecord connects to Postgres, optionally creates
// the database, applies pool limits and runs AutoMigrate.
func InitializeAndMigratePriceRecord(cfg config.PostgresConfig, table string) (*PostgresClient, error) {
	if cfg.CreateDB {
		if err := CreateDatabase(cfg); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN(cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	client.WithTable(table)

	sqlDB, err := client.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := client.AutoMigratePriceRecord(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) AutoMigratePriceRecord() error {
	if err := p.DB.Table(p.tableName).AutoMigrate(&PriceRecordRow{}); err != nil {
		return fmt.Errorf("auto-migrate %s table: %w", p.tableName, err)
	}
	return nil
}

func (p *PostgresClient) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *PostgresClient) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
