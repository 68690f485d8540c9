package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable 独立的版本表名，避免与同库其它服务的 schema_migrations 冲突
const migrationsTable = "watch_reserve_migrations"

// ErrDirtyMigration 上次迁移中途失败，需人工修复后 force 版本
var ErrDirtyMigration = errors.New("数据库迁移处于 dirty 状态")

// RunMigrations 应用全部未执行的迁移并返回当前版本。
// dirty 状态下拒绝继续，避免在半完成的 schema 上启动服务。
func RunMigrations(db *sql.DB, logger *zap.Logger) (uint, error) {
	m, err := newMigrator(db)
	if err != nil {
		return 0, err
	}

	if version, dirty, err := m.Version(); err == nil && dirty {
		return version, fmt.Errorf("%w: version=%d", ErrDirtyMigration, version)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("执行迁移失败: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("读取迁移版本失败: %w", err)
	}
	logger.Info("数据库迁移完成", zap.Uint("version", version))
	return version, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("初始化迁移实例失败: %w", err)
	}
	return m, nil
}
