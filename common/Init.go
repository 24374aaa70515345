package common

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lotto-server/common/logger"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DBOptions 连接池参数
type DBOptions struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// InitDB 初始化 master db
func InitDB(ctx context.Context, o DBOptions) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "mysql", withParams(o.DSN))
	if err != nil {
		return nil, fmt.Errorf("sqlx connect: %w", err)
	}

	// 连接池参数
	db.SetMaxOpenConns(o.MaxOpenConns)
	db.SetMaxIdleConns(o.MaxIdleConns)
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = 2 * time.Minute
	}
	db.SetConnMaxLifetime(o.ConnMaxLifetime)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// 会话级超时，降低锁等待时长
	if _, err := db.ExecContext(ctx, "SET SESSION innodb_lock_wait_timeout = ?", 5); err != nil {
		logger.Warn("SET innodb_lock_wait_timeout failed", zap.Error(err))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// withParams 追加时区参数；时间统一以毫秒整数存储，这里只保证会话时区为 UTC
func withParams(dsn string) string {
	if strings.Contains(dsn, "loc=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "parseTime=true&loc=UTC"
}
