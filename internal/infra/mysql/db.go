package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// 全局 *sqlx.DB 句柄（由 Use 注入，例如 common.InitDB 返回的句柄）
var db *sqlx.DB

// Use 注入外部初始化好的句柄
func Use(d *sqlx.DB) {
	if d == nil {
		return
	}
	db = d
}

// SQLX 返回全局句柄（未初始化时为 nil）
func SQLX() *sqlx.DB { return db }

// Ping 在给定超时内探测数据库；未初始化视为可用（内存存储模式）
func Ping(ctx context.Context, timeout time.Duration) error {
	if db == nil {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.PingContext(c)
}

// Close 关闭连接
func Close() error {
	if db == nil {
		return nil
	}
	return db.Close()
}
