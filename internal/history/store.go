// 本文件用于告警决策流水的 SQLite 持久化 只追加 启动时不回读
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"pool-watch/internal/alert"
)

// 定长纳秒格式 保证文本排序与时间排序一致
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store 告警流水存储
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open 打开或创建流水库
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create alert history dir failed: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open alert history sqlite failed: %w", err)
	}
	// 单连接写入 避免 database/sql 连接池对同一文件并发加锁
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set alert history wal failed: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

func migrate(db *sql.DB) error {
	// 迁移语句保持幂等 重启时重复执行不会破坏已有流水
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alert_decisions (
			id            TEXT PRIMARY KEY,
			at            TEXT NOT NULL,
			kind          TEXT NOT NULL,
			status        TEXT NOT NULL,
			suppressed_by TEXT NOT NULL DEFAULT '',
			reason        TEXT NOT NULL DEFAULT '',
			message       TEXT NOT NULL DEFAULT '',
			from_pool     TEXT NOT NULL DEFAULT '',
			to_pool       TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_alert_decisions_at ON alert_decisions(at);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate alert history failed: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DBPath 返回数据库文件路径
func (s *Store) DBPath() string {
	if s == nil {
		return ""
	}
	return s.dbPath
}

// Append 追加一条决策
func (s *Store) Append(ctx context.Context, decision alert.Decision) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_decisions (
			id, at, kind, status, suppressed_by, reason, message, from_pool, to_pool
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		decision.ID,
		decision.At.UTC().Format(timeLayout),
		string(decision.Kind),
		string(decision.Status),
		string(decision.SuppressedBy),
		decision.Reason,
		decision.Message,
		decision.FromPool,
		decision.ToPool,
	)
	if err != nil {
		return fmt.Errorf("insert alert decision failed: %w", err)
	}
	return nil
}

// Recent 按时间倒序返回最近 limit 条决策 供排障查询使用
func (s *Store) Recent(ctx context.Context, limit int) ([]alert.Decision, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, at, kind, status, suppressed_by, reason, message, from_pool, to_pool
		FROM alert_decisions
		ORDER BY at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]alert.Decision, 0, limit)
	for rows.Next() {
		var (
			item                       alert.Decision
			at, kind, status, suppress string
		)
		if err := rows.Scan(&item.ID, &at, &kind, &status, &suppress, &item.Reason, &item.Message, &item.FromPool, &item.ToPool); err != nil {
			return nil, err
		}
		item.At, _ = time.Parse(timeLayout, at)
		item.Kind = alert.Kind(kind)
		item.Status = alert.DecisionStatus(status)
		item.SuppressedBy = alert.SuppressedBy(suppress)
		out = append(out, item)
	}
	return out, rows.Err()
}
