package localcache

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Kind 收藏種類
type Kind string

const (
	// KindLiked 按讚的作品
	KindLiked Kind = "liked"
	// KindSaved 收藏的作品
	KindSaved Kind = "saved"
)

// RecentEmojiLimit 常用 emoji 保留筆數
const RecentEmojiLimit = 24

// Store 客戶端本地快取，按讚/收藏作品 id 與常用 emoji
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the local cache sqlite file.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	return &Store{db: db}, nil
}

// Close close db
func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// Migrate creates cache tables. Idempotent.
func (s *Store) Migrate() error {
	const sqlStmt = `
CREATE TABLE IF NOT EXISTS post_marks (
  user_id TEXT NOT NULL,
  post_id TEXT NOT NULL,
  kind TEXT NOT NULL, -- liked / saved
  marked_at INTEGER NOT NULL, -- unix milli
  PRIMARY KEY (user_id, post_id, kind)
);

CREATE INDEX IF NOT EXISTS idx_marks_user_kind ON post_marks (user_id, kind, marked_at DESC);

CREATE TABLE IF NOT EXISTS recent_emoji (
  user_id TEXT NOT NULL,
  emoji TEXT NOT NULL,
  used_at INTEGER NOT NULL, -- unix milli
  PRIMARY KEY (user_id, emoji)
);

CREATE INDEX IF NOT EXISTS idx_emoji_user_time ON recent_emoji (user_id, used_at DESC);
`
	_, err := s.db.Exec(sqlStmt)
	return err
}

// MarkPost 記錄按讚或收藏，重複呼叫只更新時間
func (s *Store) MarkPost(ctx context.Context, userID, postID string, kind Kind, at int64) error {
	const q = `
INSERT OR REPLACE INTO post_marks (user_id, post_id, kind, marked_at)
VALUES (?, ?, ?, ?);
`
	if _, err := s.db.ExecContext(ctx, q, userID, postID, string(kind), at); err != nil {
		return fmt.Errorf("insert post mark: %w", err)
	}
	return nil
}

// UnmarkPost 取消按讚或收藏
func (s *Store) UnmarkPost(ctx context.Context, userID, postID string, kind Kind) error {
	const q = `DELETE FROM post_marks WHERE user_id = ? AND post_id = ? AND kind = ?;`
	if _, err := s.db.ExecContext(ctx, q, userID, postID, string(kind)); err != nil {
		return fmt.Errorf("delete post mark: %w", err)
	}
	return nil
}

// MarkedPosts 回傳使用者某類收藏的 post id，新到舊
func (s *Store) MarkedPosts(ctx context.Context, userID string, kind Kind) ([]string, error) {
	const q = `
SELECT post_id FROM post_marks
WHERE user_id = ? AND kind = ?
ORDER BY marked_at DESC;
`
	rows, err := s.db.QueryContext(ctx, q, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("select post marks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceMarks 以伺服器回傳的清單整批覆蓋，登入同步用
func (s *Store) ReplaceMarks(ctx context.Context, userID string, kind Kind, postIDs []string, at int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_marks WHERE user_id = ? AND kind = ?;`, userID, string(kind)); err != nil {
		return fmt.Errorf("clear post marks: %w", err)
	}
	const ins = `INSERT INTO post_marks (user_id, post_id, kind, marked_at) VALUES (?, ?, ?, ?);`
	for i, id := range postIDs {
		// 遞減時間保留伺服器順序
		if _, err := tx.ExecContext(ctx, ins, userID, id, string(kind), at-int64(i)); err != nil {
			return fmt.Errorf("insert post mark: %w", err)
		}
	}
	return tx.Commit()
}

// ClearUser 登出時清空該使用者的快取
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_marks WHERE user_id = ?;`, userID); err != nil {
		return fmt.Errorf("clear post marks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM recent_emoji WHERE user_id = ?;`, userID); err != nil {
		return fmt.Errorf("clear recent emoji: %w", err)
	}
	return tx.Commit()
}

// TouchEmoji 記錄一次 emoji 使用並修剪超出上限的舊紀錄
func (s *Store) TouchEmoji(ctx context.Context, userID, emoji string, at int64) error {
	const q = `
INSERT OR REPLACE INTO recent_emoji (user_id, emoji, used_at)
VALUES (?, ?, ?);
`
	if _, err := s.db.ExecContext(ctx, q, userID, emoji, at); err != nil {
		return fmt.Errorf("insert recent emoji: %w", err)
	}
	const trim = `
DELETE FROM recent_emoji
WHERE user_id = ? AND emoji NOT IN (
  SELECT emoji FROM recent_emoji
  WHERE user_id = ?
  ORDER BY used_at DESC
  LIMIT ?
);
`
	if _, err := s.db.ExecContext(ctx, trim, userID, userID, RecentEmojiLimit); err != nil {
		return fmt.Errorf("trim recent emoji: %w", err)
	}
	return nil
}

// RecentEmoji 常用 emoji，新到舊
func (s *Store) RecentEmoji(ctx context.Context, userID string) ([]string, error) {
	const q = `
SELECT emoji FROM recent_emoji
WHERE user_id = ?
ORDER BY used_at DESC
LIMIT ?;
`
	rows, err := s.db.QueryContext(ctx, q, userID, RecentEmojiLimit)
	if err != nil {
		return nil, fmt.Errorf("select recent emoji: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
