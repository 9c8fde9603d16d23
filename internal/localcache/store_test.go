package localcache

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "cache.db"))
	assert.NoError(t, err)
	assert.NoError(t, s.Migrate())
	t.Cleanup(s.Close)
	return s
}

// 測試 按讚/收藏分開儲存，取消只影響該類
func TestMarkUnmarkPost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.MarkPost(ctx, "u1", "p1", KindLiked, 100))
	assert.NoError(t, s.MarkPost(ctx, "u1", "p1", KindSaved, 101))
	assert.NoError(t, s.MarkPost(ctx, "u1", "p2", KindLiked, 102))

	liked, err := s.MarkedPosts(ctx, "u1", KindLiked)
	assert.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, liked)

	assert.NoError(t, s.UnmarkPost(ctx, "u1", "p1", KindLiked))
	liked, err = s.MarkedPosts(ctx, "u1", KindLiked)
	assert.NoError(t, err)
	assert.Equal(t, []string{"p2"}, liked)

	saved, err := s.MarkedPosts(ctx, "u1", KindSaved)
	assert.NoError(t, err)
	assert.Equal(t, []string{"p1"}, saved)
}

// 測試 整批覆蓋保留伺服器順序
func TestReplaceMarks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.MarkPost(ctx, "u1", "old", KindLiked, 1))
	assert.NoError(t, s.ReplaceMarks(ctx, "u1", KindLiked, []string{"a", "b", "c"}, 1000))

	liked, err := s.MarkedPosts(ctx, "u1", KindLiked)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, liked)
}

// 測試 登出清空僅影響該使用者
func TestClearUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.MarkPost(ctx, "u1", "p1", KindLiked, 1))
	assert.NoError(t, s.TouchEmoji(ctx, "u1", "👍", 1))
	assert.NoError(t, s.MarkPost(ctx, "u2", "p9", KindLiked, 1))

	assert.NoError(t, s.ClearUser(ctx, "u1"))

	liked, err := s.MarkedPosts(ctx, "u1", KindLiked)
	assert.NoError(t, err)
	assert.Empty(t, liked)

	other, err := s.MarkedPosts(ctx, "u2", KindLiked)
	assert.NoError(t, err)
	assert.Equal(t, []string{"p9"}, other)
}

// 測試 emoji 超出上限時修剪最舊的
func TestRecentEmojiTrim(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < RecentEmojiLimit+5; i++ {
		assert.NoError(t, s.TouchEmoji(ctx, "u1", fmt.Sprintf("e%02d", i), int64(i)))
	}

	got, err := s.RecentEmoji(ctx, "u1")
	assert.NoError(t, err)
	assert.Len(t, got, RecentEmojiLimit)
	assert.Equal(t, fmt.Sprintf("e%02d", RecentEmojiLimit+4), got[0])
}

// 測試 重複使用 emoji 更新時間而非新增
func TestTouchEmojiDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.NoError(t, s.TouchEmoji(ctx, "u1", "🔥", 1))
	assert.NoError(t, s.TouchEmoji(ctx, "u1", "👍", 2))
	assert.NoError(t, s.TouchEmoji(ctx, "u1", "🔥", 3))

	got, err := s.RecentEmoji(ctx, "u1")
	assert.NoError(t, err)
	assert.Equal(t, []string{"🔥", "👍"}, got)
}
