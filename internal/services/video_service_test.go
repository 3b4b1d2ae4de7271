package services

import (
	"strings"
	"testing"
	apperrors "vidlink/internal/errors"
	"vidlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateVideo(t *testing.T) {
	setupTestDB(t)
	store := new(mockStorage)
	svc := NewVideoService(store)
	u1 := createTestUser(t, "u1")

	video, err := svc.CreateVideo(u1, "hello", nil)
	require.NoError(t, err)
	assert.Nil(t, video.ParentID)
	assert.Equal(t, 0, video.Comments)
	assert.Equal(t, u1.ID, video.UserID)
	assert.Len(t, video.Vid, 8)

	// 首页能看到，计数为 0
	feed := NewFeedService()
	videos, totalPages, err := feed.HomeFeed(1)
	require.NoError(t, err)
	assert.Equal(t, 1, totalPages)
	require.Len(t, videos, 1)
	assert.Equal(t, video.ID, videos[0].ID)
	assert.Equal(t, 0, videos[0].Comments)

	store.AssertNotCalled(t, "Save")
}

func TestCreateVideoValidation(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")

	_, err := svc.CreateVideo(u1, "   ", nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	_, err = svc.CreateVideo(u1, strings.Repeat("长", PostMaxLen+1), nil)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))

	// 校验失败不能留下记录
	assert.Equal(t, int64(0), videoCount(t))

	// 刚好 255 个字符要能过
	_, err = svc.CreateVideo(u1, strings.Repeat("长", PostMaxLen), nil)
	require.NoError(t, err)
}

func TestAddComment(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	u3 := createTestUser(t, "u3")

	v1 := seedVideo(t, u1, "hello", "", nil)

	parent, count, err := svc.AddComment(u2, v1.ID, "nice video")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, parent.Comments)

	var c1 models.Video
	findWhere(t, &c1, "parent_id = ?", v1.ID)
	assert.Equal(t, u2.ID, c1.UserID)
	assert.Equal(t, "nice video", c1.Post)
	assert.Empty(t, c1.VideoFile)

	// 楼中楼：V1 的计数只统计直接子节点
	_, count, err = svc.AddComment(u3, c1.ID, "agreed")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, reloadVideo(t, v1.ID).Comments)
	assert.Equal(t, 1, reloadVideo(t, c1.ID).Comments)
}

func TestAddCommentTrimsAndRejectsEmpty(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	v1 := seedVideo(t, u1, "hello", "", nil)

	// 纯空白评论静默丢弃：不报错、不落库、计数不变
	parent, count, err := svc.AddComment(u2, v1.ID, "   ")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0, parent.Comments)
	assert.Equal(t, int64(1), videoCount(t))

	// 有内容则去掉首尾空白后入库
	_, _, err = svc.AddComment(u2, v1.ID, "  好看  ")
	require.NoError(t, err)
	var c models.Video
	findWhere(t, &c, "parent_id = ?", v1.ID)
	assert.Equal(t, "好看", c.Post)
}

func TestAddCommentNotFound(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")

	_, _, err := svc.AddComment(u1, 9999, "hi")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRemoveCommentCascades(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	u3 := createTestUser(t, "u3")

	v1 := seedVideo(t, u1, "hello", "", nil)
	_, _, err := svc.AddComment(u2, v1.ID, "nice video")
	require.NoError(t, err)
	var c1 models.Video
	findWhere(t, &c1, "parent_id = ?", v1.ID)
	_, _, err = svc.AddComment(u3, c1.ID, "agreed")
	require.NoError(t, err)

	count, err := svc.RemoveComment(u2, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// C1、C2 都没了，只剩根视频，计数归零
	assert.Equal(t, int64(1), videoCount(t))
	assert.Equal(t, 0, reloadVideo(t, v1.ID).Comments)

	// 不允许出现指向已删除父节点的孤儿
	assert.Equal(t, int64(0), orphanCount(t))
}

func TestRemoveCommentNotOwner(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	u3 := createTestUser(t, "u3")

	v1 := seedVideo(t, u1, "hello", "", nil)
	_, _, err := svc.AddComment(u2, v1.ID, "nice video")
	require.NoError(t, err)
	var c1 models.Video
	findWhere(t, &c1, "parent_id = ?", v1.ID)
	_, _, err = svc.AddComment(u3, c1.ID, "agreed")
	require.NoError(t, err)

	_, err = svc.RemoveComment(u3, c1.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	// 评论和它的子树原封不动，计数不变
	assert.Equal(t, int64(3), videoCount(t))
	assert.Equal(t, 1, reloadVideo(t, v1.ID).Comments)
	assert.Equal(t, 1, reloadVideo(t, c1.ID).Comments)
}

func TestRemoveCommentOnRootVideo(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")
	v1 := seedVideo(t, u1, "hello", "", nil)

	_, err := svc.RemoveComment(u1, v1.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}

func TestDeleteVideoCascadesAndReleasesBlob(t *testing.T) {
	setupTestDB(t)
	store := new(mockStorage)
	store.On("Delete", "videos/v1.mp4").Return(nil)
	svc := NewVideoService(store)

	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	v1 := seedVideo(t, u1, "hello", "videos/v1.mp4", nil)
	_, _, err := svc.AddComment(u2, v1.ID, "nice video")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteVideo(u1, v1.ID))

	assert.Equal(t, int64(0), videoCount(t))
	store.AssertCalled(t, "Delete", "videos/v1.mp4")

	// 再看首页，视频已经不在了
	videos, _, err := NewFeedService().HomeFeed(1)
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestDeleteVideoNotOwner(t *testing.T) {
	setupTestDB(t)
	store := new(mockStorage)
	svc := NewVideoService(store)
	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	v1 := seedVideo(t, u1, "hello", "videos/v1.mp4", nil)

	err := svc.DeleteVideo(u2, v1.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	assert.Equal(t, int64(1), videoCount(t))
	store.AssertNotCalled(t, "Delete", "videos/v1.mp4")
}

func TestDeleteVideoNotFound(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")

	err := svc.DeleteVideo(u1, 9999)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestEditVideo(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	v1 := seedVideo(t, u1, "hello", "videos/v1.mp4", nil)

	updated, err := svc.EditVideo(u1, v1.ID, "hello again")
	require.NoError(t, err)
	assert.Equal(t, "hello again", updated.Post)

	// 其他字段不受影响
	got := reloadVideo(t, v1.ID)
	assert.Equal(t, "hello again", got.Post)
	assert.Equal(t, "videos/v1.mp4", got.VideoFile)
	assert.Equal(t, u1.ID, got.UserID)
	assert.Nil(t, got.ParentID)

	// 非作者
	_, err = svc.EditVideo(u2, v1.ID, "hijack")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	// 超长 / 不存在
	_, err = svc.EditVideo(u1, v1.ID, strings.Repeat("x", PostMaxLen+1))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	_, err = svc.EditVideo(u1, 9999, "hi")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestRecountRepairsCounter(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	v1 := seedVideo(t, u1, "hello", "", nil)
	seedVideo(t, u2, "first", "", &v1.ID)
	seedVideo(t, u2, "second", "", &v1.ID)

	// 直接落库的数据没走计数维护，Recount 要能修正
	assert.Equal(t, 0, reloadVideo(t, v1.ID).Comments)
	count, err := svc.Recount(v1.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, reloadVideo(t, v1.ID).Comments)
}

func TestCommentTree(t *testing.T) {
	setupTestDB(t)
	svc := NewVideoService(new(mockStorage))
	u1 := createTestUser(t, "u1")
	u2 := createTestUser(t, "u2")
	v1 := seedVideo(t, u1, "hello", "", nil)

	_, _, err := svc.AddComment(u2, v1.ID, "first")
	require.NoError(t, err)
	var c1 models.Video
	findWhere(t, &c1, "parent_id = ? AND post = ?", v1.ID, "first")
	_, _, err = svc.AddComment(u1, c1.ID, "reply to first")
	require.NoError(t, err)
	_, _, err = svc.AddComment(u1, v1.ID, "second")
	require.NoError(t, err)

	tree, err := svc.CommentTree(v1.ID)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "first", tree[0].Post)
	assert.Equal(t, "second", tree[1].Post)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, "reply to first", tree[0].Replies[0].Post)
	assert.Empty(t, tree[1].Replies)
}
