package services

import (
	"fmt"
	"mime/multipart"
	"testing"
	"time"
	"vidlink/internal/db"
	"vidlink/internal/models"
	"vidlink/internal/utils"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// mockStorage 记录媒体文件的写入和释放调用
type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Save(file *multipart.FileHeader, path string) (string, error) {
	args := m.Called(file, path)
	return args.String(0), args.Error(1)
}

func (m *mockStorage) Delete(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

var testDBSeq int

// setupTestDB 为每个测试开一个独立的内存库
func setupTestDB(t *testing.T) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:svc_test_%d_%d?mode=memory&cache=shared", testDBSeq, time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(&models.User{}, &models.Video{}))

	old := db.DB
	db.DB = gdb
	t.Cleanup(func() {
		db.DB = old
	})
}

func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
	}
	require.NoError(t, db.DB.Create(&user).Error)
	return &user
}

// seedVideo 直接落一条记录，绕过服务层，用于构造前置状态
func seedVideo(t *testing.T, user *models.User, post, videoFile string, parentID *uint) *models.Video {
	t.Helper()
	video := models.Video{
		Vid:       utils.RandStringBytesMaskImpr(8),
		UserID:    user.ID,
		Post:      post,
		VideoFile: videoFile,
		ParentID:  parentID,
	}
	require.NoError(t, db.DB.Create(&video).Error)
	return &video
}

func reloadVideo(t *testing.T, id uint) *models.Video {
	t.Helper()
	var video models.Video
	require.NoError(t, db.DB.First(&video, id).Error)
	return &video
}

func videoCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.DB.Model(&models.Video{}).Count(&count).Error)
	return count
}

func findWhere(t *testing.T, dest *models.Video, query string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.DB.Where(query, args...).First(dest).Error)
}

// orphanCount 统计 parent 指向已不存在节点的记录数
func orphanCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	err := db.DB.Model(&models.Video{}).
		Where("parent_id IS NOT NULL AND parent_id NOT IN (SELECT id FROM videos)").
		Count(&count).Error
	require.NoError(t, err)
	return count
}
