package services

import (
	"errors"
	"math"
	"vidlink/internal/db"
	apperrors "vidlink/internal/errors"
	"vidlink/internal/models"

	"gorm.io/gorm"
)

// 首页每页 6 条，侧栏默认推荐 4 条
const (
	HomePageSize      = 6
	RelatedDefaultCap = 4
)

// FeedService 只读的列表查询：首页、推荐位、个人主页。
// 三个列表都只出根节点，评论永远不会单独出现在列表里。
type FeedService struct{}

func NewFeedService() *FeedService {
	return &FeedService{}
}

// HomeFeed 随机顺序的首页视频流。每次调用都重新洗牌，
// 翻页之间不承诺顺序稳定，所以这里从不走缓存。
func (s *FeedService) HomeFeed(page int) ([]models.Video, int, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	if err := db.DB.Model(&models.Video{}).Where("parent_id IS NULL").Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabase, "查询视频总数失败", err)
	}

	totalPages := int(math.Ceil(float64(total) / float64(HomePageSize)))
	if totalPages == 0 {
		totalPages = 1
	}

	var videos []models.Video
	err := db.DB.Preload("User").
		Where("parent_id IS NULL").
		Order("RANDOM()").
		Limit(HomePageSize).
		Offset((page - 1) * HomePageSize).
		Find(&videos).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabase, "查询首页视频失败", err)
	}

	return videos, totalPages, nil
}

// RelatedVideos 详情页侧栏的"猜你喜欢"：排除当前视频的随机根节点，
// 不足 limit 条时有多少返回多少。
func (s *FeedService) RelatedVideos(videoID uint, limit int) ([]models.Video, error) {
	if limit <= 0 {
		limit = RelatedDefaultCap
	}

	var videos []models.Video
	err := db.DB.Preload("User").
		Where("parent_id IS NULL AND id <> ?", videoID).
		Order("RANDOM()").
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询推荐视频失败", err)
	}
	return videos, nil
}

// ProfileFeed 个人主页视频列表，最新的排前面。用户名不存在时报 NotFound。
func (s *FeedService) ProfileFeed(username string) (*models.User, []models.Video, error) {
	var user models.User
	if err := db.DB.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.New(apperrors.ErrNotFound, "用户不存在")
		}
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询用户失败", err)
	}

	var videos []models.Video
	err := db.DB.Preload("User").
		Where("parent_id IS NULL AND user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&videos).Error
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrDatabase, "查询用户视频失败", err)
	}

	return &user, videos, nil
}
