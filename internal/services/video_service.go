package services

import (
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
	"vidlink/internal/db"
	apperrors "vidlink/internal/errors"
	"vidlink/internal/models"
	"vidlink/internal/storage"
	"vidlink/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostMaxLen 正文最大长度（字符数）
const PostMaxLen = 255

// VideoService 承担视频/评论树的全部写操作：发布、编辑、评论、
// 删除子树，以及维持 comments 计数与子节点数一致。
type VideoService struct {
	store storage.Storage
}

func NewVideoService(store storage.Storage) *VideoService {
	return &VideoService{store: store}
}

// CommentNode 详情页渲染用的嵌套评论结构
type CommentNode struct {
	models.Video
	ContentHTML template.HTML
	Replies     []*CommentNode
}

// validatePost 校验正文：必填且不超过 PostMaxLen 个字符
func validatePost(post string) error {
	if post == "" {
		return apperrors.New(apperrors.ErrInvalidInput, "内容不能为空")
	}
	if utf8.RuneCountInString(post) > PostMaxLen {
		return apperrors.New(apperrors.ErrInvalidInput, fmt.Sprintf("内容不能超过 %d 个字符", PostMaxLen))
	}
	return nil
}

// GetByVid 通过公开短 ID 查询节点
func (s *VideoService) GetByVid(vid string) (*models.Video, error) {
	var video models.Video
	if err := db.DB.Preload("User").Where("vid = ?", vid).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "视频不存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询视频失败", err)
	}
	return &video, nil
}

// CreateVideo 发布一条首页视频（根节点）。正文必填且不超过 255 字符，
// 媒体文件可选；记录创建失败时回收已写入的媒体文件。
func (s *VideoService) CreateVideo(user *models.User, post string, file *multipart.FileHeader) (*models.Video, error) {
	post = strings.TrimSpace(post)
	if err := validatePost(post); err != nil {
		return nil, err
	}

	videoFile := ""
	if file != nil {
		name := fmt.Sprintf("videos/%s%s", utils.RandStringBytesMaskImpr(8), filepath.Ext(file.Filename))
		stored, err := s.store.Save(file, name)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternal, "保存视频文件失败", err)
		}
		videoFile = stored
	}

	video := models.Video{
		Vid:       utils.RandStringBytesMaskImpr(8),
		UserID:    user.ID,
		Post:      post,
		VideoFile: videoFile,
		Comments:  0,
	}

	if err := db.DB.Create(&video).Error; err != nil {
		// 记录没写进去，不能留下孤儿文件
		if videoFile != "" {
			if derr := s.store.Delete(videoFile); derr != nil {
				utils.Logger.Warn("回收媒体文件失败", zap.String("file", videoFile), zap.Error(derr))
			}
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "发布失败", err)
	}

	video.User = *user
	return &video, nil
}

// EditVideo 原地更新正文，其余字段（时间、父节点、计数、作者、媒体）不动。
// 只有作者本人可以编辑。
func (s *VideoService) EditVideo(user *models.User, videoID uint, newPost string) (*models.Video, error) {
	var video models.Video
	if err := db.DB.First(&video, videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "视频不存在")
		}
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询视频失败", err)
	}

	if video.UserID != user.ID {
		return nil, apperrors.New(apperrors.ErrForbidden, "无权编辑此视频")
	}

	newPost = strings.TrimSpace(newPost)
	if err := validatePost(newPost); err != nil {
		return nil, err
	}

	if err := db.DB.Model(&video).UpdateColumn("post", newPost).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, "保存失败", err)
	}
	video.Post = newPost
	return &video, nil
}

// AddComment 在 videoID 节点下新增一条评论，并在同一事务内重算父节点
// 的 comments 计数。正文去掉首尾空白后为空时静默拒绝：不报错、不落库，
// 返回父节点当前状态。返回值为刷新后的父节点与最新计数。
func (s *VideoService) AddComment(user *models.User, videoID uint, post string) (*models.Video, int, error) {
	var parent models.Video
	if err := db.DB.First(&parent, videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, apperrors.New(apperrors.ErrNotFound, "视频不存在")
		}
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabase, "查询视频失败", err)
	}

	post = strings.TrimSpace(post)
	if post == "" {
		// 空评论静默丢弃
		return &parent, parent.Comments, nil
	}
	if utf8.RuneCountInString(post) > PostMaxLen {
		return nil, 0, apperrors.New(apperrors.ErrInvalidInput, fmt.Sprintf("评论不能超过 %d 个字符", PostMaxLen))
	}

	parentID := parent.ID
	comment := models.Video{
		Vid:      utils.RandStringBytesMaskImpr(8),
		UserID:   user.ID,
		ParentID: &parentID,
		Post:     post,
	}

	count := 0
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		c, err := recount(tx, parent.ID)
		if err != nil {
			return err
		}
		count = c
		return nil
	})
	if err != nil {
		return nil, 0, apperrors.Wrap(apperrors.ErrDatabase, "发布评论失败", err)
	}

	parent.Comments = count
	return &parent, count, nil
}

// RemoveComment 删除一条评论及其整棵回复子树，并重算其父节点的计数。
// 非作者的删除请求返回授权错误，不产生任何状态变更。
func (s *VideoService) RemoveComment(user *models.User, commentID uint) (int, error) {
	var comment models.Video
	if err := db.DB.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.New(apperrors.ErrNotFound, "评论不存在")
		}
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "查询评论失败", err)
	}

	if comment.ParentID == nil {
		// 走到这里说明调用方把根视频当评论删，属于异常状态
		return 0, apperrors.New(apperrors.ErrInternal, "该节点不是评论")
	}
	parentID := *comment.ParentID

	if comment.UserID != user.ID {
		return 0, apperrors.New(apperrors.ErrForbidden, "无权删除此评论")
	}

	count := 0
	var blobs []string
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		ids, files, err := collectSubtree(tx, comment.ID)
		if err != nil {
			return err
		}
		blobs = files
		if err := tx.Where("id IN ?", ids).Delete(&models.Video{}).Error; err != nil {
			return err
		}
		c, err := recount(tx, parentID)
		if err != nil {
			return err
		}
		count = c
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "删除评论失败", err)
	}

	s.releaseBlobs(blobs)
	return count, nil
}

// DeleteVideo 删除节点及其全部后代。记录删除在一个事务内完成；
// 媒体文件在事务提交后尽力释放，失败只记日志（允许孤儿文件，
// 不允许孤儿记录）。只有作者本人可以删除。
func (s *VideoService) DeleteVideo(user *models.User, videoID uint) error {
	var video models.Video
	if err := db.DB.First(&video, videoID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.ErrNotFound, "视频不存在")
		}
		return apperrors.Wrap(apperrors.ErrDatabase, "查询视频失败", err)
	}

	if video.UserID != user.ID {
		return apperrors.New(apperrors.ErrForbidden, "无权删除此视频")
	}

	var blobs []string
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		ids, files, err := collectSubtree(tx, video.ID)
		if err != nil {
			return err
		}
		blobs = files
		if err := tx.Where("id IN ?", ids).Delete(&models.Video{}).Error; err != nil {
			return err
		}
		// 通过删除接口删掉的如果本身是评论，父节点计数同样要维护
		if video.ParentID != nil {
			if _, err := recount(tx, *video.ParentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "删除视频失败", err)
	}

	s.releaseBlobs(blobs)
	return nil
}

// Recount 重算某个节点的直接子节点数并落库，返回最新计数。
// 单独调用时自带事务。
func (s *VideoService) Recount(nodeID uint) (int, error) {
	count := 0
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		c, err := recount(tx, nodeID)
		if err != nil {
			return err
		}
		count = c
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrDatabase, "重算评论数失败", err)
	}
	return count, nil
}

// CommentTree 返回 videoID 下的全部评论，按 ParentID 组装成树，
// 每层按发布时间升序（楼层顺序）。
func (s *VideoService) CommentTree(videoID uint) ([]*CommentNode, error) {
	var rows []models.Video
	frontier := []uint{videoID}
	for len(frontier) > 0 {
		var batch []models.Video
		if err := db.DB.Preload("User").Where("parent_id IN ?", frontier).Find(&batch).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabase, "查询评论失败", err)
		}
		if len(batch) == 0 {
			break
		}
		frontier = frontier[:0]
		for _, row := range batch {
			frontier = append(frontier, row.ID)
		}
		rows = append(rows, batch...)
	}

	nodes := make(map[uint]*CommentNode, len(rows))
	for i := range rows {
		nodes[rows[i].ID] = &CommentNode{
			Video:       rows[i],
			ContentHTML: utils.RenderMarkdown(rows[i].Post),
		}
	}

	var roots []*CommentNode
	for _, n := range nodes {
		if n.ParentID != nil && *n.ParentID != videoID {
			parent := nodes[*n.ParentID]
			parent.Replies = append(parent.Replies, n)
		} else {
			roots = append(roots, n)
		}
	}

	sortReplies(roots)
	return roots, nil
}

func sortReplies(nodes []*CommentNode) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
	for _, n := range nodes {
		sortReplies(n.Replies)
	}
}

// recount 在调用方事务内重算 nodeID 的直接子节点数并写回。
// 计数和结构变更在同一事务内提交，并发评论不会丢更新。
func recount(tx *gorm.DB, nodeID uint) (int, error) {
	var count int64
	if err := tx.Model(&models.Video{}).Where("parent_id = ?", nodeID).Count(&count).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&models.Video{}).Where("id = ?", nodeID).UpdateColumn("comments", count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// collectSubtree 自上而下逐层收集 rootID 及其全部后代的 ID，
// 顺带收集子树里引用的媒体文件，供删除后释放。
func collectSubtree(tx *gorm.DB, rootID uint) ([]uint, []string, error) {
	var root models.Video
	if err := tx.First(&root, rootID).Error; err != nil {
		return nil, nil, err
	}

	ids := []uint{rootID}
	var files []string
	if root.VideoFile != "" {
		files = append(files, root.VideoFile)
	}

	frontier := []uint{rootID}
	for len(frontier) > 0 {
		var children []models.Video
		if err := tx.Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
			return nil, nil, err
		}
		frontier = frontier[:0]
		for _, child := range children {
			ids = append(ids, child.ID)
			frontier = append(frontier, child.ID)
			if child.VideoFile != "" {
				files = append(files, child.VideoFile)
			}
		}
	}
	return ids, files, nil
}

// releaseBlobs 尽力释放媒体文件，失败只告警
func (s *VideoService) releaseBlobs(files []string) {
	for _, f := range files {
		if err := s.store.Delete(f); err != nil {
			utils.Logger.Warn("释放媒体文件失败", zap.String("file", f), zap.Error(err))
		}
	}
}
