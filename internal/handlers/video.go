package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	"vidlink/internal/db"
	"vidlink/internal/middleware"
	"vidlink/internal/models"
	"vidlink/internal/services"
	"vidlink/internal/storage"
	"vidlink/internal/utils"

	"github.com/gin-gonic/gin"
)

type VideoHandler struct {
	videos      *services.VideoService
	feeds       *services.FeedService
	mailService *services.MailService
}

func NewVideoHandler(store storage.Storage) *VideoHandler {
	return &VideoHandler{
		videos:      services.NewVideoService(store),
		feeds:       services.NewFeedService(),
		mailService: services.NewMailService(),
	}
}

func detailCacheKey(vid string) string {
	return fmt.Sprintf("video:detail:%s", vid)
}

// Home 首页视频流。顺序每次请求都重新洗牌，所以这一页不做缓存。
func (h *VideoHandler) Home(c *gin.Context) {
	page := 1
	if p := c.Query("page"); p != "" {
		if pageNum := utils.StringToInt(p); pageNum > 0 {
			page = pageNum
		}
	}

	videos, totalPages, err := h.feeds.HomeFeed(page)
	if err != nil {
		RenderServiceError(c, err)
		return
	}

	Render(c, http.StatusOK, "video/home.html", gin.H{
		"Videos":      videos,
		"Title":       "最新视频",
		"CurrentPage": page,
		"TotalPages":  totalPages,
	})
}

// Detail 视频详情页：视频本体 + 嵌套评论树 + 侧栏随机推荐。
// 视频和评论树走共享缓存，推荐位每次请求现查（随机结果不该被缓存住）。
func (h *VideoHandler) Detail(c *gin.Context) {
	vid := c.Param("vid")

	cacheKey := detailCacheKey(vid)
	var base gin.H
	if cachedData := utils.GetCache().Get(cacheKey); cachedData != nil {
		if hData, ok := cachedData.(gin.H); ok {
			base = hData
		}
	}

	if base == nil {
		video, err := h.videos.GetByVid(vid)
		if err != nil {
			RenderServiceError(c, err)
			return
		}

		comments, err := h.videos.CommentTree(video.ID)
		if err != nil {
			RenderServiceError(c, err)
			return
		}

		base = gin.H{
			"Video":       video,
			"PostContent": utils.RenderMarkdown(video.Post),
			"Comments":    comments,
			"Title":       video.User.Username + " 的视频",
		}

		// 写入共享缓存，评论等任何变更都会主动失效
		utils.GetCache().Set(cacheKey, base, 5*time.Minute)
	}

	// 缓存里的 map 被所有请求共享，不能直接往里写。
	// 渲染前浅拷贝一份，当前用户、推荐位这类请求级数据只进拷贝。
	renderData := gin.H{}
	for k, v := range base {
		renderData[k] = v
	}

	if video, ok := base["Video"].(*models.Video); ok {
		sideVideos, _ := h.feeds.RelatedVideos(video.ID, services.RelatedDefaultCap)
		renderData["SideVideos"] = sideVideos
	}

	Render(c, http.StatusOK, "video/detail.html", renderData)
}

func (h *VideoHandler) ShowCreate(c *gin.Context) {
	Render(c, http.StatusOK, "video/create.html", gin.H{
		"Title": "发布视频",
	})
}

func (h *VideoHandler) Create(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)

	post := c.PostForm("post")
	file, err := c.FormFile("video_file")
	if err != nil {
		file = nil // 媒体文件可选
	}

	if _, err := h.videos.CreateVideo(user, post, file); err != nil {
		Render(c, statusFor(err), "video/create.html", gin.H{
			"Error": err.Error(),
			"Post":  post,
		})
		return
	}

	c.Redirect(http.StatusFound, "/u/"+user.Username)
}

func (h *VideoHandler) ShowEdit(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	vid := c.Param("vid")

	video, err := h.videos.GetByVid(vid)
	if err != nil {
		RenderServiceError(c, err)
		return
	}

	// 验证是否为作者
	if video.UserID != user.ID {
		RenderError(c, http.StatusForbidden, "无权编辑此视频")
		return
	}

	Render(c, http.StatusOK, "video/edit.html", gin.H{
		"Title": "编辑视频",
		"Video": video,
	})
}

func (h *VideoHandler) Update(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	vid := c.Param("vid")

	video, err := h.videos.GetByVid(vid)
	if err != nil {
		RenderServiceError(c, err)
		return
	}

	updated, err := h.videos.EditVideo(user, video.ID, c.PostForm("post"))
	if err != nil {
		Render(c, statusFor(err), "video/edit.html", gin.H{
			"Error": err.Error(),
			"Video": video,
		})
		return
	}

	utils.GetCache().Delete(detailCacheKey(updated.Vid))
	c.Redirect(http.StatusFound, "/u/"+user.Username)
}

// CreateComment 发布评论。表单里带 parent_cid 时是楼中楼回复，
// 否则直接评论视频本身。空白评论静默忽略，原样跳回详情页。
func (h *VideoHandler) CreateComment(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	vid := c.Param("vid")

	page, err := h.videos.GetByVid(vid)
	if err != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	// 回复目标默认是视频本身，楼中楼回复时换成对应评论
	target := page
	if parentCid := c.PostForm("parent_cid"); parentCid != "" {
		if parent, err := h.videos.GetByVid(parentCid); err == nil {
			target = parent
		}
	}

	parent, _, err := h.videos.AddComment(user, target.ID, c.PostForm("post"))
	if err != nil {
		RenderServiceError(c, err)
		return
	}

	// 主动失效详情页缓存
	utils.GetCache().Delete(detailCacheKey(page.Vid))

	// 通知被评论的人（不用通知自己）
	if parent.UserID != user.ID {
		go func(ownerID uint, content string) {
			var owner models.User
			if err := db.DB.First(&owner, ownerID).Error; err != nil {
				return
			}
			videoLink := fmt.Sprintf("%s/v/%s", os.Getenv("SITE_URL"), page.Vid)
			h.mailService.SendCommentNotification(owner.Email, user.Username, content, parent.Post, videoLink)
		}(parent.UserID, strings.TrimSpace(c.PostForm("post")))
	}

	c.Redirect(http.StatusFound, "/v/"+page.Vid)
}

// RemoveComment 删除评论及其整棵回复子树 (DELETE /comment/:cid)
func (h *VideoHandler) RemoveComment(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	cid := c.Param("cid")

	comment, err := h.videos.GetByVid(cid)
	if err != nil {
		c.Status(statusFor(err))
		return
	}

	// 先找到所在页面，删完要失效对应缓存
	rootVid := h.rootVidOf(comment)

	count, err := h.videos.RemoveComment(user, comment.ID)
	if err != nil {
		c.Status(statusFor(err))
		return
	}

	if rootVid != "" {
		utils.GetCache().Delete(detailCacheKey(rootVid))
	}

	c.JSON(http.StatusOK, gin.H{"comment_count": count})
}

// Delete 删除视频及其全部评论 (DELETE /v/:vid)
func (h *VideoHandler) Delete(c *gin.Context) {
	user := c.MustGet(middleware.CheckUserKey).(*models.User)
	vid := c.Param("vid")

	video, err := h.videos.GetByVid(vid)
	if err != nil {
		c.Status(statusFor(err))
		return
	}

	if err := h.videos.DeleteVideo(user, video.ID); err != nil {
		c.Status(statusFor(err))
		return
	}

	utils.GetCache().Delete(detailCacheKey(vid))

	// 从详情页删除时让 HTMX 跳回首页，列表页删除只需移除元素
	redirect := c.GetHeader("HX-Current-URL")
	if strings.Contains(redirect, "/v/") {
		c.Header("HX-Redirect", "/")
	}
	c.Status(http.StatusOK)
}

// rootVidOf 沿 parent 链爬到所在页面的根视频
func (h *VideoHandler) rootVidOf(node *models.Video) string {
	current := *node
	for current.ParentID != nil {
		var parent models.Video
		if err := db.DB.First(&parent, *current.ParentID).Error; err != nil {
			return ""
		}
		current = parent
	}
	return current.Vid
}
