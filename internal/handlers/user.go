package handlers

import (
	"net/http"
	"vidlink/internal/services"
	"vidlink/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	feeds *services.FeedService
}

func NewUserHandler() *UserHandler {
	return &UserHandler{
		feeds: services.NewFeedService(),
	}
}

// Profile - 用户主页 /u/:username，视频按发布时间倒序
func (h *UserHandler) Profile(c *gin.Context) {
	username := c.Param("username")

	user, videos, err := h.feeds.ProfileFeed(username)
	if err != nil {
		RenderServiceError(c, err)
		return
	}

	daysSince := utils.GetDaysSinceJoined(user.CreatedAt)

	Render(c, http.StatusOK, "user/profile.html", gin.H{
		"Title":     user.Username + " 的主页",
		"PageUser":  user,
		"Videos":    videos,
		"DaysSince": daysSince,
	})
}
