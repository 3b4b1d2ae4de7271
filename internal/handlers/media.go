package handlers

import (
	"mime"
	"net/http"
	"path/filepath"
	"vidlink/internal/storage"

	"github.com/gin-gonic/gin"
)

// 盗链提醒 SVG 图片
const hotlinkSVG = `<svg width="200" height="200" xmlns="http://www.w3.org/2000/svg">
  <rect width="100%" height="100%" fill="#f8f9fa"/>
  <text x="50%" y="50%" font-family="Arial" font-size="14" fill="#6c757d" text-anchor="middle">
    仅限 VidLink 站内播放
  </text>
</svg>`

// MediaHandler 提供本地存储的视频文件访问。S3 模式下媒体走对象
// 存储的公开地址，这个 Handler 不会被注册。
type MediaHandler struct {
	local *storage.LocalStorage
}

func NewMediaHandler(local *storage.LocalStorage) *MediaHandler {
	return &MediaHandler{local: local}
}

// Serve 返回媒体文件 (GET /media/videos/:name)
// 使用 Sec-Fetch-* 头部检测盗链
func (h *MediaHandler) Serve(c *gin.Context) {
	name := c.Param("name")
	if name == "" || filepath.Base(name) != name {
		c.Status(http.StatusBadRequest)
		return
	}

	if !isAllowedRequest(c) {
		c.Header("Content-Type", "image/svg+xml")
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.String(http.StatusOK, hotlinkSVG)
		return
	}

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		c.Header("Content-Type", ct)
	}
	c.Header("Cache-Control", "public, max-age=604800")
	c.Header("Vary", "Sec-Fetch-Site, Sec-Fetch-Mode")
	c.File(h.local.FullPath(filepath.Join("videos", name)))
}

// isAllowedRequest 使用 Sec-Fetch-* 头部检测是否为合法请求
// 现代浏览器会自动发送这些头部，无法伪造
func isAllowedRequest(c *gin.Context) bool {
	secFetchSite := c.GetHeader("Sec-Fetch-Site")
	secFetchMode := c.GetHeader("Sec-Fetch-Mode")

	// 没有 Sec-Fetch-* 头部（旧浏览器或直接访问）
	if secFetchSite == "" {
		return true
	}
	// 同源/同站请求
	if secFetchSite == "same-origin" || secFetchSite == "same-site" {
		return true
	}
	// 用户直接在地址栏输入或从书签访问
	if secFetchSite == "none" {
		return true
	}
	// 用户主动导航（例如新标签页打开视频）
	if secFetchMode == "navigate" {
		return true
	}
	return false
}
