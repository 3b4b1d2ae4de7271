package models

import (
	"time"
)

// Video 同时承担视频和评论两种角色：ParentID 为空是首页视频，
// 非空则是挂在某个节点下的评论，评论还可以继续被评论，构成一棵树。
type Video struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Vid       string    `gorm:"uniqueIndex;size:8;not null" json:"vid"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
	ParentID  *uint     `gorm:"index" json:"parent_id"` // Nullable, root videos have no parent
	Parent    *Video    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"parent"`
	Post      string    `gorm:"size:255;not null" json:"post"`
	VideoFile string    `gorm:"size:500" json:"video_file"` // 媒体文件引用，评论一般为空
	Comments  int       `gorm:"default:0" json:"comments"`  // 直接子节点数，只由 recount 维护
	CreatedAt time.Time `json:"created_at"`
}

// IsRoot 是否为首页视频（非评论）
func (v *Video) IsRoot() bool {
	return v.ParentID == nil
}
