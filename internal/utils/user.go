package utils

import (
	"math/rand"
	"time"
)

// GetDaysSinceJoined 计算注册天数
func GetDaysSinceJoined(createdAt time.Time) int {
	return int(time.Since(createdAt).Hours() / 24)
}

// GetRandomEmoji 返回一个随机 emoji 用于默认头像
func GetRandomEmoji() string {
	emojis := []string{"🎬", "📹", "🎥", "🎞️", "📽️", "🍿", "🎙️", "📼", "🐼", "🦊", "🐨", "🐸"}
	return emojis[rand.Intn(len(emojis))]
}
