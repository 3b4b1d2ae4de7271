package storage

import (
	"mime/multipart"
	"os"
)

// Storage 媒体文件存储接口。视频记录只保存返回的引用，
// 删除记录时必须调用 Delete 释放底层文件。
type Storage interface {
	Save(file *multipart.FileHeader, path string) (string, error)
	Delete(path string) error
}

// NewFromEnv 根据环境变量选择存储后端，默认本地磁盘
func NewFromEnv() (Storage, error) {
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		region := os.Getenv("S3_REGION")
		if region == "" {
			region = "us-east-1"
		}
		return NewS3Storage(region, bucket)
	}

	basePath := os.Getenv("MEDIA_PATH")
	if basePath == "" {
		basePath = "./media"
	}
	return NewLocalStorage(basePath)
}
