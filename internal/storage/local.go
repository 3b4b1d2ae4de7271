package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"vidlink/internal/utils"

	"go.uber.org/zap"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (s *LocalStorage) Save(file *multipart.FileHeader, path string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	fullPath := filepath.Join(s.basePath, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("创建目录失败: %w", err)
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("保存文件失败: %w", err)
	}

	utils.Logger.Info("视频文件已保存", zap.String("fullPath", fullPath))
	return path, nil // 返回相对路径
}

func (s *LocalStorage) Delete(path string) error {
	// 拒绝越出存储目录的路径
	clean := filepath.Clean(path)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("非法的媒体路径: %s", path)
	}

	fullPath := filepath.Join(s.basePath, clean)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("删除文件失败: %w", err)
	}

	utils.Logger.Info("视频文件已删除", zap.String("fullPath", fullPath))
	return nil
}

// FullPath 返回媒体文件在磁盘上的绝对路径，供 media 路由直接服务
func (s *LocalStorage) FullPath(path string) string {
	return filepath.Join(s.basePath, filepath.Clean(path))
}
