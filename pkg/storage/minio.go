// Package storage 提供了与对象存储服务（如 MinIO）交互的功能，dashboard 用它读取模型文件。
package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"

	"edu-insight-go/internal/config"
	"edu-insight-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确认存储桶存在。模型文件只读，桶不存在时直接退出。
func InitMinIO(cfg config.MinIOConfig) {
	var err error
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}
	log.Info("MinIO 客户端初始化成功")

	exists, err := MinioClient.BucketExists(context.Background(), cfg.BucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}
	if !exists {
		log.Fatalf("存储桶 '%s' 不存在", cfg.BucketName)
	}
	log.Infof("存储桶 '%s' 已存在", cfg.BucketName)
}

// ObjectSource 从桶内某个前缀下读取对象。
type ObjectSource struct {
	Client *minio.Client
	Bucket string
	Prefix string
}

// NewObjectSource 使用全局客户端创建 ObjectSource。
func NewObjectSource(bucket, prefix string) *ObjectSource {
	return &ObjectSource{Client: MinioClient, Bucket: bucket, Prefix: prefix}
}

// ReadFile 读取 Prefix/name 对象的全部内容。对象不存在时返回的错误满足 errors.Is(err, fs.ErrNotExist)。
func (s *ObjectSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	key := path.Join(s.Prefix, name)
	obj, err := s.Client.GetObject(ctx, s.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapObjectError(s.Bucket, key, err)
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		return nil, wrapObjectError(s.Bucket, key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, wrapObjectError(s.Bucket, key, err)
	}
	return data, nil
}

func (s *ObjectSource) String() string {
	return fmt.Sprintf("minio://%s/%s", s.Bucket, s.Prefix)
}

func wrapObjectError(bucket, key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("object %s/%s: %w", bucket, key, fs.ErrNotExist)
	}
	return fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
}
