package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"watch-reserve/backend/config"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("对象不存在")

// Client MinIO 对象存储封装
// 存放静态商品目录（JSON）与商品图片 images/{line}/{model}.jpg
type Client struct {
	mc         *minio.Client
	bucket     string
	presignTTL time.Duration
	logger     *zap.Logger
}

// NewClient 连接 MinIO 并确保 bucket 存在
func NewClient(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("MinIO 初始化失败: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("检查 MinIO Bucket 失败: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("创建 MinIO Bucket 失败: %w", err)
		}
		logger.Info("MinIO Bucket 已创建", zap.String("bucket", cfg.Bucket))
	}

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	logger.Info("MinIO 连接成功", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return &Client{mc: mc, bucket: cfg.Bucket, presignTTL: ttl, logger: logger}, nil
}

// Open 读取对象内容，调用方负责关闭
func (c *Client) Open(ctx context.Context, object string) (io.ReadCloser, error) {
	if _, err := c.mc.StatObject(ctx, c.bucket, object, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("查询对象失败: %w", err)
	}
	obj, err := c.mc.GetObject(ctx, c.bucket, object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("读取对象失败: %w", err)
	}
	return obj, nil
}

// PresignedURL 为已存在的对象生成临时下载链接
func (c *Client) PresignedURL(ctx context.Context, object string) (string, error) {
	if _, err := c.mc.StatObject(ctx, c.bucket, object, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", ErrObjectNotFound
		}
		return "", fmt.Errorf("查询对象失败: %w", err)
	}
	u, err := c.mc.PresignedGetObject(ctx, c.bucket, object, c.presignTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成预签名链接失败: %w", err)
	}
	return u.String(), nil
}
