// Package mirror copies each new capture to an S3-compatible bucket.
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/hpungsan/grabtext/internal/capture"
	"github.com/hpungsan/grabtext/internal/config"
)

// KeyPrefix is prepended to every object key.
const KeyPrefix = "captures"

const uploadTimeout = 30 * time.Second

// Putter is the subset of the S3 client the mirror uses.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror uploads the artifact and text of every capture it receives.
// Uploads run in the background so they never hold up a capture.
type Mirror struct {
	client Putter
	bucket string
	log    *zap.Logger

	wg sync.WaitGroup
}

// New builds a Mirror from cfg. A custom endpoint (MinIO and friends) is
// addressed path-style.
func New(ctx context.Context, cfg config.S3Config, log *zap.Logger) (*Mirror, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg.Bucket, log), nil
}

// NewWithClient builds a Mirror around an existing client.
func NewWithClient(client Putter, bucket string, log *zap.Logger) *Mirror {
	return &Mirror{client: client, bucket: bucket, log: log}
}

// Receive starts uploading r.
func (m *Mirror) Receive(r capture.Result) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		if err := m.Upload(ctx, r); err != nil {
			m.log.Warn("mirror upload failed", zap.Int64("id", r.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until all started uploads have finished.
func (m *Mirror) Wait() {
	m.wg.Wait()
}

// Upload writes the artifact and a text object for r.
func (m *Mirror) Upload(ctx context.Context, r capture.Result) error {
	data, err := os.ReadFile(r.ImagePath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}

	meta := map[string]string{
		"capture-id": strconv.FormatInt(r.ID, 10),
		"created-at": strconv.FormatInt(r.CreatedAt, 10),
	}

	imageKey := ObjectKey(r, filepath.Base(r.ImagePath))
	if err := m.put(ctx, imageKey, data, "image/png", meta); err != nil {
		return err
	}

	textKey := ObjectKey(r, "text.txt")
	if err := m.put(ctx, textKey, []byte(r.ExtractedText), "text/plain; charset=utf-8", meta); err != nil {
		return err
	}

	m.log.Info("capture mirrored",
		zap.Int64("id", r.ID),
		zap.String("bucket", m.bucket),
		zap.String("key", imageKey))
	return nil
}

func (m *Mirror) put(ctx context.Context, key string, body []byte, contentType string, meta map[string]string) error {
	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
		Metadata:      meta,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// ObjectKey returns the bucket key for one file of a capture.
func ObjectKey(r capture.Result, name string) string {
	return path.Join(KeyPrefix, strconv.FormatInt(r.ID, 10), name)
}
