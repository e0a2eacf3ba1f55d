// Package uploads stores file fields out of band. File values never enter a
// local or remote draft; the uploader puts the file in S3 compatible storage
// through a presigned URL and the form keeps only the storage key.
package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const DefaultPresignTTL = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// Uploader stores files of excluded form fields.
type Uploader interface {
	Upload(ctx context.Context, ownerID, path string) (storageKey string, err error)
}

// KeyField is the serializable sibling of a file field that holds its
// storage key.
func KeyField(field string) string { return field + "_key" }

type S3Config struct {
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	Bucket     string
	PresignTTL time.Duration
}

type S3Uploader struct {
	cfg   S3Config
	http  *http.Client
	nowFn func() time.Time

	mu     sync.Mutex
	presig *s3.PresignClient
}

func NewS3Uploader(cfg S3Config, client *http.Client) *S3Uploader {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = DefaultPresignTTL
	}
	return &S3Uploader{cfg: cfg, http: client, nowFn: time.Now}
}

func (u *S3Uploader) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.presig != nil {
		return u.presig, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(u.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			u.cfg.AccessKey,
			u.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if u.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(u.cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	u.presig = s3.NewPresignClient(client)
	return u.presig, nil
}

// StorageKey builds a fresh object key for a file uploaded by ownerID.
func (u *S3Uploader) StorageKey(ownerID, path string) string {
	d := u.nowFn().UTC()
	return fmt.Sprintf("drafts/%s/%d/%02d/%02d/%s/%s",
		ownerID, d.Year(), d.Month(), d.Day(), uuid.NewString(), filepath.Base(path))
}

// PresignPut returns a fresh storage key and a presigned PUT URL for it.
func (u *S3Uploader) PresignPut(ctx context.Context, ownerID, path string) (string, string, error) {
	pc, err := u.presignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := u.cfg.Bucket
	key := u.StorageKey(ownerID, path)

	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(u.cfg.PresignTTL))
	if err != nil {
		return "", "", fmt.Errorf("presign put: %w", err)
	}
	return key, req.URL, nil
}

// Upload reads the file at path and stores it, returning its storage key.
func (u *S3Uploader) Upload(ctx context.Context, ownerID, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	key, url, err := u.PresignPut(ctx, ownerID, path)
	if err != nil {
		return "", err
	}

	if err := u.put(ctx, url, data); err != nil {
		return "", err
	}
	return key, nil
}

func (u *S3Uploader) put(ctx context.Context, url string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
