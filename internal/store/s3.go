package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrInvalidKey = errors.New("invalid key")

// S3Store talks to an S3 or S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	config *S3Config
}

func NewS3Store(ctx context.Context, cfg *S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("s3 config: %w", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          200,
			MaxIdleConnsPerHost:   100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(httpClient),
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, config: cfg}, nil
}

// VerifyBucket performs a HeadBucket call so that auth and reachability
// problems surface before any sync work starts.
func (s *S3Store) VerifyBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &s.config.Bucket,
	})
	if err != nil {
		return fmt.Errorf("bucket %q not accessible: %w", s.config.Bucket, err)
	}
	return nil
}

// ListObjects enumerates the bucket under prefix via ListObjectsV2
// pagination. A mid-listing page failure returns the pages collected so
// far along with the error.
func (s *S3Store) ListObjects(ctx context.Context, prefix string) ([]*ObjectInfo, error) {
	var objects []*ObjectInfo

	input := &s3.ListObjectsV2Input{
		Bucket: &s.config.Bucket,
	}
	if prefix != "" {
		input.Prefix = &prefix
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return objects, fmt.Errorf("list objects page: %w", err)
		}

		for _, obj := range page.Contents {
			objects = append(objects, &ObjectInfo{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         cleanETag(aws.ToString(obj.ETag)),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return objects, nil
}

// PutFile uploads the file at localPath under key with a single PutObject
// call, so the returned ETag is the object's MD5 digest.
func (s *S3Store) PutFile(ctx context.Context, key string, localPath string) (*PutResult, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localPath, err)
	}

	resp, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.config.Bucket,
		Key:           &key,
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return nil, err
	}

	return &PutResult{
		Key:          key,
		Size:         info.Size(),
		ETag:         cleanETag(aws.ToString(resp.ETag)),
		LastModified: time.Now().UTC(),
	}, nil
}

func validKey(key string) bool {
	if key == "" || len(key) > 1024 {
		return false
	}
	return !strings.HasPrefix(key, "/") && !strings.Contains(key, "..")
}

func cleanETag(etag string) string {
	return strings.ReplaceAll(etag, "\"", "")
}
