package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config selects the bucket and key prefix for artifact storage.
// Endpoint and PathStyle support S3-compatible stores such as MinIO.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// S3Store stores artifacts as objects under Prefix in Bucket.
type S3Store struct {
	client *s3.Client
	cfg    S3Config
}

// NewS3Store resolves AWS credentials from the default chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3 store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return &S3Store{client: client, cfg: cfg}, nil
}

// NewS3StoreWithClient is the injection point for tests and pre-built clients.
func NewS3StoreWithClient(client *s3.Client, cfg S3Config) *S3Store {
	return &S3Store{client: client, cfg: cfg}
}

func (s *S3Store) key(name string) string {
	return path.Join(s.cfg.Prefix, name)
}

func (s *S3Store) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(s.key(name)),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/gzip"),
	})
	if err != nil {
		return fmt.Errorf("store put %s: %w", name, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context) ([]Object, error) {
	var objects []Object

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
	}
	if s.cfg.Prefix != "" {
		input.Prefix = aws.String(s.cfg.Prefix + "/")
	}

	p := s3.NewListObjectsV2Paginator(s.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("store list: %w", err)
		}
		for _, obj := range page.Contents {
			name := path.Base(aws.ToString(obj.Key))
			if !strings.HasSuffix(name, ArtifactSuffix) {
				continue
			}
			var modified time.Time
			if obj.LastModified != nil {
				modified = *obj.LastModified
			}
			objects = append(objects, Object{
				Name:         name,
				Size:         aws.ToInt64(obj.Size),
				LastModified: modified,
			})
		}
	}
	return objects, nil
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("store delete %s: %w", name, err)
	}
	return nil
}

func (s *S3Store) URL(name string) string {
	return fmt.Sprintf("s3://%s/%s", s.cfg.Bucket, s.key(name))
}
