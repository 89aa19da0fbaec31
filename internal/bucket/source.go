// Package bucket browses an S3 bucket as a directory tree. Common prefixes
// under the "/" delimiter are directories and objects are files.
package bucket

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/kk-code-lab/rtree/internal/tree"
)

const delimiter = "/"

// Config describes the bucket to browse. Endpoint, AccessKey and SecretKey
// are only needed for S3-compatible stores such as MinIO; otherwise the
// default AWS credential chain is used.
type Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	PageSize     int32
	Logger       *zap.Logger
}

// Object is the metadata carried by file nodes.
type Object struct {
	Key          string
	Size         int64
	Modified     time.Time
	ETag         string
	StorageClass string
}

// Source lists a bucket one prefix level at a time. It implements tree.Loader.
type Source struct {
	api      s3.ListObjectsV2APIClient
	bucket   string
	prefix   string
	pageSize int32
	log      *zap.Logger
}

// New builds an S3 client from cfg.
func New(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewWithClient(client, cfg), nil
}

// NewWithClient uses an existing listing client. Only the Bucket, Prefix,
// PageSize and Logger fields of cfg are read.
func NewWithClient(api s3.ListObjectsV2APIClient, cfg Config) *Source {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefix := strings.Trim(cfg.Prefix, delimiter)
	if prefix != "" {
		prefix += delimiter
	}
	return &Source{
		api:      api,
		bucket:   cfg.Bucket,
		prefix:   prefix,
		pageSize: cfg.PageSize,
		log:      log,
	}
}

// ParseURL splits s3://bucket/prefix into its parts.
func ParseURL(raw string) (bucket, prefix string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("%s is not an s3://bucket/prefix url", raw)
	}
	return u.Host, strings.Trim(u.Path, delimiter), nil
}

// Label is the display name for the tree root.
func (s *Source) Label() string {
	if s.prefix == "" {
		return s.bucket
	}
	return s.bucket + delimiter + strings.TrimSuffix(s.prefix, delimiter)
}

// Load lists the prefix at path, following continuation tokens until the
// listing is complete.
func (s *Source) Load(ctx context.Context, path string) (tree.Listing, error) {
	prefix := s.prefix
	if path != "" {
		prefix += strings.Trim(path, delimiter) + delimiter
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String(delimiter),
	}
	if s.pageSize > 0 {
		input.MaxKeys = aws.Int32(s.pageSize)
	}

	var dirs, files []tree.NodeSpec
	pages := 0
	paginator := s3.NewListObjectsV2Paginator(s.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return tree.Listing{}, fmt.Errorf("list s3://%s/%s: %w", s.bucket, prefix, err)
		}
		pages++
		for _, cp := range page.CommonPrefixes {
			name := s.childName(prefix, aws.ToString(cp.Prefix))
			if name == "" {
				continue
			}
			dirs = append(dirs, tree.NodeSpec{
				Name:     name,
				Children: []tree.NodeSpec{},
				Data:     Object{Key: aws.ToString(cp.Prefix)},
			})
		}
		for _, obj := range page.Contents {
			name := s.childName(prefix, aws.ToString(obj.Key))
			if name == "" {
				continue
			}
			files = append(files, tree.NodeSpec{
				Name:        name,
				Data:        objectOf(obj),
				Permissions: tree.Access{Read: readable(obj.StorageClass), Write: true},
			})
		}
	}

	s.log.Debug("listed prefix",
		zap.String("bucket", s.bucket),
		zap.String("prefix", prefix),
		zap.Int("pages", pages),
		zap.Int("dirs", len(dirs)),
		zap.Int("files", len(files)),
	)
	return tree.Listing{Entries: append(dirs, files...)}, nil
}

// childName returns the last segment of key below prefix, or "" for keys that
// cannot become a node: the prefix marker object itself, empty segments and
// names containing the id separator.
func (s *Source) childName(prefix, key string) string {
	name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), delimiter)
	if name == "" || strings.Contains(name, delimiter) {
		return ""
	}
	if strings.Contains(name, tree.Separator) {
		s.log.Warn("skipping key with reserved character", zap.String("key", key))
		return ""
	}
	return name
}

func objectOf(obj types.Object) Object {
	return Object{
		Key:          aws.ToString(obj.Key),
		Size:         aws.ToInt64(obj.Size),
		Modified:     aws.ToTime(obj.LastModified),
		ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
		StorageClass: string(obj.StorageClass),
	}
}

// Archived objects cannot be read without a restore.
func readable(class types.ObjectStorageClass) bool {
	switch class {
	case types.ObjectStorageClassGlacier, types.ObjectStorageClassDeepArchive:
		return false
	}
	return true
}
