package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// ErrNotConfigured is returned when no bucket credentials are set
var ErrNotConfigured = errors.New("object storage is not configured")

// Client stores syllabus files in an S3 compatible bucket (DigitalOcean
// Spaces, MinIO, AWS S3) with public-read ACLs
type Client struct {
	s3Client  *s3.S3
	bucket    string
	endpoint  string
	publicURL string
}

// Config holds configuration for the storage client
type Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	// PublicURL overrides the https://<bucket>.<endpoint> base, e.g. a CDN
	PublicURL string
	PathStyle bool
}

// New creates a storage client
func New(cfg Config) (*Client, error) {
	if cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	awsCfg := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage session: %w", err)
	}

	return &Client{
		s3Client:  s3.New(sess),
		bucket:    cfg.Bucket,
		endpoint:  strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://"),
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Upload stores data under key and returns its public URL
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ACL:           aws.String("public-read"),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return c.PublicURL(key), nil
}

// Delete removes the object stored under key
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// PublicURL returns the public URL of key
func (c *Client) PublicURL(key string) string {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s", c.publicURL, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucket, c.endpoint, key)
}

// KeyFromURL extracts the object key from a URL produced by PublicURL.
// Legacy URLs of the form .../object/public/<bucket>/<key> are also accepted.
func (c *Client) KeyFromURL(raw string) (string, bool) {
	return KeyFromPublicURL(raw, c.bucket, c.publicURL)
}

// KeyFromPublicURL is KeyFromURL without a client.
func KeyFromPublicURL(raw, bucket, publicBase string) (string, bool) {
	if raw == "" {
		return "", false
	}

	if publicBase != "" && strings.HasPrefix(raw, publicBase+"/") {
		return cleanKey(strings.TrimPrefix(raw, publicBase+"/"))
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	path := strings.TrimPrefix(u.Path, "/")

	if marker := "/" + bucket + "/"; bucket != "" && strings.Contains("/"+path, marker) {
		idx := strings.Index("/"+path, marker)
		return cleanKey(("/" + path)[idx+len(marker):])
	}
	if bucket != "" && strings.HasPrefix(u.Host, bucket+".") {
		return cleanKey(path)
	}
	return "", false
}

func cleanKey(key string) (string, bool) {
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	key, err := url.PathUnescape(key)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// ObjectKey builds "<prefix>/<unixMillis>-<name>" with every character
// outside [a-zA-Z0-9.-] replaced by an underscore
func ObjectKey(prefix, filename string, now time.Time) string {
	name := unsafeFileChars.ReplaceAllString(filename, "_")
	return fmt.Sprintf("%s/%d-%s", prefix, now.UnixMilli(), name)
}

// HumanSize renders a byte count as "<MB with one decimal> MB"
func HumanSize(size int64) string {
	return fmt.Sprintf("%.1f MB", float64(size)/1024/1024)
}
