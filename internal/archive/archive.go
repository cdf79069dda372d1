// Package archive keeps a copy of the serialized trip in S3-compatible
// storage before the remote row store is told to archive and reset.
// The remote side renames its table out of reach of this application,
// so the S3 copy is the only version the trip organizers can retrieve
// later.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// Manager uploads and retrieves archived trip snapshots.
type Manager struct {
	cfg    S3Config
	client s3Client
	now    func() time.Time
}

// NewManager creates an archive manager. With incomplete S3 settings
// the manager is disabled and Store refuses to run; the remote archive
// action is still available, the trip just is not copied aside first.
func NewManager(cfg S3Config) *Manager {
	m := &Manager{cfg: cfg, now: time.Now}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether S3 settings are complete.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Store uploads the row set under a key derived from the archive name
// and the current time, and returns that key.
func (m *Manager) Store(ctx context.Context, name string, rows map[string]string) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("archive storage not configured")
	}

	payload := make(map[string]json.RawMessage, len(rows))
	for k, v := range rows {
		payload[k] = json.RawMessage(v)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal archive: %w", err)
	}

	key := fmt.Sprintf("archives/%s-%s.json", slug(name), m.now().UTC().Format("20060102-150405"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("upload archive: %w", err)
	}
	return key, nil
}

// Retrieve downloads an archived row set by key.
func (m *Manager) Retrieve(ctx context.Context, key string) (map[string]string, error) {
	if m.client == nil {
		return nil, fmt.Errorf("archive storage not configured")
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}
	rows := make(map[string]string, len(payload))
	for k, v := range payload {
		rows[k] = string(v)
	}
	return rows, nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9-]+`)

func slug(name string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "trip"
	}
	return s
}
