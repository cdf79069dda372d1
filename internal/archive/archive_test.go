package archive

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	getErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &s3NotFound{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

type s3NotFound struct{}

func (e *s3NotFound) Error() string { return "NoSuchKey" }

func testManager(mock *mockS3Client) *Manager {
	m := NewManager(S3Config{Bucket: "trips", AccessKey: "k", SecretKey: "s"})
	m.client = mock
	m.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return m
}

func TestStoreAndRetrieve(t *testing.T) {
	mock := newMockS3()
	m := testManager(mock)

	rows := map[string]string{
		"gear_item_g1": `{"id":"g1","name":"Tent","owner":null}`,
		"tripInfo":     `{"title":"Summer trip"}`,
	}
	key, err := m.Store(context.Background(), "Summer Trip 2026", rows)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if key != "archives/summer-trip-2026-20260830-120000.json" {
		t.Errorf("key = %q", key)
	}

	got, err := m.Retrieve(context.Background(), key)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got["gear_item_g1"] != rows["gear_item_g1"] {
		t.Errorf("gear row = %q", got["gear_item_g1"])
	}
	if got["tripInfo"] != rows["tripInfo"] {
		t.Errorf("tripInfo row = %q", got["tripInfo"])
	}
}

func TestStoreDisabledWithoutConfig(t *testing.T) {
	m := NewManager(S3Config{})
	if m.Enabled() {
		t.Fatal("manager enabled without credentials")
	}
	if _, err := m.Store(context.Background(), "x", nil); err == nil {
		t.Error("expected error from disabled manager")
	}
}

func TestRetrieveMissingArchive(t *testing.T) {
	m := testManager(newMockS3())
	if _, err := m.Retrieve(context.Background(), "archives/nope.json"); err == nil {
		t.Error("expected error for missing archive")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Summer Trip 2026", "summer-trip-2026"},
		{"  weekend!!  ", "weekend"},
		{"露營", "trip"},
		{"", "trip"},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
