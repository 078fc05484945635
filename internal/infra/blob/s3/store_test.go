package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"

	"corpusprep/internal/blob/core"
)

func put(t *testing.T, s *Store, key, body string, opts core.PutOptions) {
	t.Helper()
	if _, err := s.Put(context.Background(), key, bytes.NewReader([]byte(body)), opts); err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}

func TestStore_MockedBasicFlow(t *testing.T) {
	store := NewMockForTests("", 0)
	ctx := context.Background()
	info, err := store.Put(ctx, "folder/file.txt", bytes.NewReader([]byte("hello")), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "folder/file.txt" || info.ContentType != "text/plain" || info.Size != 5 {
		t.Fatalf("unexpected info %#v", info)
	}
	if _, err := store.Put(ctx, "folder/file.txt", bytes.NewReader([]byte("ignored")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected duplicate put error, got %v", err)
	}
	put(t, store, "folder/file.txt", "replaced", core.PutOptions{Replace: true})
	_, rc, err := store.Get(ctx, "folder/file.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "replaced" {
		t.Fatalf("get mismatch: %q", string(data))
	}
	list, err := store.List(ctx, "folder")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %v %+v", err, list)
	}
	if ok, err := store.Delete(ctx, "folder/file.txt"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if store.Driver() != core.DriverS3 {
		t.Fatalf("expected DriverS3")
	}
}

func TestStore_MissingKeysMapToNotFound(t *testing.T) {
	store := NewMockForTests("", 0)
	ctx := context.Background()
	if _, err := store.Head(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head not found, got %v", err)
	}
	if _, _, err := store.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get not found, got %v", err)
	}
}

func TestStore_RootPrefixAndDirectorySemantics(t *testing.T) {
	store := NewMockForTests("datasets/v1", 2)
	ctx := context.Background()
	for _, k := range []string{"train/1/a.jpg", "train/1/b.jpg", "train/10/c.jpg", "validation/1/d.jpg"} {
		put(t, store, k, "x", core.PutOptions{})
	}
	list, err := store.List(ctx, "train/1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "train/1/a.jpg" || list[1].Key != "train/1/b.jpg" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, err := store.List(ctx, "")
	if err != nil || len(all) != 4 {
		t.Fatalf("expected four items across pages: %v %+v", err, all)
	}
	if err := store.DeletePrefix(ctx, "train"); err != nil {
		t.Fatalf("delete prefix: %v", err)
	}
	rest, _ := store.List(ctx, "")
	if len(rest) != 1 || rest[0].Key != "validation/1/d.jpg" {
		t.Fatalf("unexpected survivors %+v", rest)
	}
	if err := store.DeletePrefix(ctx, ""); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected root refusal, got %v", err)
	}
	if err := store.EnsurePrefix(ctx, "anything"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
}

func TestStore_New(t *testing.T) {
	_ = os.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	_ = os.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")
	defer func() {
		_ = os.Unsetenv("AWS_ACCESS_KEY_ID")
		_ = os.Unsetenv("AWS_SECRET_ACCESS_KEY")
	}()
	s, err := New(context.Background(), Config{Bucket: "bkt", Root: "/corpus/", Endpoint: "https://mock.s3.local", PathStyle: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.root != "corpus" || s.objectKey("/train/a.jpg") != "corpus/train/a.jpg" {
		t.Fatalf("unexpected key mapping root=%q", s.root)
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestStore_FromHeadNilBranches(t *testing.T) {
	store := NewMockForTests("", 0)
	info := store.fromHead("k", 10, nil, aws.String("\"etagval\""), map[string]string{"x": "y"}, nil)
	if info.ETag != "etagval" || info.ContentType != "" || info.Key != "k" || info.Size != 10 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDecodeChunked(t *testing.T) {
	if _, ok := decodeChunked([]byte("not-chunked")); ok {
		t.Fatalf("expected plain body to be rejected")
	}
	if _, ok := decodeChunked([]byte("5\r\nabc\r\n0\r\n")); ok {
		t.Fatalf("short chunk should fail")
	}
	if b, ok := decodeChunked([]byte("5\r\nhello\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n")); !ok || string(b) != "hello" {
		t.Fatalf("expected decode hello, got %q", b)
	}
	if b, ok := decodeChunked([]byte("2;chunk-signature=ab\r\nhe\r\n3\r\nllo\r\n0\r\n\r\n")); !ok || string(b) != "hello" {
		t.Fatalf("expected multi-chunk decode, got %q", b)
	}
}

func TestMockRoundTripperUnsupported(t *testing.T) {
	rt := &mockRoundTripper{state: make(map[string]mockObj)}
	req, _ := http.NewRequest(http.MethodPatch, "https://mock.s3.local/bucket/key", nil)
	resp, _ := rt.RoundTrip(req)
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", resp.StatusCode)
	}
}
