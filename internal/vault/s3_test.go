package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 is a bucket held in memory, standing in for the S3 client,
// uploader and downloader.
type fakeS3 struct {
	bucket   string
	objects  map[string][]byte
	metadata map[string]map[string]string
}

func newFakeS3(bucket string) *fakeS3 {
	return &fakeS3{
		bucket:   bucket,
		objects:  make(map[string][]byte),
		metadata: make(map[string]map[string]string),
	}
}

func (f *fakeS3) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = data
	f.metadata[key] = in.Metadata
	return &manager.UploadOutput{}, nil
}

func (f *fakeS3) Download(_ context.Context, w io.WriterAt, in *s3.GetObjectInput, _ ...func(*manager.Downloader)) (int64, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return 0, &types.NoSuchKey{}
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	key := aws.ToString(in.Key)
	if _, ok := f.objects[key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{Metadata: f.metadata[key]}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if aws.ToString(in.Bucket) != f.bucket {
		return nil, errors.New("no such bucket")
	}
	return &s3.HeadBucketOutput{}, nil
}

func newTestS3Vault(fake *fakeS3, bucket, prefix string) *S3Vault {
	return &S3Vault{
		name:       "s3-test",
		bucket:     bucket,
		prefix:     prefix,
		head:       fake,
		uploader:   fake,
		downloader: fake,
	}
}

func TestS3Vault_Key(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "metadata/host-1/db"},
		{prefix: "studydesk", want: "studydesk/metadata/host-1/db"},
		{prefix: "a/b/", want: "a/b/metadata/host-1/db"},
	}

	for _, tt := range tests {
		v := &S3Vault{prefix: tt.prefix}
		if got := v.key("host-1", "db"); got != tt.want {
			t.Errorf("key() with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestS3Vault_PutAndGetMetadata(t *testing.T) {
	fake := newFakeS3("bucket")
	v := newTestS3Vault(fake, "bucket", "backups")

	content := "encrypted snapshot"
	if err := v.PutMetadata("host-1", "db", strings.NewReader(content), int64(len(content)), 42); err != nil {
		t.Fatalf("PutMetadata() error = %v", err)
	}

	if _, ok := fake.objects["backups/metadata/host-1/db"]; !ok {
		t.Fatalf("object not stored under expected key; have %v", fake.objects)
	}

	var buf bytes.Buffer
	if err := v.GetMetadata("host-1", "db", &buf); err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if buf.String() != content {
		t.Errorf("GetMetadata() = %q, want %q", buf.String(), content)
	}

	version, err := v.GetMetadataVersion("host-1", "db")
	if err != nil {
		t.Fatalf("GetMetadataVersion() error = %v", err)
	}
	if version != 42 {
		t.Errorf("GetMetadataVersion() = %d, want 42", version)
	}
}

func TestS3Vault_MissingObject(t *testing.T) {
	v := newTestS3Vault(newFakeS3("bucket"), "bucket", "")

	version, err := v.GetMetadataVersion("host-1", "db")
	if err != nil {
		t.Fatalf("GetMetadataVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("GetMetadataVersion() = %d, want 0", version)
	}

	var buf bytes.Buffer
	err = v.GetMetadata("host-1", "db", &buf)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("GetMetadata() error = %v, want not found", err)
	}
}

func TestS3Vault_SizeMismatch(t *testing.T) {
	fake := newFakeS3("bucket")
	v := newTestS3Vault(fake, "bucket", "")

	if err := v.PutMetadata("host-1", "db", strings.NewReader("abc"), 5, 1); err == nil {
		t.Fatal("PutMetadata() expected size mismatch error")
	}
	if len(fake.objects) != 0 {
		t.Errorf("object uploaded despite size mismatch")
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	fake := newFakeS3("bucket")

	if err := newTestS3Vault(fake, "bucket", "").ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
	if err := newTestS3Vault(fake, "other", "").ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for missing bucket")
	}
}
