package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"studydesk/internal/config"
	"studydesk/internal/desk"
)

// versionMetadataKey is the S3 user metadata key carrying the item version.
const versionMetadataKey = "studydesk-version"

type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type s3Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

type s3HeadAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Vault stores items in an S3 bucket under <prefix>/metadata/<hostID>/<name>.
// The version travels as user metadata on the object itself, so data and
// version are replaced together.
type S3Vault struct {
	name       string
	bucket     string
	prefix     string
	head       s3HeadAPI
	uploader   s3Uploader
	downloader s3Downloader
}

// NewS3Vault builds an S3Vault from config, loading AWS settings from the
// default chain unless static credentials are configured.
func NewS3Vault(ctx context.Context, cfg config.VaultConfig) (*S3Vault, error) {
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}
	if (cfg.S3AccessKeyID == "") != (cfg.S3SecretAccessKey == "") {
		return nil, fmt.Errorf("s3 vault requires both s3_access_key_id and s3_secret_access_key, or neither")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Vault{
		name:       cfg.Name,
		bucket:     cfg.S3Bucket,
		prefix:     cfg.S3Prefix,
		head:       client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}, nil
}

func (v *S3Vault) key(hostID, name string) string {
	return path.Join(v.prefix, "metadata", hostID, name)
}

// PutMetadata uploads a named item with its version.
func (v *S3Vault) PutMetadata(hostID string, name string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	_, err = v.uploader.Upload(context.Background(), &s3.PutObjectInput{
		Bucket:        aws.String(v.bucket),
		Key:           aws.String(v.key(hostID, name)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(size),
		Metadata:      map[string]string{versionMetadataKey: strconv.FormatInt(version, 10)},
	})
	if err != nil {
		return fmt.Errorf("uploading %s to s3://%s: %w", name, v.bucket, err)
	}
	return nil
}

// GetMetadataVersion reads the version from the object's user metadata.
// Returns 0 if the object does not exist.
func (v *S3Vault) GetMetadataVersion(hostID string, name string) (int64, error) {
	out, err := v.head.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(hostID, name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading %s version from s3://%s: %w", name, v.bucket, err)
	}

	raw, ok := out.Metadata[versionMetadataKey]
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// GetMetadata downloads a named item and writes it to w.
func (v *S3Vault) GetMetadata(hostID string, name string, w io.Writer) error {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := v.downloader.Download(context.Background(), buf, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(v.key(hostID, name)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return fmt.Errorf("metadata %q not found for host: %s", name, hostID)
		}
		return fmt.Errorf("downloading %s from s3://%s: %w", name, v.bucket, err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup() error {
	_, err := v.head.HeadBucket(context.Background(), &s3.HeadBucketInput{Bucket: aws.String(v.bucket)})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	return errors.As(err, &nf) || errors.As(err, &nsk)
}

// Compile-time check that S3Vault implements desk.Vault interface
var _ desk.Vault = (*S3Vault)(nil)
