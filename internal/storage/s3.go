package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("teamdocs/storage")

// Sentinel errors for storage operations
var (
	// ErrObjectNotFound indicates the requested object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied indicates insufficient permissions for the operation
	ErrAccessDenied = errors.New("access denied")

	// ErrNetworkError indicates a network connectivity issue
	ErrNetworkError = errors.New("network error")
)

// docxContentType is the MIME type stored with archived uploads.
const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// S3Storage archives uploaded document originals in object storage.
type S3Storage struct {
	client *minio.Client
	bucket string
}

// NewS3Storage creates a new S3/MinIO storage client
func NewS3Storage(config S3Config) (*S3Storage, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	// Verify bucket exists (bucket must be created out-of-band)
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist: create it before starting the server", config.BucketName)
	}

	return &S3Storage{
		client: client,
		bucket: config.BucketName,
	}, nil
}

// teamPrefix is the key prefix for every archive owned by a team.
func teamPrefix(teamEmail string) string {
	return "uploads/" + strings.ToLower(teamEmail) + "/"
}

// documentPrefix is the key prefix for a single document's archives.
func documentPrefix(teamEmail, docID string) string {
	return teamPrefix(teamEmail) + docID + "/"
}

// ArchiveKey builds the object key for an uploaded original.
// Key format: uploads/{team_email}/{doc_id}/{file_name}
func ArchiveKey(teamEmail, docID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.docx"
	}
	return documentPrefix(teamEmail, docID) + name
}

// UploadArchive stores the original bytes of an uploaded document.
func (s *S3Storage) UploadArchive(ctx context.Context, teamEmail, docID, fileName string, data []byte) (string, error) {
	key := ArchiveKey(teamEmail, docID, fileName)
	ctx, span := tracer.Start(ctx, "storage.upload_archive",
		trace.WithAttributes(
			attribute.String("storage.key", key),
			attribute.String("document.id", docID),
			attribute.Int("file.size", len(data)),
		))
	defer span.End()

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: docxContentType,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", classifyStorageError(err, "upload archive")
	}
	return key, nil
}

// Download retrieves a file from S3/MinIO
func (s *S3Storage) Download(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "storage.download",
		trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyStorageError(err, "download")
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyStorageError(err, "download")
	}

	span.SetAttributes(attribute.Int("file.size", len(data)))
	return data, nil
}

// Delete removes a file from S3/MinIO
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "storage.delete",
		trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// DeleteDocumentArchives removes every archive stored for a document.
func (s *S3Storage) DeleteDocumentArchives(ctx context.Context, teamEmail, docID string) (int, error) {
	return s.deletePrefix(ctx, "storage.delete_document_archives", documentPrefix(teamEmail, docID))
}

// DeleteTeamArchives removes every archive stored for a team.
func (s *S3Storage) DeleteTeamArchives(ctx context.Context, teamEmail string) (int, error) {
	return s.deletePrefix(ctx, "storage.delete_team_archives", teamPrefix(teamEmail))
}

func (s *S3Storage) deletePrefix(ctx context.Context, spanName, prefix string) (int, error) {
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.String("storage.prefix", prefix)))
	defer span.End()

	var deletedCount int
	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for obj := range objectCh {
		if obj.Err != nil {
			span.RecordError(obj.Err)
			span.SetStatus(codes.Error, obj.Err.Error())
			return deletedCount, classifyStorageError(obj.Err, "list archives")
		}
		if err := s.Delete(ctx, obj.Key); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return deletedCount, fmt.Errorf("failed to delete archive %s: %w", obj.Key, err)
		}
		deletedCount++
	}

	span.SetAttributes(attribute.Int("archives.deleted", deletedCount))
	return deletedCount, nil
}

// classifyStorageError examines a storage error and returns an appropriate sentinel error
func classifyStorageError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		switch minioErr.Code {
		case "NoSuchKey", "NoSuchBucket":
			return fmt.Errorf("%s: %w", operation, ErrObjectNotFound)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%s: %w", operation, ErrAccessDenied)
		}
	}

	errStr := err.Error()
	if containsAny(errStr, []string{"connection", "timeout", "network", "dial", "refused"}) {
		return fmt.Errorf("%s network issue: %w", operation, ErrNetworkError)
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

// containsAny checks if a string contains any of the given substrings
func containsAny(s string, substrs []string) bool {
	for _, substr := range substrs {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
