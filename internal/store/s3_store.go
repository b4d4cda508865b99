package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nhle/eminus-watch/internal/model"
)

// S3Store keeps each namespace as a JSON object at <prefix>/<namespace>.json
// in an S3-compatible bucket. It takes no lock; object storage has no cheap
// mutual exclusion, so scheduling must keep runs apart.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ SetStore = (*S3Store)(nil)

// NewS3Store creates a MinIO client for cfg. It does not contact the server.
func NewS3Store(cfg model.S3Config) (*S3Store, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// objectKey returns the object name for ns.
func (s *S3Store) objectKey(ns Namespace) string {
	return path.Join(s.prefix, string(ns)+".json")
}

// Load downloads and decodes the object for ns. A missing object yields an
// empty set.
func (s *S3Store) Load(ctx context.Context, ns Namespace) (*model.IDSet, error) {
	key := s.objectKey(ns)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return model.NewIDSet(), nil
		}
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", s.bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return model.NewIDSet(), nil
		}
		return nil, fmt.Errorf("reading s3://%s/%s: %w", s.bucket, key, err)
	}

	set, err := decodeSet(data)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, err)
	}
	return set, nil
}

// Save uploads the encoded set for ns. A single PutObject replaces the object
// atomically.
func (s *S3Store) Save(ctx context.Context, ns Namespace, set *model.IDSet) error {
	data, err := encodeSet(set)
	if err != nil {
		return err
	}
	return s.put(ctx, ns, data)
}

func (s *S3Store) put(ctx context.Context, ns Namespace, data []byte) error {
	key := s.objectKey(ns)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("uploading s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// SaveAll encodes every set before uploading any, then uploads them one
// object at a time in saveOrder. S3 has no multi-object transaction, so a
// failed upload can leave earlier objects replaced.
func (s *S3Store) SaveAll(ctx context.Context, sets map[Namespace]*model.IDSet) error {
	order := saveOrder(sets)
	encoded := make(map[Namespace][]byte, len(order))
	for _, ns := range order {
		data, err := encodeSet(sets[ns])
		if err != nil {
			return err
		}
		encoded[ns] = data
	}

	for _, ns := range order {
		if err := s.put(ctx, ns, encoded[ns]); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (s *S3Store) Close() error {
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
