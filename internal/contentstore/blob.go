package contentstore

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"github.com/cuihairu/playhub/internal/ports"
)

// BlobStore keeps documents in a gocloud bucket (s3://, file://, mem://).
type BlobStore struct {
	bk     *blob.Bucket
	prefix string
}

// OpenBlob opens bucketURL; objects are named <prefix>/<key>.json.
func OpenBlob(ctx context.Context, bucketURL, prefix string) (*BlobStore, error) {
	bk, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return NewBlobStore(bk, prefix), nil
}

func NewBlobStore(bk *blob.Bucket, prefix string) *BlobStore {
	return &BlobStore{bk: bk, prefix: prefix}
}

func (s *BlobStore) Name() string { return "blob" }

func (s *BlobStore) Read(ctx context.Context, key ports.ContentKey) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	b, err := s.bk.ReadAll(ctx, objectName(s.prefix, key))
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (s *BlobStore) Write(ctx context.Context, key ports.ContentKey, doc []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := s.bk.WriteAll(ctx, objectName(s.prefix, key), doc, opts); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Close() error { return s.bk.Close() }
