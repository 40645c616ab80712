package contentstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	oss "github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/cuihairu/playhub/internal/ports"
)

type ossStore struct {
	bk     *oss.Bucket
	prefix string
}

// OpenOSS opens an Aliyun OSS bucket.
func OpenOSS(c Config) (ports.ContentStore, error) {
	cli, err := oss.New(c.Endpoint, c.AccessKey, c.SecretKey)
	if err != nil {
		return nil, err
	}
	bk, err := cli.Bucket(c.Bucket)
	if err != nil {
		return nil, err
	}
	return &ossStore{bk: bk, prefix: c.Prefix}, nil
}

func (s *ossStore) Name() string { return "oss" }

func (s *ossStore) Read(_ context.Context, key ports.ContentKey) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	rc, err := s.bk.GetObject(objectName(s.prefix, key))
	if ossNotFound(err) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *ossStore) Write(_ context.Context, key ports.ContentKey, doc []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := s.bk.PutObject(objectName(s.prefix, key), bytes.NewReader(doc), oss.ContentType("application/json"))
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func ossNotFound(err error) bool {
	if err == nil {
		return false
	}
	var se oss.ServiceError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusNotFound
	}
	var pse *oss.ServiceError
	if errors.As(err, &pse) {
		return pse.StatusCode == http.StatusNotFound
	}
	return false
}
