package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	cos "github.com/tencentyun/cos-go-sdk-v5"

	"github.com/cuihairu/playhub/internal/ports"
)

type cosStore struct {
	cli    *cos.Client
	prefix string
}

// OpenCOS opens a Tencent COS bucket by endpoint or region.
func OpenCOS(c Config) (ports.ContentStore, error) {
	var bucketURL *url.URL
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return nil, err
		}
		// path-style when the host does not carry the bucket
		if !strings.Contains(u.Host, c.Bucket) && !strings.HasSuffix(u.Path, "/"+c.Bucket) {
			u.Path = "/" + c.Bucket
		}
		bucketURL = u
	} else {
		if c.Region == "" {
			return nil, fmt.Errorf("region required for cos when endpoint empty")
		}
		u, err := url.Parse(fmt.Sprintf("https://%s.cos.%s.myqcloud.com", c.Bucket, c.Region))
		if err != nil {
			return nil, err
		}
		bucketURL = u
	}
	cli := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{SecretID: c.AccessKey, SecretKey: c.SecretKey},
	})
	return &cosStore{cli: cli, prefix: c.Prefix}, nil
}

func (s *cosStore) Name() string { return "cos" }

func (s *cosStore) Read(ctx context.Context, key ports.ContentKey) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	resp, err := s.cli.Object.Get(ctx, objectName(s.prefix, key), nil)
	if cos.IsNotFoundError(err) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *cosStore) Write(ctx context.Context, key ports.ContentKey, doc []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	opt := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: "application/json"},
	}
	if _, err := s.cli.Object.Put(ctx, objectName(s.prefix, key), bytes.NewReader(doc), opt); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
