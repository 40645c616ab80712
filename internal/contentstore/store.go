// Package contentstore holds the durable drivers behind the content cache. Every driver
// stores one JSON document per content key.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cuihairu/playhub/internal/ports"
)

// Config selects and configures a driver. Tags serve both go-zero conf (json) and viper
// (mapstructure).
type Config struct {
	Driver string `json:"driver,default=file" mapstructure:"driver"`

	// file driver; also the local tier when LocalDir is empty and Layered is set
	Dir string `json:"dir,default=data" mapstructure:"dir"`
	// Layered puts a file tier at LocalDir in front of a remote driver.
	Layered  bool   `json:"layered,optional" mapstructure:"layered"`
	LocalDir string `json:"local_dir,optional" mapstructure:"local_dir"`

	// ReadRemote makes layered reads go to the remote first and fall back to LocalDir.
	ReadRemote bool `json:"read_remote,optional" mapstructure:"read_remote"`

	// blob / s3 / oss / cos
	BucketURL      string `json:"bucket_url,optional" mapstructure:"bucket_url"`
	Bucket         string `json:"bucket,optional" mapstructure:"bucket"`
	Region         string `json:"region,optional" mapstructure:"region"`
	Endpoint       string `json:"endpoint,optional" mapstructure:"endpoint"`
	AccessKey      string `json:"access_key,optional" mapstructure:"access_key"`
	SecretKey      string `json:"secret_key,optional" mapstructure:"secret_key"`
	ForcePathStyle bool   `json:"force_path_style,optional" mapstructure:"force_path_style"`
	Prefix         string `json:"prefix,optional" mapstructure:"prefix"`

	// redis
	RedisAddr     string `json:"redis_addr,optional" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password,optional" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db,optional" mapstructure:"redis_db"`

	// db
	DBDriver string `json:"db_driver,optional" mapstructure:"db_driver"`
	DSN      string `json:"dsn,optional" mapstructure:"dsn"`

	// github
	GitHubOwner   string `json:"github_owner,optional" mapstructure:"github_owner"`
	GitHubRepo    string `json:"github_repo,optional" mapstructure:"github_repo"`
	GitHubBranch  string `json:"github_branch,optional" mapstructure:"github_branch"`
	GitHubToken   string `json:"github_token,optional" mapstructure:"github_token"`
	GitHubBaseURL string `json:"github_base_url,optional" mapstructure:"github_base_url"`
}

// FromEnv reads CONTENT_STORE_* variables.
func FromEnv() Config {
	c := Config{
		Driver:        os.Getenv("CONTENT_STORE_DRIVER"),
		Dir:           os.Getenv("CONTENT_STORE_DIR"),
		LocalDir:      os.Getenv("CONTENT_STORE_LOCAL_DIR"),
		BucketURL:     os.Getenv("CONTENT_STORE_BUCKET_URL"),
		Bucket:        os.Getenv("CONTENT_STORE_BUCKET"),
		Region:        os.Getenv("CONTENT_STORE_REGION"),
		Endpoint:      os.Getenv("CONTENT_STORE_ENDPOINT"),
		AccessKey:     os.Getenv("CONTENT_STORE_ACCESS_KEY"),
		SecretKey:     os.Getenv("CONTENT_STORE_SECRET_KEY"),
		Prefix:        os.Getenv("CONTENT_STORE_PREFIX"),
		RedisAddr:     os.Getenv("CONTENT_STORE_REDIS_ADDR"),
		RedisPassword: os.Getenv("CONTENT_STORE_REDIS_PASSWORD"),
		DBDriver:      os.Getenv("DB_DRIVER"),
		DSN:           os.Getenv("DATABASE_URL"),
		GitHubOwner:   os.Getenv("CONTENT_STORE_GITHUB_OWNER"),
		GitHubRepo:    os.Getenv("CONTENT_STORE_GITHUB_REPO"),
		GitHubBranch:  os.Getenv("CONTENT_STORE_GITHUB_BRANCH"),
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		GitHubBaseURL: os.Getenv("CONTENT_STORE_GITHUB_BASE_URL"),
	}
	if c.Driver == "" {
		c.Driver = "file"
	}
	if c.Dir == "" {
		c.Dir = "data"
	}
	c.Layered = truthy(os.Getenv("CONTENT_STORE_LAYERED"))
	c.ReadRemote = truthy(os.Getenv("CONTENT_STORE_READ_REMOTE"))
	c.ForcePathStyle = truthy(os.Getenv("CONTENT_STORE_FORCE_PATH_STYLE"))
	if v := os.Getenv("CONTENT_STORE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	return c
}

func truthy(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes"
}

// Validate checks that the selected driver has what it needs.
func Validate(c Config) error {
	switch strings.ToLower(c.Driver) {
	case "file":
		if c.Dir == "" {
			return errors.New("dir required for file driver")
		}
	case "blob":
		if c.BucketURL == "" {
			return errors.New("bucket_url required for blob driver")
		}
	case "s3":
		if c.Bucket == "" {
			return errors.New("bucket required for s3 driver")
		}
	case "oss":
		if c.Bucket == "" {
			return errors.New("bucket required for oss driver")
		}
		if c.Endpoint == "" {
			return errors.New("endpoint required for oss driver")
		}
		if c.AccessKey == "" || c.SecretKey == "" {
			return errors.New("access_key/secret_key required for oss driver")
		}
	case "cos":
		if c.Bucket == "" {
			return errors.New("bucket required for cos driver")
		}
		if c.Region == "" && c.Endpoint == "" {
			return errors.New("region or endpoint required for cos driver")
		}
		if c.AccessKey == "" || c.SecretKey == "" {
			return errors.New("access_key/secret_key required for cos driver")
		}
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("redis_addr required for redis driver")
		}
	case "db":
		// empty DSN falls back to a local sqlite file
	case "github":
		if c.GitHubOwner == "" || c.GitHubRepo == "" {
			return errors.New("github_owner/github_repo required for github driver")
		}
		if c.GitHubToken == "" {
			return errors.New("github_token required for github driver")
		}
	case "":
		return errors.New("store driver not set")
	default:
		return fmt.Errorf("unknown store driver: %s", c.Driver)
	}
	if c.Layered && strings.EqualFold(c.Driver, "file") {
		return errors.New("layered requires a remote driver")
	}
	return nil
}

// Open builds the configured store. With Layered set the result is a *Layered whose
// first tier is a file store.
func Open(ctx context.Context, c Config, logger *slog.Logger) (ports.ContentStore, error) {
	if err := Validate(c); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	remote, err := openDriver(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.Driver, err)
	}
	if !c.Layered {
		return remote, nil
	}
	dir := c.LocalDir
	if dir == "" {
		dir = c.Dir
	}
	local, err := NewFileStore(dir)
	if err != nil {
		_ = Close(remote)
		return nil, err
	}
	l := NewLayered(logger, local, remote)
	if c.ReadRemote {
		l.ReadAuthoritative()
	}
	return l, nil
}

func openDriver(ctx context.Context, c Config) (ports.ContentStore, error) {
	switch strings.ToLower(c.Driver) {
	case "file":
		return NewFileStore(c.Dir)
	case "blob":
		return OpenBlob(ctx, c.BucketURL, c.Prefix)
	case "s3":
		return OpenBlob(ctx, buildS3URL(c), c.Prefix)
	case "oss":
		return OpenOSS(c)
	case "cos":
		return OpenCOS(c)
	case "redis":
		return OpenRedis(c)
	case "db":
		db, err := OpenGormDB(c.DBDriver, c.DSN)
		if err != nil {
			return nil, err
		}
		return NewDBStore(ctx, db)
	case "github":
		return OpenGitHub(c)
	}
	return nil, fmt.Errorf("unknown store driver: %s", c.Driver)
}

// Close releases the store's connections when it holds any.
func Close(s ports.ContentStore) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func checkKey(key ports.ContentKey) error {
	_, err := ports.ParseContentKey(string(key))
	return err
}

func notFound(key ports.ContentKey) error {
	return fmt.Errorf("%w: %s", ports.ErrContentNotFound, key)
}

// objectName maps a key to "<prefix>/<key>.json" with traversal segments removed.
func objectName(prefix string, key ports.ContentKey) string {
	name := string(key) + ".json"
	if prefix != "" {
		name = prefix + "/" + name
	}
	return sanitizeKey(name)
}

// sanitizeKey prevents path traversal.
func sanitizeKey(key string) string {
	key = filepath.ToSlash(key)
	key = strings.TrimLeft(key, "/")
	parts := strings.Split(key, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "/")
}

// buildS3URL constructs a gocloud s3 URL with query params.
func buildS3URL(c Config) string {
	u := url.URL{Scheme: "s3", Host: c.Bucket}
	q := url.Values{}
	if c.Region != "" {
		q.Set("region", c.Region)
	}
	if c.Endpoint != "" {
		q.Set("endpoint", c.Endpoint)
	}
	if c.ForcePathStyle {
		q.Set("s3ForcePathStyle", "true")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
