package contentstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"

	"github.com/cuihairu/playhub/internal/ports"
)

// GitHubStore keeps documents as <dir>/<key>.json on a branch of a repository; every
// Write is one commit.
type GitHubStore struct {
	cli    *github.Client
	owner  string
	repo   string
	branch string
	dir    string
}

// OpenGitHub authenticates with the configured token. GitHubBaseURL targets GitHub
// Enterprise; Dir is the folder inside the repository.
func OpenGitHub(c Config) (*GitHubStore, error) {
	cli := github.NewClient(nil).WithAuthToken(c.GitHubToken)
	if c.GitHubBaseURL != "" {
		var err error
		if cli, err = cli.WithEnterpriseURLs(c.GitHubBaseURL, c.GitHubBaseURL); err != nil {
			return nil, err
		}
	}
	return NewGitHubStore(cli, c.GitHubOwner, c.GitHubRepo, c.GitHubBranch, c.Dir), nil
}

func NewGitHubStore(cli *github.Client, owner, repo, branch, dir string) *GitHubStore {
	if branch == "" {
		branch = "main"
	}
	return &GitHubStore{cli: cli, owner: owner, repo: repo, branch: branch, dir: dir}
}

func (s *GitHubStore) Name() string { return "github" }

func (s *GitHubStore) Read(ctx context.Context, key ports.ContentKey) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	fc, err := s.get(ctx, key)
	if err != nil {
		return nil, err
	}
	body, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return []byte(body), nil
}

func (s *GitHubStore) Write(ctx context.Context, key ports.ContentKey, doc []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("content: update %s", key)),
		Content: doc,
		Branch:  github.String(s.branch),
	}
	path := objectName(s.dir, key)
	fc, err := s.get(ctx, key)
	switch {
	case errors.Is(err, ports.ErrContentNotFound):
		_, _, err = s.cli.Repositories.CreateFile(ctx, s.owner, s.repo, path, opts)
	case err != nil:
		return err
	default:
		opts.SHA = fc.SHA
		_, _, err = s.cli.Repositories.UpdateFile(ctx, s.owner, s.repo, path, opts)
	}
	if err != nil {
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (s *GitHubStore) get(ctx context.Context, key ports.ContentKey) (*github.RepositoryContent, error) {
	fc, _, resp, err := s.cli.Repositories.GetContents(ctx, s.owner, s.repo, objectName(s.dir, key),
		&github.RepositoryContentGetOptions{Ref: s.branch})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if fc == nil {
		return nil, fmt.Errorf("read %s: path is a directory", key)
	}
	return fc, nil
}
