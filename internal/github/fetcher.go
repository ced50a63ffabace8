package github

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/go-github/v81/github"
)

// FetchedDoc is a file downloaded from the repository.
type FetchedDoc struct {
	Path string // Relative to the fetcher's base path
	Name string // File name, used as the document id on upload
	Data []byte
	SHA  string // Git blob SHA
}

// Fetcher lists and downloads documents below one repository directory.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
	ref      string
	accept   func(name string) bool
}

// NewFetcher creates a fetcher. accept selects which files are documents;
// ref may be empty for the default branch.
func NewFetcher(client *Client, owner, repo, basePath, ref string, accept func(name string) bool) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
		ref:      ref,
		accept:   accept,
	}
}

func (f *Fetcher) options() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// ListDocs recursively lists accepted files, relative to the base path.
func (f *Fetcher) ListDocs(ctx context.Context) ([]string, error) {
	return f.listDocsRecursive(ctx, f.basePath, "")
}

func (f *Fetcher) listDocsRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var docs []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.options())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if f.accept == nil || f.accept(*item.Name) {
				docs = append(docs, itemRelPath)
			}
		case "dir":
			subDocs, err := f.listDocsRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, subDocs...)
		}
	}

	return docs, nil
}

// FetchDoc downloads one file. Files too large for the contents API are
// fetched through their download URL.
func (f *Fetcher) FetchDoc(ctx context.Context, relativePath string) (*FetchedDoc, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.options())
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("%s is not a file", fullPath)
	}

	var data []byte
	if fileContent.GetEncoding() == "base64" {
		content, err := fileContent.GetContent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
		}
		data = []byte(content)
	} else {
		rc, _, err := f.client.Repositories.DownloadContents(ctx, f.owner, f.repo, fullPath, f.options())
		if err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", fullPath, err)
		}
		defer rc.Close()

		if data, err = io.ReadAll(rc); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fullPath, err)
		}
	}

	return &FetchedDoc{
		Path: relativePath,
		Name: fileContent.GetName(),
		Data: data,
		SHA:  fileContent.GetSHA(),
	}, nil
}

// GetLatestCommitSHA retrieves the SHA of the most recent commit affecting the base path.
func (f *Fetcher) GetLatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, &github.CommitsListOptions{
		SHA:         f.ref,
		Path:        f.basePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}
	return commits[0].GetSHA(), nil
}
