package mocks

import (
	"context"
	"time"

	"appforge/internal/models"
)

type PublisherMock struct {
	OwnerName            string
	EnsureRepoFunc       func(ctx context.Context, name, description string) (*models.RepoHandle, error)
	UpsertFileFunc       func(ctx context.Context, repo models.RepoHandle, path, content, message string) (string, error)
	UpsertBinaryFileFunc func(ctx context.Context, repo models.RepoHandle, path string, data []byte, message string) bool
	EnablePagesFunc      func(ctx context.Context, repo models.RepoHandle, branch, path string) bool
	WaitForPagesFunc     func(ctx context.Context, repo models.RepoHandle, timeout time.Duration) string
	GetFileTextFunc      func(ctx context.Context, repo models.RepoHandle, path string) (string, bool)
	LatestCommitSHAFunc  func(ctx context.Context, repo models.RepoHandle) (string, bool)

	Calls []string
}

func (m *PublisherMock) Owner() string {
	return m.OwnerName
}

func (m *PublisherMock) EnsureRepo(ctx context.Context, name, description string) (*models.RepoHandle, error) {
	m.Calls = append(m.Calls, "EnsureRepo:"+name)
	if m.EnsureRepoFunc != nil {
		return m.EnsureRepoFunc(ctx, name, description)
	}
	return &models.RepoHandle{Name: name, FullName: m.OwnerName + "/" + name}, nil
}

func (m *PublisherMock) UpsertFile(ctx context.Context, repo models.RepoHandle, path, content, message string) (string, error) {
	m.Calls = append(m.Calls, "UpsertFile:"+path)
	if m.UpsertFileFunc != nil {
		return m.UpsertFileFunc(ctx, repo, path, content, message)
	}
	return "", nil
}

func (m *PublisherMock) UpsertBinaryFile(ctx context.Context, repo models.RepoHandle, path string, data []byte, message string) bool {
	m.Calls = append(m.Calls, "UpsertBinaryFile:"+path)
	if m.UpsertBinaryFileFunc != nil {
		return m.UpsertBinaryFileFunc(ctx, repo, path, data, message)
	}
	return true
}

func (m *PublisherMock) EnablePages(ctx context.Context, repo models.RepoHandle, branch, path string) bool {
	m.Calls = append(m.Calls, "EnablePages:"+branch)
	if m.EnablePagesFunc != nil {
		return m.EnablePagesFunc(ctx, repo, branch, path)
	}
	return true
}

func (m *PublisherMock) WaitForPages(ctx context.Context, repo models.RepoHandle, timeout time.Duration) string {
	m.Calls = append(m.Calls, "WaitForPages")
	if m.WaitForPagesFunc != nil {
		return m.WaitForPagesFunc(ctx, repo, timeout)
	}
	return ""
}

func (m *PublisherMock) GetFileText(ctx context.Context, repo models.RepoHandle, path string) (string, bool) {
	m.Calls = append(m.Calls, "GetFileText:"+path)
	if m.GetFileTextFunc != nil {
		return m.GetFileTextFunc(ctx, repo, path)
	}
	return "", false
}

func (m *PublisherMock) LatestCommitSHA(ctx context.Context, repo models.RepoHandle) (string, bool) {
	m.Calls = append(m.Calls, "LatestCommitSHA")
	if m.LatestCommitSHAFunc != nil {
		return m.LatestCommitSHAFunc(ctx, repo)
	}
	return "", false
}
