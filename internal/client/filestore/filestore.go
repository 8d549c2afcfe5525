// Package filestore adapts concrete cloud file stores to the handful of
// calls the archive needs: find or create a folder, create a JSON file in
// it, list its files and read one back.
package filestore

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
)

var (
	ErrNotFound     = errors.New("file not found")
	ErrUnauthorized = errors.New("remote store rejected credential")
)

// FileRef identifies a stored file.
type FileRef struct {
	ID   string
	Name string
}

// FileStore is the conceptual remote file-store API.
type FileStore interface {
	// FindFolder returns the id of a non-trashed folder called name.
	FindFolder(ctx context.Context, name string) (id string, found bool, err error)
	CreateFolder(ctx context.Context, name string) (string, error)
	// CreateFile uploads content as a new JSON file inside folderID.
	CreateFile(ctx context.Context, folderID, name string, content []byte) error
	// ListFiles returns up to pageSize immediate children of folderID.
	ListFiles(ctx context.Context, folderID string, pageSize int) ([]FileRef, error)
	ReadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Factory builds a FileStore bound to cred. Callers never pass a simulated
// or empty credential.
type Factory func(ctx context.Context, cred models.Credential) (FileStore, error)
