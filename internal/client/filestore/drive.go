package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/contentiq/internal/client/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	FolderMimeType = "application/vnd.google-apps.folder"
	JSONMimeType   = "application/json"
)

// DriveStore talks to Google Drive v3 on behalf of one bearer credential.
type DriveStore struct {
	svc *drive.Service
}

// DriveOptions tweak how the Drive client is built. Endpoint and HTTPClient
// are for tests and proxies; leave them empty in production.
type DriveOptions struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewDriveStore builds a DriveStore authorised with cred.
func NewDriveStore(ctx context.Context, cred models.Credential, o DriveOptions) (*DriveStore, error) {
	var opts []option.ClientOption
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	} else {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Token, TokenType: "Bearer"})
		opts = append(opts, option.WithTokenSource(ts))
	}
	if o.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.Endpoint))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &DriveStore{svc: svc}, nil
}

// NewDriveFactory returns a Factory producing DriveStores.
func NewDriveFactory(o DriveOptions) Factory {
	return func(ctx context.Context, cred models.Credential) (FileStore, error) {
		return NewDriveStore(ctx, cred, o)
	}
}

// quote escapes backslashes and single quotes for a Drive query literal.
// The replacer works in one pass, so added escapes are not escaped again.
func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func (d *DriveStore) FindFolder(ctx context.Context, name string) (string, bool, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", quote(name), FolderMimeType)

	res, err := d.svc.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", false, mapDriveError("folder query", err)
	}
	if len(res.Files) == 0 {
		return "", false, nil
	}
	return res.Files[0].Id, true, nil
}

func (d *DriveStore) CreateFolder(ctx context.Context, name string) (string, error) {
	f, err := d.svc.Files.Create(&drive.File{Name: name, MimeType: FolderMimeType}).
		Fields("id").Context(ctx).Do()
	if err != nil {
		return "", mapDriveError("create folder", err)
	}
	return f.Id, nil
}

// CreateFile uploads using multipart encoding: a JSON metadata part followed
// by the JSON content part.
func (d *DriveStore) CreateFile(ctx context.Context, folderID, name string, content []byte) error {
	meta := &drive.File{Name: name, Parents: []string{folderID}, MimeType: JSONMimeType}

	_, err := d.svc.Files.Create(meta).
		Media(bytes.NewReader(content), googleapi.ContentType(JSONMimeType)).
		Fields("id").Context(ctx).Do()
	if err != nil {
		return mapDriveError("upload", err)
	}
	return nil
}

func (d *DriveStore) ListFiles(ctx context.Context, folderID string, pageSize int) ([]FileRef, error) {
	q := fmt.Sprintf("'%s' in parents and trashed = false", quote(folderID))

	res, err := d.svc.Files.List().Q(q).Fields("files(id, name)").PageSize(int64(pageSize)).Context(ctx).Do()
	if err != nil {
		return nil, mapDriveError("list", err)
	}

	refs := make([]FileRef, 0, len(res.Files))
	for _, f := range res.Files {
		refs = append(refs, FileRef{ID: f.Id, Name: f.Name})
	}
	return refs, nil
}

func (d *DriveStore) ReadFile(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, mapDriveError("download", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	return b, nil
}

// mapDriveError folds the structured Drive error body into our sentinels.
func mapDriveError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w: %s", op, ErrUnauthorized, gerr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s failed (%d): %s", op, gerr.Code, gerr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
