package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"qwenauth/pkg/logging"
)

// DefaultCredentialsFile is the credential file location relative to the
// user's home directory. Other Qwen tooling reads and writes the same file.
const DefaultCredentialsFile = ".qwen/oauth_creds.json"

// ErrBlobNotFound is returned by a BlobStore when nothing has been written yet.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is an opaque single-value byte store.
type BlobStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

// FileBlob stores the blob in a single file.
//
// SECURITY: the file is created with 0600 permissions and its directory
// with 0700 (owner only).
type FileBlob struct {
	path string
}

// NewFileBlob returns a FileBlob at path.
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

// Path returns the file path backing the blob.
func (b *FileBlob) Path() string {
	return b.path
}

// Read returns the file contents, or ErrBlobNotFound if the file is missing.
func (b *FileBlob) Read(_ context.Context) ([]byte, error) {
	// #nosec G304 -- path comes from configuration, not request input
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	return data, nil
}

// Write replaces the file contents. The data is written to a temporary file
// in the same directory and renamed over the target, so readers never see
// a partial record.
func (b *FileBlob) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	return nil
}

// Delete removes the file. A missing file is not an error.
func (b *FileBlob) Delete(_ context.Context) error {
	err := os.Remove(b.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", b.path, err)
	}
	return nil
}

// DefaultPath returns ~/.qwen/oauth_creds.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DefaultCredentialsFile), nil
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}

// Store reads and writes the persisted credential record. It holds no
// state of its own: every Load goes back to the blob so writes by other
// processes are picked up.
type Store struct {
	blob  BlobStore
	label string
}

// NewStore returns a Store over blob. label identifies the store in logs
// and audit events, typically the file path.
func NewStore(blob BlobStore, label string) *Store {
	return &Store{blob: blob, label: label}
}

// NewFileStore returns a Store backed by the file at path.
func NewFileStore(path string) *Store {
	return NewStore(NewFileBlob(path), path)
}

// Label returns the store's display name.
func (s *Store) Label() string {
	return s.label
}

// Load returns the persisted credential. It returns (nil, nil) when nothing
// is stored or the stored record has no access token.
func (s *Store) Load(ctx context.Context) (*Credential, error) {
	data, err := s.blob.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credentials in %s: %w", s.label, err)
	}
	if cred.AccessToken == "" {
		logging.Debug("CredentialStore", "Ignoring record without access token in %s", s.label)
		return nil, nil
	}
	return &cred, nil
}

// Save replaces the persisted credential.
func (s *Store) Save(ctx context.Context, cred *Credential) error {
	if cred == nil || cred.AccessToken == "" {
		return errors.New("refusing to persist credential without access token")
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	data = append(data, '\n')

	if err := s.blob.Write(ctx, data); err != nil {
		logging.Audit(logging.AuditEvent{
			Action:  "credentials_stored",
			Outcome: "failure",
			Target:  s.label,
			Details: err.Error(),
		})
		return err
	}

	details := "has_refresh_token=" + fmt.Sprint(cred.RefreshToken != "")
	if cred.HasExpiry() {
		details += " expiry=" + cred.Expiry.UTC().Format("2006-01-02T15:04:05Z")
	}
	logging.Audit(logging.AuditEvent{
		Action:  "credentials_stored",
		Outcome: "success",
		Target:  s.label,
		Details: details,
	})
	return nil
}

// Clear removes the persisted credential.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.blob.Delete(ctx); err != nil {
		return err
	}
	logging.Audit(logging.AuditEvent{
		Action:  "credentials_cleared",
		Outcome: "success",
		Target:  s.label,
	})
	return nil
}
