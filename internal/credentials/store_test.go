package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "oauth_creds.json"))

	cred, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "oauth_creds.json")
	store := NewFileStore(path)

	expiry := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())
	saved := &Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       expiry,
		ResourceURL:  "portal.qwen.ai",
	}
	require.NoError(t, store.Save(context.Background(), saved))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, expiry.Equal(loaded.Expiry))
	assert.Equal(t, "portal.qwen.ai", loaded.ResourceURL)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "credential file must be owner-only")

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm(), "credential directory must be owner-only")
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "oauth_creds.json"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Credential{AccessToken: "first"}))
	require.NoError(t, store.Save(ctx, &Credential{AccessToken: "second"}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.AccessToken)
}

func TestStore_SaveRejectsEmptyAccessToken(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "oauth_creds.json"))

	assert.Error(t, store.Save(context.Background(), nil))
	assert.Error(t, store.Save(context.Background(), &Credential{RefreshToken: "r"}))
}

func TestStore_LoadIgnoresRecordWithoutAccessToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"","refresh_token":"r"}`), 0600))

	cred, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestStore_LoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0600))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth_creds.json")
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Credential{AccessToken: "a"}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clearing twice is not an error")

	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// memoryBlob is an in-memory BlobStore for tests.
type memoryBlob struct {
	data     []byte
	readErr  error
	writeErr error
}

func (m *memoryBlob) Read(context.Context) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.data == nil {
		return nil, ErrBlobNotFound
	}
	return m.data, nil
}

func (m *memoryBlob) Write(_ context.Context, data []byte) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memoryBlob) Delete(context.Context) error {
	m.data = nil
	return nil
}

func TestStore_CustomBlob(t *testing.T) {
	blob := &memoryBlob{}
	store := NewStore(blob, "memory")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Credential{AccessToken: "a"}))
	assert.Contains(t, string(blob.data), `"access_token": "a"`)

	blob.readErr = errors.New("boom")
	_, err := store.Load(ctx)
	assert.EqualError(t, err, "boom")

	blob.writeErr = errors.New("read-only")
	assert.Error(t, store.Save(ctx, &Credential{AccessToken: "b"}))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/.qwen/oauth_creds.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".qwen/oauth_creds.json"), got)

	got, err = ExpandPath("/etc/creds.json")
	require.NoError(t, err)
	assert.Equal(t, "/etc/creds.json", got)
}
