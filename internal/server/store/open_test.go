package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/datahub/internal/cryptox"
	"github.com/dmitrijs2005/datahub/internal/server/config"
	"github.com/dmitrijs2005/datahub/internal/server/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageBackend = config.BackendFile
	c.FileStorageDir = t.TempDir()
	c.DocumentKey = "open-test-key"
	c.LogConfigObjectKey = "log_config.yaml"

	s, backend, err := Open(context.Background(), c, nil)
	require.NoError(t, err)
	defer backend.Close()

	_, err = s.CreateUser(context.Background(), "A", "a@x.com", []byte("h"), "", true)
	require.NoError(t, err)

	again, backend2, err := Open(context.Background(), c, nil)
	require.NoError(t, err)
	defer backend2.Close()

	u, err := again.GetUserByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, u.ID)
	assert.Equal(t, 30, again.Settings(context.Background()).RetentionDays)
}

func TestOpen_Errors(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageBackend = config.BackendMemory

	_, _, err := Open(context.Background(), c, nil)
	assert.ErrorContains(t, err, "document key")

	c.DocumentKey = "k"
	c.StorageBackend = "tape"
	_, _, err = Open(context.Background(), c, nil)
	assert.ErrorContains(t, err, "unknown storage backend")
}

// fernetUsers holds two users (ana, bruno) as a Fernet token under
// fernetKey.
const (
	fernetKey   = "cw_0x689RpI-jtRR7oE8h_eQsKImvJapLeSbXpwF4e4="
	fernetUsers = "gAAAAABlU_EAAAECAwQFBgcICQoLDA0ODx0xoEJLHL5j6mQmf1L7s18eVmUlTJ0HdpVNGzF2xM26jCLyBDP7_BuR275T0C8WeywZu7gzVzaiBusJd4PToPprj5M4Xgd_-OkdPvsF6tICOVdhASVZfunmv7ZIMgqZlJLeEQOiBx75m4s6wGTXLbKlJD83s__w3gpHF3k1XzOGNipTW50_kPFeJMp4d8SKUqJMnAko7uQr6QicXSxtxGPXZcNkty3rmKEn_K8AtbwZFm4nsA4SfK3HJbXoR298WQ=="
)

func TestOpen_ReadsFernetDocumentAndReseals(t *testing.T) {
	ctx := context.Background()
	c := &config.Config{}
	c.LoadDefaults()
	c.StorageBackend = config.BackendFile
	c.FileStorageDir = t.TempDir()
	c.DocumentKey = fernetKey

	path := filepath.Join(c.FileStorageDir, c.UsersObjectKey)
	require.NoError(t, os.WriteFile(path, []byte(fernetUsers), 0o600))

	s, backend, err := Open(ctx, c, nil)
	require.NoError(t, err)
	defer backend.Close()

	res := s.Init(ctx, config.BootstrapAdmin{Email: "boot@x.com", Password: "supersecret"})
	require.NoError(t, res.Err)
	assert.True(t, res.Created)
	assert.Equal(t, 3, res.UserID)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	key, err := cryptox.ParseKey(fernetKey)
	require.NoError(t, err)
	sealer, err := cryptox.NewSealer(key)
	require.NoError(t, err)

	doc, source, err := document.NewCodec(sealer).Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, document.SourceSealed, source)

	var emails []string
	for _, u := range doc.Users {
		emails = append(emails, u.Email)
	}
	assert.ElementsMatch(t, []string{"ana@x.com", "bruno@x.com", "boot@x.com"}, emails)
}
