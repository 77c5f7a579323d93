package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json.enc")

	secrets := map[string]string{SecretProviderKey: "sk-or-test-123"}
	require.NoError(t, EncryptSecretsFile(path, "passphrase", secrets))
	require.True(t, SecretsFileExists(path))

	decrypted, err := DecryptSecretsFile(path, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, secrets, decrypted)
}

func TestSecretsWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json.enc")
	require.NoError(t, EncryptSecretsFile(path, "right", map[string]string{"k": "v"}))

	_, err := DecryptSecretsFile(path, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decrypt")
}

func TestSaveProviderKeyPreservesOtherSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json.enc")
	require.NoError(t, EncryptSecretsFile(path, "pass", map[string]string{"OTHER": "kept"}))

	require.NoError(t, SaveProviderKey(path, "pass", "sk-new"))

	decrypted, err := DecryptSecretsFile(path, "pass")
	require.NoError(t, err)
	assert.Equal(t, "kept", decrypted["OTHER"])
	assert.Equal(t, "sk-new", decrypted[SecretProviderKey])
}

func TestProviderKeyPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json.enc")
	t.Setenv(SecretProviderKey, "from-env")

	// No secrets file: fall back to the environment.
	assert.Equal(t, "from-env", ProviderKey(path, "pass"))

	// Secrets file wins once present.
	require.NoError(t, SaveProviderKey(path, "pass", "from-file"))
	assert.Equal(t, "from-file", ProviderKey(path, "pass"))

	// Wrong passphrase falls back to the environment rather than failing.
	assert.Equal(t, "from-env", ProviderKey(path, "wrong"))
}
