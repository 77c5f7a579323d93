package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

// Encrypted secrets file layout: [salt][nonce][ciphertext+tag]. The file
// holds the client-direct provider key and stays local; it is deliberately
// excluded from everything the sync layer touches.
const (
	saltSize  = 16
	nonceSize = 12
	scryptN   = 32768 // 2^15
	scryptR   = 8
	scryptP   = 1
	keySize   = 32 // AES-256
)

// Secret names stored in the secrets file.
const (
	SecretProviderKey = "PROVIDER_API_KEY"
)

// SecretsFileExists checks whether the encrypted secrets file is present.
func SecretsFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EncryptSecretsFile encrypts and writes the secrets map to path with 0600
// permissions.
func EncryptSecretsFile(path, passphrase string, secrets map[string]string) error {
	passBytes := []byte(passphrase)
	defer zero(passBytes)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key(passBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer zero(key)

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create secrets directory: %w", err)
		}
	}
	if err := os.WriteFile(path, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	return nil
}

// DecryptSecretsFile reads and decrypts the secrets file at path.
func DecryptSecretsFile(path, passphrase string) (map[string]string, error) {
	passBytes := []byte(passphrase)
	defer zero(passBytes)

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}
	if len(fileData) < saltSize+nonceSize {
		return nil, fmt.Errorf("secrets file is truncated")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	key, err := scrypt.Key(passBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secrets (wrong passphrase?): %w", err)
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	return secrets, nil
}

// ProviderKey returns the client-direct provider key using standard
// precedence: the encrypted secrets file first, then the environment.
// Returns an empty string (not an error) when no key is configured; the
// dual-path resolver treats that as "no secondary path available".
func ProviderKey(path, passphrase string) string {
	if SecretsFileExists(path) && passphrase != "" {
		if secrets, err := DecryptSecretsFile(path, passphrase); err == nil {
			if v := secrets[SecretProviderKey]; v != "" {
				return v
			}
		}
	}
	return os.Getenv(SecretProviderKey)
}

// SaveProviderKey stores the provider key in the encrypted secrets file,
// preserving any other secrets already present.
func SaveProviderKey(path, passphrase, apiKey string) error {
	secrets := map[string]string{}
	if SecretsFileExists(path) {
		existing, err := DecryptSecretsFile(path, passphrase)
		if err != nil {
			return err
		}
		secrets = existing
	}
	secrets[SecretProviderKey] = apiKey
	return EncryptSecretsFile(path, passphrase, secrets)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
