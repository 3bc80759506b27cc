package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(10), cfg.PBFTWindowLocal)
	require.Equal(t, uint64(50), cfg.PBFTWindowGlobal)
	require.NotEmpty(t, cfg.ValidatorKey)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ValidatorKey, reloaded.ValidatorKey)
}

func TestLoadCreatesEncryptedKeystoreWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	keystorePath := filepath.Join(dir, "validator.keystore")

	require.NoError(t, os.WriteFile(path, []byte(
		`ValidatorKeystore = "`+keystorePath+`"`+"\n"+
			`ValidatorKeystorePassphrase = "correct horse battery staple"`+"\n",
	), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Empty(t, cfg.ValidatorKey, "the raw key must never be written inline once a keystore path is configured")
	require.FileExists(t, keystorePath)

	key, err := cfg.ValidatorPrivateKey()
	require.NoError(t, err)
	require.NotNil(t, key)

	reloaded, err := Load(path)
	require.NoError(t, err)
	reloadedKey, err := reloaded.ValidatorPrivateKey()
	require.NoError(t, err)
	require.Equal(t, key.Bytes(), reloadedKey.Bytes(), "reloading must decrypt the same key, not regenerate one")
}

func TestValidatorPrivateKeyDecodesInlineHex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)

	key, err := cfg.ValidatorPrivateKey()
	require.NoError(t, err)
	require.NotNil(t, key)
}

func TestValidateRejectsInvertedWindows(t *testing.T) {
	cfg := &Config{PBFTWindowLocal: 50, PBFTWindowGlobal: 10, PBFTMaxKnown: 1}
	require.Error(t, Validate(cfg))
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := &Config{PBFTWindowLocal: 10, PBFTWindowGlobal: 50, PBFTMaxKnown: 10000}
	require.NoError(t, Validate(cfg))
}
