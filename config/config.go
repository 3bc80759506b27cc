// Package config loads the finality core's TOML configuration file, following
// the same load-or-create pattern the rest of the node's ambient stack uses.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"wakichain/crypto"
)

// Config captures the options named in the external interfaces contract:
// genesis-block authoring, the PBFT confirmation/finality windows, the
// bounded lookback used to validate incoming messages, and the known-message
// cap of a PBFT round's dedup set.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	ValidatorKey  string `toml:"ValidatorKey"`

	// ValidatorKeystore, when set, moves the validator private key out of
	// this file and into an encrypted Ethereum v3 keystore file at this
	// path (see crypto.SaveToKeystore/LoadFromKeystore), decrypted with
	// ValidatorKeystorePassphrase. ValidatorKey is left blank on disk in
	// that mode.
	ValidatorKeystore           string `toml:"ValidatorKeystore"`
	ValidatorKeystorePassphrase string `toml:"ValidatorKeystorePassphrase"`

	// GenBlock enables local block authoring and confirm/finality
	// broadcasting (-genblock).
	GenBlock bool `toml:"GenBlock"`
	// PBFTWindowLocal bounds how far behind the tip the local finality
	// pointer may be recomputed from (-pbft-window-local, default 10).
	PBFTWindowLocal uint64 `toml:"PBFTWindowLocal"`
	// PBFTWindowGlobal bounds how far behind the tip the global finality
	// pointer may be recomputed from (-pbft-window-global, default 50).
	PBFTWindowGlobal uint64 `toml:"PBFTWindowGlobal"`
	// PBFTLatestBlockCount extends the accepted height range for incoming
	// PBFT messages beyond the current tip (-pbft-latest-block-count).
	PBFTLatestBlockCount uint64 `toml:"PBFTLatestBlockCount"`
	// PBFTMaxKnown caps the known-message dedup set of each PBFT round's
	// message manager (PBFT_MAX_KNOWN). finality.NewManager does not read it;
	// it sizes both rounds' sets at 10000.
	PBFTMaxKnown uint64 `toml:"PBFTMaxKnown"`

	// LogFile, when set, rotates structured logs to this path instead of
	// stdout only (see observability/logging).
	LogFile       string `toml:"LogFile"`
	LogMaxSizeMB  int    `toml:"LogMaxSizeMB"`
	LogMaxBackups int    `toml:"LogMaxBackups"`
	LogMaxAgeDays int    `toml:"LogMaxAgeDays"`

	// OtelEndpoint, when TelemetryTraces or TelemetryMetrics is set, is the
	// OTLP/HTTP collector endpoint this node exports to (see
	// observability/otel).
	OtelEndpoint     string `toml:"OtelEndpoint"`
	OtelInsecure     bool   `toml:"OtelInsecure"`
	TelemetryTraces  bool   `toml:"TelemetryTraces"`
	TelemetryMetrics bool   `toml:"TelemetryMetrics"`
}

const (
	defaultPBFTWindowLocal     = 10
	defaultPBFTWindowGlobal    = 50
	defaultPBFTLatestBlockHigh = 200
	defaultPBFTMaxKnown        = 10000
	defaultLogMaxSizeMB        = 100
	defaultLogMaxBackups       = 5
	defaultLogMaxAgeDays       = 28
)

// Load loads the configuration from path, creating a default file the first
// time it is invoked against a fresh data directory.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if cfg.ValidatorKey == "" && cfg.ValidatorKeystore == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, err
		}
		cfg.ValidatorKey = hex.EncodeToString(key.Bytes())

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return nil, err
		}
	} else if cfg.ValidatorKey == "" && cfg.ValidatorKeystore != "" {
		if _, err := os.Stat(cfg.ValidatorKeystore); os.IsNotExist(err) {
			key, err := crypto.GeneratePrivateKey()
			if err != nil {
				return nil, err
			}
			if err := crypto.SaveToKeystore(cfg.ValidatorKeystore, key, cfg.ValidatorKeystorePassphrase); err != nil {
				return nil, fmt.Errorf("config: create validator keystore: %w", err)
			}
		}
	}
	applyDefaults(cfg)
	return cfg, nil
}

// ValidatorPrivateKey resolves this node's validator signing key, decrypting
// it from ValidatorKeystore when configured and otherwise decoding the
// inline ValidatorKey hex string.
func (c *Config) ValidatorPrivateKey() (*crypto.PrivateKey, error) {
	if c.ValidatorKeystore != "" {
		key, err := crypto.LoadFromKeystore(c.ValidatorKeystore, c.ValidatorKeystorePassphrase)
		if err != nil {
			return nil, fmt.Errorf("config: load validator keystore: %w", err)
		}
		return key, nil
	}
	raw, err := hex.DecodeString(c.ValidatorKey)
	if err != nil {
		return nil, fmt.Errorf("config: decode ValidatorKey: %w", err)
	}
	return crypto.PrivateKeyFromBytes(raw)
}

func applyDefaults(cfg *Config) {
	if cfg.PBFTWindowLocal == 0 {
		cfg.PBFTWindowLocal = defaultPBFTWindowLocal
	}
	if cfg.PBFTWindowGlobal == 0 {
		cfg.PBFTWindowGlobal = defaultPBFTWindowGlobal
	}
	if cfg.PBFTLatestBlockCount == 0 {
		cfg.PBFTLatestBlockCount = defaultPBFTLatestBlockHigh
	}
	if cfg.PBFTMaxKnown == 0 {
		cfg.PBFTMaxKnown = defaultPBFTMaxKnown
	}
	if cfg.LogFile != "" {
		if cfg.LogMaxSizeMB == 0 {
			cfg.LogMaxSizeMB = defaultLogMaxSizeMB
		}
		if cfg.LogMaxBackups == 0 {
			cfg.LogMaxBackups = defaultLogMaxBackups
		}
		if cfg.LogMaxAgeDays == 0 {
			cfg.LogMaxAgeDays = defaultLogMaxAgeDays
		}
	}
}

func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress:        ":6001",
		DataDir:              "./wakichain-data",
		ValidatorKey:         hex.EncodeToString(key.Bytes()),
		GenBlock:             false,
		PBFTWindowLocal:      defaultPBFTWindowLocal,
		PBFTWindowGlobal:     defaultPBFTWindowGlobal,
		PBFTLatestBlockCount: defaultPBFTLatestBlockHigh,
		PBFTMaxKnown:         defaultPBFTMaxKnown,
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the window and cap options form a usable
// configuration: the global window must not be shorter than the local one,
// since the global pointer can never lead the local pointer (§4.F).
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if cfg.PBFTWindowGlobal < cfg.PBFTWindowLocal {
		return fmt.Errorf("config: PBFTWindowGlobal (%d) must be >= PBFTWindowLocal (%d)", cfg.PBFTWindowGlobal, cfg.PBFTWindowLocal)
	}
	if cfg.PBFTMaxKnown == 0 {
		return fmt.Errorf("config: PBFTMaxKnown must be positive")
	}
	return nil
}
