// Copyright (C) 2019-2025 Algorand, Inc.
// This file is part of erc4337
//
// erc4337 is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// erc4337 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with erc4337.  If not, see <https://www.gnu.org/licenses/>.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/util/codecs"
)

// Local holds the per-node configuration settings for acctd.
// A config.json in the data directory overrides any of these defaults.
type Local struct {
	// Version tracks the current version of the defaults so we can migrate old -> new
	Version uint32

	// EndpointAddress is the address the REST API listens on
	EndpointAddress string

	// EnableAPIAuth requires an X-API-Token header (or bearer token) matching the token file
	EnableAPIAuth bool

	// BaseLoggerDebugLevel follows logging.Level: 0 panic ... 5 debug
	BaseLoggerDebugLevel uint32

	// LogSizeLimit caps the live log file; 0 logs to stdout
	LogSizeLimit uint64

	// LogArchiveName is the file the live log is moved to when full
	LogArchiveName string

	// StoreBackend is one of "sqlite", "pebble" or "memory"
	StoreBackend string

	// SponsorAddress is the account whose funded balance underwrites sponsored operations
	SponsorAddress string

	// SponsorAdmin is the single identity allowed to administer the sponsorship gate
	SponsorAdmin string

	// MaxSponsoredGas is the gas ceiling for a sponsored operation
	MaxSponsoredGas uint64

	// MaxFeeRate is the fee-rate ceiling (wei per gas, decimal) for a sponsored operation
	MaxFeeRate string

	// EnableMetrics exposes prometheus metrics on /metrics
	EnableMetrics bool

	RestReadTimeoutSeconds  int
	RestWriteTimeoutSeconds int
}

var defaultLocal = Local{
	Version:                 1,
	EndpointAddress:         "127.0.0.1:8480",
	EnableAPIAuth:           true,
	BaseLoggerDebugLevel:    4,
	LogSizeLimit:            1073741824,
	LogArchiveName:          "acctd.archive.log",
	StoreBackend:            "sqlite",
	MaxSponsoredGas:         1000000,
	MaxFeeRate:              "100000000000",
	EnableMetrics:           true,
	RestReadTimeoutSeconds:  15,
	RestWriteTimeoutSeconds: 120,
}

// ConfigFilename is the name of the config.json file where we store per-node configuration settings
const ConfigFilename = "config.json"

// LedgerFilenamePrefix is the path prefix of the store holding accounts, session keys,
// balances and usage. Backends add their own suffix.
const LedgerFilenamePrefix = "ledger"

// LogFilename is the live log file inside the data directory
const LogFilename = "node.log"

// TokenFilename holds the REST API token
const TokenFilename = "acctd.token"

// PIDFilename holds the daemon process id while it is running
const PIDFilename = "acctd.pid"

var errUnknownBackend = errors.New("unknown store backend")

// LoadConfigFromDisk returns a Local config structure based on merging the defaults
// with settings loaded from the config file from the custom dir.  If the custom file
// cannot be loaded, the default config is returned (with the error from loading the
// custom file).
func LoadConfigFromDisk(custom string) (c Local, err error) {
	return loadConfigFromFile(filepath.Join(custom, ConfigFilename))
}

func loadConfigFromFile(configFile string) (c Local, err error) {
	c = defaultLocal
	f, err := os.Open(configFile)
	if err != nil {
		return
	}
	defer f.Close()

	err = loadConfig(f, &c)
	if err != nil {
		return defaultLocal, err
	}
	err = c.Validate()
	return
}

func loadConfig(reader io.Reader, config *Local) error {
	dec := json.NewDecoder(reader)
	return dec.Decode(config)
}

// GetDefaultLocal returns a copy of the current defaultLocal config
func GetDefaultLocal() Local {
	return defaultLocal
}

// Validate checks the fields that are parsed further before use.
func (cfg Local) Validate() error {
	switch cfg.StoreBackend {
	case "sqlite", "pebble", "memory":
	default:
		return fmt.Errorf("%w: %q", errUnknownBackend, cfg.StoreBackend)
	}
	if _, err := basics.ParseWei(cfg.MaxFeeRate); err != nil {
		return fmt.Errorf("MaxFeeRate: %w", err)
	}
	if cfg.SponsorAddress != "" {
		if _, err := basics.UnmarshalChecksumAddress(cfg.SponsorAddress); err != nil {
			return fmt.Errorf("SponsorAddress: %w", err)
		}
	}
	if cfg.SponsorAdmin != "" {
		if _, err := basics.UnmarshalChecksumAddress(cfg.SponsorAdmin); err != nil {
			return fmt.Errorf("SponsorAdmin: %w", err)
		}
	}
	return nil
}

// SaveToDisk writes the non-default Local settings into a root/ConfigFilename file
func (cfg Local) SaveToDisk(root string) error {
	configpath := filepath.Join(root, ConfigFilename)
	filename := os.ExpandEnv(configpath)
	return cfg.SaveToFile(filename)
}

// SaveToFile saves the config to a specific filename, allowing overriding the default name
func (cfg Local) SaveToFile(filename string) error {
	var alwaysInclude []string
	alwaysInclude = append(alwaysInclude, "Version")
	return codecs.SaveNonDefaultValuesToFile(filename, cfg, defaultLocal, alwaysInclude, true)
}

// Params derives the engine parameters from the node configuration.
func (cfg Local) Params() Params {
	p := DefaultParams()
	p.MaxSponsoredGas = basics.Gas(cfg.MaxSponsoredGas)
	if rate, err := basics.ParseWei(cfg.MaxFeeRate); err == nil {
		p.MaxFeeRate = rate
	}
	return p
}
