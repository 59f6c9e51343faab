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

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/daemon/acctd"
	"github.com/irfanm0/erc4337/util/tokens"
)

const lockFilename = "acctd.lock"

var (
	initBackend  string
	initEndpoint string
	initSponsor  string
	initAdmin    string
	initMetrics  bool
)

func init() {
	initCmd.Flags().StringVar(&initBackend, "backend", config.GetDefaultLocal().StoreBackend, "Store backend: sqlite, pebble or memory")
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", config.GetDefaultLocal().EndpointAddress, "Address the REST API listens on")
	initCmd.Flags().StringVar(&initSponsor, "sponsor", "", "Address of the sponsor the node runs a gate for")
	initCmd.Flags().StringVar(&initAdmin, "sponsor-admin", "", "Address allowed to administer the sponsor's gate")
	initCmd.Flags().BoolVar(&initMetrics, "metrics", false, "Expose prometheus metrics on /metrics")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a data directory with a config file and an API token",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir := resolveDataDir()
		if err := os.MkdirAll(dir, 0700); err != nil {
			reportErrorf(errorRequestFail, err)
		}
		if _, err := os.Stat(filepath.Join(dir, config.ConfigFilename)); err == nil {
			reportErrorf(errorAlreadyInit, dir, config.ConfigFilename)
		}

		cfg := config.GetDefaultLocal()
		cfg.StoreBackend = initBackend
		cfg.EndpointAddress = initEndpoint
		cfg.SponsorAddress = initSponsor
		cfg.SponsorAdmin = initAdmin
		cfg.EnableMetrics = initMetrics
		if err := cfg.Validate(); err != nil {
			reportErrorf(errorRequestFail, err)
		}
		if cfg.SponsorAddress != "" && cfg.SponsorAdmin == "" {
			reportWarnf("sponsor %s has no admin; its gate cannot be administered", cfg.SponsorAddress)
		}
		if err := cfg.SaveToDisk(dir); err != nil {
			reportErrorf(errorRequestFail, err)
		}
		if _, err := tokens.GetAndValidateAPIToken(dir, config.TokenFilename); err != nil {
			reportErrorf(errorRequestFail, err)
		}
		reportInfof(infoInitialized, dir)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the node and serve its REST API until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir := resolveDataDir()
		if _, err := os.Stat(dir); err != nil {
			reportErrorf(errorDirectoryInvalid, dir)
		}

		// before doing anything further, attempt to acquire the lock
		// to ensure this is the only node running against this data directory
		lockPath := filepath.Join(dir, lockFilename)
		fileLock := flock.New(lockPath)
		locked, err := fileLock.TryLock()
		if err != nil {
			reportErrorf(errorLockUnexpect, lockFilename, err)
		}
		if !locked {
			reportErrorf(errorLockFailed, lockFilename)
		}
		defer fileLock.Unlock()

		cfg, err := config.LoadConfigFromDisk(dir)
		if err != nil && !os.IsNotExist(err) {
			reportErrorf("Cannot load config: %v", err)
		}

		s := acctd.Server{RootPath: dir}
		if err = s.Initialize(cfg); err != nil {
			reportErrorf(errorRequestFail, err)
		}
		if err = s.Start(context.Background()); err != nil {
			reportErrorf(errorRequestFail, err)
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the running node",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		st, err := nodeClient().Status(context.Background())
		if err != nil {
			reportErrorf(errorRequestFail, err)
		}
		printField("Store", st.StoreBackend)
		printField("Sponsors", st.Sponsors)
		printField("Operations", st.OperationsApplied)
		printField("Last operation", st.LastOperationTime)
		printField("Node time", st.Now)
	},
}
