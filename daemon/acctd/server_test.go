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

package acctd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestServerLifecycle(t *testing.T) {
	partitiontest.PartitionTest(t)
	dir := t.TempDir()

	cfg := config.GetDefaultLocal()
	cfg.StoreBackend = "memory"
	cfg.EndpointAddress = "127.0.0.1:0"
	cfg.LogSizeLimit = 1 << 20
	cfg.EnableMetrics = true

	s := Server{RootPath: dir}
	require.NoError(t, s.Initialize(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	netFile := filepath.Join(dir, NetFilename)
	var addr string
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(netFile)
		addr = strings.TrimSpace(string(data))
		return err == nil && addr != ""
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the token is required and was written on start
	resp, err = http.Get(fmt.Sprintf("http://%s/v1/status", addr))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.FileExists(t, filepath.Join(dir, config.TokenFilename))
	require.FileExists(t, filepath.Join(dir, config.PIDFilename))

	cancel()
	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
	require.NoFileExists(t, filepath.Join(dir, config.PIDFilename))
	require.NoFileExists(t, netFile)
}
