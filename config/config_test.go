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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/irfanm0/erc4337/data/basics"
	"github.com/irfanm0/erc4337/test/partitiontest"
)

func TestSaveThenLoad(t *testing.T) {
	partitiontest.PartitionTest(t)
	a := require.New(t)

	dir := t.TempDir()
	c1 := GetDefaultLocal()
	c1.EndpointAddress = "127.0.0.1:9999"
	c1.SponsorAdmin = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	a.NoError(c1.SaveToDisk(dir))

	data, err := os.ReadFile(filepath.Join(dir, ConfigFilename))
	a.NoError(err)
	a.Contains(string(data), "Version")
	a.Contains(string(data), "EndpointAddress")
	a.NotContains(string(data), "MaxSponsoredGas")

	c2, err := LoadConfigFromDisk(dir)
	a.NoError(err)
	a.Equal(c1, c2)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	partitiontest.PartitionTest(t)

	c, err := LoadConfigFromDisk(t.TempDir())
	require.True(t, os.IsNotExist(err))
	require.Equal(t, GetDefaultLocal(), c)
}

func TestLoadRejectsBadValues(t *testing.T) {
	partitiontest.PartitionTest(t)

	for _, body := range []string{
		`{"StoreBackend": "postgres"}`,
		`{"MaxFeeRate": "lots"}`,
		`{"SponsorAddress": "0x12"}`,
	} {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(body), 0644))
		_, err := LoadConfigFromDisk(dir)
		require.Error(t, err, body)
	}
}

func TestLocalParams(t *testing.T) {
	partitiontest.PartitionTest(t)

	c := GetDefaultLocal()
	c.MaxSponsoredGas = 50000
	c.MaxFeeRate = "7"
	p := c.Params()
	require.Equal(t, basics.Gas(50000), p.MaxSponsoredGas)
	require.Equal(t, basics.NewWei(7), p.MaxFeeRate)
	require.Equal(t, DefaultParams().CallGas, p.CallGas)
}
