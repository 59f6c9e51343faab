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
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/irfanm0/erc4337/config"
	"github.com/irfanm0/erc4337/crypto"
	"github.com/irfanm0/erc4337/daemon/acctd"
	"github.com/irfanm0/erc4337/daemon/acctd/client"
	"github.com/irfanm0/erc4337/data/basics"
)

var (
	errorColor = color.New(color.FgRed)
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
)

func reportInfof(format string, args ...interface{}) {
	infoColor.Printf(format+"\n", args...)
}

func reportWarnf(format string, args ...interface{}) {
	warnColor.Printf("Warning: "+format+"\n", args...)
}

func reportErrorf(format string, args ...interface{}) {
	errorColor.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// resolveDataDir returns the absolute data directory from -d or $ACCTD_DATA
func resolveDataDir() string {
	dir := dataDir
	if dir == "" {
		dir = os.Getenv("ACCTD_DATA")
	}
	if dir == "" {
		reportErrorf(errorNoDataDirectory)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		reportErrorf(errorDirectoryInvalid, dir)
	}
	return abs
}

// nodeClient connects to the node running in the data directory, using the
// address and token it wrote there.
func nodeClient() client.RestClient {
	dir := resolveDataDir()
	netData, err := os.ReadFile(filepath.Join(dir, acctd.NetFilename))
	if err != nil {
		reportErrorf(errorNodeNotRunning, dir, err)
	}
	u, err := url.Parse("http://" + strings.TrimSpace(string(netData)))
	if err != nil {
		reportErrorf(errorNodeNotRunning, dir, err)
	}
	token, err := os.ReadFile(filepath.Join(dir, config.TokenFilename))
	if err != nil && !os.IsNotExist(err) {
		reportErrorf(errorRequestFail, err)
	}
	return client.MakeRestClient(*u, strings.TrimSpace(string(token)))
}

func parseAddr(s string) basics.Address {
	addr, err := basics.UnmarshalChecksumAddress(s)
	if err != nil {
		reportErrorf(errorParseAddr, err)
	}
	return addr
}

func parseOptionalAddr(s string) basics.Address {
	if s == "" {
		return basics.Address{}
	}
	return parseAddr(s)
}

func parseAmount(s string) basics.Wei {
	w, err := basics.ParseWei(s)
	if err != nil {
		reportErrorf(errorParseAmount, err)
	}
	return w
}

// loadKey reads a hex secp256k1 key from a file, or from $ACCTD_KEY when path is empty
func loadKey(path string) *crypto.SignatureSecrets {
	hexKey := os.Getenv("ACCTD_KEY")
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			reportErrorf(errorLoadKey, err)
		}
		hexKey = string(data)
	}
	secrets, err := crypto.SecretsFromHex(strings.TrimSpace(hexKey))
	if err != nil {
		reportErrorf(errorLoadKey, err)
	}
	return secrets
}

func printField(label string, v interface{}) {
	fmt.Printf("%-14s %v\n", label+":", v)
}
