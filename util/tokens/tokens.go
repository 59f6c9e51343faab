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

// Package tokens manages the REST API token kept in the data directory.
package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const apiTokenLength = 64

// GenerateAPIToken returns a random hex token of apiTokenLength characters
func GenerateAPIToken() (string, error) {
	b := make([]byte, apiTokenLength/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ValidateAPIToken checks the length and alphabet of a token
func ValidateAPIToken(token string) error {
	if len(token) != apiTokenLength {
		return fmt.Errorf("API token length %d, expected %d", len(token), apiTokenLength)
	}
	if _, err := hex.DecodeString(token); err != nil {
		return fmt.Errorf("API token is not hex: %w", err)
	}
	return nil
}

// GetAndValidateAPIToken reads the token from dataDir/filename, creating a new
// one if the file does not exist yet.
func GetAndValidateAPIToken(dataDir, filename string) (string, error) {
	path := filepath.Join(dataDir, filename)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		token, genErr := GenerateAPIToken()
		if genErr != nil {
			return "", genErr
		}
		if err = os.WriteFile(path, []byte(token), 0600); err != nil {
			return "", err
		}
		return token, nil
	}
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	return token, ValidateAPIToken(token)
}
