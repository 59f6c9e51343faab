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
	"os"

	"github.com/spf13/cobra"

	"github.com/irfanm0/erc4337/crypto"
)

var keygenOutFile string

func init() {
	keygenCmd.Flags().StringVarP(&keygenOutFile, "outfile", "o", "", "Write the private key to this file instead of printing it")
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a secp256k1 key for local testing",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		secrets, err := crypto.GenerateSignatureSecrets()
		if err != nil {
			reportErrorf(errorRequestFail, err)
		}
		if keygenOutFile != "" {
			if err = os.WriteFile(keygenOutFile, []byte(secrets.HexKey()+"\n"), 0600); err != nil {
				reportErrorf(errorRequestFail, err)
			}
		} else {
			fmt.Printf("Private key: %s\n", secrets.HexKey())
		}
		fmt.Printf("Address: %s\n", secrets.Address)
	},
}
