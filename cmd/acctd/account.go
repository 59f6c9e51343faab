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

	"github.com/spf13/cobra"

	"github.com/irfanm0/erc4337/daemon/acctd/api"
)

var (
	accountAddress     string
	accountMerchant    string
	accountPlatform    string
	accountLabel       string
	accountCoordinator string
	accountDelegate    string
	depositAmount      string
)

func init() {
	accountCmd.AddCommand(registerCmd)
	accountCmd.AddCommand(infoCmd)
	accountCmd.AddCommand(sessionKeyCmd)
	accountCmd.AddCommand(depositCmd)

	registerCmd.Flags().StringVarP(&accountAddress, "address", "a", "", "Address of the new account")
	registerCmd.Flags().StringVar(&accountMerchant, "merchant", "", "Owning authority")
	registerCmd.Flags().StringVar(&accountPlatform, "platform", "", "Secondary authority")
	registerCmd.Flags().StringVarP(&accountLabel, "label", "l", "", "Registry label, e.g. an email address")
	registerCmd.Flags().StringVar(&accountCoordinator, "coordinator", "", "Entry point the account accepts operations from")
	registerCmd.MarkFlagRequired("address")
	registerCmd.MarkFlagRequired("merchant")
	registerCmd.MarkFlagRequired("label")

	infoCmd.Flags().StringVarP(&accountAddress, "address", "a", "", "Account address")
	infoCmd.Flags().StringVarP(&accountLabel, "label", "l", "", "Account label, used when no address is given")

	sessionKeyCmd.Flags().StringVarP(&accountAddress, "address", "a", "", "Account address")
	sessionKeyCmd.Flags().StringVar(&accountDelegate, "delegate", "", "Delegate address")
	sessionKeyCmd.MarkFlagRequired("address")
	sessionKeyCmd.MarkFlagRequired("delegate")

	depositCmd.Flags().StringVarP(&accountAddress, "address", "a", "", "Address to credit")
	depositCmd.Flags().StringVar(&depositAmount, "amount", "", "Amount in wei, decimal or 0x hex")
	depositCmd.MarkFlagRequired("address")
	depositCmd.MarkFlagRequired("amount")
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Register and inspect programmable accounts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a programmable account",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := nodeClient().RegisterAccount(context.Background(), api.RegisterAccountRequest{
			Address:     parseAddr(accountAddress),
			Merchant:    parseAddr(accountMerchant),
			Platform:    parseOptionalAddr(accountPlatform),
			Label:       accountLabel,
			Coordinator: parseOptionalAddr(accountCoordinator),
		})
		if err != nil {
			reportErrorf(errorRequestFail, err)
		}
		reportInfof(infoRegistered, resp.Address, resp.Label)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show an account by address or label",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		c := nodeClient()
		var resp api.AccountResponse
		var err error
		if accountAddress != "" {
			resp, err = c.AccountInformation(context.Background(), parseAddr(accountAddress))
		} else {
			resp, err = c.AccountByLabel(context.Background(), accountLabel)
		}
		if err != nil {
			reportErrorf(errorRequestFail, err)
		}
		printField("Address", resp.Address)
		printField("Label", resp.Label)
		printField("Merchant", resp.Merchant)
		if resp.Platform != nil {
			printField("Platform", *resp.Platform)
		}
		if resp.Coordinator != nil {
			printField("Coordinator", *resp.Coordinator)
		}
		printField("Counter", resp.Counter)
		printField("Balance", resp.Balance)
	},
}

var sessionKeyCmd = &cobra.Command{
	Use:   "session-key",
	Short: "Show the session key a delegate holds on an account",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := nodeClient().SessionKey(context.Background(), parseAddr(accountAddress), parseAddr(accountDelegate))
		if err != nil {
			reportErrorf(errorRequestFail, err)
		}
		printField("Valid until", resp.ValidUntil)
		printField("Max value", resp.MaxValue)
		printField("Active", resp.Active)
		printField("Valid now", resp.Valid)
	},
}

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Credit native balance to an address",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := nodeClient().Deposit(context.Background(), parseAddr(accountAddress), parseAmount(depositAmount))
		if err != nil {
			reportErrorf(errorRequestFail, err)
		}
		reportInfof(infoDeposited, resp.Address, resp.Balance)
	},
}
