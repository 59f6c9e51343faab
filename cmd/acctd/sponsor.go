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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/irfanm0/erc4337/data/operation"
)

var (
	sponsorAddress   string
	sponsorAccount   string
	sponsorRecipient string
	sponsorAmount    string
	sponsorKeyFile   string
	sponsorValidFor  time.Duration
	usageLimit       uint64
)

func init() {
	sponsorCmd.PersistentFlags().StringVarP(&sponsorAddress, "sponsor", "s", "", "Sponsor address")
	sponsorCmd.MarkPersistentFlagRequired("sponsor")

	for _, action := range []operation.SponsorAction{
		operation.WhitelistAdd,
		operation.WhitelistRemove,
		operation.ShutdownSponsor,
		operation.ResumeSponsor,
		operation.WithdrawFunds,
	} {
		c := makeSponsorActionCmd(action)
		c.Flags().StringVarP(&sponsorKeyFile, "keyfile", "k", "", "File with the admin's hex key (default $ACCTD_KEY)")
		c.Flags().DurationVar(&sponsorValidFor, "valid-for", time.Minute, "How long the signed command stays executable")
		switch action {
		case operation.WhitelistAdd, operation.WhitelistRemove:
			c.Flags().StringVarP(&sponsorAccount, "account", "a", "", "Account to (un)whitelist")
			c.MarkFlagRequired("account")
		case operation.WithdrawFunds:
			c.Flags().StringVar(&sponsorRecipient, "to", "", "Recipient of the withdrawal")
			c.Flags().StringVar(&sponsorAmount, "amount", "", "Amount in wei")
			c.MarkFlagRequired("to")
			c.MarkFlagRequired("amount")
		}
		sponsorCmd.AddCommand(c)
	}

	usageCmd.Flags().StringVarP(&sponsorAccount, "account", "a", "", "Account whose usage to show")
	usageCmd.Flags().Uint64Var(&usageLimit, "limit", 0, "Show only the most recent entries")
	usageCmd.MarkFlagRequired("account")
	sponsorCmd.AddCommand(usageCmd)
}

var sponsorCmd = &cobra.Command{
	Use:   "sponsor",
	Short: "Administer a sponsorship gate and inspect its usage",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.HelpFunc()(cmd, args)
	},
}

func makeSponsorActionCmd(action operation.SponsorAction) *cobra.Command {
	return &cobra.Command{
		Use:   string(action),
		Short: fmt.Sprintf("Sign and send a %s command as the sponsor's admin", action),
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			sc := operation.SponsorCommand{
				Sponsor:    parseAddr(sponsorAddress),
				Action:     action,
				ValidUntil: uint64(time.Now().Add(sponsorValidFor).Unix()),
			}
			switch action {
			case operation.WhitelistAdd, operation.WhitelistRemove:
				sc.Account = parseAddr(sponsorAccount)
			case operation.WithdrawFunds:
				sc.Recipient = parseAddr(sponsorRecipient)
				sc.Amount = parseAmount(sponsorAmount)
			}
			if err := sc.WellFormed(); err != nil {
				reportErrorf(errorRequestFail, err)
			}
			scmd, err := sc.Sign(loadKey(sponsorKeyFile))
			if err != nil {
				reportErrorf(errorRequestFail, err)
			}
			if err = nodeClient().SponsorCommand(context.Background(), scmd); err != nil {
				reportErrorf(errorRequestFail, err)
			}
			reportInfof(infoSponsorCommand, sc.Sponsor, action)
		},
	}
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show the usage an account has consumed under a sponsor",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := nodeClient().SponsorUsage(context.Background(), parseAddr(sponsorAddress), parseAddr(sponsorAccount), usageLimit)
		if err != nil {
			reportErrorf(errorRequestFail, err)
		}
		for _, entry := range resp.Entries {
			fmt.Printf("%s  %s  cost=%d  total=%d\n", entry.ID, time.Unix(entry.Recorded, 0).UTC().Format(time.RFC3339), entry.Cost, entry.Total)
		}
		printField("Total", resp.Total)
	},
}
