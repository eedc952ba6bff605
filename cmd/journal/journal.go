// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"

	"github.com/blinklabs-io/journal/program"
	"github.com/spf13/cobra"
)

func initCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the journal counter record",
		Args:  cobra.NoArgs,
		RunE: runWithClient(func(ctx context.Context, cmd *cobra.Command, client *program.Client, _ []string) error {
			receipt, err := client.Initialize(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), receiptOutput{Receipt: receipt})
		}),
	}
	return cmd
}

func createCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <title> <message>",
		Short: "Create a journal entry",
		Args:  cobra.ExactArgs(2),
		RunE: runWithClient(func(ctx context.Context, cmd *cobra.Command, client *program.Client, args []string) error {
			seq, receipt, err := client.Create(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(
				cmd.OutOrStdout(),
				receiptOutput{Sequence: &seq, Receipt: receipt},
			)
		}),
	}
	return cmd
}

func updateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <sequence> <title> <message>",
		Short: "Rewrite one of your journal entries",
		Args:  cobra.ExactArgs(3),
		RunE: runWithClient(func(ctx context.Context, cmd *cobra.Command, client *program.Client, args []string) error {
			seq, err := parseSequence(args[0])
			if err != nil {
				return err
			}
			receipt, err := client.Update(ctx, seq, args[1], args[2])
			if err != nil {
				return err
			}
			return writeJSON(
				cmd.OutOrStdout(),
				receiptOutput{Sequence: &seq, Receipt: receipt},
			)
		}),
	}
	return cmd
}

func deleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <sequence>",
		Short: "Delete one of your journal entries and reclaim its deposit",
		Args:  cobra.ExactArgs(1),
		RunE: runWithClient(func(ctx context.Context, cmd *cobra.Command, client *program.Client, args []string) error {
			seq, err := parseSequence(args[0])
			if err != nil {
				return err
			}
			receipt, err := client.Delete(ctx, seq)
			if err != nil {
				return err
			}
			return writeJSON(
				cmd.OutOrStdout(),
				receiptOutput{Sequence: &seq, Receipt: receipt},
			)
		}),
	}
	return cmd
}

func showCommand() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "show [sequence]",
		Short: "Show a journal entry, or the counter when no sequence is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdConfig(cmd)
			if err != nil {
				return err
			}
			apiClient, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				counter, err := program.FetchCounter(cmd.Context(), apiClient)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"address": program.CounterAddress().String(),
					"count":   counter.Count,
				})
			}
			seq, err := parseSequence(args[0])
			if err != nil {
				return err
			}
			ownerAddr, err := resolveAddress(cfg, owner)
			if err != nil {
				return err
			}
			entry, err := program.FetchEntry(cmd.Context(), apiClient, seq, ownerAddr)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), entry)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "entry owner address (default: the configured key)")
	return cmd
}

func entriesCommand() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List the live journal entries of an owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cmdConfig(cmd)
			if err != nil {
				return err
			}
			apiClient, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			ownerAddr, err := resolveAddress(cfg, owner)
			if err != nil {
				return err
			}
			entries, err := program.FetchEntries(cmd.Context(), apiClient, ownerAddr)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []*program.Entry{}
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "entry owner address (default: the configured key)")
	return cmd
}
