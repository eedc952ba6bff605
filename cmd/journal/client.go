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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/blinklabs-io/journal/api"
	"github.com/blinklabs-io/journal/internal/config"
	"github.com/blinklabs-io/journal/keystore"
	"github.com/blinklabs-io/journal/ledger"
	"github.com/blinklabs-io/journal/program"
	"github.com/spf13/cobra"
)

var errNoConfig = errors.New("no config found in context")

func cmdConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errNoConfig
	}
	return cfg, nil
}

func newAPIClient(cfg *config.Config) (*api.Client, error) {
	return api.NewClient(
		cfg.ServerURL,
		api.WithErrorDecoder(program.ErrorFromCode),
	)
}

func newKeystore(cfg *config.Config) *keystore.Keystore {
	return keystore.New(cfg.KeystoreDir, clientLogger())
}

// newProgramClient loads the configured key and returns a journal client
// talking to the configured server
func newProgramClient(cfg *config.Config) (*program.Client, *api.Client, error) {
	apiClient, err := newAPIClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	key, err := newKeystore(cfg).Load(cfg.KeyName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load key %q: %w", cfg.KeyName, err)
	}
	client, err := program.NewClient(apiClient, key)
	if err != nil {
		return nil, nil, err
	}
	return client, apiClient, nil
}

// resolveAddress parses an explicit address or falls back to the configured key
func resolveAddress(cfg *config.Config, addr string) (ledger.Address, error) {
	if addr != "" {
		return ledger.ParseAddress(addr)
	}
	return newKeystore(cfg).Address(cfg.KeyName)
}

func parseSequence(s string) (uint32, error) {
	seq, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid sequence number %q: %w", s, err)
	}
	return uint32(seq), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type receiptOutput struct {
	Sequence *uint32         `json:"sequence,omitempty"`
	Receipt  *ledger.Receipt `json:"receipt"`
}

func keygenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen [name]",
		Short: "Generate a signing key in the keystore",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdConfig(cmd)
			if err != nil {
				return err
			}
			name := cfg.KeyName
			if len(args) == 1 {
				name = args[0]
			}
			ks := newKeystore(cfg)
			if _, err := ks.Generate(name); err != nil {
				return err
			}
			addr, err := ks.Address(name)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"name":    name,
				"address": addr.String(),
			})
		},
	}
	return cmd
}

func airdropCommand() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "airdrop [lamports]",
		Short: "Request lamports from the server faucet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdConfig(cmd)
			if err != nil {
				return err
			}
			lamports := cfg.AirdropLamports
			if len(args) == 1 {
				lamports, err = strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid lamports %q: %w", args[0], err)
				}
			}
			addr, err := resolveAddress(cfg, to)
			if err != nil {
				return err
			}
			apiClient, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			account, err := apiClient.Airdrop(cmd.Context(), addr, lamports)
			if err != nil {
				return err
			}
			return writeJSON(
				cmd.OutOrStdout(),
				api.NewAccountResponse(addr, account),
			)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "address to fund (default: the configured key)")
	return cmd
}

func balanceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the lamports held by an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdConfig(cmd)
			if err != nil {
				return err
			}
			var addrArg string
			if len(args) == 1 {
				addrArg = args[0]
			}
			addr, err := resolveAddress(cfg, addrArg)
			if err != nil {
				return err
			}
			apiClient, err := newAPIClient(cfg)
			if err != nil {
				return err
			}
			var lamports uint64
			account, err := apiClient.GetAccount(cmd.Context(), addr)
			switch {
			case err == nil:
				lamports = account.Lamports
			case !errors.Is(err, ledger.ErrAccountNotFound):
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"address":  addr.String(),
				"lamports": lamports,
			})
		},
	}
	return cmd
}

// runWithClient is shared by the commands that sign journal transactions
func runWithClient(
	fn func(ctx context.Context, cmd *cobra.Command, client *program.Client, args []string) error,
) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdConfig(cmd)
		if err != nil {
			return err
		}
		client, _, err := newProgramClient(cfg)
		if err != nil {
			return err
		}
		return fn(cmd.Context(), cmd, client, args)
	}
}
