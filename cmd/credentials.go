// Copyright (c) 2025 GridRows
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"os"

	"gridrows/internal/config"
	gerrors "gridrows/internal/errors"
	"gridrows/internal/keychain"
)

// resolveServerCredentials returns the server URL and API token.
// Environment variables win over the config file and keychain so scripted
// runs never touch secure storage.
func resolveServerCredentials() (url, token string, err error) {
	url = os.Getenv("GRIDROWS_SERVER")
	token = os.Getenv("GRIDROWS_TOKEN")

	if url == "" {
		cfg, cfgErr := config.Load()
		if cfgErr != nil {
			return "", "", gerrors.Wrap(gerrors.ConfigInvalid, "loading configuration", cfgErr)
		}
		url = cfg.ServerURL
	}
	if url == "" {
		return "", "", gerrors.New(gerrors.CredentialsMissing, "no server configured; run 'gridrows connect' or set GRIDROWS_SERVER")
	}

	if token == "" {
		// Keychain may be unavailable (Linux, CI); an open server needs no token
		if km, kmErr := keychain.GetManager(); kmErr == nil {
			token, _ = km.LoadAPIToken()
		}
	}
	return url, token, nil
}

// resolveDSN returns the database connection string for the serve command.
// Precedence: GRIDROWS_DSN env var, config file, OS keychain.
func resolveDSN() (string, error) {
	if v := os.Getenv("GRIDROWS_DSN"); v != "" {
		return v, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return "", gerrors.Wrap(gerrors.ConfigInvalid, "loading configuration", err)
	}
	if cfg.DB.Provided && cfg.DB.DSN != "" {
		return cfg.DB.DSN, nil
	}

	if km, err := keychain.GetManager(); err == nil {
		if v, _ := km.LoadDBDSN(); v != "" {
			return v, nil
		}
	}
	return "", gerrors.New(gerrors.CredentialsMissing, "no database configured; run 'gridrows connect --db' or set GRIDROWS_DSN")
}
