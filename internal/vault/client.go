package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"

	"okx-short-bot/config"
)

// Credentials are the OKX API credentials
type Credentials struct {
	APIKey     string
	APISecret  string
	Passphrase string
}

// Client sources exchange credentials from HashiCorp Vault (KV v2). When
// Vault is disabled the environment-provided credentials from config are
// used as-is.
type Client struct {
	client *api.Client
	cfg    config.VaultConfig
}

// NewClient creates a Vault client, or a pass-through when disabled
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{cfg: cfg}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, cfg: cfg}, nil
}

// ExchangeCredentials returns the OKX credentials, preferring Vault and
// falling back to the values already in config
func (c *Client) ExchangeCredentials(ctx context.Context, fallback config.ExchangeConfig) (Credentials, error) {
	creds := Credentials{
		APIKey:     fallback.APIKey,
		APISecret:  fallback.APISecret,
		Passphrase: fallback.Passphrase,
	}
	if !c.cfg.Enabled {
		return creds, nil
	}

	secret, err := c.client.KVv2(c.cfg.MountPath).Get(ctx, c.cfg.SecretPath)
	if err != nil {
		return creds, fmt.Errorf("failed to read secret %s: %w", c.cfg.SecretPath, err)
	}

	if v, ok := secret.Data["api_key"].(string); ok && v != "" {
		creds.APIKey = v
	}
	if v, ok := secret.Data["api_secret"].(string); ok && v != "" {
		creds.APISecret = v
	}
	if v, ok := secret.Data["passphrase"].(string); ok && v != "" {
		creds.Passphrase = v
	}
	return creds, nil
}
