package db

import (
	"context"
	"fmt"
	"time"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
	"github.com/jackc/pgx/v5"
)

// tokenExpiryWarning is the remaining lifetime below which a fresh token is reported.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is acquired from a TokenProvider and used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *csvimport.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	opts          options
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *csvimport.ConnectionConfig, tokenProvider TokenProvider, providerName string, opts ...Option) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		opts:          buildOptions(opts),
	}
}

// Connect acquires one token and makes one connection attempt with it.
func (c *TokenBasedConnector) Connect(ctx context.Context) (csvimport.DBConnection, error) {
	if c.opts.logger != nil {
		c.opts.logger.Verbose("acquiring authentication token", "provider", c.tokenProvider.String())
	}

	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to acquire %s token: %w", csvimport.ErrConnectionFailed, c.providerName, err)
	}

	if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning && c.opts.logger != nil {
		c.opts.logger.Warn("authentication token expires soon",
			"provider", c.providerName, "expires_in", remaining.Round(time.Second).String())
	}

	return connectPostgres(ctx, c.config, c.opts, func(cc *pgx.ConnConfig) {
		cc.Password = token
	})
}
