package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tokenx "github.com/bionicotaku/lingo-utils-tokenx"
	"github.com/bionicotaku/lingo-utils-tokenx/access"
)

func newVerifyCmd() *cobra.Command {
	var (
		keyFile       string
		jwksURL       string
		token         string
		claims        []string
		allowNoExpiry bool
		skew          time.Duration
		timeout       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "verify [token]",
		Short: "Verify an access token and print its contents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				token = args[0]
			}
			token = strings.TrimSpace(flagOrEnv(token, "TOKENX_TOKEN"))
			keyFile = flagOrEnv(keyFile, "TOKENX_PUBLIC_KEY_FILE")
			jwksURL = flagOrEnv(jwksURL, "TOKENX_JWKS_URL")
			if token == "" {
				return errors.New("token is required (argument, --token or TOKENX_TOKEN)")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			key, err := resolveVerificationKey(ctx, keyFile, jwksURL, timeout)
			if err != nil {
				return err
			}

			checks, err := parseClaims(claims)
			if err != nil {
				return err
			}
			opts := []tokenx.Option{
				tokenx.WithVerifications(checks),
				tokenx.WithClockSkew(skew),
			}
			if allowNoExpiry {
				opts = append(opts, tokenx.AllowMissingExpiry())
			}

			tok, err := access.Decode(token, key, opts...)
			if err != nil {
				var te *tokenx.Error
				if errors.As(err, &te) {
					logger.Warn("token rejected", zap.String("code", string(te.Code)), zap.String("field", te.Field))
				}
				return err
			}
			logger.Debug("token verified", zap.String("user_id", tok.UserID))

			out := map[string]any{
				"client_id": tok.ClientID,
				"role":      tok.Role,
				"user_id":   tok.UserID,
				"claims":    tok.Claims(),
			}
			if tok.SessionID != "" {
				out["session_id"] = tok.SessionID
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&keyFile, "public-key", "", "PEM public key file (env TOKENX_PUBLIC_KEY_FILE)")
	f.StringVar(&jwksURL, "jwks-url", "", "JWKS URL used instead of --public-key (env TOKENX_JWKS_URL)")
	f.StringVar(&token, "token", "", "Token to verify (env TOKENX_TOKEN)")
	f.StringArrayVar(&claims, "claim", nil, "Required claim value as key=value, repeatable")
	f.BoolVar(&allowNoExpiry, "allow-missing-exp", false, "Accept tokens without exp")
	f.DurationVar(&skew, "skew", 0, "Accepted clock skew")
	f.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP timeout for JWKS fetch")
	return cmd
}

func resolveVerificationKey(ctx context.Context, keyFile, jwksURL string, timeout time.Duration) (any, error) {
	switch {
	case jwksURL != "":
		ks, err := tokenx.NewKeySet(ctx, tokenx.KeySetConfig{URL: jwksURL, HTTPTimeout: timeout})
		if err != nil {
			return nil, err
		}
		return ks.Get(ctx)
	case keyFile != "":
		pem, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		return tokenx.ParseKey(pem)
	default:
		return nil, errors.New("--public-key or --jwks-url is required")
	}
}
