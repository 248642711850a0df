package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tokenx "github.com/bionicotaku/lingo-utils-tokenx"
	"github.com/bionicotaku/lingo-utils-tokenx/access"
)

func newIssueCmd() *cobra.Command {
	var (
		keyFile   string
		clientID  string
		role      string
		userID    string
		sessionID string
		issuer    string
		audience  string
		keyID     string
		ttl       time.Duration
		claims    []string
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token with a PEM private key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyFile = flagOrEnv(keyFile, "TOKENX_PRIVATE_KEY_FILE")
			issuer = flagOrEnv(issuer, "TOKENX_ISSUER")
			audience = flagOrEnv(audience, "TOKENX_AUDIENCE")
			keyID = flagOrEnv(keyID, "TOKENX_KEY_ID")
			if keyFile == "" {
				return errors.New("--key (or TOKENX_PRIVATE_KEY_FILE) is required")
			}
			pem, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			key, err := tokenx.ParseKey(pem)
			if err != nil {
				return fmt.Errorf("parse key: %w", err)
			}
			extra, err := parseClaims(claims)
			if err != nil {
				return err
			}

			iss, err := tokenx.NewIssuer(key, tokenx.IssuerConfig{
				Issuer:   issuer,
				Audience: audience,
				TTL:      ttl,
				KeyID:    keyID,
			})
			if err != nil {
				return err
			}

			tok := access.New(clientID, role, userID).WithSession(sessionID)
			for k, v := range extra {
				tok.Claims().Set(k, v)
			}
			encoded, err := iss.Issue(tok)
			if err != nil {
				return err
			}
			logger.Info("issued access token",
				zap.String("client_id", clientID),
				zap.String("user_id", userID),
				zap.Any("jti", tok.Claims()[tokenx.JwtIDKey]),
				zap.Duration("ttl", ttl),
			)
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&keyFile, "key", "", "PEM private key file (env TOKENX_PRIVATE_KEY_FILE)")
	f.StringVar(&clientID, "client-id", "", "Client id (cid)")
	f.StringVar(&role, "role", "", "Role")
	f.StringVar(&userID, "user-id", "", "User id (uid)")
	f.StringVar(&sessionID, "session-id", "", "Optional session id (sid)")
	f.StringVar(&issuer, "issuer", "", "Issuer claim (env TOKENX_ISSUER)")
	f.StringVar(&audience, "audience", "", "Audience claim (env TOKENX_AUDIENCE)")
	f.StringVar(&keyID, "kid", "", "Key id header (env TOKENX_KEY_ID)")
	f.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	f.StringArrayVar(&claims, "claim", nil, "Extra claim as key=value, repeatable")
	return cmd
}
