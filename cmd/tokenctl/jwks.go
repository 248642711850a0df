package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/spf13/cobra"

	tokenx "github.com/bionicotaku/lingo-utils-tokenx"
)

func newJWKSCmd() *cobra.Command {
	var (
		keyFile string
		keyID   string
		alg     string
	)
	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "Print the JWKS publishing a key's public half",
		RunE: func(cmd *cobra.Command, _ []string) error {
			keyFile = flagOrEnv(keyFile, "TOKENX_PRIVATE_KEY_FILE")
			keyID = flagOrEnv(keyID, "TOKENX_KEY_ID")
			if keyFile == "" || keyID == "" {
				return errors.New("--key and --kid are required")
			}
			pem, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("read key: %w", err)
			}
			key, err := tokenx.ParseKey(pem)
			if err != nil {
				return fmt.Errorf("parse key: %w", err)
			}
			set, err := tokenx.PublicSet(jwa.SignatureAlgorithm(alg), map[string]any{keyID: key})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(set)
		},
	}
	f := cmd.Flags()
	f.StringVar(&keyFile, "key", "", "PEM key file (env TOKENX_PRIVATE_KEY_FILE)")
	f.StringVar(&keyID, "kid", "", "Key id (env TOKENX_KEY_ID)")
	f.StringVar(&alg, "alg", jwa.RS256.String(), "Signature algorithm")
	return cmd
}
