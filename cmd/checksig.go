package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/frm-sh/frm/pkg/fetch"
	"github.com/frm-sh/frm/pkg/signature"
)

var (
	checkSigSignature string
	checkSigKeyring   string
)

// CheckSignatureCommand verifies a downloaded archive against its
// detached signature and the release signing key.
var CheckSignatureCommand = &cobra.Command{
	Use:   "check-signature <file>",
	Short: "Verify a file against its detached release signature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		sigPath := checkSigSignature
		if sigPath == "" {
			sigPath = path + ".asc"
		}
		if _, err := os.Stat(sigPath); err != nil {
			return errors.Wrapf(err, "cannot read signature %s", sigPath)
		}

		keyringPath := checkSigKeyring
		if keyringPath == "" {
			a, err := newApp()
			if err != nil {
				return err
			}
			keyringPath = filepath.Join(a.layout.DownloadsDir(), "rabbitmq-release-signing-key.asc")
			if _, err := os.Stat(keyringPath); err != nil {
				if err := fetch.Download(cmd.Context(), signature.SigningKeyURL, keyringPath, nil); err != nil {
					return errors.Wrap(err, "failed to fetch signing key")
				}
			}
		}

		if err := signature.VerifyFile(path, sigPath, keyringPath); err != nil {
			return err
		}
		fmt.Printf("good signature for %s\n", path)
		return nil
	},
}

func init() {
	CheckSignatureCommand.Flags().StringVar(&checkSigSignature, "signature", "", "Detached signature path (default: <file>.asc)")
	CheckSignatureCommand.Flags().StringVar(&checkSigKeyring, "keyring", "", "Armored keyring path (default: cached release signing key)")
}
