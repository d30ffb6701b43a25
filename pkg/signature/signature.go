// Package signature verifies detached armored GPG signatures on release
// artifacts.
package signature

import (
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/pkg/errors"
)

// SigningKeyURL is where the release signing key is published.
const SigningKeyURL = "https://github.com/rabbitmq/signing-keys/releases/download/3.0/rabbitmq-release-signing-key.asc"

// Error reports a failed signature verification.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("signature verification failed for %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Verify checks a detached armored signature over signed against the
// armored keyring. Any failure, including an unparseable keyring or
// signature, is a verification failure.
func Verify(signed, armoredSig, keyring io.Reader) error {
	entities, err := openpgp.ReadArmoredKeyRing(keyring)
	if err != nil {
		return errors.Wrap(err, "failed to read signing keyring")
	}
	if _, err := openpgp.CheckArmoredDetachedSignature(entities, signed, armoredSig, nil); err != nil {
		return &Error{Err: err}
	}
	return nil
}

// VerifyFile checks the detached armored signature at sigPath over the
// artifact at path, trusting the armored keyring at keyringPath.
func VerifyFile(path, sigPath, keyringPath string) error {
	artifact, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "failed to open artifact")
	}
	defer artifact.Close()

	sig, err := os.Open(sigPath)
	if err != nil {
		return errors.Wrap(err, "failed to open signature")
	}
	defer sig.Close()

	keyring, err := os.Open(keyringPath)
	if err != nil {
		return errors.Wrap(err, "failed to open keyring")
	}
	defer keyring.Close()

	if err := Verify(artifact, sig, keyring); err != nil {
		var sigErr *Error
		if errors.As(err, &sigErr) {
			sigErr.Path = path
		}
		return err
	}
	return nil
}
