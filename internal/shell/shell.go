// Package shell renders eval-able activation scripts for the shells frm
// supports.
package shell

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/frm-sh/frm/pkg/activation"
)

// Kind identifies a supported shell.
type Kind string

const (
	Bash    Kind = "bash"
	Zsh     Kind = "zsh"
	Nushell Kind = "nushell"
)

// EnvShell overrides shell detection when set.
const EnvShell = "FRM_SHELL"

//go:embed templates/env.sh.tmpl
var envPosixTemplate string

//go:embed templates/env.nu.tmpl
var envNuTemplate string

//go:embed templates/init.sh.tmpl
var initPosixTemplate string

//go:embed templates/init.nu.tmpl
var initNuTemplate string

// Parse validates a shell name given on the command line.
func Parse(name string) (Kind, error) {
	switch Kind(strings.ToLower(name)) {
	case Bash:
		return Bash, nil
	case Zsh:
		return Zsh, nil
	case Nushell, "nu":
		return Nushell, nil
	}
	return "", errors.Errorf("unsupported shell %q (supported: bash, zsh, nushell)", name)
}

// Detect picks the caller's shell from the environment. FRM_SHELL wins,
// then a nushell marker, then $SHELL. Bash is the fallback.
func Detect(environ []string) Kind {
	if name := envLookup(environ, EnvShell); name != "" {
		if k, err := Parse(name); err == nil {
			return k
		}
	}
	if envLookup(environ, "NU_VERSION") != "" {
		return Nushell
	}
	switch {
	case strings.HasSuffix(envLookup(environ, "SHELL"), "/zsh"):
		return Zsh
	case strings.HasSuffix(envLookup(environ, "SHELL"), "/nu"):
		return Nushell
	}
	return Bash
}

// EnvScript renders the eval-able script that activates a binding in the
// caller's shell session.
func EnvScript(k Kind, b activation.Binding) (string, error) {
	switch k {
	case Bash, Zsh:
		return render("env", envPosixTemplate, b)
	case Nushell:
		return render("env", envNuTemplate, b)
	}
	return "", errors.Errorf("unsupported shell %q", k)
}

// InitScript renders the hook a user sources from their shell rc file.
// It wraps the frm binary so `use` can mutate the parent session.
func InitScript(k Kind) (string, error) {
	switch k {
	case Bash, Zsh:
		return render("init", initPosixTemplate, nil)
	case Nushell:
		return render("init", initNuTemplate, nil)
	}
	return "", errors.Errorf("unsupported shell %q", k)
}

func render(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse %s template", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s template", name)
	}
	return buf.String(), nil
}

func envLookup(environ []string, name string) string {
	for _, kv := range environ {
		if v, ok := strings.CutPrefix(kv, name+"="); ok {
			return v
		}
	}
	return ""
}
