package main

import (
	_ "embed"
	"io"
	"os"
	"os/user"
	"text/template"
)

//go:embed pinsim.service
var pinsimServiceEmbed string

type PinsimServiceParams struct {
	BinaryPath string
	ConfigPath string
	User       string
}

// SystemdServiceFile writes a unit file running the current binary as the
// current user.
func SystemdServiceFile(w io.Writer, configPath string) error {
	tmpl, err := template.New("pinsim.service").Parse(pinsimServiceEmbed)
	if err != nil {
		return err
	}

	path, err := os.Executable()
	if err != nil {
		return err
	}

	params := PinsimServiceParams{
		BinaryPath: path,
		ConfigPath: configPath,
		User:       "pi",
	}
	if u, err := user.Current(); err == nil {
		params.User = u.Username
	}

	return tmpl.Execute(w, params)
}
