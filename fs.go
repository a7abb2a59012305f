package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// PinsimFS is an Afero FS that can also resolve paths the way the OS
// filesystem does, so config lookup can run against memory in tests.
type PinsimFS interface {
	afero.Fs
	Abs(string) (string, error)
	HomeDir() (string, error)
}

type pinsimOSFS struct {
	afero.Fs
}

func NewPinsimOSFS() PinsimFS {
	return &pinsimOSFS{
		afero.NewOsFs(),
	}
}

func (g *pinsimOSFS) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

func (g *pinsimOSFS) HomeDir() (string, error) {
	return os.UserHomeDir()
}

type pinsimMemFS struct {
	afero.Fs
}

func NewPinsimMemFS() PinsimFS {
	return &pinsimMemFS{
		afero.NewMemMapFs(),
	}
}

func (g *pinsimMemFS) Abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join("/", path), nil
}

func (g *pinsimMemFS) HomeDir() (string, error) {
	return "/", nil
}
