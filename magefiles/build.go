//go:build mage

package main

import (
	"path/filepath"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Downloads modules and builds plyexport into bin/.
func (Build) CLI() error {
	if _, err := executeCmd("go", withArgs("mod", "download")); err != nil {
		return err
	}
	out := filepath.Join("bin", "plyexport")
	_, err := executeCmd("go", withArgs("build", "-o", out, "./cmd/plyexport"), withStream())
	return err
}

// Installs plyexport into GOBIN.
func (Build) Install() error {
	_, err := executeCmd("go", withArgs("install", "./cmd/plyexport"), withStream())
	return err
}
