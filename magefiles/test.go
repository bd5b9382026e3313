//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs go vet and the unit tests.
func (Test) Unit() error {
	mg.Deps(Test.Vet)
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the unit tests with the race detector.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withStream())
	return err
}

// Writes coverage.out and prints per-function coverage.
func (Test) Cover() error {
	if _, err := executeCmd("go", withArgs("test", "-coverprofile=coverage.out", "./...")); err != nil {
		return err
	}
	out, err := executeCmd("go", withArgs("tool", "cover", "-func=coverage.out"))
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func (Test) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."))
	return err
}
