//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds and starts the overlay. CONFIG overrides the config file path.
func (Run) Engine() error {
	mg.Deps(Build.Engine)

	config := os.Getenv("CONFIG")
	if config == "" {
		config = "config.toml"
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("bin/anima-overlay", withArgs("-config", config), withStream()); err != nil {
		return err
	}
	return nil
}
