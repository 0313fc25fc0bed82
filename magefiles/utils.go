//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

type runSpec struct {
	args   []string
	env    []string
	stream bool
}

type runOpt func(*runSpec)

func withArgs(args ...string) runOpt {
	return func(s *runSpec) { s.args = append(s.args, args...) }
}

// withEnv adds KEY=VALUE pairs on top of the current environment.
func withEnv(kv ...string) runOpt {
	return func(s *runSpec) { s.env = append(s.env, kv...) }
}

func withStream() runOpt {
	return func(s *runSpec) { s.stream = true }
}

// executeCmd runs name and returns its combined output. Output is echoed
// when streaming was asked for or mage runs verbose, otherwise it is only
// printed if the command fails.
func executeCmd(name string, opts ...runOpt) (string, error) {
	spec := &runSpec{}
	for _, o := range opts {
		o(spec)
	}

	line := strings.TrimSpace(strings.Join(append(spec.env, append([]string{name}, spec.args...)...), " "))
	fmt.Println("$", line)

	cmd := exec.Command(name, spec.args...)
	if len(spec.env) > 0 {
		cmd.Env = append(os.Environ(), spec.env...)
	}

	var out bytes.Buffer
	echo := spec.stream || mg.Verbose()
	if echo {
		cmd.Stdout = io.MultiWriter(&out, os.Stdout)
		cmd.Stderr = io.MultiWriter(&out, os.Stderr)
	} else {
		cmd.Stdout = &out
		cmd.Stderr = &out
	}

	if err := cmd.Run(); err != nil {
		if !echo {
			fmt.Print(out.String())
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return out.String(), nil
}
