// Command blogbuild is the one-shot build entry point. It locates the postgen
// helper installed next to it, runs it once against the site root, and prints
// a fixed completion message when the helper succeeds. Helper failures
// propagate unchanged, exit code included, with no retries.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	helperName  = "postgen"
	doneMessage = "Done. Open posts/index.html to view the list."
)

func main() {
	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "blogbuild: resolve executable: %v\n", err)
		os.Exit(1)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	if err := run(filepath.Dir(exe), os.Stdout, os.Stderr); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "blogbuild: %v\n", err)
		os.Exit(1)
	}
}

// run invokes the helper that lives in dir exactly once, with no arguments,
// streaming its output to the supplied writers. The helper derives the site
// root from its own location, so the caller's working directory is irrelevant.
func run(dir string, stdout, stderr io.Writer) error {
	helper := filepath.Join(dir, helperName)
	if _, err := os.Stat(helper); err != nil {
		return fmt.Errorf("locate helper %s: %w", helper, err)
	}

	cmd := exec.Command(helper)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return err
	}

	fmt.Fprintln(stdout, doneMessage)
	return nil
}
