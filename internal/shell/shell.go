// Package shell assembles process descriptions from an execution context and
// runs them through the launch guard.
package shell

import (
	"context"
	"io"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Shell is the context commands run in: environment, working directory and
// standard streams. The zero value runs commands with an empty environment,
// the caller's working directory and no standard streams.
type Shell struct {
	Env    map[string]string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// FromEnvironment snapshots the current process.
func FromEnvironment() *Shell {
	dir, _ := os.Getwd()
	return &Shell{
		Env:    ParseEnv(os.Environ()),
		Dir:    dir,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Clone returns a copy whose Env can be changed independently.
func (s *Shell) Clone() *Shell {
	cp := *s
	cp.Env = maps.Clone(s.Env)
	return &cp
}

// Command builds an unstarted description of name with args in this shell.
// Names without a path separator are looked up in the shell's own PATH, so a
// command the shell cannot see fails to launch even if the caller's PATH has
// it. Without a PATH entry in Env the caller's PATH is used, as os/exec does.
func (s *Shell) Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := s.command(ctx, name, args...)
	cmd.Env = EnvList(s.Env)
	cmd.Dir = s.Dir
	cmd.Stdin = s.Stdin
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	return cmd
}

// EnvList renders env as sorted KEY=VALUE pairs. A nil or empty map yields an
// empty, non-nil slice so the child does not inherit the caller's
// environment by accident.
func EnvList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// ParseEnv turns KEY=VALUE pairs into a map. Entries without '=' are
// ignored; later entries win.
func ParseEnv(pairs []string) map[string]string {
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

func (s *Shell) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	pathEnv, ok := s.Env["PATH"]
	if !ok || strings.ContainsRune(name, '/') || runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, name, args...)
	}
	resolved, err := lookPath(name, pathEnv)
	if err != nil {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Path = name
		cmd.Err = err
		return cmd
	}
	cmd := exec.CommandContext(ctx, resolved, args...)
	cmd.Args[0] = name
	return cmd
}

// lookPath finds name in the directories of pathEnv. Relative entries are
// skipped, matching os/exec's refusal to run programs found via ".".
func lookPath(name, pathEnv string) (string, error) {
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" || !filepath.IsAbs(dir) {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		return candidate, nil
	}
	return name, &exec.Error{Name: name, Err: exec.ErrNotFound}
}
