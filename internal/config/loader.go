package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads a manifest from the provided path. Relative workdirs and env
// files are resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f, filepath.Dir(absPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	doc.Source = absPath
	return doc, nil
}

// Parse decodes a manifest from r. baseDir anchors relative paths.
func Parse(r io.Reader, baseDir string) (*Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("manifest is empty")
	}
	if err := checkSchema(raw); err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var doc Manifest
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	doc.expand()
	if err := doc.ApplyDefaults(); err != nil {
		return nil, err
	}
	if err := doc.resolve(baseDir); err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *Manifest) expand() {
	m.Defaults.Workdir = expandEnv(m.Defaults.Workdir)
	expandMap(m.Defaults.Env)
	for _, cmd := range m.Commands {
		if cmd == nil {
			continue
		}
		cmd.Workdir = expandEnv(cmd.Workdir)
		cmd.EnvFromFile = expandEnv(cmd.EnvFromFile)
		cmd.Image = expandEnv(cmd.Image)
		expandMap(cmd.Env)
	}
}

func expandMap(values map[string]string) {
	for k, v := range values {
		values[k] = expandEnv(v)
	}
}

// ApplyDefaults merges manifest defaults onto commands. Command env entries
// override default env entries with the same key.
func (m *Manifest) ApplyDefaults() error {
	for name, cmd := range m.Commands {
		if cmd == nil {
			return fmt.Errorf("command %q is null", name)
		}
		if cmd.Runtime == "" {
			cmd.Runtime = m.Defaults.Runtime
		}
		if cmd.Runtime == "" {
			cmd.Runtime = RuntimeProcess
		}
		if cmd.Workdir == "" && cmd.Runtime == RuntimeProcess {
			cmd.Workdir = m.Defaults.Workdir
		}
		if len(m.Defaults.Env) > 0 {
			merged := make(map[string]string, len(m.Defaults.Env)+len(cmd.Env))
			for k, v := range m.Defaults.Env {
				merged[k] = v
			}
			for k, v := range cmd.Env {
				merged[k] = v
			}
			cmd.Env = merged
		}
	}
	return nil
}

func (m *Manifest) resolve(baseDir string) error {
	for name, cmd := range m.Commands {
		if cmd.Runtime == RuntimeProcess {
			cmd.ResolvedWorkdir = resolveWorkdir(baseDir, cmd.Workdir)
		}
		if cmd.EnvFromFile == "" {
			continue
		}
		if !filepath.IsAbs(cmd.EnvFromFile) {
			cmd.EnvFromFile = filepath.Clean(filepath.Join(baseDir, cmd.EnvFromFile))
		}
		fileEnv, err := loadEnvFile(cmd.EnvFromFile)
		if err != nil {
			return fmt.Errorf("%s: %w", commandField(name, "envFromFile"), err)
		}
		// Inline env wins over the file.
		for k, v := range cmd.Env {
			fileEnv[k] = v
		}
		cmd.Env = fileEnv
	}
	return nil
}

func resolveWorkdir(base, workdir string) string {
	if workdir == "" {
		return base
	}
	if filepath.IsAbs(workdir) {
		return filepath.Clean(workdir)
	}
	return filepath.Clean(filepath.Join(base, workdir))
}

func commandField(name, field string) string {
	return fmt.Sprintf("commands.%s.%s", name, field)
}
