// Package configutil reads json5 config files that can be overridden by an
// untracked `<name>.local.<ext>` next to them.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	i := strings.LastIndexByte(f, '.')
	if i < 0 {
		return f, ""
	}
	return f[:i], f[i+1:]
}

// LocalName is the override file of `name`, ex. config.json5 -> config.local.json5.
func LocalName(name string) string {
	prefix, ext := splitExt(filepath.Base(name))
	return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
}

// Merge unmarshals json5 `override` on top of `base`, non-zero values in the
// override win.
func Merge[T any](base T, override []byte) (T, error) {
	if len(override) == 0 {
		return base, nil
	}
	var parsed T
	err := json5.Unmarshal(override, &parsed)
	if err != nil {
		return base, err
	}
	err = mergo.Merge(&base, parsed, mergo.WithOverride)
	return base, err
}

func readOptional(name string) ([]byte, error) {
	contents, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return contents, err
}

// ReadConfig reads `name` and merges `LocalName(name)` on top of it, either
// file may be missing but not both, in which case os.ErrNotExist is returned.
func ReadConfig[T any](name string) (T, error) {
	var out T

	base, err := readOptional(name)
	if err != nil {
		return out, err
	}
	localName := LocalName(name)
	local, err := readOptional(localName)
	if err != nil {
		return out, err
	}
	if len(base) == 0 && len(local) == 0 {
		return out, os.ErrNotExist
	}

	if len(base) > 0 {
		err = json5.Unmarshal(base, &out)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	if len(local) > 0 {
		out, err = Merge(out, local)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", localName, err)
		}
		slog.Debug("merged config with local overrides", "local", localName)
	}
	return out, nil
}

// ReadRecursively looks for `name` in the working directory and then in each
// of its parents.
func ReadRecursively[T any](name string) (T, error) {
	var empty T

	current, err := os.Getwd()
	if err != nil {
		return empty, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return empty, err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return empty, os.ErrNotExist
		}
		current = parent
	}
}
