// Package prefs keeps what the CLI remembers about a user between runs,
// currently the account that last signed in successfully.
package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Prefs are the remembered values. The zero value means nothing is known.
type Prefs struct {
	LastEmail  string    `yaml:"last_email,omitempty"`
	LastSignIn time.Time `yaml:"last_sign_in,omitempty"`
}

// File is a preferences file on disk
type File struct {
	path string
}

// Open uses the file at path. It does not need to exist.
func Open(path string) *File {
	return &File{path: path}
}

// Default returns the current user's file, <user config dir>/appshell/prefs.yaml
func Default() (*File, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return Open(filepath.Join(dir, "appshell", "prefs.yaml")), nil
}

func (f *File) Path() string {
	return f.path
}

// Load reads the file. A missing file yields empty preferences.
func (f *File) Load() (Prefs, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Prefs{}, nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("failed to read preferences: %w", err)
	}

	var p Prefs
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prefs{}, fmt.Errorf("failed to parse preferences %s: %w", f.path, err)
	}
	return p, nil
}

// RecordSignIn remembers email as the last account signed in at at
func (f *File) RecordSignIn(email string, at time.Time) error {
	p, err := f.Load()
	if err != nil {
		// an unreadable file is replaced rather than blocking sign-in
		p = Prefs{}
	}

	p.LastEmail = email
	p.LastSignIn = at.UTC()
	return f.write(p)
}

// write replaces the file in one rename so readers never see partial content.
// The file can hold an email address and is private to the user.
func (f *File) write(p Prefs) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}
