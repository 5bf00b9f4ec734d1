// Package shim reads and writes SNAFU shim files. A shim file is a small
// text artifact that redirects a command to the currently selected
// interpreter: the first significant line is the executable to run, each
// following line is one argument.
package shim

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/imbi7py/snafu/internal/security"
)

// Ext is the file extension of published shim files.
const Ext = ".shim"

// Shim is the decoded invocation target of a shim file.
type Shim struct {
	Target string
	Args   []string
}

// Parse reads lines from r until EOF. Blank lines and lines starting with
// '#' are ignored; the first remaining line is the target, the rest are
// arguments.
func Parse(r io.Reader) (*Shim, error) {
	s := bufio.NewScanner(r)
	var lines []string
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read shim: %w", err)
	}
	if len(lines) == 0 {
		return nil, errors.New("shim file has no target")
	}
	return &Shim{Target: lines[0], Args: lines[1:]}, nil
}

// Read parses the shim file at path.
func Read(path string) (*Shim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Encode renders the shim file content.
func (s *Shim) Encode() []byte {
	var b bytes.Buffer
	b.WriteString(s.Target)
	b.WriteString("\n")
	for _, a := range s.Args {
		b.WriteString(a)
		b.WriteString("\n")
	}
	return b.Bytes()
}

// Write writes a shim file atomically (temp file in the same directory, then
// rename) so a concurrently dispatching shim never sees a half-written file.
func Write(path, target string, args ...string) error {
	if target == "" {
		return errors.New("empty shim target")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create shim dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".shim_tmp_")
	if err != nil {
		return fmt.Errorf("create temp shim: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	sh := Shim{Target: target, Args: args}
	if _, err := tmp.Write(sh.Encode()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write shim: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp shim: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename shim: %w", err)
	}
	return nil
}

// Publish validates name and writes <name>.shim into dir, returning the
// written path.
func Publish(dir, name, target string, args ...string) (string, error) {
	if err := security.CheckLinkName(name); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+Ext)
	if err := Write(path, target, args...); err != nil {
		return "", err
	}
	return path, nil
}
