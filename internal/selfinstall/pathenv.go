package selfinstall

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"unicode/utf16"
)

// ContainsPath reports whether dir is an entry of the PATH-style value
// pathEnv. Comparison is case-insensitive on Windows.
func ContainsPath(pathEnv, dir string) bool {
	if pathEnv == "" || dir == "" {
		return false
	}
	dirClean := filepath.Clean(os.ExpandEnv(strings.TrimSpace(dir)))
	for _, p := range filepath.SplitList(pathEnv) {
		pClean := filepath.Clean(os.ExpandEnv(strings.TrimSpace(p)))
		if runtime.GOOS == "windows" {
			if strings.EqualFold(pClean, dirClean) {
				return true
			}
		} else if pClean == dirClean {
			return true
		}
	}
	return false
}

// queryWindowsPath reads the persistent PATH for a scope (User or Machine)
// through PowerShell.
func queryWindowsPath(scope string) string {
	cmd := exec.Command("powershell", "-NoProfile", "-Command",
		fmt.Sprintf("[Environment]::GetEnvironmentVariable('Path','%s')", scope))
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// setWindowsPath persistently sets the PATH for a scope via an encoded
// PowerShell command, which sidesteps cmd.exe quoting entirely.
func setWindowsPath(scope, value string) error {
	if os.Getenv("SNAFU_TEST_NO_SETX") != "" {
		return nil
	}
	script := fmt.Sprintf("[Environment]::SetEnvironmentVariable('Path', %s, '%s')",
		toPowerShellString(value), scope)
	cmd := exec.Command("powershell", "-NoProfile", "-EncodedCommand", encodePowerShellCommand(script))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("set %s PATH: %v (%s)", scope, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// addToUserPathWindows appends dirs to the persistent user PATH, skipping
// entries already present. Returns the previous value for later restore.
func addToUserPathWindows(dirs []string) (string, error) {
	old := queryWindowsPath("User")
	newPath := old
	changed := false
	for _, dir := range dirs {
		if ContainsPath(newPath, dir) || ContainsPath(os.Getenv("PATH"), dir) {
			continue
		}
		if newPath == "" {
			newPath = dir
		} else {
			newPath = newPath + ";" + dir
		}
		changed = true
	}
	if !changed {
		return old, nil
	}
	return old, setWindowsPath("User", newPath)
}

// removeFromUserPathWindows strips dirs from the persistent user PATH.
func removeFromUserPathWindows(dirs []string) (bool, error) {
	cur := queryWindowsPath("User")
	if cur == "" {
		return false, nil
	}
	newPath := cur
	removedAny := false
	for _, dir := range dirs {
		next, removed := computeNewPathString(newPath, dir)
		if removed {
			newPath = next
			removedAny = true
		}
	}
	if !removedAny {
		return false, nil
	}
	return true, setWindowsPath("User", newPath)
}

// computeNewPathString removes dir from the semicolon-separated PATH value
// cur, reporting whether an entry was dropped.
func computeNewPathString(cur, dir string) (string, bool) {
	var kept []string
	removed := false
	for _, p := range strings.Split(cur, ";") {
		pTrim := strings.TrimSpace(p)
		if pTrim == "" {
			continue
		}
		pClean := filepath.Clean(pTrim)
		if runtime.GOOS == "windows" {
			if strings.EqualFold(pClean, filepath.Clean(dir)) {
				removed = true
				continue
			}
		} else if pClean == filepath.Clean(dir) {
			removed = true
			continue
		}
		kept = append(kept, pClean)
	}
	return strings.Join(kept, ";"), removed
}

// rcFile picks the shell startup file PATH lines go into. Existing files win
// over the SHELL heuristic.
func rcFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	rc := filepath.Join(home, ".profile")
	if _, err := os.Stat(filepath.Join(home, ".bashrc")); err == nil {
		rc = filepath.Join(home, ".bashrc")
	} else if _, err := os.Stat(filepath.Join(home, ".zshrc")); err == nil {
		rc = filepath.Join(home, ".zshrc")
	} else if shell := os.Getenv("SHELL"); strings.Contains(shell, "zsh") {
		rc = filepath.Join(home, ".zshrc")
	} else if strings.Contains(os.Getenv("SHELL"), "bash") {
		rc = filepath.Join(home, ".bashrc")
	}
	return rc, nil
}

const rcMarker = "# snafu:"

// addToPathUnix appends export lines for dirs to the shell rc file and
// returns the file modified.
func addToPathUnix(dirs []string) (string, error) {
	rc, err := rcFile()
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(rc, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	for _, dir := range dirs {
		line := fmt.Sprintf("%s add %s to PATH\nexport PATH=\"%s:$PATH\"\n", rcMarker, dir, dir)
		if _, err := f.WriteString(line); err != nil {
			return "", err
		}
	}
	return rc, f.Sync()
}

// removeFromPathUnix strips previously appended snafu PATH lines from rc.
func removeFromPathUnix(rc string, dirs []string) error {
	b, err := os.ReadFile(rc)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var kept []string
	for _, line := range strings.Split(string(b), "\n") {
		drop := false
		for _, dir := range dirs {
			if strings.Contains(line, dir) && (strings.Contains(line, rcMarker) || strings.Contains(line, "export PATH=")) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return os.WriteFile(rc, []byte(strings.Join(kept, "\n")), 0o644)
}

// toPowerShellString renders a single-quoted PowerShell string literal.
func toPowerShellString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// encodePowerShellCommand produces the base64 UTF-16LE payload expected by
// powershell -EncodedCommand.
func encodePowerShellCommand(s string) string {
	u := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(u))
	for i, v := range u {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return base64.StdEncoding.EncodeToString(b)
}
