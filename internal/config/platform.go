package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ConfigDir returns the platform configuration directory for ROLLER:
// %APPDATA%\ROLLER on Windows, ~/Library/Application Support/ROLLER on
// macOS, and $XDG_CONFIG_HOME/ROLLER (default ~/.config/ROLLER) elsewhere.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, appDirName), nil
		}
		return filepath.Join(home, "AppData", "Roaming", appDirName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appDirName), nil
	default:
		if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
			return filepath.Join(xdg, appDirName), nil
		}
		return filepath.Join(home, ".config", appDirName), nil
	}
}

// InstallDir returns the platform default install directory for ROLLER.
func InstallDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "windows":
		if local := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); local != "" {
			return filepath.Join(local, "Programs", appDirName), nil
		}
		return filepath.Join(home, "AppData", "Local", "Programs", appDirName), nil
	case "darwin":
		return filepath.Join(home, "Applications", appDirName), nil
	default:
		if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
			return filepath.Join(xdg, appDirName), nil
		}
		return filepath.Join(home, ".local", "share", appDirName), nil
	}
}

// ExecutableSuffixes lists the suffixes tried when probing a directory for a
// tool. On Windows PATHEXT is honoured; elsewhere only the bare name is tried.
func ExecutableSuffixes() []string {
	if runtime.GOOS != "windows" {
		return []string{""}
	}
	if pathext := strings.TrimSpace(os.Getenv("PATHEXT")); pathext != "" {
		var out []string
		for _, ext := range strings.Split(pathext, string(os.PathListSeparator)) {
			if ext = strings.ToLower(strings.TrimSpace(ext)); ext != "" {
				out = append(out, ext)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{".exe", ".bat", ".cmd"}
}

// PlatformID returns the release asset platform label, e.g. linux-x64.
func PlatformID() string {
	system := runtime.GOOS
	if system == "darwin" {
		system = "macos"
	}
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x64"
	case "arm64":
		arch = "arm64"
	}
	return system + "-" + arch
}

func defaultWorkDir() string {
	return filepath.Join(os.TempDir(), defaultWorkDirName)
}

func joinPath(base, name string) string {
	if base == "" {
		return ""
	}
	return filepath.Join(base, name)
}
