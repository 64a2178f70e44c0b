package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"roller/internal/fileutil"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := checkAccess(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDestination verifies that an extraction destination can be created.
// An existing destination must be a writable directory; a missing one needs
// a writable nearest existing ancestor.
func CheckDestination(path string) Result {
	const name = "Destination"

	if path == "" {
		return Result{Name: name, Detail: "no destination given"}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}

	if _, err := os.Stat(abs); err == nil {
		return CheckDirectoryAccess(name, abs)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", abs, err)}
	}

	ancestor, ok := fileutil.NearestExisting(abs)
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent directory)", abs)}
	}
	check := CheckDirectoryAccess(name, ancestor)
	if !check.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (parent %s)", abs, check.Detail)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created under %s)", abs, ancestor)}
}
