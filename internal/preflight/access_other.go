//go:build !unix

package preflight

import "os"

// checkAccess probes writability by creating and removing a temp file;
// access(2) has no equivalent here.
func checkAccess(path string) error {
	f, err := os.CreateTemp(path, ".roller-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
