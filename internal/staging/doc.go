// Package staging maintains the scratch directories the CUE/BIN handler
// creates under paths.work_dir. A crashed or killed extraction leaves its
// roller-cuebin-* directory behind; CleanStale reclaims those on the next
// CLI start.
package staging
