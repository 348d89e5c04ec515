// Package common holds small process-wide knobs shared by config and the
// store, mirroring the teacher's internal/common package.
package common

import "os"

// FilePerm and DirPerm are the default permissions used whenever the
// supervisor writes to its data directory. config.Load overrides them from
// FILE_PERM/DIR_PERM env vars.
var (
	FilePerm = os.FileMode(0644)
	DirPerm  = os.FileMode(0755)
)
