package mmapstore

import "os"


// Options configures a Store, mirroring the shape of the teacher's own options struct: a
//	directory and file name pair rather than a single path, so the version index file (unused
//	here, kept as a documented non-goal) and the log file share a root.
type Options struct {
	// Filepath is the directory the log file is created in.
	Filepath string
	// FileName is the log file's base name.
	FileName string
	// InitialSize is the log file's size on first creation. Defaults to 16 pages if zero.
	InitialSize int64
}

const defaultInitialPages = 16

// DefaultPageSize is the OS page size; the log file grows in multiples of it.
var DefaultPageSize = os.Getpagesize()

// MaxResize is the largest single growth step, in bytes, once the log is already large.
const MaxResize = 1 << 30
