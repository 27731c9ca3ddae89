package mmapstore

import "os"
import "golang.org/x/sys/unix"


//============================================= Low-Level Memory Map


// MMap is the byte-slice view of a memory-mapped file.
type MMap []byte

const (
	// RDONLY maps the file read-only.
	RDONLY = 0
	// RDWR maps the file read-write; writes to MMap are reflected in the backing file.
	RDWR = 1 << iota
	// COPY maps the file copy-on-write.
	COPY
)

// Map memory-maps f's first length bytes (or the whole file when length == 0) with the given mode.
func Map(f *os.File, mode int, length int) (MMap, error) {
	if length == 0 {
		info, err := f.Stat()
		if err != nil { return nil, err }
		length = int(info.Size())
	}

	prot := unix.PROT_READ
	flags := unix.MAP_SHARED

	switch mode {
		case RDWR:
			prot |= unix.PROT_WRITE
		case COPY:
			prot |= unix.PROT_WRITE
			flags = unix.MAP_PRIVATE
	}

	data, err := unix.Mmap(int(f.Fd()), 0, length, prot, flags)
	if err != nil { return nil, err }

	return MMap(data), nil
}

// Unmap releases the mapping.
func (m MMap) Unmap() error {
	if len(m) == 0 { return nil }
	return unix.Munmap([]byte(m))
}

// Flush synchronizes the mapping's dirty pages back to the backing file.
func (m MMap) Flush() error {
	if len(m) == 0 { return nil }
	return unix.Msync([]byte(m), unix.MS_SYNC)
}
