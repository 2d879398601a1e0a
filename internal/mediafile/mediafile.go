// Package mediafile loads media files as read-only byte views for the box
// reader to walk. Files are mapped with mmap where available so box readers
// can hold zero-copy views into large segments; a ReadAt-based fallback
// covers filesystems without mmap support.
package mediafile

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// ErrTooLarge reports a file that cannot be indexed as a []byte on this
// architecture.
var ErrTooLarge = errors.New("mediafile: file too large to map")

// File is a read-only view of a media file. Data remains valid until Close.
type File struct {
	Data    []byte
	mmapped bool
}

// Open maps path read-only, falling back to loading it into memory when
// mmap is unavailable. The returned file must be closed to release any
// mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrTooLarge
	}
	size := int(size64)
	if size == 0 {
		return &File{Data: []byte{}}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &File{Data: data, mmapped: true}, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return &File{Data: data}, nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Close releases the file's backing storage. Views into Data must not be
// used afterwards.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.mmapped = false
	return err
}
