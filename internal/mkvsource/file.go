// Package mkvsource provides a concrete ebml.ByteSource backed by an
// *os.File, for the CLI tools in cmd/.
package mkvsource

import (
	"errors"
	"io"
	"os"
)

// File is an ebml.ByteSource over a read-only *os.File. Its length is
// cached on first use, mirroring a plain fseek-to-end-and-back length
// probe.
type File struct {
	f      *os.File
	length uint64
	havLen bool
}

// Open opens path read-only and wraps it as a File source.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

// Close releases the underlying file descriptor.
func (s *File) Close() error {
	return s.f.Close()
}

func (s *File) Read(buf []byte) (int, error) {
	n, err := s.f.Read(buf)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

func (s *File) Seek(pos uint64) error {
	_, err := s.f.Seek(int64(pos), 0)
	return err
}

func (s *File) Tell() uint64 {
	pos, _ := s.f.Seek(0, 1)
	return uint64(pos)
}

func (s *File) Len() uint64 {
	if !s.havLen {
		info, err := s.f.Stat()
		if err == nil {
			s.length = uint64(info.Size())
		}
		s.havLen = true
	}
	return s.length
}
