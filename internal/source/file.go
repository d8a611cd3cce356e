package source

import (
	"io"
	"os"
)

// FileSource replays a raw sample file (the iqDumpFile / sdrTestMode
// config keys) byte-for-byte, for deterministic offline testing without a
// real front end attached.
type FileSource struct {
	f      *os.File
	format Format
}

// OpenFile opens path as a raw sample source in the given format.
func OpenFile(path string, format Format) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f, format: format}, nil
}

func (s *FileSource) Read(buf []byte) (int, error) {
	n, err := io.ReadFull(s.f, buf)
	if err == io.ErrUnexpectedEOF {
		// A short final read still carries real samples; only a read
		// returning zero bytes is a true end of file for our callers.
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, err
}

func (s *FileSource) Format() Format { return s.format }

func (s *FileSource) Close() error { return s.f.Close() }
