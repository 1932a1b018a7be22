package firmware

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/moffa90/go-ncpflash/protocol"
)

// Constants for GBL container sniffing.
const (
	// HeaderTag is the tag ID of the GBL header, stored little-endian as
	// the first 4 bytes of every GBL file.
	HeaderTag = 0x03A617EB

	// EndTag is the tag ID that terminates a GBL file.
	EndTag = 0xFC0404FC

	// tagHeaderSize is tag ID(4) + tag length(4)
	tagHeaderSize = 8

	// headerPayloadSize is version(4) + type(4)
	headerPayloadSize = 8
)

// Image is a firmware image opened for upload.
// It is an io.ReadCloser over the raw file contents; the GBL container is
// sent as-is, the bootloader parses it.
type Image struct {
	// Path is the file the image was opened from (or a descriptive name)
	Path string

	// Size is the image size in bytes
	Size int64

	// Header is the GBL header, nil if the image does not start with one
	Header *Header

	r      io.Reader
	closer io.Closer
}

// Header is the GBL header tag payload.
type Header struct {
	// Version is the GBL format version
	Version uint32

	// Type is the GBL image type flags (e.g. encrypted, signed)
	Type uint32
}

// Open opens the firmware image at path.
// Returns an *InvalidFileError if the path does not exist, is not a regular
// file or cannot be read.
//
// Example:
//
//	img, err := firmware.Open("ncp.gbl")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer img.Close()
//	fmt.Printf("%d bytes, %d blocks\n", img.Size, img.Blocks())
func Open(path string) (*Image, error) {
	info, err := Check(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &InvalidFileError{Path: path, Reason: "cannot be opened", Err: err}
	}

	br := bufio.NewReader(f)
	return &Image{
		Path:   path,
		Size:   info.Size(),
		Header: sniffHeader(br),
		r:      br,
		closer: f,
	}, nil
}

// Check validates that path names a readable regular file without opening
// a stream. Callers use it to reject bad paths before touching hardware.
func Check(path string) (fs.FileInfo, error) {
	if path == "" {
		return nil, &InvalidFileError{Path: path, Reason: "no file given"}
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &InvalidFileError{Path: path, Reason: "does not exist", Err: err}
		}
		return nil, &InvalidFileError{Path: path, Reason: "cannot be accessed", Err: err}
	}
	if info.IsDir() {
		return nil, &InvalidFileError{Path: path, Reason: "is a directory"}
	}
	if !info.Mode().IsRegular() {
		return nil, &InvalidFileError{Path: path, Reason: "is not a regular file"}
	}

	return info, nil
}

// FromBytes wraps an in-memory image.
// This is useful for testing and for images that do not come from disk.
func FromBytes(name string, data []byte) *Image {
	return &Image{
		Path:   name,
		Size:   int64(len(data)),
		Header: parseHeader(data),
		r:      bytes.NewReader(data),
	}
}

// Blocks returns the number of XMODEM blocks the image occupies.
func (img *Image) Blocks() int {
	return protocol.BlockCount(img.Size)
}

// IsGBL reports whether the image starts with a GBL header tag.
func (img *Image) IsGBL() bool {
	return img.Header != nil
}

// Read reads image bytes.
func (img *Image) Read(p []byte) (int, error) {
	return img.r.Read(p)
}

// Close releases the underlying file. It is safe to call more than once.
func (img *Image) Close() error {
	if img.closer == nil {
		return nil
	}
	err := img.closer.Close()
	img.closer = nil
	return err
}

// String returns a short description for logs.
func (img *Image) String() string {
	kind := "raw"
	if img.Header != nil {
		kind = fmt.Sprintf("gbl v0x%08X", img.Header.Version)
	}
	return fmt.Sprintf("%s (%d bytes, %s)", img.Path, img.Size, kind)
}

// sniffHeader peeks at the GBL header without consuming the stream.
func sniffHeader(br *bufio.Reader) *Header {
	buf, _ := br.Peek(tagHeaderSize + headerPayloadSize)
	return parseHeader(buf)
}

// parseHeader parses the GBL header tag.
//
// Layout (little-endian):
//
//	[TAG_ID(4)][TAG_LEN(4)][VERSION(4)][TYPE(4)]
func parseHeader(data []byte) *Header {
	if len(data) < tagHeaderSize+headerPayloadSize {
		return nil
	}
	if binary.LittleEndian.Uint32(data[0:4]) != HeaderTag {
		return nil
	}
	if binary.LittleEndian.Uint32(data[4:8]) < headerPayloadSize {
		return nil
	}

	return &Header{
		Version: binary.LittleEndian.Uint32(data[8:12]),
		Type:    binary.LittleEndian.Uint32(data[12:16]),
	}
}
