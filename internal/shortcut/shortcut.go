// Package shortcut turns user-picked files into executable paths.
package shortcut

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
)

var (
	// ErrUnsupported is returned for files that are neither executables nor
	// shortcuts, and for shortcuts without a local target.
	ErrUnsupported = errors.New("unsupported file")
	ErrMalformed   = errors.New("malformed shortcut")
)

// Resolver maps a picked path to the executable it stands for.
type Resolver interface {
	Resolve(path string) (string, error)
}

// Supported reports whether path has an extension that can be added.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exe", ".lnk":
		return true
	}
	return false
}

// IsShortcut reports whether path names a shell link.
func IsShortcut(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lnk")
}

// LinkResolver returns executables unchanged and reads the local target path
// stored inside .lnk files.
type LinkResolver struct{}

// Resolve implements Resolver.
func (LinkResolver) Resolve(path string) (string, error) {
	if !IsShortcut(path) {
		return path, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // Path picked by the user
	if err != nil {
		return "", err
	}
	target, err := ParseLink(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return target, nil
}

const (
	linkHeaderSize     = 0x4c
	hasLinkTargetIDs   = 1 << 0
	hasLinkInfo        = 1 << 1
	volumeIDAndBase    = 1 << 0
	unicodeInfoHdrSize = 0x24
)

// ParseLink extracts the local base path from a shell link file.
func ParseLink(data []byte) (string, error) {
	if len(data) < linkHeaderSize || binary.LittleEndian.Uint32(data[0:4]) != linkHeaderSize {
		return "", ErrMalformed
	}
	flags := binary.LittleEndian.Uint32(data[0x14:0x18])
	off := linkHeaderSize

	if flags&hasLinkTargetIDs != 0 {
		if off+2 > len(data) {
			return "", ErrMalformed
		}
		off += 2 + int(binary.LittleEndian.Uint16(data[off:off+2]))
	}
	if flags&hasLinkInfo == 0 {
		return "", fmt.Errorf("%w: shortcut has no local target", ErrUnsupported)
	}
	if off+28 > len(data) {
		return "", ErrMalformed
	}

	info := data[off:]
	size := int(binary.LittleEndian.Uint32(info[0:4]))
	headerSize := binary.LittleEndian.Uint32(info[4:8])
	infoFlags := binary.LittleEndian.Uint32(info[8:12])
	if size > len(info) {
		return "", ErrMalformed
	}
	info = info[:size]
	if infoFlags&volumeIDAndBase == 0 {
		return "", fmt.Errorf("%w: shortcut points to a network location", ErrUnsupported)
	}

	if headerSize >= unicodeInfoHdrSize && len(info) >= 32 {
		if p := int(binary.LittleEndian.Uint32(info[28:32])); p > 0 && p < len(info) {
			if s := utf16String(info[p:]); s != "" {
				return s, nil
			}
		}
	}
	p := int(binary.LittleEndian.Uint32(info[16:20]))
	if p <= 0 || p >= len(info) {
		return "", ErrMalformed
	}
	s := info[p:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	if len(s) == 0 {
		return "", ErrMalformed
	}
	return string(s), nil
}

func utf16String(b []byte) string {
	var u []uint16
	for i := 0; i+1 < len(b); i += 2 {
		c := binary.LittleEndian.Uint16(b[i : i+2])
		if c == 0 {
			break
		}
		u = append(u, c)
	}
	return string(utf16.Decode(u))
}
