package nativemsg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 4

	// MaxResponseSize is the largest message a browser accepts from a host.
	MaxResponseSize = 1 << 20

	// DefaultMaxRequestSize caps messages read from the browser.
	DefaultMaxRequestSize = 4 << 20
)

// ErrTruncatedFrame is returned when the stream ends inside a frame.
var ErrTruncatedFrame = errors.New("truncated native message frame")

// FrameTooLargeError reports a frame whose declared length exceeds the limit.
// The payload has not been consumed.
type FrameTooLargeError struct {
	Size  uint32
	Limit int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("native message of %d bytes exceeds limit of %d", e.Size, e.Limit)
}

// ReadFrame reads one length-prefixed message. It returns io.EOF only when the
// stream ends cleanly before a header.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedFrame
		}
		return nil, err
	}

	size := binary.NativeEndian.Uint32(header[:])
	if int64(size) > int64(limit) {
		return nil, &FrameTooLargeError{Size: size, Limit: limit}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedFrame
		}
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload with its length prefix in a single Write.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxResponseSize {
		return &FrameTooLargeError{Size: uint32(len(payload)), Limit: MaxResponseSize}
	}

	buf := make([]byte, headerSize+len(payload))
	binary.NativeEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[headerSize:], payload)

	_, err := w.Write(buf)
	return err
}

// discardFrame skips the payload of a frame rejected by ReadFrame.
func discardFrame(r io.Reader, size uint32) error {
	if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrTruncatedFrame
		}
		return err
	}
	return nil
}
