package shmarena

import (
	"bytes"
)

// CopyString allocates len(s)+1 bytes, copies s into the allocation followed by a terminating NUL
// byte, and returns the new handle. As with Alloc, a failed validation still returns the handle.
func (a *Allocator) CopyString(s string) (Handle, error) {
	handle, validationErr := a.Alloc(len(s) + 1)
	if handle == NoHandle {
		return NoHandle, validationErr
	}

	// The slot was just handed out, so Bytes cannot fail
	data, err := a.Bytes(handle)
	if err != nil {
		return NoHandle, err
	}

	n := copy(data, s)
	data[n] = 0

	return handle, validationErr
}

// String reads the NUL-terminated string stored in the allocation identified by handle. If the slot
// contains no NUL byte, the full slot is returned.
func (a *Allocator) String(handle Handle) (string, error) {
	data, err := a.Bytes(handle)
	if err != nil {
		return "", err
	}

	end := bytes.IndexByte(data, 0)
	if end < 0 {
		end = len(data)
	}

	return string(data[:end]), nil
}
