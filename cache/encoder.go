package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const snapshotFormatVersion = 1

var errCorrupt = errors.New("corrupt snapshot")

// Encode serializes a snapshot into the compact binary form stored in Redis.
// Strings are length-prefixed with one byte, so each is limited to 255 bytes.
func Encode(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(snapshotFormatVersion)

	for _, f := range []struct {
		name, value string
	}{
		{"identity id", s.IdentityID},
		{"email", s.Email},
		{"username", s.Username},
		{"role", s.Role},
		{"avatar url", s.AvatarURL},
		{"token id", s.TokenID},
	} {
		if len(f.value) > 255 {
			return nil, fmt.Errorf("%s too long", f.name)
		}
		buf.WriteByte(byte(len(f.value)))
		buf.WriteString(f.value)
	}

	var flags byte
	if s.Verified {
		flags |= 1
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses bytes written by Encode.
func Decode(data []byte) (*Snapshot, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, errCorrupt
	}
	if version != snapshotFormatVersion {
		return nil, fmt.Errorf("%w: version %d", errCorrupt, version)
	}

	s := &Snapshot{}
	for _, dst := range []*string{&s.IdentityID, &s.Email, &s.Username, &s.Role, &s.AvatarURL, &s.TokenID} {
		n, err := r.ReadByte()
		if err != nil {
			return nil, errCorrupt
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, errCorrupt
		}
		*dst = string(b)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, errCorrupt
	}
	s.Verified = flags&1 == 1

	if err := binary.Read(r, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, errCorrupt
	}
	if err := binary.Read(r, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, errCorrupt
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", errCorrupt)
	}
	if s.IdentityID == "" {
		return nil, fmt.Errorf("%w: empty identity", errCorrupt)
	}

	return s, nil
}
