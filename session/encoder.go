package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// CurrentSchemaVersion is the first byte of every encoded record. Version 1 is the first
// released format; Decode rejects anything else.
const CurrentSchemaVersion = 1

// Encode serializes rec. Every string is prefixed with a uint16 byte length.
func Encode(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("nil record")
	}

	var buf bytes.Buffer
	buf.WriteByte(CurrentSchemaVersion)

	for _, f := range []struct{ name, value string }{
		{"access token", rec.AccessToken},
		{"refresh token", rec.RefreshToken},
		{"userID", rec.UserID},
		{"orgID", rec.OrgID},
		{"role", rec.Role},
		{"email", rec.Email},
		{"name", rec.Name},
	} {
		if err := writeString(&buf, f.name, f.value); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, rec.AccessExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.UpdatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a record written by Encode.
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("unsupported session schema version %d", version)
	}

	rec := &Record{}
	for _, field := range []*string{
		&rec.AccessToken,
		&rec.RefreshToken,
		&rec.UserID,
		&rec.OrgID,
		&rec.Role,
		&rec.Email,
		&rec.Name,
	} {
		if *field, err = readString(reader); err != nil {
			return nil, err
		}
	}

	if err := binary.Read(reader, binary.BigEndian, &rec.AccessExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.UpdatedAt); err != nil {
		return nil, err
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in session record")
	}

	return rec, nil
}

func writeString(buf *bytes.Buffer, name, value string) error {
	if len(value) > math.MaxUint16 {
		return fmt.Errorf("%s too long", name)
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(value))); err != nil {
		return err
	}
	buf.WriteString(value)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}
