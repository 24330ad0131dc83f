package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordVersionV1 = 1

var errRecordCorrupt = errors.New("refresh record corrupt")

func encodeRecord(rec *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordVersionV1)
	if rec.Revoked {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, rec.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, rec.ExpiresAt); err != nil {
		return nil, err
	}

	for _, s := range []string{rec.SubjectID, rec.Identifier, rec.Kind} {
		if len(s) > 65535 {
			return nil, errors.New("refresh record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(s))); err != nil {
			return nil, err
		}
		buf.WriteString(s)
	}

	buf.Write(rec.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeRecord(sessionID string, data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errRecordCorrupt
	}
	if version != recordVersionV1 {
		return nil, errRecordCorrupt
	}

	revoked, err := reader.ReadByte()
	if err != nil {
		return nil, errRecordCorrupt
	}

	rec := &Record{
		SessionID: sessionID,
		Revoked:   revoked == 1,
	}

	if err := binary.Read(reader, binary.BigEndian, &rec.IssuedAt); err != nil {
		return nil, errRecordCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &rec.ExpiresAt); err != nil {
		return nil, errRecordCorrupt
	}

	for _, target := range []*string{&rec.SubjectID, &rec.Identifier, &rec.Kind} {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return nil, errRecordCorrupt
		}
		field := make([]byte, n)
		if _, err := io.ReadFull(reader, field); err != nil {
			return nil, errRecordCorrupt
		}
		*target = string(field)
	}

	if _, err := io.ReadFull(reader, rec.SecretHash[:]); err != nil {
		return nil, errRecordCorrupt
	}

	return rec, nil
}
