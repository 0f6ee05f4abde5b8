package repository

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"mobiremote/internal/models"
)

// Record blob layout, little endian:
//
//	0   magic "MR"
//	2   version
//	3   target int32
//	7   power byte
//	8   server   [30]byte
//	38  user     [30]byte
//	68  password [30]byte
//	98  prefix   [30]byte
//	128 crc32 IEEE of bytes [0,128)
const (
	recordVersion = 1
	recordSize    = 132

	offVersion = 2
	offTarget  = 3
	offPower   = 7
	offStrings = 8
	offCRC     = recordSize - 4
)

var recordMagic = [2]byte{'M', 'R'}

var (
	// ErrNoRecord means the store was never written.
	ErrNoRecord = errors.New("no persisted record")
	// ErrCorruptRecord means the stored bytes failed validation.
	ErrCorruptRecord = errors.New("persisted record is corrupt")
	// ErrFieldTooLong means a string does not fit its fixed-capacity slot.
	ErrFieldTooLong = errors.New("field exceeds fixed capacity")
)

// EncodeRecord serializes r into the fixed-size layout.
func EncodeRecord(r models.Record) ([]byte, error) {
	buf := make([]byte, recordSize)
	buf[0], buf[1] = recordMagic[0], recordMagic[1]
	buf[offVersion] = recordVersion
	binary.LittleEndian.PutUint32(buf[offTarget:], uint32(int32(r.Shadow.Target)))
	if r.Shadow.PowerOn {
		buf[offPower] = 1
	}

	fields := []struct {
		name  string
		value string
	}{
		{"server", r.Broker.Server},
		{"user", r.Broker.User},
		{"password", r.Broker.Password},
		{"topic_prefix", r.Broker.TopicPrefix},
	}
	for i, f := range fields {
		if len(f.value) > models.FieldCapacity {
			return nil, fmt.Errorf("%s (%d bytes): %w", f.name, len(f.value), ErrFieldTooLong)
		}
		copy(buf[offStrings+i*models.FieldCapacity:], f.value)
	}

	binary.LittleEndian.PutUint32(buf[offCRC:], crc32.ChecksumIEEE(buf[:offCRC]))
	return buf, nil
}

// DecodeRecord validates and parses a stored blob.
func DecodeRecord(buf []byte) (models.Record, error) {
	if len(buf) != recordSize {
		return models.Record{}, fmt.Errorf("length %d: %w", len(buf), ErrCorruptRecord)
	}
	if buf[0] != recordMagic[0] || buf[1] != recordMagic[1] {
		return models.Record{}, fmt.Errorf("bad magic: %w", ErrCorruptRecord)
	}
	if buf[offVersion] != recordVersion {
		return models.Record{}, fmt.Errorf("version %d: %w", buf[offVersion], ErrCorruptRecord)
	}
	if want, got := binary.LittleEndian.Uint32(buf[offCRC:]), crc32.ChecksumIEEE(buf[:offCRC]); want != got {
		return models.Record{}, fmt.Errorf("checksum %08x != %08x: %w", got, want, ErrCorruptRecord)
	}
	if buf[offPower] > 1 {
		return models.Record{}, fmt.Errorf("power byte %d: %w", buf[offPower], ErrCorruptRecord)
	}

	str := func(i int) string {
		start := offStrings + i*models.FieldCapacity
		return string(bytes.TrimRight(buf[start:start+models.FieldCapacity], "\x00"))
	}

	return models.Record{
		Shadow: models.ShadowState{
			Target:  int(int32(binary.LittleEndian.Uint32(buf[offTarget:]))),
			PowerOn: buf[offPower] == 1,
		},
		Broker: models.BrokerSettings{
			Server:      str(0),
			User:        str(1),
			Password:    str(2),
			TopicPrefix: str(3),
		},
	}, nil
}
