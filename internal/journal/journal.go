package journal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Journal is the append-only durable log owned exclusively by the Database
// Engine (§5 "the journal file is owned by the Engine; no other component
// writes to it").
type Journal struct {
	file           *os.File
	fsyncOnPersist bool
}

// Discard returns a Journal that accepts Append calls but persists nothing,
// for engines configured with persistence disabled. Close is a no-op.
func Discard() *Journal {
	return &Journal{}
}

// Open opens (creating if necessary) the journal file at path, writing the
// magic+version header if the file is new. fsyncOnPersist controls whether
// Append calls fsync before returning (§4.4 durability contract).
func Open(path string, fsyncOnPersist bool) (*Journal, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("journal: stat %s: %w", path, err)
	}

	if info.Size() == 0 {
		header := append(magic[:], version)
		if _, err := file.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("journal: write header: %w", err)
		}
		if err := file.Sync(); err != nil {
			file.Close()
			return nil, fmt.Errorf("journal: sync header: %w", err)
		}
	}

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return nil, fmt.Errorf("journal: seek end: %w", err)
	}

	return &Journal{file: file, fsyncOnPersist: fsyncOnPersist}, nil
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	if j.file == nil {
		return nil
	}

	return j.file.Close()
}

// Append writes one batch of records as consecutive length-prefixed
// entries and, when configured, fsyncs once after the whole batch (§4.5:
// "apply to memory, append journal record(s), fsync if configured, release
// ack" — one fsync per batch, not per record).
func (j *Journal) Append(records []Record) error {
	if j.file == nil {
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	for _, rec := range records {
		payload := Encode(rec)

		var length [4]byte
		binary.BigEndian.PutUint32(length[:], uint32(len(payload)))

		if _, err := j.file.Write(length[:]); err != nil {
			return fmt.Errorf("journal: write length: %w", err)
		}
		if _, err := j.file.Write(payload); err != nil {
			return fmt.Errorf("journal: write payload: %w", err)
		}
	}

	if j.fsyncOnPersist {
		if err := j.file.Sync(); err != nil {
			return fmt.Errorf("journal: fsync: %w", err)
		}
	}

	return nil
}

// ReadAll reads every record from the beginning of the journal, in file
// order, validating the header. Used once at startup, before any Append
// call (§4.4 "Startup recovery").
func ReadAll(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer file.Close()

	var header [5]byte
	n, err := file.Read(header[:])
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("journal: read header: %w", err)
	}
	if n == 0 {
		// An empty file (just created) has no header yet.
		return nil, nil
	}
	if n < 5 {
		return nil, ErrCorrupt{Reason: "truncated header"}
	}
	if [4]byte{header[0], header[1], header[2], header[3]} != magic {
		return nil, ErrCorrupt{Reason: "bad magic"}
	}
	if header[4] != version {
		return nil, ErrUnknownVersion{Got: header[4]}
	}

	var records []Record
	for {
		var length [4]byte
		_, err := io.ReadFull(file, length[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrCorrupt{Reason: "truncated record length"}
		}

		size := binary.BigEndian.Uint32(length[:])
		payload := make([]byte, size)
		if _, err := io.ReadFull(file, payload); err != nil {
			return nil, ErrCorrupt{Reason: "truncated record payload"}
		}

		rec, err := Decode(payload)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}
