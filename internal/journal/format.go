// Package journal implements Kairoi's write-ahead persistence: an
// append-only, length-prefixed, versioned binary log from which the
// Database Engine's in-memory state can be fully recovered (§4.4).
//
// Layout: a 4-byte magic, a 1-byte format version, then a stream of
// records. Each record is a 4-byte big-endian length followed by that many
// bytes of payload, mirroring the logfile format in
// original_source/src/database/storage/persistence/logfile/encoding.rs.
package journal

import "fmt"

// magic identifies a Kairoi journal file.
var magic = [4]byte{'K', 'R', 'J', 'L'}

// version is the current payload schema version. Readers reject any other
// version with a fatal startup error (§6 "readers must reject unknown
// versions").
const version = uint8(1)

// RecordTag distinguishes the tagged union of transitions a record may
// encode.
type RecordTag uint8

const (
	TagJobUpserted      RecordTag = 1
	TagJobStatusChanged RecordTag = 2
	TagRuleUpserted     RecordTag = 3
	TagRuleRemoved      RecordTag = 4
	TagJobRemoved       RecordTag = 5
)

// ErrUnknownVersion is returned by ReadAll when the journal file's version
// byte does not match the version this build understands.
type ErrUnknownVersion struct {
	Got uint8
}

func (e ErrUnknownVersion) Error() string {
	return fmt.Sprintf("journal: unknown format version %d (expected %d)", e.Got, version)
}

// ErrCorrupt is returned when the journal's header or a record cannot be
// parsed.
type ErrCorrupt struct {
	Reason string
}

func (e ErrCorrupt) Error() string {
	return fmt.Sprintf("journal: corrupt file: %s", e.Reason)
}
