package journal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"kairoi/internal/store"
)

// Record encodes one applied transition. Only the fields relevant to Tag
// are meaningful; see decode for the exact per-tag layout.
type Record struct {
	Tag RecordTag

	JobID              string
	JobExecution       time.Time
	JobStatus          store.JobStatus
	JobLastTransition  time.Time

	RuleID         string
	RulePattern    string
	RuleRunnerKind store.RunnerKind
	RuleRunnerArgs []string
}

// JobUpsertedRecord builds a record for a client-visible SET (a new job or
// one being reset back to Planned).
func JobUpsertedRecord(job store.Job) Record {
	return Record{
		Tag:               TagJobUpserted,
		JobID:             job.ID,
		JobExecution:      job.Execution,
		JobStatus:         job.Status,
		JobLastTransition: job.LastTransition,
	}
}

// JobStatusChangedRecord builds a record for an internal status transition
// (triggering, or a runner-reported outcome) that does not change Execution.
func JobStatusChangedRecord(job store.Job) Record {
	return Record{
		Tag:               TagJobStatusChanged,
		JobID:             job.ID,
		JobStatus:         job.Status,
		JobLastTransition: job.LastTransition,
	}
}

// JobRemovedRecord builds a record for an UNSET.
func JobRemovedRecord(id string) Record {
	return Record{Tag: TagJobRemoved, JobID: id}
}

// RuleUpsertedRecord builds a record for a RULE SET.
func RuleUpsertedRecord(rule store.Rule) Record {
	return Record{
		Tag:            TagRuleUpserted,
		RuleID:         rule.ID,
		RulePattern:    rule.Pattern,
		RuleRunnerKind: rule.RunnerKind,
		RuleRunnerArgs: rule.RunnerArgs,
	}
}

// RuleRemovedRecord builds a record for a RULE UNSET.
func RuleRemovedRecord(id string) Record {
	return Record{Tag: TagRuleRemoved, RuleID: id}
}

func statusByte(status store.JobStatus) byte {
	switch status {
	case store.JobPlanned:
		return 0
	case store.JobTriggered:
		return 1
	case store.JobExecuted:
		return 2
	case store.JobFailed:
		return 3
	default:
		return 0
	}
}

func byteStatus(b byte) (store.JobStatus, error) {
	switch b {
	case 0:
		return store.JobPlanned, nil
	case 1:
		return store.JobTriggered, nil
	case 2:
		return store.JobExecuted, nil
	case 3:
		return store.JobFailed, nil
	default:
		return "", ErrCorrupt{Reason: fmt.Sprintf("unknown job status byte %d", b)}
	}
}

func runnerByte(kind store.RunnerKind) byte {
	if kind == store.RunnerAmqp {
		return 1
	}

	return 0
}

func byteRunner(b byte) (store.RunnerKind, error) {
	switch b {
	case 0:
		return store.RunnerShell, nil
	case 1:
		return store.RunnerAmqp, nil
	default:
		return "", ErrCorrupt{Reason: fmt.Sprintf("unknown runner kind byte %d", b)}
	}
}

func putString(buf *bytes.Buffer, s string) {
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(s)))
	buf.Write(length[:])
	buf.WriteString(s)
}

func getString(r *bytes.Reader) (string, error) {
	var length [2]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return "", ErrCorrupt{Reason: "truncated string length"}
	}
	n := binary.BigEndian.Uint16(length[:])
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		return "", ErrCorrupt{Reason: "truncated string data"}
	}

	return string(data), nil
}

func putTime(buf *bytes.Buffer, t time.Time) {
	var seconds [8]byte
	binary.BigEndian.PutUint64(seconds[:], uint64(t.Unix()))
	buf.Write(seconds[:])
}

func getTime(r *bytes.Reader) (time.Time, error) {
	var seconds [8]byte
	if _, err := io.ReadFull(r, seconds[:]); err != nil {
		return time.Time{}, ErrCorrupt{Reason: "truncated timestamp"}
	}

	return time.Unix(int64(binary.BigEndian.Uint64(seconds[:])), 0).UTC(), nil
}

// Encode serialises a Record into its versioned payload form.
func Encode(rec Record) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte(byte(rec.Tag))

	switch rec.Tag {
	case TagJobUpserted:
		putString(buf, rec.JobID)
		putTime(buf, rec.JobExecution)
		buf.WriteByte(statusByte(rec.JobStatus))
		putTime(buf, rec.JobLastTransition)
	case TagJobStatusChanged:
		putString(buf, rec.JobID)
		buf.WriteByte(statusByte(rec.JobStatus))
		putTime(buf, rec.JobLastTransition)
	case TagJobRemoved:
		putString(buf, rec.JobID)
	case TagRuleUpserted:
		putString(buf, rec.RuleID)
		putString(buf, rec.RulePattern)
		buf.WriteByte(runnerByte(rec.RuleRunnerKind))
		buf.WriteByte(byte(len(rec.RuleRunnerArgs)))
		for _, arg := range rec.RuleRunnerArgs {
			putString(buf, arg)
		}
	case TagRuleRemoved:
		putString(buf, rec.RuleID)
	}

	return buf.Bytes()
}

// Decode parses a payload previously produced by Encode. It rejects
// unknown tags and truncated/malformed payloads with ErrCorrupt.
func Decode(payload []byte) (Record, error) {
	if len(payload) < 1 {
		return Record{}, ErrCorrupt{Reason: "empty record"}
	}

	r := bytes.NewReader(payload[1:])
	tag := RecordTag(payload[0])
	rec := Record{Tag: tag}

	var err error
	var statusByte byte
	switch tag {
	case TagJobUpserted:
		if rec.JobID, err = getString(r); err != nil {
			return Record{}, err
		}
		if rec.JobExecution, err = getTime(r); err != nil {
			return Record{}, err
		}
		if statusByte, err = r.ReadByte(); err != nil {
			return Record{}, ErrCorrupt{Reason: "truncated job status"}
		}
		if rec.JobStatus, err = byteStatus(statusByte); err != nil {
			return Record{}, err
		}
		if rec.JobLastTransition, err = getTime(r); err != nil {
			return Record{}, err
		}
	case TagJobStatusChanged:
		if rec.JobID, err = getString(r); err != nil {
			return Record{}, err
		}
		if statusByte, err = r.ReadByte(); err != nil {
			return Record{}, ErrCorrupt{Reason: "truncated job status"}
		}
		if rec.JobStatus, err = byteStatus(statusByte); err != nil {
			return Record{}, err
		}
		if rec.JobLastTransition, err = getTime(r); err != nil {
			return Record{}, err
		}
	case TagJobRemoved:
		if rec.JobID, err = getString(r); err != nil {
			return Record{}, err
		}
	case TagRuleUpserted:
		var kindByte, argc byte

		if rec.RuleID, err = getString(r); err != nil {
			return Record{}, err
		}
		if rec.RulePattern, err = getString(r); err != nil {
			return Record{}, err
		}
		if kindByte, err = r.ReadByte(); err != nil {
			return Record{}, ErrCorrupt{Reason: "truncated runner kind"}
		}
		if rec.RuleRunnerKind, err = byteRunner(kindByte); err != nil {
			return Record{}, err
		}
		if argc, err = r.ReadByte(); err != nil {
			return Record{}, ErrCorrupt{Reason: "truncated runner argc"}
		}
		rec.RuleRunnerArgs = make([]string, argc)
		for i := range rec.RuleRunnerArgs {
			if rec.RuleRunnerArgs[i], err = getString(r); err != nil {
				return Record{}, err
			}
		}
	case TagRuleRemoved:
		if rec.RuleID, err = getString(r); err != nil {
			return Record{}, err
		}
	default:
		return Record{}, ErrCorrupt{Reason: fmt.Sprintf("unknown record tag %d", tag)}
	}

	return rec, nil
}
