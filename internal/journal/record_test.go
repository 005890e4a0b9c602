package journal

import (
	"testing"
	"time"

	"kairoi/internal/store"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second).UTC()

	records := []Record{
		JobUpsertedRecord(store.Job{ID: "app.x", Execution: now, Status: store.JobPlanned, LastTransition: now}),
		JobStatusChangedRecord(store.Job{ID: "app.x", Status: store.JobTriggered, LastTransition: now}),
		JobRemovedRecord("app.x"),
		RuleUpsertedRecord(store.Rule{ID: "r1", Pattern: "app.", RunnerKind: store.RunnerShell, RunnerArgs: []string{"/bin/true"}}),
		RuleUpsertedRecord(store.Rule{ID: "r2", Pattern: "app.special.", RunnerKind: store.RunnerAmqp, RunnerArgs: []string{"amqp://guest@localhost", "jobs", "run"}}),
		RuleRemovedRecord("r1"),
	}

	for _, rec := range records {
		encoded := Encode(rec)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		reencoded := Encode(decoded)
		if string(reencoded) != string(encoded) {
			t.Errorf("encode(decode(encode(x))) != encode(x) for tag %d", rec.Tag)
		}
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	_, err := Decode([]byte{99})
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	_, err := Decode([]byte{})
	if err == nil {
		t.Fatal("expected error for empty payload")
	}
}
