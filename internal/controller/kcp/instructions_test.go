package kcp

import (
	"testing"
	"time"

	"kairoi/internal/store"
)

func TestParseSet(t *testing.T) {
	inst, _, err := Parse(`SET app.x "1970-01-01 00:00:05"`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if inst.Kind != KindSet || inst.JobID != "app.x" {
		t.Fatalf("unexpected instruction %+v", inst)
	}
	if !inst.Execution.Equal(time.Unix(5, 0).UTC()) {
		t.Errorf("unexpected execution time %v", inst.Execution)
	}
}

func TestParseSetRejectsBadTimestamp(t *testing.T) {
	_, reason, err := Parse(`SET app.x not-a-time`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if reason != "invalid_execution" {
		t.Errorf("expected invalid_execution, got %s", reason)
	}
}

func TestParseUnset(t *testing.T) {
	inst, _, err := Parse(`UNSET app.x`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if inst.Kind != KindUnset || inst.JobID != "app.x" {
		t.Fatalf("unexpected instruction %+v", inst)
	}
}

func TestParseRuleSetShell(t *testing.T) {
	inst, _, err := Parse(`RULE SET r1 app. shell /bin/true`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if inst.Kind != KindRuleSet {
		t.Fatalf("unexpected kind %v", inst.Kind)
	}
	want := store.Rule{ID: "r1", Pattern: "app.", RunnerKind: store.RunnerShell, RunnerArgs: []string{"/bin/true"}}
	if inst.Rule.ID != want.ID || inst.Rule.Pattern != want.Pattern || inst.Rule.RunnerKind != want.RunnerKind {
		t.Errorf("unexpected rule %+v", inst.Rule)
	}
}

func TestParseRuleSetShellRejectsWrongArgCount(t *testing.T) {
	_, reason, err := Parse(`RULE SET r1 app. shell /bin/true extra`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if reason != "invalid_arguments" {
		t.Errorf("expected invalid_arguments, got %s", reason)
	}
}

func TestParseRuleSetAmqp(t *testing.T) {
	inst, _, err := Parse(`RULE SET r2 app.special. amqp amqp://localhost exchange route`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if inst.Rule.RunnerKind != store.RunnerAmqp {
		t.Errorf("expected amqp runner kind, got %s", inst.Rule.RunnerKind)
	}
	if len(inst.Rule.RunnerArgs) != 3 {
		t.Errorf("expected 3 runner args, got %d", len(inst.Rule.RunnerArgs))
	}
}

func TestParseRuleSetRejectsUnknownRunner(t *testing.T) {
	_, reason, err := Parse(`RULE SET r1 app. carrier-pigeon /bin/true`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if reason != "invalid_runner" {
		t.Errorf("expected invalid_runner, got %s", reason)
	}
}

func TestParseRuleUnset(t *testing.T) {
	inst, _, err := Parse(`RULE UNSET r1`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if inst.Kind != KindRuleUnset || inst.Rule.ID != "r1" {
		t.Fatalf("unexpected instruction %+v", inst)
	}
}

func TestParseUnknownInstruction(t *testing.T) {
	_, reason, err := Parse(`FROB app.x`)
	if err == nil {
		t.Fatal("expected an error")
	}
	if reason != "unknown_instruction" {
		t.Errorf("expected unknown_instruction, got %s", reason)
	}
}
