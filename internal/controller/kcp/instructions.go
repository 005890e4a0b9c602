package kcp

import (
	"fmt"
	"time"

	"kairoi/internal/store"
)

// executionLayout matches the original's client-facing timestamp format
// (`"2020-05-26 22:26:18"` in original_source/src/controller/client/parser.rs's
// own tests), parsed as UTC per §3's "execution: UTC timestamp".
const executionLayout = "2006-01-02 15:04:05"

// Kind identifies which instruction a parsed line carries.
type Kind int

const (
	KindSet Kind = iota
	KindUnset
	KindRuleSet
	KindRuleUnset
)

// Instruction is a parsed, validated client request, ready to be applied
// against the Database Engine.
type Instruction struct {
	Kind      Kind
	JobID     string
	Execution time.Time
	Rule      store.Rule
}

// Parse tokenises line and validates it into an Instruction. It returns a
// simple string reason (suitable for direct use in an ERROR response) on
// any failure.
func Parse(line string) (Instruction, string, error) {
	args, err := ParseLine(line)
	if err != nil {
		return Instruction{}, "malformed_request", err
	}

	switch args[0] {
	case "SET":
		return parseSet(args)
	case "UNSET":
		return parseUnset(args)
	case "RULE":
		return parseRule(args)
	default:
		return Instruction{}, "unknown_instruction", fmt.Errorf("kcp: unknown instruction %q", args[0])
	}
}

func parseSet(args []string) (Instruction, string, error) {
	if len(args) != 3 {
		return Instruction{}, "malformed_request", fmt.Errorf("kcp: SET requires 2 arguments, got %d", len(args)-1)
	}
	execution, err := time.ParseInLocation(executionLayout, args[2], time.UTC)
	if err != nil {
		return Instruction{}, "invalid_execution", err
	}

	return Instruction{Kind: KindSet, JobID: args[1], Execution: execution}, "", nil
}

func parseUnset(args []string) (Instruction, string, error) {
	if len(args) != 2 {
		return Instruction{}, "malformed_request", fmt.Errorf("kcp: UNSET requires 1 argument, got %d", len(args)-1)
	}

	return Instruction{Kind: KindUnset, JobID: args[1]}, "", nil
}

func parseRule(args []string) (Instruction, string, error) {
	if len(args) < 2 {
		return Instruction{}, "malformed_request", fmt.Errorf("kcp: RULE requires a sub-instruction")
	}

	switch args[1] {
	case "SET":
		return parseRuleSet(args[1:])
	case "UNSET":
		return parseRuleUnset(args[1:])
	default:
		return Instruction{}, "unknown_instruction", fmt.Errorf("kcp: unknown RULE sub-instruction %q", args[1])
	}
}

// parseRuleSet expects args = ["SET", identifier, pattern, runner, args...].
func parseRuleSet(args []string) (Instruction, string, error) {
	if len(args) < 4 {
		return Instruction{}, "invalid_arguments", fmt.Errorf("kcp: RULE SET requires at least 3 arguments, got %d", len(args)-1)
	}

	id, pattern, runner := args[1], args[2], args[3]
	runnerArgs := append([]string(nil), args[4:]...)

	var kind store.RunnerKind
	switch runner {
	case "shell":
		kind = store.RunnerShell
		if len(runnerArgs) != 1 {
			return Instruction{}, "invalid_arguments", fmt.Errorf("kcp: shell runner requires exactly 1 argument, got %d", len(runnerArgs))
		}
	case "amqp":
		kind = store.RunnerAmqp
		if len(runnerArgs) != 3 {
			return Instruction{}, "invalid_arguments", fmt.Errorf("kcp: amqp runner requires exactly 3 arguments, got %d", len(runnerArgs))
		}
	default:
		return Instruction{}, "invalid_runner", fmt.Errorf("kcp: unknown runner kind %q", runner)
	}

	rule := store.Rule{ID: id, Pattern: pattern, RunnerKind: kind, RunnerArgs: runnerArgs}

	return Instruction{Kind: KindRuleSet, Rule: rule}, "", nil
}

func parseRuleUnset(args []string) (Instruction, string, error) {
	if len(args) != 2 {
		return Instruction{}, "malformed_request", fmt.Errorf("kcp: RULE UNSET requires 1 argument, got %d", len(args)-1)
	}

	return Instruction{Kind: KindRuleUnset, Rule: store.Rule{ID: args[1]}}, "", nil
}
