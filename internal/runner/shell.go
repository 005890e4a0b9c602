package runner

import (
	"context"
	"os/exec"

	"kairoi/internal/engine"
)

// runShell implements the Shell back-end (§4.3), mirroring
// original_source/src/processor/shell.rs: a single "sh <script>
// <job-identifier>" invocation per execution, stdio discarded, exit status
// maps to Executed/Failed.
func (p *Pool) runShell(ctx context.Context, execution Execution) {
	if len(execution.Rule.RunnerArgs) != 1 {
		p.report(ctx, execution, engine.OutcomeFailed, "InvalidShellRunnerArgs")
		return
	}
	script := execution.Rule.RunnerArgs[0]

	cmd := exec.CommandContext(ctx, "sh", script, execution.Job.ID)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		p.cfg.Logger.Debug("shell runner failed", "job", execution.Job.ID, "error", err)
		p.report(ctx, execution, engine.OutcomeFailed, "ShellExecutionFailed")

		return
	}

	p.cfg.Logger.Debug("shell runner succeeded", "job", execution.Job.ID)
	p.report(ctx, execution, engine.OutcomeExecuted, "")
}
