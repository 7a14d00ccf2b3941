// Package agent spawns one agent process per driver iteration and
// streams its output line by line.
package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"github.com/thruflo/drover/internal/config"
)

// Runner runs one agent invocation in dir with a prompt. Each output
// line, stdout and stderr alike, is forwarded to onLine as it arrives;
// onLine may be called from more than one goroutine.
type Runner interface {
	Run(ctx context.Context, dir, prompt string, onLine func(string)) error
}

// ExecRunner runs a real agent binary.
type ExecRunner struct {
	Command   string
	ExtraArgs []string
	MaxTurns  int
}

// NewExecRunner builds a runner from the agent configuration.
func NewExecRunner(cfg config.Agent) *ExecRunner {
	return &ExecRunner{
		Command:   cfg.Command,
		ExtraArgs: cfg.Args,
		MaxTurns:  cfg.MaxTurns,
	}
}

func (r *ExecRunner) buildArgs(prompt string) []string {
	args := []string{
		"-p", prompt,
		"--output-format", "stream-json",
		"--verbose",
		"--dangerously-skip-permissions",
	}
	if r.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(r.MaxTurns))
	}
	return append(args, r.ExtraArgs...)
}

// Run executes the agent and blocks until it exits. Cancelling the
// context kills the process.
func (r *ExecRunner) Run(ctx context.Context, dir, prompt string, onLine func(string)) error {
	command := r.Command
	if command == "" {
		command = config.DefaultAgentCommand
	}

	cmd := exec.CommandContext(ctx, command, r.buildArgs(prompt)...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting agent: %w", err)
	}

	errCh := make(chan error, 2)
	go streamLines(stdout, onLine, errCh)
	go streamLines(stderr, onLine, errCh)

	// Drain both streams before waiting so no output is lost.
	streamErr := <-errCh
	if err := <-errCh; streamErr == nil {
		streamErr = err
	}

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("agent exited with code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("running agent: %w", err)
	}
	if streamErr != nil {
		return fmt.Errorf("reading agent output: %w", streamErr)
	}
	return nil
}

func streamLines(r io.Reader, onLine func(string), errCh chan<- error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	errCh <- scanner.Err()
}

// MockRunner is a test double for Runner.
type MockRunner struct {
	// RunFunc is called when Run is invoked. If nil, Run returns nil.
	RunFunc func(ctx context.Context, dir, prompt string, onLine func(string)) error
}

func (m *MockRunner) Run(ctx context.Context, dir, prompt string, onLine func(string)) error {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, dir, prompt, onLine)
	}
	return nil
}
