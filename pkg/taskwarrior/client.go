package taskwarrior

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Runner executes the task binary and returns its stdout.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("taskwarrior command failed: exit code %d, %s, stderr: %s",
				exitErr.ExitCode(), err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("taskwarrior command failed: %w", err)
	}
	return output, nil
}

// Client wraps the task command line.
type Client struct {
	binary string
	run    Runner
}

// NewClient returns a client for binary ("task" when empty). run may be nil
// to execute the real binary.
func NewClient(binary string, run Runner) *Client {
	if binary == "" {
		binary = "task"
	}
	if run == nil {
		run = execRunner
	}
	return &Client{binary: binary, run: run}
}

// GetTasks exports every task matching filter.
func (c *Client) GetTasks(ctx context.Context, filter []string) ([]Task, error) {
	args := append(append([]string{}, filter...), "export", "rc.hooks=0")
	output, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return nil, err
	}
	output = bytes.TrimSpace(output)
	if len(output) == 0 {
		return nil, nil
	}

	var tasks []Task
	if err := json.Unmarshal(output, &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal taskwarrior output: %w", err)
	}
	return tasks, nil
}

// Done completes the task with uuid.
func (c *Client) Done(ctx context.Context, uuid string) error {
	_, err := c.run(ctx, c.binary, "rc.confirmation=off", "rc.hooks=0", uuid, "done")
	return err
}

// Modify applies attribute changes such as "due:2026-03-02" to uuid.
func (c *Client) Modify(ctx context.Context, uuid string, mods ...string) error {
	args := append([]string{"rc.confirmation=off", "rc.hooks=0", uuid, "modify"}, mods...)
	_, err := c.run(ctx, c.binary, args...)
	return err
}
