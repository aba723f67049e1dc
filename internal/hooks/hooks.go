// Package hooks runs shell commands declared by a form definition after a
// valid submission. The payload is passed as JSON on stdin.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mark3labs/stepform/internal/logger"
)

// Variables holds template variables that can be expanded in hook commands.
type Variables struct {
	Form     string
	Instance string
}

// Validate reports hooks without a command.
func (c Config) Validate() error {
	var errs []error
	for i, h := range c.OnSubmit {
		if h == nil || strings.TrimSpace(h.Command) == "" {
			errs = append(errs, fmt.Errorf("on_submit hook %d has no command", i))
		} else if h.Timeout < 0 {
			errs = append(errs, fmt.Errorf("on_submit hook %d: timeout must be >= 0", i))
		}
	}
	return errors.Join(errs...)
}

// Execute runs a hook command with payload on stdin and returns its stdout.
// Template variables in the command ({{form}}, {{instance}}) are expanded
// before execution. A non-zero exit or timeout is an error that includes
// the command's stderr.
func Execute(ctx context.Context, hook *HookConfig, workDir string, vars Variables, payload []byte) (string, error) {
	if hook == nil || hook.Command == "" {
		return "", nil
	}

	command := expandVariables(hook.Command, vars)
	logger.Debug("Executing hook command: %s", command)

	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = workDir
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if execCtx.Err() == context.DeadlineExceeded {
		logger.Warn("Hook command timed out after %ds: %s", timeout, command)
		return stdout.String(), fmt.Errorf("hook %q timed out after %ds", command, timeout)
	}
	if err != nil {
		logger.Warn("Hook command failed: %v", err)
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return stdout.String(), fmt.Errorf("hook %q failed: %w", command, err)
		}
		return stdout.String(), fmt.Errorf("hook %q failed: %w: %s", command, err, msg)
	}

	if stderr.Len() > 0 {
		logger.Debug("Hook stderr: %s", stderr.String())
	}
	logger.Debug("Hook executed successfully, output length: %d bytes", stdout.Len())
	return stdout.String(), nil
}

// ExecuteAll runs hooks in order and stops at the first failure. The
// returned output joins the stdout of hooks with PipeOutput set.
func ExecuteAll(ctx context.Context, hookList []*HookConfig, workDir string, vars Variables, payload []byte) (string, error) {
	var piped []string
	for _, hook := range hookList {
		out, err := Execute(ctx, hook, workDir, vars, payload)
		if err != nil {
			return strings.Join(piped, "\n"), err
		}
		if hook.PipeOutput && out != "" {
			piped = append(piped, out)
		}
	}
	return strings.Join(piped, "\n"), nil
}

// expandVariables replaces {{variable}} placeholders in the command string.
func expandVariables(command string, vars Variables) string {
	replacements := map[string]string{
		"{{form}}":     vars.Form,
		"{{instance}}": vars.Instance,
	}

	result := command
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}
