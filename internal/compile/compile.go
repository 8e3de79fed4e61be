// Package compile hands rendered sources to an external document compiler.
package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrToolFailed marks every failure of the external compiler, including a
// missing executable.
var ErrToolFailed = errors.New("compile: external tool failed")

// Compiler turns a source file into its output document.
type Compiler interface {
	Compile(ctx context.Context, sourcePath string) error
}

// ToolError describes a failed compiler invocation. ExitCode is -1 when the
// process never ran or was killed.
type ToolError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *ToolError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("compile: %s exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("compile: %s: %v", e.Command, e.Err)
}

// Is lets errors.Is match ErrToolFailed.
func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailed
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Command runs Name with Args followed by the source file name. The process
// runs in the source's directory unless Dir is set, so auxiliary and output
// files land next to the source.
type Command struct {
	Name   string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Compile runs the command once for sourcePath and waits for it to exit.
func (c Command) Compile(ctx context.Context, sourcePath string) error {
	if strings.TrimSpace(c.Name) == "" {
		return &ToolError{Command: "<unset>", ExitCode: -1, Err: fmt.Errorf("compiler name is empty")}
	}
	dir := c.Dir
	target := sourcePath
	if dir == "" {
		dir = filepath.Dir(sourcePath)
		target = filepath.Base(sourcePath)
	}
	args := append(append([]string{}, c.Args...), target)
	cmd := exec.CommandContext(ctx, c.Name, args...)
	cmd.Dir = dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if err := cmd.Run(); err != nil {
		return c.wrap(err, args)
	}
	return nil
}

func (c Command) wrap(err error, args []string) error {
	line := strings.Join(append([]string{c.Name}, args...), " ")
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return &ToolError{Command: line, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &ToolError{Command: line, ExitCode: -1, Err: err}
}

// Noop skips compilation.
type Noop struct{}

// Compile does nothing.
func (Noop) Compile(context.Context, string) error { return nil }
