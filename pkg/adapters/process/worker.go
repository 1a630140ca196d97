// Package process runs a domain worker as a local command.
//
// The task is written to the command's stdin as JSON and mirrored into
// FURROW_* environment variables for scripts that only read the environment.
// The command answers on stdout, either with plain text or with the same JSON
// envelope the HTTP worker uses:
//
//	{"success": true, "response": "...", "redirect_to": "", "error": ""}
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aretw0/furrow/pkg/domain"
)

// ErrEmptyOutput is returned when the command exits cleanly without writing anything.
var ErrEmptyOutput = errors.New("process produced no output")

const maxStderr = 512

// Worker executes one registered command per task. Only the configured
// command runs; nothing from the query is ever passed as an argument.
type Worker struct {
	desc    domain.WorkerDescriptor
	command string
	args    []string
	env     []string
	dir     string
}

// Option configures a Worker.
type Option func(*Worker)

// WithEnv adds KEY=VALUE pairs to the command environment.
func WithEnv(env map[string]string) Option {
	return func(w *Worker) {
		for k, v := range env {
			w.env = append(w.env, k+"="+v)
		}
	}
}

// WithDir sets the working directory of the command.
func WithDir(dir string) Option {
	return func(w *Worker) {
		w.dir = dir
	}
}

// NewWorker creates a worker backed by command.
func NewWorker(desc domain.WorkerDescriptor, command string, args []string, opts ...Option) *Worker {
	w := &Worker{
		desc:    desc.Clone(),
		command: command,
		args:    append([]string(nil), args...),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type envelope struct {
	Success    *bool             `json:"success"`
	Response   string            `json:"response"`
	Text       string            `json:"text"`
	RedirectTo domain.WorkerName `json:"redirect_to"`
	Error      string            `json:"error"`
}

// ProcessQuery implements ports.Worker.
func (w *Worker) ProcessQuery(ctx context.Context, task domain.Task) (domain.DispatchResult, error) {
	input, err := json.Marshal(task)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("encode task: %w", err)
	}

	cmd := exec.CommandContext(ctx, w.command, w.args...)
	cmd.Dir = w.dir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = append(cmd.Environ(), w.env...)
	cmd.Env = append(cmd.Env,
		"FURROW_WORKER="+w.desc.Name.String(),
		"FURROW_INSTRUCTION="+task.Instruction,
		"FURROW_QUERY="+task.Query,
		"FURROW_CONVERSATION_ID="+task.Context.ConversationID,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return domain.DispatchResult{}, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr]
		}
		return domain.DispatchResult{}, fmt.Errorf("%s: %w: %s", w.command, err, msg)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return domain.DispatchResult{}, ErrEmptyOutput
	}
	return w.parse(out), nil
}

// parse accepts the JSON envelope and falls back to treating stdout as the answer.
func (w *Worker) parse(out string) domain.DispatchResult {
	if strings.HasPrefix(out, "{") && strings.HasSuffix(out, "}") {
		var env envelope
		if err := json.Unmarshal([]byte(out), &env); err == nil && env.Success != nil {
			if !*env.Success {
				res := domain.Failed(w.desc.Name, domain.ErrorWorkerFailure, nil)
				res.Err = env.Error
				res.RedirectTo = env.RedirectTo
				return res
			}
			text := env.Response
			if text == "" {
				text = env.Text
			}
			res := domain.Succeeded(w.desc.Name, text)
			res.RedirectTo = env.RedirectTo
			return res
		}
	}
	return domain.Succeeded(w.desc.Name, out)
}

// Capabilities implements ports.Worker.
func (w *Worker) Capabilities() domain.WorkerDescriptor {
	return w.desc.Clone()
}

// HealthCheck reports whether the command can still be found.
func (w *Worker) HealthCheck(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	_, err := exec.LookPath(w.command)
	return err == nil
}
