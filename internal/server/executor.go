package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/handlers"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
)

const defaultCommandTimeout = 5 * time.Second

// CommandExecutor runs registry handlers with a deadline and turns panics
// into error replies.
type CommandExecutor struct {
	registry *handlers.Registry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	timeout  time.Duration
}

func NewCommandExecutor(registry *handlers.Registry, m *metrics.Metrics, logger *slog.Logger, timeout time.Duration) *CommandExecutor {
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandExecutor{
		registry: registry,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
	}
}

// Execute runs one command array such as FT.SUGGET city vil.
func (e *CommandExecutor) Execute(ctx context.Context, value models.Value) (result models.Value) {
	if value.Type != "array" || len(value.Array) == 0 {
		return models.Value{Type: "error", Str: "ERR empty command"}
	}
	cmd := strings.ToUpper(value.Array[0].Bulk)

	startTime := time.Now()
	defer func() {
		e.metrics.ObserveCommand(cmd, time.Since(startTime), result.Type == "error")
	}()

	handler, exists := e.registry.GetHandler(cmd)
	if !exists {
		return models.Value{Type: "error", Str: fmt.Sprintf("ERR unknown command '%s'", value.Array[0].Bulk)}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resultCh := make(chan models.Value, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("panic in command", "command", cmd, "panic", r)
				resultCh <- models.Value{Type: "error", Str: fmt.Sprintf("ERR internal error: %v", r)}
			}
		}()
		resultCh <- handler(ctx, value.Array[1:])
	}()

	select {
	case result = <-resultCh:
		return result
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return models.Value{Type: "error", Str: "ERR command execution timeout"}
		}
		return models.Value{Type: "error", Str: "ERR command execution cancelled"}
	}
}
