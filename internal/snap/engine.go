package snap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Engine executes a complete processing graph.
type Engine interface {
	Execute(ctx context.Context, g *Graph) error
}

// tailLines is how much engine output is kept for error messages.
const tailLines = 20

// waitDelay bounds how long output pipes are drained after the process is killed.
const waitDelay = 30 * time.Second

// GPT runs graphs with SNAP's Graph Processing Tool.
type GPT struct {
	path        string
	cacheSize   string
	parallelism int
	timeout     time.Duration
	logger      *slog.Logger
}

// NewGPT creates an engine that invokes the gpt executable at path.
func NewGPT(path string) *GPT {
	return &GPT{
		path:   path,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the engine
func (e *GPT) WithLogger(logger *slog.Logger) *GPT {
	e.logger = logger
	return e
}

// WithCacheSize sets the tile cache size passed with -c (e.g. "8G").
func (e *GPT) WithCacheSize(size string) *GPT {
	e.cacheSize = size
	return e
}

// WithParallelism sets the thread count passed with -q.
func (e *GPT) WithParallelism(n int) *GPT {
	e.parallelism = n
	return e
}

// WithTimeout bounds a single graph execution. Zero means no limit.
func (e *GPT) WithTimeout(d time.Duration) *GPT {
	e.timeout = d
	return e
}

// Execute writes the graph to a temporary file and runs gpt on it.
func (e *GPT) Execute(ctx context.Context, g *Graph) error {
	if !g.Written() {
		return ErrNoOutput
	}

	f, err := os.CreateTemp("", "s1prep-graph-*.xml")
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	defer os.Remove(f.Name())

	if err := g.Encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write graph file: %w", err)
	}

	args := e.args(f.Name())

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	out := &lineLogger{ctx: ctx, logger: e.logger}
	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	// gpt is a launcher script; don't wait forever on a JVM that outlives it
	cmd.WaitDelay = waitDelay

	e.logger.DebugContext(ctx, "executing gpt",
		slog.String("path", e.path),
		slog.String("args", strings.Join(args, " ")),
	)

	start := time.Now()
	if err := cmd.Run(); err != nil {
		out.flush()
		e.logger.ErrorContext(ctx, "gpt failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		if tail := out.tail(); tail != "" {
			return fmt.Errorf("%w: %s: %v: %s", ErrEngine, e.path, err, tail)
		}
		return fmt.Errorf("%w: %s: %v", ErrEngine, e.path, err)
	}
	out.flush()

	e.logger.DebugContext(ctx, "gpt completed",
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (e *GPT) args(graphFile string) []string {
	args := []string{graphFile}
	if e.parallelism > 0 {
		args = append(args, "-q", strconv.Itoa(e.parallelism))
	}
	if e.cacheSize != "" {
		args = append(args, "-c", e.cacheSize)
	}
	return args
}

// lineLogger forwards engine output to the logger line by line and keeps the
// last few lines for error reporting.
type lineLogger struct {
	ctx    context.Context
	logger *slog.Logger

	mu    sync.Mutex
	buf   bytes.Buffer
	lines []string
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(line)
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	l.logger.DebugContext(l.ctx, "gpt", slog.String("line", line))
	l.lines = append(l.lines, line)
	if len(l.lines) > tailLines {
		l.lines = l.lines[len(l.lines)-tailLines:]
	}
}

func (l *lineLogger) tail() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}
