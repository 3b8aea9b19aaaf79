package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/procguard/internal/config"
	"github.com/Paintersrp/procguard/internal/runtime"
	_ "github.com/Paintersrp/procguard/internal/runtime/docker"
	_ "github.com/Paintersrp/procguard/internal/runtime/process"
)

const (
	defaultManifestFile = "procguard.yaml"

	logFormatText = "text"
	logFormatJSON = "json"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	manifestFile := defaultManifestFile
	if value := os.Getenv("PROCGUARD_FILE"); value != "" {
		manifestFile = value
	}
	logFormat := strings.ToLower(os.Getenv("PROCGUARD_LOG_FORMAT"))
	var verbose bool

	ctx := &context{manifestFile: &manifestFile, logFormat: &logFormat, verbose: &verbose}

	root := &cobra.Command{
		Use:   "procguard",
		Short: "Launch commands and report why they failed to start",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), *ctx.logFormat, *ctx.verbose)
			if err != nil {
				return err
			}
			ctx.logger = logger
			return nil
		},
	}

	root.PersistentFlags().
		StringVarP(&manifestFile, "file", "f", manifestFile, "Path to command manifest")
	root.PersistentFlags().StringVar(&logFormat, "log-format", logFormat, "Log format (text or json); defaults to text on a terminal")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newCheckCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))
	root.AddCommand(newVersionCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return
	}
	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		stop()
		os.Exit(exitErr.code)
	}
	fmt.Fprintln(os.Stderr, err)
	stop()
	os.Exit(1)
}

// exitCodeError carries the status the process should exit with. Commands
// return it after reporting the failure themselves.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string {
	return e.err.Error()
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

type context struct {
	manifestFile *string
	logFormat    *string
	verbose      *bool

	logger   *slog.Logger
	registry runtime.Registry
}

func (c *context) loadManifest() (*config.Manifest, error) {
	return config.Load(*c.manifestFile)
}

func (c *context) getRegistry() runtime.Registry {
	if c.registry == nil {
		c.registry = runtime.NewRegistry()
	}
	return c.registry
}

func (c *context) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.logger
}

func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	format, err := resolveLogFormat(w, format)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if format == logFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func resolveLogFormat(w io.Writer, format string) (string, error) {
	switch format {
	case logFormatText, logFormatJSON:
		return format, nil
	case "":
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return logFormatText, nil
		}
		return logFormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported log format %q (want %s or %s)", format, logFormatText, logFormatJSON)
	}
}
