package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/client"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/desertthunder/audioquery/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	store      *mediastore.SQLiteStore
	ownsStore  bool
	client     *client.Client
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      *mediastore.SQLiteStore // opened from Config.Database on first use when nil
	Client     *client.Client          // built from Config.Server when nil
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Client == nil {
		opts.Client = client.New(client.BaseURL(opts.Config.Server), opts.HTTPClient)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		client:     opts.Client,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, scanCommand, callCommand, serveCommand, permissionCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openStore returns the media store, opening the configured database on first use.
func (r *Runner) openStore() (*mediastore.SQLiteStore, error) {
	if r.store != nil {
		return r.store, nil
	}

	store, err := mediastore.Open(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open media store: %w", err)
	}
	r.store = store
	r.ownsStore = true
	return store, nil
}

// Close releases the store if the runner opened it.
func (r *Runner) Close() error {
	if r.store == nil || !r.ownsStore {
		return nil
	}
	err := r.store.Close()
	r.store = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", ui.Styles().Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
