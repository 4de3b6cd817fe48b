// Package config loads the CUE run configuration.
//
// A user file is unified with the embedded #Config schema, so unknown
// fields and out-of-range values are rejected with source positions and
// omitted fields take the schema defaults.
package config

import (
	_ "embed"
	stderrors "errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/splitcore/internal/cmdqueue"
)

//go:embed schema.cue
var schemaCUE string

// Config is a validated run configuration.
type Config struct {
	Frames           int          `json:"frames"`
	Producers        int          `json:"producers"`
	Policy           string       `json:"policy"`
	CommandsPerFrame int          `json:"commands_per_frame"`
	BlockingSubmit   bool         `json:"blocking_submit"`
	MaxPooledBuffers int          `json:"max_pooled_buffers"`
	FrameChunkSize   int          `json:"frame_chunk_size"`
	Resources        Resources    `json:"resources"`
	Trace            Trace        `json:"trace"`
	Metrics          Metrics      `json:"metrics"`
	Breakpoints      []Breakpoint `json:"breakpoints"`
}

// Resources sets how many objects of each kind the run creates.
type Resources struct {
	Textures int `json:"textures"`
	Meshes   int `json:"meshes"`
	Cameras  int `json:"cameras"`
}

// Trace configures the SQLite trace.
type Trace struct {
	DB      string `json:"db"`
	Session string `json:"session"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Addr string `json:"addr"`
}

// Breakpoint addresses one command as queue:index.
type Breakpoint struct {
	Queue uint32 `json:"queue"`
	Index uint32 `json:"index"`
}

// QueuePolicy maps Policy to the cmdqueue value.
func (c Config) QueuePolicy() cmdqueue.Policy {
	if c.Policy == "sync" {
		return cmdqueue.Sync
	}
	return cmdqueue.NoSync
}

// Meta returns the settings that identify a run, for trace sessions.
func (c Config) Meta() map[string]any {
	return map[string]any{
		"frames":             c.Frames,
		"producers":          c.Producers,
		"policy":             c.Policy,
		"commands_per_frame": c.CommandsPerFrame,
		"blocking_submit":    c.BlockingSubmit,
		"textures":           c.Resources.Textures,
		"meshes":             c.Resources.Meshes,
		"cameras":            c.Resources.Cameras,
	}
}

// Error is a configuration error with source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos

	cause error
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying CUE error.
func (e *Error) Unwrap() error { return e.cause }

// Default returns the schema defaults.
func Default() Config {
	cfg, err := Parse(nil, "default.cue")
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded schema defaults invalid: %v", err))
	}
	return cfg
}

// Load reads and validates a CUE file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Parse validates CUE source against the schema. filename is used in
// error positions. Empty src yields the defaults.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	user := ctx.CompileBytes(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	value := def.Unify(user)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := value.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	if cfg.Breakpoints == nil {
		cfg.Breakpoints = []Breakpoint{}
	}
	return cfg, nil
}

// Errors lists every CUE error in err, one message per element.
func Errors(err error) []string {
	if err == nil {
		return nil
	}
	var cueErr errors.Error
	if !stderrors.As(err, &cueErr) {
		return []string{err.Error()}
	}
	errs := errors.Errors(cueErr)
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "config"
	if path := first.Path(); len(path) > 0 {
		field = joinPath(path)
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		return &Error{Field: field, Message: first.Error(), Pos: positions[0], cause: err}
	}
	return &Error{Field: field, Message: first.Error(), cause: err}
}

func joinPath(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}
