package metacodec

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	eng "github.com/reoring/metacodec/internal/engine"
)

// Severity controls how a detected duplicate JSON object key is treated.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Fail
)

func (s Severity) String() string {
	switch s {
	case Warn:
		return "warn"
	case Fail:
		return "error"
	default:
		return "ignore"
	}
}

// UnmarshalYAML accepts "ignore", "warn" and "error".
func (s *Severity) UnmarshalYAML(n *yaml.Node) error {
	switch strings.ToLower(n.Value) {
	case "", "ignore":
		*s = Ignore
	case "warn":
		*s = Warn
	case "error", "fail":
		*s = Fail
	default:
		return fmt.Errorf("line %d: unknown severity %q", n.Line, n.Value)
	}
	return nil
}

func (s Severity) strictness() eng.DuplicateStrictness {
	switch s {
	case Warn:
		return eng.DupWarn
	case Fail:
		return eng.DupError
	default:
		return eng.DupIgnore
	}
}

// EntityResolver opens the resource named by an external entity's system
// identifier, already resolved against the document base.
type EntityResolver func(ctx context.Context, systemID string) (io.ReadCloser, error)

// Config carries every reader and writer option. The zero value is usable
// and equals DefaultConfig except for the problem handler, which falls back
// to DefaultProblemHandler when nil.
type Config struct {
	// AllowEntityResolution substitutes DTD entities and fetches external
	// ones. Off by default: references expand to nothing and nothing is
	// fetched.
	AllowEntityResolution bool `yaml:"allowEntityResolution"`
	// BaseURI is the document location used to resolve relative system
	// identifiers.
	BaseURI string `yaml:"baseURI"`
	// EntityResolver overrides the default file/http resolver.
	EntityResolver EntityResolver `yaml:"-"`

	ProblemHandler ProblemHandler `yaml:"-"`
	// Logger overrides the logger taken from the context.
	Logger *log.Logger `yaml:"-"`

	// MaxDepth bounds JSON nesting; 0 means unlimited.
	MaxDepth int `yaml:"maxDepth"`
	// OnDuplicateKey applies to repeated keys inside one JSON object.
	OnDuplicateKey Severity `yaml:"onDuplicateKey"`

	// Indent pretty-prints output when non-empty.
	Indent string `yaml:"indent"`
	// JSONRootProperty wraps the JSON root object in a property named after
	// the root definition.
	JSONRootProperty bool `yaml:"jsonRootProperty"`
}

// DefaultConfig returns the XXE-safe defaults.
func DefaultConfig() Config {
	return Config{ProblemHandler: DefaultProblemHandler{}}
}

// LoadConfig reads the serializable options from a YAML document on top of
// DefaultConfig.
func LoadConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, Errorf(Resource, CodeParseError, "config: %v", err).WithCause(err)
	}
	return cfg, nil
}

// Problems returns the configured problem handler or the default one.
func (c Config) Problems() ProblemHandler {
	if c.ProblemHandler == nil {
		return DefaultProblemHandler{}
	}
	return c.ProblemHandler
}

// LoggerFor returns Config.Logger, else the logger carried by ctx.
func (c Config) LoggerFor(ctx context.Context) *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.FromContext(ctx)
}

// Enforcement returns the token-level checks implied by the config.
// Duplicate keys at Warn severity are logged to LoggerFor(ctx).
func (c Config) Enforcement(ctx context.Context) eng.EnforceOptions {
	opt := eng.EnforceOptions{OnDuplicate: c.OnDuplicateKey.strictness(), MaxDepth: c.MaxDepth}
	if c.OnDuplicateKey == Warn {
		logger := c.LoggerFor(ctx)
		opt.IssueSink = func(si eng.SimpleIssue) {
			logger.Warn(si.Message, "code", si.Code, "path", si.Path)
		}
	}
	return opt
}

// Enforced reports whether Enforcement does anything.
func (c Config) Enforced() bool { return c.MaxDepth > 0 || c.OnDuplicateKey != Ignore }

// ResolveEntity opens an external entity. Relative identifiers are resolved
// against BaseURI; file and http(s) locations are supported unless an
// EntityResolver is configured.
func (c Config) ResolveEntity(ctx context.Context, systemID string) (io.ReadCloser, error) {
	if !c.AllowEntityResolution {
		return nil, Errorf(Resource, CodeIO, "entity resolution disabled: %s", systemID)
	}
	loc, err := resolveAgainst(c.BaseURI, systemID)
	if err != nil {
		return nil, Errorf(Resource, CodeIO, "resolve %q: %v", systemID, err).WithCause(err)
	}
	if c.EntityResolver != nil {
		return c.EntityResolver(ctx, loc)
	}
	u, err := url.Parse(loc)
	if err != nil {
		return nil, Errorf(Resource, CodeIO, "resolve %q: %v", systemID, err).WithCause(err)
	}
	switch u.Scheme {
	case "", "file":
		p := u.Path
		if u.Scheme == "" {
			p = loc
		}
		f, err := os.Open(filepath.FromSlash(p))
		if err != nil {
			return nil, Errorf(Resource, CodeIO, "open entity: %v", err).WithCause(err)
		}
		return f, nil
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
		if err != nil {
			return nil, Errorf(Resource, CodeIO, "fetch entity: %v", err).WithCause(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, Errorf(Resource, CodeIO, "fetch entity: %v", err).WithCause(err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, Errorf(Resource, CodeIO, "fetch entity %s: %s", loc, resp.Status)
		}
		return resp.Body, nil
	}
	return nil, Errorf(Resource, CodeIO, "unsupported entity scheme %q", u.Scheme)
}

func resolveAgainst(base, ref string) (string, error) {
	if base == "" {
		return ref, nil
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if r.IsAbs() {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if b.Scheme == "" {
		return filepath.Join(filepath.Dir(base), filepath.FromSlash(ref)), nil
	}
	return b.ResolveReference(r).String(), nil
}
