// Package tokenizer counts tokens under a fixed BPE encoding.
//
// Encoding tables are expensive to build, so each (backend, encoding) pair is
// initialised at most once per process, on first use, and shared read-only by
// every caller afterwards. [Get] is the only way to obtain a counter; the
// returned value is safe for concurrent use.
//
// Backends:
//
//	embedded  = github.com/tiktoken-go/tokenizer, tables compiled in (default)
//	tiktoken  = github.com/pkoukk/tiktoken-go, ranks loaded on first use
//	heuristic = character estimate, no encoding table
package tokenizer

import (
	"errors"
	"fmt"
	"sync"
)

// Backend selects the implementation that backs a Counter.
type Backend string

const (
	// BackendEmbedded uses BPE tables compiled into the binary. No network.
	BackendEmbedded Backend = "embedded"
	// BackendTiktoken loads BPE ranks at first use and caches them on disk
	// (TIKTOKEN_CACHE_DIR).
	BackendTiktoken Backend = "tiktoken"
	// BackendHeuristic estimates tokens from the character count.
	BackendHeuristic Backend = "heuristic"
)

// DefaultEncoding is the encoding used when none is configured.
const DefaultEncoding = "o200k_base"

var (
	// ErrUnknownBackend is returned by Get for an unsupported backend name.
	ErrUnknownBackend = errors.New("tokenizer: unknown backend")
	// ErrUnknownEncoding is returned by Get for an unsupported encoding name.
	ErrUnknownEncoding = errors.New("tokenizer: unknown encoding")
)

// knownEncodings lists the encodings every table-backed backend supports.
var knownEncodings = map[string]bool{
	"o200k_base":  true,
	"cl100k_base": true,
	"p50k_base":   true,
	"r50k_base":   true,
}

// Counter maps text to its token count. Implementations are pure and
// deterministic: the same text always yields the same count.
type Counter interface {
	// Count returns the number of tokens in text. Empty text counts as 0.
	Count(text string) (int, error)
}

// registryKey identifies one shared counter.
type registryKey struct {
	backend  Backend
	encoding string
}

// registryEntry builds its counter exactly once; an init error is kept and
// returned to every later caller.
type registryEntry struct {
	once    sync.Once
	counter Counter
	err     error
}

var (
	registryMu sync.Mutex
	registry   = make(map[registryKey]*registryEntry)
)

// Get returns the process-wide counter for backend and encoding, building it
// on first use. Empty values select BackendEmbedded and DefaultEncoding.
func Get(backend Backend, encoding string) (Counter, error) {
	if backend == "" {
		backend = BackendEmbedded
	}
	if encoding == "" {
		encoding = DefaultEncoding
	}
	if err := validate(backend, encoding); err != nil {
		return nil, err
	}

	key := registryKey{backend: backend, encoding: encoding}

	registryMu.Lock()
	entry, ok := registry[key]
	if !ok {
		entry = &registryEntry{}
		registry[key] = entry
	}
	registryMu.Unlock()

	entry.once.Do(func() {
		entry.counter, entry.err = build(backend, encoding)
	})
	return entry.counter, entry.err
}

// Default returns the embedded o200k_base counter.
func Default() (Counter, error) {
	return Get(BackendEmbedded, DefaultEncoding)
}

// Count counts text with the Default counter.
func Count(text string) (int, error) {
	c, err := Default()
	if err != nil {
		return 0, err
	}
	return c.Count(text)
}

// validate rejects unknown backend and encoding names before anything is
// registered.
func validate(backend Backend, encoding string) error {
	switch backend {
	case BackendEmbedded, BackendTiktoken:
		if !knownEncodings[encoding] {
			return fmt.Errorf("%w %q: valid values: o200k_base, cl100k_base, p50k_base, r50k_base", ErrUnknownEncoding, encoding)
		}
		return nil
	case BackendHeuristic:
		return nil
	default:
		return fmt.Errorf("%w %q: valid values: embedded, tiktoken, heuristic", ErrUnknownBackend, backend)
	}
}

// build constructs the counter for an already validated pair.
func build(backend Backend, encoding string) (Counter, error) {
	var (
		c   Counter
		err error
	)
	switch backend {
	case BackendEmbedded:
		c, err = newEmbedded(encoding)
	case BackendTiktoken:
		c, err = newTiktoken(encoding)
	default:
		c = Heuristic{}
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
