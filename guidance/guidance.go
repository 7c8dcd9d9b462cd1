// Package guidance maps terminal retry failures to service-specific remediation
// advice. The default table covers the services this library ships wrappers for
// (Jira, Slack, Google, PostHog), keyed by (service, failure category), so new
// services can be added by editing data rather than the retry loop.
package guidance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"

	_ "embed"

	"gopkg.in/yaml.v3"
)

// Category is the broad classification of a terminal failure, used as the
// second half of a guidance-table key.
type Category string

const (
	// CategoryAuth covers rejected credentials (HTTP 401).
	CategoryAuth Category = "auth"
	// CategoryForbidden covers valid credentials with insufficient permissions (HTTP 403).
	CategoryForbidden Category = "forbidden"
	// CategoryNotFound covers missing resources (HTTP 404).
	CategoryNotFound Category = "not_found"
	// CategoryRateLimited covers throttling responses (HTTP 429).
	CategoryRateLimited Category = "rate_limited"
	// CategoryServerError covers upstream 5xx responses.
	CategoryServerError Category = "server_error"
	// CategoryNetwork covers connection-level failures (refused, reset).
	CategoryNetwork Category = "network"
	// CategoryTimeout covers deadlines and socket timeouts.
	CategoryTimeout Category = "timeout"
	// CategoryUnknown is returned when no category applies. It never matches
	// a table entry.
	CategoryUnknown Category = ""
)

// Advice is the remediation attached to a terminal failure: an ordered list of
// recovery steps plus a single human-readable summary.
type Advice struct {
	Recovery   []string `yaml:"recovery"`
	Suggestion string   `yaml:"suggestion"`
}

// Guide looks up remediation advice for a (service, category) pair.
// A miss is not an error condition; it simply means no advice is attached.
type Guide interface {
	Lookup(service string, category Category) (Advice, bool)
}

// Table is a data-driven Guide: service name -> category -> advice.
type Table map[string]map[Category]Advice

// Lookup implements Guide.
func (t Table) Lookup(service string, category Category) (Advice, bool) {
	categories, ok := t[service]
	if !ok {
		return Advice{}, false
	}

	advice, ok := categories[category]

	return advice, ok
}

// Validate checks that every table entry carries a suggestion and at least one
// recovery step, and returns all violations joined into a single error.
func (t Table) Validate() error {
	var errs []error

	for service, categories := range t {
		for category, advice := range categories {
			if advice.Suggestion == "" {
				errs = append(errs, fmt.Errorf("%w: %s/%s has no suggestion",
					ErrInvalidEntry, service, category))
			}

			if len(advice.Recovery) == 0 {
				errs = append(errs, fmt.Errorf("%w: %s/%s has no recovery steps",
					ErrInvalidEntry, service, category))
			}
		}
	}

	return errors.Join(errs...)
}

// ErrInvalidEntry is returned by Table.Validate for malformed entries.
var ErrInvalidEntry = errors.New("invalid guidance entry")

//go:embed table.yaml
var defaultTableYAML []byte

var (
	defaultTable     Table //nolint:gochecknoglobals // Parsed once, read-only afterwards
	defaultTableOnce sync.Once
)

// DefaultTable returns the built-in guidance table. The embedded document is
// parsed on first use; a parse failure here is a packaging bug, so it panics.
func DefaultTable() Table {
	defaultTableOnce.Do(func() {
		table, err := Parse(defaultTableYAML)
		if err != nil {
			panic("guidance: embedded table is malformed: " + err.Error())
		}

		defaultTable = table
	})

	return defaultTable
}

// Parse decodes a YAML guidance table and validates its entries.
func Parse(data []byte) (Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing guidance table: %w", err)
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	return table, nil
}

// Load decodes a YAML guidance table from a reader, for callers that ship
// their own advice alongside the built-in table.
func Load(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading guidance table: %w", err)
	}

	return Parse(data)
}

// statusCoder is the shape of errors carrying an HTTP status code.
type statusCoder interface {
	StatusCode() int
}

// networkCoder is the shape of errors carrying a transport-level error code
// such as "ECONNREFUSED".
type networkCoder interface {
	NetworkCode() string
}

// Categorize maps a terminal failure to a Category by probing the error's
// shape. Any error that fits none of the known shapes maps to CategoryUnknown.
func Categorize(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return CategoryTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return CategoryNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	var nc networkCoder
	if errors.As(err, &nc) {
		switch nc.NetworkCode() {
		case "ETIMEDOUT":
			return CategoryTimeout
		case "ECONNREFUSED", "ECONNRESET":
			return CategoryNetwork
		}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return categorizeStatus(sc.StatusCode())
	}

	return CategoryUnknown
}

func categorizeStatus(status int) Category {
	switch {
	case status == 401:
		return CategoryAuth
	case status == 403:
		return CategoryForbidden
	case status == 404:
		return CategoryNotFound
	case status == 429:
		return CategoryRateLimited
	case status >= 500 && status <= 599:
		return CategoryServerError
	default:
		return CategoryUnknown
	}
}
