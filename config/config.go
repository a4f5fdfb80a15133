// Package config provides YAML loading, validation, and hot reload for
// named resilience policies.
package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/fuse/resilience"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "100ms" or "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// File is the top-level policy configuration file.
type File struct {
	Policies map[string]Policy `yaml:"policies"`
}

// Policy declares the resilience settings for one guarded dependency.
type Policy struct {
	Breaker    BreakerConfig `yaml:"breaker"`
	Retry      RetryConfig   `yaml:"retry"`
	Accounting string        `yaml:"accounting"` // per-operation | per-attempt
	Timeout    Duration      `yaml:"timeout"`    // optional per-attempt timeout
}

// BreakerConfig declares circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold         int      `yaml:"failure_threshold"`
	HalfOpenSuccessThreshold int      `yaml:"half_open_success_threshold"`
	HalfOpenMaxProbes        int      `yaml:"half_open_max_probes"`
	ResetTimeout             Duration `yaml:"reset_timeout"`
}

// RetryConfig declares retry settings.
type RetryConfig struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	BaseDelay      Duration `yaml:"base_delay"`
	MaxDelay       Duration `yaml:"max_delay"`
	JitterFraction float64  `yaml:"jitter_fraction"`
}

// Load reads and validates a policy file. Unknown fields are rejected.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates policy file contents.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every policy by building its components, so a file that
// loads is a file whose executors will construct.
func (f *File) Validate() error {
	if len(f.Policies) == 0 {
		return fmt.Errorf("config: no policies defined")
	}

	names := make([]string, 0, len(f.Policies))
	for name := range f.Policies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := f.Policies[name].Build(); err != nil {
			return fmt.Errorf("config: policy %q: %w", name, err)
		}
	}
	return nil
}

// AccountingMode resolves the policy's accounting label.
func (p Policy) AccountingMode() (resilience.AccountingMode, error) {
	switch p.Accounting {
	case "per-operation":
		return resilience.AccountPerOperation, nil
	case "per-attempt":
		return resilience.AccountPerAttempt, nil
	default:
		return 0, fmt.Errorf("unknown accounting mode %q (want per-operation or per-attempt)", p.Accounting)
	}
}

// Build constructs an executor from the policy. The returned executor
// owns a fresh breaker; call Build once per guarded dependency and reuse
// the result.
func (p Policy) Build(opts ...resilience.ExecutorOption) (*resilience.Executor, error) {
	mode, err := p.AccountingMode()
	if err != nil {
		return nil, err
	}

	breaker, err := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold:         p.Breaker.FailureThreshold,
		HalfOpenSuccessThreshold: p.Breaker.HalfOpenSuccessThreshold,
		HalfOpenMaxProbes:        p.Breaker.HalfOpenMaxProbes,
		ResetTimeout:             p.Breaker.ResetTimeout.Std(),
	})
	if err != nil {
		return nil, err
	}

	retry, err := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:    p.Retry.MaxAttempts,
		BaseDelay:      p.Retry.BaseDelay.Std(),
		MaxDelay:       p.Retry.MaxDelay.Std(),
		JitterFraction: p.Retry.JitterFraction,
	})
	if err != nil {
		return nil, err
	}

	if p.Timeout > 0 {
		timeout, err := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: p.Timeout.Std()})
		if err != nil {
			return nil, err
		}
		opts = append(opts, resilience.WithTimeout(timeout))
	}

	return resilience.NewExecutor(breaker, retry, mode, opts...)
}
