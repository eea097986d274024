package engine

import (
	"log/slog"

	"github.com/stratadb/strata/internal/entity"
	"github.com/stratadb/strata/internal/order"
	"github.com/stratadb/strata/internal/port"
)

// Registry resolves the declared descriptor of an entity type. Implemented
// by schema.Registry; the engine only needs the lookup.
type Registry interface {
	Descriptor(entityType string) (*entity.Descriptor, bool)
}

// DefaultTenant is the tenant partition used when a caller passes an empty
// tenant and the configuration names no other default.
const DefaultTenant = "default"

// Config carries everything an Engine needs. Registry and Port are
// mandatory; the remaining fields default to production implementations.
//
// There is no process-wide registration anywhere in the package: the caller
// owns the configuration and may run several engines with different
// registries side by side.
type Config struct {
	// Registry resolves entity type descriptors. Required.
	Registry Registry

	// Port is the row store all reads and writes go through. Required.
	Port port.Port

	// Clock stamps active range boundaries. Defaults to SystemClock.
	Clock Clock

	// TokenGen produces per-operation correlation tokens for logging.
	// Defaults to UUIDv7Generator.
	TokenGen TokenGenerator

	// DefaultTenant substitutes for an empty tenant argument.
	// Defaults to "default".
	DefaultTenant string

	// Logger receives structured operation logs. Defaults to slog.Default.
	Logger *slog.Logger
}

// Engine is the state lifecycle manager: the only component that mutates
// persisted revisions. Writes go through Save, SetDeleteFlag and
// RemoveDeleteFlag; everything else is a read over temporal predicates.
//
// Thread-safety model:
//   - all methods are safe from any goroutine
//   - saves for one (entityType, id, tenant) key are serialized by an
//     internal keyed mutex; saves for different keys proceed independently
//   - reads never take the keyed mutex
type Engine struct {
	registry Registry
	port     port.Port
	clock    Clock
	tokens   TokenGenerator
	tenant   string
	log      *slog.Logger

	order *order.Engine
	locks *keyedMutex
}

// New validates cfg and constructs an Engine. Missing Registry or Port is a
// CONFIGURATION error; optional fields are defaulted.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, configurationError("registry is required")
	}
	if cfg.Port == nil {
		return nil, configurationError("persistence port is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.TokenGen == nil {
		cfg.TokenGen = UUIDv7Generator{}
	}
	if cfg.DefaultTenant == "" {
		cfg.DefaultTenant = DefaultTenant
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{
		registry: cfg.Registry,
		port:     cfg.Port,
		clock:    cfg.Clock,
		tokens:   cfg.TokenGen,
		tenant:   cfg.DefaultTenant,
		log:      cfg.Logger,
		order:    order.NewEngine(cfg.Port),
		locks:    newKeyedMutex(),
	}, nil
}

// resolveTenant maps an empty tenant argument to the configured default.
// Every public operation funnels through this, so the "default tenant" call
// shape and the explicit-tenant call shape share one implementation.
func (e *Engine) resolveTenant(tenantID string) string {
	if tenantID == "" {
		return e.tenant
	}
	return tenantID
}

// descriptor resolves the entity type or reports a CONFIGURATION error.
func (e *Engine) descriptor(entityType string) (*entity.Descriptor, error) {
	d, ok := e.registry.Descriptor(entityType)
	if !ok {
		return nil, configurationError("entity type " + entityType + " is not registered")
	}
	return d, nil
}
