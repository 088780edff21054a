package feature

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrFunctionExists   = errors.New("feature function already registered")
	ErrFunctionNotFound = errors.New("feature function not found")
)

// Factory builds a feature function of the requested dimension.
type Factory func(dim int) (Function, error)

var factoryRegistry = struct {
	mu sync.RWMutex
	m  map[string]Factory
}{
	m: make(map[string]Factory),
}

func init() {
	initializeBuiltInFunctions()
}

func initializeBuiltInFunctions() {
	MustRegister(HashedName, func(dim int) (Function, error) { return NewHashed(dim) })
}

func Register(name string, factory Factory) error {
	if name == "" {
		return errors.New("feature function name is required")
	}
	if factory == nil {
		return errors.New("feature function factory is required")
	}

	factoryRegistry.mu.Lock()
	defer factoryRegistry.mu.Unlock()

	if _, exists := factoryRegistry.m[name]; exists {
		return errors.Wrapf(ErrFunctionExists, "%s", name)
	}
	factoryRegistry.m[name] = factory
	return nil
}

func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// New builds the named feature function.
func New(name string, dim int) (Function, error) {
	factoryRegistry.mu.RLock()
	factory, ok := factoryRegistry.m[name]
	factoryRegistry.mu.RUnlock()
	if !ok {
		return nil, errors.WithHintf(errors.Wrapf(ErrFunctionNotFound, "%s", name), "known feature functions: %v", List())
	}
	fn, err := factory(dim)
	if err != nil {
		return nil, errors.Wrapf(err, "build feature function %s", name)
	}
	return fn, nil
}

func List() []string {
	factoryRegistry.mu.RLock()
	defer factoryRegistry.mu.RUnlock()

	names := make([]string, 0, len(factoryRegistry.m))
	for name := range factoryRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	factoryRegistry.mu.Lock()
	factoryRegistry.m = make(map[string]Factory)
	factoryRegistry.mu.Unlock()
	initializeBuiltInFunctions()
}
