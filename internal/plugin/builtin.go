package plugin

import (
	"context"
	"fmt"
	"sync"

	pluginapi "github.com/Stavily/06-Plugins/pluginapi"
)

// BuiltinFactory creates the runtime for a compiled-in plugin. The
// factory receives the full plugin definition config, name field
// included.
type BuiltinFactory func(config pluginapi.Config) (*pluginapi.Runtime, error)

var builtinPlugins = map[string]BuiltinFactory{}

// RegisterBuiltin registers a builtin plugin factory under a name.
// Registration happens from init functions, so duplicates are a
// programming error and panic.
func RegisterBuiltin(name string, factory BuiltinFactory) {
	if _, exists := builtinPlugins[name]; exists {
		panic(fmt.Sprintf("builtin plugin %s already registered", name))
	}
	builtinPlugins[name] = factory
}

func NewBuiltinPlugin(config pluginapi.Config) (Transport, error) {
	nameRaw, ok := config["name"]
	if !ok {
		return nil, fmt.Errorf("builtin plugin requires 'name' field")
	}

	name, ok := nameRaw.(string)
	if !ok {
		return nil, fmt.Errorf("builtin plugin 'name' must be a string")
	}

	factory, ok := builtinPlugins[name]
	if !ok {
		return nil, fmt.Errorf("builtin plugin not found: %s", name)
	}

	runtime, err := factory(config)
	if err != nil {
		return nil, err
	}

	return &builtinTransport{runtime: runtime}, nil
}

// builtinTransport dispatches to an in-process runtime. The mutex
// mirrors the one-request-in-flight rule subprocess plugins get from
// their pipes.
type builtinTransport struct {
	mu      sync.Mutex
	runtime *pluginapi.Runtime
}

var _ Transport = &builtinTransport{}

func (t *builtinTransport) Call(ctx context.Context, req *pluginapi.RequestEnvelope) (*pluginapi.ResponseEnvelope, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runtime.Dispatch(ctx, req), nil
}

func (t *builtinTransport) Close(_ context.Context) error {
	return nil
}
