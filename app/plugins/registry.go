package plugins

import (
	"fmt"
	"sort"

	"github.com/kilianp07/derval/core/factory"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/valuestream"
)

// StreamFactory builds a value stream from a raw configuration map and the
// scenario input tables.
type StreamFactory func(name string, conf map[string]any, in valuestream.Inputs) (valuestream.ValueStream, error)

var (
	Streams   = map[string]StreamFactory{}
	Resources = factory.NewRegistry[model.DER]()
)

func RegisterStream(name string, f StreamFactory) { Streams[name] = f }

// RegisterResource adds a resource factory. Registering a name twice fails.
func RegisterResource(name string, f factory.Factory[model.DER]) error {
	return Resources.Register(name, f)
}

// StreamTypes returns the registered stream types in sorted order.
func StreamTypes() []string {
	names := make([]string, 0, len(Streams))
	for n := range Streams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewStream instantiates the stream described by cfg.
func NewStream(cfg factory.ModuleConfig, in valuestream.Inputs) (valuestream.ValueStream, error) {
	f, ok := Streams[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown value stream type %q (known: %v)", cfg.Type, StreamTypes())
	}
	conf := cfg.Conf
	if conf == nil {
		conf = map[string]any{}
	}
	return f(cfg.Type, conf, in)
}

// NewResource instantiates the resource described by cfg.
func NewResource(cfg factory.ModuleConfig) (model.DER, error) {
	return Resources.Create(cfg)
}
