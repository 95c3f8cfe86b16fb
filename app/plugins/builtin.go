package plugins

import (
	"github.com/kilianp07/derval/core/factory"
	"github.com/kilianp07/derval/core/model"
	"github.com/kilianp07/derval/core/valuestream"
)

func init() {
	RegisterStream("resource_adequacy", func(_ string, conf map[string]any, in valuestream.Inputs) (valuestream.ValueStream, error) {
		return valuestream.NewResourceAdequacy(conf, in)
	})
	RegisterStream("spinning_reserve", func(_ string, conf map[string]any, in valuestream.Inputs) (valuestream.ValueStream, error) {
		return valuestream.NewSpinningReserve(conf, in)
	})
	RegisterStream("user_constraints", func(_ string, conf map[string]any, in valuestream.Inputs) (valuestream.ValueStream, error) {
		return valuestream.NewUserConstraints(conf, in)
	})

	_ = RegisterResource("battery", func(conf map[string]any) (model.DER, error) {
		var b model.Battery
		if err := factory.Decode(conf, &b); err != nil {
			return nil, err
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		return b, nil
	})
	_ = RegisterResource("generator", func(conf map[string]any) (model.DER, error) {
		var g model.Generator
		if err := factory.Decode(conf, &g); err != nil {
			return nil, err
		}
		return g, nil
	})
	_ = RegisterResource("pv", func(conf map[string]any) (model.DER, error) {
		var p model.PV
		if err := factory.Decode(conf, &p); err != nil {
			return nil, err
		}
		return p, nil
	})
	_ = RegisterResource("vehicle", func(conf map[string]any) (model.DER, error) {
		var v model.Vehicle
		if err := factory.Decode(conf, &v); err != nil {
			return nil, err
		}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		return v, nil
	})
}
