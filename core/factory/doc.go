// Package factory maps configuration entries to implementations. A module is
// described by a type name and a raw settings map; the registered factory
// decodes the map into its own struct with Decode.
//
//	reg := factory.NewRegistry[model.DER]()
//	_ = reg.Register("battery", func(conf map[string]any) (model.DER, error) {
//	    var b model.Battery
//	    if err := factory.Decode(conf, &b); err != nil {
//	        return nil, err
//	    }
//	    return b, nil
//	})
//	der, err := reg.Create(factory.ModuleConfig{Type: "battery", Conf: map[string]any{"discharge_kw": 25}})
package factory
