// Package factory instantiates pluggable modules, such as metrics sinks and
// tick log stores, from configuration. A module is named by a type string and
// carries a map of raw settings that the factory decodes into a typed struct.
//
//	reg := factory.NewRegistry[ticklog.Store]()
//	reg.Register("jsonl", func(conf map[string]any) (ticklog.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return ticklog.NewJSONLStore(c.Path, 10, 3, 7)
//	})
package factory
