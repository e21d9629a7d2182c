// Package observable provides attribute models that announce their own
// changes.
//
// # Overview
//
// A Model holds a map of attributes and embeds an *event.Channel. Every
// mutation goes through Set, SetAll, Unset or Clear, which compute what
// changed and fire events:
//
//	user := observable.New(&observable.Definition{
//	    Name:     "user",
//	    Defaults: observable.Attributes{"role": "guest"},
//	}, observable.Attributes{"name": "ada"})
//
//	user.On("change:name", event.Func(func(args ...any) {
//	    fmt.Println("renamed to", args[1])
//	}), nil)
//
//	user.Set("name", "grace")
//
// # Change Aggregation
//
// Handlers may mutate the model they are observing. Nested mutations fire
// their own "change:<key>" events immediately, but the single "change"
// event belongs to the outermost call, which repeats it until a pass of
// handlers makes no further change. HasChanged and ChangedAttributes report
// the net difference from the attributes before the outermost call.
//
// # Definitions
//
// A Definition describes a kind of model: defaults, identity attribute,
// hooks and validator. Definitions can be built in code or loaded from YAML
// or JSON documents with LoadDefinition, and shared through a Catalog.
//
// # Equality
//
// Attributes are compared with DeepEqual unless a Definition sets Equal
// (StrictEqual compares comparable values with ==).
//
// # Persistence
//
// Destroy can hand the model to a Persister and, with Wait, defer teardown
// until the persister acknowledges. See the store package for an
// implementation backed by memory or SQLite.
//
// # Thread Safety
//
// Models are not safe for concurrent use. Definitions and Catalogs are.
package observable
