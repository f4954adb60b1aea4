package integrations

import orderedmap "github.com/wk8/go-ordered-map/v2"

// Object is a JSON object whose keys serialize in insertion order.
type Object = orderedmap.OrderedMap[string, any]

func newObject() *Object {
	return orderedmap.New[string, any]()
}
