package execctx

import (
	"reflect"

	"github.com/mitchellh/copystructure"
)

// deepCopyMap copies a metadata map so the result shares no mutable structure
// with the input.
func deepCopyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

// deepCopyValue copies one metadata value. The common shapes get fast typed
// paths; every other composite kind (typed slices, typed maps, struct
// pointers) goes through a reflection-based copy so no caller-owned mutable
// structure is ever aliased into an entity.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Struct, reflect.Interface:
		copied, err := copystructure.Copy(v)
		if err != nil {
			// Unwalkable value; carrying it as-is beats dropping it.
			return v
		}
		return copied
	default:
		// Strings, numbers, bools, funcs, channels: immutable or identity-only.
		return v
	}
}

// mergeMaps returns a new map with overlay entries written over base.
// Neither input is modified or aliased.
func mergeMaps(base, overlay map[string]any) map[string]any {
	out := deepCopyMap(base)
	for k, v := range overlay {
		out[k] = deepCopyValue(v)
	}
	return out
}
