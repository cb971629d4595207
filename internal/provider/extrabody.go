package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/inferly/gatewaycore/internal/model"
)

// InjectExtraRequestData deep-merges the variant-level, provider-level, and
// request-level extra_body overlays onto payload (§4.2 step 2), in that
// precedence order (request overrides provider overrides variant), and
// returns the merged extra headers with the same precedence. payload must
// already be JSON-marshalable as an object; a fresh map is returned rather
// than mutating the input.
func InjectExtraRequestData(
	payload map[string]any,
	variantBody, providerBody, requestBody []model.ExtraBodyEntry,
	variantHeaders, providerHeaders, requestHeaders map[string]string,
) (map[string]any, map[string]string, error) {
	merged := cloneMap(payload)
	for _, entries := range [][]model.ExtraBodyEntry{variantBody, providerBody, requestBody} {
		for _, e := range entries {
			if err := applyJSONPointer(merged, e.Pointer, e.Value); err != nil {
				return nil, nil, fmt.Errorf("inject_extra_request_data: %w", err)
			}
		}
	}

	headers := make(map[string]string)
	for _, hs := range []map[string]string{variantHeaders, providerHeaders, requestHeaders} {
		for k, v := range hs {
			headers[k] = v
		}
	}
	return merged, headers, nil
}

// cloneMap deep-copies the map/slice containers so pointer writes into a
// nested object never mutate the caller's payload; leaf values are shared.
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch c := v.(type) {
	case map[string]any:
		return cloneMap(c)
	case []any:
		out := make([]any, len(c))
		for i, e := range c {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// applyJSONPointer sets value at the RFC 6901 JSON pointer path within root,
// creating intermediate objects as needed. The root itself cannot be
// replaced: a pointer of "" or "/" is rejected with an error. A
// single-segment pointer such as "/temperature" targets a top-level key.
func applyJSONPointer(root map[string]any, pointer string, value any) error {
	if pointer == "" || pointer == "/" {
		return fmt.Errorf("empty json pointer")
	}
	if !strings.HasPrefix(pointer, "/") {
		return fmt.Errorf("json pointer %q must start with '/'", pointer)
	}
	tokens := strings.Split(pointer[1:], "/")
	for i := range tokens {
		tokens[i] = unescapePointerToken(tokens[i])
	}

	cur := any(root)
	for i := 0; i < len(tokens)-1; i++ {
		tok := tokens[i]
		switch c := cur.(type) {
		case map[string]any:
			next, ok := c[tok]
			if !ok {
				next = map[string]any{}
				c[tok] = next
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(c) {
				return fmt.Errorf("json pointer %q: array index %q out of range", pointer, tok)
			}
			cur = c[idx]
		default:
			return fmt.Errorf("json pointer %q: cannot descend through a scalar at %q", pointer, tok)
		}
	}

	last := tokens[len(tokens)-1]
	switch c := cur.(type) {
	case map[string]any:
		c[last] = value
	case []any:
		if last == "-" {
			return fmt.Errorf("json pointer %q: append ('-') is not supported for extra_body overlays", pointer)
		}
		idx, err := strconv.Atoi(last)
		if err != nil || idx < 0 || idx >= len(c) {
			return fmt.Errorf("json pointer %q: array index %q out of range", pointer, last)
		}
		c[idx] = value
	default:
		return fmt.Errorf("json pointer %q: cannot set a field on a scalar", pointer)
	}
	return nil
}

func unescapePointerToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")
	return tok
}

// MarshalPayload is a convenience wrapper producing the final wire bytes
// once extra-body injection is complete.
func MarshalPayload(payload map[string]any) ([]byte, error) {
	return json.Marshal(payload)
}

// SJSONPath converts an RFC 6901 JSON pointer into the dotted path form the
// Stainless-generated SDKs' WithJSONSet request option expects
// ("/metadata/tag" -> "metadata.tag").
func SJSONPath(pointer string) string {
	segs := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i := range segs {
		segs[i] = unescapePointerToken(segs[i])
	}
	return strings.Join(segs, ".")
}
