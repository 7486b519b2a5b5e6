// Package jsonpath pulls a single scalar out of a JSON response using a
// dotted path with optional indexes, e.g. "choices[0].message.content".
package jsonpath

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// String decodes body and returns the scalar at path rendered as text.
// A path that does not resolve yields "" without error; only a body that is
// not JSON is an error.
func String(body []byte, path string) (string, error) {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	v, ok := Lookup(root, path)
	if !ok {
		return "", nil
	}
	s, _ := scalar(v)
	return s, nil
}

// Lookup walks root along path. It reports false when any segment is
// missing, has the wrong type or indexes out of range.
func Lookup(root interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	cur := root
	for _, token := range strings.Split(path, ".") {
		key, idxs, err := ParseSegment(token)
		if err != nil {
			return nil, false
		}
		if key != "" {
			m, ok := cur.(map[string]interface{})
			if !ok {
				return nil, false
			}
			if cur, ok = m[key]; !ok {
				return nil, false
			}
		}
		for _, idx := range idxs {
			arr, ok := cur.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return nil, false
			}
			cur = arr[idx]
		}
	}
	return cur, true
}

func scalar(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// ParseSegment splits a token like "foo[0][1]", "[0]" or "bar" into its key
// and indexes.
func ParseSegment(token string) (string, []int, error) {
	if token == "" {
		return "", nil, fmt.Errorf("empty token")
	}
	br := strings.IndexByte(token, '[')
	if br == -1 {
		return token, nil, nil
	}
	key, rest := token[:br], token[br:]
	var idxs []int
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, fmt.Errorf("invalid index syntax in %s", token)
		}
		end := strings.IndexByte(rest, ']')
		if end == -1 {
			return "", nil, fmt.Errorf("missing closing ] in %s", token)
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, fmt.Errorf("invalid index %q in %s", rest[1:end], token)
		}
		idxs = append(idxs, n)
		rest = rest[end+1:]
	}
	return key, idxs, nil
}
