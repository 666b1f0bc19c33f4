// This file implements the server error envelope decoder.
//
// Decoding order, first match wins for the general message:
//
//  1. a JSON string body, or a non-JSON text body, is the message;
//  2. in an object: "message", then "error", then "title" (strings only);
//  3. "errors" as an array: string entries feed the message, object entries
//     name a field by field|path|param|key and carry text in
//     message|msg|error|description;
//  4. "errors" as an object keyed by field: the value is a string or the
//     first element of an array, else "Invalid value.";
//  5. "details", then "data", decoded recursively with the same rules.
//
// Entries naming a field outside the schema feed the general message when it
// is still empty instead of becoming field errors.
package engine

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mesh-intelligence/codadmin/pkg/types"
)

// MessageInvalidValue is the field error used when the server names a field
// without a usable message.
const MessageInvalidValue = "Invalid value."

// ServerErrors is a decoded validation failure.
type ServerErrors struct {
	Fields  map[string]string
	Message string
}

// Empty reports whether nothing usable was decoded.
func (e ServerErrors) Empty() bool {
	return len(e.Fields) == 0 && e.Message == ""
}

// DecodeServerError normalizes a failure response body against the fields of
// a schema.
func DecodeServerError(body []byte, fields []types.Field) ServerErrors {
	dec := &envelopeDecoder{
		known: make(map[string]bool, len(fields)),
		out:   ServerErrors{Fields: make(map[string]string)},
	}
	for _, f := range fields {
		dec.known[f.Key] = true
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return dec.out
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		dec.out.Message = string(trimmed)
		return dec.out
	}
	switch x := v.(type) {
	case string:
		dec.out.Message = x
	case map[string]any:
		dec.readObject(trimmed)
	}
	return dec.out
}

type envelopeDecoder struct {
	known map[string]bool
	out   ServerErrors
}

func (d *envelopeDecoder) setMessage(s string) {
	if d.out.Message == "" && s != "" {
		d.out.Message = s
	}
}

func (d *envelopeDecoder) add(key, value string) {
	if key == "" || !d.known[key] {
		d.setMessage(value)
		return
	}
	if value == "" {
		value = MessageInvalidValue
	}
	d.out.Fields[key] = value
}

func (d *envelopeDecoder) readObject(raw json.RawMessage) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return
	}
	for _, k := range []string{"message", "error", "title"} {
		var s string
		if json.Unmarshal(obj[k], &s) == nil {
			d.setMessage(s)
		}
	}
	if errs, ok := obj["errors"]; ok {
		d.readErrors(errs)
	}
	for _, k := range []string{"details", "data"} {
		if nested, ok := obj[k]; ok && isObject(nested) {
			d.readObject(nested)
		}
	}
}

func (d *envelopeDecoder) readErrors(raw json.RawMessage) {
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		for _, entry := range list {
			var s string
			if json.Unmarshal(entry, &s) == nil {
				d.add("", s)
				continue
			}
			var obj map[string]any
			if json.Unmarshal(entry, &obj) != nil || obj == nil {
				continue
			}
			d.add(firstString(obj, "field", "path", "param", "key"),
				firstString(obj, "message", "msg", "error", "description"))
		}
		return
	}
	if !isObject(raw) {
		return
	}
	for _, e := range orderedEntries(raw) {
		var value any
		_ = json.Unmarshal(e.value, &value)
		if arr, ok := value.([]any); ok {
			value = nil
			if len(arr) > 0 {
				value = arr[0]
			}
		}
		s, ok := value.(string)
		if !ok {
			s = MessageInvalidValue
		}
		d.add(e.key, s)
	}
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func isObject(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '{'
}

type rawEntry struct {
	key   string
	value json.RawMessage
}

// orderedEntries returns the members of a JSON object in document order.
func orderedEntries(raw json.RawMessage) []rawEntry {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var out []rawEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return out
		}
		out = append(out, rawEntry{key: strings.TrimSpace(key), value: value})
	}
	return out
}
