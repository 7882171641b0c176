package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/yauma/internal/shared"
)

// unit encodes a payload-less variant.
func unit(tag string) ([]byte, error) {
	return json.Marshal(tag)
}

// tagged encodes a newtype variant as {"tag": value}.
func tagged(tag string, value any) ([]byte, error) {
	return json.Marshal(map[string]any{tag: value})
}

// tuple encodes a multi-field variant as {"tag": [values...]}.
func tuple(tag string, values ...any) ([]byte, error) {
	return json.Marshal(map[string][]any{tag: values})
}

// splitTag returns the variant tag and its payload. Unit variants have a nil payload.
func splitTag(union string, data []byte) (string, json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: %s: empty value", shared.ErrParse, union)
	}

	switch data[0] {
	case '"':
		var tag string
		if err := json.Unmarshal(data, &tag); err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", shared.ErrParse, union, err)
		}
		return tag, nil, nil
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return "", nil, fmt.Errorf("%w: %s: %v", shared.ErrParse, union, err)
		}
		if len(fields) != 1 {
			return "", nil, fmt.Errorf("%w: %s: expected exactly one variant key, got %d", shared.ErrParse, union, len(fields))
		}
		for tag, payload := range fields {
			return tag, payload, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s: expected string or object", shared.ErrParse, union)
}

// decodeInto unmarshals a newtype payload, requiring it to be present.
func decodeInto(union, tag string, payload json.RawMessage, v any) error {
	if payload == nil {
		return fmt.Errorf("%w: %s::%s requires a value", shared.ErrParse, union, tag)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return wrapParse(fmt.Sprintf("%s::%s", union, tag), err)
	}
	return nil
}

// decodeTuple unmarshals a tuple payload into exactly len(fields) targets.
func decodeTuple(union, tag string, payload json.RawMessage, fields ...any) error {
	var items []json.RawMessage
	if err := decodeInto(union, tag, payload, &items); err != nil {
		return err
	}
	if len(items) != len(fields) {
		return fmt.Errorf("%w: %s::%s expects %d fields, got %d", shared.ErrParse, union, tag, len(fields), len(items))
	}
	for i, item := range items {
		if err := json.Unmarshal(item, fields[i]); err != nil {
			return wrapParse(fmt.Sprintf("%s::%s[%d]", union, tag, i), err)
		}
	}
	return nil
}

// requireUnit rejects a payload on a unit variant.
func requireUnit(union, tag string, payload json.RawMessage) error {
	if payload != nil && !bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return fmt.Errorf("%w: %s::%s takes no value", shared.ErrParse, union, tag)
	}
	return nil
}

func unknownVariant(union, tag string) error {
	return fmt.Errorf("%w: %s::%s", shared.ErrUnknownVariant, union, tag)
}

// wrapParse keeps already classified errors and marks everything else as a parse error.
func wrapParse(context string, err error) error {
	if isClassified(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", shared.ErrParse, context, err)
}
