package resource

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

/*
This file turns raw cached JSON into typed values.

The API is not trusted to keep its shape. Decoding never fails: whatever
does not match is replaced by a default and the result is tagged
ShapeMismatch so callers can tell "empty" from "unexpected".
*/

type Shape int

const (
	ShapeOK Shape = iota
	ShapeMismatch
)

func (s Shape) String() string {
	if s == ShapeMismatch {
		return "mismatch"
	}
	return "ok"
}

// Decoded is a decoding result. Missing is true when there was no data yet.
type Decoded[T any] struct {
	Value   T
	Shape   Shape
	Missing bool
}

// Page is one page of a collection response.
type Page[T any] struct {
	Items []T
	Total int
	Skip  int
	Limit int
}

// DecodePage reads {"<field>": [...], "total", "skip", "limit"}.
// Items default to empty, numbers to zero. Elements that do not decode are skipped.
func DecodePage[T any](data []byte, field string) Decoded[Page[T]] {
	out := Decoded[Page[T]]{Value: Page[T]{Items: []T{}}}
	if len(data) == 0 {
		out.Missing = true
		return out
	}
	if !gjson.ValidBytes(data) {
		out.Shape = ShapeMismatch
		return out
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		out.Shape = ShapeMismatch
		return out
	}

	items := doc.Get(field)
	if !items.IsArray() {
		out.Shape = ShapeMismatch
	} else {
		var ok bool
		out.Value.Items, ok = decodeArray[T](items)
		if !ok {
			out.Shape = ShapeMismatch
		}
	}

	total := doc.Get("total")
	if total.Type != gjson.Number {
		out.Shape = ShapeMismatch
	}
	out.Value.Total = int(total.Int())
	out.Value.Skip = int(doc.Get("skip").Int())
	out.Value.Limit = int(doc.Get("limit").Int())
	return out
}

// DecodeItem reads one object. JSON null gives a nil Value with ShapeOK.
func DecodeItem[T any](data []byte) Decoded[*T] {
	var out Decoded[*T]
	if len(data) == 0 {
		out.Missing = true
		return out
	}
	if !gjson.ValidBytes(data) {
		out.Shape = ShapeMismatch
		return out
	}

	doc := gjson.ParseBytes(data)
	switch {
	case doc.Type == gjson.Null:
		return out
	case !doc.IsObject():
		out.Shape = ShapeMismatch
		return out
	}

	v := new(T)
	if err := json.Unmarshal([]byte(doc.Raw), v); err != nil {
		out.Shape = ShapeMismatch
		return out
	}
	out.Value = v
	return out
}

// DecodeSlice reads a bare JSON array. Anything else decodes to empty.
func DecodeSlice[T any](data []byte) Decoded[[]T] {
	out := Decoded[[]T]{Value: []T{}}
	if len(data) == 0 {
		out.Missing = true
		return out
	}
	if !gjson.ValidBytes(data) {
		out.Shape = ShapeMismatch
		return out
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		out.Shape = ShapeMismatch
		return out
	}
	var ok bool
	out.Value, ok = decodeArray[T](doc)
	if !ok {
		out.Shape = ShapeMismatch
	}
	return out
}

func decodeArray[T any](arr gjson.Result) ([]T, bool) {
	ok := true
	items := []T{}
	arr.ForEach(func(_, el gjson.Result) bool {
		var v T
		if err := json.Unmarshal([]byte(el.Raw), &v); err != nil {
			ok = false
			return true
		}
		items = append(items, v)
		return true
	})
	return items, ok
}
