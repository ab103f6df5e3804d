/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package spanfile reads and writes spans as OTLP-style JSON.
//
// Three layouts are accepted on input: an OTLP export
// ({"resourceSpans":[{"scopeSpans":[{"spans":[...]}]}]}), an object with a
// top-level "spans" list, or a bare list of spans. Each span uses the OTLP
// JSON field names:
//
//	{
//	  "traceId": "5b8efff798038103d269b633813fc60c",
//	  "spanId": "eee19b7ec3c1b174",
//	  "parentSpanId": "",
//	  "name": "agent.execution",
//	  "startTimeUnixNano": "1700000000000000000",
//	  "endTimeUnixNano": "1700000001000000000",
//	  "attributes": [{"key": "tool.name", "value": {"stringValue": "search"}}]
//	}
//
// Write always produces the {"spans": [...]} layout.
package spanfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"chainguard.dev/spanevals/agents/spantree"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type file struct {
	ResourceSpans []resourceSpans `json:"resourceSpans,omitempty"`
	Spans         []jsonSpan      `json:"spans,omitempty"`
}

type resourceSpans struct {
	ScopeSpans []scopeSpans `json:"scopeSpans"`
}

type scopeSpans struct {
	Spans []jsonSpan `json:"spans"`
}

type jsonSpan struct {
	TraceID           string     `json:"traceId,omitempty"`
	SpanID            string     `json:"spanId"`
	ParentSpanID      string     `json:"parentSpanId,omitempty"`
	Name              string     `json:"name"`
	StartTimeUnixNano unixNano   `json:"startTimeUnixNano,omitempty"`
	EndTimeUnixNano   unixNano   `json:"endTimeUnixNano,omitempty"`
	Attributes        []keyValue `json:"attributes,omitempty"`
}

type keyValue struct {
	Key   string   `json:"key"`
	Value anyValue `json:"value"`
}

type anyValue struct {
	StringValue *string     `json:"stringValue,omitempty"`
	BoolValue   *bool       `json:"boolValue,omitempty"`
	IntValue    *int64Value `json:"intValue,omitempty"`
	DoubleValue *float64    `json:"doubleValue,omitempty"`
	ArrayValue  *arrayValue `json:"arrayValue,omitempty"`
}

type arrayValue struct {
	Values []anyValue `json:"values"`
}

// unixNano is nanoseconds since the epoch. OTLP JSON encodes 64-bit integers
// as strings; plain numbers are accepted too. Zero means absent.
type unixNano uint64

func (u *unixNano) UnmarshalJSON(b []byte) error {
	n, err := strconv.ParseUint(string(bytes.Trim(b, `"`)), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unix nano timestamp %s: %w", b, err)
	}
	*u = unixNano(n)
	return nil
}

func (u unixNano) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(u), 10))), nil
}

func (u unixNano) time() time.Time {
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(u)).UTC()
}

func toUnixNano(t time.Time) unixNano {
	if t.IsZero() {
		return 0
	}
	return unixNano(t.UnixNano())
}

// int64Value accepts the string and number encodings of intValue.
type int64Value int64

func (v *int64Value) UnmarshalJSON(b []byte) error {
	n, err := strconv.ParseInt(string(bytes.Trim(b, `"`)), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid intValue %s: %w", b, err)
	}
	*v = int64Value(n)
	return nil
}

func (v int64Value) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(v), 10))), nil
}

// Read decodes every span in r.
func Read(r io.Reader) ([]spantree.Span, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading spans: %w", err)
	}
	data = bytes.TrimSpace(data)

	var raw []jsonSpan
	if len(data) > 0 && data[0] == '[' {
		if err := jsonAPI.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding spans: %w", err)
		}
	} else {
		var f file
		if err := jsonAPI.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decoding spans: %w", err)
		}
		raw = f.Spans
		for _, rs := range f.ResourceSpans {
			for _, ss := range rs.ScopeSpans {
				raw = append(raw, ss.Spans...)
			}
		}
	}

	spans := make([]spantree.Span, 0, len(raw))
	for i, js := range raw {
		s, err := js.span()
		if err != nil {
			return nil, fmt.Errorf("span %d (%q): %w", i, js.Name, err)
		}
		spans = append(spans, s)
	}
	return spans, nil
}

// Write encodes spans as {"spans": [...]}.
func Write(w io.Writer, spans []spantree.Span) error {
	f := file{Spans: make([]jsonSpan, 0, len(spans))}
	for _, s := range spans {
		f.Spans = append(f.Spans, fromSpan(s))
	}
	enc := jsonAPI.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding spans: %w", err)
	}
	return nil
}

func (js jsonSpan) span() (spantree.Span, error) {
	var s spantree.Span
	var err error

	if s.SpanID, err = trace.SpanIDFromHex(js.SpanID); err != nil {
		return s, fmt.Errorf("spanId: %w", err)
	}
	if !isZeroID(js.TraceID) {
		if s.TraceID, err = trace.TraceIDFromHex(js.TraceID); err != nil {
			return s, fmt.Errorf("traceId: %w", err)
		}
	}
	if !isZeroID(js.ParentSpanID) {
		if s.ParentID, err = trace.SpanIDFromHex(js.ParentSpanID); err != nil {
			return s, fmt.Errorf("parentSpanId: %w", err)
		}
	}
	s.Name = js.Name
	s.StartTime = js.StartTimeUnixNano.time()
	s.EndTime = js.EndTimeUnixNano.time()

	for _, kv := range js.Attributes {
		v, err := kv.Value.attribute()
		if err != nil {
			return s, fmt.Errorf("attribute %q: %w", kv.Key, err)
		}
		s.Attributes = append(s.Attributes, attribute.KeyValue{Key: attribute.Key(kv.Key), Value: v})
	}
	return s, nil
}

// isZeroID reports whether a hex id is absent. OTel writes "no parent" as an
// all-zero id.
func isZeroID(hex string) bool {
	return strings.Trim(hex, "0") == ""
}

var errUnsupportedValue = errors.New("unsupported value")

func (v anyValue) attribute() (attribute.Value, error) {
	switch {
	case v.StringValue != nil:
		return attribute.StringValue(*v.StringValue), nil
	case v.BoolValue != nil:
		return attribute.BoolValue(*v.BoolValue), nil
	case v.IntValue != nil:
		return attribute.Int64Value(int64(*v.IntValue)), nil
	case v.DoubleValue != nil:
		return attribute.Float64Value(*v.DoubleValue), nil
	case v.ArrayValue != nil:
		return v.ArrayValue.attribute()
	default:
		return attribute.Value{}, errUnsupportedValue
	}
}

// attribute converts a homogeneous array. OTel attributes cannot hold mixed
// or nested arrays.
func (a arrayValue) attribute() (attribute.Value, error) {
	if len(a.Values) == 0 {
		return attribute.StringSliceValue(nil), nil
	}
	first := a.Values[0]
	switch {
	case first.StringValue != nil:
		out := make([]string, len(a.Values))
		for i, v := range a.Values {
			if v.StringValue == nil {
				return attribute.Value{}, fmt.Errorf("%w: mixed array", errUnsupportedValue)
			}
			out[i] = *v.StringValue
		}
		return attribute.StringSliceValue(out), nil
	case first.BoolValue != nil:
		out := make([]bool, len(a.Values))
		for i, v := range a.Values {
			if v.BoolValue == nil {
				return attribute.Value{}, fmt.Errorf("%w: mixed array", errUnsupportedValue)
			}
			out[i] = *v.BoolValue
		}
		return attribute.BoolSliceValue(out), nil
	case first.IntValue != nil:
		out := make([]int64, len(a.Values))
		for i, v := range a.Values {
			if v.IntValue == nil {
				return attribute.Value{}, fmt.Errorf("%w: mixed array", errUnsupportedValue)
			}
			out[i] = int64(*v.IntValue)
		}
		return attribute.Int64SliceValue(out), nil
	case first.DoubleValue != nil:
		out := make([]float64, len(a.Values))
		for i, v := range a.Values {
			if v.DoubleValue == nil {
				return attribute.Value{}, fmt.Errorf("%w: mixed array", errUnsupportedValue)
			}
			out[i] = *v.DoubleValue
		}
		return attribute.Float64SliceValue(out), nil
	default:
		return attribute.Value{}, fmt.Errorf("%w: nested array", errUnsupportedValue)
	}
}

func fromSpan(s spantree.Span) jsonSpan {
	js := jsonSpan{
		SpanID:            s.SpanID.String(),
		Name:              s.Name,
		StartTimeUnixNano: toUnixNano(s.StartTime),
		EndTimeUnixNano:   toUnixNano(s.EndTime),
	}
	if s.TraceID.IsValid() {
		js.TraceID = s.TraceID.String()
	}
	if s.ParentID.IsValid() {
		js.ParentSpanID = s.ParentID.String()
	}
	for _, kv := range s.Attributes {
		js.Attributes = append(js.Attributes, keyValue{Key: string(kv.Key), Value: fromValue(kv.Value)})
	}
	return js
}

func ptr[T any](v T) *T { return &v }

func fromValue(v attribute.Value) anyValue {
	switch v.Type() {
	case attribute.BOOL:
		return anyValue{BoolValue: ptr(v.AsBool())}
	case attribute.INT64:
		return anyValue{IntValue: ptr(int64Value(v.AsInt64()))}
	case attribute.FLOAT64:
		return anyValue{DoubleValue: ptr(v.AsFloat64())}
	case attribute.BOOLSLICE:
		return arrayOf(v.AsBoolSlice(), func(b bool) anyValue { return anyValue{BoolValue: ptr(b)} })
	case attribute.INT64SLICE:
		return arrayOf(v.AsInt64Slice(), func(n int64) anyValue { return anyValue{IntValue: ptr(int64Value(n))} })
	case attribute.FLOAT64SLICE:
		return arrayOf(v.AsFloat64Slice(), func(f float64) anyValue { return anyValue{DoubleValue: ptr(f)} })
	case attribute.STRINGSLICE:
		return arrayOf(v.AsStringSlice(), func(s string) anyValue { return anyValue{StringValue: ptr(s)} })
	default:
		return anyValue{StringValue: ptr(v.Emit())}
	}
}

func arrayOf[T any](in []T, conv func(T) anyValue) anyValue {
	out := make([]anyValue, len(in))
	for i, v := range in {
		out[i] = conv(v)
	}
	return anyValue{ArrayValue: &arrayValue{Values: out}}
}
