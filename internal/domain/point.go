package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the type carried by a Value.
type Kind uint8

const (
	KindInteger Kind = iota + 1
	KindFloat
	KindBoolean
	KindString
)

// Value is a typed field value: integer, float, boolean, or string.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

func Integer(v int64) Value { return Value{kind: KindInteger, i: v} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }
func Boolean(v bool) Value  { return Value{kind: KindBoolean, b: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Bool() bool     { return v.b }
func (v Value) Str() string    { return v.s }

// Interface returns the underlying value as the matching Go type, which is
// what database and time-series client libraries expect in field maps.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBoolean:
		return v.b
	case KindString:
		return v.s
	default:
		return nil
	}
}

type valueJSON struct {
	Integer *int64   `json:"integer,omitempty"`
	Float   *float64 `json:"float,omitempty"`
	Boolean *bool    `json:"boolean,omitempty"`
	String  *string  `json:"string,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	var out valueJSON
	switch v.kind {
	case KindInteger:
		out.Integer = &v.i
	case KindFloat:
		out.Float = &v.f
	case KindBoolean:
		out.Boolean = &v.b
	case KindString:
		out.String = &v.s
	default:
		return nil, fmt.Errorf("cannot marshal value of unknown kind %d", v.kind)
	}
	return json.Marshal(out)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.Integer != nil:
		*v = Integer(*in.Integer)
	case in.Float != nil:
		*v = Float(*in.Float)
	case in.Boolean != nil:
		*v = Boolean(*in.Boolean)
	case in.String != nil:
		*v = String(*in.String)
	default:
		return fmt.Errorf("value has no recognized kind: %s", data)
	}
	return nil
}

// Point is one measurement: a name, a tag set, typed fields, and an optional
// timestamp. A zero Timestamp means "unset"; sinks that need one substitute
// the write time.
type Point struct {
	Name      string            `json:"name"`
	Tags      map[string]string `json:"tags,omitempty"`
	Fields    map[string]Value  `json:"fields"`
	Timestamp time.Time         `json:"ts"`
}

func NewPoint(name string) *Point {
	return &Point{
		Name:   name,
		Tags:   make(map[string]string),
		Fields: make(map[string]Value),
	}
}

func (p *Point) Tag(key, value string) *Point {
	if p.Tags == nil {
		p.Tags = make(map[string]string)
	}
	p.Tags[key] = value
	return p
}

func (p *Point) Field(key string, value Value) *Point {
	if p.Fields == nil {
		p.Fields = make(map[string]Value)
	}
	p.Fields[key] = value
	return p
}

func (p *Point) At(ts time.Time) *Point {
	p.Timestamp = ts
	return p
}

// Batch is an ordered collection of points collected in one cycle.
type Batch []*Point

func (b *Batch) Add(p *Point) {
	*b = append(*b, p)
}

func (b *Batch) Merge(other Batch) {
	*b = append(*b, other...)
}

// TagAll stamps every point in the batch, overwriting an existing tag of the
// same key. The pipeline uses it to record which source produced each point.
func (b Batch) TagAll(key, value string) {
	for _, p := range b {
		p.Tag(key, value)
	}
}

func (b Batch) Len() int { return len(b) }
