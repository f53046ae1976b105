package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/noundb/pkg/model"
	"github.com/cuemby/noundb/pkg/nountype"
	"github.com/cuemby/noundb/pkg/verbtype"
)

func nounTypeOf(s string) nountype.Type { return nountype.Type(s) }
func verbTypeOf(s string) verbtype.Type { return verbtype.Type(s) }

// nounDTO is the JSON shape add/import/export exchange with the outside
// world: plain field types instead of model.Value's tagged union, so a hand-
// written JSON file doesn't need to know about Kind.
type nounDTO struct {
	ID         string                 `json:"id,omitempty"`
	Type       string                 `json:"type"`
	Vector     []float32              `json:"vector,omitempty"`
	Confidence float64                `json:"confidence,omitempty"`
	Weight     float64                `json:"weight,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	Deleted    bool                   `json:"deleted,omitempty"`
}

type verbDTO struct {
	ID         string                 `json:"id,omitempty"`
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Type       string                 `json:"type"`
	Weight     float64                `json:"weight,omitempty"`
	Confidence float64                `json:"confidence,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

func nounFromDTO(d nounDTO) model.Noun {
	return model.Noun{
		ID:         d.ID,
		Type:       nounTypeOf(d.Type),
		Vector:     model.Vector(d.Vector),
		Confidence: d.Confidence,
		Weight:     d.Weight,
		Metadata:   model.Metadata{Fields: valuesFromFields(d.Fields)},
	}
}

func dtoFromNoun(n model.Noun) nounDTO {
	return nounDTO{
		ID:         n.ID,
		Type:       string(n.Type),
		Vector:     []float32(n.Vector),
		Confidence: n.Confidence,
		Weight:     n.Weight,
		Fields:     fieldsFromValues(n.Metadata.Fields),
		Deleted:    n.Metadata.Namespace.Deleted,
	}
}

func verbFromDTO(d verbDTO) model.Verb {
	return model.Verb{
		ID:         d.ID,
		Source:     d.Source,
		Target:     d.Target,
		Type:       verbTypeOf(d.Type),
		Weight:     d.Weight,
		Confidence: d.Confidence,
		Metadata:   model.Metadata{Fields: valuesFromFields(d.Fields)},
	}
}

// valuesFromFields converts the loosely-typed JSON field map into
// model.Value, inferring Kind from Go's JSON-decoded type (string, bool,
// float64 split into int/float by whether it has a fractional part, or an
// RFC3339 timestamp string recognized by parsing).
func valuesFromFields(fields map[string]interface{}) map[string]model.Value {
	if len(fields) == 0 {
		return map[string]model.Value{}
	}
	out := make(map[string]model.Value, len(fields))
	for k, v := range fields {
		out[k] = valueFromAny(v)
	}
	return out
}

func valueFromAny(v interface{}) model.Value {
	switch t := v.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return model.TimeValue(ts)
		}
		return model.StringValue(t)
	case bool:
		return model.BoolValue(t)
	case float64:
		if t == float64(int64(t)) {
			return model.IntValue(int64(t))
		}
		return model.FloatValue(t)
	default:
		return model.StringValue(fmt.Sprintf("%v", t))
	}
}

func fieldsFromValues(fields map[string]model.Value) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch v.Kind {
		case model.KindString:
			out[k] = v.Str
		case model.KindInt:
			out[k] = v.Int
		case model.KindFloat:
			out[k] = v.Flt
		case model.KindBool:
			out[k] = v.Bool
		case model.KindTimestamp:
			out[k] = v.Time.UTC().Format(time.RFC3339)
		default:
			out[k] = string(v.JSON)
		}
	}
	return out
}

// parseFieldFlags parses repeated --field key=value flags into a field map,
// inferring kind the same way valueFromAny does for JSON scalars.
func parseFieldFlags(raw []string) (map[string]model.Value, error) {
	out := make(map[string]model.Value, len(raw))
	for _, kv := range raw {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --field %q, want key=value", kv)
		}
		key, val := parts[0], parts[1]
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			out[key] = model.IntValue(i)
			continue
		}
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			out[key] = model.FloatValue(f)
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			out[key] = model.BoolValue(b)
			continue
		}
		if ts, err := time.Parse(time.RFC3339, val); err == nil {
			out[key] = model.TimeValue(ts)
			continue
		}
		out[key] = model.StringValue(val)
	}
	return out, nil
}

// parseVectorFlag parses a comma-separated list of floats into a
// model.Vector, e.g. "0.1,0.2,-0.3".
func parseVectorFlag(raw string) (model.Vector, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	vec := make(model.Vector, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}
