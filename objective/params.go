package objective

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/gbobjective/pkg/errors"
)

// Args is the flat string configuration accepted by Configure.
type Args map[string]string

// Keys returns the keys of a in sorted order.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// rule is a named range check for one parameter.
type rule struct {
	ok   func(float64) bool
	desc string
}

func atLeast(lo float64) rule {
	return rule{ok: func(v float64) bool { return v >= lo }, desc: "must be >= " + formatFloat(lo)}
}

func greaterThan(lo float64) rule {
	return rule{ok: func(v float64) bool { return v > lo }, desc: "must be > " + formatFloat(lo)}
}

func closed(lo, hi float64) rule {
	return rule{
		ok:   func(v float64) bool { return v >= lo && v <= hi },
		desc: "must be in [" + formatFloat(lo) + ", " + formatFloat(hi) + "]",
	}
}

func halfOpen(lo, hi float64) rule {
	return rule{
		ok:   func(v float64) bool { return v >= lo && v < hi },
		desc: "must be in [" + formatFloat(lo) + ", " + formatFloat(hi) + ")",
	}
}

// paramParser reads typed values out of Args, keeping the first error and
// the set of keys it consumed.
type paramParser struct {
	op   string
	args Args
	used map[string]bool
	err  error
}

func newParamParser(op string, args Args) *paramParser {
	return &paramParser{op: op, args: args, used: make(map[string]bool)}
}

func (p *paramParser) fail(key, reason string, value interface{}) {
	if p.err == nil {
		p.err = errors.NewConfigurationError(p.op, key, reason, value)
	}
}

func (p *paramParser) raw(key string) (string, bool) {
	p.used[key] = true
	v, ok := p.args[key]
	return strings.TrimSpace(v), ok
}

// Require fails when key is absent.
func (p *paramParser) Require(key string) {
	if _, ok := p.args[key]; !ok {
		p.fail(key, "required", nil)
	}
}

// Float returns the value of key or def, checked against r.
func (p *paramParser) Float(key string, def float64, r rule) float64 {
	s, ok := p.raw(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !errors.IsFinite(v) {
		p.fail(key, "not a finite number", s)
		return def
	}
	if !r.ok(v) {
		p.fail(key, r.desc, v)
		return def
	}
	return v
}

// Int returns the integer value of key or def, checked against r.
func (p *paramParser) Int(key string, def int, r rule) int {
	s, ok := p.raw(key)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		p.fail(key, "not an integer", s)
		return def
	}
	if !r.ok(float64(v)) {
		p.fail(key, r.desc, v)
		return def
	}
	return v
}

// Int64 is Int for seeds, which may use the full 64-bit range.
func (p *paramParser) Int64(key string, def int64) int64 {
	s, ok := p.raw(key)
	if !ok {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		p.fail(key, "not an integer", s)
		return def
	}
	return v
}

// FloatList parses "[0.1, 0.5]" or "0.1,0.5". Every element is checked against r.
func (p *paramParser) FloatList(key string, def []float64, r rule) []float64 {
	s, ok := p.raw(key)
	if !ok {
		return def
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		p.fail(key, "must not be empty", p.args[key])
		return def
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || !errors.IsFinite(v) {
			p.fail(key, "not a finite number", part)
			return def
		}
		if !r.ok(v) {
			p.fail(key, r.desc, v)
			return def
		}
		out = append(out, v)
	}
	return out
}

// Unknown lists the keys of args that no getter asked for.
func (p *paramParser) Unknown() []string {
	var unknown []string
	for _, k := range p.args.Keys() {
		if !p.used[k] {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// Err returns the first parse or range error.
func (p *paramParser) Err() error {
	return p.err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// savedObjective is the persisted form of a configured objective.
type savedObjective struct {
	Name   string `json:"name"`
	Params Args   `json:"params"`
}

// SaveJSON serializes the name and recognized parameters of obj.
func SaveJSON(obj Objective) ([]byte, error) {
	data, err := json.Marshal(savedObjective{Name: obj.Name(), Params: obj.Config()})
	if err != nil {
		return nil, errors.Wrap(err, "marshal objective")
	}
	return data, nil
}

// LoadJSON re-creates and configures an objective saved by SaveJSON. A nil
// registry means Default().
func LoadJSON(data []byte, reg *Registry, ctx *Context) (Objective, error) {
	var saved savedObjective
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, errors.Wrap(err, "unmarshal objective")
	}
	if saved.Name == "" {
		return nil, errors.NewConfigurationError("objective.LoadJSON", "name", "missing objective name", "")
	}
	if reg == nil {
		reg = Default()
	}
	obj, err := reg.Create(saved.Name, ctx)
	if err != nil {
		return nil, err
	}
	if err := obj.Configure(saved.Params); err != nil {
		return nil, err
	}
	return obj, nil
}
