package factory

import (
	"encoding/json"
)

// Trace captures how each state layer contributed to one attribute. Layers are
// listed strongest first, so the first entry with Found set supplied the
// final value.
type Trace struct {
	Path   string       `json:"path"`
	Value  any          `json:"value,omitempty"`
	Found  bool         `json:"found"`
	Layers []Provenance `json:"layers"`
}

// Provenance details what a single layer contributed to a traced attribute.
// Value holds the contribution after deferred values were evaluated and
// before nested builders were made.
type Provenance struct {
	Index int    `json:"index"`
	Label string `json:"label"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Winner returns the layer that supplied the final value.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
