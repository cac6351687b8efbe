package diagnostic

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// wireLabel is the IDE wire shape for a Label:
// `{file, start_byte, end_byte, label}`.
type wireLabel struct {
	File      string `json:"file" cbor:"file"`
	StartByte int    `json:"start_byte" cbor:"start_byte"`
	EndByte   int    `json:"end_byte" cbor:"end_byte"`
	Label     string `json:"label" cbor:"label"`
}

// wireDiagnostic is the IDE wire shape:
// `{severity, code, message, primary, secondary, notes}`.
type wireDiagnostic struct {
	Severity  string      `json:"severity" cbor:"severity"`
	Code      string      `json:"code" cbor:"code"`
	Message   string      `json:"message" cbor:"message"`
	Primary   wireLabel   `json:"primary" cbor:"primary"`
	Secondary []wireLabel `json:"secondary" cbor:"secondary"`
	Notes     []string    `json:"notes" cbor:"notes"`
}

func (r *Reporter) toWire(d *Diagnostic) wireDiagnostic {
	toLabel := func(l Label) wireLabel {
		name := ""
		if f := r.Files.Get(l.Span.FileID); f != nil {
			name = f.Name
		}
		return wireLabel{File: name, StartByte: l.Span.Start, EndByte: l.Span.End, Label: l.Message}
	}

	w := wireDiagnostic{
		Severity: d.Severity.String(),
		Code:     string(d.Code),
		Message:  d.Message,
		Primary:  toLabel(d.Primary),
		Notes:    d.Notes,
	}
	for _, s := range d.Secondary {
		w.Secondary = append(w.Secondary, toLabel(s))
	}
	if w.Notes == nil {
		w.Notes = []string{}
	}
	if w.Secondary == nil {
		w.Secondary = []wireLabel{}
	}
	return w
}

// MarshalJSON encodes d in the IDE-integration wire format.
func (r *Reporter) MarshalJSON(d *Diagnostic) ([]byte, error) {
	return json.Marshal(r.toWire(d))
}

// MarshalCBOR encodes d as CBOR, the compact binary twin of MarshalJSON for
// tools that prefer a binary wire format.
func (r *Reporter) MarshalCBOR(d *Diagnostic) ([]byte, error) {
	return cbor.Marshal(r.toWire(d))
}
