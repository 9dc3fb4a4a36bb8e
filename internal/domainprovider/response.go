// internal/domainprovider/response.go
//
// Normalization of provider domain payloads.
//
/*
Context
--------
The provider has answered with several payload shapes over time, and we
have never found a statement of which one is canonical.  Rather than
sprinkle shape checks through handlers, every payload passes through two
functions here:

  • Classify        – was the domain verified, and by which shape?
  • ExtractRecords  – which DNS records must the user create?

Both accept the raw bytes untouched, so the stored mirror of the last
response stays exactly what the provider sent.

Known shapes
------------
  verified:  top-level `verified: true`
             `verification.status == "verified"`
             `verification.verified == true`
  records:   a top-level record `{type, name|domain, value}`
             top-level `records` or `dnsRecords` arrays
             `verification` as one record object
             `verification` as an array of records
             `verification.records` or `verification.dns` arrays
*/
package domainprovider

import (
	"strings"

	"github.com/goccy/go-json"
)

// Shape names which payload form produced a verified verdict.
type Shape string

const (
	ShapeNone               Shape = ""
	ShapeTopLevel           Shape = "top_level"
	ShapeVerificationStatus Shape = "verification_status"
	ShapeVerificationFlag   Shape = "verification_flag"
)

// Record is one DNS record the user must create.
type Record struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Verification is the normalized view of one payload.
type Verification struct {
	Verified bool     `json:"verified"`
	Shape    Shape    `json:"shape,omitempty"`
	Records  []Record `json:"records"`
}

// Classify normalizes raw into a Verification.  Unparseable payloads are
// unverified with no records.
func Classify(raw []byte) Verification {
	v := Verification{Records: ExtractRecords(raw)}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return v
	}

	if b, ok := m["verified"].(bool); ok && b {
		v.Verified, v.Shape = true, ShapeTopLevel
		return v
	}

	if ver, ok := m["verification"].(map[string]any); ok {
		if s, ok := ver["status"].(string); ok && strings.EqualFold(s, "verified") {
			v.Verified, v.Shape = true, ShapeVerificationStatus
			return v
		}
		if b, ok := ver["verified"].(bool); ok && b {
			v.Verified, v.Shape = true, ShapeVerificationFlag
			return v
		}
	}
	return v
}

// ExtractRecords collects DNS records from every known location,
// de-duplicated by (type, name, value) in first-seen order.  The result is
// never nil.
func ExtractRecords(raw []byte) []Record {
	out := []Record{}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return out
	}

	seen := make(map[Record]struct{})
	add := func(r Record, ok bool) {
		if !ok {
			return
		}
		if _, dup := seen[r]; dup {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	add(recordFrom(m))
	for _, key := range []string{"records", "dnsRecords"} {
		for _, r := range recordsFrom(m[key]) {
			add(r, true)
		}
	}

	switch ver := m["verification"].(type) {
	case map[string]any:
		add(recordFrom(ver))
		for _, key := range []string{"records", "dns"} {
			for _, r := range recordsFrom(ver[key]) {
				add(r, true)
			}
		}
	case []any:
		for _, r := range recordsFrom(ver) {
			add(r, true)
		}
	}
	return out
}

// recordsFrom reads an array of record objects, skipping malformed ones.
func recordsFrom(v any) []Record {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(map[string]any); ok {
			if r, ok := recordFrom(obj); ok {
				out = append(out, r)
			}
		}
	}
	return out
}

// recordFrom reads one object.  Type and value are required; name falls
// back to "domain".
func recordFrom(m map[string]any) (Record, bool) {
	typ, _ := m["type"].(string)
	val, _ := m["value"].(string)
	if typ == "" || val == "" {
		return Record{}, false
	}
	name, _ := m["name"].(string)
	if name == "" {
		name, _ = m["domain"].(string)
	}
	return Record{Type: typ, Name: name, Value: val}, true
}
