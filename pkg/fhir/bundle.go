package fhir

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out resource ids
type IDGenerator interface {
	NewID() string
}

// RandomIDs are the hex SHA-256 of 32 random bytes, so re-running a folder never reproduces an id
type RandomIDs struct {
	Rand io.Reader // crypto/rand when nil
}

func (g RandomIDs) NewID() string {
	r := g.Rand
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, 32)
	if _, err := io.ReadFull(r, buf); err != nil {
		panic(fmt.Sprintf("reading random bytes: %v", err))
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// SequenceIDs returns prefix-1, prefix-2, ... and is meant for tests and reproducible output
type SequenceIDs struct {
	Prefix string
	n      int
}

func (g *SequenceIDs) NewID() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.Prefix, g.n)
}

var (
	// ErrNoResourceType is returned for a resource document without a resourceType
	ErrNoResourceType = errors.New("resource has no resourceType")
	// ErrInvalidID is returned for a resource whose id is not a string
	ErrInvalidID = errors.New("resource id is not a string")
)

type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Identifier   *Identifier   `json:"identifier,omitempty"`
	Type         string        `json:"type"`
	Timestamp    string        `json:"timestamp,omitempty"`
	Entry        []BundleEntry `json:"entry"`
}

type BundleEntry struct {
	Resource json.RawMessage `json:"resource"`
	Request  *BundleRequest  `json:"request,omitempty"`
}

type BundleRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// Transaction wraps the resources into a transaction bundle, one POST entry each
func Transaction(resources []Resource) (*Bundle, error) {
	bundle := newTransaction()
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encoding %s/%s: %w", r.ResourceKind(), r.ResourceID(), err)
		}
		bundle.Entry = append(bundle.Entry, entry(raw, r.ResourceKind(), r.ResourceID()))
	}
	return bundle, nil
}

// TransactionFromRaw wraps previously serialized resources. Resources without an id get one
// from ids. A document of the form {"Observation": {...}} is unwrapped into a resource of that type.
func TransactionFromRaw(raws []json.RawMessage, ids IDGenerator) (*Bundle, error) {
	bundle := newTransaction()
	for i, raw := range raws {
		fields, err := resourceFields(raw)
		if err != nil {
			return nil, fmt.Errorf("resource %d: %w", i, err)
		}
		var kind, id string
		if err := json.Unmarshal(fields["resourceType"], &kind); err != nil || kind == "" {
			return nil, fmt.Errorf("resource %d: %w", i, ErrNoResourceType)
		}
		if v, ok := fields["id"]; ok && string(v) != "null" {
			if err := json.Unmarshal(v, &id); err != nil {
				return nil, fmt.Errorf("resource %d: %w: %s", i, ErrInvalidID, v)
			}
		}
		if id == "" {
			id = ids.NewID()
			fields["id"], _ = json.Marshal(id)
		}
		body, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("resource %d: %w", i, err)
		}
		bundle.Entry = append(bundle.Entry, entry(body, kind, id))
	}
	return bundle, nil
}

// resourceFields decodes a resource object, unwrapping the single-key {"Type": {...}} form
func resourceFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if _, ok := fields["resourceType"]; ok || len(fields) != 1 {
		return fields, nil
	}
	for kind, inner := range fields {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(inner, &wrapped); err != nil {
			return fields, nil
		}
		wrapped["resourceType"], _ = json.Marshal(kind)
		return wrapped, nil
	}
	return fields, nil
}

func newTransaction() *Bundle {
	return &Bundle{
		ResourceType: "Bundle",
		Identifier:   &Identifier{System: "urn:ietf:rfc:3986", Value: "urn:uuid:" + uuid.NewString()},
		Type:         "transaction",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Entry:        []BundleEntry{},
	}
}

func entry(raw json.RawMessage, kind, id string) BundleEntry {
	return BundleEntry{
		Resource: raw,
		Request:  &BundleRequest{Method: "POST", URL: kind + "/" + id},
	}
}
