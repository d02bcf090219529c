package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is the canonical identity of a resolved worker, task or sprint.
type Key struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// String renders the key as "001:name".
func (k Key) String() string {
	return fmt.Sprintf("%03d:%s", k.ID, k.Name)
}

// RefKind tells how a Ref identifies its entity.
type RefKind int

const (
	RefByID RefKind = iota
	RefByName
	RefCanonical
)

// Ref is an unresolved reference to an entity: by id, by name, or by canonical key.
type Ref struct {
	Kind RefKind
	ID   int64
	Name string
}

// ByID references an entity by its numeric id.
func ByID(id int64) Ref { return Ref{Kind: RefByID, ID: id} }

// ByName references an entity by its display name.
func ByName(name string) Ref { return Ref{Kind: RefByName, Name: name} }

// Canonical references an entity by an already resolved key.
func Canonical(k Key) Ref { return Ref{Kind: RefCanonical, ID: k.ID, Name: k.Name} }

// ParseRef interprets user input: "12" is an id, "012:design" a canonical key,
// anything else a name.
func ParseRef(raw string) Ref {
	raw = strings.TrimSpace(raw)
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ByID(id)
	}
	if idPart, name, ok := strings.Cut(raw, ":"); ok {
		if id, err := strconv.ParseInt(strings.TrimSpace(idPart), 10, 64); err == nil {
			return Canonical(Key{ID: id, Name: strings.TrimSpace(name)})
		}
	}
	return ByName(raw)
}

// ParseRefs applies ParseRef to every element.
func ParseRefs(raw []string) []Ref {
	refs := make([]Ref, 0, len(raw))
	for _, r := range raw {
		refs = append(refs, ParseRef(r))
	}
	return refs
}

func (r Ref) String() string {
	switch r.Kind {
	case RefByID:
		return strconv.FormatInt(r.ID, 10)
	case RefCanonical:
		return Key{ID: r.ID, Name: r.Name}.String()
	default:
		return r.Name
	}
}

// UnmarshalJSON accepts either a JSON number (id) or a string (name or canonical key).
// A JSON null leaves r unchanged.
func (r *Ref) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if raw == "" {
		return Invalidf("empty reference")
	}
	if raw[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return Invalidf("reference %s: %v", raw, err)
		}
		*r = ParseRef(s)
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Invalidf("reference %s is not an integer id", raw)
	}
	*r = ByID(id)
	return nil
}

// MarshalJSON renders the reference as its string form.
func (r Ref) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(r.String())), nil
}
