package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Type is the RFC 2119 strength of a requirement.
type Type string

const (
	TypeMust      Type = "MUST"
	TypeShall     Type = "SHALL"
	TypeShould    Type = "SHOULD"
	TypeMay       Type = "MAY"
	TypeForbidden Type = "FORBIDDEN"
)

// Types lists every requirement strength in canonical order.
var Types = []Type{TypeMust, TypeShall, TypeShould, TypeMay, TypeForbidden}

// ParseType converts a label such as "must" or "MUST" into a Type.
func ParseType(label string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(label)))
	if !slices.Contains(Types, t) {
		return "", &InvalidTypeError{Label: label}
	}
	return t, nil
}

func (t Type) String() string { return string(t) }

// UnmarshalText only accepts canonical uppercase labels, as written by MarshalText.
func (t *Type) UnmarshalText(b []byte) error {
	v := Type(b)
	if !slices.Contains(Types, v) {
		return &InvalidTypeError{Label: string(b)}
	}
	*t = v
	return nil
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

// ValidationStatus is the cached structural-validity marker of a constraint.
type ValidationStatus string

const (
	StatusValid   ValidationStatus = "valid"
	StatusInvalid ValidationStatus = "invalid"
	StatusWarning ValidationStatus = "warning"
)

// Valid reports whether s is one of the known statuses.
func (s ValidationStatus) Valid() bool {
	switch s {
	case StatusValid, StatusInvalid, StatusWarning:
		return true
	}
	return false
}

func (s *ValidationStatus) UnmarshalText(b []byte) error {
	v := ValidationStatus(b)
	if !v.Valid() {
		return fmt.Errorf("unknown validation status %q", string(b))
	}
	*s = v
	return nil
}

// Label returns the capitalized form used in human output.
func (s ValidationStatus) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Priority is an optional P1/P2/P3 ranking. The zero value means "no priority".
type Priority string

const (
	PriorityNone Priority = ""
	PriorityP1   Priority = "P1"
	PriorityP2   Priority = "P2"
	PriorityP3   Priority = "P3"
)

// Constraint is a single persisted requirement.
type Constraint struct {
	Version          int
	ID               string
	Type             Type
	Category         string
	Text             string
	Tags             []string
	Priority         Priority
	Author           string
	References       string
	Verification     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ValidationStatus ValidationStatus
}

// record is the on-disk shape of a Constraint. Timestamps are Unix seconds.
type record struct {
	Version          int              `json:"version" yaml:"version"`
	ID               string           `json:"id" yaml:"id"`
	Type             Type             `json:"type" yaml:"type"`
	Category         string           `json:"category" yaml:"category"`
	Text             string           `json:"text" yaml:"text"`
	Tags             []string         `json:"tags,omitempty" yaml:"tags,omitempty"`
	Priority         Priority         `json:"priority,omitempty" yaml:"priority,omitempty"`
	Author           string           `json:"author" yaml:"author"`
	References       string           `json:"references,omitempty" yaml:"references,omitempty"`
	Verification     string           `json:"verification,omitempty" yaml:"verification,omitempty"`
	CreatedAt        int64            `json:"created_at" yaml:"created_at"`
	UpdatedAt        int64            `json:"updated_at" yaml:"updated_at"`
	ValidationStatus ValidationStatus `json:"validation_status" yaml:"validation_status"`
}

func (c Constraint) toRecord() record {
	return record{
		Version:          c.Version,
		ID:               c.ID,
		Type:             c.Type,
		Category:         c.Category,
		Text:             c.Text,
		Tags:             c.Tags,
		Priority:         c.Priority,
		Author:           c.Author,
		References:       c.References,
		Verification:     c.Verification,
		CreatedAt:        c.CreatedAt.Unix(),
		UpdatedAt:        c.UpdatedAt.Unix(),
		ValidationStatus: c.ValidationStatus,
	}
}

func (c Constraint) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toRecord())
}

// MarshalYAML renders the same fields as the JSON wire format.
func (c Constraint) MarshalYAML() (any, error) {
	return c.toRecord(), nil
}

func (c *Constraint) UnmarshalJSON(data []byte) error {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*c = Constraint{
		Version:          r.Version,
		ID:               r.ID,
		Type:             r.Type,
		Category:         r.Category,
		Text:             r.Text,
		Tags:             r.Tags,
		Priority:         r.Priority,
		Author:           r.Author,
		References:       r.References,
		Verification:     r.Verification,
		CreatedAt:        time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:        time.Unix(r.UpdatedAt, 0).UTC(),
		ValidationStatus: r.ValidationStatus,
	}
	return nil
}

// Clone returns a copy that shares no slices with c.
func (c Constraint) Clone() Constraint {
	out := c
	out.Tags = cloneTags(c.Tags)
	return out
}

// cloneTags copies tags; an empty list becomes nil so it matches its decoded form.
func cloneTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	return slices.Clone(tags)
}

// Params holds the caller-supplied fields for a new constraint.
type Params struct {
	Type         Type
	Category     string
	Text         string
	Author       string
	ID           string // optional; generated from Text, Category and Type when empty
	Tags         []string
	Priority     Priority
	References   string
	Verification string
}

// Update is a sparse set of field replacements. Nil fields are left untouched;
// pointers to empty values clear optional fields.
type Update struct {
	Text         *string
	Tags         *[]string
	Priority     *Priority
	References   *string
	Verification *string
}

// IsEmpty reports whether the update would change nothing but the timestamp.
func (u Update) IsEmpty() bool {
	return u.Text == nil && u.Tags == nil && u.Priority == nil && u.References == nil && u.Verification == nil
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Second) }

// New builds and validates a constraint at format version 1.
func New(p Params) (Constraint, error) {
	if !slices.Contains(Types, p.Type) {
		return Constraint{}, &InvalidTypeError{Label: string(p.Type)}
	}

	id := p.ID
	if id == "" {
		id = GenerateID(p.Text, p.Category, p.Type.String())
	}

	ts := now()
	c := Constraint{
		Version:          1,
		ID:               id,
		Type:             p.Type,
		Category:         p.Category,
		Text:             p.Text,
		Tags:             cloneTags(p.Tags),
		Priority:         p.Priority,
		Author:           p.Author,
		References:       p.References,
		Verification:     p.Verification,
		CreatedAt:        ts,
		UpdatedAt:        ts,
		ValidationStatus: StatusValid,
	}

	if err := Validate(c); err != nil {
		return Constraint{}, err
	}
	return c, nil
}

// Patch applies u, advances UpdatedAt and re-validates the whole record.
// On failure c is left unchanged.
func (c *Constraint) Patch(u Update) error {
	next := c.Clone()

	if u.Text != nil {
		next.Text = *u.Text
	}
	if u.Tags != nil {
		next.Tags = cloneTags(*u.Tags)
	}
	if u.Priority != nil {
		next.Priority = *u.Priority
	}
	if u.References != nil {
		next.References = *u.References
	}
	if u.Verification != nil {
		next.Verification = *u.Verification
	}

	ts := now()
	if ts.Before(next.CreatedAt) {
		// Clock skew between hosts must not produce an unloadable record.
		ts = next.CreatedAt
	}
	next.UpdatedAt = ts

	if err := Validate(next); err != nil {
		return err
	}
	next.ValidationStatus = StatusValid

	*c = next
	return nil
}

// Check re-runs structural validation and returns the status it implies.
func (c Constraint) Check() (ValidationStatus, error) {
	if err := Validate(c); err != nil {
		return StatusInvalid, err
	}
	return StatusValid, nil
}
