// Package models defines the domain types for Lagu.
package models

import (
	"sort"
	"strings"
	"time"
)

// Kind is the structural category of an item type. It governs which fields
// the type requires and how identifiers are minted.
type Kind string

// Base kinds.
const (
	KindTask     Kind = "tasks"
	KindDocument Kind = "documents"
	KindSession  Kind = "sessions"
)

// Valid reports whether k is one of the known base kinds.
func (k Kind) Valid() bool {
	return k == KindTask || k == KindDocument || k == KindSession
}

// RequiresContent reports whether items of this kind must carry a body.
func (k Kind) RequiresContent() bool {
	return k == KindTask || k == KindDocument
}

// IDScheme is how identifiers are assigned for a type.
type IDScheme int

const (
	// IDSequence mints the next integer from the type's sequence counter.
	IDSequence IDScheme = iota
	// IDTimestamp derives "2006-01-02-15.04.05.000" from an instant.
	IDTimestamp
	// IDDate uses the calendar date itself, at most one item per date.
	IDDate
)

// TypeInfo describes a resolved item type.
type TypeInfo struct {
	Name   string
	Kind   Kind
	Scheme IDScheme
}

// builtins are the always-present types. The timestamp- and date-keyed
// types are hard-coded and never appear as type-registry rows.
var builtins = map[string]TypeInfo{
	"issues":    {Name: "issues", Kind: KindTask, Scheme: IDSequence},
	"plans":     {Name: "plans", Kind: KindTask, Scheme: IDSequence},
	"docs":      {Name: "docs", Kind: KindDocument, Scheme: IDSequence},
	"knowledge": {Name: "knowledge", Kind: KindDocument, Scheme: IDSequence},
	"sessions":  {Name: "sessions", Kind: KindSession, Scheme: IDTimestamp},
	"dailies":   {Name: "dailies", Kind: KindSession, Scheme: IDDate},
}

// BuiltinType returns the TypeInfo for a built-in type name.
func BuiltinType(name string) (TypeInfo, bool) {
	info, ok := builtins[name]
	return info, ok
}

// SequenceBuiltins returns the built-in types backed by the type registry
// (i.e. everything except the timestamp- and date-keyed types).
func SequenceBuiltins() []TypeInfo {
	out := make([]TypeInfo, 0, len(builtins))
	for _, info := range builtins {
		if info.Scheme == IDSequence {
			out = append(out, info)
		}
	}
	return out
}

// BuiltinTypeNames returns every built-in type name.
func BuiltinTypeNames() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// TypeConfig describes the file layout for a type: its subdirectory under
// the base dir, the filename prefix, and whether files are grouped into
// date subdirectories.
type TypeConfig struct {
	Dir             string
	Prefix          string
	DatePartitioned bool
}

var builtinPrefixes = map[string]string{
	"issues":    "issue-",
	"plans":     "plan-",
	"docs":      "doc-",
	"knowledge": "knowledge-",
	"sessions":  "session-",
	"dailies":   "daily-",
}

// FileConfig derives the file layout for a type.
func FileConfig(info TypeInfo) TypeConfig {
	prefix, ok := builtinPrefixes[info.Name]
	if !ok {
		prefix = strings.TrimSuffix(info.Name, "s") + "-"
	}
	return TypeConfig{
		Dir:             info.Name,
		Prefix:          prefix,
		DatePartitioned: info.Scheme == IDTimestamp || info.Scheme == IDDate,
	}
}

// PartitionKey returns the YYYY-MM grouping key for a date- or
// timestamp-formatted identifier.
func PartitionKey(id string) string {
	if len(id) >= 7 {
		return id[:7]
	}
	return id
}

// Priorities for task-kind items.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Item is the unit of storage. The file under the base dir is the
// authoritative representation; the index row is a derived projection.
type Item struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`

	// Task-kind only. Status caches the status *name* at write time; it is
	// not re-resolved if the status is later renamed.
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
	StatusID int64  `json:"status_id,omitempty"`

	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`

	Tags    []string `json:"tags"`
	Related []string `json:"related"`
	// RelatedTasks and RelatedDocuments are views of Related split by the
	// referenced type's kind, derived on read.
	RelatedTasks     []string `json:"related_tasks"`
	RelatedDocuments []string `json:"related_documents"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ref returns the item's "type-id" reference string.
func (it *Item) Ref() string {
	return it.Type + "-" + it.ID
}

// ParseRef splits a "type-id" reference at the first dash. Type names never
// contain dashes, identifiers may (dates, timestamps).
func ParseRef(ref string) (typeName, id string, ok bool) {
	return strings.Cut(ref, "-")
}

// TypeDefinition is a row in the type registry.
type TypeDefinition struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"base_kind"`
	Seq         int64  `json:"current_sequence"`
	Description string `json:"description,omitempty"`
}

// Tag is a registered tag with its derived usage count.
type Tag struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	UsageCount int    `json:"usage_count"`
}

// Status is a named workflow state referenced by task-kind items.
type Status struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsClosed bool   `json:"is_closed"`
}

// RelatedEdge is a directed relation between two items. Edges are derived
// entirely from the source item's Related set and are not validated against
// the target existing.
type RelatedEdge struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
}
