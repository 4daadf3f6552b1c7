// Package fieldmap maps typed items to and from the generic metadata-block
// shape. Each base kind declares an ordered field list; built-in and custom
// types of the same kind share the same mapper, which is what lets custom
// types reuse the storage code unchanged.
package fieldmap

import (
	"fmt"
	"time"

	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/record"
)

// accessor reads and writes one metadata key on an Item.
type accessor struct {
	get func(*models.Item) any
	set func(*models.Item, *record.Record)
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var accessors = map[string]accessor{
	"title": {
		get: func(it *models.Item) any { return it.Title },
		set: func(it *models.Item, r *record.Record) { it.Title = r.StringValue("title") },
	},
	"description": {
		get: func(it *models.Item) any { return it.Description },
		set: func(it *models.Item, r *record.Record) { it.Description = r.StringValue("description") },
	},
	"priority": {
		get: func(it *models.Item) any { return it.Priority },
		set: func(it *models.Item, r *record.Record) { it.Priority = r.StringValue("priority") },
	},
	"status_id": {
		get: func(it *models.Item) any { return it.StatusID },
		set: func(it *models.Item, r *record.Record) { it.StatusID = r.IntValue("status_id") },
	},
	"start_date": {
		get: func(it *models.Item) any { return it.StartDate },
		set: func(it *models.Item, r *record.Record) { it.StartDate = r.StringValue("start_date") },
	},
	"end_date": {
		get: func(it *models.Item) any { return it.EndDate },
		set: func(it *models.Item, r *record.Record) { it.EndDate = r.StringValue("end_date") },
	},
	"tags": {
		get: func(it *models.Item) any { return stringsOrEmpty(it.Tags) },
		set: func(it *models.Item, r *record.Record) { it.Tags = r.StringsValue("tags") },
	},
	"related": {
		get: func(it *models.Item) any { return stringsOrEmpty(it.Related) },
		set: func(it *models.Item, r *record.Record) { it.Related = r.StringsValue("related") },
	},
	"created_at": {
		get: func(it *models.Item) any { return it.CreatedAt.Format(time.RFC3339) },
		set: func(it *models.Item, r *record.Record) { it.CreatedAt = parseTime(r.StringValue("created_at")) },
	},
	"updated_at": {
		get: func(it *models.Item) any { return it.UpdatedAt.Format(time.RFC3339) },
		set: func(it *models.Item, r *record.Record) { it.UpdatedAt = parseTime(r.StringValue("updated_at")) },
	},
}

// kindFields is the declared field list per base kind, in emission order.
var kindFields = map[models.Kind][]string{
	models.KindTask: {
		"title", "description", "priority", "status_id",
		"start_date", "end_date", "tags", "related",
		"created_at", "updated_at",
	},
	models.KindDocument: {
		"title", "description", "start_date", "end_date",
		"tags", "related", "created_at", "updated_at",
	},
	models.KindSession: {
		"title", "description", "start_date", "end_date",
		"tags", "related", "created_at", "updated_at",
	},
}

// Mapper converts items of one base kind to and from their file form.
type Mapper struct {
	kind models.Kind
	keys []string
}

var mappers = map[models.Kind]*Mapper{}

func init() {
	for kind, keys := range kindFields {
		mappers[kind] = &Mapper{kind: kind, keys: keys}
	}
}

// For returns the shared mapper for a base kind.
func For(kind models.Kind) (*Mapper, error) {
	m, ok := mappers[kind]
	if !ok {
		return nil, fmt.Errorf("fieldmap: unknown kind %q", kind)
	}
	return m, nil
}

// Encode renders an item into its file representation: the kind's declared
// metadata keys in order, followed by the content body.
func (m *Mapper) Encode(it *models.Item) ([]byte, error) {
	fields := make([]record.Field, 0, len(m.keys))
	for _, key := range m.keys {
		fields = append(fields, record.Field{Key: key, Value: accessors[key].get(it)})
	}
	return record.Encode(fields, it.Content)
}

// Decode parses file data back into an item of the given type and id.
// Keys outside the kind's declared list are ignored.
func (m *Mapper) Decode(data []byte, typeName, id string) (*models.Item, error) {
	rec, err := record.Decode(data)
	if err != nil {
		return nil, err
	}
	it := &models.Item{Type: typeName, ID: id, Content: rec.Body}
	for _, key := range m.keys {
		accessors[key].set(it, rec)
	}
	return it, nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
