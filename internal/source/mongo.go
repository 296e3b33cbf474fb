package source

import (
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/WolfSchew/kaggle-olist/internal/table"
)

// Mongo reads one collection per logical table. The header is taken from the
// keys of the first document, without _id; keys first seen in later
// documents are appended.
type Mongo struct {
	URI         string
	Database    string
	Collections []string
}

func (m Mongo) Load(ctx context.Context) (table.Tables, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(m.URI))
	if err != nil {
		return nil, ioError("", m.URI, err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(m.Database)
	tables := make(table.Tables, len(m.Collections))
	for _, name := range m.Collections {
		location := "mongodb:" + m.Database + "." + name
		cursor, err := db.Collection(name).Find(ctx, bson.D{})
		if err != nil {
			return nil, ioError(name, location, err)
		}
		var docs []bson.D
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, parseError(name, location, err)
		}
		t, err := table.FromRecords(name, location, documentsToRecords(docs))
		if err != nil {
			return nil, parseError(name, location, err)
		}
		log.Debugf("loaded %s from mongo: %d rows", name, t.Len())
		tables[name] = t
	}
	return tables, nil
}

func documentsToRecords(docs []bson.D) [][]string {
	if len(docs) == 0 {
		return nil
	}
	var header []string
	pos := map[string]int{}
	for _, d := range docs {
		for _, e := range d {
			if e.Key == "_id" {
				continue
			}
			if _, ok := pos[e.Key]; !ok {
				pos[e.Key] = len(header)
				header = append(header, e.Key)
			}
		}
	}
	records := make([][]string, 0, len(docs)+1)
	records = append(records, header)
	for _, d := range docs {
		rec := make([]string, len(header))
		for _, e := range d {
			if i, ok := pos[e.Key]; ok {
				rec[i] = cellString(e.Value)
			}
		}
		records = append(records, rec)
	}
	return records
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case primitive.DateTime:
		return t.Time().UTC().Format(time.DateTime)
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Decimal128:
		return t.String()
	case primitive.Null, primitive.Undefined:
		return ""
	default:
		return ""
	}
}
