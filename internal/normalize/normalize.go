// Package normalize turns provider payloads into uniform tables.
package normalize

import (
	"fmt"
	"sort"

	"github.com/guregu/null/v6"

	"github.com/seenimoa/newsquant/pkg/models"
	"github.com/seenimoa/newsquant/pkg/utils"
)

// NewsColumns is the fixed leading column order of a news table. Keys the
// provider sends beyond these follow in sorted order.
var NewsColumns = []string{
	"author",
	"title",
	"description",
	"url",
	"urlToImage",
	models.ColPublishedAt,
	"content",
	models.ColSourceName,
}

// Market table columns.
const (
	ColDatetime = "Datetime"
	ColOpen     = "Open"
	ColHigh     = "High"
	ColLow      = "Low"
	ColClose    = "Close"
	ColAdjClose = "Adj Close"
	ColVolume   = "Volume"
)

// Normalize dispatches on the payload kind.
func Normalize(p models.RawPayload) (*models.Table, error) {
	switch p.Kind {
	case models.KindNews:
		return News(p.Data)
	case models.KindMarket:
		series, ok := p.Data.(*models.MarketSeries)
		if !ok {
			return nil, models.Errorf(models.KindMalformedPayload, "normalize market",
				"payload holds %s, want a price series", typeName(p.Data))
		}
		return Market(series)
	default:
		return nil, models.Errorf(models.KindMalformedPayload, "normalize", "unknown payload kind %q", p.Kind)
	}
}

// News flattens a news payload: either an object wrapping an "articles"
// list or a bare list of article records. The nested source object is
// replaced by source_name.
func News(data any) (*models.Table, error) {
	const op = "normalize news"

	var articles []any
	switch v := data.(type) {
	case map[string]any:
		raw, ok := v["articles"]
		if !ok {
			return nil, models.Errorf(models.KindMalformedPayload, op, `payload is an object without "articles"`)
		}
		list, ok := raw.([]any)
		if !ok {
			return nil, models.Errorf(models.KindMalformedPayload, op, `"articles" is %s, want a list`, typeName(raw))
		}
		articles = list
	case []any:
		articles = v
	default:
		return nil, models.Errorf(models.KindMalformedPayload, op, "payload is %s, want an object or a list", typeName(data))
	}

	records := make([]map[string]any, len(articles))
	extra := map[string]bool{}
	for i, a := range articles {
		rec, ok := a.(map[string]any)
		if !ok {
			return nil, models.Errorf(models.KindMalformedPayload, op, "article %d is %s, want an object", i, typeName(a))
		}
		records[i] = rec
		for k := range rec {
			if k != "source" && !isNewsColumn(k) {
				extra[k] = true
			}
		}
	}

	columns := append([]string(nil), NewsColumns...)
	columns = append(columns, sortedKeys(extra)...)

	t := models.NewTable(models.KindNews, columns...)
	for _, rec := range records {
		row := make(models.Row, len(columns))
		for k, v := range rec {
			if k == "source" {
				continue
			}
			row[k] = v
		}
		row[models.ColSourceName] = sourceName(rec["source"])
		t.Append(row)
	}
	return t, nil
}

// Market converts a price series to a table with one row per candle. The
// Datetime column holds the exchange wall clock without a zone.
func Market(s *models.MarketSeries) (*models.Table, error) {
	if s == nil {
		return nil, models.Errorf(models.KindMalformedPayload, "normalize market", "no price series")
	}

	columns := []string{ColDatetime, ColOpen, ColHigh, ColLow, ColClose}
	if s.HasAdjClose {
		columns = append(columns, ColAdjClose)
	}
	columns = append(columns, ColVolume)

	t := models.NewTable(models.KindMarket, columns...)
	for _, c := range s.Candles {
		row := models.Row{
			ColDatetime: utils.NaiveTime(c.Timestamp),
			ColOpen:     floatCell(c.Open),
			ColHigh:     floatCell(c.High),
			ColLow:      floatCell(c.Low),
			ColClose:    floatCell(c.Close),
			ColVolume:   intCell(c.Volume),
		}
		if s.HasAdjClose {
			row[ColAdjClose] = floatCell(c.AdjClose)
		}
		t.Append(row)
	}
	return t, nil
}

func floatCell(v null.Float) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func intCell(v null.Int) any {
	if !v.Valid {
		return nil
	}
	return v.Int64
}

func sourceName(source any) any {
	m, ok := source.(map[string]any)
	if !ok {
		return nil
	}
	name, ok := m["name"]
	if !ok {
		return nil
	}
	return name
}

func isNewsColumn(k string) bool {
	for _, c := range NewsColumns {
		if c == k {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// typeName names the JSON type of a decoded value.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "bool"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
