// internal/dedup/dedup.go
//
// Package dedup merges record batches into the accumulated store without
// duplicates. Merge is order-preserving (existing before incoming, first
// occurrence wins) and idempotent: merging the same batch twice equals
// merging it once.
package dedup

import (
	"encoding/json"
	"fmt"

	"github.com/pagehound/pagehound/pkg/types"
)

// Merge returns the union of existing and incoming under the identity rule
// for typeKey, preserving order of first occurrence.
func Merge(existing, incoming []any, typeKey string) []any {
	seen := make(map[string]bool, len(existing)+len(incoming))
	result := make([]any, 0, len(existing)+len(incoming))
	for _, record := range existing {
		key := identityKey(record, typeKey)
		if !seen[key] {
			seen[key] = true
			result = append(result, record)
		}
	}
	for _, record := range incoming {
		key := identityKey(record, typeKey)
		if !seen[key] {
			seen[key] = true
			result = append(result, record)
		}
	}
	return result
}

// MergeInto merges every type list of incoming into the store in place.
func MergeInto(store *types.ScrapedStore, incoming map[string][]any) {
	for typeKey, records := range incoming {
		store.SetTypeList(typeKey, Merge(store.TypeList(typeKey), records, typeKey))
	}
}

// identityKey computes the dedup key for a record under its type's identity
// rule: exact string equality for scalars, href for links, (name, price) for
// products, src for images, and full deep equality (canonical JSON) for
// every other structured type.
func identityKey(record any, typeKey string) string {
	if s, ok := record.(string); ok {
		return "s\x00" + s
	}
	fields, ok := record.(types.Record)
	if !ok {
		return canonicalKey(record)
	}
	switch typeKey {
	case types.TypeLinks:
		return "k\x00" + stringField(fields, "href")
	case types.TypeProducts:
		return "k\x00" + stringField(fields, "name") + "\x00" + stringField(fields, "price")
	case types.TypeImages:
		return "k\x00" + stringField(fields, "src")
	default:
		return canonicalKey(record)
	}
}

func stringField(record types.Record, name string) string {
	v, _ := record[name].(string)
	return v
}

// canonicalKey serializes the record; json.Marshal emits map keys in sorted
// order, so equal records always produce equal keys.
func canonicalKey(record any) string {
	data, err := json.Marshal(record)
	if err != nil {
		return "e\x00" + fmt.Sprintf("%v", record)
	}
	return "j\x00" + string(data)
}
