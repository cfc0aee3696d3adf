package occupation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/occupation-search/pkg/errors"
)

// rawRecord mirrors one entry of the O*NET export:
//
//	"45-2041.00": {
//	    "occupation": "Graders and Sorters, Agricultural Products",
//	    "values": [["Working_Conditions", null]],
//	    "knowledge": [["English_Language", "51"], ["Mathematics", 27]],
//	    ...
//	}
type rawRecord map[string]json.RawMessage

const nameField = "occupation"

// LoadJSON reads an O*NET export file into a Store.
func LoadJSON(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	store, err := ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing dataset %s: %w", path, err)
	}
	return store, nil
}

// ParseJSON decodes an O*NET export document into a Store. Importances may be
// numbers, numeric strings or null; anything else rejects the record.
func ParseJSON(data []byte) (*Store, error) {
	var raw map[string]rawRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedRecord, err)
	}
	records := make([]*Record, 0, len(raw))
	for code, fields := range raw {
		rec, err := decodeRecord(code, fields)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return NewStore(records)
}

func decodeRecord(code string, fields rawRecord) (*Record, error) {
	rec := &Record{Code: code}
	for field, value := range fields {
		if field == nameField {
			if err := json.Unmarshal(value, &rec.Name); err != nil {
				return nil, fmt.Errorf("%w: %s: occupation name: %v", apperrors.ErrMalformedRecord, code, err)
			}
			continue
		}
		items, err := decodeItems(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: group %q: %v", apperrors.ErrMalformedRecord, code, field, err)
		}
		if err := rec.setGroup(field, items); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrMalformedRecord, code, err)
		}
	}
	return rec, nil
}

func decodeItems(data json.RawMessage) ([]Item, error) {
	var pairs [][]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&pairs); err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("item %d: expected [name, importance], got %d elements", i, len(pair))
		}
		name, ok := pair[0].(string)
		name = itemName(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("item %d: name must be a non-empty string", i)
		}
		importance, err := coerceImportance(pair[1])
		if err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, name, err)
		}
		items = append(items, Item{Name: name, Importance: importance})
	}
	return items, nil
}

// coerceImportance accepts the shapes the dataset uses for a rating.
func coerceImportance(v any) (*float64, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("importance %q: %w", val, err)
		}
		return &f, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("importance %q is not numeric", val)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("importance has unsupported type %T", v)
	}
}
