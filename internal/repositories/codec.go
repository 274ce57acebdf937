package repositories

import (
	"fmt"
	"reflect"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeDocument flattens a model into a document using its json tags. The
// "id" key is dropped because the ID is the document key.
func EncodeDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	delete(doc, FieldID)
	return doc, nil
}

// DecodeRecord fills out from the record, setting its "id" field from the
// record ID.
func DecodeRecord(r Record, out any) error {
	input := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		input[k] = v
	}
	input[FieldID] = r.ID

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", r.ID, err)
	}
	return nil
}

// DecodeRecords decodes every record into a new slice. An empty input yields
// an empty, non-nil slice.
func DecodeRecords[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := DecodeRecord(r, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// stringToTimeHook accepts RFC 3339 strings and empty strings for time fields.
func stringToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
