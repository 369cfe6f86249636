package publish

import (
	"TrafficParser/internal/model"
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode serializes a record as a protobuf Struct carrying the same fields as
// its JSON export form.
func Encode(r *model.TrafficRecord) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}
	return proto.Marshal(msg)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (model.TrafficRecord, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return model.TrafficRecord{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	raw, err := json.Marshal(msg.AsMap())
	if err != nil {
		return model.TrafficRecord{}, err
	}
	var r model.TrafficRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return model.TrafficRecord{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return r, nil
}
