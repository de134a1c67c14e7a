package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	helloSchema := compile("hello.schema.json")
	welcomeSchema := compile("welcome.schema.json")
	opSchema := compile("op.schema.json")

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "name":"farmer1",
	  "role":"FARMER",
	  "capabilities":{"max_queue":8}
	}`), &hello)
	validate(helloSchema, hello)

	var welcome any
	_ = json.Unmarshal([]byte(`{
	  "type":"WELCOME",
	  "protocol_version":"1.0",
	  "session_id":"S000001",
	  "role":"FARMER",
	  "market_id":"freshvault-1",
	  "engine_params":{
	    "tick_rate_hz":5,
	    "delivery_tick_every_ticks":5,
	    "promotion_sweep_every_ticks":300,
	    "reply_delay_ticks":15,
	    "starting_credits":1250
	  },
	  "catalogs":{
	    "storage_units_digest":"deadbeef",
	    "promotion_plans_digest":"deadbeef",
	    "barter_services_digest":"deadbeef"
	  }
	}`), &welcome)
	validate(welcomeSchema, welcome)

	var addCrop any
	_ = json.Unmarshal([]byte(`{
	  "type":"OP",
	  "protocol_version":"1.0",
	  "id":"op-1",
	  "op":"ADD_CROP",
	  "crop":{"name":"Tomatoes","variety":"Roma","quantity":500,"price_per_kg":3.5,"harvest_date":"2026-08-20","location":"North Field","category":"Vegetables"}
	}`), &addCrop)
	validate(opSchema, addCrop)

	var promote any
	_ = json.Unmarshal([]byte(`{
	  "type":"OP",
	  "protocol_version":"1.0",
	  "id":"op-2",
	  "op":"PROMOTE_CROP",
	  "crop_id":"C000001",
	  "plan":"WEEKLY"
	}`), &promote)
	validate(opSchema, promote)

	var progress any
	_ = json.Unmarshal([]byte(`{
	  "type":"OP",
	  "protocol_version":"1.0",
	  "id":"op-3",
	  "op":"UPDATE_DELIVERY_PROGRESS",
	  "task_id":"T000001",
	  "progress":35
	}`), &progress)
	validate(opSchema, progress)
}

func TestSchemas_RejectBadSamples(t *testing.T) {
	p := filepath.Join("..", "..", "schemas", "op.schema.json")
	opSchema, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	bad := []string{
		`{"type":"OP","protocol_version":"1.0","id":"x","op":"NOT_AN_OP"}`,
		`{"type":"OP","protocol_version":"1.0","op":"ADD_CROP"}`,
		`{"type":"OP","protocol_version":"1.0","id":"x","op":"PROMOTE_CROP","plan":"DAILY"}`,
		`{"type":"OP","protocol_version":"1.0","id":"x","op":"UPDATE_DELIVERY_PROGRESS","progress":120}`,
	}
	for i, raw := range bad {
		var v any
		_ = json.Unmarshal([]byte(raw), &v)
		if err := opSchema.Validate(v); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
