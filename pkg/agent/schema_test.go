package agent

import (
	"reflect"
	"testing"
)

func TestGenerateJSONSchema_Struct(t *testing.T) {
	type input struct {
		Name  string  `json:"name" desc:"The player's name"`
		Round int     `json:"round"`
		Mood  string  `json:"mood" enum:"laugh,applause,groan"`
		Notes *string `json:"notes,omitempty"`
	}

	schema := GenerateJSONSchema(reflect.TypeOf(input{}))

	if schema.Type != "object" {
		t.Fatalf("expected object schema, got %q", schema.Type)
	}
	if len(schema.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(schema.Properties))
	}

	name, ok := schema.Properties["name"]
	if !ok {
		t.Fatal("missing property 'name'")
	}
	if name.Type != "string" {
		t.Errorf("name type = %q, want string", name.Type)
	}
	if name.Description != "The player's name" {
		t.Errorf("name description = %q", name.Description)
	}

	round, ok := schema.Properties["round"]
	if !ok {
		t.Fatal("missing property 'round'")
	}
	if round.Type != "integer" {
		t.Errorf("round type = %q, want integer", round.Type)
	}

	mood := schema.Properties["mood"]
	want := []string{"laugh", "applause", "groan"}
	if !reflect.DeepEqual(mood.Enum, want) {
		t.Errorf("mood enum = %v, want %v", mood.Enum, want)
	}

	// Pointer + omitempty fields are optional
	wantRequired := []string{"name", "round", "mood"}
	if !reflect.DeepEqual(schema.Required, wantRequired) {
		t.Errorf("required = %v, want %v", schema.Required, wantRequired)
	}
}

func TestGenerateJSONSchema_Scalars(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{"string", reflect.TypeOf(""), "string"},
		{"int", reflect.TypeOf(0), "integer"},
		{"float", reflect.TypeOf(0.0), "number"},
		{"bool", reflect.TypeOf(false), "boolean"},
		{"slice", reflect.TypeOf([]string{}), "array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateJSONSchema(tt.typ)
			if got.Type != tt.want {
				t.Errorf("type = %q, want %q", got.Type, tt.want)
			}
		})
	}
}

func TestGenerateJSONSchema_SliceItems(t *testing.T) {
	schema := GenerateJSONSchema(reflect.TypeOf([]int{}))
	if schema.Items == nil {
		t.Fatal("expected items schema for slice")
	}
	if schema.Items.Type != "integer" {
		t.Errorf("items type = %q, want integer", schema.Items.Type)
	}
}

func TestGenerateJSONSchema_SkipsUnexportedAndDash(t *testing.T) {
	type input struct {
		Visible string `json:"visible"`
		Hidden  string `json:"-"`
		private string
	}
	_ = input{private: ""}

	schema := GenerateJSONSchema(reflect.TypeOf(input{}))
	if len(schema.Properties) != 1 {
		t.Fatalf("expected 1 property, got %d", len(schema.Properties))
	}
	if _, ok := schema.Properties["visible"]; !ok {
		t.Error("missing property 'visible'")
	}
}
