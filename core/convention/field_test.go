package convention_test

import (
	"testing"
	"time"

	"github.com/artpar/schemagate/adapters/clock"
	"github.com/artpar/schemagate/core/convention"
	"github.com/artpar/schemagate/core/schema"
)

func TestKindOf_KnownTokens(t *testing.T) {
	cases := []struct {
		token string
		want  convention.Kind
	}{
		{"String", convention.KindString},
		{"Number", convention.KindNumber},
		{"Boolean", convention.KindBoolean},
		{"Date", convention.KindDate},
		{"Array", convention.KindArray},
		{"Object", convention.KindObject},
		{"Mixed", convention.KindMixed},
		{"ObjectId", convention.KindObjectID},
	}

	for _, tc := range cases {
		kind, ok := convention.KindOf(tc.token)
		if !ok {
			t.Errorf("KindOf(%q) ok = false, want true", tc.token)
		}
		if kind != tc.want {
			t.Errorf("KindOf(%q) = %v, want %v", tc.token, kind, tc.want)
		}
		if kind.String() != tc.token {
			t.Errorf("Kind(%v).String() = %q, want %q", kind, kind.String(), tc.token)
		}
	}
}

func TestKindOf_UnknownTokenFallsBackToString(t *testing.T) {
	for _, token := range []string{"", "Decimal128", "string", "NUMBER", "reference"} {
		kind, ok := convention.KindOf(token)
		if ok {
			t.Errorf("KindOf(%q) ok = true, want false", token)
		}
		if kind != convention.KindString {
			t.Errorf("KindOf(%q) = %v, want KindString", token, kind)
		}
	}
}

func TestResolveField_UnknownTypeKeepsConstraints(t *testing.T) {
	f := convention.ResolveField("code", schema.Field{
		Type:     "Decimal128",
		Required: true,
		Unique:   true,
	})

	if f.Kind != convention.KindString {
		t.Errorf("Kind = %v, want KindString", f.Kind)
	}
	if f.KnownType {
		t.Error("KnownType = true, want false")
	}
	if !f.Required || !f.Unique {
		t.Error("constraints dropped during type fallback")
	}
}

func TestResolveField_LiteralDefault(t *testing.T) {
	f := convention.ResolveField("status", schema.Field{Type: "String", Default: "draft"})

	if !f.HasDefault {
		t.Fatal("HasDefault = false, want true")
	}
	if f.DefaultNow {
		t.Error("DefaultNow = true, want false")
	}
	if got := f.DefaultValue(time.Now); got != "draft" {
		t.Errorf("DefaultValue() = %v, want draft", got)
	}
}

func TestResolveField_BooleanStringDefaults(t *testing.T) {
	cases := []struct {
		raw  any
		want any
	}{
		{"true", true},
		{"false", false},
		{true, true},
		{float64(7), float64(7)},
		{"pending", "pending"},
	}

	for _, tc := range cases {
		f := convention.ResolveField("flag", schema.Field{Type: "Boolean", Default: tc.raw})
		if got := f.DefaultValue(time.Now); got != tc.want {
			t.Errorf("default %v resolved to %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestResolveField_DateNowIsDeferred(t *testing.T) {
	f := convention.ResolveField("joined", schema.Field{Type: "Date", Default: "Date.now"})

	if !f.DefaultNow {
		t.Fatal("DefaultNow = false, want true")
	}
	if f.Default != nil {
		t.Errorf("Default = %v, want nil for deferred default", f.Default)
	}

	fake := clock.NewFake(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	first := f.DefaultValue(fake.Now)
	fake.Advance(time.Minute)
	second := f.DefaultValue(fake.Now)

	if first == second {
		t.Errorf("deferred default did not advance with the clock: %v", first)
	}
	if first != "2024-03-01T10:00:00Z" {
		t.Errorf("DefaultValue() = %v, want 2024-03-01T10:00:00Z", first)
	}
}

func TestNormalize_StringTransforms(t *testing.T) {
	f := convention.ResolveField("email", schema.Field{Type: "String", Trim: true, Lowercase: true})

	if got := f.Normalize("  Alice@Example.COM  "); got != "alice@example.com" {
		t.Errorf("Normalize() = %q, want alice@example.com", got)
	}
	// Non-string values pass through untouched.
	if got := f.Normalize(float64(5)); got != float64(5) {
		t.Errorf("Normalize(5) = %v, want 5", got)
	}
}

func TestNormalize_Uppercase(t *testing.T) {
	f := convention.ResolveField("sku", schema.Field{Type: "String", Uppercase: true})
	if got := f.Normalize("ab-12"); got != "AB-12" {
		t.Errorf("Normalize() = %q, want AB-12", got)
	}
}
