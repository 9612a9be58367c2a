package idgen_test

import (
	"testing"

	"github.com/artpar/schemagate/adapters/idgen"
)

func TestUUID_NewIsSurrogate(t *testing.T) {
	gen := idgen.UUID{}

	a, b := gen.New(), gen.New()
	if a == b {
		t.Error("two generated ids are equal")
	}
	if !idgen.IsSurrogate(a) {
		t.Errorf("IsSurrogate(%q) = false for a generated id", a)
	}
}

func TestIsSurrogate_RejectsOtherTokens(t *testing.T) {
	for _, token := range []string{"", "42", "alice@example.com", "user-1", "not-a-uuid"} {
		if idgen.IsSurrogate(token) {
			t.Errorf("IsSurrogate(%q) = true, want false", token)
		}
	}
}

func TestSequential(t *testing.T) {
	gen := idgen.NewSequential("id-")

	if got := gen.New(); got != "id-1" {
		t.Errorf("New() = %q, want id-1", got)
	}
	if got := gen.New(); got != "id-2" {
		t.Errorf("New() = %q, want id-2", got)
	}

	gen.Reset()
	if got := gen.New(); got != "id-1" {
		t.Errorf("New() after Reset = %q, want id-1", got)
	}
}
