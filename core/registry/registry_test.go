package registry_test

import (
	"sync"
	"testing"

	"github.com/artpar/schemagate/core/registry"
	"github.com/artpar/schemagate/core/schema"
)

func entity(route string) schema.Entity {
	return schema.Entity{
		Route: route,
		Backend: schema.Backend{
			Schema: map[string]schema.Field{
				"name": {Type: "String", Required: true},
			},
		},
	}
}

func TestGetOrBuild_Memoizes(t *testing.T) {
	r := registry.New()

	first := r.GetOrBuild("user", entity("/api/users"))
	second := r.GetOrBuild("user", entity("/api/users"))

	if first != second {
		t.Error("GetOrBuild built a second model for a cached entity")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestGet_MissingEntity(t *testing.T) {
	r := registry.New()
	if _, ok := r.Get("ghost"); ok {
		t.Error("Get() found a model that was never built")
	}
}

func TestInvalidate_Selective(t *testing.T) {
	r := registry.New()
	r.GetOrBuild("user", entity("/api/users"))
	r.GetOrBuild("post", entity("/api/posts"))

	r.Invalidate("user")

	if _, ok := r.Get("user"); ok {
		t.Error("user still cached after Invalidate")
	}
	if _, ok := r.Get("post"); !ok {
		t.Error("post dropped by selective Invalidate")
	}
}

func TestInvalidate_All(t *testing.T) {
	r := registry.New()
	old := r.GetOrBuild("user", entity("/api/users"))
	r.GetOrBuild("post", entity("/api/posts"))

	r.Invalidate()

	if r.Len() != 0 {
		t.Fatalf("Len() = %d after full Invalidate, want 0", r.Len())
	}

	// Next build picks up the new configuration.
	rebuilt := r.GetOrBuild("user", entity("/api/members"))
	if rebuilt == old {
		t.Error("GetOrBuild returned the invalidated model")
	}
	if rebuilt.Route != "/api/members" {
		t.Errorf("rebuilt Route = %q, want /api/members", rebuilt.Route)
	}
}

func TestList_Sorted(t *testing.T) {
	r := registry.New()
	r.GetOrBuild("zebra", entity("/api/zebras"))
	r.GetOrBuild("apple", entity("/api/apples"))
	r.GetOrBuild("mango", entity("/api/mangos"))

	models := r.List()
	want := []string{"apple", "mango", "zebra"}
	if len(models) != len(want) {
		t.Fatalf("len(List()) = %d, want %d", len(models), len(want))
	}
	for i, name := range want {
		if models[i].Entity != name {
			t.Errorf("List()[%d].Entity = %q, want %q", i, models[i].Entity, name)
		}
	}
}

func TestGetOrBuild_Concurrent(t *testing.T) {
	r := registry.New()

	var wg sync.WaitGroup
	results := make([]any, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrBuild("user", entity("/api/users"))
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent GetOrBuild produced distinct models")
		}
	}
}
