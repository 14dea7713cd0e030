package formflow_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	formflow "github.com/reoring/formflow"
)

func TestValue_UnsetVersusEmpty(t *testing.T) {
	vs := formflow.Values{"name": "", "nick": nil}

	if vs.Lookup("missing").IsSet() {
		t.Fatalf("absent key must be Unset")
	}
	name := vs.Lookup("name")
	if !name.IsSet() || name.Or("dflt") != "" {
		t.Fatalf("empty string must be Set(\"\"): %+v", name)
	}
	if !vs.Lookup("nick").IsSet() {
		t.Fatalf("explicit nil is still Set")
	}
	if formflow.Unset().Equal(formflow.Set(nil)) {
		t.Fatalf("Unset must differ from Set(nil)")
	}
	if !formflow.Set([]any{"a"}).Equal(formflow.Set([]any{"a"})) {
		t.Fatalf("deep equality expected")
	}
	if got := formflow.Values(nil).Lookup("x"); got.Presence() != formflow.PresenceUnset {
		t.Fatalf("nil Values lookup: %+v", got)
	}
}

func TestValues_CloneIsDeep(t *testing.T) {
	src := formflow.Values{
		"tags":    []any{"a", map[string]any{"k": "v"}},
		"address": map[string]any{"city": "Tokyo"},
		"urls":    []string{"https://a"},
	}
	cp := src.Clone()
	cp["tags"].([]any)[1].(map[string]any)["k"] = "changed"
	cp["address"].(map[string]any)["city"] = "Osaka"
	cp["urls"].([]string)[0] = "https://b"

	want := formflow.Values{
		"tags":    []any{"a", map[string]any{"k": "v"}},
		"address": map[string]any{"city": "Tokyo"},
		"urls":    []string{"https://a"},
	}
	if diff := cmp.Diff(want, src); diff != "" {
		t.Fatalf("source mutated (-want +got):\n%s", diff)
	}
}

func TestDeepCopy_TypedContainers(t *testing.T) {
	src := map[string]any{
		"ints":   []int{1, 2},
		"labels": map[string]string{"a": "b"},
		"nested": []map[string]any{{"k": []any{"v"}}},
		"fixed":  [2]int{3, 4},
		"nil":    []int(nil),
	}
	cp := formflow.DeepCopy(src).(map[string]any)
	cp["ints"].([]int)[0] = 9
	cp["labels"].(map[string]string)["a"] = "z"
	cp["nested"].([]map[string]any)[0]["k"].([]any)[0] = "w"

	want := map[string]any{
		"ints":   []int{1, 2},
		"labels": map[string]string{"a": "b"},
		"nested": []map[string]any{{"k": []any{"v"}}},
		"fixed":  [2]int{3, 4},
		"nil":    []int(nil),
	}
	if diff := cmp.Diff(want, src); diff != "" {
		t.Fatalf("source mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want["fixed"], cp["fixed"]); diff != "" {
		t.Fatalf("array copy mismatch (-want +got):\n%s", diff)
	}
	if cp["nil"].([]int) != nil {
		t.Fatalf("nil slices stay nil")
	}
}
