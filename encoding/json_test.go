package encoding

import "testing"

func TestToJson(t *testing.T) {
	v := map[string]any{"b": 1, "a": []int{1, 2}}
	if got := ToJson(v); got != `{"a":[1,2],"b":1}` {
		t.Fatalf("ToJson = %s", got)
	}
	if got := ToPrettyJson(map[string]int{"a": 1}); got != "{\n  \"a\": 1\n}" {
		t.Fatalf("ToPrettyJson = %q", got)
	}
	if got := ToJson(make(chan int)); got != "" {
		t.Fatalf("unencodable value rendered as %q", got)
	}
}
