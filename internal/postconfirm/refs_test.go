package postconfirm

import (
	"reflect"
	"testing"
)

func TestDecodeRefsJSONArray(t *testing.T) {
	got := DecodeRefs(`["b","a","a"]`)
	want := RefSet{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeRefsLegacyBareString(t *testing.T) {
	got := DecodeRefs("deadbeef")
	want := RefSet{"deadbeef"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestDecodeRefsEmpty(t *testing.T) {
	if got := DecodeRefs(""); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestEncodeRefsRoundTrip(t *testing.T) {
	refs := RefSet{"a", "b"}
	encoded := EncodeRefs(refs)
	if encoded != `["a","b"]` {
		t.Fatalf("got %q", encoded)
	}
	if got := DecodeRefs(encoded); !reflect.DeepEqual(got, refs) {
		t.Fatalf("got %v, want %v", got, refs)
	}
}

func TestMergeRefsUnion(t *testing.T) {
	got := MergeRefs(RefSet{"b", "a"}, RefSet{"c", "a"})
	want := RefSet{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRefSetAdd(t *testing.T) {
	var refs RefSet
	refs = refs.Add("z")
	refs = refs.Add("a")
	want := RefSet{"a", "z"}
	if !reflect.DeepEqual(refs, want) {
		t.Fatalf("got %v, want %v", refs, want)
	}
	if !refs.Contains("a") || refs.Contains("missing") {
		t.Fatalf("Contains misbehaved: %v", refs)
	}
}

func TestNewReferenceShape(t *testing.T) {
	ref := NewReference()
	if len(ref) != 32 {
		t.Fatalf("expected 32-char reference, got %d: %q", len(ref), ref)
	}
	for _, ch := range ref {
		if !(ch >= '0' && ch <= '9') && !(ch >= 'a' && ch <= 'f') {
			t.Fatalf("reference contains non-hex char: %q", ref)
		}
	}
}
