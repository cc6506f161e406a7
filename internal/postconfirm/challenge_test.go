package postconfirm

import "testing"

func TestChallengeSubjectRoundTrip(t *testing.T) {
	ref := NewReference()
	subject := FormatChallengeSubject(ref)

	if subject[0] != ' ' {
		t.Fatalf("expected leading space, got %q", subject)
	}

	got, ok := ExtractChallengeRef(subject)
	if !ok {
		t.Fatalf("ExtractChallengeRef(%q) did not recognize a challenge subject", subject)
	}
	if got != ref {
		t.Fatalf("got %q, want %q", got, ref)
	}
}

func TestExtractChallengeRefCaseInsensitive(t *testing.T) {
	got, ok := ExtractChallengeRef("  CONFIRM: ::DEADbeef0123")
	if !ok || got != "DEADbeef0123" {
		t.Fatalf("got (%q, %v)", got, ok)
	}
}

func TestIsChallengeResponseFalseForOrdinarySubject(t *testing.T) {
	if IsChallengeResponse("Re: hello there") {
		t.Fatal("ordinary subject misclassified as challenge response")
	}
}

func TestIsChallengeResponseMalformedTreatedAsNotResponse(t *testing.T) {
	if IsChallengeResponse("Confirm: ::not-hex!!") {
		t.Fatal("malformed reference must not be recognized as a challenge response")
	}
}

func TestReformMessageUsesCRLF(t *testing.T) {
	msg := ReformMessage([]Header{{Name: "Subject", Value: " hi"}}, []byte("body"))
	want := "Subject: hi\r\n\r\nbody"
	if string(msg) != want {
		t.Fatalf("got %q, want %q", msg, want)
	}
}
