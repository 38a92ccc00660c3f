package signaling

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeCandidateTriple(t *testing.T) {
	c, err := DecodeCandidate("cand1|0|audio", "|")
	if err != nil {
		t.Fatalf("DecodeCandidate failed: %v", err)
	}
	want := Candidate{Candidate: "cand1", SDPMLineIndex: 0, SDPMid: "audio"}
	if c != want {
		t.Errorf("got %+v, want %+v", c, want)
	}

	init := c.Init()
	if init.Candidate != "cand1" || *init.SDPMLineIndex != 0 || *init.SDPMid != "audio" {
		t.Errorf("Init() = %+v", init)
	}
}

func TestDecodeCandidateMalformed(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		sep     string
	}{
		{"two parts", "cand1|0", "|"},
		{"one part", "cand1", "|"},
		{"empty", "", "|"},
		{"wrong separator", "cand1|0|audio", ";"},
		{"empty separator", "cand1|0|audio", ""},
		{"non-numeric index", "cand1|x|audio", "|"},
		{"index overflow", "cand1|70000|audio", "|"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeCandidate(tc.payload, tc.sep)
			var de *CandidateDecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected CandidateDecodeError, got %v", err)
			}
		})
	}
}

func TestCandidateEncodeUsesSeparator(t *testing.T) {
	c := Candidate{Candidate: "candidate:1 1 udp 2130706431 10.0.0.1 5000 typ host", SDPMLineIndex: 2, SDPMid: "video"}

	for _, sep := range []string{"|", "#~#"} {
		msg := NewCandidate(c, sep)
		got, err := msg.Candidate()
		if err != nil {
			t.Fatalf("sep %q: %v", sep, err)
		}
		if got != c {
			t.Errorf("sep %q: got %+v, want %+v", sep, got, c)
		}
	}
}

func TestMessageWireFormat(t *testing.T) {
	testCases := []struct {
		name string
		msg  Message
		want string
	}{
		{"offer", NewOffer("<sdp-A>"), `{"MessageType":1,"Data":"<sdp-A>"}`},
		{"answer", NewAnswer("<sdp-B>"), `{"MessageType":2,"Data":"<sdp-B>"}`},
		{
			"candidate",
			NewCandidate(Candidate{Candidate: "cand1", SDPMid: "audio"}, "|"),
			`{"MessageType":3,"Data":"cand1|0|audio","IceDataSeparator":"|"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.msg)
			if err != nil {
				t.Fatal(err)
			}
			if !sameJSON(t, b, tc.want) {
				t.Errorf("Marshal = %s, want %s", b, tc.want)
			}
		})
	}
}

func TestMessageUnmarshalKeepsUnknownKind(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"MessageType":7,"Data":"hello"}`), &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Kind() != Kind(7) || msg.Kind().Known() {
		t.Errorf("kind = %v", msg.Kind())
	}
	if msg.Data() != "hello" {
		t.Errorf("data = %q", msg.Data())
	}
	if _, err := msg.Candidate(); err == nil {
		t.Error("Candidate() on a non-candidate message should fail")
	}
}

// sameJSON reports whether got and want decode to the same value. The encoder
// escapes HTML characters such as '<', so byte comparison is too strict.
func sameJSON(t *testing.T, got []byte, want string) bool {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("invalid JSON %s: %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("invalid JSON %s: %v", want, err)
	}
	return reflect.DeepEqual(g, w)
}

func TestWireFormatEscapesHTMLCharacters(t *testing.T) {
	b, err := json.Marshal(NewOffer("<sdp-A>"))
	if err != nil {
		t.Fatal(err)
	}

	var decoded Message
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Kind() != KindOffer || decoded.SDP() != "<sdp-A>" {
		t.Errorf("round trip of %s = %s", b, decoded)
	}
}
