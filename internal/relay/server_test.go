package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMailboxIsFIFOPerEndpoint(t *testing.T) {
	s := NewServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	post := func(id, body string) {
		t.Helper()
		resp, err := http.Post(ts.URL+"/data/"+id, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("POST status = %d", resp.StatusCode)
		}
	}
	get := func(id string) (int, string) {
		t.Helper()
		resp, err := http.Get(ts.URL + "/data/" + id)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	post("viewer", `{"MessageType":1,"Data":"a"}`)
	post("viewer", `{"MessageType":3,"Data":"b"}`)
	post("broadcaster", `{"MessageType":2,"Data":"c"}`)

	if n := s.Pending("viewer"); n != 2 {
		t.Fatalf("Pending(viewer) = %d, want 2", n)
	}

	testCases := []struct {
		id     string
		status int
		body   string
	}{
		{"viewer", http.StatusOK, `{"MessageType":1,"Data":"a"}`},
		{"viewer", http.StatusOK, `{"MessageType":3,"Data":"b"}`},
		{"viewer", http.StatusNoContent, ""},
		{"broadcaster", http.StatusOK, `{"MessageType":2,"Data":"c"}`},
		{"nobody", http.StatusNoContent, ""},
	}
	for _, tc := range testCases {
		status, body := get(tc.id)
		if status != tc.status || body != tc.body {
			t.Errorf("GET %s = %d %q, want %d %q", tc.id, status, body, tc.status, tc.body)
		}
	}
}

func TestPostRejectsNonJSON(t *testing.T) {
	s := NewServer()
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/data/viewer", "text/plain", strings.NewReader("not json"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if s.Pending("viewer") != 0 {
		t.Error("invalid message was queued")
	}
}

func TestCORSHeaders(t *testing.T) {
	ts := httptest.NewServer(NewServer().Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/data/viewer", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}
