package media

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func TestIsRemote(t *testing.T) {
	cases := map[string]bool{
		"http://cdn.example/lecture.mp4":  true,
		"https://cdn.example/lecture.mp4": true,
		"/data/assets/lecture.mp4":        false,
		"lecture.mp4":                     false,
		"ftp://host/file":                 false,
	}
	for source, want := range cases {
		if got := IsRemote(source); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", source, got, want)
		}
	}
}

func TestFetchRemote(t *testing.T) {
	content := bytes.Repeat([]byte("media"), 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	path, err := FetchRemote(context.Background(), srv.URL+"/lecture.mp4")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer os.Remove(path)

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read temp: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("downloaded %d bytes, want %d", len(got), len(content))
	}
}

func TestFetchRemoteBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := FetchRemote(context.Background(), srv.URL+"/missing.mp4"); err == nil {
		t.Fatal("expected error for 404 source")
	}
}
