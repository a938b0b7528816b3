package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "http://secure.internal:3129", "localhost,.corp.example")

	tests := []struct {
		url  string
		want string
	}{
		{"http://example.com/dict.txt", "http://proxy.internal:3128"},
		{"https://example.com/dict.txt", "http://secure.internal:3129"},
		{"https://mirror.corp.example/dict.txt", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.url, nil)
			if err != nil {
				t.Fatal(err)
			}
			got, err := proxy(req)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("Expected no proxy, got %v", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, got)
			}
		})
	}
}

func TestNewProxyFunc_HTTPSWithoutHTTPSProxy(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "", "")
	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)

	got, err := proxy(req)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected no proxy for https without an https proxy, got %v", got)
	}
}
