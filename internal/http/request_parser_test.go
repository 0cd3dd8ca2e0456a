package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		key    string
		want   string
		isJSON bool
	}{
		{
			name:   "form body",
			method: http.MethodPost,
			target: "/transactions",
			body:   "type=expense&amount=12%2C5",
			key:    "amount",
			want:   "12,5",
		},
		{
			name:   "json body",
			method: http.MethodPost,
			target: "/transactions",
			body:   `{"type":"income","amount":100.5}`,
			key:    "amount",
			want:   "100.5",
			isJSON: true,
		},
		{
			name:   "query fallback",
			method: http.MethodDelete,
			target: "/transactions/3?confirm=yes",
			key:    "confirm",
			want:   "yes",
		},
		{
			name:   "body wins over query",
			method: http.MethodPost,
			target: "/transactions/3/delete?confirm=no",
			body:   "confirm=yes",
			key:    "confirm",
			want:   "yes",
		},
		{
			name:   "trims and strips control characters",
			method: http.MethodPost,
			target: "/transactions",
			body:   "description=%20lunch%00%20",
			key:    "description",
			want:   "lunch",
		},
		{
			name:   "missing key",
			method: http.MethodPost,
			target: "/transactions",
			body:   "type=expense",
			key:    "category",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.isJSON)
			}
		})
	}
}

func TestRequestBodyParser_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"type":`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Error("Parse() accepted truncated JSON")
	}
}

func TestParseEditingID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseEditingID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseEditingID(%q) = %d, %v", tt.in, got, err)
		}
	}
}
