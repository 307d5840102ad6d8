package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    ListParams
		wantErr bool
	}{
		{"defaults", "", ListParams{Limit: 10}, false},
		{"all", "limit=ALL", ListParams{Limit: 0}, false},
		{"explicit", "limit=3&category=comida", ListParams{Limit: 3, Category: "comida"}, false},
		{"control chars stripped", "category=%01comida%00", ListParams{Limit: 10, Category: "comida"}, false},
		{"zero", "limit=0", ListParams{}, true},
		{"garbage", "limit=ten", ListParams{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseListParams(q, 10)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPathParams(t *testing.T) {
	mux := http.NewServeMux()
	var group, id int64
	var gErr, idErr error
	mux.HandleFunc("GET /g/{group}/t/{id}", func(w http.ResponseWriter, r *http.Request) {
		group, gErr = groupID(r)
		id, idErr = pathInt64(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/g/-100123/t/42", nil))
	if gErr != nil || group != -100123 || idErr != nil || id != 42 {
		t.Fatalf("group=%d (%v) id=%d (%v)", group, gErr, id, idErr)
	}

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/g/0/t/-1", nil))
	if gErr == nil || idErr == nil {
		t.Fatal("expected errors for zero group and negative id")
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Text string `json:"text"`
	}
	if err := decodeJSON([]byte(`{"text":"hola"}`), &v); err != nil || v.Text != "hola" {
		t.Fatalf("decode: %v %+v", err, v)
	}
	if err := decodeJSON([]byte(`{"text":"a","extra":1}`), &v); err == nil {
		t.Error("unknown fields should be rejected")
	}
	if err := decodeJSON([]byte(`{"text":"a"} {}`), &v); err == nil {
		t.Error("trailing data should be rejected")
	}
}

func TestReadBodyLimit(t *testing.T) {
	big := strings.Repeat("x", maxBodyBytes+1)
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	if _, err := readBody(httptest.NewRecorder(), r); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v", err)
	}
}

func TestOptionalInt64(t *testing.T) {
	q, _ := url.ParseQuery("user_id=5&bad=x")
	if n, err := optionalInt64(q, "user_id"); err != nil || n != 5 {
		t.Fatalf("user_id = %d, %v", n, err)
	}
	if n, err := optionalInt64(q, "missing"); err != nil || n != 0 {
		t.Fatalf("missing = %d, %v", n, err)
	}
	if _, err := optionalInt64(q, "bad"); err == nil {
		t.Fatal("expected error")
	}
}
