package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 64 << 10

// pathInt64 reads a positive integer path parameter.
func pathInt64(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return v, nil
}

// groupID accepts any non-zero integer; chat groups are often negative.
func groupID(r *http.Request) (int64, error) {
	raw := r.PathValue("group")
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("group must be a non-zero integer, got %q", raw)
	}
	return v, nil
}

// ListParams holds the query of a listing request.
type ListParams struct {
	Limit    int
	Category string
}

// ParseListParams reads limit (a number or "all") and category. A missing
// limit uses defaultLimit; "all" maps to 0, meaning no limit.
func ParseListParams(query url.Values, defaultLimit int) (ListParams, error) {
	p := ListParams{Limit: defaultLimit, Category: sanitizeInput(query.Get("category"))}

	switch v := strings.TrimSpace(query.Get("limit")); {
	case v == "":
	case strings.EqualFold(v, "all"):
		p.Limit = 0
	default:
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			return ListParams{}, fmt.Errorf("limit must be between 1 and 1000 or 'all', got %q", v)
		}
		p.Limit = n
	}
	return p, nil
}

// readBody reads at most maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("request body exceeds %d bytes", tooBig.Limit)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// decodeJSON strictly decodes body into v.
func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON body: trailing data")
	}
	return nil
}

// optionalInt64 parses an optional query value; empty yields 0.
func optionalInt64(query url.Values, key string) (int64, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

// sanitizeInput drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
