package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tonecapon3/stock-ticker-v2-sub000/internal/apierror"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders the stable {error, code} body plus the request id.
func writeError(w http.ResponseWriter, r *http.Request, apiErr *apierror.Error) {
	payload := map[string]any{
		"error": apiErr.Message,
		"code":  apiErr.Code,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, apiErr.StatusCode, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// decodeJSONOptional is decodeJSON for endpoints where the body may be
// omitted entirely. Only a malformed body is an error; an absent one leaves
// dst at its zero value. ContentLength is not consulted, so chunked requests
// decode the same as sized ones.
func decodeJSONOptional(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
