// Package cmn provides common low-level types and utilities shared by every
// orchestrator package: JSON envelopes, configuration, typed errors, and
// timestamp formatting.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package cmn

import (
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

// json is aistore's own convention: every wire structure in this repo is
// marshaled through json-iterator rather than encoding/json directly.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the uniform REST response shape: {"status": <code>, "value": <payload>}.
type Envelope struct {
	Status int         `json:"status"`
	Value  interface{} `json:"value"`
}

// WriteJSON writes v wrapped in an Envelope with the given HTTP status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(Envelope{Status: status, Value: v})
}

// ReadJSON decodes the request body into v, translating decode failures into
// an InvalidRequest error (never panics on malformed bodies).
func ReadJSON(r *http.Request, v interface{}) error {
	defer Drain(r.Body)
	if r.Body == nil {
		return NewInvalidRequest("missing request body")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return NewInvalidRequest("malformed JSON body: " + err.Error())
	}
	return nil
}

// Drain reads and closes the remainder of body so the underlying connection
// can be reused by the transport's keep-alive pool.
func Drain(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// Marshal/Unmarshal re-export the json-iterator codec for packages (store,
// queue) that serialize entities outside of an HTTP request/response.
func Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }
func Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
