// Package server implements the REST surface (spec §6, component C7): a
// flat http.ServeMux with manual path-segment parsing, composing
// authn/store/dispatch/callback/capacity/blobstore behind the uniform
// {"status": <code>, "value": <payload>} envelope. Grounded on the
// teacher's own httprunner (ais/proxy.go, ais/target.go): no third-party
// router is ever pulled in, matching the teacher's go.mod exactly.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/store"
)

var recognizedQueryKeys = map[string]bool{
	"spec": true, "fields": true, "skip": true, "limit": true, "sort": true, "fail": true,
	"load_fields": true,
}

// parseSpec builds a store.Spec from r's query string. Unknown query keys
// are a 400 unless fail=false is explicitly passed, mirroring the original
// get_request_data helper's "fail" escape hatch (SPEC_FULL.md supplemented
// feature #2; spec §8 boundary behaviour).
func parseSpec(r *http.Request) (store.Spec, error) {
	q := r.URL.Query()
	if err := checkUnknownKeys(q); err != nil {
		return store.Spec{}, err
	}

	spec := store.Spec{}
	if raw := q.Get("spec"); raw != "" {
		filter := map[string]interface{}{}
		if err := cmn.Unmarshal([]byte(raw), &filter); err != nil {
			return store.Spec{}, cmn.NewInvalidRequest("spec must be a JSON object")
		}
		spec.Filter = filter
	}
	if raw := q.Get("fields"); raw != "" {
		spec.Fields = strings.Split(raw, ",")
	}
	if raw := q.Get("sort"); raw != "" {
		spec.Sort = strings.Split(raw, ",")
	}
	spec.LoadFields = q.Get("load_fields") == "true"

	skip, err := parseNonNegative(q, "skip")
	if err != nil {
		return store.Spec{}, err
	}
	spec.Skip = skip

	limit, err := parseNonNegative(q, "limit")
	if err != nil {
		return store.Spec{}, err
	}
	spec.Limit = limit

	return spec, nil
}

func checkUnknownKeys(q url.Values) error {
	failOnUnknown := true
	if v := q.Get("fail"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cmn.NewInvalidRequest("fail must be a boolean")
		}
		failOnUnknown = b
	}
	if !failOnUnknown {
		return nil
	}
	for key := range q {
		if !recognizedQueryKeys[key] {
			return cmn.NewInvalidRequest("unknown query parameter: " + key)
		}
	}
	return nil
}

// parseNonNegative parses q[key] as an integer, treating an absent or empty
// value as 0 ("no skip"/"no limit", spec §8 boundary behaviour).
func parseNonNegative(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, cmn.NewInvalidRequest(key + " must be a non-negative integer")
	}
	return n, nil
}
