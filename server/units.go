package server

import (
	"net/http"
	"strconv"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/cmn"
)

// registerUnitRoutes wires POST/DELETE /transform/unit/environment/{env}
// [/number/{n}] and its publisher analogue. Unlike Controller.Tick's
// event-table-driven reconciliation, this is an out-of-band administrative
// override: it drives the adapter directly to the requested count,
// sidestepping the event table until the next scheduled tick overwrites it.
func (s *Server) registerUnitRoutes() {
	s.mux.HandleFunc(cmn.URLPathTransformUnit.S+"/", s.handlerForUnit("transform"))
	s.mux.HandleFunc(cmn.URLPathPublisherUnit.S+"/", s.handlerForUnit("publisher"))
}

type unitBody struct {
	NumUnits int `json:"num_units"`
}

func (s *Server) handlerForUnit(service string) http.HandlerFunc {
	prefix := cmn.URLPathTransformUnit.S
	if service == "publisher" {
		prefix = cmn.URLPathPublisherUnit.S
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.Auth.Authorize(r, authn.AllowRoot(), authn.Role("admin_platform")); err != nil {
			writeErr(w, err)
			return
		}
		if s.Capacity == nil || s.Capacity.Adapter == nil {
			writeErr(w, cmn.NewNotImplemented("no capacity adapter configured"))
			return
		}
		seg := splitSegments(pathSuffix(r, prefix))
		if len(seg) < 2 || seg[0] != "environment" {
			writeErr(w, cmn.NewMissingEntityRef("environment", ""))
			return
		}
		env := seg[1]

		var numUnits int
		switch {
		case len(seg) >= 4 && seg[2] == "number":
			n, err := strconv.Atoi(seg[3])
			if err != nil || n < 0 {
				writeErr(w, cmn.NewInvalidRequest("number must be a non-negative integer"))
				return
			}
			numUnits = n
		case r.Method == http.MethodPost:
			var body unitBody
			if err := cmn.ReadJSON(r, &body); err != nil {
				writeErr(w, err)
				return
			}
			if body.NumUnits < 0 {
				writeErr(w, cmn.NewInvalidRequest("num_units must be a non-negative integer"))
				return
			}
			numUnits = body.NumUnits
		default:
			numUnits = 0 // DELETE with no explicit count scales the fleet to zero
		}

		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.Capacity.Adapter.EnsureNumUnits(r.Context(), env, service, numUnits); err != nil {
			writeErr(w, err)
			return
		}
		observed, err := s.Capacity.Adapter.Observe(r.Context(), env, service)
		if err != nil {
			writeErr(w, err)
			return
		}
		_ = cmn.WriteJSON(w, http.StatusOK, observed)
	}
}
