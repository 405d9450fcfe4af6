package api

import (
	"net/http"

	"github.com/bluetracehq/bluetrace/internal/artifact"
)

// extractionsResponse is the response body for GET /extractions.
type extractionsResponse struct {
	Extractions []artifact.Artifact `json:"extractions"`
	Count       int                 `json:"count"`
}

// handleListExtractions returns every artifact the calling operator has
// recorded, newest capture first.
//
// An operator with no extractions gets 404, not an empty list: capture
// consoles treat "nothing recorded yet" as a distinct state.
func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.scans.ListArtifacts(r.Context(), operatorID(r))
	if err != nil {
		s.logger.Error("listing extractions failed", "error", err)
		writeInternalError(w, "failed to list extractions")
		return
	}

	if len(artifacts) == 0 {
		writeNotFound(w, "no extractions found for this operator")
		return
	}

	writeJSON(w, http.StatusOK, extractionsResponse{
		Extractions: artifacts,
		Count:       len(artifacts),
	})
}
