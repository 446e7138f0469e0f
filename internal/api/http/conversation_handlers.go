package httpapi

import (
	"net/http"
)

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	convID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversationId")
		return
	}
	limit, offset := parseLimitOffset(r, 50, 50)
	actor := actorFromContext(r.Context())
	msgs, err := s.chatSvc.ListMessages(r.Context(), actor.ID, convID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (s *Server) reopenConversation(w http.ResponseWriter, r *http.Request) {
	convID, err := parseUUIDParam(r, "conversationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid conversationId")
		return
	}
	actor := actorFromContext(r.Context())
	conv, err := s.chatSvc.ReopenConversation(r.Context(), actor.ID, convID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, conv)
}
