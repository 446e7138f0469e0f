package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/campus-market/meetup-hub/internal/domain/notification"
)

// stream pushes transaction updates and chat messages addressed to the
// authenticated user as server-sent events.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	auth := authUserFromContext(r.Context())
	if auth == nil {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}

	userID := auth.UserID.String()
	client := notification.NewSSEClient(uuid.New().String(), &userID, []string{"role:" + string(auth.Role)})
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(client.ClientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg, open := <-client.MessageChan:
			if !open || msg == nil {
				return
			}
			if err := writeEvent(w, msg); err != nil {
				s.logger.Debug().Err(err).Str("clientId", client.ClientID).Msg("sse write failed")
				return
			}
			flusher.Flush()
			now := time.Now().UTC()
			client.LastEventAt = &now
		case <-ctx.Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, msg *notification.SSEMessage) error {
	if msg.Retry != nil {
		if _, err := fmt.Fprintf(w, "retry: %d\n", *msg.Retry); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Event, msg.Data)
	return err
}
