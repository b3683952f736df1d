package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/aidentify/internal/middleware"
)

func queryEmail(req *http.Request) (string, error) {
	email := strings.TrimSpace(req.URL.Query().Get("email"))
	if err := middleware.ValidateEmail(email); err != nil {
		return "", fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return email, nil
}

// GET /api/chat/history?email=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	email, err := queryEmail(req)
	if err != nil {
		return err
	}
	list, err := r.chats.History(req.Context(), email)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /api/chat/{id}?email=
func (r *Router) handleGetChat(w http.ResponseWriter, req *http.Request) error {
	email, err := queryEmail(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateChatID(id); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	chat, err := r.chats.Get(req.Context(), email, id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, chat)
	return nil
}

// DELETE /api/chat/delete?email=&chatId=
func (r *Router) handleDeleteChat(w http.ResponseWriter, req *http.Request) error {
	email, err := queryEmail(req)
	if err != nil {
		return err
	}
	id := req.URL.Query().Get("chatId")
	if err := middleware.ValidateChatID(id); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := r.chats.Delete(req.Context(), email, id); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat deleted successfully"})
	return nil
}
