package httpserver

import (
	"net/http"
	"strconv"

	"github.com/bryanwahyu/aidentify/internal/middleware"
)

// GET /api/results?email=&page=&page_size=
func (r *Router) handleResults(w http.ResponseWriter, req *http.Request) error {
	email, err := queryEmail(req)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analysis.ListResults(req.Context(), email,
		middleware.ValidatePage(page), middleware.ValidatePageSize(size))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /api/failures?email=&limit=
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	email, err := queryEmail(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.analysis.RecentFailures(req.Context(), email, limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}
