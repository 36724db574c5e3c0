package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"k8s.io/klog/v2"

	"assistant/models"
	"assistant/services"
)

// MsgNoQuery is returned when /search is called without a query
const MsgNoQuery = "No search query provided"

// SearchHandler answers POST /search
func (c *Controller) SearchHandler(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			klog.Errorf("Unexpected error in search endpoint: %v", rec)
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: fmt.Sprint(rec)})
		}
	}()

	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		klog.Warningf("Invalid search request: %v", err)
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: MsgInvalidJSON})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		klog.Warning("No search query provided")
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: MsgNoQuery})
		return
	}

	ctx := services.WithClientKey(r.Context(), c.clientKey(r))
	results := c.searcher.Search(ctx, req.Query)

	writeJSON(w, http.StatusOK, models.SearchResponse{Results: results})
}
