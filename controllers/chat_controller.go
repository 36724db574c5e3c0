package controllers

import (
	"encoding/json"
	"net/http"

	"k8s.io/klog/v2"

	"assistant/models"
	"assistant/services"
)

// User-facing /chat replies produced by the HTTP layer
const (
	MsgTooFast       = "Hold up! You're sending messages too fast. Take a breather! 😅"
	MsgInternalError = "Oops! Something went wrong. Let's try again! 🔄"
	MsgInvalidJSON   = "Invalid JSON format"
)

// ChatHandler answers POST /chat
func (c *Controller) ChatHandler(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			klog.Errorf("Unexpected error in chat endpoint: %v", rec)
			writeJSON(w, http.StatusInternalServerError, models.ChatResponse{Response: MsgInternalError})
		}
	}()

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		klog.Warningf("Invalid chat request: %v", err)
		writeJSON(w, http.StatusBadRequest, models.ChatResponse{Response: MsgInvalidJSON})
		return
	}
	klog.V(2).Infof("Received chat request: prompt=%q attachment=%v", req.Prompt, req.Attachment() != nil)

	ctx := services.WithClientKey(r.Context(), c.clientKey(r))
	reply := c.generator.Generate(ctx, req.Prompt, req.Attachment())

	writeJSON(w, http.StatusOK, models.ChatResponse{Response: reply})
}
