// Package server fans client re-categorization announcements out to the
// sessions holding the matching capability.
package server

import (
	"encoding/json"
	"log/slog"
)

type transferRequest struct {
	TargetClientID string `json:"targetClientId"`
	NewCategory    string `json:"newCategory"`
}

// categoryCapabilities maps an announced category to the capability token a
// session must hold to be notified. Categories outside this map notify
// nobody.
var categoryCapabilities = map[string]string{
	"cartera":         "3",
	"atencionCliente": "2",
}

// handleTransfer announces a client re-categorization. The target id is not
// checked against the registry: a transfer is a capability-routing signal,
// not an ownership handover, and announcing for an unknown client id is
// accepted. Failures are reported to the requester only and never abort the
// dispatcher.
func handleTransfer(h *Hub, s *Session, payload json.RawMessage) {
	var req transferRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		sendTransferError(s, "Invalid transfer format")
		return
	}
	if req.TargetClientID == "" || req.NewCategory == "" {
		sendTransferError(s, "Transfer requires targetClientId and newCategory")
		return
	}

	data, err := encodeEvent(EventCategoryUpdated, CategoryUpdatedPayload{
		ClientID:    req.TargetClientID,
		NewCategory: req.NewCategory,
	})
	if err != nil {
		sendTransferError(s, "Failed to process transfer")
		return
	}

	capability, ok := categoryCapabilities[req.NewCategory]
	if !ok {
		slog.Info("Transfer to unrouted category; notifying nobody",
			"session", s.ID(), "category", req.NewCategory)
		return
	}

	h.broadcast <- BroadcastMessage{Capability: capability, Payload: data}
	slog.Info("Client transfer announced",
		"session", s.ID(), "target", req.TargetClientID, "category", req.NewCategory)
}

func sendTransferError(s *Session, message string) {
	s.sendEvent(EventTransferError, TransferErrorPayload{Message: message})
}
