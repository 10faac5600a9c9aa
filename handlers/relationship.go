package handlers

import (
	"net/http"

	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/services"
)

type RelationshipHandler struct {
	Relationships *services.RelationshipService
}

func (h *RelationshipHandler) AddParent(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ParentID         uint   `json:"parent_id"`
		ChildID          uint   `json:"child_id"`
		RelationshipType string `json:"relationship_type"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	edge, err := h.Relationships.AddParent(r.Context(), payload.ParentID, payload.ChildID, payload.RelationshipType)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (h *RelationshipHandler) RemoveParent(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "edge_id")
	if !ok {
		return
	}
	if err := h.Relationships.RemoveParent(r.Context(), ids[0]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RelationshipHandler) AddMarriage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Spouse1ID       uint    `json:"spouse_1_id"`
		Spouse2ID       uint    `json:"spouse_2_id"`
		MarriageDate    *string `json:"marriage_date"`
		MarriageEndDate *string `json:"marriage_end_date"`
		EndReason       *string `json:"end_reason"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	married, err := parseDatePtr("marriage_date", payload.MarriageDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	ended, err := parseDatePtr("marriage_end_date", payload.MarriageEndDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	marriage := &models.MarriedTo{
		Spouse1ID:       payload.Spouse1ID,
		Spouse2ID:       payload.Spouse2ID,
		MarriageDate:    married,
		MarriageEndDate: ended,
	}
	if payload.EndReason != nil {
		reason := models.MarriageEndReason(*payload.EndReason)
		marriage.EndReason = &reason
	}
	if err := h.Relationships.AddMarriage(r.Context(), marriage); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, marriage)
}

func (h *RelationshipHandler) EndMarriage(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "edge_id")
	if !ok {
		return
	}
	var payload struct {
		MarriageEndDate *string `json:"marriage_end_date"`
		EndReason       string  `json:"end_reason"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	ended, err := parseDatePtr("marriage_end_date", payload.MarriageEndDate)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	marriage, err := h.Relationships.EndMarriage(r.Context(), ids[0], ended, payload.EndReason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, marriage)
}

func (h *RelationshipHandler) AddSibling(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Sibling1ID uint `json:"sibling_1_id"`
		Sibling2ID uint `json:"sibling_2_id"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	edge, err := h.Relationships.AddSibling(r.Context(), payload.Sibling1ID, payload.Sibling2ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

func (h *RelationshipHandler) RemoveSibling(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "edge_id")
	if !ok {
		return
	}
	if err := h.Relationships.RemoveSibling(r.Context(), ids[0]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
