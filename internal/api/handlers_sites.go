package api

import (
	"net/http"
	"strconv"

	"sitelog/internal/sites"
)

type sitePayload struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	PermitID  string `json:"permit_id"`
	PortalURL string `json:"portal_url"`
}

func (p sitePayload) toSite(id int64) sites.SiteContext {
	return sites.SiteContext{
		ID:        id,
		Name:      p.Name,
		Address:   p.Address,
		PermitID:  p.PermitID,
		PortalURL: p.PortalURL,
	}
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true"
	records, err := s.store.ListSites(r.Context(), includeArchived)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sites": records})
}

func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var payload sitePayload
	if !s.decodeBody(w, r, &payload) {
		return
	}
	record, err := s.store.CreateSite(r.Context(), payload.toSite(0))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid site id"})
		return
	}
	var payload sitePayload
	if !s.decodeBody(w, r, &payload) {
		return
	}
	if err := s.store.UpdateSite(r.Context(), payload.toSite(id)); err != nil {
		s.writeError(w, r, err)
		return
	}
	record, err := s.store.GetSite(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleArchiveSite(w http.ResponseWriter, r *http.Request) {
	s.setSiteArchived(w, r, true)
}

func (s *Server) handleUnarchiveSite(w http.ResponseWriter, r *http.Request) {
	s.setSiteArchived(w, r, false)
}

func (s *Server) setSiteArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	id, err := pathID(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid site id"})
		return
	}
	if archived {
		err = s.store.ArchiveSite(r.Context(), id)
	} else {
		err = s.store.UnarchiveSite(r.Context(), id)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	var siteID int64
	if raw := r.URL.Query().Get("site_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid site_id"})
			return
		}
		siteID = parsed
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := s.store.ListMetadata(r.Context(), siteID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"logs": records})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	var siteID int64
	if raw := r.URL.Query().Get("site_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid site_id"})
			return
		}
		siteID = parsed
	}
	removed, err := s.store.ClearMetadata(r.Context(), siteID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}
