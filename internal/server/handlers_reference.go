package server

import (
	"encoding/json"
	"net/http"

	"gitlab.com/itfintrack/fintrack/internal/ledger"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

// Reference-data endpoints: categories, vendors, income sources and the user
// directory. Listings return active rows only; mutations go through the
// ledger service so they are role-gated and audit-captured.

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := repository.NewCategoryRepository(s.db).ListActive(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	category, err := s.ledger.CreateCategory(r.Context(), actorFrom(r), req.Name)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, category)
}

func (s *Server) handleSoftDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	category, err := s.ledger.SetCategoryDeleted(r.Context(), actorFrom(r), id, true)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, category)
}

type vendorRequest struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	IsActive bool   `json:"is_active"`
}

func (req *vendorRequest) toInput() ledger.VendorInput {
	return ledger.VendorInput{Name: req.Name, Contact: req.Contact, IsActive: req.IsActive}
}

func (s *Server) handleListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := repository.NewVendorRepository(s.db).ListActive(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, vendors)
}

func (s *Server) handleCreateVendor(w http.ResponseWriter, r *http.Request) {
	var req vendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	vendor, err := s.ledger.CreateVendor(r.Context(), actorFrom(r), req.toInput())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, vendor)
}

func (s *Server) handleUpdateVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req vendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	vendor, err := s.ledger.UpdateVendor(r.Context(), actorFrom(r), id, req.toInput())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, vendor)
}

type incomeSourceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

func (req *incomeSourceRequest) toInput() ledger.IncomeSourceInput {
	return ledger.IncomeSourceInput{Name: req.Name, Description: req.Description, IsActive: req.IsActive}
}

func (s *Server) handleListIncomeSources(w http.ResponseWriter, r *http.Request) {
	sources, err := repository.NewIncomeSourceRepository(s.db).ListActive(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sources)
}

func (s *Server) handleCreateIncomeSource(w http.ResponseWriter, r *http.Request) {
	var req incomeSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	source, err := s.ledger.CreateIncomeSource(r.Context(), actorFrom(r), req.toInput())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, source)
}

func (s *Server) handleUpdateIncomeSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	var req incomeSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}
	source, err := s.ledger.UpdateIncomeSource(r.Context(), actorFrom(r), id, req.toInput())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, source)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := repository.NewUserRepository(s.db).List(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, users)
}
