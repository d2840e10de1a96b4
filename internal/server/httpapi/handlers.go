package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/server/services"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type checkResponse struct {
	Exists              bool     `json:"exists"`
	AssetID             int64    `json:"asset_id,omitempty"`
	ProviderID          string   `json:"provider_id,omitempty"`
	UploadedToProviders []string `json:"uploaded_to_providers,omitempty"`
	Note                string   `json:"note,omitempty"`
}

type assetResponse struct {
	AssetID    int64  `json:"asset_id"`
	ProviderID string `json:"provider_id,omitempty"`
	SHA256     string `json:"sha256"`
	Note       string `json:"note,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	_, err := s.userService.Register(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, common.ErrorInvalidLoginFormat):
		writeError(w, http.StatusBadRequest, "invalid login or password format")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusConflict, "username already taken")
	case err != nil:
		s.logger.Error(r.Context(), "register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		w.WriteHeader(http.StatusCreated)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	token, err := s.userService.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, common.ErrorInvalidLoginPassword):
		writeError(w, http.StatusUnauthorized, "invalid login or password")
	case err != nil:
		s.logger.Error(r.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// handleCheck is the read-only existence probe: it never creates rows or
// provider associations.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	sha256 := r.URL.Query().Get("sha256")
	if sha256 == "" {
		writeError(w, http.StatusBadRequest, "sha256 is required")
		return
	}
	providerID := r.URL.Query().Get("provider_id")

	asset, err := s.assetService.Check(r.Context(), UserID(r.Context()), sha256)
	if errors.Is(err, common.ErrorNotFound) {
		writeJSON(w, http.StatusOK, checkResponse{Exists: false})
		return
	}
	if err != nil {
		s.logger.Error(r.Context(), "check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := checkResponse{
		Exists:              true,
		AssetID:             asset.ID,
		UploadedToProviders: asset.Providers,
	}
	if providerID != "" && asset.HasProvider(providerID) {
		resp.ProviderID = providerID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	// form fields arrive before the file part, so a small memory budget
	// keeps the body streaming to disk
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	asset, err := s.assetService.Upload(r.Context(), UserID(r.Context()), services.UploadParams{
		Body:          file,
		Name:          name,
		Kind:          r.FormValue("kind"),
		SHA256:        r.FormValue("sha256"),
		ProviderID:    r.FormValue("provider_id"),
		SourceContext: r.FormValue("source_context"),
	})
	if err != nil {
		s.writeAssetError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, assetResponse{
		AssetID:    asset.ID,
		ProviderID: r.FormValue("provider_id"),
		SHA256:     asset.SHA256,
	})
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	assetID, err := strconv.ParseInt(chi.URLParam(r, "assetID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	providerID := chi.URLParam(r, "providerID")

	asset, err := s.assetService.Link(r.Context(), UserID(r.Context()), assetID, providerID)
	if err != nil {
		s.writeAssetError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, assetResponse{
		AssetID:    asset.ID,
		ProviderID: providerID,
		SHA256:     asset.SHA256,
	})
}

func (s *Server) writeAssetError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "asset not found")
	case errors.Is(err, common.ErrUploadRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error(r.Context(), "asset request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
