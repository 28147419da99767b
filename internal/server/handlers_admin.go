package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/folio-admin/internal/content"
	"github.com/jonathan/folio-admin/internal/credential"
	log "github.com/sirupsen/logrus"
)

var requestValidator = validator.New()

// LoginRequest is the body of POST /admin/login
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// PasswordRequest is the body of PUT /admin/password
type PasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// SettingRequest is the body of PUT /admin/settings/{key}
type SettingRequest struct {
	Value json.RawMessage `json:"value"`
}

// CredentialRequest is the body of PUT /admin/credential
type CredentialRequest struct {
	Repository string `json:"repository"`
	Token      string `json:"token"`
}

// CredentialResponse is the masked credential.
type CredentialResponse struct {
	Repository string `json:"repository"`
	Token      string `json:"token"`
	Complete   bool   `json:"complete"`
}

// decodeJSON decodes the body into v and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	if err := requestValidator.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &ErrValidation{Field: verrs[0].Field(), Message: verrs[0].Tag()}
		}
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return err
		}
	}
	return nil
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &ErrValidation{Field: "body", Message: err.Error()}
	}
	return data, nil
}

// storageWarning flags a response whose change was kept in memory only.
func (s *Server) storageWarning(w http.ResponseWriter) {
	if err := s.store.LastMirrorError(); err != nil {
		w.Header().Set("X-Storage-Warning", err.Error())
	}
}

// handleLogin checks the admin password and returns a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errResponse(w, err)
		return
	}

	session, err := s.auth.Login(s.store.Document(), req.Password)
	if err != nil {
		log.WithField("remote", r.RemoteAddr).Warn("Failed admin login")
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, session)
}

// handleUpdateSection replaces one section with the request body.
func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("section")
	if name == content.SectionSettings {
		// Settings go through /admin/settings and /admin/password.
		s.errResponse(w, &ErrValidation{Field: "section", Message: "use /admin/settings/{key}"})
		return
	}
	if !content.IsSection(name) {
		s.errResponse(w, &content.UnknownSectionError{Name: name})
		return
	}

	raw, err := readBody(w, r)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if err := s.store.UpdateSection(r.Context(), name, raw); err != nil {
		s.errResponse(w, err)
		return
	}

	value, _ := s.store.Document().Section(name)
	s.storageWarning(w)
	s.jsonResponse(w, http.StatusOK, value)
}

// handleUpdateSetting replaces one settings key.
func (s *Server) handleUpdateSetting(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == content.SettingAdminPassword {
		s.errResponse(w, &ErrValidation{Field: "key", Message: "use /admin/password"})
		return
	}

	var req SettingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errResponse(w, err)
		return
	}
	if len(req.Value) == 0 {
		s.errResponse(w, &ErrValidation{Field: "value", Message: "required"})
		return
	}
	if err := s.store.UpdateSetting(r.Context(), key, req.Value); err != nil {
		s.errResponse(w, err)
		return
	}

	s.storageWarning(w)
	s.jsonResponse(w, http.StatusOK, publicSettings(s.store.Document().Settings))
}

// handleChangePassword stores a bcrypt hash of the new admin password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errResponse(w, err)
		return
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	raw, err := json.Marshal(hash)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if err := s.store.UpdateSetting(r.Context(), content.SettingAdminPassword, raw); err != nil {
		s.errResponse(w, err)
		return
	}

	s.storageWarning(w)
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "updated"})
}

// handleAddProject appends a project and returns it with its new id.
func (s *Server) handleAddProject(w http.ResponseWriter, r *http.Request) {
	var p content.Project
	if err := decodeJSON(w, r, &p); err != nil {
		s.errResponse(w, err)
		return
	}

	added, err := s.store.AddProject(r.Context(), p)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.storageWarning(w)
	s.jsonResponse(w, http.StatusCreated, added)
}

// handleReset restores the default document.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.store.Reset(r.Context())
	s.storageWarning(w)
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleExport downloads the JSON backup.
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	data, err := s.store.ExportSnapshot()
	if err != nil {
		s.errResponse(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s_data.json", s.app))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleExportSource downloads the source module.
func (s *Server) handleExportSource(w http.ResponseWriter, _ *http.Request) {
	data, err := s.store.ExportSourceModule()
	if err != nil {
		s.errResponse(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", s.sourceName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport replaces the document with an uploaded backup.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if err := s.store.ImportSnapshot(r.Context(), raw); err != nil {
		s.errResponse(w, err)
		return
	}
	s.storageWarning(w)
	s.jsonResponse(w, http.StatusOK, publicDocument(s.store.Document()))
}

// handleGetCredential returns the credential with the token masked.
func (s *Server) handleGetCredential(w http.ResponseWriter, r *http.Request) {
	c, err := s.credentials.Load(r.Context())
	if err != nil {
		s.errResponse(w, err)
		return
	}
	m := c.Masked()
	s.jsonResponse(w, http.StatusOK, CredentialResponse{Repository: m.Repository, Token: m.Token, Complete: c.Complete()})
}

// handleSaveCredential stores the publish target and token.
func (s *Server) handleSaveCredential(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errResponse(w, err)
		return
	}

	c := credential.Credential{Repository: req.Repository, Token: req.Token}
	if err := s.credentials.Save(r.Context(), c); err != nil {
		s.errResponse(w, err)
		return
	}
	saved, err := s.credentials.Load(r.Context())
	if err != nil {
		s.errResponse(w, err)
		return
	}
	m := saved.Masked()
	s.jsonResponse(w, http.StatusOK, CredentialResponse{Repository: m.Repository, Token: m.Token, Complete: saved.Complete()})
}

// handlePublish commits the current document to the repository.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	result := s.publisher.Publish(r.Context())
	s.jsonResponse(w, PublishStatus(result), result)
}

// handlePublishStatus reports the publish indicator state.
func (s *Server) handlePublishStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.publisher.State())
}

// publicSettings hides the stored password.
func publicSettings(st content.Settings) map[string]any {
	return map[string]any{
		content.SettingAccentColor:       st.AccentColor,
		content.SettingAnimationsEnabled: st.AnimationsEnabled,
	}
}
