package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"studentrecords/internal/auth"
	"studentrecords/internal/crypto"
	"studentrecords/internal/model"
	"studentrecords/internal/storage"
)

const dateLayout = "2006-01-02"

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	// Accepted for compatibility with older clients, never honored:
	// the public signup path always produces a Student.
	Role string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

type studentResponse struct {
	ID             string `json:"id"`
	IdentityID     string `json:"identityId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Course         string `json:"course"`
	EnrollmentDate string `json:"enrollmentDate"`
}

func mapStudent(profile model.Profile) studentResponse {
	return studentResponse{
		ID:             profile.ID,
		IdentityID:     profile.IdentityID,
		Name:           profile.Name,
		Email:          profile.Email,
		Course:         profile.Course,
		EnrollmentDate: profile.EnrollmentDate,
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.serverError(w, "password hash failed", err)
		return
	}

	identity := model.Identity{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Email:      req.Email,
		SecretHash: hash,
		Role:       model.RoleStudent,
		CreatedAt:  time.Now().UTC(),
	}
	profile := model.Profile{
		ID:             uuid.NewString(),
		IdentityID:     identity.ID,
		Name:           req.Name,
		Email:          req.Email,
		Course:         s.cfg.DefaultCourse,
		EnrollmentDate: time.Now().UTC().Format(dateLayout),
	}

	if _, err := s.store.CreateStudent(r.Context(), identity, profile); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "Email already exists")
			return
		}
		s.storeError(w, "signup failed", err)
		return
	}

	s.issueToken(w, identity)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	// One undifferentiated failure for unknown email and wrong
	// password alike.
	identity, err := s.store.GetIdentityByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		s.storeError(w, "login lookup failed", err)
		return
	}
	if err := crypto.CheckPassword(identity.SecretHash, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	s.issueToken(w, identity)
}

func (s *Server) issueToken(w http.ResponseWriter, identity model.Identity) {
	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.TokenTTL, auth.Claims{
		UserID: identity.ID,
		Role:   identity.Role,
	})
	if err != nil {
		s.serverError(w, "token issue failed", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Role: identity.Role, Name: identity.Name})
}

type listStudentsResponse struct {
	Students []studentResponse `json:"students"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	page, limit := listParams(r.URL.Query())
	offset := (page - 1) * limit

	total, err := s.store.CountProfiles(r.Context())
	if err != nil {
		s.storeError(w, "count failed", err)
		return
	}
	profiles, err := s.store.ListProfiles(r.Context(), limit, offset)
	if err != nil {
		s.storeError(w, "list failed", err)
		return
	}

	students := make([]studentResponse, 0, len(profiles))
	for _, profile := range profiles {
		students = append(students, mapStudent(profile))
	}
	writeJSON(w, http.StatusOK, listStudentsResponse{
		Students: students,
		Total:    total,
		Page:     page,
		Limit:    limit,
	})
}

type createStudentRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required"`
	Course         string `json:"course"`
	EnrollmentDate string `json:"enrollmentDate"`
}

type createStudentResponse struct {
	Student  studentResponse `json:"student"`
	Password string          `json:"password"`
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	password, err := crypto.NewGeneratedPassword()
	if err != nil {
		s.serverError(w, "password generation failed", err)
		return
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		s.serverError(w, "password hash failed", err)
		return
	}

	course := req.Course
	if course == "" {
		course = s.cfg.DefaultCourse
	}
	enrollment := req.EnrollmentDate
	if enrollment == "" {
		enrollment = time.Now().UTC().Format(dateLayout)
	}

	identity := model.Identity{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Email:      req.Email,
		SecretHash: hash,
		Role:       model.RoleStudent,
		CreatedAt:  time.Now().UTC(),
	}
	profile := model.Profile{
		ID:             uuid.NewString(),
		IdentityID:     identity.ID,
		Name:           req.Name,
		Email:          req.Email,
		Course:         course,
		EnrollmentDate: enrollment,
	}

	created, err := s.store.CreateStudent(r.Context(), identity, profile)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "Email already exists")
			return
		}
		s.storeError(w, "student create failed", err)
		return
	}

	// The plaintext password is visible in this response only.
	writeJSON(w, http.StatusOK, createStudentResponse{
		Student:  mapStudent(created),
		Password: password,
	})
}

type updateStudentRequest struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required"`
	Course         string `json:"course" validate:"required"`
	EnrollmentDate string `json:"enrollmentDate" validate:"required"`
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	var req updateStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	err := s.store.UpdateProfile(r.Context(), profileID, storage.ProfileUpdate{
		Name:           req.Name,
		Email:          req.Email,
		Course:         req.Course,
		EnrollmentDate: req.EnrollmentDate,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Student not found")
			return
		}
		s.storeError(w, "student update failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")

	if err := s.store.DeleteStudent(r.Context(), profileID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Student not found")
			return
		}
		s.storeError(w, "student delete failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	identity, err := s.store.GetIdentityByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "User not found")
			return
		}
		s.storeError(w, "user lookup failed", err)
		return
	}
	if identity.Role == model.RoleAdmin {
		writeError(w, http.StatusForbidden, "Admins have no student profile")
		return
	}

	// Target derived from the claim subject, never from the request.
	profile, err := s.store.GetProfileByIdentity(r.Context(), identity.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Student profile not found")
			return
		}
		s.storeError(w, "profile lookup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, mapStudent(profile))
}

type updateMeRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"required"`
	Course string `json:"course"`
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req updateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	err := s.store.UpdateSelf(r.Context(), claims.UserID, storage.SelfUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Course: req.Course,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusBadRequest, "User not found")
		case errors.Is(err, storage.ErrDuplicateEmail):
			writeError(w, http.StatusBadRequest, "Email already exists")
		default:
			s.storeError(w, "self update failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// storeError is for persistence failures only; "DB error" is reserved
// for those.
func (s *Server) storeError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, slog.String("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "DB error")
}
