package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"booker/internal/domain"
	"booker/internal/domain/models"
	"booker/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	user, err := h.Users.FindByLogin(strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusUnauthorized, "invalid_credentials", "Email/username atau password salah", nil)
			return
		}
		RespondDomainError(c, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "Email/username atau password salah", nil)
		return
	}

	token, err := h.issue(user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "token_failed", "gagal membuat token", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Username == "":
		RespondDomainError(c, domain.ValidationError{Field: "username", Msg: "wajib diisi"})
		return
	case !strings.Contains(req.Email, "@"):
		RespondDomainError(c, domain.ValidationError{Field: "email", Msg: "format tidak valid"})
		return
	case len(req.Password) < 8:
		RespondDomainError(c, domain.ValidationError{Field: "password", Msg: "minimal 8 karakter"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "hash_failed", "gagal meng-hash password", nil)
		return
	}
	user, err := h.Users.Create(req.Username, req.Email, string(hash), h.now())
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	token, err := h.issue(user)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "token_failed", "gagal membuat token", nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registrasi berhasil", "token": token, "user": user})
}

func (h *Handlers) issue(u models.User) (string, error) {
	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return middleware.IssueToken(h.JWTSecret, u.ID, ttl, h.now())
}
