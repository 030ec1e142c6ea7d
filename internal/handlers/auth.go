package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
	"github.com/tnsecretariat/regadmin/internal/services"
)

type ctxKey int

const adminKey ctxKey = 1

func activity() *services.Activity { return services.NewActivity(db.Conn()) }

func clientIP(r *http.Request) string { return r.RemoteAddr }

func newToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// RequireAdmin is middleware: blocks access unless the bearer token belongs
// to an active admin account.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		var admin models.User
		err := db.Conn().
			Where("api_token = ? AND role IN ? AND is_active = ?",
				token, []string{models.RoleAdmin, models.RoleSuperAdmin}, true).
			First(&admin).Error
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminKey, &admin)))
	})
}

// RequireSuperAdmin layers on top of RequireAdmin for destructive routes.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentAdmin(r).IsSuperAdmin() {
			writeError(w, http.StatusForbidden, "super admin required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentAdmin(r *http.Request) *models.User {
	u, _ := r.Context().Value(adminKey).(*models.User)
	return u
}

// POST /api/login
func Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var admin models.User
	err := db.Conn().
		Where("email = ? AND role IN ? AND is_active = ?",
			strings.TrimSpace(body.Email), []string{models.RoleAdmin, models.RoleSuperAdmin}, true).
		First(&admin).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(body.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	admin.APIToken = newToken()
	if err := db.Conn().Model(&admin).Update("api_token", admin.APIToken).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = activity().Record(&admin.ID, "login", "user", admin.ID, nil, nil, clientIP(r), r.UserAgent())

	writeJSON(w, http.StatusOK, map[string]any{
		"token": admin.APIToken,
		"user":  admin,
	})
}

// GET /api/me
func Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentAdmin(r))
}

// POST /api/logout
func Logout(w http.ResponseWriter, r *http.Request) {
	admin := currentAdmin(r)
	if err := db.Conn().Model(admin).Update("api_token", "").Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = activity().Record(&admin.ID, "logout", "user", admin.ID, nil, nil, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
