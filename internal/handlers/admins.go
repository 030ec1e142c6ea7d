package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
)

var adminRoles = []string{models.RoleAdmin, models.RoleSuperAdmin}

// GET /api/admins
func AdminsList(w http.ResponseWriter, r *http.Request) {
	var admins []models.User
	err := db.Conn().Where("role IN ?", adminRoles).Order("id asc").Find(&admins).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": admins})
}

type adminBody struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Role      *string `json:"role"`
	IsActive  *bool   `json:"is_active"`
}

// POST /api/admins  (super admin only)
func AdminCreate(w http.ResponseWriter, r *http.Request) {
	var body adminBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Email == nil || strings.TrimSpace(*body.Email) == "" {
		writeError(w, http.StatusUnprocessableEntity, "email is required")
		return
	}
	if body.Password == nil || len(*body.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
		return
	}
	role := models.RoleAdmin
	if body.Role != nil {
		if *body.Role != models.RoleAdmin && *body.Role != models.RoleSuperAdmin {
			writeError(w, http.StatusUnprocessableEntity, "role must be admin or super_admin")
			return
		}
		role = *body.Role
	}

	email := strings.TrimSpace(*body.Email)
	var existing models.User
	if err := db.Conn().Where("email = ? AND role IN ?", email, adminRoles).First(&existing).Error; err == nil {
		writeError(w, http.StatusConflict, "an admin with that email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	u := models.User{
		Email:    email,
		Password: string(hash),
		Role:     role,
		IsActive: true,
	}
	if body.FirstName != nil {
		u.FirstName = strings.TrimSpace(*body.FirstName)
	}
	if body.LastName != nil {
		u.LastName = strings.TrimSpace(*body.LastName)
	}
	if err := db.Conn().Create(&u).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	actor := currentAdmin(r)
	_ = activity().Record(&actor.ID, "create", "admin", u.ID, nil, &u, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusCreated, u)
}

// PUT /api/admins/{id}  (super admin only)
func AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body adminBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var u models.User
	err := db.Conn().Where("role IN ?", adminRoles).First(&u, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "admin not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	before := u
	if body.FirstName != nil {
		u.FirstName = strings.TrimSpace(*body.FirstName)
	}
	if body.LastName != nil {
		u.LastName = strings.TrimSpace(*body.LastName)
	}
	if body.Email != nil && strings.TrimSpace(*body.Email) != "" {
		u.Email = strings.TrimSpace(*body.Email)
	}
	if body.Role != nil {
		if *body.Role != models.RoleAdmin && *body.Role != models.RoleSuperAdmin {
			writeError(w, http.StatusUnprocessableEntity, "role must be admin or super_admin")
			return
		}
		u.Role = *body.Role
	}
	if body.IsActive != nil {
		u.IsActive = *body.IsActive
	}
	if body.Password != nil {
		if len(*body.Password) < 8 {
			writeError(w, http.StatusUnprocessableEntity, "password must be at least 8 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		u.Password = string(hash)
		u.APIToken = "" // force re-login after a password change
	}

	if err := db.Conn().Save(&u).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	actor := currentAdmin(r)
	_ = activity().Record(&actor.ID, "update", "admin", u.ID, &before, &u, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, u)
}

// DELETE /api/admins/{id}  (super admin only). Deactivation, not removal:
// the audit trail keeps pointing at a real row.
func AdminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	actor := currentAdmin(r)
	if actor.ID == id {
		writeError(w, http.StatusUnprocessableEntity, "cannot deactivate your own account")
		return
	}

	var u models.User
	err := db.Conn().Where("role IN ?", adminRoles).First(&u, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "admin not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	err = db.Conn().Model(&u).Updates(map[string]any{"is_active": false, "api_token": ""}).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = activity().Record(&actor.ID, "deactivate", "admin", u.ID, &u, nil, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
