package handlers

import (
	"net/http"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
)

// GET /api/spheres
func SpheresList(w http.ResponseWriter, r *http.Request) {
	var spheres []models.Sphere
	if err := db.Conn().Order("id asc").Find(&spheres).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": spheres})
}

// GET /api/groups
func GroupsList(w http.ResponseWriter, r *http.Request) {
	var groups []models.Group
	if err := db.Conn().Order("name asc").Find(&groups).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": groups})
}
