package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
	"github.com/tnsecretariat/regadmin/internal/services"
)

func exportFilename(ext string) string {
	return fmt.Sprintf("registrants-%s.%s", time.Now().Format("20060102-150405"), ext)
}

// GET /api/exports/users.csv
// Accepts the same query filters as the user list, so the download matches
// whatever the admin was looking at.
func ExportUsersCSV(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	err := userListQuery(r).Preload("Group").Preload("Spheres").Find(&users).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename("csv")+`"`)
	if err := services.UsersCSV(w, users); err != nil {
		// Headers are gone already; the client sees a truncated file.
		return
	}
}

// GET /api/exports/users.pdf
func ExportUsersPDF(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	err := userListQuery(r).Preload("Spheres").Find(&users).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := "Registrants"
	if id, ok := queryUint(r, "event_id"); ok {
		var e models.Event
		if err := db.Conn().First(&e, id).Error; err == nil {
			title = e.Name + " Attendees"
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename("pdf")+`"`)
	_ = services.UsersPDF(w, title, users)
}
