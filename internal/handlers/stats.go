package handlers

import (
	"net/http"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
)

// GET /api/stats/sphere-stats
// Registrant counts per sphere via the pivot, plus how many have no sphere.
// ?event_id restricts both to one event's attendees.
func SphereStats(w http.ResponseWriter, r *http.Request) {
	type row struct {
		SphereID uint   `json:"sphere_id"`
		Name     string `json:"name"`
		Slug     string `json:"slug"`
		Count    int64  `json:"count"`
	}

	join := "LEFT JOIN users u ON u.id = us.user_id AND u.deleted_at IS NULL AND u.role = ?"
	args := []any{models.RoleUser}
	eventID, byEvent := queryUint(r, "event_id")
	if byEvent {
		join += " AND u.id IN (SELECT user_id FROM event_user WHERE event_id = ?)"
		args = append(args, eventID)
	}

	var rows []row
	err := db.Conn().Raw(`
		SELECT s.id AS sphere_id, s.name, s.slug, COUNT(u.id) AS count
		FROM spheres s
		LEFT JOIN user_sphere us ON us.sphere_id = s.id
		`+join+`
		GROUP BY s.id, s.name, s.slug
		ORDER BY s.id`, args...).Scan(&rows).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	uq := db.Conn().Model(&models.User{}).
		Where("role = ? AND id NOT IN (SELECT user_id FROM user_sphere)", models.RoleUser)
	if byEvent {
		uq = uq.Where("id IN (SELECT user_id FROM event_user WHERE event_id = ?)", eventID)
	}
	var unassigned int64
	if err := uq.Count(&unassigned).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"spheres":    rows,
		"unassigned": unassigned,
	})
}

// GET /api/stats
// The dashboard card numbers.
func Stats(w http.ResponseWriter, r *http.Request) {
	conn := db.Conn()
	count := func(q string, args ...any) (int64, error) {
		var n int64
		err := conn.Model(&models.User{}).Where(q, args...).Count(&n).Error
		return n, err
	}

	total, err := count("role = ?", models.RoleUser)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	attended, err := count("role = ? AND attendance = ?", models.RoleUser, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	reconciled, err := count("role = ? AND reconciled = ?", models.RoleUser, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	financeChecked, err := count("role = ? AND finance_checked = ?", models.RoleUser, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var events int64
	if err := conn.Model(&models.Event{}).Count(&events).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var groups int64
	if err := conn.Model(&models.Group{}).Count(&groups).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"users":           total,
		"attended":        attended,
		"reconciled":      reconciled,
		"finance_checked": financeChecked,
		"events":          events,
		"groups":          groups,
	})
}

// GET /api/activity-logs
func ActivityLogs(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := queryInt(r, "per_page", 50)
	if perPage < 1 || perPage > 200 {
		perPage = 50
	}

	q := db.Conn().Model(&models.ActivityLog{})
	if action := r.URL.Query().Get("action"); action != "" {
		q = q.Where("action = ?", action)
	}
	if entity := r.URL.Query().Get("entity_type"); entity != "" {
		q = q.Where("entity_type = ?", entity)
	}
	if id, ok := queryUint(r, "admin_id"); ok {
		q = q.Where("admin_id = ?", id)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var logs []models.ActivityLog
	err := q.Preload("Admin").Order("id desc").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&logs).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":     logs,
		"page":     page,
		"per_page": perPage,
		"total":    total,
	})
}
