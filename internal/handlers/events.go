package handlers

import (
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
	"github.com/tnsecretariat/regadmin/internal/store"
)

var eventStatuses = map[string]bool{
	models.EventUpcoming:  true,
	models.EventOngoing:   true,
	models.EventCompleted: true,
	models.EventCancelled: true,
}

// GET /api/events
func EventsList(w http.ResponseWriter, r *http.Request) {
	q := db.Conn().Model(&models.Event{})
	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	var events []models.Event
	if err := q.Order("id asc").Find(&events).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	st := store.New(db.Conn())
	type eventWithCount struct {
		models.Event
		AttendeeCount int64 `json:"attendee_count"`
	}
	out := make([]eventWithCount, len(events))
	for i, e := range events {
		n, err := st.EventAttendeeCount(e.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out[i] = eventWithCount{Event: e, AttendeeCount: n}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// GET /api/events/{id}
func EventShow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var e models.Event
	err := db.Conn().First(&e, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	n, err := store.New(db.Conn()).EventAttendeeCount(e.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": e, "attendee_count": n})
}

type eventBody struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	Status      *string    `json:"status"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

// POST /api/events
func EventCreate(w http.ResponseWriter, r *http.Request) {
	var body eventBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Name == nil || strings.TrimSpace(*body.Name) == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	admin := currentAdmin(r)
	e := models.Event{
		Name:      strings.TrimSpace(*body.Name),
		Status:    models.EventUpcoming,
		CreatedBy: &admin.ID,
	}
	if body.Description != nil {
		e.Description = *body.Description
	}
	if body.Location != nil {
		e.Location = *body.Location
	}
	if body.Status != nil {
		if !eventStatuses[*body.Status] {
			writeError(w, http.StatusUnprocessableEntity, "invalid status")
			return
		}
		e.Status = *body.Status
	}
	e.StartTime = body.StartTime
	e.EndTime = body.EndTime
	if e.StartTime != nil && e.EndTime != nil && e.EndTime.Before(*e.StartTime) {
		writeError(w, http.StatusUnprocessableEntity, "end_time is before start_time")
		return
	}

	if err := db.Conn().Create(&e).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = activity().Record(&admin.ID, "create", "event", e.ID, nil, &e, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusCreated, e)
}

// PUT /api/events/{id}
func EventUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body eventBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var e models.Event
	err := db.Conn().First(&e, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	before := e
	if body.Name != nil && strings.TrimSpace(*body.Name) != "" {
		e.Name = strings.TrimSpace(*body.Name)
	}
	if body.Description != nil {
		e.Description = *body.Description
	}
	if body.Location != nil {
		e.Location = *body.Location
	}
	if body.Status != nil {
		if !eventStatuses[*body.Status] {
			writeError(w, http.StatusUnprocessableEntity, "invalid status")
			return
		}
		e.Status = *body.Status
	}
	if body.StartTime != nil {
		e.StartTime = body.StartTime
	}
	if body.EndTime != nil {
		e.EndTime = body.EndTime
	}
	if e.StartTime != nil && e.EndTime != nil && e.EndTime.Before(*e.StartTime) {
		writeError(w, http.StatusUnprocessableEntity, "end_time is before start_time")
		return
	}

	if err := db.Conn().Save(&e).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "update", "event", e.ID, &before, &e, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, e)
}

// PATCH /api/events/{id}/status
func EventStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !eventStatuses[body.Status] {
		writeError(w, http.StatusUnprocessableEntity, "invalid status")
		return
	}
	var e models.Event
	err := db.Conn().First(&e, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	before := e
	e.Status = body.Status
	if err := db.Conn().Model(&e).Update("status", e.Status).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "update_status", "event", e.ID, &before, &e, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, e)
}

// DELETE /api/events/{id}
func EventDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var e models.Event
	err := db.Conn().First(&e, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := db.Conn().Delete(&e).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "delete", "event", e.ID, &e, nil, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /api/events/{id}/users
func EventAttachUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body struct {
		UserIDs []uint `json:"user_ids"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.UserIDs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "user_ids is required")
		return
	}

	st := store.New(db.Conn())
	e, err := st.EventByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	// Links commit together; a failure mid-batch attaches nobody.
	attached, already, missing := 0, 0, 0
	err = db.Conn().Transaction(func(tx *gorm.DB) error {
		txs := store.New(tx)
		for _, uid := range body.UserIDs {
			var u models.User
			if err := tx.First(&u, uid).Error; err == gorm.ErrRecordNotFound {
				missing++
				continue
			} else if err != nil {
				return err
			}
			ok, err := txs.AttachUserToEvent(e.ID, uid)
			if err != nil {
				return err
			}
			if ok {
				attached++
			} else {
				already++
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "attach_users", "event", e.ID, nil,
		map[string]any{"user_ids": body.UserIDs, "attached": attached}, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, map[string]int{
		"attached": attached, "already_attached": already, "not_found": missing,
	})
}

// DELETE /api/events/{id}/users/{userID}
func EventDetachUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	uid, ok := uintParam(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	st := store.New(db.Conn())
	e, err := st.EventByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err := st.DetachUserFromEvent(e.ID, uid); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "detach_user", "event", e.ID, nil,
		map[string]any{"user_id": uid}, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, map[string]string{"status": "detached"})
}
