package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
	"github.com/tnsecretariat/regadmin/internal/store"
)

// userSortCols is the whitelist for ?sort=. Anything else falls back to id.
var userSortCols = map[string]bool{
	"id": true, "first_name": true, "last_name": true, "email": true,
	"church_name": true, "reference_number": true, "created_at": true,
	"updated_at": true, "attendance": true,
}

// userListQuery applies the shared registrant filters from the request query
// string. Exports reuse it so a filtered CSV matches the filtered list view.
func userListQuery(r *http.Request) *gorm.DB {
	q := db.Conn().Model(&models.User{}).Where("role = ?", models.RoleUser)

	if search := strings.TrimSpace(r.URL.Query().Get("q")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where(`LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?
			OR mobile_number LIKE ? OR LOWER(reference_number) LIKE ?`,
			like, like, like, like, like)
	}
	if v, ok := queryBool(r, "attendance"); ok {
		q = q.Where("attendance = ?", v)
	}
	if v, ok := queryBool(r, "reconciled"); ok {
		q = q.Where("reconciled = ?", v)
	}
	if v, ok := queryBool(r, "finance_checked"); ok {
		q = q.Where("finance_checked = ?", v)
	}
	if id, ok := queryUint(r, "group_id"); ok {
		q = q.Where("group_id = ?", id)
	}
	if id, ok := queryUint(r, "event_id"); ok {
		q = q.Where("id IN (SELECT user_id FROM event_user WHERE event_id = ?)", id)
	}
	if id, ok := queryUint(r, "sphere_id"); ok {
		q = q.Where("id IN (SELECT user_id FROM user_sphere WHERE sphere_id = ?)", id)
	}
	if sheet := r.URL.Query().Get("source_sheet"); sheet != "" {
		q = q.Where("source_sheet = ?", sheet)
	}

	sort := r.URL.Query().Get("sort")
	if !userSortCols[sort] {
		sort = "id"
	}
	order := "asc"
	if r.URL.Query().Get("order") == "desc" {
		order = "desc"
	}
	return q.Order(sort + " " + order)
}

// GET /api/users
func UsersList(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := queryInt(r, "per_page", 25)
	if perPage < 1 || perPage > 200 {
		perPage = 25
	}

	q := userListQuery(r)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var users []models.User
	err := q.Preload("Group").Preload("Spheres").
		Offset((page - 1) * perPage).Limit(perPage).
		Find(&users).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	writeJSON(w, http.StatusOK, map[string]any{
		"data":        users,
		"page":        page,
		"per_page":    perPage,
		"total":       total,
		"total_pages": totalPages,
	})
}

// GET /api/users/{id}
func UserShow(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var u models.User
	err := db.Conn().Preload("Group").Preload("Spheres").Preload("Events").Preload("Files").
		First(&u, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// userBody is the writable subset of a registrant. Pointers distinguish
// "absent" from "set to zero" on update.
type userBody struct {
	Title             *string `json:"title"`
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	MiddleInitial     *string `json:"middle_initial"`
	Email             *string `json:"email"`
	MobileNumber      *string `json:"mobile_number"`
	HomeAddress       *string `json:"home_address"`
	ChurchName        *string `json:"church_name"`
	ChurchAddress     *string `json:"church_address"`
	WorkingOrStudent  *string `json:"working_or_student"`
	ModeOfPayment     *string `json:"mode_of_payment"`
	ProofOfPaymentURL *string `json:"proof_of_payment_url"`
	Notes             *string `json:"notes"`
	GroupID           *uint   `json:"group_id"`
	ReferenceNumber   *string `json:"reference_number"`
	AgeRange          *string `json:"age_range"`
	Reconciled        *bool   `json:"reconciled"`
	FinanceChecked    *bool   `json:"finance_checked"`
	EmailConfirmed    *bool   `json:"email_confirmed"`
	Attendance        *bool   `json:"attendance"`
	IDIssued          *bool   `json:"id_issued"`
	BookGiven         *bool   `json:"book_given"`
	SphereIDs         *[]uint `json:"sphere_ids"`
}

func (b *userBody) apply(u *models.User) {
	setS := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setS(&u.Title, b.Title)
	setS(&u.FirstName, b.FirstName)
	setS(&u.LastName, b.LastName)
	setS(&u.MiddleInitial, b.MiddleInitial)
	setS(&u.Email, b.Email)
	setS(&u.MobileNumber, b.MobileNumber)
	setS(&u.HomeAddress, b.HomeAddress)
	setS(&u.ChurchName, b.ChurchName)
	setS(&u.ChurchAddress, b.ChurchAddress)
	setS(&u.ProofOfPaymentURL, b.ProofOfPaymentURL)
	setS(&u.Notes, b.Notes)
	setS(&u.ReferenceNumber, b.ReferenceNumber)
	setS(&u.AgeRange, b.AgeRange)
	if b.WorkingOrStudent != nil {
		if *b.WorkingOrStudent == "" {
			u.WorkingOrStudent = nil
		} else {
			u.WorkingOrStudent = b.WorkingOrStudent
		}
	}
	if b.ModeOfPayment != nil {
		if *b.ModeOfPayment == "" {
			u.ModeOfPayment = nil
		} else {
			u.ModeOfPayment = b.ModeOfPayment
		}
	}
	if b.GroupID != nil {
		if *b.GroupID == 0 {
			u.GroupID = nil
		} else {
			u.GroupID = b.GroupID
		}
	}
	setB := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setB(&u.Reconciled, b.Reconciled)
	setB(&u.FinanceChecked, b.FinanceChecked)
	setB(&u.EmailConfirmed, b.EmailConfirmed)
	setB(&u.Attendance, b.Attendance)
	setB(&u.IDIssued, b.IDIssued)
	setB(&u.BookGiven, b.BookGiven)
}

// POST /api/users
func UserCreate(w http.ResponseWriter, r *http.Request) {
	var body userBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.FirstName == nil || strings.TrimSpace(*body.FirstName) == "" {
		writeError(w, http.StatusUnprocessableEntity, "first_name is required")
		return
	}
	if body.LastName == nil || strings.TrimSpace(*body.LastName) == "" {
		writeError(w, http.StatusUnprocessableEntity, "last_name is required")
		return
	}

	u := models.User{Role: models.RoleUser, IsActive: true}
	body.apply(&u)
	if err := db.Conn().Create(&u).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if body.SphereIDs != nil && len(*body.SphereIDs) > 0 {
		st := store.New(db.Conn())
		if err := st.AttachSpheres(u.ID, *body.SphereIDs); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "create", "user", u.ID, nil, &u, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusCreated, u)
}

// PUT /api/users/{id}
func UserUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var body userBody
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var u models.User
	if err := db.Conn().First(&u, id).Error; err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	before := u
	body.apply(&u)
	if err := db.Conn().Save(&u).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if body.SphereIDs != nil {
		st := store.New(db.Conn())
		existing, err := st.SphereIDsForUser(u.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		incoming := make(map[uint]bool, len(*body.SphereIDs))
		for _, sid := range *body.SphereIDs {
			incoming[sid] = true
		}
		var toDetach []uint
		for _, sid := range existing {
			if !incoming[sid] {
				toDetach = append(toDetach, sid)
			}
		}
		if err := st.AttachSpheres(u.ID, *body.SphereIDs); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(toDetach) > 0 {
			if err := st.DetachSpheres(u.ID, toDetach); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}
	}

	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "update", "user", u.ID, &before, &u, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, u)
}

// DELETE /api/users/{id}
func UserDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var u models.User
	if err := db.Conn().First(&u, id).Error; err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "user not found")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := db.Conn().Delete(&u).Error; err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "delete", "user", u.ID, &u, nil, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
