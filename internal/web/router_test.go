package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tnsecretariat/regadmin/internal/config"
	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	if err := db.Init(filepath.Join(dir, "web.db")); err != nil {
		t.Fatalf("db init: %v", err)
	}
	if err := db.SeedSpheres(db.Conn()); err != nil {
		t.Fatalf("seed spheres: %v", err)
	}
	return Router(config.Config{UploadDir: filepath.Join(dir, "uploads")})
}

func seedAdmin(t *testing.T, email, password, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	err = db.Conn().Create(&models.User{
		FirstName: "Test",
		LastName:  "Admin",
		Email:     email,
		Password:  string(hash),
		Role:      role,
		IsActive:  true,
	}).Error
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, r http.Handler, email, password string) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/login", "",
		map[string]string{"email": email, "password": password})
	if rec.Code != 200 {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login returned empty token")
	}
	return resp.Token
}

func TestRouterHealthz(t *testing.T) {
	r := newTestRouter(t)
	rec := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r := newTestRouter(t)
	seedAdmin(t, "admin@example.com", "correct-horse", models.RoleAdmin)

	rec := doJSON(t, r, http.MethodPost, "/api/login", "",
		map[string]string{"email": "admin@example.com", "password": "wrong"})
	if rec.Code != 401 {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/login", "",
		map[string]string{"email": "nobody@example.com", "password": "correct-horse"})
	if rec.Code != 401 {
		t.Fatalf("expected 401 for unknown email, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/users", "/api/events", "/api/stats", "/api/me"} {
		rec := doJSON(t, r, http.MethodGet, path, "", nil)
		if rec.Code != 401 {
			t.Errorf("%s: expected 401 without token, got %d", path, rec.Code)
		}
	}
	rec := doJSON(t, r, http.MethodGet, "/api/users", "not-a-real-token", nil)
	if rec.Code != 401 {
		t.Fatalf("expected 401 for bogus token, got %d", rec.Code)
	}
}

func TestUserCreateListRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	seedAdmin(t, "admin@example.com", "correct-horse", models.RoleAdmin)
	token := login(t, r, "admin@example.com", "correct-horse")

	rec := doJSON(t, r, http.MethodPost, "/api/users", token, map[string]any{
		"first_name": "Maria",
		"last_name":  "Santos",
		"email":      "maria.santos@example.com",
	})
	if rec.Code != 201 {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created user: %v", err)
	}
	if created.ID == 0 || created.FirstName != "Maria" {
		t.Fatalf("unexpected created user: %+v", created)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/users?q=maria", token, nil)
	if rec.Code != 200 {
		t.Fatalf("list: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var list struct {
		Data  []models.User `json:"data"`
		Total int64         `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || len(list.Data) != 1 || list.Data[0].ID != created.ID {
		t.Fatalf("unexpected list result: total=%d len=%d", list.Total, len(list.Data))
	}
}

func TestAdminMutationsNeedSuperAdmin(t *testing.T) {
	r := newTestRouter(t)
	seedAdmin(t, "admin@example.com", "correct-horse", models.RoleAdmin)
	seedAdmin(t, "boss@example.com", "super-secret-1", models.RoleSuperAdmin)

	adminBody := map[string]any{
		"first_name": "New",
		"last_name":  "Admin",
		"email":      "new.admin@example.com",
		"password":   "longenough",
		"role":       models.RoleAdmin,
	}

	token := login(t, r, "admin@example.com", "correct-horse")
	rec := doJSON(t, r, http.MethodPost, "/api/admins", token, adminBody)
	if rec.Code != 403 {
		t.Fatalf("regular admin: expected 403, got %d", rec.Code)
	}

	super := login(t, r, "boss@example.com", "super-secret-1")
	rec = doJSON(t, r, http.MethodPost, "/api/admins", super, adminBody)
	if rec.Code != 201 {
		t.Fatalf("super admin: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Both roles can read the admin list.
	rec = doJSON(t, r, http.MethodGet, "/api/admins", token, nil)
	if rec.Code != 200 {
		t.Fatalf("admins list: expected 200, got %d", rec.Code)
	}
}

func TestFilesBulkDelete(t *testing.T) {
	r := newTestRouter(t)
	seedAdmin(t, "admin@example.com", "correct-horse", models.RoleAdmin)
	token := login(t, r, "admin@example.com", "correct-horse")

	u := models.User{FirstName: "Maria", LastName: "Santos", Role: models.RoleUser, IsActive: true}
	if err := db.Conn().Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	dir := t.TempDir()
	var ids []uint
	for _, name := range []string{"one.pdf", "two.pdf"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		f := models.UserFile{UserID: u.ID, FileName: name, FilePath: path, FileType: ".pdf", FileSize: 1}
		if err := db.Conn().Create(&f).Error; err != nil {
			t.Fatalf("seed file row: %v", err)
		}
		ids = append(ids, f.ID)
	}

	rec := doJSON(t, r, http.MethodPost, "/api/files/bulk-delete", token,
		map[string]any{"file_ids": []uint{ids[0], 9999, ids[1]}})
	if rec.Code != 200 {
		t.Fatalf("bulk delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Deleted  int `json:"deleted"`
		NotFound int `json:"not_found"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Deleted != 2 || resp.NotFound != 1 {
		t.Fatalf("unexpected counts: %+v", resp)
	}

	var n int64
	if err := db.Conn().Model(&models.UserFile{}).Where("user_id = ?", u.ID).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no file rows left, got %d", n)
	}
	for _, name := range []string{"one.pdf", "two.pdf"} {
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s should be removed from disk", name)
		}
	}
}

func TestEventAttachUsersBulk(t *testing.T) {
	r := newTestRouter(t)
	seedAdmin(t, "admin@example.com", "correct-horse", models.RoleAdmin)
	token := login(t, r, "admin@example.com", "correct-horse")

	e := models.Event{Name: "TN Conference"}
	if err := db.Conn().Create(&e).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	var ids []uint
	for _, name := range []string{"Maria", "Jose"} {
		u := models.User{FirstName: name, LastName: "Santos", Role: models.RoleUser, IsActive: true}
		if err := db.Conn().Create(&u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
		ids = append(ids, u.ID)
	}

	path := fmt.Sprintf("/api/events/%d/users", e.ID)
	rec := doJSON(t, r, http.MethodPost, path, token,
		map[string]any{"user_ids": []uint{ids[0], ids[1], 9999}})
	if rec.Code != 200 {
		t.Fatalf("attach: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Attached int `json:"attached"`
		Already  int `json:"already_attached"`
		NotFound int `json:"not_found"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Attached != 2 || resp.Already != 0 || resp.NotFound != 1 {
		t.Fatalf("unexpected counts: %+v", resp)
	}

	// A repeat attach is idempotent.
	rec = doJSON(t, r, http.MethodPost, path, token,
		map[string]any{"user_ids": ids})
	if rec.Code != 200 {
		t.Fatalf("repeat attach: expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode repeat response: %v", err)
	}
	if resp.Attached != 0 || resp.Already != 2 {
		t.Fatalf("unexpected repeat counts: %+v", resp)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	r := newTestRouter(t)
	seedAdmin(t, "admin@example.com", "correct-horse", models.RoleAdmin)
	token := login(t, r, "admin@example.com", "correct-horse")

	rec := doJSON(t, r, http.MethodPost, "/api/logout", token, nil)
	if rec.Code != 200 {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodGet, "/api/me", token, nil)
	if rec.Code != 401 {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}
