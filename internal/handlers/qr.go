package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
)

// GET /qr/{reference}.png
// Badge QR for a registrant reference number. Scanning opens the registrant
// in the admin UI for check-in.
func QR(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "reference")
	if ref == "" {
		http.NotFound(w, r)
		return
	}
	var u models.User
	if err := db.Conn().Where("reference_number = ?", ref).First(&u).Error; err != nil {
		http.NotFound(w, r)
		return
	}

	url := "http://" + r.Host + "/checkin?ref=" + ref

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
