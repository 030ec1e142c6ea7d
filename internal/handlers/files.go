package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/models"
)

const maxUploadBytes = 10 << 20 // 10 MiB per file

var allowedUploadExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".pdf": true, ".xlsx": true, ".csv": true,
}

// POST /api/users/{id}/files  (multipart, field "file")
func FileUpload(uploadDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large or malformed upload")
			return
		}
		src, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file field")
			return
		}
		defer src.Close()

		ext := strings.ToLower(filepath.Ext(header.Filename))
		if !allowedUploadExts[ext] {
			writeError(w, http.StatusUnprocessableEntity, "file type not allowed")
			return
		}

		// Server-chosen name; the original filename is kept only as metadata.
		stored := fmt.Sprintf("u%d-%d%s", u.ID, time.Now().UnixNano(), ext)
		dir := filepath.Join(uploadDir, fmt.Sprintf("user-%d", u.ID))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		dstPath := filepath.Join(dir, stored)
		dst, err := os.Create(dstPath)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		n, err := io.Copy(dst, src)
		dst.Close()
		if err != nil {
			os.Remove(dstPath)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		admin := currentAdmin(r)
		f := models.UserFile{
			UserID:     u.ID,
			FileName:   header.Filename,
			FilePath:   dstPath,
			FileType:   ext,
			FileSize:   n,
			UploadedBy: &admin.ID,
		}
		if err := db.Conn().Create(&f).Error; err != nil {
			os.Remove(dstPath)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = activity().Record(&admin.ID, "upload_file", "user", u.ID, nil, &f, clientIP(r), r.UserAgent())
		writeJSON(w, http.StatusCreated, f)
	}
}

// GET /api/users/{id}/files
func FilesList(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var files []models.UserFile
	err := db.Conn().Where("user_id = ?", id).Order("id asc").Find(&files).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": files})
}

// GET /api/files/{id}/download
func FileDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var f models.UserFile
	err := db.Conn().First(&f, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName))
	http.ServeFile(w, r, f.FilePath)
}

func deleteFileRow(f *models.UserFile) error {
	if err := db.Conn().Delete(f).Error; err != nil {
		return err
	}
	// Disk removal failing leaves an orphan file, not a broken record.
	_ = os.Remove(f.FilePath)
	return nil
}

// DELETE /api/files/{id}
func FileDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var f models.UserFile
	err := db.Conn().First(&f, id).Error
	if err == gorm.ErrRecordNotFound {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := deleteFileRow(&f); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	admin := currentAdmin(r)
	_ = activity().Record(&admin.ID, "delete_file", "user", f.UserID, &f, nil, clientIP(r), r.UserAgent())
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// POST /api/files/bulk-delete
func FilesBulkDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileIDs []uint `json:"file_ids"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(body.FileIDs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "file_ids is required")
		return
	}

	// All row deletions commit together; a failure mid-batch rolls back
	// every one of them.
	deleted, missing := 0, 0
	var removed []models.UserFile
	err := db.Conn().Transaction(func(tx *gorm.DB) error {
		for _, fid := range body.FileIDs {
			var f models.UserFile
			if err := tx.First(&f, fid).Error; err == gorm.ErrRecordNotFound {
				missing++
				continue
			} else if err != nil {
				return err
			}
			if err := tx.Delete(&f).Error; err != nil {
				return err
			}
			removed = append(removed, f)
			deleted++
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	admin := currentAdmin(r)
	for i := range removed {
		f := &removed[i]
		// Disk removal runs after commit; a failed remove leaves an orphan
		// file, not a broken record.
		_ = os.Remove(f.FilePath)
		_ = activity().Record(&admin.ID, "delete_file", "user", f.UserID, f, nil, clientIP(r), r.UserAgent())
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted, "not_found": missing})
}
