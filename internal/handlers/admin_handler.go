package handlers

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"naturequest/internal/service"
)

const maxImportBytes = 10 << 20

// AdminHandler handles roster backup routes
type AdminHandler struct {
	backupService *service.BackupService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(backupService *service.BackupService) *AdminHandler {
	return &AdminHandler{backupService: backupService}
}

// ExportRoster streams the roster as a JSON download
func (h *AdminHandler) ExportRoster(w http.ResponseWriter, r *http.Request) {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("naturequest_backup_%s.json", timestamp)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if err := h.backupService.ExportToWriter(w); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to export roster", "Error exporting roster", err)
		return
	}

	if p := GetPrincipalFromContext(r.Context()); p != nil {
		log.Printf("Roster exported by %s", p.Email)
	}
}

// ImportRoster replaces the roster with the uploaded backup. The file may be
// sent as the raw JSON body or as the backup_file field of a multipart form.
func (h *AdminHandler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var reader io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			respondWithError(w, http.StatusBadRequest, "Failed to parse form", "", nil)
			return
		}
		file, _, err := r.FormFile("backup_file")
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Please select a backup file", "", nil)
			return
		}
		defer file.Close()
		reader = file
	}

	backup, err := h.backupService.ImportFromReader(r.Context(), reader)
	if err != nil {
		respondWithServiceError(w, err, "Error importing roster")
		return
	}

	if p := GetPrincipalFromContext(r.Context()); p != nil {
		log.Printf("Roster imported by %s", p.Email)
	}
	respond(w, http.StatusOK, map[string]int{
		"classes":  len(backup.Classes),
		"guilds":   len(backup.Guilds),
		"missions": len(backup.Missions),
		"students": len(backup.Students),
	}, "roster imported")
}
