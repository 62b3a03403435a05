package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/homeledger/internal/backup"
	"github.com/dukerupert/homeledger/internal/model"
	"github.com/dukerupert/homeledger/internal/store"
)

type BackupHandler struct {
	manager *backup.Manager
	records *store.BackupStore
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, records *store.BackupStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, records: records, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeMessage(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	backups, err := h.records.List(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// Run takes a backup now and returns its record.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	id, err := h.manager.RunNow(r.Context())
	if errors.Is(err, backup.ErrDisabled) {
		writeMessage(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	if err != nil {
		h.logger.Error("manual backup failed", "error", err)
		writeMessage(w, http.StatusBadGateway, "backup failed")
		return
	}
	record, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Download streams the encrypted backup file.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	record, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if errors.Is(err, backup.ErrDisabled) {
		writeMessage(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	if err != nil {
		h.logger.Error("download backup", "backup_id", id, "error", err)
		writeMessage(w, http.StatusBadGateway, "download failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+record.Filename+`"`)
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream backup", "backup_id", id, "error", err)
	}
}
