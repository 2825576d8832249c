package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/milordsutrix/tool-tubecutter/domain/media"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type validateRequest struct {
	URL string `json:"url"`
}

// handleValidate checks that a YouTube URL is accessible and returns its
// metadata without downloading anything
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeMessage(w, http.StatusBadRequest, "url is required")
		return
	}

	if !s.process.ValidateSource(r.Context(), req.URL) {
		writeMessage(w, http.StatusBadRequest, "invalid or inaccessible video URL")
		return
	}

	info, err := s.process.DescribeSource(r.Context(), req.URL)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "info": info})
}

// handleProcess accepts a processing request and returns as soon as the
// job and its selections exist; extraction continues in the background
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req media.ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.process.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleUpload stores a directly uploaded audio file and registers it as a
// processing source
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeMessage(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "no audio file provided")
		return
	}
	defer file.Close()

	if !acceptableAudio(header) {
		writeMessage(w, http.StatusBadRequest, "only mp3 audio is supported")
		return
	}

	localPath := filepath.Join(s.opts.WorkDir, "upload-"+uuid.NewString()+media.OutputExtension)
	if err := saveUpload(file, localPath); err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	// The audio duration cannot be read from the container without probing
	// it; the client declares it alongside the file.
	duration := 0
	if v := r.FormValue("duration"); v != "" {
		duration, err = strconv.Atoi(v)
		if err != nil || duration < 0 {
			writeMessage(w, http.StatusBadRequest, "duration must be a non-negative number of seconds")
			return
		}
	}

	title := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	video, err := s.process.RegisterUpload(r.Context(), localPath, title, duration)
	if err != nil {
		os.Remove(localPath)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sourceId": video.ID, "video": video})
}

func acceptableAudio(header *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(header.Filename), media.OutputExtension) {
		return true
	}
	ct := header.Header.Get("Content-Type")
	return ct == "audio/mpeg" || ct == "audio/mp3"
}

func saveUpload(src io.Reader, destPath string) error {
	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// handleJobStatus returns the job, its video and all selections in one
// response; clients poll this for progress
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	result, err := s.process.JobStatus(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleDownload streams one completed selection's output file
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sel, err := s.process.Selection(r.Context(), chi.URLParam(r, "selectionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if sel.Status != media.StatusCompleted || sel.FilePath == "" {
		writeMessage(w, http.StatusNotFound, "selection has no output file")
		return
	}
	if _, err := os.Stat(sel.FilePath); err != nil {
		writeMessage(w, http.StatusNotFound, "output file no longer exists")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sel.Filename))
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeFile(w, r, sel.FilePath)
}

// handleDownloadAll streams a zip of every completed selection for a
// video. The archive is rebuilt per request and removed once served.
func (s *Server) handleDownloadAll(w http.ResponseWriter, r *http.Request) {
	archivePath, err := s.process.ArchiveCompleted(r.Context(), chi.URLParam(r, "videoID"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer os.Remove(archivePath)

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(archivePath)))
	w.Header().Set("Content-Type", "application/zip")
	http.ServeFile(w, r, archivePath)
}

type driveAuthRequest struct {
	SelectionID string `json:"selectionId"`
}

// handleDriveAuth starts the OAuth consent flow for one selection
func (s *Server) handleDriveAuth(w http.ResponseWriter, r *http.Request) {
	var req driveAuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SelectionID == "" {
		writeMessage(w, http.StatusBadRequest, "selectionId is required")
		return
	}

	authURL, err := s.uploads.Initiate(r.Context(), req.SelectionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authUrl": authURL})
}
