package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookvault/internal/app"
	"bookvault/pkg/domain"
)

const publicationDateLayout = "2006-01-02"

type bookCreateRequest struct {
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Price           float64 `json:"price"`
	PublicationDate string  `json:"publicationDate"`
}

type bookUpdateRequest struct {
	Title           *string  `json:"title"`
	Author          *string  `json:"author"`
	Price           *float64 `json:"price"`
	PublicationDate *string  `json:"publicationDate"`
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBooks(w, r)
	case http.MethodPost:
		s.handleCreateBook(w, r)
	default:
		methodNotAllowed(w, r)
	}
}

// /books/upload, /books/upload/{id}, or /books/{id}
func (s *Server) handleBookSubtree(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.SplitN(path, "/", 2)
	head := parts[0]
	if head == "" {
		writeError(w, r, http.StatusNotFound, "SYSTEM_NOT_FOUND", "not found")
		return
	}

	if head == "upload" {
		if len(parts) == 1 {
			s.handleUploadCSV(w, r, user)
			return
		}
		s.handleUploadStatus(w, r, user, parts[1])
		return
	}
	if len(parts) == 2 {
		writeError(w, r, http.StatusNotFound, "SYSTEM_NOT_FOUND", "not found")
		return
	}
	s.handleBookByID(w, r, head)
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	books, total, err := s.app.ListBooks(q.Get("search"), offset, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"total": total,
	})
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "REQUEST_INVALID_JSON", "invalid JSON body")
		return
	}
	publicationDate, err := time.Parse(publicationDateLayout, req.PublicationDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BOOK_INVALID_DATE", "publicationDate must be formatted YYYY-MM-DD")
		return
	}
	book, err := s.app.CreateBook(app.BookInput{
		Title:           req.Title,
		Author:          req.Author,
		Price:           req.Price,
		PublicationDate: publicationDate,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		book, err := s.app.GetBook(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodPut:
		s.handleUpdateBook(w, r, id)
	case http.MethodDelete:
		book, err := s.app.DeleteBook(id)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	default:
		methodNotAllowed(w, r)
	}
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, id string) {
	var req bookUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "REQUEST_INVALID_JSON", "invalid JSON body")
		return
	}
	update := app.BookUpdate{
		Title:  req.Title,
		Author: req.Author,
		Price:  req.Price,
	}
	if req.PublicationDate != nil {
		publicationDate, err := time.Parse(publicationDateLayout, *req.PublicationDate)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "BOOK_INVALID_DATE", "publicationDate must be formatted YYYY-MM-DD")
			return
		}
		update.PublicationDate = &publicationDate
	}
	book, err := s.app.UpdateBook(id, update)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// handleUploadCSV accepts a multipart CSV and answers 202 with the job id;
// parsing and persistence happen in the background.
func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	// Allow a little slack over the file limit for multipart framing; the
	// intake enforces the exact cap from the part size.
	r.Body = http.MaxBytesReader(w, r.Body, s.app.MaxUploadBytes()+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, r, http.StatusBadRequest, "UPLOAD_INVALID_FORM", "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "UPLOAD_FILE_REQUIRED", "file is required (field: file)")
		return
	}
	defer file.Close()
	jobID, err := s.app.UploadCSV(user.ID, header.Filename, file, header.Size)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":       jobID,
		"filename": header.Filename,
		"status":   domain.UploadPending,
	})
}

func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "SYSTEM_NOT_FOUND", "not found")
		return
	}
	job, err := s.app.UploadStatus(id, user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
