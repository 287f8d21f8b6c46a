package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/khan-rustam/sparkshift-server/internal/config"
	"github.com/khan-rustam/sparkshift-server/internal/models"
	"github.com/khan-rustam/sparkshift-server/internal/repository"
)

type PortfolioHandler struct {
	repo          repository.PortfolioRepository
	s3Client      *s3.Client
	bucket        string
	publicBaseURL string
	v             *validator.Validate
}

func NewPortfolioHandler(repo repository.PortfolioRepository, s3Config *config.S3Config) *PortfolioHandler {
	return &PortfolioHandler{
		repo:          repo,
		s3Client:      s3Config.Client,
		bucket:        s3Config.Bucket,
		publicBaseURL: s3Config.PublicBaseURL,
		v:             validator.New(),
	}
}

// List handles GET /api/portfolio
// @Tags Portfolio
// @Summary List portfolio items, newest first
// @Produce json
// @Success 200 {array} models.PortfolioItem
// @Failure 500 {object} map[string]interface{}
// @Router /api/portfolio [get]
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ListAll(r.Context())
	if err != nil {
		log.Printf("Failed to list portfolio items: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "list_failed", "Failed to list portfolio items")
		return
	}

	if items == nil {
		items = []*models.PortfolioItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Create handles POST /api/portfolio: multipart form with one image field
// plus metadata. The image is uploaded to the object store first; the row
// is only written once the upload succeeded.
// @Tags Portfolio
// @Summary Create a portfolio item
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Project image"
// @Param projectName formData string true "Project name"
// @Param category formData string true "Category"
// @Param description formData string true "Description"
// @Param projectLink formData string true "Project link"
// @Success 201 {object} models.PortfolioItem
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/portfolio [post]
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	const maxMemory = 32 << 20 // 32MB max memory
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to parse form")
		return
	}

	item := &models.PortfolioItem{
		ID:          uuid.NewString(),
		ProjectName: r.FormValue("projectName"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		ProjectLink: r.FormValue("projectLink"),
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.v.Struct(item); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "projectName, category, description and projectLink are required")
		return
	}

	var fileHeaders = r.MultipartForm.File["image"]
	if len(fileHeaders) == 0 {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Image is required")
		return
	}
	fileHeader := fileHeaders[0]

	file, err := fileHeader.Open()
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to open uploaded file")
		return
	}
	defer file.Close()

	key := filepath.Join("portfolio", item.ID+filepath.Ext(fileHeader.Filename))
	uploader := manager.NewUploader(h.s3Client)
	_, err = uploader.Upload(r.Context(), &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(fileHeader.Header.Get("Content-Type")),
	})
	if err != nil {
		log.Printf("Failed to upload image %s: %v", fileHeader.Filename, err)
		writeJSONError(w, http.StatusBadGateway, "upload_failed", "Failed to upload image")
		return
	}

	item.ImageKey = key
	item.ImageURL = strings.TrimRight(h.publicBaseURL, "/") + "/" + key

	if err := h.repo.Create(r.Context(), item); err != nil {
		log.Printf("Failed to save portfolio item: %v", err)
		writeJSONError(w, http.StatusInternalServerError, "create_failed", "Failed to create portfolio item")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// Update handles PUT /api/portfolio/{id}: partial JSON update of the
// metadata fields. The image is immutable after creation.
// @Tags Portfolio
// @Summary Update a portfolio item
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Portfolio item ID"
// @Param body body models.UpdatePortfolioRequest true "Fields to update"
// @Success 200 {object} models.PortfolioItem
// @Failure 404 {object} map[string]interface{}
// @Router /api/portfolio/{id} [put]
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Portfolio item ID is required")
		return
	}

	var req models.UpdatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Description cannot be more than 1000 characters")
		return
	}

	item, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Portfolio item not found")
			return
		}
		log.Printf("Failed to update portfolio item %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "update_failed", "Failed to update portfolio item")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/portfolio/{id}: the stored object is removed
// from the bucket before the row is deleted.
// @Tags Portfolio
// @Summary Delete a portfolio item
// @Security BearerAuth
// @Produce json
// @Param id path string true "Portfolio item ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/portfolio/{id} [delete]
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "validation_error", "Portfolio item ID is required")
		return
	}

	item, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Portfolio item not found")
			return
		}
		log.Printf("Failed to load portfolio item %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete portfolio item")
		return
	}

	if item.ImageKey != "" {
		_, err = h.s3Client.DeleteObject(r.Context(), &s3.DeleteObjectInput{
			Bucket: aws.String(h.bucket),
			Key:    aws.String(item.ImageKey),
		})
		if err != nil {
			// The row is still removed; an orphaned object is preferable to
			// a dangling portfolio entry.
			log.Printf("Failed to delete image %s from bucket: %v", item.ImageKey, err)
		}
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "not_found", "Portfolio item not found")
			return
		}
		log.Printf("Failed to delete portfolio item %s: %v", id, err)
		writeJSONError(w, http.StatusInternalServerError, "delete_failed", "Failed to delete portfolio item")
		return
	}

	writeJSONMessage(w, http.StatusOK, "Portfolio item deleted successfully")
}
