package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	"github.com/garyjia/travel-reimbursement/internal/infrastructure/feed"
)

// CreateProjectRequest is the body of POST /api/projects
type CreateProjectRequest struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// ListCountries handles GET /api/countries
func (h *Handlers) ListCountries(c *gin.Context) {
	countries, err := h.services.Countries.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, countries)
}

// GetCountry handles GET /api/countries/:code
func (h *Handlers) GetCountry(c *gin.Context) {
	country, err := h.services.Countries.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, country)
}

// ImportCountries handles POST /api/countries with a country feed body
func (h *Handlers) ImportCountries(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	entries, err := feed.ParseCountriesJSON(c.Request.Body)
	if err != nil {
		h.writeError(c, &entity.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	countries := make([]*entity.Country, 0, len(entries))
	for _, e := range entries {
		country, err := e.Country()
		if err != nil {
			h.writeError(c, &entity.ValidationError{Field: "body", Message: err.Error()})
			return
		}
		countries = append(countries, country)
	}

	n, err := h.services.Countries.ImportCountries(c.Request.Context(), countries)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"imported": n})
}

// DeleteCountry handles DELETE /api/countries/:code
func (h *Handlers) DeleteCountry(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	code := c.Param("code")
	if err := h.services.Countries.Delete(c.Request.Context(), code); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"code": code})
}

// ImportLumpSums handles POST /api/lumpsums. The body is either a JSON
// feed or a multipart upload of a spreadsheet in field "file".
func (h *Handlers) ImportLumpSums(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}

	var entries []feed.LumpSumEntry
	var err error
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		_, content, readErr := h.readUpload(c)
		if readErr != nil {
			h.writeError(c, readErr)
			return
		}
		entries, err = feed.ParseLumpSumsXLSX(bytes.NewReader(content))
	} else {
		entries, err = feed.ParseLumpSumsJSON(c.Request.Body)
	}
	if err != nil {
		h.writeError(c, &entity.ValidationError{Field: "body", Message: err.Error()})
		return
	}

	sets, err := feed.GroupByCountry(entries)
	if err != nil {
		h.writeError(c, &entity.ValidationError{Field: "body", Message: err.Error()})
		return
	}
	n, err := h.services.Countries.ImportLumpSums(c.Request.Context(), sets)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"imported": n})
}

// ListProjects handles GET /api/projects
func (h *Handlers) ListProjects(c *gin.Context) {
	projects, err := h.services.Projects.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, projects)
}

// CreateProject handles POST /api/projects
func (h *Handlers) CreateProject(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	project, err := h.services.Projects.Create(c.Request.Context(), req.Identifier, req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, project)
}

// DeleteProject handles DELETE /api/projects/:id
func (h *Handlers) DeleteProject(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id := c.Param("id")
	if err := h.services.Projects.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

// UploadReceipt handles POST /api/receipts with a multipart field "file"
func (h *Handlers) UploadReceipt(c *gin.Context) {
	name, content, err := h.readUpload(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ref, err := h.services.Receipts.Upload(c.Request.Context(), name, content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, ref)
}

// GetReceipt handles GET /api/receipts/:id
func (h *Handlers) GetReceipt(c *gin.Context) {
	content, err := h.services.Receipts.Read(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(content).String(), content)
}

// readUpload reads the multipart field "file" up to the upload limit
func (h *Handlers) readUpload(c *gin.Context) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, &entity.ValidationError{Field: "file", Message: "is required"}
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		return "", nil, &entity.ValidationError{Field: "file", Message: fmt.Sprintf("exceeds %d bytes", h.maxUploadBytes)}
	}
	f, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return header.Filename, content, nil
}
