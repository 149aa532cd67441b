package handlers

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mindspero/mindspero/internal/api/dto"
	"github.com/mindspero/mindspero/internal/domain/document"
	"github.com/mindspero/mindspero/internal/domain/entitlement"
	"github.com/mindspero/mindspero/internal/pkg/errors"
	"github.com/mindspero/mindspero/internal/pkg/logger"
	"github.com/mindspero/mindspero/internal/pkg/utils"
	"github.com/mindspero/mindspero/internal/providers"
	"github.com/mindspero/mindspero/internal/services"
	"github.com/mindspero/mindspero/internal/storage"
)

// multipartMemory is how much of an upload is buffered in memory before spilling to disk
const multipartMemory = 8 << 20

// DocumentHandler handles document upload, lifecycle and gated artifact reads
type DocumentHandler struct {
	documents      document.Service
	gate           *services.GateService
	store          storage.Store
	maxUploadBytes int64
	logger         *logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	documents document.Service,
	gate *services.GateService,
	store storage.Store,
	maxUploadBytes int64,
	log *logger.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		documents:      documents,
		gate:           gate,
		store:          store,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

// Upload handles a PDF upload
// @Summary Upload a PDF
// @Description Upload a PDF for summarization. The document starts at stage uploaded.
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Success 201 {object} dto.DocumentDTO
// @Failure 400 {object} utils.ErrorResponse "Not a PDF"
// @Failure 413 {object} utils.ErrorResponse "File too large"
// @Security BearerAuth
// @Router /documents [post]
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	// Leave room for the multipart envelope around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			utils.WriteError(w, h.tooLarge())
			return
		}
		utils.WriteError(w, errors.BadRequest("Expected a multipart form with a file field"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Missing file field"))
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadBytes {
		utils.WriteError(w, h.tooLarge())
		return
	}

	head := make([]byte, 5)
	n, _ := io.ReadFull(file, head)
	if !providers.LooksLikePDF(head[:n]) {
		utils.WriteError(w, errors.BadRequest("Only PDF files are supported"))
		return
	}

	doc, err := h.documents.Create(r.Context(), document.Upload{
		OwnerID:     userID,
		DisplayName: displayName(header.Filename),
		SizeBytes:   header.Size,
		Content:     io.MultiReader(bytes.NewReader(head[:n]), file),
	})
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.FromDocument(doc))
}

// List returns the caller's documents, newest first
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} utils.PaginatedResponse
// @Security BearerAuth
// @Router /documents [get]
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	docs, err := h.documents.ListByOwner(r.Context(), userID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}

	params := utils.ParsePaginationParams(r)
	start, end := params.Window(len(docs))
	utils.WriteSuccess(w, http.StatusOK,
		utils.NewPaginatedResponse(dto.FromDocuments(docs[start:end]), params.Page, params.PageSize, int64(len(docs))))
}

// Get returns one document
// @Summary Get a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.DocumentDTO
// @Failure 403 {object} utils.ErrorResponse "Not the owner"
// @Failure 404 {object} utils.ErrorResponse "Not found"
// @Security BearerAuth
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromDocument(doc))
}

// Delete removes a document and its artifacts
// @Summary Delete a document
// @Tags Documents
// @Param id path string true "Document ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse "Not the owner"
// @Security BearerAuth
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.documents.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteNoContent(w)
}

// Retry moves a failed document back to uploaded
// @Summary Retry a failed document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.DocumentDTO
// @Failure 409 {object} utils.ErrorResponse "Document is not failed"
// @Security BearerAuth
// @Router /documents/{id}/retry [post]
func (h *DocumentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.owned(w, r)
	if !ok {
		return
	}

	doc, err := h.documents.Retry(r.Context(), doc.ID)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.FromDocument(doc))
}

// Summary returns the generated summary
// @Summary Get a document summary
// @Description Available on every tier once the document is summarized
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.SummaryResponse
// @Failure 403 {object} utils.ErrorResponse "Denied with the gate reason as code"
// @Security BearerAuth
// @Router /documents/{id}/summary [get]
func (h *DocumentHandler) Summary(w http.ResponseWriter, r *http.Request) {
	eval, ok := h.check(w, r, entitlement.CapabilitySummary)
	if !ok {
		return
	}

	rc, err := h.store.Get(r.Context(), eval.Document.SummaryArtifactID)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to read summary artifact")
		utils.WriteError(w, errors.StorageError("Failed to read summary", err))
		return
	}
	defer rc.Close()

	text, err := io.ReadAll(rc)
	if err != nil {
		utils.WriteError(w, errors.StorageError("Failed to read summary", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.SummaryResponse{
		DocumentID: eval.Document.ID,
		Summary:    string(text),
	})
}

// Audio streams the generated MP3. With download=true the response is an attachment.
// @Summary Get a document's audio explanation
// @Description Requires an active trial or subscription
// @Tags Documents
// @Produce audio/mpeg
// @Param id path string true "Document ID"
// @Param download query bool false "Serve as an attachment"
// @Success 200 {file} binary
// @Failure 403 {object} utils.ErrorResponse "Denied with the gate reason as code"
// @Security BearerAuth
// @Router /documents/{id}/audio [get]
func (h *DocumentHandler) Audio(w http.ResponseWriter, r *http.Request) {
	capability := entitlement.CapabilityAudio
	download := r.URL.Query().Get("download") == "true"
	if download {
		capability = entitlement.CapabilityDownload
	}

	eval, ok := h.check(w, r, capability)
	if !ok {
		return
	}

	rc, err := h.store.Get(r.Context(), eval.Document.AudioArtifactID)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to read audio artifact")
		utils.WriteError(w, errors.StorageError("Failed to read audio", err))
		return
	}
	defer rc.Close()

	attachment := ""
	if download {
		attachment = audioFilename(eval.Document.DisplayName)
	}
	if _, err := utils.WriteStream(w, storage.ContentTypeMP3, attachment, rc); err != nil {
		h.logger.WithError(err).Warn("Audio stream interrupted")
	}
}

// GenerateAudio queues narration of a summarized document
// @Summary Request an audio explanation
// @Description Requires an active trial or subscription and a summarized document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 202 {object} dto.DocumentDTO
// @Failure 403 {object} utils.ErrorResponse "Denied with the gate reason as code"
// @Security BearerAuth
// @Router /documents/{id}/audio [post]
func (h *DocumentHandler) GenerateAudio(w http.ResponseWriter, r *http.Request) {
	eval, ok := h.check(w, r, entitlement.CapabilityAudioGeneration)
	if !ok {
		return
	}

	doc, err := h.documents.Advance(r.Context(), eval.Document.ID, document.StageAudioPending, "")
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusAccepted, dto.FromDocument(doc))
}

// Entitlements lists every gate decision for the caller on one document
// @Summary Get entitlements for a document
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.EntitlementsResponse
// @Security BearerAuth
// @Router /documents/{id}/entitlements [get]
func (h *DocumentHandler) Entitlements(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	decisions, err := h.gate.CheckAll(r.Context(), userID, id)
	if err != nil {
		utils.WriteErr(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.EntitlementsResponse{
		DocumentID: id,
		Decisions:  decisions,
	})
}

// owned loads the path document and checks the caller owns it
func (h *DocumentHandler) owned(w http.ResponseWriter, r *http.Request) (*document.Document, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}

	doc, err := h.documents.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteErr(w, err)
		return nil, false
	}
	if doc.OwnerID != userID {
		utils.WriteErr(w, document.ErrNotOwner)
		return nil, false
	}
	return doc, true
}

// check runs a gate and writes a 403 carrying the reason when it denies
func (h *DocumentHandler) check(w http.ResponseWriter, r *http.Request, capability entitlement.Capability) (*services.Evaluation, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}

	eval, err := h.gate.Check(r.Context(), capability, userID, chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteErr(w, err)
		return nil, false
	}
	if !eval.Decision.Allowed {
		utils.WriteError(w, errors.Denied(string(eval.Decision.Reason)))
		return nil, false
	}
	return eval, true
}

func (h *DocumentHandler) tooLarge() *errors.AppError {
	return errors.New("PAYLOAD_TOO_LARGE", fmt.Sprintf("File exceeds the %d byte limit", h.maxUploadBytes), http.StatusRequestEntityTooLarge)
}

func displayName(filename string) string {
	name := strings.TrimSpace(filepath.Base(filename))
	if name == "" || name == "." || name == "/" {
		return "document.pdf"
	}
	return name
}

func audioFilename(displayName string) string {
	return strings.TrimSuffix(displayName, filepath.Ext(displayName)) + ".mp3"
}
