// internal/handlers/dossier.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medcouncil/registry-backend/internal/i18n"
	"github.com/medcouncil/registry-backend/internal/models"
	"github.com/medcouncil/registry-backend/internal/services"
	"github.com/medcouncil/registry-backend/internal/utils"
	"github.com/medcouncil/registry-backend/internal/workflow"
)

type DossierHandler struct {
	dossierService *services.DossierService
	storageService *services.StorageService
}

func NewDossierHandler(dossierService *services.DossierService, storageService *services.StorageService) *DossierHandler {
	return &DossierHandler{
		dossierService: dossierService,
		storageService: storageService,
	}
}

// POST /dossiers
func (h *DossierHandler) CreateDossier(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	applicantID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateDossierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	dossier, err := h.dossierService.CreateDossier(applicantID, &req)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDossierCreated),
		"dossier": dossier,
	})
}

// GET /dossiers/:id
func (h *DossierHandler) GetDossier(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	dossierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid dossier ID", nil)
		return
	}

	dossier, err := h.dossierService.GetDossier(dossierID, callerID)
	if err != nil {
		h.respondDossierError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"dossier": dossier})
}

// GET /dossiers
func (h *DossierHandler) ListDossiers(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	params := services.DossierSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}
	if stateStr := c.Query("state"); stateStr != "" {
		state := models.DossierState(stateStr)
		params.State = &state
	}
	if applicantStr := c.Query("applicant_id"); applicantStr != "" {
		applicantID, err := uuid.Parse(applicantStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid applicant ID", nil)
			return
		}
		params.ApplicantID = &applicantID
	}

	dossiers, total, err := h.dossierService.SearchDossiers(params, callerID)
	if err != nil {
		h.respondDossierError(c, err)
		return
	}

	result := utils.CreatePaginationResult(dossiers, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /dossiers/:id/history
func (h *DossierHandler) GetHistory(c *gin.Context) {
	callerID, ok := currentUserID(c)
	if !ok {
		return
	}

	dossierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid dossier ID", nil)
		return
	}

	records, err := h.dossierService.GetHistory(dossierID, callerID)
	if err != nil {
		h.respondDossierError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"history": records})
}

// POST /dossiers/:id/actions
func (h *DossierHandler) ExecuteAction(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	actorID, ok := currentUserID(c)
	if !ok {
		return
	}

	dossierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid dossier ID", nil)
		return
	}

	var req struct {
		Action models.ActionName `json:"action" validate:"required"`
		Notes  string            `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.dossierService.ExecuteAction(dossierID, req.Action, actorID, req.Notes)
	if err != nil {
		h.respondWorkflowError(c, lang, err)
		return
	}

	response := gin.H{
		"message": i18n.T(lang, i18n.KeyDossierStateChanged),
		"dossier": result.Dossier,
		"state":   result.State,
		"record":  result.Record,
	}
	if result.LicenseCode != "" {
		response["license_code"] = result.LicenseCode
		response["license_number"] = result.LicenseNumber
	}

	utils.SuccessResponse(c, response)
}

// POST /dossiers/:id/documents
func (h *DossierHandler) UploadDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	uploaderID, ok := currentUserID(c)
	if !ok {
		return
	}

	dossierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid dossier ID", nil)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "No file provided", err.Error())
		return
	}
	defer file.Close()

	category := c.DefaultPostForm("category", "qualifications")
	options := h.storageService.GetDefaultUploadOptions(category)

	upload, err := h.storageService.UploadFile(file, header, options)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyDocumentTooLarge), err.Error())
		return
	}

	document, err := h.dossierService.AttachDocument(dossierID, uploaderID, upload, header.Filename)
	if err != nil {
		// Uploaded object is orphaned if the attach fails; remove it.
		_ = h.storageService.DeleteFile(upload.Key)
		h.respondDossierError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyDocumentUploaded),
		"document": document,
	})
}

// GET /dossiers/statistics
func (h *DossierHandler) GetStatistics(c *gin.Context) {
	stats, err := h.dossierService.GetDossierStatistics()
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch statistics")
		return
	}

	utils.SuccessResponse(c, gin.H{"statistics": stats})
}

// respondWorkflowError maps engine errors onto HTTP statuses. The
// engine's error code doubles as the machine-readable API error code.
func (h *DossierHandler) respondWorkflowError(c *gin.Context, lang string, err error) {
	code := workflow.ErrorCode(err)

	var illegal *workflow.IllegalTransitionError
	var unauthorized *workflow.UnauthorizedError

	switch {
	case errors.Is(err, workflow.ErrDossierNotFound):
		utils.NotFoundResponse(c, "Dossier")
	case errors.As(err, &unauthorized):
		utils.ErrorResponse(c, http.StatusForbidden, code,
			i18n.T(lang, i18n.KeyWorkflowUnauthorized), gin.H{
				"required_role": unauthorized.Required,
				"actual_role":   unauthorized.Actual,
			})
	case errors.As(err, &illegal):
		utils.ErrorResponse(c, http.StatusConflict, code,
			i18n.T(lang, i18n.KeyWorkflowIllegalTransition), gin.H{
				"current_state": illegal.CurrentState,
				"action":        illegal.Action,
			})
	case errors.Is(err, workflow.ErrReasonRequired):
		utils.ErrorResponse(c, http.StatusBadRequest, code,
			i18n.T(lang, i18n.KeyWorkflowReasonRequired), nil)
	case errors.Is(err, workflow.ErrPaymentRequired):
		utils.ErrorResponse(c, http.StatusBadRequest, code,
			i18n.T(lang, i18n.KeyWorkflowPaymentRequired), nil)
	case errors.Is(err, workflow.ErrUnknownAction):
		utils.ErrorResponse(c, http.StatusBadRequest, code,
			i18n.T(lang, i18n.KeyWorkflowUnknownAction), nil)
	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, code,
			"Transition could not be persisted", nil)
	}
}

func (h *DossierHandler) respondDossierError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrDossierNotFound):
		utils.NotFoundResponse(c, "Dossier")
	case err.Error() == "unauthorized to view dossier",
		err.Error() == "unauthorized to list dossiers":
		utils.ForbiddenResponse(c, err.Error())
	default:
		utils.BadRequestResponse(c, err.Error(), nil)
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "User not authenticated")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}

	return userID, true
}
