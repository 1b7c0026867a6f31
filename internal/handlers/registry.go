// internal/handlers/registry.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/medcouncil/registry-backend/internal/i18n"
	"github.com/medcouncil/registry-backend/internal/services"
	"github.com/medcouncil/registry-backend/internal/utils"
)

// RegistryHandler serves the public license register. No authentication;
// anyone may verify that a license number corresponds to a registered
// practitioner.
type RegistryHandler struct {
	dossierService *services.DossierService
}

func NewRegistryHandler(dossierService *services.DossierService) *RegistryHandler {
	return &RegistryHandler{
		dossierService: dossierService,
	}
}

// GET /registry/:code
func (h *RegistryHandler) LookupLicense(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	code := c.Param("code")
	if code == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "license code"), nil)
		return
	}

	entry, err := h.dossierService.LookupLicense(code)
	if err != nil {
		utils.NotFoundResponse(c, i18n.T(lang, i18n.KeyLicenseNotFound))
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyLicenseValid),
		"entry":   entry,
	})
}
