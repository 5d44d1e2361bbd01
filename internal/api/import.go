package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/podrestore/internal/httputil"
	"github.com/persistorai/podrestore/internal/models"
	"github.com/persistorai/podrestore/internal/security"
)

// ImportHandler serves archive import, restore and validation endpoints.
type ImportHandler struct {
	svc   ImportService
	guard *security.FailureGuard
	log   *logrus.Logger
}

// NewImportHandler creates an ImportHandler. A non-nil guard locks out
// usernames after repeated wrong passwords.
func NewImportHandler(svc ImportService, guard *security.FailureGuard, log *logrus.Logger) *ImportHandler {
	return &ImportHandler{svc: svc, guard: guard, log: log}
}

// importBody is the JSON body of POST /accounts/import. The archive is kept
// raw so it goes through the same structural checks as a bare archive body.
type importBody struct {
	Username string          `json:"username"`
	Password string          `json:"password"`
	Archive  json.RawMessage `json:"archive"`
}

// Import handles POST /api/v1/accounts/import.
func (h *ImportHandler) Import(c *gin.Context) {
	opts, ok := importOptions(c)
	if !ok {
		return
	}

	var body importBody
	if err := c.ShouldBindJSON(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondServiceError(c, h.log, err, "decoding import request")
			return
		}

		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "request body must be a JSON object")

		return
	}

	req := models.ImportRequest{Username: body.Username, Password: body.Password}
	if len(body.Archive) > 0 && string(body.Archive) != "null" {
		archive, err := models.DecodeArchive(body.Archive)
		if err != nil {
			respondServiceError(c, h.log, err, "decoding archive")
			return
		}

		req.Archive = archive
	}

	guardKey := "account:" + req.Username
	if h.guard != nil && h.guard.Blocked(guardKey) {
		respondError(c, http.StatusTooManyRequests, ErrCodeRateLimited, "too many failed attempts for this account")
		return
	}

	result, err := h.svc.ImportNew(c.Request.Context(), req, opts)
	if err != nil {
		if h.guard != nil && errors.Is(err, models.ErrAccountExists) {
			h.guard.Fail(guardKey)
		}

		respondServiceError(c, h.log, err, "importing archive")

		return
	}

	if h.guard != nil {
		h.guard.Reset(guardKey)
	}

	h.logRun(c, result)

	status := http.StatusOK
	if result.AccountCreated {
		status = http.StatusCreated
	}

	c.JSON(status, result)
}

// Restore handles POST /api/v1/accounts/:username/import. The body is the archive.
func (h *ImportHandler) Restore(c *gin.Context) {
	username := c.Param("username")
	if err := models.ValidateUsername(username); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
		return
	}

	opts, ok := importOptions(c)
	if !ok {
		return
	}

	archive, err := models.ParseArchive(c.Request.Body)
	if err != nil {
		respondServiceError(c, h.log, err, "decoding archive")
		return
	}

	result, err := h.svc.Restore(c.Request.Context(), username, archive, opts)
	if err != nil {
		respondServiceError(c, h.log, err, "restoring archive")
		return
	}

	h.logRun(c, result)

	c.JSON(http.StatusOK, result)
}

// Validate handles POST /api/v1/archives/validate. A structurally broken
// archive yields a report with valid=false rather than an error status.
func (h *ImportHandler) Validate(c *gin.Context) {
	archive, err := models.ParseArchive(c.Request.Body)
	if err != nil {
		if errors.Is(err, models.ErrMalformedArchive) {
			c.JSON(http.StatusOK, &models.ValidationReport{Problems: []string{err.Error()}})
			return
		}

		respondServiceError(c, h.log, err, "reading archive")

		return
	}

	c.JSON(http.StatusOK, h.svc.ValidateArchive(c.Request.Context(), archive))
}

func (h *ImportHandler) logRun(c *gin.Context, result *models.ImportResult) {
	h.log.WithFields(logrus.Fields{
		"action":     "archive.import",
		"account":    result.Username,
		"run_id":     result.RunID,
		"dry_run":    result.DryRun,
		"edges":      result.EdgesCreated(),
		"skipped":    result.Skipped,
		"request_id": httputil.RequestID(c),
	}).Info("audit")
}

// importOptions reads the import_profile, import_settings and dry_run query
// flags. It writes a 400 and returns false on an unparsable flag.
func importOptions(c *gin.Context) (models.ImportOptions, bool) {
	opts := models.DefaultImportOptions()
	opts.Actor = getActor(c)

	flags := []struct {
		name string
		dst  *bool
	}{
		{"import_profile", &opts.ImportProfile},
		{"import_settings", &opts.ImportSettings},
		{"dry_run", &opts.DryRun},
	}

	for _, f := range flags {
		raw, present := c.GetQuery(f.name)
		if !present {
			continue
		}

		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, f.name+" must be a boolean")
			return opts, false
		}

		*f.dst = v
	}

	return opts, true
}
