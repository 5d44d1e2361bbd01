package api

import (
	"github.com/persistorai/podrestore/internal/domain"
)

// ImportService is the archive import surface used by ImportHandler.
type ImportService = domain.ImportService

// AccountService is the account inspection surface used by AccountHandler.
type AccountService = domain.AccountService

// AuditRepository defines audit log operations used by AuditHandler.
type AuditRepository = domain.AuditService
