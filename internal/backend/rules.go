package backend

import (
	"github.com/mmynk/fintrack/internal/apperr"
	"github.com/mmynk/fintrack/internal/models"
)

// Access rules: a principal may read and write only users/{self} and the
// transactions whose userId is self.

var (
	ErrPermissionDenied = apperr.New(apperr.CodePermissionDenied, "Missing or insufficient permissions.")
	ErrUnauthenticated  = apperr.New(apperr.CodePermissionDenied, "The request has no authenticated principal.")
)

func allowProfile(caller *models.Principal, uid string) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	if uid == "" || caller.ID != uid {
		return ErrPermissionDenied
	}
	return nil
}

func allowOwner(caller *models.Principal, ownerID string) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	if ownerID == "" || caller.ID != ownerID {
		return ErrPermissionDenied
	}
	return nil
}

// checkDraft enforces the document shape of transactions/{id}.
func checkDraft(d models.TransactionDraft) error {
	if !d.Type.Valid() {
		return apperr.New(apperr.CodeInvalidArgument, "type must be income or expense")
	}
	if d.Amount <= 0 {
		return apperr.New(apperr.CodeInvalidArgument, "amount must be positive")
	}
	if d.Category == "" {
		return apperr.New(apperr.CodeInvalidArgument, "category is required")
	}
	if _, err := models.ParseDate(d.Date); err != nil {
		return apperr.New(apperr.CodeInvalidArgument, "date must be YYYY-MM-DD")
	}
	return nil
}
