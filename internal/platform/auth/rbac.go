package auth

import (
	"github.com/healthhistory/healthhistory/internal/platform/apperr"
)

// Authorize checks that claims were issued to the required role.
func Authorize(claims *Claims, required Role) error {
	if claims == nil {
		return apperr.Unauthenticated("Missing token", nil)
	}

	switch required {
	case RoleDoctor:
		if claims.Role == RoleDoctor {
			return nil
		}
		return apperr.Forbidden("Authorization required: Doctor role")
	case RolePatient:
		if claims.Role == RolePatient {
			return nil
		}
		return apperr.Forbidden("Authorization required: Patient role")
	default:
		return apperr.Internal("unknown role requirement")
	}
}
