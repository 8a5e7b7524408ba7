package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/internal/models"
	appErrors "github.com/edutrack-io/kocluk-api/pkg/errors"
	"github.com/edutrack-io/kocluk-api/pkg/response"
)

// ContextScopeKey is the gin context key storing the resolved access scope.
const ContextScopeKey = "accessScope"

type parentLookup interface {
	FindByID(ctx context.Context, id string) (*models.ParentDetail, error)
}

// ResolveScope turns the token claims into an AccessScope for service-level
// ownership checks. Parent scopes additionally carry the linked student id,
// which lives on the parent row rather than in the token so that relinking
// takes effect without reissuing tokens.
func ResolveScope(parents parentLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		scope := models.AccessScope{
			Role:    claims.Role,
			ActorID: claims.ActorID,
		}
		if claims.Role == models.RoleParent && claims.ActorID != "" {
			parent, err := parents.FindByID(c.Request.Context(), claims.ActorID)
			if err != nil {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "parent profile not found"))
				c.Abort()
				return
			}
			scope.StudentID = parent.StudentID
		}

		c.Set(ContextScopeKey, scope)
		c.Next()
	}
}
