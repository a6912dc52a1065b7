package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"anhthoxay/internal/models"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every failed request. Code is the escrow error
// kind when the failure came from the escrow domain.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty" example:"INVALID_RELEASE_AMOUNT"`
	Details map[string]string `json:"details,omitempty"`
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		// browsers cannot set headers on WebSocket handshakes
		if strings.HasPrefix(c.Request.URL.Path, "/ws/") {
			return c.Query("token")
		}
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// AuthMiddleware resolves the bearer access token issued by the auth service
// and stores the user id and role in the context.
func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization"})
			return
		}
		var token models.Token
		if err := db.Preload("User").Where("token = ? AND type = ?", tokenStr, models.TokenAccess).First(&token).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}
		if token.Expired(time.Now()) {
			db.Delete(&token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "token expired"})
			return
		}
		if !token.User.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "user disabled"})
			return
		}
		c.Set(ctxUserID, token.UserID)
		c.Set(ctxRole, token.User.Role)
		c.Next()
	}
}

// RequireRole lets only the listed roles through.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, ok := currentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	}
}

func currentUser(c *gin.Context) (string, models.Role, bool) {
	idVal, ok := c.Get(ctxUserID)
	if !ok {
		return "", "", false
	}
	id, _ := idVal.(string)
	roleVal, _ := c.Get(ctxRole)
	role, _ := roleVal.(models.Role)
	return id, role, id != ""
}
