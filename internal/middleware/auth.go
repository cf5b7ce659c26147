// Package middleware contains the HTTP middleware for the Fairway Live API:
// bearer-token authentication with lazy user sync, and role gating.
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/reidmcb/fairway-live/internal/config"
	"github.com/reidmcb/fairway-live/internal/models"
)

// Claims is the token payload we read. Subject carries the identity provider's
// user ID; role, email and name come from the provider's JWT template and may
// be absent until the template is configured.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// parseToken parses and, when a secret is configured, verifies a bearer token.
// Tokens are issued from an HS256 JWT template signed with the shared secret.
// Without a secret the claims are parsed unverified; that mode is for local
// development only.
func parseToken(cfg *config.Config, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if cfg.ClerkSecretKey == "" {
		_, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims)
		return claims, err
	}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return []byte(cfg.ClerkSecretKey), nil
	})
	return claims, err
}

// Auth validates the bearer token from the Authorization header, finds or
// creates the matching user row (lazy sync: the first authenticated request
// creates the record), and puts the user's internal ID and role into the
// request context as "userID" and "userRole" for downstream handlers.
func Auth(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing or invalid authorization header"})
		}
		claims, err := parseToken(cfg, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		clerkUserID := claims.Subject
		if clerkUserID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "token missing subject"})
		}

		role := roleFromClaim(claims.Role)
		email := claims.Email
		if email == "" {
			// Deterministic placeholder until the JWT template carries the
			// real address; unique per provider user ID.
			email = fmt.Sprintf("%s@clerk.local", clerkUserID)
		}
		name := claims.Name
		if name == "" {
			name = "User"
		}

		var user models.User
		result := db.Where("clerk_id = ?", clerkUserID).First(&user)
		switch {
		case result.Error == nil:
			// Role changes at the provider propagate on the next request.
			if claims.Role != "" && user.Role != role {
				db.Model(&user).Update("role", role)
				user.Role = role
			}
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			user = models.User{
				ClerkID:     &clerkUserID,
				DisplayName: name,
				Email:       email,
				Role:        role,
			}
			if err := db.Create(&user).Error; err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create user record"})
			}
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "database error"})
		}

		c.Locals("userID", user.ID.String())
		c.Locals("userRole", string(user.Role))
		return c.Next()
	}
}

// roleFromClaim maps the raw role claim onto the typed enum, defaulting unknown
// or empty values to the least privileged role.
func roleFromClaim(s string) models.UserRole {
	switch s {
	case "admin":
		return models.UserRoleAdmin
	case "manager":
		return models.UserRoleManager
	default:
		return models.UserRoleUser
	}
}
