package auth

import (
	"errors"
	"strings"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Role     models.UserRole `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Handler struct {
	db     *gorm.DB
	secret string
	log    *logger.Logger
}

func NewHandler(db *gorm.DB, secret string, baseLog *logger.Logger) *Handler {
	return &Handler{db: db, secret: secret, log: baseLog.With("handler", "Auth")}
}

func (r *RegisterRequest) normalize() error {
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	if r.Email == "" || r.Password == "" || r.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
	}
	if len(r.Password) < 8 {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 8 characters")
	}
	return nil
}

func (h *Handler) create(name, email, password string, role models.UserRole) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "password could not be hashed")
	}

	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := h.db.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, fiber.NewError(fiber.StatusConflict, "email already registered")
		}
		h.log.Error("user not created", "email", email, "error", err)
		return nil, fiber.NewError(fiber.StatusInternalServerError, "user could not be created")
	}
	return &user, nil
}

// POST /api/auth/register-admin, only while no admin exists.
func (h *Handler) RegisterAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := body.normalize(); err != nil {
			return err
		}

		var count int64
		if err := h.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "users could not be counted")
		}
		if count > 0 {
			return fiber.NewError(fiber.StatusForbidden, "an admin already exists")
		}

		user, err := h.create(body.Name, body.Email, body.Password, models.RoleAdmin)
		if err != nil {
			return err
		}
		h.log.Info("admin registered", "user_id", user.ID)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

// POST /api/users (admin)
func (h *Handler) CreateUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := body.normalize(); err != nil {
			return err
		}
		if body.Role == "" {
			body.Role = models.RoleViewer
		}
		if body.Role != models.RoleAdmin && body.Role != models.RoleViewer {
			return fiber.NewError(fiber.StatusBadRequest, "role must be admin or viewer")
		}

		user, err := h.create(body.Name, body.Email, body.Password, body.Role)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		})
	}
}

func (h *Handler) Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := h.db.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "wrong email or password")
		}

		token, err := GenerateToken(h.secret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "token could not be issued")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user": fiber.Map{
				"id":    user.ID,
				"name":  user.Name,
				"email": user.Email,
				"role":  user.Role,
			},
		})
	}
}

func (h *Handler) Me() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(CtxUserIDKey).(uint)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "user missing from token")
		}

		var user models.User
		if err := h.db.First(&user, userID).Error; err != nil {
			// token outlived its user
			return c.JSON(fiber.Map{
				"user_id": userID,
				"role":    c.Locals(CtxUserRoleKey),
			})
		}

		return c.JSON(fiber.Map{
			"user_id": user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"role":    user.Role,
		})
	}
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
