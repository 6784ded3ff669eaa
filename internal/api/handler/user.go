package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-show-reservation/internal/application"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

type UserHandler struct {
	service UserServiceInterface
}

func NewUserHandler(s UserServiceInterface) *UserHandler {
	return &UserHandler{service: s}
}

type CreateUserRequest struct {
	Name  string `json:"name" validate:"required,max=255" example:"山田太郎"`
	Email string `json:"email" validate:"required,email" example:"taro@example.com"`
	Phone string `json:"phone" validate:"max=32" example:"090-1234-5678"`
}

type UserResponse struct {
	ID        int64     `json:"id" example:"1"`
	Name      string    `json:"name" example:"山田太郎"`
	Email     string    `json:"email" example:"taro@example.com"`
	Phone     string    `json:"phone,omitempty" example:"090-1234-5678"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserResponse(u *user.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, CreatedAt: u.CreatedAt}
}

// Create godoc
// @Summary ユーザーを登録
// @Tags users
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "ユーザー情報"
// @Success 201 {object} UserResponse
// @Failure 400 {object} api.ErrorResponse "入力不正またはメールアドレス重複"
// @Router /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	u, err := h.service.CreateUser(c.Request().Context(), application.CreateUserInput{
		Name: req.Name, Email: req.Email, Phone: req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(u))
}

// GetByID godoc
// @Summary ユーザーを取得
// @Tags users
// @Produce json
// @Param id path int true "ユーザーID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetByID(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	u, err := h.service.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(u))
}

// List godoc
// @Summary ユーザー一覧を取得
// @Tags users
// @Produce json
// @Success 200 {array} UserResponse
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	return c.JSON(http.StatusOK, resp)
}
