package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-show-reservation/internal/application"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
)

type TheatreHandler struct {
	service TheatreServiceInterface
}

func NewTheatreHandler(s TheatreServiceInterface) *TheatreHandler {
	return &TheatreHandler{service: s}
}

type CreateTheatreRequest struct {
	Name       string `json:"name" validate:"required,max=255" example:"PVR Phoenix"`
	City       string `json:"city" validate:"required,max=100" example:"Mumbai"`
	Address    string `json:"address" example:"Lower Parel"`
	TotalSeats int    `json:"totalSeats" validate:"gte=0" example:"300"`
}

type TheatreResponse struct {
	ID         int64     `json:"id" example:"1"`
	Name       string    `json:"name" example:"PVR Phoenix"`
	City       string    `json:"city" example:"Mumbai"`
	Address    string    `json:"address,omitempty" example:"Lower Parel"`
	TotalSeats int       `json:"totalSeats" example:"300"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toTheatreResponse(t *theatre.Theatre) TheatreResponse {
	return TheatreResponse{
		ID: t.ID, Name: t.Name, City: t.City, Address: t.Address,
		TotalSeats: t.TotalSeats, CreatedAt: t.CreatedAt,
	}
}

// Create godoc
// @Summary 劇場を登録
// @Tags theatres
// @Accept json
// @Produce json
// @Param request body CreateTheatreRequest true "劇場情報"
// @Success 201 {object} TheatreResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /theatres [post]
func (h *TheatreHandler) Create(c echo.Context) error {
	var req CreateTheatreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := h.service.CreateTheatre(c.Request().Context(), application.CreateTheatreInput{
		Name: req.Name, City: req.City, Address: req.Address, TotalSeats: req.TotalSeats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTheatreResponse(t))
}

// GetByID godoc
// @Summary 劇場を取得
// @Tags theatres
// @Produce json
// @Param id path int true "劇場ID"
// @Success 200 {object} TheatreResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /theatres/{id} [get]
func (h *TheatreHandler) GetByID(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	t, err := h.service.GetTheatre(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTheatreResponse(t))
}

// List godoc
// @Summary 劇場一覧を取得
// @Tags theatres
// @Produce json
// @Param city query string false "都市（大文字小文字を区別しない）"
// @Success 200 {array} TheatreResponse
// @Router /theatres [get]
func (h *TheatreHandler) List(c echo.Context) error {
	theatres, err := h.service.ListTheatres(c.Request().Context(), c.QueryParam("city"))
	if err != nil {
		return err
	}
	resp := make([]TheatreResponse, len(theatres))
	for i, t := range theatres {
		resp[i] = toTheatreResponse(t)
	}
	return c.JSON(http.StatusOK, resp)
}
