package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-show-reservation/internal/application"
	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
)

type BookingHandler struct {
	service LedgerServiceInterface
}

func NewBookingHandler(s LedgerServiceInterface) *BookingHandler {
	return &BookingHandler{service: s}
}

type CreateBookingRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0" example:"1"`
	ShowID int64 `json:"showId" validate:"required,gt=0" example:"1"`
	Seats  int   `json:"seats" validate:"required,gt=0" example:"2"`
}

type AmendBookingRequest struct {
	ShowID int64 `json:"showId" validate:"required,gt=0" example:"2"`
	Seats  int   `json:"seats" validate:"required,gt=0" example:"3"`
}

type BookingResponse struct {
	ID         int64           `json:"id" example:"1"`
	UserID     int64           `json:"userId" example:"1"`
	ShowID     int64           `json:"showId" example:"1"`
	Seats      int             `json:"seats" example:"2"`
	TotalPrice decimal.Decimal `json:"totalPrice" swaggertype:"string" example:"500"`
	Status     string          `json:"status" example:"CONFIRMED"`
	BookedAt   time.Time       `json:"bookedAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID: b.ID, UserID: b.UserID, ShowID: b.ShowID, Seats: b.Seats,
		TotalPrice: b.TotalPrice, Status: string(b.Status),
		BookedAt: b.BookedAt, UpdatedAt: b.UpdatedAt,
	}
}

// Create godoc
// @Summary 予約を作成
// @Description 公演の空席を確保し、確定済みの予約を作成します
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body CreateBookingRequest true "予約情報"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "ユーザーまたは公演が存在しない"
// @Failure 409 {object} api.ErrorResponse "空席不足"
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.Reserve(c.Request().Context(), application.ReserveInput{
		UserID: req.UserID, ShowID: req.ShowID, Seats: req.Seats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags bookings
// @Produce json
// @Param id path int true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	b, err := h.service.GetBooking(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// List godoc
// @Summary 予約一覧を取得
// @Description ユーザーIDや公演IDで絞り込めます（ID昇順）
// @Tags bookings
// @Produce json
// @Param userId query int false "ユーザーID"
// @Param showId query int false "公演ID"
// @Success 200 {array} BookingResponse
// @Router /bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	userID, err := queryID(c.QueryParam("userId"), "userId")
	if err != nil {
		return err
	}
	showID, err := queryID(c.QueryParam("showId"), "showId")
	if err != nil {
		return err
	}
	bookings, err := h.service.ListBookings(c.Request().Context(), booking.Filter{UserID: userID, ShowID: showID})
	if err != nil {
		return err
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}

// Amend godoc
// @Summary 予約を変更
// @Description 座席数や公演を変更します。空席の移動は一括で行われます
// @Tags bookings
// @Accept json
// @Produce json
// @Param id path int true "予約ID"
// @Param request body AmendBookingRequest true "変更内容"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse "キャンセル済み"
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "空席不足"
// @Router /bookings/{id} [patch]
func (h *BookingHandler) Amend(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	var req AmendBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	b, err := h.service.Amend(c.Request().Context(), application.AmendInput{
		BookingID: id, ShowID: req.ShowID, Seats: req.Seats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 座席を公演に戻し、キャンセル済みの予約を返します
// @Tags bookings
// @Produce json
// @Param id path int true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse "キャンセル済み"
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	b, err := h.service.Release(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}
