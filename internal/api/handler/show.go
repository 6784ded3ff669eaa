package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-show-reservation/internal/application"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type ShowHandler struct {
	service ShowServiceInterface
	ledger  LedgerServiceInterface
}

func NewShowHandler(s ShowServiceInterface, ledger LedgerServiceInterface) *ShowHandler {
	return &ShowHandler{service: s, ledger: ledger}
}

// ShowRequest は公演の作成・更新リクエスト
type ShowRequest struct {
	TheatreID  int64           `json:"theatreId" validate:"required,gt=0" example:"1"`
	MovieTitle string          `json:"movieTitle" validate:"required,max=255" example:"Dune"`
	Date       string          `json:"date" validate:"required,datetime=2006-01-02" example:"2025-04-10"`
	Time       string          `json:"time" validate:"required,datetime=15:04" example:"18:30"`
	Price      decimal.Decimal `json:"price" swaggertype:"string" example:"250"`
	Capacity   int             `json:"capacity" validate:"required,gt=0" example:"100"`
	Language   string          `json:"language" example:"English"`
	Screen     string          `json:"screen" example:"Screen 1"`
}

func (r ShowRequest) startsAt() (time.Time, error) {
	return time.Parse(dateLayout+" "+timeLayout, r.Date+" "+r.Time)
}

type ShowResponse struct {
	ID             int64           `json:"id" example:"1"`
	TheatreID      int64           `json:"theatreId" example:"1"`
	MovieTitle     string          `json:"movieTitle" example:"Dune"`
	Date           string          `json:"date" example:"2025-04-10"`
	Time           string          `json:"time" example:"18:30"`
	Price          decimal.Decimal `json:"price" swaggertype:"string" example:"250"`
	Capacity       int             `json:"capacity" example:"100"`
	SeatsAvailable int             `json:"seatsAvailable" example:"98"`
	Language       string          `json:"language,omitempty" example:"English"`
	Screen         string          `json:"screen,omitempty" example:"Screen 1"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func toShowResponse(s *show.Show) ShowResponse {
	return ShowResponse{
		ID: s.ID, TheatreID: s.TheatreID, MovieTitle: s.MovieTitle,
		Date: s.StartsAt.Format(dateLayout), Time: s.StartsAt.Format(timeLayout),
		Price: s.Price, Capacity: s.Capacity, SeatsAvailable: s.SeatsAvailable,
		Language: s.Language, Screen: s.Screen,
		CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

type AvailabilityResponse struct {
	ShowID         int64 `json:"showId" example:"1"`
	SeatsAvailable int   `json:"seatsAvailable" example:"98"`
}

type InventoryResponse struct {
	ShowID         int64 `json:"showId" example:"1"`
	Capacity       int   `json:"capacity" example:"100"`
	SeatsAvailable int   `json:"seatsAvailable" example:"98"`
	ConfirmedSeats int   `json:"confirmedSeats" example:"2"`
	Drift          int   `json:"drift" example:"0"`
	Consistent     bool  `json:"consistent" example:"true"`
}

func (h *ShowHandler) bindShow(c echo.Context) (ShowRequest, time.Time, error) {
	var req ShowRequest
	if err := c.Bind(&req); err != nil {
		return req, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return req, time.Time{}, err
	}
	startsAt, err := req.startsAt()
	if err != nil {
		return req, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "日時の形式が不正です")
	}
	return req, startsAt, nil
}

// Create godoc
// @Summary 公演を作成
// @Description 空席数は定員で初期化されます
// @Tags shows
// @Accept json
// @Produce json
// @Param request body ShowRequest true "公演情報"
// @Success 201 {object} ShowResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "劇場が存在しない"
// @Router /shows [post]
func (h *ShowHandler) Create(c echo.Context) error {
	req, startsAt, err := h.bindShow(c)
	if err != nil {
		return err
	}
	s, err := h.service.CreateShow(c.Request().Context(), application.CreateShowInput{
		TheatreID: req.TheatreID, MovieTitle: req.MovieTitle, StartsAt: startsAt,
		Price: req.Price, Capacity: req.Capacity, Language: req.Language, Screen: req.Screen,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toShowResponse(s))
}

// GetByID godoc
// @Summary 公演を取得
// @Tags shows
// @Produce json
// @Param id path int true "公演ID"
// @Success 200 {object} ShowResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /shows/{id} [get]
func (h *ShowHandler) GetByID(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	s, err := h.service.GetShow(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShowResponse(s))
}

// List godoc
// @Summary 公演一覧を取得
// @Tags shows
// @Produce json
// @Param theatreId query int false "劇場ID"
// @Param movieTitle query string false "作品名（部分一致）"
// @Success 200 {array} ShowResponse
// @Router /shows [get]
func (h *ShowHandler) List(c echo.Context) error {
	theatreID, err := queryID(c.QueryParam("theatreId"), "theatreId")
	if err != nil {
		return err
	}
	shows, err := h.service.ListShows(c.Request().Context(), show.Filter{
		TheatreID: theatreID, MovieTitle: c.QueryParam("movieTitle"),
	})
	if err != nil {
		return err
	}
	resp := make([]ShowResponse, len(shows))
	for i, s := range shows {
		resp[i] = toShowResponse(s)
	}
	return c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary 公演を更新
// @Description 定員は確定済み座席数以上である必要があります
// @Tags shows
// @Accept json
// @Produce json
// @Param id path int true "公演ID"
// @Param request body ShowRequest true "公演情報"
// @Success 200 {object} ShowResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /shows/{id} [put]
func (h *ShowHandler) Update(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	req, startsAt, err := h.bindShow(c)
	if err != nil {
		return err
	}
	s, err := h.service.UpdateShow(c.Request().Context(), application.UpdateShowInput{
		ID: id, TheatreID: req.TheatreID, MovieTitle: req.MovieTitle, StartsAt: startsAt,
		Price: req.Price, Capacity: req.Capacity, Language: req.Language, Screen: req.Screen,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toShowResponse(s))
}

// Delete godoc
// @Summary 公演を削除
// @Description 確定予約が残っている公演は削除できません
// @Tags shows
// @Param id path int true "公演ID"
// @Success 204
// @Failure 400 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /shows/{id} [delete]
func (h *ShowHandler) Delete(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteShow(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Availability godoc
// @Summary 空席数を取得
// @Description キャッシュ経由で空席数を返します
// @Tags shows
// @Produce json
// @Param id path int true "公演ID"
// @Success 200 {object} AvailabilityResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /shows/{id}/availability [get]
func (h *ShowHandler) Availability(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	seats, err := h.service.GetAvailability(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailabilityResponse{ShowID: id, SeatsAvailable: seats})
}

// Inventory godoc
// @Summary 在庫監査
// @Description 定員・空席数・確定座席数を同一スナップショットで返します
// @Tags shows
// @Produce json
// @Param id path int true "公演ID"
// @Success 200 {object} InventoryResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /shows/{id}/inventory [get]
func (h *ShowHandler) Inventory(c echo.Context) error {
	id, err := pathID(c.Param("id"), "id")
	if err != nil {
		return err
	}
	items, err := h.ledger.AuditInventory(c.Request().Context())
	if err != nil {
		return err
	}
	for _, inv := range items {
		if inv.ShowID == id {
			return c.JSON(http.StatusOK, InventoryResponse{
				ShowID: inv.ShowID, Capacity: inv.Capacity,
				SeatsAvailable: inv.SeatsAvailable, ConfirmedSeats: inv.ConfirmedSeats,
				Drift: inv.Drift(), Consistent: inv.Consistent(),
			})
		}
	}
	return show.ErrShowNotFound
}
