package handler

import "github.com/labstack/echo/v4"

// Handlers はルーティング対象のハンドラー一式
type Handlers struct {
	Health  *HealthHandler
	Booking *BookingHandler
	Show    *ShowHandler
	Theatre *TheatreHandler
	User    *UserHandler
}

// RegisterRoutes は /api/v1 配下にハンドラーを登録する
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/health", h.Health.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/health", h.Health.Check)

	v1.POST("/bookings", h.Booking.Create)
	v1.GET("/bookings", h.Booking.List)
	v1.GET("/bookings/:id", h.Booking.GetByID)
	v1.PATCH("/bookings/:id", h.Booking.Amend)
	v1.DELETE("/bookings/:id", h.Booking.Cancel)

	v1.POST("/shows", h.Show.Create)
	v1.GET("/shows", h.Show.List)
	v1.GET("/shows/:id", h.Show.GetByID)
	v1.PUT("/shows/:id", h.Show.Update)
	v1.DELETE("/shows/:id", h.Show.Delete)
	v1.GET("/shows/:id/availability", h.Show.Availability)
	v1.GET("/shows/:id/inventory", h.Show.Inventory)

	v1.POST("/theatres", h.Theatre.Create)
	v1.GET("/theatres", h.Theatre.List)
	v1.GET("/theatres/:id", h.Theatre.GetByID)

	v1.POST("/users", h.User.Create)
	v1.GET("/users", h.User.List)
	v1.GET("/users/:id", h.User.GetByID)
}
