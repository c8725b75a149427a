package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hoteldesk/internal/apperrors"
	"github.com/hoteldesk/internal/hotel"
	"github.com/hoteldesk/internal/models"
	"github.com/shopspring/decimal"
)

func (s *Server) listRooms(c *gin.Context) {
	rooms, err := s.hotel.ListRooms(c.Request.Context())
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (s *Server) createRoom(c *gin.Context) {
	var in hotel.RoomInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	room, err := s.hotel.CreateRoom(c.Request.Context(), in)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

func (s *Server) listGuests(c *gin.Context) {
	guests, err := s.hotel.ListGuests(c.Request.Context())
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, guests)
}

func (s *Server) createGuest(c *gin.Context) {
	var in hotel.GuestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	guest, err := s.hotel.CreateGuest(c.Request.Context(), in)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, guest)
}

func (s *Server) listBookings(c *gin.Context) {
	bookings, err := s.hotel.ListBookings(c.Request.Context(), models.BookingStatus(c.Query("status")))
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (s *Server) createBooking(c *gin.Context) {
	var in hotel.BookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, err)
		return
	}
	booking, err := s.hotel.CreateBooking(c.Request.Context(), in)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

func (s *Server) setBookingStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Status models.BookingStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	booking, err := s.hotel.SetBookingStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (s *Server) checkOutBooking(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req struct {
		Total decimal.Decimal `json:"total"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	booking, err := s.hotel.CheckOut(c.Request.Context(), id, req.Total)
	if err != nil {
		apperrors.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}
