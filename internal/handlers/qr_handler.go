package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/raffleworks/rafflet/internal/helpers"
	"github.com/raffleworks/rafflet/internal/ledger"
	"github.com/raffleworks/rafflet/internal/middleware"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// TicketQR serves a PNG QR code proving ownership of an issued ticket.
// The payload carries the ticket number, owner and an HMAC over both, so
// the draw organizer can verify entries offline.
func TicketQR(c *gin.Context) {
	number, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil || number <= 0 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid ticket number.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	store := ledger.NewStore(db.(*gorm.DB))

	ticket, err := store.TicketByNumber(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		logrus.WithError(err).WithField("number", number).Error("ticket lookup failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error loading ticket.")
		return
	}

	cfg := middleware.GetRaffleConfig(c)
	if cfg == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Server configuration not found.")
		return
	}

	signature := helpers.SignTicket(ticket.Number, ticket.OwnerID, cfg.SigningSecret)
	payload := fmt.Sprintf("ticket:%d;owner:%s;signature:%s", ticket.Number, ticket.OwnerID, signature)

	qrImage, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}
