package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/raffleworks/rafflet/internal/helpers"
	"github.com/raffleworks/rafflet/internal/ledger"
	"github.com/raffleworks/rafflet/internal/middleware"
	"github.com/raffleworks/rafflet/internal/payments"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func Home(c *gin.Context) {
	cfg := middleware.GetRaffleConfig(c)
	prize := ""
	if cfg != nil {
		prize = cfg.PrizeName
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Prize": prize,
	})
}

// BuyTicketsForm returns the quantity form fragment the landing page pulls
// in over htmx.
func BuyTicketsForm(c *gin.Context) {
	c.HTML(http.StatusOK, "ticket-form.html", nil)
}

func CreateCheckoutSession(c *gin.Context) {
	quantity, err := helpers.ParsePositiveInt(c.PostForm("numTickets"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Please enter a valid number of tickets.")
		return
	}

	cfg := middleware.GetRaffleConfig(c)
	provider := middleware.GetPaymentsProvider(c)
	if cfg == nil || provider == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment processing is not available.")
		return
	}

	sessionID := fmt.Sprintf("raffle-%s", uuid.New())
	session, err := provider.CreateSession(c.Request.Context(), payments.CreateSessionParams{
		ReferenceID: sessionID,
		ItemName:    "Raffle Ticket",
		Quantity:    quantity,
		UnitPrice:   cfg.UnitPrice,
		SuccessURL:  fmt.Sprintf("%s/success?session_id=%s", cfg.Domain, sessionID),
		CancelURL:   fmt.Sprintf("%s/cancel", cfg.Domain),
	})
	if err != nil {
		logrus.WithError(err).Error("failed to create checkout session")
		helpers.RespondWithError(c, http.StatusInternalServerError, "An error occurred during payment processing.")
		return
	}

	logrus.WithFields(logrus.Fields{
		"session_id": sessionID,
		"quantity":   quantity,
	}).Info("checkout session created")

	c.Redirect(http.StatusSeeOther, session.URL)
}

func Success(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Session ID is missing.")
		return
	}

	provider := middleware.GetPaymentsProvider(c)
	if provider == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment processing is not available.")
		return
	}

	session, err := provider.RetrieveSession(c.Request.Context(), sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("failed to verify payment")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error processing payment confirmation.")
		return
	}

	if !session.Paid {
		c.Redirect(http.StatusFound, "/cancel")
		return
	}

	cfg := middleware.GetRaffleConfig(c)
	allocator := middleware.GetAllocator(c)
	if cfg == nil || allocator == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}

	// The paid amount must be an exact multiple of the ticket price; a
	// remainder means the session does not belong to this storefront.
	if session.AmountTotal <= 0 || session.AmountTotal%cfg.UnitPrice != 0 {
		logrus.WithFields(logrus.Fields{
			"session_id":   sessionID,
			"amount_total": session.AmountTotal,
		}).Warn("rejected session with inconsistent amount")
		helpers.RespondWithError(c, http.StatusBadRequest, "Payment amount does not match any ticket quantity.")
		return
	}
	quantity := int(session.AmountTotal / cfg.UnitPrice)

	owner := session.PayerEmail
	if owner == "" {
		owner = cfg.FallbackOwnerID
	}

	tickets, err := allocator.Allocate(c.Request.Context(), owner, sessionID, quantity)
	if err != nil {
		if errors.Is(err, ledger.ErrSessionFulfilled) {
			renderExistingFulfillment(c, sessionID)
			return
		}
		logrus.WithError(err).WithField("session_id", sessionID).Error("ticket allocation failed")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error processing payment confirmation.")
		return
	}

	numbers := make([]int64, len(tickets))
	for i, ticket := range tickets {
		numbers[i] = ticket.Number
	}
	c.HTML(http.StatusOK, "success.html", gin.H{
		"Numbers": numbers,
		"First":   numbers[0],
		"Last":    numbers[len(numbers)-1],
	})
}

// renderExistingFulfillment serves a replayed success URL: the tickets
// were already issued, so show the original block instead of allocating a
// second one.
func renderExistingFulfillment(c *gin.Context, sessionID string) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	store := ledger.NewStore(db.(*gorm.DB))

	fulfillment, err := store.FulfillmentBySession(c.Request.Context(), sessionID)
	if err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Error("failed to load fulfilled session")
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error processing payment confirmation.")
		return
	}

	numbers := make([]int64, fulfillment.Quantity)
	for i := range numbers {
		numbers[i] = fulfillment.FirstNumber + int64(i)
	}
	c.HTML(http.StatusOK, "success.html", gin.H{
		"Numbers": numbers,
		"First":   fulfillment.FirstNumber,
		"Last":    fulfillment.LastNumber(),
	})
}

func Cancel(c *gin.Context) {
	c.HTML(http.StatusOK, "cancel.html", nil)
}
