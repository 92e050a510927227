package restapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// APIPortfolioResponse is the response body of the portfolio endpoint.
type APIPortfolioResponse struct {
	Data struct {
		Portfolio *entity.WalletPortfolio `json:"portfolio"`
	} `json:"data"`
	ServiceErrors []entity.PortfolioError `json:"service_errors,omitempty"`
	StatusMessage string                  `json:"status_message"`
}

// PortfolioHandler serves portfolio valuations over HTTP.
type PortfolioHandler struct {
	portfolioService port.PortfolioService
	requestTimeout   time.Duration
	logger           *zap.Logger
}

// NewPortfolioHandler creates a PortfolioHandler. A zero requestTimeout leaves the request context as is.
func NewPortfolioHandler(ps port.PortfolioService, requestTimeout time.Duration, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: ps,
		requestTimeout:   requestTimeout,
		logger:           logger.Named("PortfolioHandler"),
	}
}

// GetPortfolioHandler values the wallet in the walletAddress path parameter.
func (h *PortfolioHandler) GetPortfolioHandler(c *gin.Context) {
	walletParam := c.Param("walletAddress")
	if !common.IsHexAddress(walletParam) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "walletAddress must be a hex address"})
		return
	}

	ctx := c.Request.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	portfolio, err := h.portfolioService.GetPortfolio(ctx, common.HexToAddress(walletParam))
	if portfolio == nil {
		h.logger.Error("Failed to value portfolio", zap.String("wallet", walletParam), zap.Error(err))
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		case errors.Is(err, entity.ErrTransport):
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": "failed to value portfolio"})
		return
	}

	var response APIPortfolioResponse
	response.Data.Portfolio = portfolio
	response.ServiceErrors = portfolio.Failures

	switch {
	case errors.Is(err, entity.ErrUnpricedToken):
		response.StatusMessage = "Portfolio retrieved. Some entries could not be priced."
	case len(portfolio.Failures) > 0:
		response.StatusMessage = "Portfolio retrieved. Some entries could not be read."
	default:
		response.StatusMessage = "Portfolio retrieved successfully."
	}

	c.JSON(http.StatusOK, response)
}
