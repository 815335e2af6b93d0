package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"brigade/internal/kds"
	"brigade/internal/models"
	"brigade/internal/monitoring"
	"brigade/internal/realtime"

	"github.com/gin-gonic/gin"
)

// OrderService is the slice of the order store the API exposes.
type OrderService interface {
	ListOrders(ctx context.Context, q models.ListQuery) ([]models.KitchenOrder, error)
	CreateOrder(ctx context.Context, req models.CreateOrderRequest) (uint, error)
	UpdateItemStatus(ctx context.Context, itemID uint, action models.ItemAction) (*models.KitchenOrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status models.OrderStatus, skipItemUpdate bool) (*models.KitchenOrder, error)
}

// Server wires the order store and the display hub to HTTP.
type Server struct {
	Router  *gin.Engine
	orders  OrderService
	hub     *realtime.Hub
	monitor *monitoring.Monitor
	secret  string
}

// NewServer builds the router. hub and monitor may be nil; an empty jwtSecret
// leaves /api open.
func NewServer(orders OrderService, hub *realtime.Hub, monitor *monitoring.Monitor, jwtSecret string) *Server {
	s := &Server{
		Router:  gin.Default(),
		orders:  orders,
		hub:     hub,
		monitor: monitor,
		secret:  jwtSecret,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.Health)
	if s.hub != nil {
		s.Router.GET("/ws", s.hub.ServeWS)
	}

	api := s.Router.Group("/api")
	if s.secret != "" {
		api.Use(AuthMiddleware(s.secret))
	}
	{
		api.GET("/kds-orders", s.ListOrders)
		api.POST("/kds-order", s.CreateOrder)
		api.POST("/kds-items/:id/:action", s.UpdateItemStatus)
		api.POST("/kds-orders/:id/:action", s.UpdateOrderStatus)
	}
}

// Health reports liveness and uptime.
func (s *Server) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.monitor != nil {
		resp["uptime"] = int64(s.monitor.Uptime().Seconds())
	}
	if s.hub != nil {
		resp["displays"] = s.hub.Count()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListOrders(c *gin.Context) {
	var q models.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders, err := s.orders.ListOrders(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (s *Server) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	id, err := s.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "kitchen_order_id": id})
}

func (s *Server) UpdateItemStatus(c *gin.Context) {
	itemID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item id"})
		return
	}

	item, err := s.orders.UpdateItemStatus(c.Request.Context(), uint(itemID), models.ItemAction(c.Param("action")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

// UpdateOrderStatus handles /kds-orders/:id/mark-<status>.
func (s *Server) UpdateOrderStatus(c *gin.Context) {
	status, ok := strings.CutPrefix(c.Param("action"), "mark-")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be one of: ready, fulfilled, pending"})
		return
	}
	skip, _ := strconv.ParseBool(c.Query("skipItemUpdate"))

	order, err := s.orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), models.OrderStatus(status), skip)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, kds.ErrItemNotFound), errors.Is(err, kds.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case kds.IsClientError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request cancelled"})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
