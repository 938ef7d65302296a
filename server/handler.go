package server

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rustyeddy/acctdash/dashboard"
	"github.com/rustyeddy/acctdash/pnl"
	"github.com/rustyeddy/acctdash/sparkline"
	"github.com/rustyeddy/acctdash/store"
)

const (
	defaultSparkWidth  = 200
	defaultSparkHeight = 40
)

// Handler serves the dashboard state as JSON.
type Handler struct {
	dash *dashboard.Dashboard
}

func NewHandler(d *dashboard.Dashboard) *Handler {
	return &Handler{dash: d}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/state", h.State)
	rg.GET("/accounts", h.ListAccounts)
	rg.GET("/accounts/:id", h.GetAccount)
	rg.POST("/select/:id", h.Select)
	rg.GET("/pnl", h.PnL)
	rg.GET("/pnl/history", h.History)
	rg.GET("/pnl/sparkline", h.Sparkline)
}

func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, h.dash.State())
}

func (h *Handler) ListAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, h.dash.Store().Snapshot())
}

func (h *Handler) GetAccount(c *gin.Context) {
	a, err := h.dash.Store().Account(c.Param("id"))
	if errors.Is(err, store.ErrUnknownAccount) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) Select(c *gin.Context) {
	id := c.Param("id")
	if err := h.dash.Select(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrUnknownAccount) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": id})
}

func (h *Handler) PnL(c *gin.Context) {
	s := h.dash.State()
	c.JSON(http.StatusOK, gin.H{
		"account":   h.dash.Aggregator().Account(),
		"summary":   s.Summary,
		"freshness": s.Freshness,
		"connected": s.Connected,
	})
}

// History returns the net series, or one symbol's with ?symbol=.
func (h *Handler) History(c *gin.Context) {
	c.JSON(http.StatusOK, h.points(c))
}

func (h *Handler) Sparkline(c *gin.Context) {
	width, err := dimension(c, "width", defaultSparkWidth)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	height, err := dimension(c, "height", defaultSparkHeight)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pts := h.points(c)
	vals := make([]float64, len(pts))
	for i, p := range pts {
		vals[i] = p.Value
	}
	c.JSON(http.StatusOK, gin.H{
		"path":   sparkline.Path(vals, width, height),
		"width":  width,
		"height": height,
		"points": len(vals),
	})
}

func (h *Handler) points(c *gin.Context) []pnl.Point {
	agg := h.dash.Aggregator()
	var pts []pnl.Point
	if sym := c.Query("symbol"); sym != "" {
		pts = agg.SymbolHistory(sym)
	} else {
		pts = agg.History()
	}
	if pts == nil {
		pts = []pnl.Point{}
	}
	return pts
}

func dimension(c *gin.Context, name string, def float64) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, errors.New(name + " must be a positive number")
	}
	return v, nil
}
