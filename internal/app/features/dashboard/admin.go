// internal/app/features/dashboard/admin.go
package dashboard

import (
	"context"
	"net/http"

	metricsstore "github.com/dalemusser/storefront/internal/app/store/metrics"
	orderstore "github.com/dalemusser/storefront/internal/app/store/orders"
	productstore "github.com/dalemusser/storefront/internal/app/store/products"
	"github.com/dalemusser/storefront/internal/app/system/authz"
	"github.com/dalemusser/storefront/internal/app/system/jsonutil"
	"github.com/dalemusser/storefront/internal/app/system/pricing"
	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"github.com/dalemusser/storefront/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type adminData struct {
	Counts         metricsstore.Counts `json:"counts"`
	Revenue        float64             `json:"revenue"`
	OrdersByStatus map[string]int64    `json:"orders_by_status"`
	RecentOrders   []models.Order      `json:"recent_orders"`
	LowStock       []models.Product    `json:"low_stock"`
}

// ServeDashboard handles GET /api/admin/dashboard.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	_, uname, _, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	orders := orderstore.New(h.DB)

	revenue, err := orders.Revenue(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard revenue failed", err, "")
		return
	}
	byStatus, err := orders.CountByStatus(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard status counts failed", err, "")
		return
	}
	recent, err := orders.Recent(ctx, recentOrdersLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard recent orders failed", err, "")
		return
	}
	low, err := productstore.New(h.DB).LowStock(ctx, LowStockThreshold, lowStockLimit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "dashboard low stock failed", err, "")
		return
	}

	data := adminData{
		Counts:         metricsstore.FetchDashboardCounts(ctx, h.DB),
		Revenue:        pricing.Float(decimal.NewFromFloat(revenue).Round(2)),
		OrdersByStatus: byStatus,
		RecentOrders:   recent,
		LowStock:       low,
	}

	h.Log.Debug("admin dashboard served", zap.String("user", uname))
	jsonutil.OK(w, data)
}
