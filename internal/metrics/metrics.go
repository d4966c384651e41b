// Package metrics exposes ledger and HTTP counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

const namespace = "payda"

// Collector records ledger events and HTTP traffic on its own registry.
// It implements ledger.Recorder.
type Collector struct {
	registry *prometheus.Registry

	donationsTotal     prometheus.Counter
	donatedAmount      prometheus.Counter
	transfersTotal     prometheus.Counter
	transferredAmount  prometheus.Counter
	redemptionsTotal   prometheus.Counter
	redeemedAmount     prometheus.Counter
	backflowAmount     prometheus.Counter
	redemptionRejected *prometheus.CounterVec
	couponsMinted      *prometheus.CounterVec
	ruleResults        *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector builds a collector with Go runtime and process collectors attached.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.donationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "donations_total", Help: "Committed donations",
	})
	c.donatedAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "donated_amount_total", Help: "Sum of committed donation amounts",
	})
	c.transfersTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "transfers_total", Help: "Committed peer transfers",
	})
	c.transferredAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "transferred_amount_total", Help: "Sum of committed transfer amounts",
	})
	c.redemptionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "redemptions_total", Help: "Committed coupon redemptions",
	})
	c.redeemedAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "redeemed_amount_total", Help: "Face value paid to merchants",
	})
	c.backflowAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "redemption_backflow_amount_total", Help: "Redemption backflow routed to needs",
	})
	c.redemptionRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "redemptions_rejected_total", Help: "Rejected redemptions by reason",
	}, []string{"reason"})
	c.couponsMinted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "coupons_minted_total", Help: "Minted coupons by source",
	}, []string{"source"})
	c.ruleResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "auto_donation_rules_total", Help: "Processed auto-donation rules by outcome",
	}, []string{"status"})

	c.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "http_requests_total", Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})
	c.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.donationsTotal, c.donatedAmount,
		c.transfersTotal, c.transferredAmount,
		c.redemptionsTotal, c.redeemedAmount, c.backflowAmount, c.redemptionRejected,
		c.couponsMinted, c.ruleResults,
		c.httpRequestsTotal, c.httpRequestDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func amount(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// DonationCommitted implements ledger.Recorder.
func (c *Collector) DonationCommitted(value decimal.Decimal, _ int) {
	c.donationsTotal.Inc()
	c.donatedAmount.Add(amount(value))
}

// TransferCommitted implements ledger.Recorder.
func (c *Collector) TransferCommitted(value decimal.Decimal) {
	c.transfersTotal.Inc()
	c.transferredAmount.Add(amount(value))
}

// RedemptionCommitted implements ledger.Recorder.
func (c *Collector) RedemptionCommitted(value, backflow decimal.Decimal) {
	c.redemptionsTotal.Inc()
	c.redeemedAmount.Add(amount(value))
	c.backflowAmount.Add(amount(backflow))
}

// RedemptionRejected implements ledger.Recorder.
func (c *Collector) RedemptionRejected(reason string) {
	c.redemptionRejected.WithLabelValues(reason).Inc()
}

// CouponsMinted implements ledger.Recorder.
func (c *Collector) CouponsMinted(source string, n int) {
	if n <= 0 {
		return
	}
	c.couponsMinted.WithLabelValues(source).Add(float64(n))
}

// RuleRunCompleted implements ledger.Recorder.
func (c *Collector) RuleRunCompleted(succeeded, failed int) {
	c.ruleResults.WithLabelValues("success").Add(float64(succeeded))
	c.ruleResults.WithLabelValues("failed").Add(float64(failed))
}

// Middleware records request counts and latency per route.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() gin.HandlerFunc {
	handler := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
	return func(ctx *gin.Context) {
		handler.ServeHTTP(ctx.Writer, ctx.Request)
	}
}
