package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Phantom-bronze/UserModule/internal/common/config"
)

type Metrics struct {
	registry   *prometheus.Registry
	namespace  string
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec
	loginCnt   *prometheus.CounterVec
	heartbeats prometheus.Counter
	linkCnt    *prometheus.CounterVec
	invExpired prometheus.Counter
	devOffline prometheus.Counter
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	loginCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "auth_logins_total"}, []string{"result"})
	heartbeats := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "device_heartbeats_total"})
	linkCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "device_links_total"}, []string{"result"})
	invExpired := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "invitations_expired_total"})
	devOffline := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "devices_marked_offline_total"})
	r.MustRegister(loginCnt, heartbeats, linkCnt, invExpired, devOffline)

	return &Metrics{
		registry:   r,
		namespace:  ns,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		httpInfl:   httpInfl,
		loginCnt:   loginCnt,
		heartbeats: heartbeats,
		linkCnt:    linkCnt,
		invExpired: invExpired,
		devOffline: devOffline,
	}
}

func (m *Metrics) LoginAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.loginCnt.WithLabelValues(result).Inc()
}

func (m *Metrics) Heartbeat() {
	m.heartbeats.Inc()
}

func (m *Metrics) LinkAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.linkCnt.WithLabelValues(result).Inc()
}

func (m *Metrics) InvitationsExpired(n int64) {
	m.invExpired.Add(float64(n))
}

func (m *Metrics) DevicesMarkedOffline(n int) {
	m.devOffline.Add(float64(n))
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
