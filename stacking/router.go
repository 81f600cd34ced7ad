package stacking

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"

	"github.com/chainpoint/stacking-api/util"
)

// NewRouter : routes with per-IP rate limits, the broadcast route gets its own stricter quota
func NewRouter(app *StackingApplication) (*mux.Router, error) {
	apiStore, err := memstore.New(65536)
	if err != nil {
		return nil, err
	}
	stackStore, err := memstore.New(65536)
	if err != nil {
		return nil, err
	}
	apiQuota := throttled.RateQuota{MaxRate: throttled.PerSec(app.config.APIRate), MaxBurst: app.config.APIBurst}
	stackQuota := throttled.RateQuota{MaxRate: throttled.PerMin(app.config.StackRate), MaxBurst: app.config.StackBurst}
	apiLimiter, err := throttled.NewGCRARateLimiter(apiStore, apiQuota)
	if err != nil {
		return nil, err
	}
	stackLimiter, err := throttled.NewGCRARateLimiter(stackStore, stackQuota)
	if err != nil {
		return nil, err
	}

	apiRateLimiter := throttled.HTTPRateLimiter{
		RateLimiter: apiLimiter,
		VaryBy:      &throttled.VaryBy{RemoteAddr: true},
	}
	stackRateLimiter := throttled.HTTPRateLimiter{
		RateLimiter: stackLimiter,
		VaryBy:      &throttled.VaryBy{RemoteAddr: true},
	}

	r := mux.NewRouter()
	r.Use(app.requestLogger, app.blocklist)
	r.Handle("/", apiRateLimiter.RateLimit(http.HandlerFunc(app.HomeHandler)))
	r.Handle("/info", apiRateLimiter.RateLimit(http.HandlerFunc(app.InfoHandler))).Methods(http.MethodGet)
	r.Handle("/user", apiRateLimiter.RateLimit(http.HandlerFunc(app.UserHandler))).Methods(http.MethodGet)
	r.Handle("/eligible", apiRateLimiter.RateLimit(http.HandlerFunc(app.EligibleHandler))).Methods(http.MethodGet)
	r.Handle("/stack", apiRateLimiter.RateLimit(http.HandlerFunc(app.StackPrepareHandler))).Methods(http.MethodGet)
	r.Handle("/stack", stackRateLimiter.RateLimit(http.HandlerFunc(app.StackSubmitHandler))).Methods(http.MethodPost)
	r.Handle("/stack/{id}", apiRateLimiter.RateLimit(http.HandlerFunc(app.StackStatusHandler))).Methods(http.MethodGet)
	r.Handle("/stacker-info", apiRateLimiter.RateLimit(http.HandlerFunc(app.StackerInfoHandler))).Methods(http.MethodGet)
	r.Handle("/status", apiRateLimiter.RateLimit(http.HandlerFunc(app.StatusHandler))).Methods(http.MethodGet)
	return r, nil
}

// requestLogger tags every request with an X-Request-Id and logs it once served
func (app *StackingApplication) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", requestID)
		start := time.Now()
		next.ServeHTTP(w, r)
		app.logger.Info("Served request", "method", r.Method, "path", r.URL.Path,
			"ip", util.GetClientIP(r), "request_id", requestID, "took", time.Since(start).String())
	})
}

// blocklist rejects clients listed in ip_blocklist.txt
func (app *StackingApplication) blocklist(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := util.GetClientIP(r)
		if util.ArrayContains(app.config.IPBlockList, ip) {
			app.logger.Info("ip unauthorized", "ip", ip)
			respondJSON(w, http.StatusForbidden, map[string]interface{}{"error": "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
