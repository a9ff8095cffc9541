package guard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cardami/internal/session"
)

var decisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cardami_guard_decisions_total",
		Help: "Route guard decisions by guard kind and outcome.",
	},
	[]string{"guard", "outcome"},
)

// Kind selects the guard variant for a route group.
type Kind string

const (
	KindPublicOnly   Kind = "public_only"
	KindAuthRequired Kind = "auth_required"
)

// Middleware applies the guard to a gin route. Render lets the handler run;
// Redirect answers 303 See Other; Pending answers 204 No Content so the
// client shows nothing and retries.
func Middleware(kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := session.FromContext(c)
		var d Decision[struct{}]
		if kind == KindPublicOnly {
			d = PublicOnly(st, struct{}{})
		} else {
			d = AuthRequired(st, struct{}{})
		}
		decisionsTotal.WithLabelValues(string(kind), d.Outcome.String()).Inc()

		switch d.Outcome {
		case Render:
			c.Next()
		case Redirect:
			c.Redirect(http.StatusSeeOther, d.Location)
			c.Abort()
		default:
			c.AbortWithStatus(http.StatusNoContent)
		}
	}
}
