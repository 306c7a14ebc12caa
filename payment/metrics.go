package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "galleryflow_payment_claims_total",
	Help: "VerifyAndClaim outcomes.",
}, []string{"outcome"})
