package transaction

import (
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

var (
    writerAttempts = promauto.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "ledger",
            Name:      "writer_attempts_total",
            Help:      "Transaction writer submissions by outcome",
        },
        []string{"outcome"},
    )
    writerRetries = promauto.NewCounter(
        prometheus.CounterOpts{
            Namespace: "ledger",
            Name:      "writer_retries_total",
            Help:      "Serializable transactions rerun after a serialization failure",
        },
    )
)
