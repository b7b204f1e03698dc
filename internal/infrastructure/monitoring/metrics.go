package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	EligibilityDecisions *prometheus.CounterVec
	LoansIssued          prometheus.Counter
	LoanAmountIssued     prometheus.Counter
	CustomersRegistered  prometheus.Counter
	IngestedRows         *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		EligibilityDecisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_eligibility_decisions_total",
				Help: "Eligibility decisions by outcome.",
			},
			[]string{"outcome"},
		),
		LoansIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_engine_loans_issued_total",
				Help: "Total number of loans issued.",
			},
		),
		LoanAmountIssued: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_engine_loan_amount_issued_total",
				Help: "Sum of principal issued across all loans.",
			},
		),
		CustomersRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "loan_engine_customers_registered_total",
				Help: "Total number of customers registered through the API.",
			},
		),
		IngestedRows: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_engine_ingested_rows_total",
				Help: "Spreadsheet rows processed by the ingestion job.",
			},
			[]string{"entity", "result"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

// ObserveQuery returns a func that records the query duration once the error is known.
//
//	done := monitoring.ObserveQuery("FindByID")
//	defer func() { done(err) }()
func ObserveQuery(queryName string) func(err error) {
	start := time.Now()
	return func(err error) {
		status := "success"
		if err != nil {
			status = "error"
		}
		RecordDBQuery(queryName, status, time.Since(start))
	}
}

func RecordEligibilityDecision(outcome string) {
	Business.EligibilityDecisions.WithLabelValues(outcome).Inc()
}

func RecordLoanIssued(amount float64) {
	Business.LoansIssued.Inc()
	Business.LoanAmountIssued.Add(amount)
}

func RecordCustomerRegistered() {
	Business.CustomersRegistered.Inc()
}

func RecordIngestedRow(entity, result string) {
	Business.IngestedRows.WithLabelValues(entity, result).Inc()
}
