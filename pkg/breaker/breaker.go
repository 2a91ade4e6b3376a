package breaker

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

var stateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "order_breaker_state",
	Help: "Circuit breaker state per remote dependency (0 closed, 1 half-open, 2 open).",
}, []string{"name"})

type Settings struct {
	// Window is the trailing span the closed-state counts cover, split into Buckets
	// that age out one at a time. Zero keeps counting until the next state change.
	Window              time.Duration `yaml:"window" env-default:"10s"`
	Buckets             uint32        `yaml:"buckets" env-default:"10"`
	Cooldown            time.Duration `yaml:"cooldown" env-default:"10s"`
	HalfOpenProbes      uint32        `yaml:"half_open_probes" env-default:"3"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" env-default:"5"`
	FailureRatio        float64       `yaml:"failure_ratio" env-default:"0.6"`
	MinRequests         uint32        `yaml:"min_requests" env-default:"5"`
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// New builds a breaker for one remote dependency. isSuccessful decides which
// errors count as healthy responses; nil means only a nil error does.
func New(name string, st Settings, logger *zap.Logger, isSuccessful func(error) bool) *Breaker {
	settings := gobreaker.Settings{
		Name:         name,
		MaxRequests:  st.HalfOpenProbes,
		Interval:     st.Window,
		BucketPeriod: bucketPeriod(st),
		Timeout:      st.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if st.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= st.ConsecutiveFailures {
				return true
			}
			if st.MinRequests == 0 || counts.Requests < st.MinRequests {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return st.FailureRatio > 0 && failureRatio >= st.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			stateGauge.WithLabelValues(name).Set(float64(to))

			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isSuccessful,
	}

	stateGauge.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func bucketPeriod(st Settings) time.Duration {
	if st.Window <= 0 {
		return 0
	}

	buckets := st.Buckets
	if buckets == 0 {
		buckets = 10
	}

	return st.Window / time.Duration(buckets)
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func Execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return fn()
	})

	// fn's result is passed through even when err counted as a success
	v, _ := res.(T)
	return v, err
}

// IsOpen reports whether err means the call was rejected without being attempted.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
