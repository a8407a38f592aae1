package client

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/mailnotify/broadcast"
)

const (
	refreshSucceeded = "success"
	refreshFailed    = "failure"
	refreshSkipped   = "skipped"
)

type metrics struct {
	requests *prometheus.CounterVec
	refresh  *prometheus.CounterVec
	signouts *prometheus.CounterVec
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	ret := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mailnotify",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests sent to the backend by method and status code.",
		}, []string{"method", "code"}),
		refresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mailnotify",
			Subsystem: "client",
			Name:      "refresh_total",
			Help:      "Token refresh attempts by outcome.",
		}, []string{"outcome"}),
		signouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mailnotify",
			Subsystem: "client",
			Name:      "signouts_total",
			Help:      "Forced sign-outs by reason.",
		}, []string{"reason"}),
	}
	var err error
	if ret.requests, err = register(registerer, ret.requests); err != nil {
		return nil, err
	}
	if ret.refresh, err = register(registerer, ret.refresh); err != nil {
		return nil, err
	}
	if ret.signouts, err = register(registerer, ret.signouts); err != nil {
		return nil, err
	}
	return ret, nil
}

// register reuses an already registered collector so several clients can share a registry
func register(registerer prometheus.Registerer, vec *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return vec, nil
}

func (m *metrics) observeRequest(method string, code int) {
	if m == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(method, label).Inc()
}

func (m *metrics) observeRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refresh.WithLabelValues(outcome).Inc()
}

func (m *metrics) observeSignOut(reason broadcast.Reason) {
	if m == nil {
		return
	}
	m.signouts.WithLabelValues(string(reason)).Inc()
}
