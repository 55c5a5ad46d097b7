package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency      = metric.NewHistogram("1m1s")
	VectorsSentPerSecond = metric.NewCounter("10s1s")
	VectorsRecvPerSecond = metric.NewCounter("10s1s")
	SentBytesPerSecond   = metric.NewCounter("10s1s")
	RecvBytesPerSecond   = metric.NewCounter("10s1s")
	Evictions            = metric.NewCounter("1h1m")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("ripple:VectorsSent/s", VectorsSentPerSecond)
	expvar.Publish("ripple:VectorsRecv/s", VectorsRecvPerSecond)
	expvar.Publish("ripple:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("ripple:RecvBytes/s", RecvBytesPerSecond)
	expvar.Publish("ripple:Evictions", Evictions)
	expvar.Publish("ripple:DispatchLatency (µs)", DispatchLatency)
}
