package metrics

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the registered collectors to a Prometheus pushgateway. The CLI exits
// right after an operation, so there is nothing to scrape.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	MustRegister()
	p := push.New(url, job).Gatherer(prometheus.DefaultGatherer)
	if host, err := os.Hostname(); err == nil {
		p = p.Grouping("instance", host)
	}
	return p.AddContext(ctx)
}
