// Package uptime keeps a hosted instance warm by calling its own health
// endpoint on an interval.
package uptime

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/luckydraw/go/clients"
	"github.com/rs/zerolog/log"
)

const HealthPath = "/api/v1/health"

type Pinger struct {
	client   *clients.BaseClient
	interval time.Duration
	clock    clockwork.Clock
}

func NewPinger(apiHost string, interval time.Duration, clock clockwork.Clock) *Pinger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	client := clients.NewBaseClient(apiHost)
	client.SetHeader("User-Agent", "luckydraw-uptime")
	client.SetTimeout(interval / 2)
	return &Pinger{client: client, interval: interval, clock: clock}
}

// Run pings every interval until ctx is done. Failures are logged only.
func (p *Pinger) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	log.Info().
		Str("target", p.client.BaseURL()+HealthPath).
		Dur("interval", p.interval).
		Msg("uptime pinger started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := p.Ping(ctx); err != nil {
				log.Warn().Err(err).Msg("uptime ping failed")
			}
		}
	}
}

func (p *Pinger) Ping(ctx context.Context) error {
	_, err := p.client.Get(ctx, HealthPath)
	if err == nil {
		log.Debug().Msg("uptime ping ok")
	}
	return err
}
