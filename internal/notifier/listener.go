package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"fundbridge/internal/domain"
)

const channel = "campaign_updates"

// Broadcaster receives every campaign change event in commit order.
type Broadcaster interface {
	BroadcastCampaignUpdate(update domain.CampaignUpdate)
}

// Listener holds a single dedicated connection for LISTEN, separate from the
// transactional pool, so slow broadcast consumers never contend with
// settlement transactions. The notify_campaign_update trigger publishes on
// every committed change to raised_amount, so even a manual data fix still
// reaches connected viewers.
type Listener struct {
	databaseURL string
	broadcaster Broadcaster
}

func NewListener(databaseURL string, broadcaster Broadcaster) *Listener {
	return &Listener{databaseURL: databaseURL, broadcaster: broadcaster}
}

// Run listens until ctx is cancelled, reconnecting with backoff when the
// connection drops.
func (l *Listener) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warnf("campaign update listener disconnected, retrying in %s", backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return err
	}
	log.Infof("listening for %s notifications", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var update domain.CampaignUpdate
		if err := json.Unmarshal([]byte(notification.Payload), &update); err != nil {
			log.WithError(err).WithField("payload", notification.Payload).
				Warn("dropping malformed campaign update notification")
			continue
		}
		l.broadcaster.BroadcastCampaignUpdate(update)
	}
}
