package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/marcus-crane/crooner/cache"
	"github.com/marcus-crane/crooner/tokens"
)

// SetupInBackground schedules the housekeeping jobs: sweeping stale SVG
// responses and pruning expired token cache entries. Both caches already
// ignore stale entries on read so these only bound memory over time.
func SetupInBackground(responses *cache.ResponseCache, manager *tokens.Manager) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)

	s.Every(1).Minutes().Do(responses.Sweep)
	s.Every(5).Minutes().Do(manager.Prune)

	log.Print("Jobs scheduled. Scheduler not running yet.")

	return s
}
