// Package stats collects runtime counters over a buffered channel so hot
// paths never block on bookkeeping.
package stats

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/internal/versioning"
)

// StatType names a counter. The value is the JSON key used for serialization.
type StatType string

const (
	PagesFetched        StatType = "pages_fetched"
	TweetsEnriched      StatType = "tweets_enriched"
	TweetsDropped       StatType = "tweets_dropped"
	CredentialRotations StatType = "credential_rotations"
	PersistenceErrors   StatType = "persistence_errors"
	AccountsSynced      StatType = "accounts_synced"
	SyncErrors          StatType = "sync_errors"
)

// AddStat is the message sent by the rest of the archiver to record counts.
type AddStat struct {
	Type    StatType
	Account string
	Num     uint
}

// globalAccount buckets counters that are not tied to one account.
const globalAccount = "_global"

// Stats is the aggregated counter state.
type Stats struct {
	BootTimeUnix      int64                        `json:"boot_time"`
	LastOperationUnix int64                        `json:"last_operation_time"`
	CurrentTimeUnix   int64                        `json:"current_time"`
	Stats             map[string]map[StatType]uint `json:"stats"`
	Version           string                       `json:"version"`
	sync.Mutex
}

// Collector receives AddStat messages and folds them into Stats.
type Collector struct {
	Stats *Stats
	Chan  chan AddStat
}

// StartCollector starts the goroutine that drains the stats channel.
func StartCollector(bufSize uint) *Collector {
	logrus.Info("Starting stats collector")

	s := &Stats{
		BootTimeUnix: time.Now().Unix(),
		Stats:        make(map[string]map[StatType]uint),
		Version:      versioning.ApplicationVersion,
	}
	ch := make(chan AddStat, bufSize)

	go func() {
		for stat := range ch {
			s.Lock()
			s.LastOperationUnix = time.Now().Unix()
			if _, ok := s.Stats[stat.Account]; !ok {
				s.Stats[stat.Account] = make(map[StatType]uint)
			}
			s.Stats[stat.Account][stat.Type] += stat.Num
			s.Unlock()
			logrus.Debugf("Stats: %s/%s += %d", stat.Account, stat.Type, stat.Num)
		}
	}()

	return &Collector{Stats: s, Chan: ch}
}

// Add records a count for an account. Nil collectors are no-ops so wiring
// stays optional in tests.
func (c *Collector) Add(account string, typ StatType, num uint) {
	if c == nil {
		return
	}
	if account == "" {
		account = globalAccount
	}
	c.Chan <- AddStat{Type: typ, Account: account, Num: num}
}

// AddGlobal records a count not tied to one account.
func (c *Collector) AddGlobal(typ StatType, num uint) {
	c.Add(globalAccount, typ, num)
}

// Json snapshots the stats for the API.
func (c *Collector) Json() ([]byte, error) {
	c.Stats.Lock()
	defer c.Stats.Unlock()
	c.Stats.CurrentTimeUnix = time.Now().Unix()
	return json.Marshal(c.Stats)
}
