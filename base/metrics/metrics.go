// Package metrics wraps datadog-go to facilitate metric recording.
// Naming convention:
// - Internal process time: *.time
// - Error: *.err
// - Counter: plain key
package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/spf13/viper"

	"github.com/x-xyz/settlement/base/log"
)

const (
	// ddRate is the rate to pass metrics to the datadog agent. 1 means always
	ddRate = 1
	// buffer this many counters before flushing to the statsd agent
	bufferMetrics = 10
	ddPort        = 8125
)

var (
	initOnce = sync.Once{}
	client   statsCli
)

type statsCli interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Count(name string, value int64, tags []string, rate float64) error
	Histogram(name string, value float64, tags []string, rate float64) error
	TimeInMilliseconds(name string, value float64, tags []string, rate float64) error
}

// Ender provides interface for BumpTime
type Ender interface {
	End()
}

// Service provides interface for metrics
type Service interface {
	BumpAvg(key string, val float64, tags ...string)
	BumpSum(key string, val float64, tags ...string)
	BumpHistogram(key string, val float64, tags ...string)
	BumpTime(key string, tags ...string) Ender
}

func initClient() {
	host := viper.GetString("datadog_host")
	if host == "" {
		// no agent configured, keep metrics observable through logs
		client = &logClient{}
		return
	}
	addr := fmt.Sprintf("%s:%d", host, ddPort)
	cli, err := statsd.NewBuffered(addr, bufferMetrics)
	if err != nil {
		log.Log().WithFields(log.Fields{"addr": addr, "err": err}).Panic("can't talk to datadog agent")
	}
	client = cli
}

// New creates a metric client with package name as prefix
func New(pkgName string) Service {
	return &metrics{
		pkgName: pkgName,
		tags: []string{
			// using host removes all tags associated with host
			"host:",
			"env:" + viper.GetString("env_name"),
			"app:" + viper.GetString("app_name"),
		},
	}
}

type metrics struct {
	pkgName string
	tags    []string
}

func (mt *metrics) BumpAvg(key string, val float64, tags ...string) {
	initOnce.Do(initClient)
	client.Gauge(mt.pkgName+"."+key, val, append(mt.tags, tags...), ddRate)
}

func (mt *metrics) BumpSum(key string, val float64, tags ...string) {
	initOnce.Do(initClient)
	client.Count(mt.pkgName+"."+key, int64(val), append(mt.tags, tags...), ddRate)
}

func (mt *metrics) BumpHistogram(key string, val float64, tags ...string) {
	initOnce.Do(initClient)
	client.Histogram(mt.pkgName+"."+key, val, append(mt.tags, tags...), ddRate)
}

func (mt *metrics) BumpTime(key string, tags ...string) Ender {
	initOnce.Do(initClient)
	return &timeTracker{
		key:   mt.pkgName + "." + key,
		tags:  append(mt.tags, tags...),
		start: time.Now(),
	}
}

type timeTracker struct {
	key   string
	tags  []string
	start time.Time
}

func (t *timeTracker) End() {
	elapsed := float64(time.Since(t.start) / time.Millisecond)
	client.TimeInMilliseconds(t.key, elapsed, t.tags, ddRate)
}
