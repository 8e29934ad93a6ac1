package util

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServerPort = 2181

	randomIDLenth = 8
)

// GetServerAddress normalizes a user supplied server address into
// host:port form.
func GetServerAddress(address string) (string, error) {
	address = strings.TrimPrefix(address, "tcp://")
	address = strings.TrimPrefix(address, "zk://")
	address = strings.TrimSuffix(address, "/")
	if address == "" {
		return "", fmt.Errorf("empty server address")
	}

	host, strPort, err := net.SplitHostPort(address)
	if err != nil {
		// no port given
		if strings.Count(address, ":") > 1 && !strings.HasPrefix(address, "[") {
			return net.JoinHostPort(address, strconv.Itoa(DefaultServerPort)), nil
		}
		return net.JoinHostPort(strings.Trim(address, "[]"), strconv.Itoa(DefaultServerPort)), nil
	}

	port, err := strconv.Atoi(strPort)
	if err != nil || port <= 0 || port > math.MaxUint16 {
		return "", fmt.Errorf("invalid port in address %s", address)
	}
	return net.JoinHostPort(host, strPort), nil
}

func UUID() string {
	return uuid.New().String()
}

func RandomID() string {
	return UUID()[:randomIDLenth]
}

// Once runs a function until it succeeds once. Unlike sync.Once a failed
// attempt leaves the Once armed.
type Once struct {
	m    sync.Mutex
	done bool
}

func (o *Once) Do(f func() error) error {
	o.m.Lock()
	defer o.m.Unlock()
	if o.done {
		return nil
	}
	if err := f(); err != nil {
		return err
	}
	o.done = true
	return nil
}

// Bench issues count requests through do and reports the result in the
// unit selected by benchType, which is "<op>-iops" or "<op>-latency".
// tick, when not nil, is called after every completed request.
func Bench(benchType string, thread, count int, do func() error, tick func()) (output string, err error) {
	benchTypeInList := strings.Split(benchType, "-")
	if len(benchTypeInList) != 2 ||
		(benchTypeInList[0] != "ping" && benchTypeInList[0] != "exists" && benchTypeInList[0] != "get") ||
		(benchTypeInList[1] != "iops" && benchTypeInList[1] != "latency") {
		return "", fmt.Errorf("invalid bench type %s", benchType)
	}
	if count <= 0 {
		return "", fmt.Errorf("invalid request count %d", count)
	}
	if thread <= 0 {
		thread = 1
	}

	if thread != 1 && benchTypeInList[1] == "latency" {
		logrus.Warnf("Using single thread for latency related benchmark")
		thread = 1
	}
	if thread > count {
		thread = count
	}

	duration, err := requestsWithMultipleThread(thread, count, do, tick)
	if err != nil {
		return "", err
	}

	switch benchTypeInList[1] {
	case "iops":
		res := int(float64(count) / float64(duration) * float64(time.Second))
		output = fmt.Sprintf("%s %v/s, requests %v, duration %vs, thread count %v", benchType, res, count, duration.Seconds(), thread)
	case "latency":
		res := float64(duration) / float64(time.Microsecond) / float64(count)
		output = fmt.Sprintf("%s %.2fus, requests %v, duration %vs, thread count %v", benchType, res, count, duration.Seconds(), thread)
	}
	return output, nil
}

func requestsWithMultipleThread(thread, count int, do func() error, tick func()) (duration time.Duration, err error) {
	lock := sync.Mutex{}

	perThread := int(math.Ceil(float64(count) / float64(thread)))

	wg := sync.WaitGroup{}
	wg.Add(thread)

	startTime := time.Now()
	for i := 0; i < thread; i++ {
		start := i * perThread
		end := start + perThread
		if end > count {
			end = count
		}
		go func() {
			defer wg.Done()
			for cnt := start; cnt < end; cnt++ {
				if reqErr := do(); reqErr != nil {
					lock.Lock()
					err = reqErr
					lock.Unlock()
					return
				}
				if tick != nil {
					tick()
				}
			}
		}()
	}
	wg.Wait()
	duration = time.Since(startTime)

	return
}
