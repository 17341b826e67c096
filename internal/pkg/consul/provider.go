package consul

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/revu/internal/pkg/transcriber"
	tapi "github.com/airenas/revu/internal/pkg/transcriber/api"
	"github.com/hashicorp/consul/api"
	"go.uber.org/multierr"
)

// meta keys a transcriber instance must publish on its consul registration
const (
	uploadKey    = "uploadURL"
	statusKey    = "statusURL"
	cleanKey     = "cleanURL"
	isHTTPSSLKey = "HTTPSSL"
	priorityKey  = "priority"
)

// Provider maintains the set of healthy transcriber instances seen in consul.
// One audio submission sticks to the instance it started with, a new
// submission may land on any healthy one
type Provider struct {
	consul  *api.Client
	srvName string

	lock  *sync.RWMutex
	trans []*trWrap
}

type trWrap struct {
	real     tapi.Transcriber
	srv      string
	key      string
	priority float64
}

func NewProvider(cfg *api.Config, srvNameInConsul string) (*Provider, error) {
	c, err := api.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if srvNameInConsul == "" {
		return nil, fmt.Errorf("no srv name")
	}
	return newProvider(c, srvNameInConsul), nil
}

func newProvider(c *api.Client, srvNameInConsul string) *Provider {
	goapp.Log.Info().Str("service", srvNameInConsul).Msg("cfg: srv name in consul")
	return &Provider{consul: c, srvName: srvNameInConsul, lock: &sync.RWMutex{}, trans: make([]*trWrap, 0)}
}

// Get returns a transcriber and its instance name. A known srv is always
// preferred. With allowNew false only srv itself qualifies, a vanished
// instance is an error so the caller can fail the ongoing work
func (c *Provider) Get(srv string, allowNew bool) (tapi.Transcriber, string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if t := c.find(srv); t != nil {
		return t.real, t.srv, nil
	}
	if !allowNew {
		return nil, "", fmt.Errorf("no active srv `%s`", srv)
	}
	if len(c.trans) == 0 {
		return nil, "", nil
	}
	if len(c.trans) == 1 {
		t := c.trans[0]
		return t.real, t.srv, nil
	}
	i, err := pickByWeight(c.trans)
	if err != nil {
		return nil, "", fmt.Errorf("can't select transcriber: %v", err)
	}
	if i < len(c.trans) {
		t := c.trans[i]
		return t.real, t.srv, nil
	}
	return nil, "", nil
}

func (c *Provider) find(srv string) *trWrap {
	for _, t := range c.trans {
		if t.srv == srv {
			return t
		}
	}
	return nil
}

// pickByWeight draws an index with probability proportional to priority
func pickByWeight(trWraps []*trWrap) (int, error) {
	sum := 0.0
	for _, tr := range trWraps {
		sum += tr.priority
	}
	if sum < 0.1 {
		return 0, fmt.Errorf("wrong priority sum found %f", sum)
	}
	rnd := rand.Float64() * sum
	acc := 0.0
	for i, tr := range trWraps {
		acc += tr.priority
		if acc > rnd {
			return i, nil
		}
	}
	return len(trWraps), nil
}

// StartRegistryLoop polls consul health until ctx is done.
// The returned channel closes after the loop exits
func (c *Provider) StartRegistryLoop(ctx context.Context, checkInterval time.Duration) (<-chan struct{}, error) {
	goapp.Log.Info().Msgf("Starting consul service check every %v", checkInterval)
	res := make(chan struct{}, 2)
	go func() {
		defer close(res)
		c.serviceLoop(ctx, checkInterval)
	}()
	return res, nil
}

func (c *Provider) serviceLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	// first pass without waiting for the ticker
	if err := c.check(ctx); err != nil {
		goapp.Log.Error().Err(err).Send()
	}
	for {
		select {
		case <-ticker.C:
			if err := c.check(ctx); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		case <-ctx.Done():
			goapp.Log.Info().Msgf("Stopped consul timer service")
			return
		}
	}
}

func (c *Provider) check(ctx context.Context) error {
	ctxInt, cf := context.WithTimeout(ctx, time.Second*5)
	defer cf()
	srvs, _, err := c.consul.Health().Service(c.srvName, "", true, (&api.QueryOptions{}).WithContext(ctxInt))
	if err != nil {
		return fmt.Errorf("can't invoke consul: %v", err)
	}
	return c.updateSrv(srvs)
}

// updateSrv reconciles the kept instances with one consul health response.
// An instance survives only if its address and meta are unchanged,
// anything else is rebuilt from scratch
func (c *Provider) updateSrv(srvs []*api.ServiceEntry) error {
	goapp.Log.Info().Msgf("got %d services from consul", len(srvs))
	c.lock.Lock()
	defer c.lock.Unlock()
	ms := map[string]*api.ServiceEntry{}
	for _, s := range srvs {
		ms[addrKey(s)] = s
	}
	kept := []*trWrap{}
	for _, s := range c.trans {
		if v, ok := ms[s.srv]; ok && s.key == metaSignature(v) {
			kept = append(kept, s)
			delete(ms, s.srv)
			continue
		}
		goapp.Log.Warn().Str("service", s.srv).Msgf("dropped transcriber")
	}
	if len(kept) == len(c.trans) && len(ms) == 0 {
		return nil
	}
	c.trans = kept
	var err error
	for v, k := range ms {
		tr, errInt := wrapEntry(v, k)
		if errInt != nil {
			err = multierr.Append(err, errInt)
			continue
		}
		c.trans = append(c.trans, tr)
		goapp.Log.Info().Str("service", v).Float64("priority", tr.priority).Msg("added transcriber")
	}
	return err
}

func wrapEntry(v string, s *api.ServiceEntry) (*trWrap, error) {
	tr, err := transcriber.NewClient(metaURL(s, uploadKey), metaURL(s, statusKey), metaURL(s, cleanKey))
	if err != nil {
		return nil, fmt.Errorf("can't init transcriber for %s: %v", v, err)
	}
	priority, err := instancePriority(s)
	if err != nil {
		return nil, fmt.Errorf("can't init transcriber for %s: %v", v, err)
	}
	return &trWrap{real: tr, srv: v, key: metaSignature(s), priority: priority}, nil
}

func instancePriority(s *api.ServiceEntry) (float64, error) {
	v, ok := s.Service.Meta[priorityKey]
	if !ok {
		return 1, nil
	}
	res, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("can't parse priority '%s': %v", v, err)
	}
	if res < 0.5 || res > 50 {
		return 0, fmt.Errorf("wrong priority value '%f', not in [0.5, 50]", res)
	}
	return res, nil
}

func metaURL(s *api.ServiceEntry, key string) string {
	v, ok := s.Service.Meta[key]
	if !ok {
		return ""
	}
	ssl := ""
	if isSSL, ok := s.Service.Meta[isHTTPSSLKey]; ok {
		if boolValue, err := strconv.ParseBool(isSSL); err == nil && boolValue {
			ssl = "s"
		}
	}
	return fmt.Sprintf("http%s://%s:%d/%s", ssl, s.Service.Address, s.Service.Port, v)
}

func addrKey(s *api.ServiceEntry) string {
	return fmt.Sprintf("%s:%d", s.Service.Address, s.Service.Port)
}

// metaSignature folds all known meta values into one comparable string
func metaSignature(s *api.ServiceEntry) string {
	res := strings.Builder{}
	for _, key := range [...]string{uploadKey, statusKey, cleanKey, isHTTPSSLKey, priorityKey} {
		v, ok := s.Service.Meta[key]
		if ok {
			res.WriteString(key + ":" + v + ",")
		}
	}
	return res.String()
}
