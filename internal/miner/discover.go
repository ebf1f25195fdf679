package miner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Makes recognised by DetectMake.
const (
	MakeAntminer   = "AntMiner"
	MakeWhatsminer = "WhatsMiner"
	MakeAvalon     = "Avalon"
	MakeBraiins    = "Braiins"
	MakeLuxOS      = "LuxOS"
)

// Handle is a device that answered the discovery probe.
type Handle struct {
	Address string
	Make    string
	Version Response
}

// Telemetry is everything Fetch could read from one device. Sections the device did
// not answer are nil.
type Telemetry struct {
	Address    string
	Make       string
	Version    Response
	Summary    Response
	Pools      Response
	Devs       Response
	Stats      Response
	DevDetails Response
	// System is the Antminer web get_system_info payload.
	System map[string]any
	// Blink is the Antminer fault light state.
	Blink *bool
}

// Options configures a Discoverer.
type Options struct {
	Port         int
	Timeout      time.Duration
	Concurrency  int
	WebPort      int
	WebUser      string
	WebPassword  string
	MinPrefixLen int // widest accepted subnet; 0 means DefaultMinPrefixLen
}

// Discoverer finds miners on a subnet and reads their telemetry over the cgminer API.
type Discoverer struct {
	rpc         *RPCClient
	web         *WebClient
	concurrency int
	minPrefix   int
}

// NewDiscoverer creates a Discoverer. The web client is only built when a web user is set.
func NewDiscoverer(opts Options) *Discoverer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 256
	}
	d := &Discoverer{
		rpc:         NewRPCClient(opts.Port, opts.Timeout),
		concurrency: opts.Concurrency,
		minPrefix:   opts.MinPrefixLen,
	}
	if opts.WebUser != "" {
		d.web = NewWebClient(opts.WebPort, opts.WebUser, opts.WebPassword, opts.Timeout)
	}
	return d
}

// Enumerate probes every address of subnet concurrently. The returned slice follows
// enumeration order and holds nil for addresses that did not answer. Only a malformed
// subnet is an error.
func (d *Discoverer) Enumerate(ctx context.Context, subnet string) ([]*Handle, error) {
	ips, err := ExpandCIDR(subnet, d.minPrefix)
	if err != nil {
		return nil, fmt.Errorf("invalid subnet %q: %w", subnet, err)
	}

	handles := make([]*Handle, len(ips))
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, ip := range ips {
		g.Go(func() error {
			handles[i] = d.probe(ctx, ip)
			return nil
		})
	}
	_ = g.Wait()
	return handles, nil
}

func (d *Discoverer) probe(ctx context.Context, ip string) *Handle {
	resp, err := d.rpc.Command(ctx, ip, "version")
	if err != nil {
		return nil
	}
	return &Handle{Address: ip, Make: DetectMake(resp), Version: resp}
}

// Fetch reads summary, pools, devs, stats and devdetails from the device. A command the
// firmware does not support leaves its section nil; the call only fails when none of
// them could be read.
func (d *Discoverer) Fetch(ctx context.Context, h *Handle) (*Telemetry, error) {
	if h == nil {
		return nil, errors.New("fetch: nil handle")
	}
	t := &Telemetry{Address: h.Address, Make: h.Make, Version: h.Version}

	commands := []struct {
		name string
		dst  *Response
	}{
		{"summary", &t.Summary},
		{"pools", &t.Pools},
		{"devs", &t.Devs},
		{"stats", &t.Stats},
		{"devdetails", &t.DevDetails},
	}

	var lastErr error
	answered := 0
	for _, c := range commands {
		resp, err := d.rpc.Command(ctx, h.Address, c.name)
		if err != nil {
			log.Debug().Err(err).Str("ip", h.Address).Str("command", c.name).Msg("command failed")
			lastErr = err
			continue
		}
		*c.dst = resp
		answered++
	}
	if answered == 0 {
		return nil, fmt.Errorf("fetch %s: %w", h.Address, lastErr)
	}

	if h.Make == MakeAntminer && d.web != nil {
		d.fetchWeb(ctx, t)
	}
	return t, nil
}

func (d *Discoverer) fetchWeb(ctx context.Context, t *Telemetry) {
	var system map[string]any
	if err := d.web.GetJSON(ctx, t.Address, "/cgi-bin/get_system_info.cgi", &system); err != nil {
		log.Debug().Err(err).Str("ip", t.Address).Msg("system info unavailable")
	} else {
		t.System = system
	}

	var blink struct {
		Blink *bool `json:"blink"`
	}
	if err := d.web.GetJSON(ctx, t.Address, "/cgi-bin/get_blink_status.cgi", &blink); err != nil {
		log.Debug().Err(err).Str("ip", t.Address).Msg("blink status unavailable")
	} else {
		t.Blink = blink.Blink
	}
}

// DetectMake identifies the firmware family from a version reply. Unknown firmware
// yields "".
func DetectMake(version Response) string {
	if msg := version.Msg(); msg != nil {
		if _, ok := msg["fw_ver"]; ok {
			return MakeWhatsminer
		}
	}

	row := version.First("VERSION")
	if row == nil {
		return ""
	}
	has := func(key string) bool {
		_, ok := row[key]
		return ok
	}
	typ, _ := row["Type"].(string)
	prod, _ := row["PROD"].(string)

	switch {
	case has("BMMiner") || strings.Contains(strings.ToLower(typ), "antminer"):
		return MakeAntminer
	case has("BTMiner") || has("btminer"):
		return MakeWhatsminer
	case has("LUXminer"):
		return MakeLuxOS
	case has("BOSminer") || has("BOSer"):
		return MakeBraiins
	case strings.Contains(strings.ToLower(prod), "avalon") || has("MM ID0"):
		return MakeAvalon
	default:
		return ""
	}
}
