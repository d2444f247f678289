package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/asticode/go-astidvb"
	"golang.org/x/exp/slices"
)

// Channel represents a service as listed by a network
type Channel struct {
	Authority         string `json:"authority,omitempty"`
	Kind              string `json:"kind"`
	LCN               int    `json:"lcn,omitempty"`
	Name              string `json:"name"`
	Network           string `json:"network,omitempty"`
	OriginalNetworkID uint16 `json:"original_network_id"`
	Provider          string `json:"provider,omitempty"`
	ServiceID         uint16 `json:"service_id"`
	TransportStreamID uint16 `json:"transport_stream_id"`
	Visible           bool   `json:"visible"`
}

type channels []*Channel

func serviceKind(t astidvb.ServiceType) string {
	switch {
	case t.IsTelevision():
		return "tv"
	case t.IsRadio():
		return "radio"
	}
	return "other"
}

func newChannel(s *astidvb.Service) *Channel {
	return &Channel{
		Authority:         s.Authority,
		Kind:              serviceKind(s.Type),
		Name:              s.Name,
		OriginalNetworkID: s.OriginalNetworkID,
		Provider:          s.Provider,
		ServiceID:         s.ServiceID,
		TransportStreamID: s.TransportStreamID,
		Visible:           true,
	}
}

// newChannels lists the logical channels first, services no network lists come last
func newChannels(r *astidvb.Registry) (cs channels) {
	listed := make(map[*astidvb.Service]bool)
	for _, n := range r.Networks() {
		var ncs channels
		for _, ns := range n.Services {
			c := newChannel(ns.Service)
			c.LCN = ns.LogicalChannelNumber
			c.Network = n.Name
			c.Visible = ns.Visible
			ncs = append(ncs, c)
			listed[ns.Service] = true
		}
		slices.SortFunc(ncs, func(a, b *Channel) bool { return a.LCN < b.LCN })
		cs = append(cs, ncs...)
	}
	for _, s := range r.Services() {
		if !listed[s] {
			cs = append(cs, newChannel(s))
		}
	}
	return
}

// String implements the Stringer interface
func (cs channels) String() string {
	var ss []string
	for _, c := range cs {
		s := fmt.Sprintf("* [%d] %s (%s)", c.LCN, c.Name, c.Kind)
		if c.Provider != "" {
			s += " - Provider: " + c.Provider
		}
		s += fmt.Sprintf(" - IDs: %d.%d.%d", c.OriginalNetworkID, c.TransportStreamID, c.ServiceID)
		if !c.Visible {
			s += " - Hidden"
		}
		ss = append(ss, s)
	}
	return fmt.Sprintf("%d channel(s):\n%s", len(cs), strings.Join(ss, "\n"))
}

// Programme represents an event in the preferred language
type Programme struct {
	Categories  []string      `json:"categories,omitempty"`
	Channel     string        `json:"channel"`
	CRID        string        `json:"crid,omitempty"`
	Description string        `json:"description,omitempty"`
	Duration    time.Duration `json:"duration"`
	Start       time.Time     `json:"start"`
	SubTitle    string        `json:"sub_title,omitempty"`
	Title       string        `json:"title"`
}

type programmes []*Programme

func newProgrammes(r *astidvb.Registry, language string) (ps programmes) {
	for _, e := range r.Events() {
		p := &Programme{
			Categories:  e.Categories,
			CRID:        e.QualifiedPrimaryCRID(),
			Description: e.Description(language),
			Duration:    e.Duration,
			Start:       e.Start,
			SubTitle:    e.SubTitle(language),
			Title:       e.Title(language),
		}
		if e.Service != nil {
			p.Channel = e.Service.Name
		}
		ps = append(ps, p)
	}
	slices.SortFunc(ps, func(a, b *Programme) bool {
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return a.Start.Before(b.Start)
	})
	return
}

// String implements the Stringer interface
func (ps programmes) String() string {
	var ss []string
	for _, p := range ps {
		s := fmt.Sprintf("* %s | %s | %s | %s", p.Channel, p.Start.Format("2006-01-02 15:04"), p.Duration, p.Title)
		if p.SubTitle != "" {
			s += " - " + p.SubTitle
		}
		if len(p.Categories) > 0 {
			s += " [" + strings.Join(p.Categories, ", ") + "]"
		}
		ss = append(ss, s)
	}
	return fmt.Sprintf("%d programme(s):\n%s", len(ps), strings.Join(ss, "\n"))
}
