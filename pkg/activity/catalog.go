package activity

import (
	_ "embed"
	"fmt"
	"sort"

	"storyfeed-api/models"

	"gopkg.in/yaml.v3"
)

// Channel is one of the three feed groupings.
type Channel string

const (
	ChannelTimeline      Channel = "timeline"
	ChannelSocial        Channel = "social"
	ChannelCollaboration Channel = "collaboration"
)

// Channels lists every channel in display order.
var Channels = []Channel{ChannelTimeline, ChannelSocial, ChannelCollaboration}

func ParseChannel(s string) (Channel, bool) {
	for _, c := range Channels {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Activity types referenced directly by code.
const (
	TypeStoryCreated            = "story_created"
	TypeStoryUpdated            = "story_updated"
	TypePageCreated             = "page_created"
	TypeNewContent              = "new_content"
	TypeSystemMessage           = "system_message"
	TypeAuthorFollowed          = "author_followed"
	TypeCollaborationAdded      = "collaboration_added"
	TypeCollaborationRemoved    = "collaboration_removed"
	TypeCollaborationLeft       = "collaboration_left"
	TypeCollaborationShareFalse = "collaboration_share_false"
)

// ChannelSet is an ordered, duplicate-free set of channels. In YAML it may be
// written either as a scalar or as a sequence.
type ChannelSet []Channel

func (s ChannelSet) Has(c Channel) bool {
	for _, v := range s {
		if v == c {
			return true
		}
	}
	return false
}

func (s *ChannelSet) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	switch node.Kind {
	case yaml.ScalarNode:
		raw = []string{node.Value}
	case yaml.SequenceNode:
		if err := node.Decode(&raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("line %d: tab must be a channel or a list of channels", node.Line)
	}
	set := make(ChannelSet, 0, len(raw))
	for _, r := range raw {
		c, ok := ParseChannel(r)
		if !ok {
			return fmt.Errorf("line %d: unknown channel %q", node.Line, r)
		}
		if !set.Has(c) {
			set = append(set, c)
		}
	}
	*s = set
	return nil
}

// Entry classifies one activity type.
type Entry struct {
	Type    string             `yaml:"-" json:"type"`
	Tabs    ChannelSet         `yaml:"tab" json:"tab"`
	Filter  string             `yaml:"filter" json:"filter"`
	Payload models.PayloadKind `yaml:"payload" json:"payload"`
	Delay   string             `yaml:"delay,omitempty" json:"delay,omitempty"`
}

func (e Entry) InTab(c Channel) bool { return e.Tabs.Has(c) }

// Catalog is the immutable activity type table. It is safe for concurrent use.
type Catalog struct {
	entries map[string]Entry
}

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var defaultCatalog = MustLoadCatalog(defaultCatalogYAML)

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() *Catalog { return defaultCatalog }

// LoadCatalog parses and validates a catalog document.
func LoadCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Activities map[string]Entry `yaml:"activities"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(doc.Activities) == 0 {
		return nil, fmt.Errorf("catalog has no activity types")
	}
	entries := make(map[string]Entry, len(doc.Activities))
	for name, e := range doc.Activities {
		if len(e.Tabs) == 0 {
			return nil, fmt.Errorf("activity %q: tab is required", name)
		}
		if e.Filter == "" {
			return nil, fmt.Errorf("activity %q: filter is required", name)
		}
		switch e.Payload {
		case models.PayloadStory, models.PayloadContent, models.PayloadSystem,
			models.PayloadCollaboration, models.PayloadFollow:
		default:
			return nil, fmt.Errorf("activity %q: unknown payload kind %q", name, e.Payload)
		}
		if e.Delay != "" {
			if _, ok := parseRelative(e.Delay); !ok {
				return nil, fmt.Errorf("activity %q: invalid delay %q", name, e.Delay)
			}
		}
		e.Type = name
		entries[name] = e
	}
	return &Catalog{entries: entries}, nil
}

func MustLoadCatalog(data []byte) *Catalog {
	c, err := LoadCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify looks up an activity type. Unknown types report false.
func (c *Catalog) Classify(activityType string) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	e, ok := c.entries[activityType]
	return e, ok
}

// Matches reports whether activityType belongs to channel and, when filters
// are given, whether its filter label is one of them.
func (c *Catalog) Matches(activityType string, channel Channel, filters []string) bool {
	e, ok := c.Classify(activityType)
	if !ok || !e.InTab(channel) {
		return false
	}
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f == e.Filter {
			return true
		}
	}
	return false
}

// Entries returns every entry sorted by type name.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// TypesIn returns the sorted type names belonging to channel.
func (c *Catalog) TypesIn(channel Channel) []string {
	var out []string
	for _, e := range c.Entries() {
		if e.InTab(channel) {
			out = append(out, e.Type)
		}
	}
	return out
}
