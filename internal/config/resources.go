package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/example/lab-resource-manager/internal/domain"
)

var validate = validator.New()

const (
	NotificationSlack = "slack"
	NotificationMock  = "mock"
)

type ResourceStyle string

const (
	ResourceStyleFull       ResourceStyle = "full"
	ResourceStyleCompact    ResourceStyle = "compact"
	ResourceStyleServerOnly ResourceStyle = "server_only"
)

type TimeStyle string

const (
	TimeStyleFull     TimeStyle = "full"
	TimeStyleSmart    TimeStyle = "smart"
	TimeStyleRelative TimeStyle = "relative"
)

type DateFormat string

const (
	DateFormatYMD        DateFormat = "ymd"
	DateFormatMD         DateFormat = "md"
	DateFormatMDJapanese DateFormat = "md_japanese"
)

// ResourceConfig is the decoded resources.toml catalog.
type ResourceConfig struct {
	Servers []ServerConfig `toml:"servers" validate:"dive"`
	Rooms   []RoomConfig   `toml:"rooms" validate:"dive"`
}

type ServerConfig struct {
	Name          string               `toml:"name" validate:"required"`
	CalendarID    string               `toml:"calendar_id" validate:"required"`
	Devices       []DeviceConfig       `toml:"devices" validate:"required,min=1,dive"`
	Notifications []NotificationConfig `toml:"notifications" validate:"dive"`
}

type DeviceConfig struct {
	ID    int    `toml:"id" validate:"gte=0"`
	Model string `toml:"model" validate:"required"`
}

type RoomConfig struct {
	Name          string               `toml:"name" validate:"required"`
	CalendarID    string               `toml:"calendar_id" validate:"required"`
	Notifications []NotificationConfig `toml:"notifications" validate:"dive"`
}

// NotificationConfig is one delivery destination. It is comparable so
// destinations shared by several resources can be de-duplicated.
type NotificationConfig struct {
	Type       string         `toml:"type" validate:"required,oneof=slack mock"`
	WebhookURL string         `toml:"webhook_url" validate:"omitempty,url"`
	Timezone   string         `toml:"timezone"`
	Templates  TemplateConfig `toml:"templates"`
	Format     FormatConfig   `toml:"format"`
}

// TemplateConfig overrides the default message per event kind. Empty fields
// keep the built-in template.
type TemplateConfig struct {
	Created string `toml:"created"`
	Updated string `toml:"updated"`
	Deleted string `toml:"deleted"`
}

type FormatConfig struct {
	ResourceStyle ResourceStyle `toml:"resource_style" validate:"omitempty,oneof=full compact server_only"`
	TimeStyle     TimeStyle     `toml:"time_style" validate:"omitempty,oneof=full smart relative"`
	DateFormat    DateFormat    `toml:"date_format" validate:"omitempty,oneof=ymd md md_japanese"`
}

// WithDefaults fills unset styles with full / full / ymd.
func (f FormatConfig) WithDefaults() FormatConfig {
	if f.ResourceStyle == "" {
		f.ResourceStyle = ResourceStyleFull
	}
	if f.TimeStyle == "" {
		f.TimeStyle = TimeStyleFull
	}
	if f.DateFormat == "" {
		f.DateFormat = DateFormatYMD
	}
	return f
}

// Location resolves the destination timezone, falling back to the process
// local zone when unset or unknown.
func (n NotificationConfig) Location() *time.Location {
	if n.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(n.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LoadResources reads and validates the resource catalog at path.
func LoadResources(path string) (*ResourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource config %s: %w", path, err)
	}
	return ParseResources(data)
}

// ParseResources decodes TOML, rejecting unknown keys.
func ParseResources(data []byte) (*ResourceConfig, error) {
	var cfg ResourceConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode resource config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs tag validation and the cross-entry checks tags cannot express.
func (c *ResourceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("リソース設定が不正です: %w", err)
	}

	var problems []string
	names := map[string]bool{}
	calendars := map[string]bool{}
	checkNotifications := func(owner string, notifications []NotificationConfig) {
		for _, n := range notifications {
			if n.Type == NotificationSlack && strings.TrimSpace(n.WebhookURL) == "" {
				problems = append(problems, fmt.Sprintf("%s: slack notification requires webhook_url", owner))
			}
			if n.Timezone != "" {
				if _, err := time.LoadLocation(n.Timezone); err != nil {
					problems = append(problems, fmt.Sprintf("%s: unknown timezone %q", owner, n.Timezone))
				}
			}
		}
	}
	checkCalendar := func(owner, id string) {
		if calendars[id] {
			problems = append(problems, fmt.Sprintf("%s: calendar_id %q is used twice", owner, id))
		}
		calendars[id] = true
	}

	for _, s := range c.Servers {
		if names["server:"+s.Name] {
			problems = append(problems, fmt.Sprintf("server %q is defined twice", s.Name))
		}
		names["server:"+s.Name] = true
		checkCalendar("server "+s.Name, s.CalendarID)
		seen := map[int]bool{}
		for _, d := range s.Devices {
			if seen[d.ID] {
				problems = append(problems, fmt.Sprintf("server %s: device %d is defined twice", s.Name, d.ID))
			}
			seen[d.ID] = true
		}
		checkNotifications("server "+s.Name, s.Notifications)
	}
	for _, r := range c.Rooms {
		if names["room:"+r.Name] {
			problems = append(problems, fmt.Sprintf("room %q is defined twice", r.Name))
		}
		names["room:"+r.Name] = true
		checkCalendar("room "+r.Name, r.CalendarID)
		checkNotifications("room "+r.Name, r.Notifications)
	}

	if len(problems) > 0 {
		return fmt.Errorf("リソース設定が不正です: %w", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

func (c *ResourceConfig) Server(name string) (ServerConfig, bool) {
	for _, s := range c.Servers {
		if s.Name == name {
			return s, true
		}
	}
	return ServerConfig{}, false
}

func (c *ResourceConfig) Room(name string) (RoomConfig, bool) {
	for _, r := range c.Rooms {
		if r.Name == name {
			return r, true
		}
	}
	return RoomConfig{}, false
}

func (c *ResourceConfig) ServerByCalendarID(calendarID string) (ServerConfig, bool) {
	for _, s := range c.Servers {
		if s.CalendarID == calendarID {
			return s, true
		}
	}
	return ServerConfig{}, false
}

func (c *ResourceConfig) RoomByCalendarID(calendarID string) (RoomConfig, bool) {
	for _, r := range c.Rooms {
		if r.CalendarID == calendarID {
			return r, true
		}
	}
	return RoomConfig{}, false
}

// CalendarIDs lists server calendars first, then room calendars.
func (c *ResourceConfig) CalendarIDs() []string {
	ids := make([]string, 0, len(c.Servers)+len(c.Rooms))
	for _, s := range c.Servers {
		ids = append(ids, s.CalendarID)
	}
	for _, r := range c.Rooms {
		ids = append(ids, r.CalendarID)
	}
	return ids
}

// CalendarFor returns the calendar holding events for the resource.
func (c *ResourceConfig) CalendarFor(resource domain.Resource) (string, bool) {
	switch r := resource.(type) {
	case domain.GPU:
		if s, ok := c.Server(r.Server); ok {
			return s.CalendarID, true
		}
	case domain.Room:
		if room, ok := c.Room(r.Name); ok {
			return room.CalendarID, true
		}
	}
	return "", false
}

// NotificationsFor returns the destinations configured for the resource's
// server or room.
func (c *ResourceConfig) NotificationsFor(resource domain.Resource) []NotificationConfig {
	switch r := resource.(type) {
	case domain.GPU:
		if s, ok := c.Server(r.Server); ok {
			return s.Notifications
		}
	case domain.Room:
		if room, ok := c.Room(r.Name); ok {
			return room.Notifications
		}
	}
	return nil
}

// DomainDevices converts the device catalog for the resource factory.
func (s ServerConfig) DomainDevices() []domain.Device {
	devices := make([]domain.Device, 0, len(s.Devices))
	for _, d := range s.Devices {
		devices = append(devices, domain.Device{ID: d.ID, Model: d.Model})
	}
	return devices
}
