package notify

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/domain"
)

const (
	DefaultCreatedTemplate = "🔔 新規予約\n👤 {user}\n\n📅 期間\n{time}\n\n{resource_label}\n{resource}{notes}"
	DefaultUpdatedTemplate = "🔄 予約更新\n👤 {user}\n\n📅 期間\n{time}\n\n{resource_label}\n{resource}{notes}"
	DefaultDeletedTemplate = "🗑️ 予約削除\n👤 {user}\n\n📅 期間\n{time}\n\n{resource_label}\n{resource}{notes}"
)

const (
	labelGPU   = "💻 予約GPU"
	labelRoom  = "🏢 予約部屋"
	labelMixed = "📦 予約リソース"
)

// Renderer turns an event into text for one destination.
type Renderer struct {
	templates config.TemplateConfig
	format    config.FormatConfig
	loc       *time.Location
	now       func() time.Time
}

// NewRenderer binds the templates, format and timezone of destination.
func NewRenderer(destination config.NotificationConfig, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{
		templates: destination.Templates,
		format:    destination.Format.WithDefaults(),
		loc:       destination.Location(),
		now:       now,
	}
}

// Render fills the template for event.Kind. user is the display identity of
// the owner.
func (r *Renderer) Render(event Event, user string) string {
	usage := event.Usage
	resources := r.formatResources(usage.Resources())

	var notes string
	if usage.Notes() != "" {
		notes = "\n\n📝 備考\n" + usage.Notes()
	}

	replacer := strings.NewReplacer(
		"{user}", user,
		"{resources}", resources,
		"{resource}", resources,
		"{time}", r.formatTime(usage.TimePeriod()),
		"{notes}", notes,
		"{resource_label}", resourceLabel(usage),
	)
	return replacer.Replace(r.template(event.Kind))
}

func (r *Renderer) template(kind Kind) string {
	switch kind {
	case KindUpdated:
		return cmp.Or(r.templates.Updated, DefaultUpdatedTemplate)
	case KindDeleted:
		return cmp.Or(r.templates.Deleted, DefaultDeletedTemplate)
	default:
		return cmp.Or(r.templates.Created, DefaultCreatedTemplate)
	}
}

func resourceLabel(usage domain.ResourceUsage) string {
	switch gpu, room := usage.HasGPU(), usage.HasRoom(); {
	case gpu && !room:
		return labelGPU
	case room && !gpu:
		return labelRoom
	default:
		return labelMixed
	}
}

func (r *Renderer) formatResources(resources []domain.Resource) string {
	switch r.format.ResourceStyle {
	case config.ResourceStyleCompact:
		return formatCompact(resources)
	case config.ResourceStyleServerOnly:
		return formatServerOnly(resources)
	default:
		return domain.FormatResources(resources)
	}
}

// formatCompact groups devices per server ("Thalys 0,1") then lists rooms.
func formatCompact(resources []domain.Resource) string {
	devices := map[string][]int{}
	var servers, rooms []string
	for _, resource := range resources {
		switch res := resource.(type) {
		case domain.GPU:
			if _, ok := devices[res.Server]; !ok {
				servers = append(servers, res.Server)
			}
			devices[res.Server] = append(devices[res.Server], res.DeviceNumber)
		case domain.Room:
			rooms = append(rooms, res.Name)
		}
	}
	slices.Sort(servers)

	lines := make([]string, 0, len(servers)+len(rooms))
	for _, server := range servers {
		numbers := devices[server]
		slices.Sort(numbers)
		parts := make([]string, len(numbers))
		for i, n := range numbers {
			parts[i] = strconv.Itoa(n)
		}
		lines = append(lines, server+" "+strings.Join(parts, ","))
	}
	lines = append(lines, rooms...)
	return strings.Join(lines, "\n")
}

func formatServerOnly(resources []domain.Resource) string {
	var servers, rooms []string
	for _, resource := range resources {
		switch res := resource.(type) {
		case domain.GPU:
			servers = append(servers, res.Server)
		case domain.Room:
			rooms = append(rooms, res.Name)
		}
	}
	slices.Sort(servers)
	slices.Sort(rooms)
	return strings.Join(append(slices.Compact(servers), slices.Compact(rooms)...), "\n")
}

func (r *Renderer) formatTime(period domain.TimePeriod) string {
	switch r.format.TimeStyle {
	case config.TimeStyleSmart:
		return r.formatSmart(period)
	case config.TimeStyleRelative:
		return r.formatRelative(period)
	default:
		return domain.FormatTimePeriod(period, r.loc)
	}
}

func (r *Renderer) formatSmart(period domain.TimePeriod) string {
	start, end := period.Start().In(r.loc), period.End().In(r.loc)
	if sameDay(start, end) {
		return fmt.Sprintf("%s %s-%s", r.formatDate(start), start.Format("15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s %s - %s %s", r.formatDate(start), start.Format("15:04"), r.formatDate(end), end.Format("15:04"))
}

// formatRelative names the day relative to today. Multi-day periods fall
// back to the smart style.
func (r *Renderer) formatRelative(period domain.TimePeriod) string {
	start, end := period.Start().In(r.loc), period.End().In(r.loc)
	if !sameDay(start, end) {
		return r.formatSmart(period)
	}

	var day string
	switch daysBetween(r.now().In(r.loc), start) {
	case 0:
		day = "今日"
	case 1:
		day = "明日"
	case 2:
		day = "明後日"
	case -1:
		day = "昨日"
	default:
		day = r.formatDate(start)
	}
	return fmt.Sprintf("%s %s-%s", day, start.Format("15:04"), end.Format("15:04"))
}

func (r *Renderer) formatDate(t time.Time) string {
	switch r.format.DateFormat {
	case config.DateFormatMD:
		return fmt.Sprintf("%d/%d", t.Month(), t.Day())
	case config.DateFormatMDJapanese:
		return fmt.Sprintf("%d月%d日", t.Month(), t.Day())
	default:
		return t.Format("2006-01-02")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// daysBetween counts calendar days from a to b, both already in the same zone.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
