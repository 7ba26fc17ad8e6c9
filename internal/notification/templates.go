package notification

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/violation"
)

const timeLayout = "2006-01-02 15:04:05"

// equipmentLines is the per-equipment sentence included in violation alerts.
var equipmentLines = map[detection.Equipment]string{
	detection.Helmet:  "👷 Hard hat not detected. Head protection is mandatory in this area.",
	detection.Vest:    "🦺 High-visibility vest not detected. Wear your vest so you can be seen.",
	detection.Goggles: "👓 Safety goggles not detected. Eye protection is mandatory in this area.",
}

var (
	workerTemplate = template.Must(template.New("worker").Parse(
		`🚨 Safety alert!
{{.Name}}, missing protective equipment was detected at {{.Location}}.
{{range .Lines}}{{.}}
{{end}}⏰ {{.Time}}`))

	adminTemplate = template.Must(template.New("admin").Parse(
		`📢 Violation #{{.ID}} at {{.Location}} ({{.Camera}})
Worker: {{.Name}}
Missing: {{.Missing}}
Confidence: {{printf "%.2f" .Confidence}}
⏰ {{.Time}}`))
)

// BroadcastKind selects a predefined broadcast message.
type BroadcastKind string

const (
	KindHelmet  BroadcastKind = "helmet"
	KindVest    BroadcastKind = "vest"
	KindGoggles BroadcastKind = "goggles"
	KindGloves  BroadcastKind = "gloves"
	KindGeneral BroadcastKind = "general"
	KindText    BroadcastKind = "text" // free text supplied by the admin
)

// broadcastTemplates hold the predefined broadcast bodies; %s is the send time.
var broadcastTemplates = map[BroadcastKind]string{
	KindHelmet:  "👷 SAFETY WARNING\n\n🚨 Please wear your hard hat!\n\nHead protection is mandatory for your safety.\n\n📅 %s",
	KindVest:    "🦺 SAFETY WARNING\n\n🚨 Please wear your safety vest!\n\nHigh-visibility vests are mandatory so you can be seen.\n\n📅 %s",
	KindGoggles: "👓 SAFETY WARNING\n\n🚨 Please wear your safety goggles!\n\nEye protection is mandatory for your safety.\n\n📅 %s",
	KindGloves:  "🧤 SAFETY WARNING\n\n🚨 Please wear your gloves!\n\nHand protection is mandatory for your safety.\n\n📅 %s",
	KindGeneral: "⚠️ SAFETY NOTICE\n\nGeneral safety reminder: check your protective equipment.\n\n📅 %s",
}

// ParseBroadcastKind accepts the predefined kinds and "text".
func ParseBroadcastKind(s string) (BroadcastKind, error) {
	k := BroadcastKind(strings.ToLower(strings.TrimSpace(s)))
	if k == KindText {
		return k, nil
	}
	if _, ok := broadcastTemplates[k]; !ok {
		return "", fmt.Errorf("unknown broadcast kind %q", s)
	}
	return k, nil
}

type violationData struct {
	ID         uint
	Name       string
	Location   string
	Camera     string
	Missing    string
	Confidence float64
	Time       string
	Lines      []string
}

func newViolationData(r *violation.Record, name string) violationData {
	items := r.Missing.Items()
	lines := make([]string, 0, len(items))
	for _, e := range items {
		lines = append(lines, equipmentLines[e])
	}
	if name == "" {
		name = "Unidentified worker"
	}
	location := r.Location
	if location == "" {
		location = "an unknown location"
	}
	return violationData{
		ID:         r.ID,
		Name:       name,
		Location:   location,
		Camera:     r.CameraID,
		Missing:    strings.Join(r.ViolationTypes(), ", "),
		Confidence: r.Confidence,
		Time:       r.Timestamp.Local().Format(timeLayout),
		Lines:      lines,
	}
}

// RenderWorkerMessage renders the alert sent to the worker bound to a record.
func RenderWorkerMessage(r *violation.Record, name string) (string, error) {
	var b strings.Builder
	if err := workerTemplate.Execute(&b, newViolationData(r, name)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderAdminMessage renders the alert sent to administrators.
func RenderAdminMessage(r *violation.Record, name string) (string, error) {
	var b strings.Builder
	if err := adminTemplate.Execute(&b, newViolationData(r, name)); err != nil {
		return "", err
	}
	return b.String(), nil
}

// RenderBroadcast renders a predefined broadcast or returns text for KindText.
func RenderBroadcast(kind BroadcastKind, text string, at time.Time) (string, error) {
	if kind == KindText {
		text = strings.TrimSpace(text)
		if text == "" {
			return "", fmt.Errorf("free text broadcast requires a message")
		}
		return text, nil
	}
	tmpl, ok := broadcastTemplates[kind]
	if !ok {
		return "", fmt.Errorf("unknown broadcast kind %q", kind)
	}
	return fmt.Sprintf(tmpl, at.Local().Format(timeLayout)), nil
}
