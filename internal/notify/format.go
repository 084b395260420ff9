// Package notify builds the French-language notification texts persisted
// for clients. All output is capped at 160 characters so it fits banner
// and push-style surfaces.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/essoham7/chinelivre/internal/model"
)

const (
	// MaxLen is the hard cap on any formatted notification.
	MaxLen = 160

	separator = " • "
	ellipsis  = "..."
)

var ErrUnknownStatus = fmt.Errorf("unknown package status")

var statusLabels = map[model.PackageStatus]string{
	model.StatusReceivedChina:      "Reçu en Chine",
	model.StatusInTransit:          "En transit",
	model.StatusArrivedAfrica:      "Arrivé en Afrique",
	model.StatusAvailableWarehouse: "Disponible à l'entrepôt",
	model.StatusPickedUp:           "Récupéré",
}

var nextSteps = map[model.PackageStatus]string{
	model.StatusReceivedChina:      "Préparation en cours",
	model.StatusInTransit:          "Prochaine: arrivée en Afrique",
	model.StatusArrivedAfrica:      "Prochaine: disponible à l'entrepôt",
	model.StatusAvailableWarehouse: "Prochaine: retrait",
	model.StatusPickedUp:           "Fin: colis récupéré",
}

// StatusLabel returns the display label for a status, or an error for
// values outside the fixed enumeration.
func StatusLabel(status model.PackageStatus) (string, error) {
	label, ok := statusLabels[status]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return label, nil
}

// NextStep returns the "what happens next" hint for a status.
func NextStep(status model.PackageStatus) (string, error) {
	next, ok := nextSteps[status]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return next, nil
}

// Formatter produces notification texts. The clock is injectable so tests
// can pin timestamps; the zero value is not usable, construct with New.
type Formatter struct {
	now func() time.Time
}

func New() *Formatter {
	return &Formatter{now: time.Now}
}

// NewWithClock pins the formatter to a fixed clock.
func NewWithClock(now func() time.Time) *Formatter {
	if now == nil {
		now = time.Now
	}
	return &Formatter{now: now}
}

// StatusOptions carries the optional parts of a status notification.
// A zero UpdatedAt means "now".
type StatusOptions struct {
	Location  string
	UpdatedAt time.Time
}

// FormatStatus renders a status-change notification:
//
//	Statut de votre colis (numéro de suivi: <tn>): <label> • <DD/MM/YYYY HH:MM> [• Lieu: <loc>] • <next>
//
// capped at 160 characters. Unknown statuses are rejected rather than
// rendered with an empty label.
func (f *Formatter) FormatStatus(trackingNumber string, status model.PackageStatus, opts StatusOptions) (string, error) {
	label, err := StatusLabel(status)
	if err != nil {
		return "", err
	}
	next, err := NextStep(status)
	if err != nil {
		return "", err
	}

	when := opts.UpdatedAt
	if when.IsZero() {
		when = f.now()
	}

	parts := []string{
		fmt.Sprintf("Statut de votre colis (numéro de suivi: %s): %s", trackingNumber, label),
		formatDateFR(when),
	}
	if loc := strings.TrimSpace(opts.Location); loc != "" {
		parts = append(parts, "Lieu: "+loc)
	}
	parts = append(parts, next)

	return Truncate(strings.Join(parts, separator)), nil
}

// FormatCreated renders the notification persisted when staff register a
// new package.
func (f *Formatter) FormatCreated(trackingNumber string) string {
	msg := fmt.Sprintf("Nouveau colis (numéro de suivi: %s)%s%s%sEnregistré par le transitaire",
		trackingNumber, separator, formatDateFR(f.now()), separator)
	return Truncate(msg)
}

// FormatMessage renders the notification for a new chat message. The
// phrasing depends on which side of the conversation wrote it.
func (f *Formatter) FormatMessage(trackingNumber string, role model.SenderRole) string {
	from := "du client"
	if role == model.SenderAdmin {
		from = "de l'administration"
	}
	msg := fmt.Sprintf("Nouveau message %s concernant le colis (numéro de suivi: %s)%s%s",
		from, trackingNumber, separator, formatDateFR(f.now()))
	return Truncate(msg)
}

// formatDateFR renders DD/MM/YYYY HH:MM, 24-hour clock, zero padded.
func formatDateFR(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// Truncate enforces the 160-character cap: a hard rune-count cutoff at 157
// plus a three-character ellipsis. No attempt is made to keep word
// boundaries or drop whole segments.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxLen {
		return s
	}
	return string(runes[:MaxLen-len(ellipsis)]) + ellipsis
}
