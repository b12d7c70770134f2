// Package detail renders the plant detail panel.
//
// Render is a pure function of a plant record, its resolved photo reference
// and the localized messages. Text fields become [markup.Text] nodes, so
// escaping is enforced by the node tree rather than by call-site discipline.
//
// A usable photo is emitted as an img marked with data-fallback next to a
// hidden "photo unavailable" notice; the page script swaps them when the
// image fails to load. A photo reference that is already known to be broken
// is never emitted; the notice is shown directly instead.
package detail

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/matzehuels/ecomap/pkg/plants"
	"github.com/matzehuels/ecomap/pkg/viewer/markup"
)

// Messages holds the fixed, localized strings shown in the panel.
type Messages struct {
	PhotoUnavailable string `koanf:"photo_unavailable" yaml:"photo_unavailable" json:"photoUnavailable"`
	Hint             string `koanf:"hint" yaml:"hint" json:"hint"`
	Unnamed          string `koanf:"unnamed" yaml:"unnamed" json:"unnamed"`
}

// DefaultMessages returns the Korean strings the viewer ships with.
func DefaultMessages() Messages {
	return Messages{
		PhotoUnavailable: "사진을 불러올 수 없습니다.",
		Hint:             "지도에서 식물 마커를 클릭하거나 목록에서 선택하세요.",
		Unnamed:          "(이름 없음)",
	}
}

// WithDefaults fills empty fields from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	if m.PhotoUnavailable == "" {
		m.PhotoUnavailable = d.PhotoUnavailable
	}
	if m.Hint == "" {
		m.Hint = d.Hint
	}
	if m.Unnamed == "" {
		m.Unnamed = d.Unnamed
	}
	return m
}

// PhotoStatus classifies a resolved photo reference.
type PhotoStatus int

const (
	PhotoAbsent PhotoStatus = iota
	PhotoUsable
	PhotoBroken
)

// ClassifyPhoto decides how a photo reference should be rendered. Remote
// URLs and relative paths are usable; whether they load is only known to the
// client. Data URIs are checked here: a malformed one, a non-image media type
// or undecodable base64 is broken, as is any scheme other than http(s).
func ClassifyPhoto(ref string) PhotoStatus {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return PhotoAbsent
	}
	if markup.SafeURL(ref) == markup.InvalidURL {
		return PhotoBroken
	}
	if len(ref) >= 5 && strings.EqualFold(ref[:5], "data:") {
		if validDataURI(ref[5:]) {
			return PhotoUsable
		}
		return PhotoBroken
	}
	if _, err := url.Parse(ref); err != nil {
		return PhotoBroken
	}
	return PhotoUsable
}

// validDataURI checks the part of a data URI after "data:".
func validDataURI(rest string) bool {
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || payload == "" {
		return false
	}
	params := strings.Split(meta, ";")
	if !strings.HasPrefix(strings.ToLower(params[0]), "image/") {
		return false
	}
	if !strings.EqualFold(params[len(params)-1], "base64") {
		_, err := url.PathUnescape(payload)
		return err == nil
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return true
	}
	_, err := base64.RawStdEncoding.DecodeString(payload)
	return err == nil
}

// Render builds the detail panel for r. photo is the resolved reference for
// r, or empty when the plant has none.
func Render(r plants.Record, photo string, msgs Messages) markup.Node {
	msgs = msgs.WithDefaults()

	name := r.Name
	if name == "" {
		name = msgs.Unnamed
	}

	panel := markup.El("article", markup.Attrs("class", "plant-detail", "data-id", r.ID),
		markup.El("h2", markup.Attrs("class", "plant-name"), markup.Text(name)),
	)
	for _, para := range paragraphs(r.Description) {
		panel.Append(markup.El("p", markup.Attrs("class", "plant-description"), markup.Text(para)))
	}

	switch ClassifyPhoto(photo) {
	case PhotoUsable:
		panel.Append(markup.El("figure", markup.Attrs("class", "plant-photo"),
			markup.El("img", []markup.Attr{
				{Name: "src", Value: strings.TrimSpace(photo)},
				{Name: "alt", Value: name},
				{Name: "loading", Value: "lazy"},
				markup.Flag("data-fallback"),
			}),
			notice(msgs, true),
		))
	case PhotoBroken:
		panel.Append(markup.El("figure", markup.Attrs("class", "plant-photo"), notice(msgs, false)))
	}
	return panel
}

func notice(msgs Messages, hidden bool) markup.Node {
	attrs := markup.Attrs("class", "photo-unavailable")
	if hidden {
		attrs = append(attrs, markup.Flag("hidden"))
	}
	return markup.El("p", attrs, markup.Text(msgs.PhotoUnavailable))
}

// Hint renders the idle panel.
func Hint(msgs Messages) markup.Node {
	msgs = msgs.WithDefaults()
	return markup.El("p", markup.Attrs("class", "plant-hint"), markup.Text(msgs.Hint))
}

// Plain renders the same content as text lines for hosts without HTML.
func Plain(r plants.Record, photo string, msgs Messages) []string {
	msgs = msgs.WithDefaults()
	name := r.Name
	if name == "" {
		name = msgs.Unnamed
	}
	lines := []string{name}
	lines = append(lines, paragraphs(r.Description)...)
	switch ClassifyPhoto(photo) {
	case PhotoUsable:
		if len(photo) > 5 && strings.EqualFold(photo[:5], "data:") {
			lines = append(lines, "[photo]")
		} else {
			lines = append(lines, "[photo] "+photo)
		}
	case PhotoBroken:
		lines = append(lines, msgs.PhotoUnavailable)
	}
	return lines
}

// paragraphs splits free text on line breaks, dropping blank lines.
func paragraphs(s string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
