package card

import (
	"fmt"
	"strings"
)

// ReleasePayload is the flat record carried by the third-party release
// notifier. URL, AppName, Environment and Platform are required; Version and
// Commit fall back to "unknown" when blank.
//
// The "enviroment" spelling is the wire contract of the upstream notifier.
type ReleasePayload struct {
	URL         string `json:"url"`
	AppName     string `json:"app_name"`
	Environment string `json:"enviroment"`
	Platform    string `json:"platform"`
	Version     string `json:"version"`
	Commit      string `json:"commit"`
}

// MissingFields returns the names of required fields that are absent or
// whitespace-only, in wire order.
func (p *ReleasePayload) MissingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"url", p.URL},
		{"app_name", p.AppName},
		{"enviroment", p.Environment},
		{"platform", p.Platform},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Normalize trims every field and fills the defaulted optionals.
func (p *ReleasePayload) Normalize() {
	p.URL = strings.TrimSpace(p.URL)
	p.AppName = strings.TrimSpace(p.AppName)
	p.Environment = strings.TrimSpace(p.Environment)
	p.Platform = strings.TrimSpace(p.Platform)
	p.Version = strings.TrimSpace(p.Version)
	p.Commit = strings.TrimSpace(p.Commit)
	if p.Version == "" {
		p.Version = "unknown"
	}
	if p.Commit == "" {
		p.Commit = "unknown"
	}
}

// Release builds the card for a validated, normalized release payload. Unlike
// Generate it always succeeds.
func Release(p ReleasePayload) *Message {
	info := fmt.Sprintf(
		"**Application:** %s\n**Environment:** %s\n**Platform:** %s\n**Version:** %s\n**Commit:** %s\n**URL:** %s",
		p.AppName, p.Environment, p.Platform, p.Version, p.Commit, p.URL)

	elements := []Element{
		markdown(info),
		primaryButton("Go to Release", p.URL),
	}

	title := fmt.Sprintf("[%s] %s", strings.ToUpper(p.Platform), p.AppName)
	return newMessage(ColorGreen, title, elements)
}
